// Package app wires configuration into every pipeline component: the
// journal, artifact store, speaker registry, stage processors, graph store,
// metrics collector, and the runtime that drives them all. It follows the
// teacher's internal/app/app.go wiring shape (config -> logger -> adapters
// -> use case), generalized from a single fixed pipeline into one that the
// CLI drives stage-by-stage.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"discoursekg/internal/artifactstore"
	"discoursekg/internal/config"
	"discoursekg/internal/domain"
	"discoursekg/internal/graph"
	"discoursekg/internal/journal"
	"discoursekg/internal/logging"
	"discoursekg/internal/metrics"
	"discoursekg/internal/processor"
	"discoursekg/internal/runtime"
	"discoursekg/internal/speakers"
	"discoursekg/internal/stages/categorize"
	"discoursekg/internal/stages/discover"
	"discoursekg/internal/stages/scrape"
	"discoursekg/internal/stages/summarize"
)

// Application wires config to the pipeline runtime and every dependency it needs.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	Journal  *journal.Journal
	Store    *artifactstore.Store
	Speakers *speakers.Registry
	Registry *processor.Registry
	Runtime  *runtime.Runtime
	Metrics  *metrics.Collector
	Registerer prometheus.Registerer

	discoverScanner *discover.Scanner
	graphStore      *graph.Neo4jStore
}

// New builds a fully-wired Application. graphURI/user/password come from
// cfg.Graph; the Neo4j connection is opened lazily on first use of the
// GRAPH stage via EnsureGraphStore, since most CLI invocations (discover,
// scrape, summarize, categorize, status, invalidate) never need it.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	j, err := journal.Open(cfg.DataRoot, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("app: open journal: %w", err)
	}
	store := artifactstore.New(cfg.DataRoot)

	speakerRegistry, err := speakers.Load(cfg.Speakers.Path, baseLogger.With("component", "speakers"))
	if err != nil {
		return nil, fmt.Errorf("app: load speaker registry: %w", err)
	}
	if err := speakerRegistry.Watch(context.Background()); err != nil {
		baseLogger.Warn("app: speaker registry hot-reload disabled", "error", err)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)

	scanner := discover.NewScanner(nil, cfg.Discover.Sources, baseLogger.With("component", "discover"))

	registry := processor.NewRegistry()
	registry.Register(scrape.New(nil))
	registry.Register(summarize.New(cfg.LLM.APIKey, cfg.LLM.Model))
	registry.Register(categorize.New(cfg.LLM.APIKey, cfg.LLM.Model))

	rt := &runtime.Runtime{
		Journal:     j,
		Store:       store,
		Environment: cfg.Environment,
		Logger:      baseLogger.With("component", "runtime"),
		Metrics:     collector,
		Fanout:      cfg.Runtime.Fanout,
		Timeout:     cfg.StageTimeout(),
	}

	return &Application{
		cfg:             cfg,
		logger:          baseLogger,
		Journal:         j,
		Store:           store,
		Speakers:        speakerRegistry,
		Registry:        registry,
		Runtime:         rt,
		Metrics:         collector,
		Registerer:      reg,
		discoverScanner: scanner,
	}, nil
}

// EnsureGraphStore lazily opens the Neo4j connection and registers the
// Graph Builder processor; RunStage(GRAPH) requires this to have been
// called first.
func (a *Application) EnsureGraphStore(ctx context.Context) error {
	if a.graphStore != nil {
		return nil
	}
	store, err := graph.NewNeo4jStore(ctx, a.cfg.Graph.URL, a.cfg.Graph.User, a.cfg.Graph.Password)
	if err != nil {
		return fmt.Errorf("app: connect graph store: %w", err)
	}
	if err := store.EnsureConstraints(ctx); err != nil {
		return fmt.Errorf("app: ensure graph constraints: %w", err)
	}
	a.graphStore = store
	a.Registry.Register(graph.New(store, a.Speakers, a.logger.With("component", "graph")))
	return nil
}

// Close releases any open external connections.
func (a *Application) Close(ctx context.Context) error {
	a.Speakers.Close()
	if a.graphStore != nil {
		return a.graphStore.Close(ctx)
	}
	return nil
}

// RunDiscover runs the DISCOVER stage for one speaker over a date window.
func (a *Application) RunDiscover(ctx context.Context, params runtime.DiscoverParams) (runtime.StageReport, error) {
	return a.Runtime.RunDiscover(ctx, a.discoverScanner, params, newItemID)
}

// RunStage runs a single non-discover stage to completion over every ready item.
func (a *Application) RunStage(ctx context.Context, stage domain.Stage) (runtime.StageReport, error) {
	if stage == domain.StageGraph {
		if err := a.EnsureGraphStore(ctx); err != nil {
			return runtime.StageReport{}, err
		}
	}
	proc, err := a.Registry.Resolve(stage)
	if err != nil {
		return runtime.StageReport{}, err
	}
	return a.Runtime.RunStage(ctx, stage, proc)
}

// RunAll runs every non-discover stage once, in sequence.
func (a *Application) RunAll(ctx context.Context) ([]runtime.StageReport, error) {
	var reports []runtime.StageReport
	for _, stage := range []domain.Stage{domain.StageScrape, domain.StageSummarize, domain.StageCategorize, domain.StageGraph} {
		report, err := a.RunStage(ctx, stage)
		if err != nil {
			return reports, fmt.Errorf("run all: stage %s: %w", stage, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Invalidate marks id as excluded from future scheduling.
func (a *Application) Invalidate(id string) (domain.PipelineState, error) {
	return a.Journal.Invalidate(id, nowFunc())
}

// Status returns every item, for the status CLI command to filter and print.
func (a *Application) Status() []domain.PipelineState {
	return a.Journal.Snapshot()
}

// MetricsAddr returns the configured metrics listen address.
func (a *Application) MetricsAddr() string {
	return a.cfg.Metrics.Addr
}
