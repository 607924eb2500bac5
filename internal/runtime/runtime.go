// Package runtime implements the pipeline scheduler: it pulls items whose
// next_stage matches the requested stage, fans out a bounded number of
// concurrent processor invocations, and persists results through the
// journal and artifact store. It performs zero internal retries — a failed
// item remains eligible for the next invocation of RunStage, and any
// retry policy belongs to an external caller (see cmd/discoursekg's
// `run all --watch`).
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"discoursekg/internal/artifactstore"
	"discoursekg/internal/domain"
	"discoursekg/internal/journal"
	"discoursekg/internal/metrics"
	"discoursekg/internal/processor"
)

// Runtime drives stage execution for a single environment.
type Runtime struct {
	Journal     *journal.Journal
	Store       *artifactstore.Store
	Environment string
	Logger      *slog.Logger
	Metrics     *metrics.Collector
	Fanout      int
	Timeout     time.Duration
}

// FailureEntry records one item's failed attempt within a StageReport.
type FailureEntry struct {
	ID    string
	Error string
}

// StageReport summarizes one RunStage invocation.
type StageReport struct {
	Stage     domain.Stage
	ItemsTotal int
	Succeeded  int
	Failed     int
	Durations  []time.Duration
	Failures   []FailureEntry
}

// DiscoverParams scopes a DISCOVER invocation.
type DiscoverParams struct {
	Speaker   string
	StartDate time.Time
	EndDate   time.Time
}

// DiscoverResult is what a discover processor hands back per new item found.
type DiscoverResult struct {
	SourceURL   string
	Title       string
	ContentType domain.ContentType
	ContentDate string
	Artifact    any
}

// DiscoverProcessor is the discover stage's distinct shape: it has no prior
// item to read state from, and produces zero or more new items instead of
// one StageResult.
type DiscoverProcessor interface {
	Discover(ctx context.Context, params DiscoverParams) ([]DiscoverResult, error)
}

func (r *Runtime) fanout() int {
	if r.Fanout <= 0 {
		return 4
	}
	return r.Fanout
}

func (r *Runtime) timeout() time.Duration {
	if r.Timeout <= 0 {
		return 10 * time.Minute
	}
	return r.Timeout
}

// RunDiscover invokes proc once to find new items, then creates a journal
// record for each; duplicates by source_url are skipped with an info log,
// not a failure.
func (r *Runtime) RunDiscover(ctx context.Context, proc DiscoverProcessor, params DiscoverParams, newItemID func() string) (StageReport, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	results, err := proc.Discover(ctx, params)
	if err != nil {
		return StageReport{Stage: domain.StageDiscover}, fmt.Errorf("discover: %w", err)
	}

	report := StageReport{Stage: domain.StageDiscover, ItemsTotal: len(results)}

	for _, res := range results {
		id := newItemID()
		now := time.Now()
		st, err := r.Journal.Create(id, params.Speaker, res.ContentType, res.SourceURL, res.Title, res.ContentDate, now)
		if errors.Is(err, domain.ErrDuplicateSourceURL) {
			r.logger().Info("discover: skipping duplicate source_url", "source_url", res.SourceURL, "existing_id", st.ID)
			continue
		}
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, FailureEntry{ID: res.SourceURL, Error: err.Error()})
			continue
		}

		if _, err := r.Store.Save(r.Environment, params.Speaker, domain.StageDiscover, res.ContentType, id, res.Artifact); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, FailureEntry{ID: id, Error: err.Error()})
			continue
		}

		report.Succeeded++
	}

	report.Durations = append(report.Durations, time.Since(start))
	return report, nil
}

// RunStage pulls every item ready for stage and processes them with bounded
// concurrency, isolating per-item failures from one another.
func (r *Runtime) RunStage(ctx context.Context, stage domain.Stage, proc processor.Processor) (StageReport, error) {
	items := r.Journal.ItemsReadyFor(stage)
	report := StageReport{Stage: stage, ItemsTotal: len(items)}
	if len(items) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanout())

	for _, item := range items {
		item := item
		g.Go(func() error {
			dur, procErr := r.processOne(gctx, stage, proc, item)

			mu.Lock()
			defer mu.Unlock()
			report.Durations = append(report.Durations, dur)
			if procErr != nil {
				report.Failed++
				report.Failures = append(report.Failures, FailureEntry{ID: item.ID, Error: procErr.Error()})
			} else {
				report.Succeeded++
			}
			return nil // per-item failures never cancel sibling workers
		})
	}

	// errgroup.WithContext's Wait only returns an error if a worker itself
	// returned one; workers above always return nil, so this is purely a
	// join point for the fan-out.
	_ = g.Wait()

	return report, nil
}

func (r *Runtime) processOne(ctx context.Context, stage domain.Stage, proc processor.Processor, item domain.PipelineState) (time.Duration, error) {
	itemStart := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	prior, err := r.loadPriorArtifacts(item, proc.RequiredStages())
	if err != nil {
		dur := time.Since(itemStart)
		r.recordFailure(item, stage, err, dur)
		return dur, err
	}

	result, procErr := proc.Process(ctx, item, prior)
	dur := time.Since(itemStart)

	if procErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			procErr = domain.ErrTimeout
		}
		r.recordFailure(item, stage, procErr, dur)
		return dur, procErr
	}

	path, saveErr := r.Store.Save(r.Environment, item.Speaker, stage, item.ContentType, item.ID, result.Artifact)
	if saveErr != nil {
		r.recordFailure(item, stage, saveErr, dur)
		return dur, saveErr
	}

	if _, err := r.Journal.UpdateOnSuccess(item.ID, stage, path, result.Metadata.Title, result.Metadata.ContentDate, result.Metadata.ContentType, dur.Seconds(), time.Now()); err != nil {
		r.logger().Error("journal update on success failed", "item", item.ID, "stage", stage, "error", err)
		return dur, fmt.Errorf("%w: %v", domain.ErrJournalIO, err)
	}

	r.observe(stage, "success", dur)
	return dur, nil
}

func (r *Runtime) recordFailure(item domain.PipelineState, stage domain.Stage, procErr error, dur time.Duration) {
	if _, err := r.Journal.UpdateOnFailure(item.ID, procErr.Error(), "", dur.Seconds(), time.Now()); err != nil {
		r.logger().Error("journal update on failure failed", "item", item.ID, "stage", stage, "error", err)
	}
	r.observe(stage, "failure", dur)
	r.logger().Warn("stage processor failed", "item", item.ID, "stage", stage, "error", procErr)
}

func (r *Runtime) loadPriorArtifacts(item domain.PipelineState, required []domain.Stage) (map[domain.Stage]json.RawMessage, error) {
	out := map[domain.Stage]json.RawMessage{}
	for _, stage := range required {
		path, ok := item.FilePaths[stage]
		if !ok {
			return nil, fmt.Errorf("%w: item %s missing artifact for stage %s", domain.ErrArtifactMissing, item.ID, stage)
		}
		var raw json.RawMessage
		if err := r.Store.LoadPath(path, &raw); err != nil {
			return nil, err
		}
		out[stage] = raw
	}
	return out, nil
}

func (r *Runtime) observe(stage domain.Stage, result string, dur time.Duration) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.ItemsTotal.WithLabelValues(string(stage), result).Inc()
	r.Metrics.StageDuration.WithLabelValues(string(stage)).Observe(dur.Seconds())
}

func (r *Runtime) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
