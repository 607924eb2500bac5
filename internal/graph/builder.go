// Package graph implements the GRAPH stage's processor: it assembles
// Speaker/Communication/Entity/Mention/Subject nodes and their edges from
// the prior stages' artifacts, computing per-mention aggregated sentiment
// and validating mention uniqueness before upserting into a Store. The
// algorithm is ported directly from original_source/src/graph/grapher.py.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"discoursekg/internal/domain"
	"discoursekg/internal/processor"
	"discoursekg/internal/speakers"
)

// decimalPrecision matches graph_config.DECIMAL_PRECISION in the original.
const decimalPrecision = 3

// Builder implements processor.Processor for the GRAPH stage.
type Builder struct {
	store    Store
	speakers *speakers.Registry
	logger   *slog.Logger
}

// New builds a Builder.
func New(store Store, registry *speakers.Registry, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, speakers: registry, logger: logger}
}

func (b *Builder) Stage() domain.Stage { return domain.StageGraph }

func (b *Builder) RequiredStages() []domain.Stage {
	return []domain.Stage{domain.StageScrape, domain.StageSummarize, domain.StageCategorize}
}

// Process assembles and persists the graph for one communication.
func (b *Builder) Process(ctx context.Context, state domain.PipelineState, prior map[domain.Stage]json.RawMessage) (processor.StageResult, error) {
	var scrape domain.ScrapeArtifact
	if err := json.Unmarshal(prior[domain.StageScrape], &scrape); err != nil {
		return processor.StageResult{}, fmt.Errorf("graph: decode scrape artifact: %w", err)
	}
	var summarized domain.SummarizeArtifact
	if err := json.Unmarshal(prior[domain.StageSummarize], &summarized); err != nil {
		return processor.StageResult{}, fmt.Errorf("graph: decode summarize artifact: %w", err)
	}
	var categorized domain.CategorizeArtifact
	if err := json.Unmarshal(prior[domain.StageCategorize], &categorized); err != nil {
		return processor.StageResult{}, fmt.Errorf("graph: decode categorize artifact: %w", err)
	}

	speaker, ok := b.speakers.Get(state.Speaker)
	if !ok {
		return processor.StageResult{}, fmt.Errorf("%w: speaker %q", domain.ErrSpeakerUnknown, state.Speaker)
	}

	if err := checkMentionUniqueness(categorized.Entities); err != nil {
		return processor.StageResult{}, err
	}

	report := domain.GraphArtifact{}

	speakerCreated, err := b.store.UpsertSpeaker(ctx, state.Speaker, speaker)
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("graph: upsert speaker: %w", err)
	}
	incrementNodeCounter(&report, speakerCreated)

	commCreated, err := b.store.UpsertCommunication(ctx, state.Speaker, CommunicationNode{
		ID:               state.ID,
		Title:            state.Title,
		ContentType:      state.ContentType,
		ContentDate:      state.ContentDate,
		SourceURL:        state.SourceURL,
		FullText:         scrape.FullText,
		WordCount:        scrape.WordCount,
		WasSummarized:    summarized.WasSummarized,
		CompressionRatio: summarized.CompressionRatio,
	})
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("graph: upsert communication: %w", err)
	}
	incrementNodeCounter(&report, commCreated)
	report.EdgesCreated++ // DELIVERED

	for _, entity := range categorized.Entities {
		entityCreated, existingType, err := b.store.UpsertEntity(ctx, entity.EntityName, entity.EntityType)
		if err != nil {
			return processor.StageResult{}, fmt.Errorf("graph: upsert entity %q: %w", entity.EntityName, err)
		}
		incrementNodeCounter(&report, entityCreated)
		if !entityCreated && existingType != entity.EntityType {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"entity %q already exists with type %q; keeping existing type, ignoring incoming %q",
				entity.EntityName, existingType, entity.EntityType))
		}

		for _, mention := range entity.Mentions {
			aggregated := computeAggregatedSentiment(mention.Subjects)

			mentionKey, err := b.store.CreateMention(ctx, state.ID, entity.EntityName, MentionNode{
				Topic:               mention.Topic,
				Context:             mention.Context,
				AggregatedSentiment: aggregated,
			})
			if err != nil {
				return processor.StageResult{}, fmt.Errorf("graph: create mention %q/%q: %w", entity.EntityName, mention.Topic, err)
			}
			report.NodesCreated++ // Mention is always CREATE, never merged
			report.EdgesCreated += 2 // HAS_MENTION, REFERS_TO
			report.MentionCount++

			for _, subject := range mention.Subjects {
				normalized := domain.Subject{
					SubjectName: strings.TrimSpace(subject.SubjectName),
					Sentiment:   subject.Sentiment,
					Quotes:      truncateQuotes(subject.Quotes, 6),
				}
				if err := b.store.CreateSubject(ctx, mentionKey, normalized); err != nil {
					return processor.StageResult{}, fmt.Errorf("graph: create subject %q: %w", normalized.SubjectName, err)
				}
				report.NodesCreated++
				report.EdgesCreated++ // HAS_SUBJECT
				report.SubjectCount++
			}
		}
	}

	return processor.StageResult{Artifact: report}, nil
}

func incrementNodeCounter(report *domain.GraphArtifact, created bool) {
	if created {
		report.NodesCreated++
	} else {
		report.NodesMerged++
	}
}

// checkMentionUniqueness enforces the graph-wide Mention cardinality
// invariant: at most one Mention per (entity, topic) across the entire
// categorize payload, not just within a single EntityMention (which
// domain.EntityMention.Validate already checks for).
func checkMentionUniqueness(entities []domain.EntityMention) error {
	seen := map[string]bool{}
	for _, entity := range entities {
		for _, mention := range entity.Mentions {
			key := strings.ToLower(strings.TrimSpace(entity.EntityName)) + "|" + strings.ToLower(strings.TrimSpace(mention.Topic))
			if seen[key] {
				return fmt.Errorf("%w: entity %q topic %q appears more than once", domain.ErrMentionDuplicate, entity.EntityName, mention.Topic)
			}
			seen[key] = true
		}
	}
	return nil
}

// computeAggregatedSentiment rolls up Subject.Sentiment counts into the
// {sentiment: {count, prop}} shape the spec requires, with prop rounded to
// decimalPrecision. Returns an empty map if subjects is empty (mentions are
// required to have at least one Subject, so this is a defensive fallback).
func computeAggregatedSentiment(subjects []domain.Subject) map[domain.SentimentLevel]domain.SentimentBucket {
	if len(subjects) == 0 {
		return map[domain.SentimentLevel]domain.SentimentBucket{}
	}

	counts := map[domain.SentimentLevel]int{}
	for _, s := range subjects {
		counts[s.Sentiment]++
	}

	total := len(subjects)
	out := make(map[domain.SentimentLevel]domain.SentimentBucket, len(counts))
	for level, count := range counts {
		out[level] = domain.SentimentBucket{
			Count: count,
			Prop:  roundTo(float64(count)/float64(total), decimalPrecision),
		}
	}
	return out
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

func truncateQuotes(quotes []string, max int) []string {
	if len(quotes) <= max {
		return quotes
	}
	return quotes[:max]
}
