package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"discoursekg/internal/domain"
	"discoursekg/internal/speakers"
)

type fakeStore struct {
	entityTypes    map[string]domain.EntityType
	speakers       map[string]bool
	communications map[string]bool
	mentions       int
	subjects       int
	nextKey        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entityTypes:    map[string]domain.EntityType{},
		speakers:       map[string]bool{},
		communications: map[string]bool{},
	}
}

func (f *fakeStore) EnsureConstraints(ctx context.Context) error { return nil }

// UpsertSpeaker mirrors Neo4jStore's MERGE-then-first-write-wins semantics:
// the second upsert of the same key reports wasCreated=false.
func (f *fakeStore) UpsertSpeaker(ctx context.Context, key string, sp speakers.Speaker) (bool, error) {
	if f.speakers[key] {
		return false, nil
	}
	f.speakers[key] = true
	return true, nil
}

func (f *fakeStore) UpsertCommunication(ctx context.Context, speakerKey string, comm CommunicationNode) (bool, error) {
	if f.communications[comm.ID] {
		return false, nil
	}
	f.communications[comm.ID] = true
	return true, nil
}

func (f *fakeStore) UpsertEntity(ctx context.Context, canonicalName string, entityType domain.EntityType) (bool, domain.EntityType, error) {
	existing, ok := f.entityTypes[canonicalName]
	if ok {
		return false, existing, nil
	}
	f.entityTypes[canonicalName] = entityType
	return true, entityType, nil
}

func (f *fakeStore) CreateMention(ctx context.Context, communicationID, entityName string, mention MentionNode) (string, error) {
	f.mentions++
	f.nextKey++
	return fmt.Sprintf("mention-%d", f.nextKey), nil
}

func (f *fakeStore) CreateSubject(ctx context.Context, mentionKey string, subject domain.Subject) error {
	f.subjects++
	return nil
}

func testRegistry(t *testing.T) *speakers.Registry {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/speakers.json"
	contents := `{"speakers": {"speaker-a": {"display_name": "A", "role": "Senator", "organization": "Senate", "industry": "Government", "region": "National"}}}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write speakers.json: %v", err)
	}
	reg, err := speakers.Load(path, nil)
	if err != nil {
		t.Fatalf("speakers.Load: %v", err)
	}
	return reg
}

func priorArtifacts(t *testing.T, scrape domain.ScrapeArtifact, summary domain.SummarizeArtifact, categorize domain.CategorizeArtifact) map[domain.Stage]json.RawMessage {
	t.Helper()
	scrapeB, _ := json.Marshal(scrape)
	summaryB, _ := json.Marshal(summary)
	catB, _ := json.Marshal(categorize)
	return map[domain.Stage]json.RawMessage{
		domain.StageScrape:     scrapeB,
		domain.StageSummarize:  summaryB,
		domain.StageCategorize: catB,
	}
}

func TestBuilderProcessComputesAggregatedSentiment(t *testing.T) {
	store := newFakeStore()
	builder := New(store, testRegistry(t), nil)

	categorized := domain.CategorizeArtifact{
		Entities: []domain.EntityMention{
			{
				EntityName: "Acme Corp",
				EntityType: domain.EntityOrganization,
				Mentions: []domain.TopicMention{
					{
						Topic:   "trade",
						Context: "a sufficiently long context excerpt for validation",
						Subjects: []domain.Subject{
							{SubjectName: "tariffs", Sentiment: domain.SentimentNegative, Quotes: []string{"q1"}},
							{SubjectName: "exports", Sentiment: domain.SentimentPositive, Quotes: []string{"q2"}},
							{SubjectName: "jobs", Sentiment: domain.SentimentNegative, Quotes: []string{"q3"}},
						},
					},
				},
			},
		},
	}

	state := domain.PipelineState{ID: "item-1", Speaker: "speaker-a", ContentType: domain.ContentSpeech}
	prior := priorArtifacts(t, domain.ScrapeArtifact{FullText: "text"}, domain.SummarizeArtifact{Summary: "summary"}, categorized)

	result, err := builder.Process(context.Background(), state, prior)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	report := result.Artifact.(domain.GraphArtifact)
	if report.MentionCount != 1 {
		t.Fatalf("expected 1 mention, got %d", report.MentionCount)
	}
	if report.SubjectCount != 3 {
		t.Fatalf("expected 3 subjects, got %d", report.SubjectCount)
	}
	if store.mentions != 1 || store.subjects != 3 {
		t.Fatalf("unexpected store counts: mentions=%d subjects=%d", store.mentions, store.subjects)
	}
	// Fresh graph: Speaker, Communication, and Entity must all count as
	// created, not merged (regression for the "created flag read after
	// REMOVE" bug in Neo4jStore's MERGE Cypher).
	if report.NodesCreated != 3 {
		t.Fatalf("expected 3 created nodes (speaker+communication+entity), got %d (merged=%d)", report.NodesCreated, report.NodesMerged)
	}
	if report.NodesMerged != 0 {
		t.Fatalf("expected 0 merged nodes on a fresh graph, got %d", report.NodesMerged)
	}
}

func TestBuilderProcessDetectsMentionDuplicate(t *testing.T) {
	store := newFakeStore()
	builder := New(store, testRegistry(t), nil)

	subj := domain.Subject{SubjectName: "policy", Sentiment: domain.SentimentNeutral, Quotes: []string{"q"}}
	mention := domain.TopicMention{Topic: "trade", Context: "a sufficiently long context excerpt here", Subjects: []domain.Subject{subj}}

	categorized := domain.CategorizeArtifact{
		Entities: []domain.EntityMention{
			{EntityName: "Acme Corp", EntityType: domain.EntityOrganization, Mentions: []domain.TopicMention{mention}},
			{EntityName: "acme corp", EntityType: domain.EntityOrganization, Mentions: []domain.TopicMention{{Topic: "Trade", Context: mention.Context, Subjects: []domain.Subject{subj}}}},
		},
	}

	state := domain.PipelineState{ID: "item-1", Speaker: "speaker-a"}
	prior := priorArtifacts(t, domain.ScrapeArtifact{}, domain.SummarizeArtifact{}, categorized)

	_, err := builder.Process(context.Background(), state, prior)
	if !errors.Is(err, domain.ErrMentionDuplicate) {
		t.Fatalf("expected ErrMentionDuplicate, got %v", err)
	}
}

func TestBuilderProcessUnknownSpeaker(t *testing.T) {
	store := newFakeStore()
	builder := New(store, testRegistry(t), nil)

	state := domain.PipelineState{ID: "item-1", Speaker: "ghost"}
	prior := priorArtifacts(t, domain.ScrapeArtifact{}, domain.SummarizeArtifact{}, domain.CategorizeArtifact{})

	_, err := builder.Process(context.Background(), state, prior)
	if !errors.Is(err, domain.ErrSpeakerUnknown) {
		t.Fatalf("expected ErrSpeakerUnknown, got %v", err)
	}
}

func TestBuilderProcessEntityTypeConflictWarns(t *testing.T) {
	store := newFakeStore()
	store.entityTypes["Acme Corp"] = domain.EntityOrganization
	builder := New(store, testRegistry(t), nil)

	subj := domain.Subject{SubjectName: "policy", Sentiment: domain.SentimentNeutral, Quotes: []string{"q"}}
	categorized := domain.CategorizeArtifact{
		Entities: []domain.EntityMention{
			{EntityName: "Acme Corp", EntityType: domain.EntityProduct, Mentions: []domain.TopicMention{
				{Topic: "trade", Context: "a sufficiently long context excerpt here", Subjects: []domain.Subject{subj}},
			}},
		},
	}

	state := domain.PipelineState{ID: "item-1", Speaker: "speaker-a"}
	prior := priorArtifacts(t, domain.ScrapeArtifact{}, domain.SummarizeArtifact{}, categorized)

	result, err := builder.Process(context.Background(), state, prior)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	report := result.Artifact.(domain.GraphArtifact)
	if len(report.Warnings) != 1 {
		t.Fatalf("expected 1 conflict warning, got %d: %v", len(report.Warnings), report.Warnings)
	}
}
