package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"discoursekg/internal/artifactstore"
	"discoursekg/internal/domain"
	"discoursekg/internal/journal"
	"discoursekg/internal/processor"
)

type fakeProcessor struct {
	stage    domain.Stage
	required []domain.Stage
	fail     map[string]bool
}

func (f *fakeProcessor) Stage() domain.Stage             { return f.stage }
func (f *fakeProcessor) RequiredStages() []domain.Stage  { return f.required }

func (f *fakeProcessor) Process(ctx context.Context, state domain.PipelineState, prior map[domain.Stage]json.RawMessage) (processor.StageResult, error) {
	if f.fail[state.ID] {
		return processor.StageResult{}, fmt.Errorf("boom for %s", state.ID)
	}
	return processor.StageResult{
		Artifact: domain.ScrapeArtifact{FullText: "text for " + state.ID, WordCount: 3},
	}, nil
}

func newTestRuntime(t *testing.T) (*Runtime, *journal.Journal) {
	t.Helper()
	dir := t.TempDir()
	j, err := journal.Open(dir, "test")
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	store := artifactstore.New(dir)

	return &Runtime{
		Journal:     j,
		Store:       store,
		Environment: "test",
		Fanout:      2,
		Timeout:     5 * time.Second,
	}, j
}

func TestRunStageSucceedsAndAdvancesStage(t *testing.T) {
	rt, j := newTestRuntime(t)
	now := time.Now()
	j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now)
	j.Create("item-2", "speaker-a", domain.ContentSpeech, "https://example.org/2", "", "", now)

	proc := &fakeProcessor{stage: domain.StageScrape}

	report, err := rt.RunStage(context.Background(), domain.StageScrape, proc)
	if err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	if report.ItemsTotal != 2 || report.Succeeded != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	st, err := j.Get("item-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.NextStage != domain.StageSummarize {
		t.Fatalf("expected next_stage SUMMARIZE, got %s", st.NextStage)
	}
}

func TestRunStageIsolatesPerItemFailure(t *testing.T) {
	rt, j := newTestRuntime(t)
	now := time.Now()
	j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now)
	j.Create("item-2", "speaker-a", domain.ContentSpeech, "https://example.org/2", "", "", now)

	proc := &fakeProcessor{stage: domain.StageScrape, fail: map[string]bool{"item-1": true}}

	report, err := rt.RunStage(context.Background(), domain.StageScrape, proc)
	if err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	failed, err := j.Get("item-1")
	if err != nil {
		t.Fatalf("Get item-1: %v", err)
	}
	if failed.NextStage != domain.StageScrape {
		t.Fatalf("failed item must remain at SCRAPE, got %s", failed.NextStage)
	}
	if failed.RetryCount != 1 {
		t.Fatalf("expected retry_count 1, got %d", failed.RetryCount)
	}

	succeeded, err := j.Get("item-2")
	if err != nil {
		t.Fatalf("Get item-2: %v", err)
	}
	if succeeded.NextStage != domain.StageSummarize {
		t.Fatalf("successful sibling must still advance, got %s", succeeded.NextStage)
	}
}

func TestRunStageNoItemsReturnsEmptyReport(t *testing.T) {
	rt, _ := newTestRuntime(t)
	proc := &fakeProcessor{stage: domain.StageScrape}

	report, err := rt.RunStage(context.Background(), domain.StageScrape, proc)
	if err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	if report.ItemsTotal != 0 {
		t.Fatalf("expected 0 items, got %d", report.ItemsTotal)
	}
}

func TestRunStageRequiresPriorArtifact(t *testing.T) {
	rt, j := newTestRuntime(t)
	now := time.Now()
	j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now)
	// advance straight to SUMMARIZE without ever writing a SCRAPE artifact
	j.UpdateOnSuccess("item-1", domain.StageScrape, "/does/not/exist.json", "", "", "", 0, now)

	proc := &fakeProcessor{stage: domain.StageSummarize, required: []domain.Stage{domain.StageScrape}}

	report, err := rt.RunStage(context.Background(), domain.StageSummarize, proc)
	if err != nil {
		t.Fatalf("RunStage: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected missing prior artifact to fail the item, got %+v", report)
	}
}
