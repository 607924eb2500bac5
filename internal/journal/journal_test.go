package journal

import (
	"errors"
	"testing"
	"time"

	"discoursekg/internal/domain"
)

func TestCreateAndGet(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, "test")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st, err := j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "Title", "2026-01-01", now)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if st.NextStage != domain.StageScrape {
		t.Fatalf("expected next_stage SCRAPE, got %s", st.NextStage)
	}

	got, err := j.Get("item-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SourceURL != "https://example.org/1" {
		t.Fatalf("unexpected source_url: %s", got.SourceURL)
	}
}

func TestCreateDuplicateSourceURL(t *testing.T) {
	dir := t.TempDir()
	j, _ := Open(dir, "test")
	now := time.Now()

	if _, err := j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := j.Create("item-2", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now)
	if !errors.Is(err, domain.ErrDuplicateSourceURL) {
		t.Fatalf("expected ErrDuplicateSourceURL, got %v", err)
	}
}

func TestItemsReadyForAndUpdateOnSuccess(t *testing.T) {
	dir := t.TempDir()
	j, _ := Open(dir, "test")
	now := time.Now()

	if _, err := j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ready := j.ItemsReadyFor(domain.StageScrape)
	if len(ready) != 1 {
		t.Fatalf("expected 1 item ready for SCRAPE, got %d", len(ready))
	}

	st, err := j.UpdateOnSuccess("item-1", domain.StageScrape, "/data/scrape/item-1.json", "", "", "", 1.5, now)
	if err != nil {
		t.Fatalf("UpdateOnSuccess: %v", err)
	}
	if st.NextStage != domain.StageSummarize {
		t.Fatalf("expected next_stage SUMMARIZE, got %s", st.NextStage)
	}
	if st.RetryCount != 0 {
		t.Fatalf("expected retry_count reset to 0, got %d", st.RetryCount)
	}

	ready = j.ItemsReadyFor(domain.StageScrape)
	if len(ready) != 0 {
		t.Fatalf("expected 0 items still ready for SCRAPE, got %d", len(ready))
	}
}

func TestUpdateOnFailureIncrementsRetryCount(t *testing.T) {
	dir := t.TempDir()
	j, _ := Open(dir, "test")
	now := time.Now()
	j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now)

	st, err := j.UpdateOnFailure("item-1", "boom", "", 0.2, now)
	if err != nil {
		t.Fatalf("UpdateOnFailure: %v", err)
	}
	if st.RetryCount != 1 {
		t.Fatalf("expected retry_count 1, got %d", st.RetryCount)
	}
	if st.NextStage != domain.StageScrape {
		t.Fatalf("next_stage must not advance on failure, got %s", st.NextStage)
	}

	ready := j.ItemsReadyFor(domain.StageScrape)
	if len(ready) != 1 {
		t.Fatalf("failed item must remain ready for retry, got %d items", len(ready))
	}
}

func TestInvalidateExcludesFromReadyAndDuplicateCheck(t *testing.T) {
	dir := t.TempDir()
	j, _ := Open(dir, "test")
	now := time.Now()
	j.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now)

	if _, err := j.Invalidate("item-1", now); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	if ready := j.ItemsReadyFor(domain.StageScrape); len(ready) != 0 {
		t.Fatalf("invalidated item must not be ready, got %d", len(ready))
	}

	if _, err := j.Create("item-2", "speaker-a", domain.ContentSpeech, "https://example.org/1", "", "", now); err != nil {
		t.Fatalf("expected re-discovery of invalidated source_url to succeed, got %v", err)
	}
}

func TestJournalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	j1, _ := Open(dir, "test")
	j1.Create("item-1", "speaker-a", domain.ContentSpeech, "https://example.org/1", "Title", "", now)

	j2, err := Open(dir, "test")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	st, err := j2.Get("item-1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if st.Title != "Title" {
		t.Fatalf("unexpected title after reopen: %s", st.Title)
	}
}
