package artifactstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"discoursekg/internal/domain"
)

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir)

	artifact := domain.ScrapeArtifact{FullText: "hello world", WordCount: 2}
	path, err := store.Save("test", "speaker-a", domain.StageScrape, domain.ContentSpeech, "item-1", artifact)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	var loaded domain.ScrapeArtifact
	if err := store.LoadPath(path, &loaded); err != nil {
		t.Fatalf("LoadPath: %v", err)
	}
	if loaded.FullText != artifact.FullText {
		t.Fatalf("unexpected full_text: %s", loaded.FullText)
	}
}

func TestLoadMissingReturnsArtifactMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir)

	var loaded domain.ScrapeArtifact
	err := store.Load("test", "speaker-a", domain.StageScrape, domain.ContentSpeech, "nope", &loaded)
	if !errors.Is(err, domain.ErrArtifactMissing) {
		t.Fatalf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestLoadCorruptReturnsArtifactCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(dir)
	path := store.Path("test", "speaker-a", domain.StageScrape, domain.ContentSpeech, "bad")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("setup mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("setup write: %v", err)
	}

	var loaded domain.ScrapeArtifact
	err := store.LoadPath(path, &loaded)
	if !errors.Is(err, domain.ErrArtifactCorrupt) {
		t.Fatalf("expected ErrArtifactCorrupt, got %v", err)
	}
}
