package discover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"discoursekg/internal/config"
	"discoursekg/internal/domain"
	"discoursekg/internal/runtime"
)

func TestScannerDiscoverFiltersByDateWindow(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<ul>
		  <li data-date="2026-01-05"><a href="/speeches/1">Fresh Speech</a></li>
		  <li data-date="2025-12-01"><a href="/speeches/2">Old Speech</a></li>
		</ul>`))
	}))
	defer server.Close()

	sources := []config.SourceConfig{
		{Speaker: "speaker-a", ListURL: server.URL + "/listing", ContentType: "speech"},
	}
	scanner := NewScanner(server.Client(), sources, nil)

	params := runtime.DiscoverParams{
		Speaker:   "speaker-a",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	results, err := scanner.Discover(context.Background(), params)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result within window, got %d", len(results))
	}
	if results[0].Title != "Fresh Speech" {
		t.Fatalf("unexpected title: %s", results[0].Title)
	}
	if results[0].ContentType != domain.ContentSpeech {
		t.Fatalf("unexpected content type: %s", results[0].ContentType)
	}
}

func TestScannerDiscoverUnknownSpeaker(t *testing.T) {
	t.Parallel()

	scanner := NewScanner(nil, nil, nil)
	_, err := scanner.Discover(context.Background(), runtime.DiscoverParams{Speaker: "nobody"})
	if err == nil {
		t.Fatalf("expected error for unconfigured speaker")
	}
}
