package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"discoursekg/internal/domain"
)

func TestExtractorProcessExtractsMainContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Speech Title</title></head>
		<body>
		  <nav>Skip this</nav>
		  <article>
		    <h1>Speech Title</h1>
		    <p>This is the first paragraph of the speech, long enough to be considered real content by the extractor.</p>
		    <p>This is the second paragraph, also long enough to survive readability's boilerplate removal heuristics.</p>
		  </article>
		  <footer>Skip this too</footer>
		</body></html>`))
	}))
	defer server.Close()

	extractor := New(server.Client())
	state := domain.PipelineState{ID: "item-1", SourceURL: server.URL + "/speech/1"}

	result, err := extractor.Process(context.Background(), state, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	artifact, ok := result.Artifact.(domain.ScrapeArtifact)
	if !ok {
		t.Fatalf("unexpected artifact type %T", result.Artifact)
	}
	if artifact.WordCount == 0 {
		t.Fatalf("expected non-zero word count")
	}
	if !strings.Contains(artifact.FullText, "first paragraph") {
		t.Fatalf("expected extracted text to contain body content, got: %s", artifact.FullText)
	}
	if strings.Contains(artifact.FullText, "Skip this") {
		t.Fatalf("expected nav/footer boilerplate to be stripped, got: %s", artifact.FullText)
	}
}

func TestExtractorProcessNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	extractor := New(server.Client())
	state := domain.PipelineState{ID: "item-1", SourceURL: server.URL + "/missing"}

	if _, err := extractor.Process(context.Background(), state, nil); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}
