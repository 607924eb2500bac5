// Package scrape implements the SCRAPE-stage processor: it fetches an
// item's source_url and extracts the main textual content, grounded on
// the pack's HTML-to-text pipeline (C360Studio-semspec's
// processor/web-ingester/converter.go), swapping its manual golang.org/x/net
// traversal for go-shiori/go-readability's main-content extraction feeding
// into the same html-to-markdown conversion for a clean, markdown-flavored
// full_text artifact.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/go-shiori/go-readability"

	"discoursekg/internal/domain"
	"discoursekg/internal/processor"
)

// Extractor implements processor.Processor for the SCRAPE stage.
type Extractor struct {
	client    *http.Client
	converter *md.Converter
}

// New builds an Extractor. client may be nil, in which case
// http.DefaultClient is used.
func New(client *http.Client) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &Extractor{client: client, converter: conv}
}

func (e *Extractor) Stage() domain.Stage            { return domain.StageScrape }
func (e *Extractor) RequiredStages() []domain.Stage { return nil }

// Process fetches state.SourceURL and extracts its main content.
func (e *Extractor) Process(ctx context.Context, state domain.PipelineState, _ map[domain.Stage]json.RawMessage) (processor.StageResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, state.SourceURL, nil)
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("scrape: build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("scrape: fetch %s: %w", state.SourceURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return processor.StageResult{}, fmt.Errorf("scrape: %s returned status %d", state.SourceURL, resp.StatusCode)
	}

	parsedURL, err := url.Parse(state.SourceURL)
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("scrape: parse source_url: %w", err)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("scrape: extract main content: %w", err)
	}

	markdown, err := e.converter.ConvertString(article.Content)
	if err != nil {
		return processor.StageResult{}, fmt.Errorf("scrape: convert to markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = state.Title
	}

	artifact := domain.ScrapeArtifact{
		FullText:  markdown,
		WordCount: len(strings.Fields(markdown)),
		Title:     title,
		FetchedAt: time.Now().UTC().Format(time.RFC3339),
	}

	return processor.StageResult{
		Artifact: artifact,
		Metadata: processor.StageMetadata{Title: title},
	}, nil
}
