// Package discover implements the DISCOVER-stage processor: it scans a
// speaker's configured listing page for communication links published
// within a date window, grounded on the teacher's Arxiv listing scanner
// (internal/infrastructure/parser/arxiv_scanner.go) generalized from a
// single-site strategy to an arbitrary per-speaker listing page.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"discoursekg/internal/config"
	"discoursekg/internal/domain"
	"discoursekg/internal/runtime"
)

// Scanner discovers new communications for a single speaker by scanning
// their configured listing page. It satisfies runtime.DiscoverProcessor.
type Scanner struct {
	client  *http.Client
	sources map[string]config.SourceConfig
	logger  *slog.Logger
}

// NewScanner builds a Scanner. client may be nil, in which case
// http.DefaultClient is used.
func NewScanner(client *http.Client, sources []config.SourceConfig, logger *slog.Logger) *Scanner {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	bySpeaker := make(map[string]config.SourceConfig, len(sources))
	for _, s := range sources {
		bySpeaker[s.Speaker] = s
	}
	return &Scanner{client: client, sources: bySpeaker, logger: logger}
}

// Discover implements runtime.DiscoverProcessor.
func (s *Scanner) Discover(ctx context.Context, params runtime.DiscoverParams) ([]runtime.DiscoverResult, error) {
	src, ok := s.sources[params.Speaker]
	if !ok {
		return nil, fmt.Errorf("discover: no configured source for speaker %q", params.Speaker)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.ListURL, nil)
	if err != nil {
		return nil, fmt.Errorf("discover: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discover: fetch %s: %w", src.ListURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover: %s returned status %d", src.ListURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("discover: parse %s: %w", src.ListURL, err)
	}

	base, err := url.Parse(src.ListURL)
	if err != nil {
		return nil, fmt.Errorf("discover: parse base url: %w", err)
	}

	contentType := domain.ContentType(src.ContentType)
	if !domain.ValidContentType(contentType) {
		contentType = domain.ContentOther
	}

	seen := map[string]bool{}
	var results []runtime.DiscoverResult

	doc.Find("li[data-date]").Each(func(_ int, li *goquery.Selection) {
		result, publishedAt, ok := parseEntry(li, base, contentType)
		if !ok {
			return
		}
		if publishedAt.Before(params.StartDate) || publishedAt.After(params.EndDate) {
			return
		}
		if seen[result.SourceURL] {
			return
		}
		seen[result.SourceURL] = true
		results = append(results, result)
	})

	s.logger.Info("discover: scan complete", "speaker", params.Speaker, "found", len(results))
	return results, nil
}

func parseEntry(li *goquery.Selection, base *url.URL, contentType domain.ContentType) (runtime.DiscoverResult, time.Time, bool) {
	dateAttr, _ := li.Attr("data-date")
	publishedAt, err := time.Parse("2006-01-02", strings.TrimSpace(dateAttr))
	if err != nil {
		return runtime.DiscoverResult{}, time.Time{}, false
	}

	link := li.Find("a").First()
	href, ok := link.Attr("href")
	if !ok {
		return runtime.DiscoverResult{}, time.Time{}, false
	}

	resolved, err := base.Parse(href)
	if err != nil {
		return runtime.DiscoverResult{}, time.Time{}, false
	}

	title := strings.TrimSpace(link.Text())
	if title == "" {
		return runtime.DiscoverResult{}, time.Time{}, false
	}

	result := runtime.DiscoverResult{
		SourceURL:   resolved.String(),
		Title:       title,
		ContentType: contentType,
		ContentDate: publishedAt.Format("2006-01-02"),
		Artifact: domain.DiscoverArtifact{
			SourceURL:     resolved.String(),
			Title:         title,
			ContentType:   contentType,
			ContentDate:   publishedAt.Format("2006-01-02"),
			DiscoveredVia: base.String(),
		},
	}
	return result, publishedAt, true
}
