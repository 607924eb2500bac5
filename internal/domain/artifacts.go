package domain

import (
	"fmt"
	"strings"
)

// DiscoverArtifact is what the discover processor persists for a newly
// found item; its SourceURL matches the DiscoverResult.SourceURL that the
// Runtime passes to Journal.Create.
type DiscoverArtifact struct {
	SourceURL   string      `json:"source_url"`
	Title       string      `json:"title"`
	ContentType ContentType `json:"content_type"`
	ContentDate string      `json:"content_date,omitempty"`
	DiscoveredVia string    `json:"discovered_via,omitempty"`
}

// ScrapeArtifact holds the extracted full text of a communication.
type ScrapeArtifact struct {
	FullText  string `json:"full_text"`
	WordCount int    `json:"word_count"`
	Title     string `json:"title,omitempty"`
	FetchedAt string `json:"fetched_at"`
}

// SummarizeArtifact holds the compressed representation of a communication
// used as categorizer input.
type SummarizeArtifact struct {
	Summary          string  `json:"summary"`
	WasSummarized    bool    `json:"was_summarized"`
	CompressionRatio float64 `json:"compression_ratio,omitempty"`
}

// CategorizeArtifact holds every entity mention extracted for a communication.
type CategorizeArtifact struct {
	Entities []EntityMention `json:"entities"`
}

// Validate validates every entity mention individually and then enforces
// entity_name uniqueness across the whole list, case-insensitively,
// matching the original's CategorizationOutput.validate_unique_entity_names.
// EntityMention.Validate alone only catches duplicate topics within a
// single entity entry; two entries naming the same entity under different
// casing would otherwise pass individually and collapse into one MERGE'd
// Entity node in the Graph Builder.
func (a CategorizeArtifact) Validate() error {
	seen := map[string]string{}
	for _, entity := range a.Entities {
		if err := entity.Validate(); err != nil {
			return err
		}
		key := strings.ToLower(strings.TrimSpace(entity.EntityName))
		if original, ok := seen[key]; ok {
			return fmt.Errorf("entity_name %q duplicates %q (case-insensitive)", entity.EntityName, original)
		}
		seen[key] = entity.EntityName
	}
	return nil
}

// SentimentBucket is one entry of a Mention's aggregated_sentiment map:
// how many subjects fell under a sentiment level and what proportion that is.
type SentimentBucket struct {
	Count int     `json:"count"`
	Prop  float64 `json:"prop"`
}

// GraphArtifact is the Graph Builder's summary report for one communication.
type GraphArtifact struct {
	NodesCreated  int      `json:"nodes_created"`
	NodesMerged   int      `json:"nodes_merged"`
	EdgesCreated  int      `json:"edges_created"`
	MentionCount  int      `json:"mention_count"`
	SubjectCount  int      `json:"subject_count"`
	Warnings      []string `json:"warnings,omitempty"`
}
