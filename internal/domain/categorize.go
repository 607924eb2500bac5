package domain

import (
	"fmt"
	"strings"
)

// EntityType is the closed set of node types an Entity mention can resolve to.
type EntityType string

const (
	EntityOrganization EntityType = "organization"
	EntityLocation      EntityType = "location"
	EntityPerson        EntityType = "person"
	EntityProgram       EntityType = "program"
	EntityProduct       EntityType = "product"
	EntityEvent         EntityType = "event"
	EntityOther         EntityType = "other"
)

func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityOrganization, EntityLocation, EntityPerson, EntityProgram, EntityProduct, EntityEvent, EntityOther:
		return true
	default:
		return false
	}
}

// SentimentLevel is the closed set of subject-level sentiment labels.
type SentimentLevel string

const (
	SentimentPositive SentimentLevel = "positive"
	SentimentNegative SentimentLevel = "negative"
	SentimentNeutral  SentimentLevel = "neutral"
	SentimentUnclear  SentimentLevel = "unclear"
)

func ValidSentiment(s SentimentLevel) bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentUnclear:
		return true
	default:
		return false
	}
}

// Subject is a single stance taken toward an entity within one topic mention.
type Subject struct {
	SubjectName string         `json:"subject_name"`
	Sentiment   SentimentLevel `json:"sentiment"`
	Quotes      []string       `json:"quotes"`
}

// Validate enforces the bounds carried over from categorize/models.py: a
// subject name of 1-3 words, a known sentiment, and 1-6 supporting quotes.
func (s Subject) Validate() error {
	name := strings.TrimSpace(s.SubjectName)
	if name == "" {
		return fmt.Errorf("subject_name is required")
	}
	words := strings.Fields(name)
	if len(words) < 1 || len(words) > 3 {
		return fmt.Errorf("subject_name %q must be 1-3 words, got %d", name, len(words))
	}
	if !ValidSentiment(s.Sentiment) {
		return fmt.Errorf("subject %q has invalid sentiment %q", name, s.Sentiment)
	}
	if len(s.Quotes) < 1 || len(s.Quotes) > 6 {
		return fmt.Errorf("subject %q must have 1-6 quotes, got %d", name, len(s.Quotes))
	}
	return nil
}

// TopicMention is one topic discussed in relation to an entity within a
// communication, with one or more Subjects carrying the sentiment detail.
type TopicMention struct {
	Topic    string    `json:"topic"`
	Context  string    `json:"context"`
	Subjects []Subject `json:"subjects"`
}

// Validate enforces the context-length bound from spec.md (10-500 chars)
// and requires at least one subject.
func (m TopicMention) Validate() error {
	if strings.TrimSpace(m.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if l := len(m.Context); l < 10 || l > 500 {
		return fmt.Errorf("topic %q context must be 10-500 chars, got %d", m.Topic, l)
	}
	if len(m.Subjects) == 0 {
		return fmt.Errorf("topic %q requires at least one subject", m.Topic)
	}
	for _, s := range m.Subjects {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("topic %q: %w", m.Topic, err)
		}
	}
	return nil
}

// EntityMention groups every TopicMention made about one entity within a
// single communication. Topics must be unique within the mention.
type EntityMention struct {
	EntityName string         `json:"entity_name"`
	EntityType EntityType     `json:"entity_type"`
	Mentions   []TopicMention `json:"mentions"`
}

// Validate enforces entity_type closure, non-empty mentions, and unique topics.
func (e EntityMention) Validate() error {
	if strings.TrimSpace(e.EntityName) == "" {
		return fmt.Errorf("entity_name is required")
	}
	if !ValidEntityType(e.EntityType) {
		return fmt.Errorf("entity %q has invalid entity_type %q", e.EntityName, e.EntityType)
	}
	if len(e.Mentions) == 0 {
		return fmt.Errorf("entity %q requires at least one mention", e.EntityName)
	}
	seen := map[string]bool{}
	for _, m := range e.Mentions {
		key := strings.ToLower(strings.TrimSpace(m.Topic))
		if seen[key] {
			return fmt.Errorf("entity %q has duplicate topic %q", e.EntityName, m.Topic)
		}
		seen[key] = true
		if err := m.Validate(); err != nil {
			return fmt.Errorf("entity %q: %w", e.EntityName, err)
		}
	}
	return nil
}
