package graph

import (
	"context"

	"discoursekg/internal/domain"
	"discoursekg/internal/speakers"
)

// CommunicationNode is the full attribute set stored on a Communication node.
type CommunicationNode struct {
	ID               string
	Title            string
	ContentType      domain.ContentType
	ContentDate      string
	SourceURL        string
	FullText         string
	WordCount        int
	WasSummarized    bool
	CompressionRatio float64
}

// MentionNode is the attribute set stored on a Mention node, keyed by
// (Communication.id, Entity.canonical_name, topic).
type MentionNode struct {
	Topic               string
	Context             string
	AggregatedSentiment map[domain.SentimentLevel]domain.SentimentBucket
}

// Store is the port the Graph Builder uses to persist nodes and edges. A
// Neo4j-backed implementation lives in neo4jstore.go; tests use an
// in-memory fake (see builder_test.go).
type Store interface {
	EnsureConstraints(ctx context.Context) error
	UpsertSpeaker(ctx context.Context, key string, sp speakers.Speaker) (created bool, err error)
	UpsertCommunication(ctx context.Context, speakerKey string, comm CommunicationNode) (created bool, err error)
	// UpsertEntity merges an Entity by canonical name. If the entity already
	// exists with a different entity_type, its original type is preserved
	// (first-write-wins) and existingType reports what it actually is, so
	// the caller can log a conflict warning.
	UpsertEntity(ctx context.Context, canonicalName string, entityType domain.EntityType) (created bool, existingType domain.EntityType, err error)
	// CreateMention creates a Mention node plus its HAS_MENTION and
	// REFERS_TO edges, returning an opaque key subjects attach to.
	CreateMention(ctx context.Context, communicationID, entityName string, mention MentionNode) (mentionKey string, err error)
	// CreateSubject creates a Subject node plus its HAS_SUBJECT edge.
	CreateSubject(ctx context.Context, mentionKey string, subject domain.Subject) error
}
