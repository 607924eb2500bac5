package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discoursekg/internal/domain"
	"discoursekg/internal/speakers"
)

// Neo4jStore implements Store against a Neo4j database via the official Go
// driver, with Cypher ported from original_source/src/graph/grapher.py's
// _create_constraints/_load_speaker_node/_load_communication_node/
// _load_entity_node/_load_mention_and_subjects/_load_subject_node.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jStore opens a driver against uri using basic auth.
func NewNeo4jStore(ctx context.Context, uri, user, password string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: connect to neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph: verify neo4j connectivity: %w", err)
	}
	return &Neo4jStore{driver: driver}, nil
}

// Close releases the underlying driver's connection pool.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
}

// EnsureConstraints creates the unique constraints the original's
// _create_constraints relies on for idempotent MERGE upserts.
func (s *Neo4jStore) EnsureConstraints(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT speaker_name_id IF NOT EXISTS FOR (s:Speaker) REQUIRE s.name_id IS UNIQUE",
		"CREATE CONSTRAINT communication_id IF NOT EXISTS FOR (c:Communication) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT entity_canonical_name IF NOT EXISTS FOR (e:Entity) REQUIRE e.canonical_name IS UNIQUE",
	}

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("graph: create constraint: %w", err)
		}
	}
	return nil
}

// UpsertSpeaker implements Store.
func (s *Neo4jStore) UpsertSpeaker(ctx context.Context, key string, sp speakers.Speaker) (bool, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MERGE (s:Speaker {name_id: $key})
			ON CREATE SET s._c = true
			WITH s, coalesce(s._c, false) AS was_created
			SET s.display_name = $display_name,
			    s.role = $role,
			    s.organization = $organization,
			    s.industry = $industry,
			    s.region = $region,
			    s.date_of_birth = $date_of_birth,
			    s.bio = $bio,
			    s.influence_score = $influence_score
			REMOVE s._c
			RETURN was_created
		`, map[string]any{
			"key":             key,
			"display_name":    sp.DisplayName,
			"role":            sp.Role,
			"organization":    sp.Organization,
			"industry":        sp.Industry,
			"region":          sp.Region,
			"date_of_birth":   sp.DateOfBirth,
			"bio":             sp.Bio,
			"influence_score": sp.InfluenceScore,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return false, nil
		}
		created, _ := record.Get("was_created")
		wasCreated, _ := created.(bool)
		return wasCreated, nil
	})
	if err != nil {
		return false, err
	}
	created, _ := result.(bool)
	return created, nil
}

// UpsertCommunication implements Store.
func (s *Neo4jStore) UpsertCommunication(ctx context.Context, speakerKey string, comm CommunicationNode) (bool, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (spk:Speaker {name_id: $speaker_key})
			MERGE (c:Communication {id: $id})
			ON CREATE SET c._c = true
			WITH spk, c, coalesce(c._c, false) AS was_created
			SET c.title = $title,
			    c.content_type = $content_type,
			    c.content_date = $content_date,
			    c.source_url = $source_url,
			    c.full_text = $full_text,
			    c.word_count = $word_count,
			    c.was_summarized = $was_summarized,
			    c.compression_ratio = $compression_ratio
			REMOVE c._c
			MERGE (spk)-[:DELIVERED]->(c)
			RETURN was_created
		`, map[string]any{
			"speaker_key":       speakerKey,
			"id":                comm.ID,
			"title":             comm.Title,
			"content_type":      string(comm.ContentType),
			"content_date":      comm.ContentDate,
			"source_url":        comm.SourceURL,
			"full_text":         comm.FullText,
			"word_count":        comm.WordCount,
			"was_summarized":    comm.WasSummarized,
			"compression_ratio": comm.CompressionRatio,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return false, nil
		}
		created, _ := record.Get("was_created")
		wasCreated, _ := created.(bool)
		return wasCreated, nil
	})
	if err != nil {
		return false, err
	}
	created, _ := result.(bool)
	return created, nil
}

// UpsertEntity implements Store, preserving first-write-wins on entity_type conflicts.
func (s *Neo4jStore) UpsertEntity(ctx context.Context, canonicalName string, entityType domain.EntityType) (bool, domain.EntityType, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MERGE (e:Entity {canonical_name: $name})
			ON CREATE SET e.entity_type = $entity_type, e.created = true
			RETURN e.entity_type AS entity_type, coalesce(e.created, false) AS was_created
		`, map[string]any{"name": canonicalName, "entity_type": string(entityType)})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		typeVal, _ := record.Get("entity_type")
		createdVal, _ := record.Get("was_created")
		existingType, _ := typeVal.(string)
		wasCreated, _ := createdVal.(bool)
		return [2]any{wasCreated, existingType}, nil
	})
	if err != nil {
		return false, "", err
	}
	pair := result.([2]any)
	wasCreated, _ := pair[0].(bool)
	existingType, _ := pair[1].(string)

	if wasCreated {
		_ = s.clearCreatedFlag(ctx, canonicalName)
	}

	return wasCreated, domain.EntityType(existingType), nil
}

func (s *Neo4jStore) clearCreatedFlag(ctx context.Context, canonicalName string) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := session.Run(ctx, "MATCH (e:Entity {canonical_name: $name}) REMOVE e.created", map[string]any{"name": canonicalName})
	return err
}

// CreateMention implements Store. aggregated_sentiment is stored as a JSON
// string property: Neo4j property values cannot be nested maps.
func (s *Neo4jStore) CreateMention(ctx context.Context, communicationID, entityName string, mention MentionNode) (string, error) {
	aggJSON, err := json.Marshal(mention.AggregatedSentiment)
	if err != nil {
		return "", fmt.Errorf("graph: marshal aggregated_sentiment: %w", err)
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:Communication {id: $comm_id})
			MATCH (e:Entity {canonical_name: $entity_name})
			CREATE (m:Mention {topic: $topic, context: $context, aggregated_sentiment: $aggregated_sentiment})
			CREATE (c)-[:HAS_MENTION]->(m)
			CREATE (m)-[:REFERS_TO]->(e)
			RETURN elementId(m) AS mention_key
		`, map[string]any{
			"comm_id":              communicationID,
			"entity_name":          entityName,
			"topic":                mention.Topic,
			"context":              mention.Context,
			"aggregated_sentiment": string(aggJSON),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		key, _ := record.Get("mention_key")
		return key, nil
	})
	if err != nil {
		return "", err
	}
	key, _ := result.(string)
	return key, nil
}

// CreateSubject implements Store.
func (s *Neo4jStore) CreateSubject(ctx context.Context, mentionKey string, subject domain.Subject) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			MATCH (m) WHERE elementId(m) = $mention_key
			CREATE (sub:Subject {subject_name: $subject_name, sentiment: $sentiment, quotes: $quotes})
			CREATE (m)-[:HAS_SUBJECT]->(sub)
		`, map[string]any{
			"mention_key":  mentionKey,
			"subject_name": subject.SubjectName,
			"sentiment":    string(subject.Sentiment),
			"quotes":       subject.Quotes,
		})
		return nil, err
	})
	return err
}
