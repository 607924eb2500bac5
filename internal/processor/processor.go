// Package processor defines the uniform stage-processor contract and a
// registry mapping stage names to implementations, mirroring the teacher's
// scanner strategy registry.
package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"discoursekg/internal/domain"
)

// StageMetadata carries the optional fields a processor may contribute back
// to the item's PipelineState on success.
type StageMetadata struct {
	Title       string
	ContentDate string
	ContentType domain.ContentType
}

// StageResult is what a Processor returns on success: the artifact to
// persist plus any metadata to fold into the item's state.
type StageResult struct {
	Artifact any
	Metadata StageMetadata
}

// Processor is the uniform contract every stage implementation satisfies.
// Processors never touch the journal or artifact store directly; the
// Runtime owns all persistence.
type Processor interface {
	Stage() domain.Stage
	RequiredStages() []domain.Stage
	Process(ctx context.Context, state domain.PipelineState, prior map[domain.Stage]json.RawMessage) (StageResult, error)
}

// Registry maps stage names to their processor implementation.
type Registry struct {
	processors map[domain.Stage]Processor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: map[domain.Stage]Processor{}}
}

// Register adds or replaces the processor for its declared stage.
func (r *Registry) Register(p Processor) {
	if r.processors == nil {
		r.processors = map[domain.Stage]Processor{}
	}
	r.processors[p.Stage()] = p
}

// Resolve returns the processor registered for stage, or an error if absent.
func (r *Registry) Resolve(stage domain.Stage) (Processor, error) {
	if p, ok := r.processors[stage]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("no processor registered for stage %s", stage)
}
