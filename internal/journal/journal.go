// Package journal implements the append-oriented state journal: the single
// source of truth for where every item sits in the pipeline. Storage is a
// JSONL file per environment, rewritten in full on every update (write to a
// temp file, then rename), mirroring the original's
// PipelineStateManager._write_all_states.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"discoursekg/internal/domain"
)

// Journal is the single-writer-per-environment state store. A Journal must
// not be shared across environments; callers construct one per environment.
type Journal struct {
	path string

	mu      sync.RWMutex
	byID    map[string]domain.PipelineState
	bySrc   map[string]string // source_url -> id, non-invalidated only
}

// Open loads (or creates) the journal file for the given environment under
// dataRoot, rebuilding the in-memory index from disk.
func Open(dataRoot, environment string) (*Journal, error) {
	path := filepath.Join(dataRoot, "state", fmt.Sprintf("pipeline_state_%s.jsonl", environment))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: create state dir: %w", err)
	}

	j := &Journal{
		path:  path,
		byID:  map[string]domain.PipelineState{},
		bySrc: map[string]string{},
	}

	if err := j.load(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrJournalIO, err)
	}

	return j, nil
}

func (j *Journal) load() error {
	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var st domain.PipelineState
		if err := json.Unmarshal(line, &st); err != nil {
			return fmt.Errorf("parse journal line: %w", err)
		}
		j.indexLocked(st)
	}
	return scanner.Err()
}

// indexLocked must be called with j.mu held for writing.
func (j *Journal) indexLocked(st domain.PipelineState) {
	j.byID[st.ID] = st
	if !st.Invalidated {
		j.bySrc[st.SourceURL] = st.ID
	} else {
		delete(j.bySrc, st.SourceURL)
	}
}

// writeAllLocked rewrites the entire journal file from the in-memory index,
// sorted by created_at then id for deterministic output. Must be called
// with j.mu held for writing.
func (j *Journal) writeAllLocked() error {
	states := make([]domain.PipelineState, 0, len(j.byID))
	for _, st := range j.byID {
		states = append(states, st)
	}
	sort.Slice(states, func(a, b int) bool {
		if !states[a].CreatedAt.Equal(states[b].CreatedAt) {
			return states[a].CreatedAt.Before(states[b].CreatedAt)
		}
		return states[a].ID < states[b].ID
	})

	tmp, err := os.CreateTemp(filepath.Dir(j.path), ".journal-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	w := bufio.NewWriter(tmp)
	for _, st := range states {
		b, err := json.Marshal(st)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.Write(b); err != nil {
			tmp.Close()
			return err
		}
		if _, err := w.WriteString("\n"); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, j.path)
}

// Create inserts a new item at DISCOVER completion, i.e. next_stage=SCRAPE.
// Returns domain.ErrDuplicateSourceURL if a non-invalidated record with the
// same source_url already exists.
func (j *Journal) Create(id string, speaker string, contentType domain.ContentType, sourceURL, title, contentDate string, now time.Time) (domain.PipelineState, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if existingID, ok := j.bySrc[sourceURL]; ok {
		return j.byID[existingID], domain.ErrDuplicateSourceURL
	}

	st := domain.PipelineState{
		ID:                   id,
		RunTimestamp:         now,
		Speaker:              speaker,
		ContentType:          contentType,
		SourceURL:            sourceURL,
		Title:                title,
		ContentDate:          contentDate,
		LatestCompletedStage: domain.StageDiscover,
		NextStage:            domain.NextStage(domain.StageDiscover),
		FilePaths:            map[domain.Stage]string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	j.indexLocked(st)
	if err := j.writeAllLocked(); err != nil {
		return domain.PipelineState{}, fmt.Errorf("%w: %v", domain.ErrJournalIO, err)
	}
	return st.Clone(), nil
}

// Get returns the current state for id.
func (j *Journal) Get(id string) (domain.PipelineState, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	st, ok := j.byID[id]
	if !ok {
		return domain.PipelineState{}, domain.ErrItemNotFound
	}
	return st.Clone(), nil
}

// FindBySourceURL returns the record indexed under sourceURL among
// non-invalidated records, or domain.ErrItemNotFound.
func (j *Journal) FindBySourceURL(sourceURL string) (domain.PipelineState, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	id, ok := j.bySrc[sourceURL]
	if !ok {
		return domain.PipelineState{}, domain.ErrItemNotFound
	}
	return j.byID[id].Clone(), nil
}

// ItemsReadyFor returns every non-invalidated item whose next_stage equals
// stage, ordered by created_at ascending.
func (j *Journal) ItemsReadyFor(stage domain.Stage) []domain.PipelineState {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []domain.PipelineState
	for _, st := range j.byID {
		if st.Invalidated || st.NextStage != stage {
			continue
		}
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// UpdateOnSuccess advances an item past stage: it records the artifact path,
// sets latest_completed_stage/next_stage, clears error state, and resets
// retry_count. metadata fields that are empty never overwrite a
// previously-populated title/content_date/content_type (the "update
// naturally" rule from the original pipeline_state.py).
func (j *Journal) UpdateOnSuccess(id string, stage domain.Stage, artifactPath string, title, contentDate string, contentType domain.ContentType, processingSeconds float64, now time.Time) (domain.PipelineState, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, ok := j.byID[id]
	if !ok {
		return domain.PipelineState{}, domain.ErrItemNotFound
	}
	if st.Invalidated {
		return domain.PipelineState{}, domain.ErrItemInvalidated
	}

	if st.FilePaths == nil {
		st.FilePaths = map[domain.Stage]string{}
	}
	st.FilePaths[stage] = artifactPath
	st.LatestCompletedStage = stage
	st.NextStage = domain.NextStage(stage)
	st.RetryCount = 0
	st.ErrorMessage = ""
	st.FailedOutput = ""
	st.ProcessingTimeSeconds = processingSeconds
	st.UpdatedAt = now

	if title != "" {
		st.Title = title
	}
	if contentDate != "" {
		st.ContentDate = contentDate
	}
	if contentType != "" {
		st.ContentType = contentType
	}

	j.indexLocked(st)
	if err := j.writeAllLocked(); err != nil {
		return domain.PipelineState{}, fmt.Errorf("%w: %v", domain.ErrJournalIO, err)
	}
	return st.Clone(), nil
}

// UpdateOnFailure records a failed attempt: increments retry_count, records
// the error message and (size-capped) failed output, and leaves next_stage
// unchanged so the item remains eligible for a future attempt.
func (j *Journal) UpdateOnFailure(id string, errMsg, failedOutput string, processingSeconds float64, now time.Time) (domain.PipelineState, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, ok := j.byID[id]
	if !ok {
		return domain.PipelineState{}, domain.ErrItemNotFound
	}
	if st.Invalidated {
		return domain.PipelineState{}, domain.ErrItemInvalidated
	}

	st.RetryCount++
	st.ErrorMessage = errMsg
	st.FailedOutput = domain.TruncateFailedOutput(failedOutput)
	st.ProcessingTimeSeconds = processingSeconds
	st.UpdatedAt = now

	j.indexLocked(st)
	if err := j.writeAllLocked(); err != nil {
		return domain.PipelineState{}, fmt.Errorf("%w: %v", domain.ErrJournalIO, err)
	}
	return st.Clone(), nil
}

// Invalidate excludes id from future ItemsReadyFor/FindBySourceURL results.
// It does not delete the record.
func (j *Journal) Invalidate(id string, now time.Time) (domain.PipelineState, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	st, ok := j.byID[id]
	if !ok {
		return domain.PipelineState{}, domain.ErrItemNotFound
	}

	st.Invalidated = true
	st.UpdatedAt = now

	j.indexLocked(st)
	if err := j.writeAllLocked(); err != nil {
		return domain.PipelineState{}, fmt.Errorf("%w: %v", domain.ErrJournalIO, err)
	}
	return st.Clone(), nil
}

// Snapshot returns a defensive copy of every record, for the status CLI
// command. Filtering by stage or failure is the caller's responsibility.
func (j *Journal) Snapshot() []domain.PipelineState {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]domain.PipelineState, 0, len(j.byID))
	for _, st := range j.byID {
		out = append(out, st.Clone())
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}
