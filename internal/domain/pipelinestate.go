package domain

import "time"

// MaxFailedOutputBytes caps how much of a failed processor's output the
// journal will retain per spec.md's recommendation.
const MaxFailedOutputBytes = 64 * 1024

// PipelineState is the single record tracked per item across every stage.
// latest_completed_stage and next_stage always satisfy: either both sit in
// the fixed stage sequence, or next_stage is empty and the item is done.
type PipelineState struct {
	ID                     string           `json:"id"`
	RunTimestamp           time.Time        `json:"run_timestamp"`
	Speaker                string           `json:"speaker"`
	ContentType            ContentType      `json:"content_type"`
	SourceURL              string           `json:"source_url"`
	Title                  string           `json:"title,omitempty"`
	ContentDate            string           `json:"content_date,omitempty"`
	LatestCompletedStage   Stage            `json:"latest_completed_stage,omitempty"`
	NextStage              Stage            `json:"next_stage"`
	FilePaths              map[Stage]string `json:"file_paths,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
	ProcessingTimeSeconds  float64          `json:"processing_time_seconds,omitempty"`
	RetryCount             int              `json:"retry_count"`
	ErrorMessage           string           `json:"error_message,omitempty"`
	FailedOutput           string           `json:"failed_output,omitempty"`
	Invalidated            bool             `json:"invalidated,omitempty"`
}

// Done reports whether the item has passed every stage in the sequence.
func (s PipelineState) Done() bool {
	return s.NextStage == ""
}

// Clone returns a deep-enough copy for safe external use (map fields copied).
func (s PipelineState) Clone() PipelineState {
	out := s
	if s.FilePaths != nil {
		out.FilePaths = make(map[Stage]string, len(s.FilePaths))
		for k, v := range s.FilePaths {
			out.FilePaths[k] = v
		}
	}
	return out
}

// TruncateFailedOutput enforces MaxFailedOutputBytes on arbitrary captured output.
func TruncateFailedOutput(s string) string {
	if len(s) <= MaxFailedOutputBytes {
		return s
	}
	return s[:MaxFailedOutputBytes]
}
