package domain

import "errors"

// Sentinel errors forming the stage-processor error taxonomy. The Runtime
// inspects these with errors.Is/errors.As to decide whether a failure is
// per-item (journal marks FAILED, pipeline continues) or fatal (RunStage
// aborts the whole invocation).
var (
	// ErrProcessorFailed is the generic processor-failure category. The
	// Runtime records processor errors as returned; it does not wrap them
	// in this sentinel.
	ErrProcessorFailed = errors.New("processor failed")

	// ErrTimeout is surfaced when a processor invocation exceeds its
	// per-item context deadline; its text is the recorded error_message.
	ErrTimeout = errors.New("timeout")

	// ErrValidationFailed marks a StageResult whose artifact failed schema
	// validation (e.g. malformed Subject bounds, duplicate entity names).
	ErrValidationFailed = errors.New("validation failed")

	// ErrArtifactMissing is returned by the Artifact Store when a requested
	// (environment, speaker, stage, content_type, item_id) key has no file.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrArtifactCorrupt is returned when a stored artifact file exists but
	// does not parse as JSON or does not match the expected schema.
	ErrArtifactCorrupt = errors.New("artifact corrupt")

	// ErrJournalIO is fatal: it means the append-only journal file itself
	// could not be read or written, so RunStage must abort rather than mark
	// individual items failed (the journal's state would become unreliable).
	ErrJournalIO = errors.New("journal I/O error")

	// ErrDuplicateSourceURL is raised by Journal.Create when a non-invalidated
	// record with the same source_url already exists in the environment.
	// The Runtime treats this as an info-level skip, not a failure.
	ErrDuplicateSourceURL = errors.New("duplicate source_url")

	// ErrSpeakerUnknown marks a GRAPH-stage failure when an item's speaker
	// key is absent from the speaker registry.
	ErrSpeakerUnknown = errors.New("speaker unknown")

	// ErrMentionDuplicate marks a GRAPH-stage validation failure when a
	// CategorizeArtifact contains more than one mention for the same
	// (entity, topic) pair.
	ErrMentionDuplicate = errors.New("duplicate mention")

	// ErrItemNotFound is returned by the Journal for unknown item IDs.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemInvalidated is returned when an operation targets an item that
	// has already been excluded via invalidate.
	ErrItemInvalidated = errors.New("item invalidated")
)
