package domain

import "fmt"

// Stage identifies a step in the fixed pipeline sequence.
type Stage string

const (
	StageDiscover   Stage = "DISCOVER"
	StageScrape     Stage = "SCRAPE"
	StageSummarize  Stage = "SUMMARIZE"
	StageCategorize Stage = "CATEGORIZE"
	StageGraph      Stage = "GRAPH"
)

// stageOrder is the fixed DISCOVER -> SCRAPE -> SUMMARIZE -> CATEGORIZE -> GRAPH -> done sequence.
var stageOrder = []Stage{StageDiscover, StageScrape, StageSummarize, StageCategorize, StageGraph}

// ParseStage validates a stage name against the fixed sequence.
func ParseStage(s string) (Stage, error) {
	for _, st := range stageOrder {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

// NextStage returns the stage that follows s: the first stage (DISCOVER) if
// s is empty, or "" if s is terminal or unknown.
func NextStage(s Stage) Stage {
	if s == "" {
		return stageOrder[0]
	}
	for i, st := range stageOrder {
		if st == s {
			if i+1 < len(stageOrder) {
				return stageOrder[i+1]
			}
			return ""
		}
	}
	return ""
}

// PriorStages returns every stage preceding s in the fixed sequence.
func PriorStages(s Stage) []Stage {
	var out []Stage
	for _, st := range stageOrder {
		if st == s {
			break
		}
		out = append(out, st)
	}
	return out
}

// StageStatus is the per-attempt status recorded against a PipelineState.
type StageStatus string

const (
	StatusPending     StageStatus = "PENDING"
	StatusInProgress  StageStatus = "IN_PROGRESS"
	StatusCompleted   StageStatus = "COMPLETED"
	StatusFailed      StageStatus = "FAILED"
	StatusInvalidated StageStatus = "INVALIDATED"
)

// ContentType classifies the communication captured by an item.
type ContentType string

const (
	ContentSpeech    ContentType = "speech"
	ContentInterview ContentType = "interview"
	ContentDebate    ContentType = "debate"
	ContentOther     ContentType = "other"
)

// ValidContentType reports whether ct is one of the closed set of content types.
func ValidContentType(ct ContentType) bool {
	switch ct {
	case ContentSpeech, ContentInterview, ContentDebate, ContentOther:
		return true
	default:
		return false
	}
}
