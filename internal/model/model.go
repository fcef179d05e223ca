package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Phase represents the lifecycle stage of an exam session.
type Phase string

const (
	// PhaseSetup is the initial stage: topic and options are being chosen.
	PhaseSetup Phase = "setup"
	// PhaseActive is the timed test-taking stage.
	PhaseActive Phase = "active"
	// PhaseSubmitted is the read-only review stage after scoring.
	PhaseSubmitted Phase = "submitted"
)

// ExplanationPlaceholder is shown when the generator supplied no explanation.
const ExplanationPlaceholder = "No explanation provided."

// QuestionRecord is the atomic unit of exam content. Immutable once generated.
type QuestionRecord struct {
	Question    string     `json:"question"`
	Options     OptionList `json:"options"`
	Correct     string     `json:"correct"`
	Explanation string     `json:"explanation,omitempty"`
	ExtraEdge   string     `json:"extra_edge,omitempty"`
}

// Validate checks the record against the boundary contract: a question text,
// at least two options, and a correct key that is a member of the option set.
// Generated records must pass Validate before entering a session.
func (q QuestionRecord) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("need at least 2 options, got %d", len(q.Options))
	}
	if q.Correct == "" {
		return fmt.Errorf("correct key is empty")
	}
	if !q.Options.Has(q.Correct) {
		return fmt.Errorf("correct key %q not among options %v", q.Correct, q.Options.Keys())
	}
	return nil
}

// ExplanationText returns the explanation or a placeholder when absent.
func (q QuestionRecord) ExplanationText() string {
	if strings.TrimSpace(q.Explanation) == "" {
		return ExplanationPlaceholder
	}
	return q.Explanation
}

// HasExtraEdge reports whether the record carries a supplementary note.
// Generators emit "N/A" when there is nothing to show.
func (q QuestionRecord) HasExtraEdge() bool {
	e := strings.TrimSpace(q.ExtraEdge)
	return e != "" && !strings.EqualFold(e, "N/A")
}

// HistoryEntry is one persisted exam attempt. Entries are immutable once
// appended: the store only appends and reads, never edits.
type HistoryEntry struct {
	ID         int64            `json:"id"`
	TakenAt    time.Time        `json:"timestamp"`
	Topic      string           `json:"topic"`
	ScoreLabel string           `json:"scoreLabel"`
	Questions  []QuestionRecord `json:"questions"`
	Answers    map[int]string   `json:"answers"`
}

// NormalizeAnswerKeys converts a deserialized answer map back to integer
// indices. JSON objects carry string keys, so every load path must pass
// through here before an answer map is reused against a question sequence.
// Unparsable keys and empty values are dropped.
func NormalizeAnswerKeys(raw map[string]string) map[int]string {
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || v == "" {
			continue
		}
		out[idx] = v
	}
	return out
}

// StringAnswerKeys is the inverse of NormalizeAnswerKeys, used when
// serializing an answer map.
func StringAnswerKeys(answers map[int]string) map[string]string {
	out := make(map[string]string, len(answers))
	for idx, key := range answers {
		out[strconv.Itoa(idx)] = key
	}
	return out
}
