// Package score computes exam results under the fixed +4/-1 marking rule.
package score

import (
	"fmt"

	"github.com/examsim/medexam/internal/model"
)

// Marking weights. No partial credit, no floor: the raw score may be negative.
const (
	PointsPerCorrect = 4
	PenaltyPerWrong  = 1
)

// Result is the breakdown for one submitted exam.
type Result struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
	Raw       int `json:"rawScore"`
}

// Compute scores an answer map against a question sequence. It is pure and
// deterministic, so callers may cache the result and recompute freely.
//
// Answer entries whose index falls outside the question sequence are ignored
// entirely: they count as neither answered nor incorrect. Such entries can
// only come from a historical answer map sized for a different exam.
func Compute(questions []model.QuestionRecord, answers map[int]string) Result {
	var r Result
	answered := 0
	for idx, key := range answers {
		if idx < 0 || idx >= len(questions) {
			continue
		}
		answered++
		if key == questions[idx].Correct {
			r.Correct++
		}
	}
	r.Incorrect = answered - r.Correct
	r.Skipped = len(questions) - answered
	r.Raw = r.Correct*PointsPerCorrect - r.Incorrect*PenaltyPerWrong
	return r
}

// MaxRaw returns the highest raw score achievable for n questions.
func MaxRaw(n int) int {
	return n * PointsPerCorrect
}

// Label renders the conventional "32/80" form against the given question count.
func (r Result) Label(questionCount int) string {
	return fmt.Sprintf("%d/%d", r.Raw, MaxRaw(questionCount))
}
