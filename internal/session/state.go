package session

import (
	"time"

	"github.com/examsim/medexam/internal/model"
	"github.com/examsim/medexam/internal/score"
)

// PaletteItem is the per-question status used by the question grid.
type PaletteItem struct {
	Index    int   `json:"index"`
	Answered bool  `json:"answered"`
	Marked   bool  `json:"marked"`
	Correct  *bool `json:"correct,omitempty"` // set only after submission, nil when unanswered
}

// QuestionView is the current question as the presentation layer sees it.
// Correct key and explanation are withheld until the session is submitted.
type QuestionView struct {
	Index       int              `json:"index"`
	Question    string           `json:"question"`
	Options     model.OptionList `json:"options"`
	Answer      string           `json:"answer,omitempty"`
	Marked      bool             `json:"marked"`
	Correct     string           `json:"correct,omitempty"`
	Explanation string           `json:"explanation,omitempty"`
	ExtraEdge   string           `json:"extraEdge,omitempty"`
}

// State is a full snapshot for rendering. Building it runs the deadline
// check, so a state read alone is enough to resolve a timed-out exam.
type State struct {
	Phase            model.Phase   `json:"phase"`
	Topic            string        `json:"topic,omitempty"`
	QuestionCount    int           `json:"questionCount"`
	Cursor           int           `json:"cursor"`
	RemainingSeconds int           `json:"remainingSeconds"`
	Palette          []PaletteItem `json:"palette,omitempty"`
	Current          *QuestionView `json:"current,omitempty"`
	Score            *score.Result `json:"score,omitempty"`
	ScoreLabel       string        `json:"scoreLabel,omitempty"`
}

// State builds the presentation snapshot for the given instant.
func (s *Session) State(now time.Time) State {
	s.Tick(now)

	st := State{
		Phase:         s.phase,
		Topic:         s.topic,
		QuestionCount: len(s.questions),
		Cursor:        s.cursor,
	}
	if s.phase == model.PhaseSetup {
		return st
	}

	st.RemainingSeconds = int(s.Remaining(now) / time.Second)
	submitted := s.phase == model.PhaseSubmitted

	st.Palette = make([]PaletteItem, len(s.questions))
	for i, q := range s.questions {
		item := PaletteItem{Index: i, Marked: s.marked[i]}
		if ans, ok := s.answers[i]; ok {
			item.Answered = true
			if submitted {
				correct := ans == q.Correct
				item.Correct = &correct
			}
		}
		st.Palette[i] = item
	}

	if s.cursor >= 0 && s.cursor < len(s.questions) {
		q := s.questions[s.cursor]
		view := &QuestionView{
			Index:    s.cursor,
			Question: q.Question,
			Options:  q.Options,
			Answer:   s.answers[s.cursor],
			Marked:   s.marked[s.cursor],
		}
		if submitted {
			view.Correct = q.Correct
			view.Explanation = q.ExplanationText()
			if q.HasExtraEdge() {
				view.ExtraEdge = q.ExtraEdge
			}
		}
		st.Current = view
	}

	if submitted && s.snapshot != nil {
		st.Score = s.snapshot
		st.ScoreLabel = s.snapshot.Label(len(s.questions))
	}
	return st
}
