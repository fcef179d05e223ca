// Package session implements the exam session state machine: the lifecycle
// from content generation through timed test-taking to a scored, persisted,
// replayable review.
//
// The phase graph is Setup -> Active -> Submitted, with a reset edge from
// Submitted back to a fresh Setup. There is no edge from Active back to
// Setup: an active exam resolves through submit or timeout, or not at all.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/examsim/medexam/internal/model"
	"github.com/examsim/medexam/internal/score"
)

// Generator produces raw exam content for a topic. Returned records are
// untrusted and are validated before entering the session.
type Generator interface {
	Generate(ctx context.Context, req GenRequest) ([]model.QuestionRecord, error)
}

// GenRequest carries the content-generation parameters.
type GenRequest struct {
	Topic      string
	Count      int
	Difficulty string
	Context    string // optional reference text, already truncated
}

// History is the append-only attempt log the session persists to. Listing
// and replaying attempts is the caller's concern.
type History interface {
	Append(entry model.HistoryEntry) ([]model.HistoryEntry, error)
}

var (
	// ErrExamInProgress is returned when an operation requires leaving the
	// Active phase by a path other than submit or timeout.
	ErrExamInProgress = errors.New("exam in progress")
	// ErrAlreadyStarted is returned by Start outside the Setup phase.
	ErrAlreadyStarted = errors.New("exam already started")
	// ErrNoQuestions is returned when generation yields no valid records.
	ErrNoQuestions = errors.New("generator returned no usable questions")
)

// DefaultAllotment maps requested question count to total exam duration.
func DefaultAllotment() map[int]time.Duration {
	return map[int]time.Duration{
		20: 25 * time.Minute,
		40: 45 * time.Minute,
		60: 70 * time.Minute,
	}
}

// Config holds session parameters fixed at construction.
type Config struct {
	// Allotment maps question count to exam duration. Counts not in the
	// map fall back to FallbackPerQuestion each.
	Allotment           map[int]time.Duration
	FallbackPerQuestion time.Duration
	// MaxContextRunes bounds the reference text passed to the generator.
	MaxContextRunes int
	// Now is the clock; tests inject a fake.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Allotment == nil {
		c.Allotment = DefaultAllotment()
	}
	if c.FallbackPerQuestion <= 0 {
		c.FallbackPerQuestion = 75 * time.Second
	}
	if c.MaxContextRunes <= 0 {
		c.MaxContextRunes = 12000
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Session is the exam session state machine. It is owned by a single caller
// and is not safe for concurrent use; callers serialize access.
type Session struct {
	gen     Generator
	history History
	cfg     Config

	phase     model.Phase
	topic     string
	questions []model.QuestionRecord
	answers   map[int]string
	marked    map[int]bool
	cursor    int
	deadline  time.Time

	snapshot  *score.Result
	persisted bool
}

// New returns a fresh session in the Setup phase.
func New(gen Generator, history History, cfg Config) *Session {
	s := &Session{gen: gen, history: history, cfg: cfg.withDefaults()}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.phase = model.PhaseSetup
	s.topic = ""
	s.questions = nil
	s.answers = make(map[int]string)
	s.marked = make(map[int]bool)
	s.cursor = 0
	s.deadline = time.Time{}
	s.snapshot = nil
	s.persisted = false
}

// Start generates exam content and, on success, transitions to Active.
// Invalid records are dropped; if none survive, the session stays in Setup
// and the caller sees an error it can retry. The time allotment is keyed by
// the requested count and fixed here, never recalculated.
func (s *Session) Start(ctx context.Context, topic string, count int, difficulty, contextText string) error {
	if s.phase != model.PhaseSetup {
		return ErrAlreadyStarted
	}
	if topic == "" {
		topic = "General"
	}

	raw, err := s.gen.Generate(ctx, GenRequest{
		Topic:      topic,
		Count:      count,
		Difficulty: difficulty,
		Context:    truncateRunes(contextText, s.cfg.MaxContextRunes),
	})
	if err != nil {
		return fmt.Errorf("generate exam: %w", err)
	}

	var questions []model.QuestionRecord
	for i, q := range raw {
		if err := q.Validate(); err != nil {
			slog.Warn("dropping invalid generated question", "index", i, "error", err)
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	if len(questions) < count {
		slog.Info("proceeding with fewer questions than requested",
			"requested", count, "got", len(questions))
	}

	s.topic = topic
	s.questions = questions
	s.answers = make(map[int]string)
	s.marked = make(map[int]bool)
	s.cursor = 0
	s.deadline = s.cfg.Now().Add(s.allotment(count))
	s.phase = model.PhaseActive
	slog.Info("exam started", "topic", topic, "questions", len(questions), "deadline", s.deadline)
	return nil
}

func (s *Session) allotment(count int) time.Duration {
	if d, ok := s.cfg.Allotment[count]; ok {
		return d
	}
	return time.Duration(count) * s.cfg.FallbackPerQuestion
}

// Tick enforces the deadline: at or past it, an Active session is force-
// submitted. It reports whether the session is Submitted afterwards. Every
// other operation runs this check first, so deadline enforcement always
// wins over a mutation arriving in the same action cycle.
func (s *Session) Tick(now time.Time) bool {
	if s.phase == model.PhaseActive && !now.Before(s.deadline) {
		s.finalize()
	}
	return s.phase == model.PhaseSubmitted
}

// SelectAnswer records the chosen option key for a question. Empty keys and
// out-of-range indices are no-ops, as is any call outside the Active phase.
func (s *Session) SelectAnswer(idx int, key string) {
	s.Tick(s.cfg.Now())
	if s.phase != model.PhaseActive || key == "" || idx < 0 || idx >= len(s.questions) {
		return
	}
	s.answers[idx] = key
}

// ClearAnswer removes the stored answer for a question, if any.
func (s *Session) ClearAnswer(idx int) {
	s.Tick(s.cfg.Now())
	if s.phase != model.PhaseActive {
		return
	}
	delete(s.answers, idx)
}

// ToggleMark flips the review-later flag for a question. Marks are
// independent of answers.
func (s *Session) ToggleMark(idx int) {
	s.Tick(s.cfg.Now())
	if s.phase != model.PhaseActive || idx < 0 || idx >= len(s.questions) {
		return
	}
	if s.marked[idx] {
		delete(s.marked, idx)
	} else {
		s.marked[idx] = true
	}
}

// Navigate moves the cursor. Out-of-range targets leave it unchanged.
// Allowed while Active and during Submitted review.
func (s *Session) Navigate(idx int) {
	s.Tick(s.cfg.Now())
	if s.phase == model.PhaseSetup {
		return
	}
	if idx < 0 || idx >= len(s.questions) {
		return
	}
	s.cursor = idx
}

// Submit transitions an Active session to Submitted regardless of the
// deadline. Calling it again is a no-op.
func (s *Session) Submit() {
	if s.phase != model.PhaseActive {
		return
	}
	s.finalize()
}

// finalize computes the score snapshot exactly once and appends one history
// entry. A storage failure is logged and swallowed: scoring and review must
// succeed even when the append is lost.
func (s *Session) finalize() {
	if s.phase != model.PhaseActive {
		return
	}
	s.phase = model.PhaseSubmitted
	r := score.Compute(s.questions, s.answers)
	s.snapshot = &r

	if s.persisted {
		return
	}
	s.persisted = true

	if s.history == nil {
		return
	}
	entry := model.HistoryEntry{
		TakenAt:    s.cfg.Now(),
		Topic:      s.topic,
		ScoreLabel: r.Label(len(s.questions)),
		Questions:  s.questions,
		Answers:    copyAnswers(s.answers),
	}
	if _, err := s.history.Append(entry); err != nil {
		slog.Warn("history append failed", "topic", s.topic, "error", err)
	}
	slog.Info("exam submitted", "topic", s.topic, "score", entry.ScoreLabel)
}

// Restart discards a finished session and returns to a fresh Setup. An
// Active exam cannot be abandoned this way; it must resolve first.
func (s *Session) Restart() error {
	s.Tick(s.cfg.Now())
	if s.phase == model.PhaseActive {
		return ErrExamInProgress
	}
	s.reset()
	return nil
}

// LoadFromHistory enters Submitted review directly from a past attempt,
// bypassing Active. No score is recomputed into history and nothing is
// appended, so re-viewing an attempt never duplicates it. Refused while an
// exam is Active.
func (s *Session) LoadFromHistory(entry model.HistoryEntry) error {
	s.Tick(s.cfg.Now())
	if s.phase == model.PhaseActive {
		return ErrExamInProgress
	}
	s.reset()
	s.phase = model.PhaseSubmitted
	s.topic = entry.Topic
	s.questions = entry.Questions
	s.answers = copyAnswers(entry.Answers)
	r := score.Compute(s.questions, s.answers)
	s.snapshot = &r
	s.persisted = true
	return nil
}

// Phase returns the current phase after enforcing the deadline.
func (s *Session) Phase(now time.Time) model.Phase {
	s.Tick(now)
	return s.phase
}

// Topic returns the session topic.
func (s *Session) Topic() string { return s.topic }

// Questions returns the fixed question sequence.
func (s *Session) Questions() []model.QuestionRecord { return s.questions }

// Answers returns a copy of the answer map.
func (s *Session) Answers() map[int]string { return copyAnswers(s.answers) }

// Snapshot returns the cached score, if the session has been submitted.
func (s *Session) Snapshot() (score.Result, bool) {
	if s.snapshot == nil {
		return score.Result{}, false
	}
	return *s.snapshot, true
}

// Remaining returns the time left on the clock, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.phase != model.PhaseActive {
		return 0
	}
	if d := s.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

func copyAnswers(in map[int]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
