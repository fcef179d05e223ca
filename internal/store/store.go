// Package store persists the append-only log of past exam attempts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/examsim/medexam/internal/model"

	_ "modernc.org/sqlite"
)

// Store is the history log. Entries are only ever appended and read back;
// nothing edits or removes them.
type Store struct {
	db *sql.DB
}

// New opens (and if needed creates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at DATETIME NOT NULL,
		topic TEXT NOT NULL,
		score_label TEXT NOT NULL,
		questions TEXT NOT NULL,
		answers TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores one attempt and returns the refreshed full list.
// Question and answer snapshots are denormalized into JSON columns; answer
// keys are serialized as strings and re-keyed to integers on every load.
func (s *Store) Append(entry model.HistoryEntry) ([]model.HistoryEntry, error) {
	questions, err := json.Marshal(entry.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(model.StringAnswerKeys(entry.Answers))
	if err != nil {
		return nil, fmt.Errorf("marshal answers: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO attempts (taken_at, topic, score_label, questions, answers) VALUES (?, ?, ?, ?, ?)`,
		entry.TakenAt, entry.Topic, entry.ScoreLabel, string(questions), string(answers),
	)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}
	return s.LoadAll(), nil
}

// LoadAll returns all attempts, newest first. Read failures degrade to an
// empty list and corrupt rows are skipped with a warning: history is a
// convenience feature, never a reason to block an exam.
func (s *Store) LoadAll() []model.HistoryEntry {
	rows, err := s.db.Query(
		`SELECT id, taken_at, topic, score_label, questions, answers FROM attempts ORDER BY id DESC`,
	)
	if err != nil {
		slog.Warn("history read failed", "error", err)
		return nil
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		entry, err := scanAttempt(rows)
		if err != nil {
			slog.Warn("skipping corrupt history row", "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		slog.Warn("history read incomplete", "error", err)
	}
	return entries
}

// Get returns one attempt by ID. Returns sql.ErrNoRows when absent.
func (s *Store) Get(id int64) (model.HistoryEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, taken_at, topic, score_label, questions, answers FROM attempts WHERE id = ?`, id,
	)
	return scanAttempt(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(sc scanner) (model.HistoryEntry, error) {
	var e model.HistoryEntry
	var questionsJSON, answersJSON string
	if err := sc.Scan(&e.ID, &e.TakenAt, &e.Topic, &e.ScoreLabel, &questionsJSON, &answersJSON); err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(questionsJSON), &e.Questions); err != nil {
		return e, fmt.Errorf("attempt %d questions: %w", e.ID, err)
	}
	var rawAnswers map[string]string
	if err := json.Unmarshal([]byte(answersJSON), &rawAnswers); err != nil {
		return e, fmt.Errorf("attempt %d answers: %w", e.ID, err)
	}
	e.Answers = model.NormalizeAnswerKeys(rawAnswers)
	return e, nil
}
