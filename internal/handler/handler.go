// Package handler exposes the exam session over a JSON HTTP API. It is a
// thin adapter: all exam semantics live in the session package.
package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/examsim/medexam/internal/i18n"
	"github.com/examsim/medexam/internal/pdftext"
	"github.com/examsim/medexam/internal/report"
	"github.com/examsim/medexam/internal/session"
	"github.com/examsim/medexam/internal/store"
)

// Config holds runtime parameters set via CLI flags.
type Config struct {
	DefaultDifficulty string
	DefaultCount      int
	MaxUploadBytes    int64
}

// Handler holds shared dependencies for HTTP handlers. The session is a
// single-user state machine, so a mutex serializes all access to it.
type Handler struct {
	mu      sync.Mutex
	sess    *session.Session
	history *store.Store
	config  Config
	now     func() time.Time
}

// New creates a new Handler.
func New(sess *session.Session, history *store.Store, cfg Config) *Handler {
	if cfg.DefaultDifficulty == "" {
		cfg.DefaultDifficulty = "Hard"
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &Handler{sess: sess, history: history, config: cfg, now: time.Now}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/state", h.handleState)
	r.Post("/api/exam/start", h.handleStart)
	r.Post("/api/exam/answer", h.handleAnswer)
	r.Post("/api/exam/clear", h.handleClear)
	r.Post("/api/exam/mark", h.handleMark)
	r.Post("/api/exam/goto", h.handleNavigate)
	r.Post("/api/exam/submit", h.handleSubmit)
	r.Post("/api/exam/restart", h.handleRestart)
	r.Get("/api/report", h.handleReport)
	r.Get("/api/history", h.handleHistory)
	r.Post("/api/history/{entryID}/load", h.handleHistoryLoad)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeState(w, r)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var contextText string
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err == nil {
		file, header, err := r.FormFile("document")
		if err == nil {
			defer file.Close()
			text, err := pdftext.Extract(file, header.Size)
			if err != nil {
				slog.Warn("document extraction failed", "file", header.Filename, "error", err)
				h.writeError(w, r, http.StatusBadRequest, "ErrGenerationFailed")
				return
			}
			contextText = text
		}
	} else if err := r.ParseForm(); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "ErrGenerationFailed")
		return
	}

	topic := r.FormValue("topic")
	count, err := strconv.Atoi(r.FormValue("count"))
	if err != nil || count <= 0 {
		count = h.config.DefaultCount
	}
	difficulty := r.FormValue("difficulty")
	if difficulty == "" {
		difficulty = h.config.DefaultDifficulty
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.sess.Start(r.Context(), topic, count, difficulty, contextText); err != nil {
		if errors.Is(err, session.ErrAlreadyStarted) {
			h.writeError(w, r, http.StatusConflict, "ErrExamActive")
			return
		}
		slog.Error("exam generation failed", "topic", topic, "error", err)
		h.writeError(w, r, http.StatusBadGateway, "ErrGenerationFailed")
		return
	}
	h.writeState(w, r)
}

// actionRequest is the body of index-addressed exam actions.
type actionRequest struct {
	Index int    `json:"index"`
	Key   string `json:"key,omitempty"`
}

func decodeAction(r *http.Request) (actionRequest, bool) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	return req, true
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAction(r)
	if !ok {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.SelectAnswer(req.Index, req.Key)
	h.writeState(w, r)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAction(r)
	if !ok {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.ClearAnswer(req.Index)
	h.writeState(w, r)
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAction(r)
	if !ok {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.ToggleMark(req.Index)
	h.writeState(w, r)
}

func (h *Handler) handleNavigate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAction(r)
	if !ok {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.Navigate(req.Index)
	h.writeState(w, r)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sess.Submit()
	h.writeState(w, r)
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.sess.Restart(); err != nil {
		h.writeError(w, r, http.StatusConflict, "ErrExamActive")
		return
	}
	h.writeState(w, r)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	result, ok := h.sess.Snapshot()
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "ErrNoExam")
		return
	}
	text := report.Format(r.Context(), h.sess.Topic(), result, h.sess.Questions(), h.sess.Answers())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="Exam_Report_`+h.sess.Topic()+`.txt"`)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("write report", "error", err)
	}
}

// historySummary lists an attempt without its full question snapshot.
type historySummary struct {
	ID            int64     `json:"id"`
	TakenAt       time.Time `json:"timestamp"`
	Topic         string    `json:"topic"`
	ScoreLabel    string    `json:"scoreLabel"`
	QuestionCount int       `json:"questionCount"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := h.history.LoadAll()
	summaries := make([]historySummary, len(entries))
	for i, e := range entries {
		summaries[i] = historySummary{
			ID:            e.ID,
			TakenAt:       e.TakenAt,
			Topic:         e.Topic,
			ScoreLabel:    e.ScoreLabel,
			QuestionCount: len(e.Questions),
		}
	}
	h.writeJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleHistoryLoad(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		h.writeError(w, r, http.StatusNotFound, "ErrHistoryNotFound")
		return
	}
	entry, err := h.history.Get(id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("history load failed", "id", id, "error", err)
		}
		h.writeError(w, r, http.StatusNotFound, "ErrHistoryNotFound")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.sess.LoadFromHistory(entry); err != nil {
		h.writeError(w, r, http.StatusConflict, "ErrExamActive")
		return
	}
	h.writeState(w, r)
}

func (h *Handler) writeState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.sess.State(h.now()))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	h.writeJSON(w, status, map[string]string{"error": i18n.T(r.Context(), msgID)})
}
