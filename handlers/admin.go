// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/middleware"
	"github.com/danielhkuo/pollbox/models"
)

// AdminHandler serves the staff-only question management surface.
// Routes are wrapped in middleware.RequireStaff by the router.
type AdminHandler struct {
	store  db.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewAdminHandler(store db.Store, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{store: store, logger: logger, now: time.Now}
}

// ListQuestions handles GET /admin/polls/question/
//
// Query parameters: pub_from, pub_to, end_from, end_to (RFC3339),
// q (search on question_text), o (ordering, "-" prefix for descending;
// derived columns sort by their stored field).
func (h *AdminHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	query, err := parseAdminQuery(r.URL.Query())
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	questions, err := h.store.ListQuestions(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to list questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := h.now()
	rows := make([]models.AdminQuestionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, models.AdminQuestionRow{Question: q, Columns: q.Columns(now)})
	}

	middleware.JSONResponse(w, http.StatusOK, models.AdminQuestionList{
		Count:   len(rows),
		Results: rows,
	})
}

// CreateQuestion handles POST /admin/polls/question/
func (h *AdminHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in models.QuestionInput
	if err := middleware.ParseJSONBody(r, &in); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateQuestionInput(&in, true); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	q := models.Question{
		QuestionText: in.QuestionText,
		PubDate:      in.PubDate,
		EndDate:      in.EndDate,
	}
	if err := h.store.SaveQuestion(r.Context(), &q, in.Choices); err != nil {
		h.logger.Error("failed to create question", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.logger.Info("question created", "question_id", q.ID, "by", currentUsername(r))
	h.writeQuestion(w, r, http.StatusCreated, q)
}

// GetQuestion handles GET /admin/polls/question/{id}/
func (h *AdminHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadQuestion(w, r)
	if !ok {
		return
	}
	h.writeQuestion(w, r, http.StatusOK, q)
}

// UpdateQuestion handles PUT /admin/polls/question/{id}/
// Inline choices: an id updates, an id with delete removes, no id adds.
// The question and all choice edits are saved together or not at all.
func (h *AdminHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadQuestion(w, r)
	if !ok {
		return
	}

	var in models.QuestionInput
	if err := middleware.ParseJSONBody(r, &in); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := validateQuestionInput(&in, false); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	q.QuestionText = in.QuestionText
	q.PubDate = in.PubDate
	q.EndDate = in.EndDate
	err := h.store.SaveQuestion(r.Context(), &q, in.Choices)
	if errors.Is(err, db.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "choices must belong to this question")
		return
	}
	if err != nil {
		h.logger.Error("failed to update question", "question_id", q.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.logger.Info("question updated", "question_id", q.ID, "by", currentUsername(r))
	h.writeQuestion(w, r, http.StatusOK, q)
}

// DeleteQuestion handles DELETE /admin/polls/question/{id}/
func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}

	err := h.store.DeleteQuestion(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete question", "question_id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.logger.Info("question deleted", "question_id", id, "by", currentUsername(r))
	w.WriteHeader(http.StatusNoContent)
}

// ResetVotes handles POST /admin/polls/question/{id}/reset-votes/
func (h *AdminHandler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadQuestion(w, r)
	if !ok {
		return
	}

	err := h.store.ResetVotes(r.Context(), q.ID)
	if errors.Is(err, db.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to reset votes", "question_id", q.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.logger.Info("votes reset", "question_id", q.ID, "by", currentUsername(r))
	h.writeQuestion(w, r, http.StatusOK, q)
}

func (h *AdminHandler) loadQuestion(w http.ResponseWriter, r *http.Request) (models.Question, bool) {
	id, ok := pathID(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return models.Question{}, false
	}

	q, err := h.store.GetQuestion(r.Context(), id, nil)
	if errors.Is(err, db.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return models.Question{}, false
	}
	if err != nil {
		h.logger.Error("failed to load question", "question_id", id, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Question{}, false
	}
	return q, true
}

func (h *AdminHandler) writeQuestion(w http.ResponseWriter, r *http.Request, status int, q models.Question) {
	choices, err := h.store.ListChoices(r.Context(), q.ID)
	if err != nil {
		h.logger.Error("failed to list choices", "question_id", q.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, status, models.AdminQuestionDetail{
		Question:   q,
		Columns:    q.Columns(h.now()),
		Choices:    choices,
		TotalVotes: models.TotalVotes(choices),
	})
}

// validateQuestionInput trims texts in place and returns a message for
// the first problem found, or "".
func validateQuestionInput(in *models.QuestionInput, creating bool) string {
	in.QuestionText = strings.TrimSpace(in.QuestionText)
	switch {
	case in.QuestionText == "":
		return "question_text is required"
	case utf8.RuneCountInString(in.QuestionText) > models.MaxQuestionTextLen:
		return fmt.Sprintf("question_text must be at most %d characters", models.MaxQuestionTextLen)
	case in.PubDate.IsZero():
		return "pub_date is required"
	case in.EndDate.IsZero():
		return "end_date is required"
	case in.EndDate.Before(in.PubDate):
		return "end_date must not be before pub_date"
	}

	for i := range in.Choices {
		ci := &in.Choices[i]
		if creating && ci.ID != 0 {
			return "choices of a new question cannot have an id"
		}
		if ci.Delete {
			continue
		}
		ci.ChoiceText = strings.TrimSpace(ci.ChoiceText)
		if ci.ChoiceText == "" {
			return "choice_text is required"
		}
		if utf8.RuneCountInString(ci.ChoiceText) > models.MaxChoiceTextLen {
			return fmt.Sprintf("choice_text must be at most %d characters", models.MaxChoiceTextLen)
		}
	}
	return ""
}

// parseAdminQuery maps list filters onto a QuestionQuery
func parseAdminQuery(v url.Values) (db.QuestionQuery, error) {
	query := db.QuestionQuery{Search: v.Get("q")}

	for _, f := range []struct {
		name string
		dst  **time.Time
	}{
		{"pub_from", &query.PubFrom},
		{"pub_to", &query.PubTo},
		{"end_from", &query.EndFrom},
		{"end_to", &query.EndTo},
	} {
		raw := v.Get(f.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return db.QuestionQuery{}, fmt.Errorf("%s must be an RFC3339 timestamp", f.name)
		}
		*f.dst = &t
	}

	if o := v.Get("o"); o != "" {
		order, ok := resolveOrder(o)
		if !ok {
			return db.QuestionQuery{}, fmt.Errorf("cannot order by %q", o)
		}
		query.OrderBy = order
	}
	return query, nil
}

// resolveOrder accepts a stored field or a derived column name, which
// sorts by the field its descriptor names.
func resolveOrder(o string) (db.QuestionOrder, bool) {
	desc := strings.HasPrefix(o, "-")
	name := strings.TrimPrefix(o, "-")
	if p, ok := models.LookupPredicate(name); ok {
		name = p.OrderField
	}
	if desc {
		name = "-" + name
	}
	return db.ParseQuestionOrder(name)
}
