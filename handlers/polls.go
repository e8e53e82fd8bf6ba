// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/middleware"
	"github.com/danielhkuo/pollbox/models"
)

type PollHandler struct {
	store  db.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewPollHandler(store db.Store, logger *slog.Logger) *PollHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollHandler{store: store, logger: logger, now: time.Now}
}

// Index handles GET /polls/
func (h *PollHandler) Index(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	questions, err := h.store.ListQuestions(r.Context(), db.QuestionQuery{
		PublishedBy: &now,
		OrderBy:     db.OrderPubDateDesc,
	})
	if err != nil {
		h.logger.Error("failed to list questions", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	views := make([]models.QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, questionView(q, now))
	}

	middleware.JSONResponse(w, http.StatusOK, models.IndexResponse{
		User:               currentUsername(r),
		LatestQuestionList: views,
	})
}

// Detail handles GET /polls/{id}/
func (h *PollHandler) Detail(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadPublished(w, r)
	if !ok {
		return
	}
	writeDetail(w, r, h.store, h.logger, q, h.now(), "")
}

// Results handles GET /polls/{id}/results/
func (h *PollHandler) Results(w http.ResponseWriter, r *http.Request) {
	q, ok := h.loadPublished(w, r)
	if !ok {
		return
	}

	choices, err := h.store.ListChoices(r.Context(), q.ID)
	if err != nil {
		h.logger.Error("failed to list choices", "question_id", q.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		User:       currentUsername(r),
		Question:   questionView(q, h.now()),
		Choices:    choices,
		TotalVotes: models.TotalVotes(choices),
	})
}

// loadPublished resolves {id} to a published question or writes a 404
func (h *PollHandler) loadPublished(w http.ResponseWriter, r *http.Request) (models.Question, bool) {
	id, ok := pathID(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return models.Question{}, false
	}

	now := h.now()
	q, err := h.store.GetQuestion(r.Context(), id, &now)
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

// writeDetail renders the voting form for q, optionally with an error
// message. Validation failures re-present the form with status 200.
func writeDetail(w http.ResponseWriter, r *http.Request, store db.Store, logger *slog.Logger, q models.Question, now time.Time, errMsg string) {
	choices, err := store.ListChoices(r.Context(), q.ID)
	if err != nil {
		logger.Error("failed to list choices", "question_id", q.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.DetailResponse{
		User:         currentUsername(r),
		Question:     questionView(q, now),
		Choices:      choices,
		ErrorMessage: errMsg,
	})
}

func questionView(q models.Question, now time.Time) models.QuestionView {
	return models.QuestionView{
		Question:             q,
		CanVote:              q.CanVote(now),
		WasPublishedRecently: q.WasPublishedRecently(now),
		Published:            humanize.RelTime(q.PubDate, now, "ago", "from now"),
		Closes:               humanize.RelTime(q.EndDate, now, "ago", "from now"),
	}
}

// pathID parses the {id} path segment. Non-numeric ids are not found.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func currentUsername(r *http.Request) string {
	if u, ok := middleware.UserFromContext(r.Context()); ok {
		return u.Username
	}
	return ""
}
