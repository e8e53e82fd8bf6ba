// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/middleware"
	"github.com/danielhkuo/pollbox/voting"
)

type VotingHandler struct {
	store   db.Store
	service *voting.Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewVotingHandler(store db.Store, service *voting.Service, logger *slog.Logger) *VotingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VotingHandler{store: store, service: service, logger: logger, now: time.Now}
}

// voteRequest accepts the choice id as a JSON number or string
type voteRequest struct {
	Choice json.RawMessage `json:"choice"`
}

// Vote handles POST /polls/{id}/vote/
// Accepts a form field "choice" or a JSON body {"choice": "<id>"}.
func (h *VotingHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}

	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		// RequireLogin normally answers before this point
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Login required")
		return
	}

	// An unreadable JSON body is treated like a form without a choice
	choice, err := readChoice(r)
	if err != nil {
		h.logger.Debug("unreadable vote body", "question_id", id, "error", err)
	}

	res, err := h.service.Vote(r.Context(), voting.Ballot{
		User:       user,
		QuestionID: id,
		Choice:     choice,
		ClientIP:   middleware.GetClientIP(r),
	})
	if msg := voting.ValidationMessage(err); msg != "" {
		writeDetail(w, r, h.store, h.logger, res.Question, h.now(), msg)
		return
	}
	if errors.Is(err, voting.ErrQuestionNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to record vote", "question_id", id, "user_id", user.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.Redirect(w, r, fmt.Sprintf("/polls/%d/results/", res.Question.ID))
}

func readChoice(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req voteRequest
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			return "", err
		}
		return strings.Trim(string(req.Choice), `"`), nil
	}
	return r.PostFormValue("choice"), nil
}
