// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/pollbox/audit"
	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/models"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrNoChoice         = errors.New("no choice selected")
	ErrVotingClosed     = errors.New("voting is closed")
)

// User-facing messages shown on the re-presented voting form.
const (
	MsgNoChoice     = "You didn't select a choice."
	MsgVotingClosed = "Voting is closed for this poll."
)

// ValidationMessage returns the form message for a validation failure,
// or "" if err should fail the request instead.
func ValidationMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoChoice):
		return MsgNoChoice
	case errors.Is(err, ErrVotingClosed):
		return MsgVotingClosed
	default:
		return ""
	}
}

// Ballot is one vote submission. Choice is the raw form value and may be
// empty or garbage.
type Ballot struct {
	User       models.User
	QuestionID int64
	Choice     string
	ClientIP   string
}

type Result struct {
	Question models.Question
	Choices  []models.Choice
	Vote     models.Vote
	Updated  bool
}

type Service struct {
	store  db.Store
	audit  *audit.Bus
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store db.Store, bus *audit.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		audit:  bus,
		logger: logger,
		now:    time.Now,
	}
}

// Vote validates a ballot, records it, and recounts the question's tallies.
// Validation failures leave the store untouched.
func (s *Service) Vote(ctx context.Context, b Ballot) (Result, error) {
	now := s.now()

	q, err := s.store.GetQuestion(ctx, b.QuestionID, &now)
	if errors.Is(err, db.ErrNotFound) {
		return Result{}, ErrQuestionNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("load question %d: %w", b.QuestionID, err)
	}

	choiceID, err := strconv.ParseInt(strings.TrimSpace(b.Choice), 10, 64)
	if err != nil || choiceID <= 0 {
		return Result{Question: q}, ErrNoChoice
	}
	if _, err := s.store.GetChoice(ctx, q.ID, choiceID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Result{Question: q}, ErrNoChoice
		}
		return Result{}, fmt.Errorf("load choice %d: %w", choiceID, err)
	}

	if !q.CanVote(now) {
		return Result{Question: q}, ErrVotingClosed
	}

	cast, err := s.store.CastVote(ctx, b.User.ID, q.ID, choiceID, now)
	if errors.Is(err, db.ErrNotFound) {
		// Choice deleted between the check and the transaction
		return Result{Question: q}, ErrNoChoice
	}
	if err != nil {
		return Result{}, fmt.Errorf("cast vote: %w", err)
	}

	s.logger.Info("vote cast",
		"question_id", q.ID,
		"choice_id", choiceID,
		"user_id", b.User.ID,
		"updated", cast.Updated,
	)

	s.audit.Publish(ctx, audit.Event{
		Kind:       audit.KindVote,
		Actor:      b.User.Username,
		IP:         b.ClientIP,
		QuestionID: q.ID,
		ChoiceID:   choiceID,
		At:         now,
	})

	return Result{
		Question: q,
		Choices:  cast.Choices,
		Vote:     cast.Vote,
		Updated:  cast.Updated,
	}, nil
}
