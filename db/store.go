// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"errors"
	"time"

	"github.com/danielhkuo/pollbox/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing row")
)

// QuestionOrder is a whitelisted ORDER BY for question lists.
type QuestionOrder string

const (
	OrderPubDateDesc      QuestionOrder = "-pub_date"
	OrderPubDateAsc       QuestionOrder = "pub_date"
	OrderEndDateDesc      QuestionOrder = "-end_date"
	OrderEndDateAsc       QuestionOrder = "end_date"
	OrderQuestionTextAsc  QuestionOrder = "question_text"
	OrderQuestionTextDesc QuestionOrder = "-question_text"
)

var questionOrderSQL = map[QuestionOrder]string{
	OrderPubDateDesc:      "pub_date DESC, id DESC",
	OrderPubDateAsc:       "pub_date ASC, id ASC",
	OrderEndDateDesc:      "end_date DESC, id DESC",
	OrderEndDateAsc:       "end_date ASC, id ASC",
	OrderQuestionTextAsc:  "question_text ASC, id ASC",
	OrderQuestionTextDesc: "question_text DESC, id DESC",
}

// ParseQuestionOrder accepts a field name with an optional leading "-".
func ParseQuestionOrder(s string) (QuestionOrder, bool) {
	o := QuestionOrder(s)
	_, ok := questionOrderSQL[o]
	return o, ok
}

// QuestionQuery filters and orders question reads. Zero values mean
// "no constraint"; the zero OrderBy sorts newest publish date first.
type QuestionQuery struct {
	ID          int64
	PublishedBy *time.Time // pub_date <= PublishedBy
	PubFrom     *time.Time
	PubTo       *time.Time
	EndFrom     *time.Time
	EndTo       *time.Time
	Search      string // case-insensitive match on question_text
	OrderBy     QuestionOrder
	Limit       int
}

// CastResult describes the outcome of an upsert-and-recount.
type CastResult struct {
	Vote           models.Vote
	Updated        bool
	PreviousChoice int64
	Choices        []models.Choice
}

// Store is the record store consumed by handlers and the voting workflow.
type Store interface {
	CreateQuestion(ctx context.Context, q *models.Question) error
	UpdateQuestion(ctx context.Context, q models.Question) error
	DeleteQuestion(ctx context.Context, id int64) error
	GetQuestion(ctx context.Context, id int64, publishedBy *time.Time) (models.Question, error)
	ListQuestions(ctx context.Context, query QuestionQuery) ([]models.Question, error)
	// SaveQuestion writes a question with its inline choice edits
	// atomically; q.ID is set when the question is new.
	SaveQuestion(ctx context.Context, q *models.Question, edits []models.ChoiceInput) error

	AddChoice(ctx context.Context, c *models.Choice) error
	UpdateChoice(ctx context.Context, c models.Choice) error
	DeleteChoice(ctx context.Context, questionID, choiceID int64) error
	GetChoice(ctx context.Context, questionID, choiceID int64) (models.Choice, error)
	ListChoices(ctx context.Context, questionID int64) ([]models.Choice, error)

	// CastVote upserts the (user, question) vote and recomputes every
	// choice tally of the question from the vote table in one transaction.
	CastVote(ctx context.Context, userID, questionID, choiceID int64, at time.Time) (CastResult, error)
	GetVote(ctx context.Context, userID, questionID int64) (models.Vote, error)
	CountVotes(ctx context.Context, questionID int64) (int, error)
	ResetVotes(ctx context.Context, questionID int64) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}
