package models

import "time"

// Field limits shared by admin validation and the schema
const (
	MaxQuestionTextLen = 200
	MaxChoiceTextLen   = 200
)

// Domain types

type Question struct {
	ID           int64     `json:"id"`
	QuestionText string    `json:"question_text"`
	PubDate      time.Time `json:"pub_date"`
	EndDate      time.Time `json:"end_date"`
}

type Choice struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	ChoiceText string `json:"choice_text"`
	Votes      int    `json:"votes"`
}

type Vote struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	QuestionID int64     `json:"question_id"`
	ChoiceID   int64     `json:"choice_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// Request types

type ChoiceInput struct {
	ID         int64  `json:"id,omitempty"`
	ChoiceText string `json:"choice_text"`
	Delete     bool   `json:"delete,omitempty"`
}

type QuestionInput struct {
	QuestionText string        `json:"question_text"`
	PubDate      time.Time     `json:"pub_date"`
	EndDate      time.Time     `json:"end_date"`
	Choices      []ChoiceInput `json:"choices"`
}

// Response types

// QuestionView is a question plus the computed columns shown to visitors.
type QuestionView struct {
	Question
	CanVote              bool   `json:"can_vote"`
	WasPublishedRecently bool   `json:"was_published_recently"`
	Published            string `json:"published"`
	Closes               string `json:"closes"`
}

type IndexResponse struct {
	User               string         `json:"user,omitempty"`
	LatestQuestionList []QuestionView `json:"latest_question_list"`
}

type DetailResponse struct {
	User         string       `json:"user,omitempty"`
	Question     QuestionView `json:"question"`
	Choices      []Choice     `json:"choices"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

type ResultsResponse struct {
	User       string       `json:"user,omitempty"`
	Question   QuestionView `json:"question"`
	Choices    []Choice     `json:"choices"`
	TotalVotes int          `json:"total_votes"`
}

type LoginPromptResponse struct {
	Message string `json:"message"`
	Next    string `json:"next,omitempty"`
}

// AdminColumn is one rendered list_display cell for a derived column.
type AdminColumn struct {
	Name             string `json:"name"`
	ShortDescription string `json:"short_description"`
	Boolean          bool   `json:"boolean"`
	Value            bool   `json:"value"`
}

type AdminQuestionRow struct {
	Question
	Columns []AdminColumn `json:"columns"`
}

type AdminQuestionList struct {
	Count   int                `json:"count"`
	Results []AdminQuestionRow `json:"results"`
}

type AdminQuestionDetail struct {
	Question   Question      `json:"question"`
	Columns    []AdminColumn `json:"columns"`
	Choices    []Choice      `json:"choices"`
	TotalVotes int           `json:"total_votes"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
