// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/pollbox/models"
)

// SQLStore implements Store on database/sql. Queries use $N placeholders,
// which both lib/pq and modernc.org/sqlite accept.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lockClause returns the row lock suffix for the dialect. SQLite has no
// row locks; writers are serialised by the database lock instead.
func (s *SQLStore) lockClause() string {
	if s.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Questions

func (s *SQLStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	return insertQuestion(ctx, s.db, q)
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q models.Question) error {
	return updateQuestion(ctx, s.db, q)
}

// SaveQuestion inserts (ID 0) or updates q and applies the inline choice
// edits in one transaction. An edit with an ID updates that choice, or
// removes it when Delete is set; an edit without an ID adds a choice.
// Any failure leaves the question and its choices as they were.
func (s *SQLStore) SaveQuestion(ctx context.Context, q *models.Question, edits []models.ChoiceInput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save question: %w", err)
	}
	defer tx.Rollback()

	saved := *q
	if saved.ID == 0 {
		err = insertQuestion(ctx, tx, &saved)
	} else {
		err = updateQuestion(ctx, tx, saved)
	}
	if err != nil {
		return err
	}

	for _, e := range edits {
		switch {
		case e.ID != 0 && e.Delete:
			err = deleteChoice(ctx, tx, saved.ID, e.ID)
		case e.ID != 0:
			err = updateChoice(ctx, tx, models.Choice{ID: e.ID, QuestionID: saved.ID, ChoiceText: e.ChoiceText})
		case !e.Delete:
			err = insertChoice(ctx, tx, &models.Choice{QuestionID: saved.ID, ChoiceText: e.ChoiceText})
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save question %d: %w", saved.ID, err)
	}
	*q = saved
	return nil
}

func insertQuestion(ctx context.Context, ex execer, q *models.Question) error {
	q.PubDate = q.PubDate.UTC()
	q.EndDate = q.EndDate.UTC()

	err := ex.QueryRowContext(ctx, `
		INSERT INTO question (question_text, pub_date, end_date)
		VALUES ($1, $2, $3)
		RETURNING id
	`, q.QuestionText, q.PubDate, q.EndDate).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func updateQuestion(ctx context.Context, ex execer, q models.Question) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE question
		SET question_text = $1, pub_date = $2, end_date = $3
		WHERE id = $4
	`, q.QuestionText, q.PubDate.UTC(), q.EndDate.UTC(), q.ID)
	if err != nil {
		return fmt.Errorf("update question %d: %w", q.ID, err)
	}
	return expectAffected(res, "question", q.ID)
}

// DeleteQuestion removes the question with its choices and votes.
// Dependent rows are deleted explicitly so the cascade does not rely on
// sqlite's foreign_keys pragma being enabled.
func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete question: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vote WHERE question_id = $1`, id); err != nil {
		return fmt.Errorf("delete votes of question %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM choice WHERE question_id = $1`, id); err != nil {
		return fmt.Errorf("delete choices of question %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM question WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question %d: %w", id, err)
	}
	if err := expectAffected(res, "question", id); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64, publishedBy *time.Time) (models.Question, error) {
	query := `SELECT id, question_text, pub_date, end_date FROM question WHERE id = $1`
	args := []any{id}
	if publishedBy != nil {
		query += ` AND pub_date <= $2`
		args = append(args, publishedBy.UTC())
	}

	q, err := scanQuestion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Question{}, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Question{}, fmt.Errorf("get question %d: %w", id, err)
	}
	return q, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context, query QuestionQuery) ([]models.Question, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if query.ID != 0 {
		add("id = $%d", query.ID)
	}
	if query.PublishedBy != nil {
		add("pub_date <= $%d", query.PublishedBy.UTC())
	}
	if query.PubFrom != nil {
		add("pub_date >= $%d", query.PubFrom.UTC())
	}
	if query.PubTo != nil {
		add("pub_date <= $%d", query.PubTo.UTC())
	}
	if query.EndFrom != nil {
		add("end_date >= $%d", query.EndFrom.UTC())
	}
	if query.EndTo != nil {
		add("end_date <= $%d", query.EndTo.UTC())
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		add("LOWER(question_text) LIKE $%d", "%"+strings.ToLower(search)+"%")
	}

	order := query.OrderBy
	if order == "" {
		order = OrderPubDateDesc
	}
	orderSQL, ok := questionOrderSQL[order]
	if !ok {
		return nil, fmt.Errorf("unsupported question order %q", order)
	}

	var b strings.Builder
	b.WriteString(`SELECT id, question_text, pub_date, end_date FROM question`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderSQL)
	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

func scanQuestion(row rowScanner) (models.Question, error) {
	var q models.Question
	if err := row.Scan(&q.ID, &q.QuestionText, &q.PubDate, &q.EndDate); err != nil {
		return models.Question{}, err
	}
	q.PubDate = q.PubDate.UTC()
	q.EndDate = q.EndDate.UTC()
	return q, nil
}

// Choices

func (s *SQLStore) AddChoice(ctx context.Context, c *models.Choice) error {
	return insertChoice(ctx, s.db, c)
}

// UpdateChoice changes the text only; the tally is derived from votes.
func (s *SQLStore) UpdateChoice(ctx context.Context, c models.Choice) error {
	return updateChoice(ctx, s.db, c)
}

func (s *SQLStore) DeleteChoice(ctx context.Context, questionID, choiceID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete choice: %w", err)
	}
	defer tx.Rollback()

	if err := deleteChoice(ctx, tx, questionID, choiceID); err != nil {
		return err
	}
	return tx.Commit()
}

func insertChoice(ctx context.Context, ex execer, c *models.Choice) error {
	c.Votes = 0
	err := ex.QueryRowContext(ctx, `
		INSERT INTO choice (question_id, choice_text, votes)
		VALUES ($1, $2, 0)
		RETURNING id
	`, c.QuestionID, c.ChoiceText).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert choice for question %d: %w", c.QuestionID, err)
	}
	return nil
}

func updateChoice(ctx context.Context, ex execer, c models.Choice) error {
	res, err := ex.ExecContext(ctx, `
		UPDATE choice SET choice_text = $1
		WHERE id = $2 AND question_id = $3
	`, c.ChoiceText, c.ID, c.QuestionID)
	if err != nil {
		return fmt.Errorf("update choice %d: %w", c.ID, err)
	}
	return expectAffected(res, "choice", c.ID)
}

// deleteChoice removes the choice and the votes pointing at it. Callers
// run it inside a transaction.
func deleteChoice(ctx context.Context, ex execer, questionID, choiceID int64) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM vote WHERE choice_id = $1 AND question_id = $2`, choiceID, questionID); err != nil {
		return fmt.Errorf("delete votes of choice %d: %w", choiceID, err)
	}
	res, err := ex.ExecContext(ctx, `DELETE FROM choice WHERE id = $1 AND question_id = $2`, choiceID, questionID)
	if err != nil {
		return fmt.Errorf("delete choice %d: %w", choiceID, err)
	}
	return expectAffected(res, "choice", choiceID)
}

func (s *SQLStore) GetChoice(ctx context.Context, questionID, choiceID int64) (models.Choice, error) {
	var c models.Choice
	err := s.db.QueryRowContext(ctx, `
		SELECT id, question_id, choice_text, votes
		FROM choice
		WHERE id = $1 AND question_id = $2
	`, choiceID, questionID).Scan(&c.ID, &c.QuestionID, &c.ChoiceText, &c.Votes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Choice{}, fmt.Errorf("choice %d of question %d: %w", choiceID, questionID, ErrNotFound)
	}
	if err != nil {
		return models.Choice{}, fmt.Errorf("get choice %d: %w", choiceID, err)
	}
	return c, nil
}

func (s *SQLStore) ListChoices(ctx context.Context, questionID int64) ([]models.Choice, error) {
	return listChoices(ctx, s.db, questionID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listChoices(ctx context.Context, q querier, questionID int64) ([]models.Choice, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, question_id, choice_text, votes
		FROM choice
		WHERE question_id = $1
		ORDER BY id
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("list choices of question %d: %w", questionID, err)
	}
	defer rows.Close()

	choices := []models.Choice{}
	for rows.Next() {
		var c models.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.ChoiceText, &c.Votes); err != nil {
			return nil, fmt.Errorf("scan choice: %w", err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list choices of question %d: %w", questionID, err)
	}
	return choices, nil
}

// Votes

func (s *SQLStore) CastVote(ctx context.Context, userID, questionID, choiceID int64, at time.Time) (CastResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CastResult{}, fmt.Errorf("begin vote transaction: %w", err)
	}
	defer tx.Rollback()

	// Voters on the same question queue here until the holder commits
	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM question WHERE id = $1`+s.lockClause(), questionID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return CastResult{}, fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	if err != nil {
		return CastResult{}, fmt.Errorf("lock question %d: %w", questionID, err)
	}

	var owner int64
	err = tx.QueryRowContext(ctx, `
		SELECT question_id FROM choice WHERE id = $1 AND question_id = $2
	`, choiceID, questionID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return CastResult{}, fmt.Errorf("choice %d of question %d: %w", choiceID, questionID, ErrNotFound)
	}
	if err != nil {
		return CastResult{}, fmt.Errorf("get choice %d: %w", choiceID, err)
	}

	var result CastResult
	var previous int64
	err = tx.QueryRowContext(ctx, `
		SELECT choice_id FROM vote WHERE user_id = $1 AND question_id = $2
	`, userID, questionID).Scan(&previous)
	switch {
	case err == nil:
		result.Updated = true
		result.PreviousChoice = previous
	case errors.Is(err, sql.ErrNoRows):
	default:
		return CastResult{}, fmt.Errorf("get previous vote: %w", err)
	}

	at = at.UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (user_id, question_id, choice_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, question_id)
		DO UPDATE SET choice_id = excluded.choice_id, updated_at = excluded.updated_at
	`, userID, questionID, choiceID, at, at)
	if err != nil {
		return CastResult{}, fmt.Errorf("upsert vote: %w", err)
	}

	// Full recount from the vote table, never an increment
	_, err = tx.ExecContext(ctx, `
		UPDATE choice SET votes = (
			SELECT COUNT(*) FROM vote
			WHERE vote.question_id = choice.question_id AND vote.choice_id = choice.id
		)
		WHERE question_id = $1
	`, questionID)
	if err != nil {
		return CastResult{}, fmt.Errorf("recount votes of question %d: %w", questionID, err)
	}

	result.Vote, err = scanVote(tx.QueryRowContext(ctx, `
		SELECT id, user_id, question_id, choice_id, created_at, updated_at
		FROM vote WHERE user_id = $1 AND question_id = $2
	`, userID, questionID))
	if err != nil {
		return CastResult{}, fmt.Errorf("reload vote: %w", err)
	}

	result.Choices, err = listChoices(ctx, tx, questionID)
	if err != nil {
		return CastResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return CastResult{}, fmt.Errorf("commit vote: %w", err)
	}
	return result, nil
}

func (s *SQLStore) GetVote(ctx context.Context, userID, questionID int64) (models.Vote, error) {
	v, err := scanVote(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, question_id, choice_id, created_at, updated_at
		FROM vote WHERE user_id = $1 AND question_id = $2
	`, userID, questionID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Vote{}, fmt.Errorf("vote of user %d on question %d: %w", userID, questionID, ErrNotFound)
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("get vote: %w", err)
	}
	return v, nil
}

func (s *SQLStore) CountVotes(ctx context.Context, questionID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM vote WHERE question_id = $1
	`, questionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes of question %d: %w", questionID, err)
	}
	return count, nil
}

// ResetVotes drops every vote of the question and zeroes its tallies.
func (s *SQLStore) ResetVotes(ctx context.Context, questionID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset votes: %w", err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM question WHERE id = $1`+s.lockClause(), questionID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock question %d: %w", questionID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vote WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("delete votes of question %d: %w", questionID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE choice SET votes = 0 WHERE question_id = $1`, questionID); err != nil {
		return fmt.Errorf("zero tallies of question %d: %w", questionID, err)
	}

	return tx.Commit()
}

func scanVote(row rowScanner) (models.Vote, error) {
	var v models.Vote
	if err := row.Scan(&v.ID, &v.UserID, &v.QuestionID, &v.ChoiceID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return models.Vote{}, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

// Users

func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	u.CreatedAt = u.CreatedAt.UTC()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO account (username, password_hash, is_staff, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.Username, u.PasswordHash, u.IsStaff, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", u.Username, ErrConflict)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_staff, created_at
		FROM account WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_staff, created_at
		FROM account WHERE username = $1
	`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("account %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get account %q: %w", username, err)
	}
	return u, nil
}

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsStaff, &u.CreatedAt); err != nil {
		return models.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func expectAffected(res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// isUniqueViolation recognises duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
