// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielhkuo/pollbox/auth"
	"github.com/danielhkuo/pollbox/cliparse"
	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/models"
)

// TestSessionSecret signs session cookies in tests
const TestSessionSecret = "test-session-secret"

var dbSeq atomic.Int64

// SetupTestDB opens a private in-memory sqlite database with the full schema.
// The connection pool is capped at one so every query sees the same
// in-memory database and transactions serialise.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:pollbox_test_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		dbSeq.Add(1),
	)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.DialectSQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// NewStore wraps a test database in the SQL store
func NewStore(t *testing.T) (*sql.DB, *db.SQLStore) {
	t.Helper()
	conn := SetupTestDB(t)
	return conn, db.NewSQLStore(conn, db.DialectSQLite)
}

// RejectChoiceText installs a trigger that aborts any insert or update of a
// choice with the given text, to make a write fail midway through a save.
func RejectChoiceText(t *testing.T, conn *sql.DB, text string) {
	t.Helper()

	for _, op := range []string{"INSERT", "UPDATE"} {
		stmt := fmt.Sprintf(`
			CREATE TRIGGER reject_choice_%s BEFORE %s ON choice
			WHEN NEW.choice_text = '%s'
			BEGIN SELECT RAISE(ABORT, 'choice rejected'); END
		`, strings.ToLower(op), op, strings.ReplaceAll(text, "'", "''"))
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("Failed to install choice trigger: %v", err)
		}
	}
}

// DiscardLogger drops all log output
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   "file::memory:",
		DatabaseType:  "sqlite",
		SessionSecret: TestSessionSecret,
		SessionTTL:    time.Hour,
		LoginURL:      cliparse.DefaultLoginURL,
		AuditRedisKey: cliparse.DefaultAuditRedisKey,
	}
}

// CreateTestQuestion inserts a question published pubOffset from now that
// closes endOffset from now. Negative offsets are in the past.
func CreateTestQuestion(t *testing.T, store db.Store, text string, pubOffset, endOffset time.Duration) models.Question {
	t.Helper()

	now := time.Now()
	q := models.Question{
		QuestionText: text,
		PubDate:      now.Add(pubOffset),
		EndDate:      now.Add(endOffset),
	}
	if err := store.CreateQuestion(context.Background(), &q); err != nil {
		t.Fatalf("Failed to create test question: %v", err)
	}
	return q
}

// CreateOpenQuestion is a published question that is still open for a day
func CreateOpenQuestion(t *testing.T, store db.Store, text string) models.Question {
	t.Helper()
	return CreateTestQuestion(t, store, text, -time.Hour, 24*time.Hour)
}

// AddTestChoice adds a choice to a question
func AddTestChoice(t *testing.T, store db.Store, questionID int64, text string) models.Choice {
	t.Helper()

	c := models.Choice{QuestionID: questionID, ChoiceText: text}
	if err := store.AddChoice(context.Background(), &c); err != nil {
		t.Fatalf("Failed to create test choice: %v", err)
	}
	return c
}

// CreateTestUser creates an account with password "password"
func CreateTestUser(t *testing.T, store db.Store, username string, staff bool) models.User {
	t.Helper()

	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	u := models.User{Username: username, PasswordHash: hash, IsStaff: staff}
	if err := store.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return u
}

// SessionCookie signs a session cookie for user with the test secret
func SessionCookie(t *testing.T, user models.User) *http.Cookie {
	t.Helper()

	token, err := auth.NewSessionManager(TestSessionSecret, time.Hour).Token(user)
	if err != nil {
		t.Fatalf("Failed to sign session: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

// MakeRequest creates an HTTP test request with a JSON body
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// MakeFormRequest creates an HTTP test request with a urlencoded form body
func MakeFormRequest(method, path string, form url.Values, headers map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertRedirect checks for a 302 to the given location
func AssertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	AssertStatus(t, w, http.StatusFound)
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Expected redirect to %q, got %q", location, got)
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}

// ChoiceVotes maps choice id to its stored tally
func ChoiceVotes(t *testing.T, store db.Store, questionID int64) map[int64]int {
	t.Helper()
	choices, err := store.ListChoices(context.Background(), questionID)
	if err != nil {
		t.Fatalf("Failed to list choices: %v", err)
	}
	out := make(map[int64]int, len(choices))
	for _, c := range choices {
		out[c.ID] = c.Votes
	}
	return out
}
