// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/danielhkuo/pollbox/audit"
	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/testutil"
)

func newTestRouter(t *testing.T) (http.Handler, *db.SQLStore, *audit.Recorder) {
	t.Helper()
	_, store := testutil.NewStore(t)
	rec := &audit.Recorder{}
	bus := audit.NewBus(testutil.DiscardLogger(), rec)
	return NewRouter(store, testutil.GetTestConfig(), bus, testutil.DiscardLogger()), store, rec
}

func TestHealthEndpoint(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootRedirects(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	testutil.AssertRedirect(t, w, "/polls/")
}

func TestRouteExistence(t *testing.T) {
	mux, store, _ := newTestRouter(t)
	q := testutil.CreateOpenQuestion(t, store, "Routed?")
	id := strconv.FormatInt(q.ID, 10)

	testCases := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/polls/", http.StatusOK},
		{"GET", "/polls/" + id + "/", http.StatusOK},
		{"GET", "/polls/" + id + "/results/", http.StatusOK},
		{"POST", "/polls/" + id + "/vote/", http.StatusFound},
		{"GET", "/accounts/login/", http.StatusOK},
		{"POST", "/accounts/logout/", http.StatusFound},
		{"GET", "/admin/polls/question/", http.StatusFound},
		{"POST", "/admin/polls/question/" + id + "/reset-votes/", http.StatusFound},

		// Missing trailing slash redirects; other paths are exact matches
		{"GET", "/polls/" + id, http.StatusMovedPermanently},
		{"GET", "/polls/" + id + "/extra/", http.StatusNotFound},
		{"GET", "/polls/abc/", http.StatusNotFound},
		{"GET", "/nope/", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			testutil.AssertStatus(t, w, tc.status)
		})
	}
}

func TestTrailingSlashRedirect(t *testing.T) {
	mux, store, _ := newTestRouter(t)
	q := testutil.CreateOpenQuestion(t, store, "Slash?")
	id := strconv.FormatInt(q.ID, 10)

	for _, path := range []string{"/polls/" + id, "/polls/" + id + "/results"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

		testutil.AssertStatus(t, w, http.StatusMovedPermanently)
		if loc := w.Header().Get("Location"); loc != path+"/" {
			t.Errorf("GET %s: expected Location %s/, got %q", path, path, loc)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("DELETE", "/polls/", nil))
	testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)
}

func TestVoteRequiresLogin(t *testing.T) {
	mux, _, _ := newTestRouter(t)

	req := testutil.MakeFormRequest("POST", "/polls/1/vote/", url.Values{"choice": {"1"}}, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertRedirect(t, w, "/accounts/login/?next=/polls/1/vote/")
}

func TestLoginThenVote(t *testing.T) {
	mux, store, rec := newTestRouter(t)
	q := testutil.CreateOpenQuestion(t, store, "End to end?")
	c := testutil.AddTestChoice(t, store, q.ID, "Yes")
	testutil.CreateTestUser(t, store, "alice", false)

	// Log in through the real endpoint and reuse the cookie
	login := testutil.MakeFormRequest("POST", "/accounts/login/", url.Values{
		"username": {"alice"},
		"password": {"password"},
		"next":     {"/polls/" + strconv.FormatInt(q.ID, 10) + "/"},
	}, map[string]string{"X-Forwarded-For": "198.51.100.4"})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, login)
	testutil.AssertRedirect(t, w, "/polls/"+strconv.FormatInt(q.ID, 10)+"/")

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login should set a session cookie")
	}

	vote := testutil.MakeFormRequest("POST", "/polls/"+strconv.FormatInt(q.ID, 10)+"/vote/",
		url.Values{"choice": {strconv.FormatInt(c.ID, 10)}}, nil)
	vote.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, vote)
	testutil.AssertRedirect(t, w, "/polls/"+strconv.FormatInt(q.ID, 10)+"/results/")

	if votes := testutil.ChoiceVotes(t, store, q.ID); votes[c.ID] != 1 {
		t.Errorf("tally = %d, want 1", votes[c.ID])
	}

	logins := rec.OfKind(audit.KindLogin)
	if len(logins) != 1 || logins[0].IP != "198.51.100.4" {
		t.Errorf("expected one login event from 198.51.100.4, got %+v", logins)
	}
	if len(rec.OfKind(audit.KindVote)) != 1 {
		t.Error("expected one vote event")
	}
}

func TestAdminForbiddenForRegularUser(t *testing.T) {
	mux, store, _ := newTestRouter(t)
	bob := testutil.CreateTestUser(t, store, "bob", false)

	req := httptest.NewRequest("GET", "/admin/polls/question/", nil)
	req.AddCookie(testutil.SessionCookie(t, bob))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	testutil.AssertStatus(t, w, http.StatusForbidden)
}
