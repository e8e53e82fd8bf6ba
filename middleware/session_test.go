package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/pollbox/auth"
	"github.com/danielhkuo/pollbox/models"
	"github.com/danielhkuo/pollbox/testutil"
)

func TestLoginRedirectURL(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/polls/1/vote/", "/accounts/login/?next=/polls/1/vote/"},
		{"/admin/polls/question/", "/accounts/login/?next=/admin/polls/question/"},
		{"/a b/", "/accounts/login/?next=/a+b/"},
	}
	for _, tt := range tests {
		if got := LoginRedirectURL("/accounts/login/", tt.next); got != tt.want {
			t.Errorf("LoginRedirectURL(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"/polls/3/", "/polls/3/"},
		{"", "/polls/"},
		{"polls/", "/polls/"},
		{"//evil.example/", "/polls/"},
		{"https://evil.example/", "/polls/"},
		{"/\\evil.example", "/polls/"},
	}
	for _, tt := range tests {
		if got := SafeNext(tt.next, "/polls/"); got != tt.want {
			t.Errorf("SafeNext(%q) = %q, want %q", tt.next, got, tt.want)
		}
	}
}

func TestWithSession(t *testing.T) {
	_, store := testutil.NewStore(t)
	alice := testutil.CreateTestUser(t, store, "alice", false)
	sessions := auth.NewSessionManager(testutil.TestSessionSecret, time.Hour)

	var seen models.User
	var ok bool
	handler := WithSession(sessions, store, testutil.DiscardLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = UserFromContext(r.Context())
	}))

	t.Run("valid session", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/", nil)
		req.AddCookie(testutil.SessionCookie(t, alice))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !ok || seen.ID != alice.ID || seen.Username != "alice" {
			t.Errorf("expected alice in context, got %+v (ok=%v)", seen, ok)
		}
	})

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/polls/", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if ok {
			t.Error("anonymous request should carry no user")
		}
	})

	t.Run("deleted account", func(t *testing.T) {
		ghost := models.User{ID: 9999, Username: "ghost"}
		req := httptest.NewRequest("GET", "/polls/", nil)
		req.AddCookie(testutil.SessionCookie(t, ghost))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if ok {
			t.Error("session for a missing account should be anonymous")
		}
	})
}

func TestRequireLogin(t *testing.T) {
	called := false
	handler := RequireLogin("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest("POST", "/polls/1/vote/", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	testutil.AssertRedirect(t, w, "/accounts/login/?next=/polls/1/vote/")
	if called {
		t.Error("handler should not run for anonymous requests")
	}

	req = httptest.NewRequest("POST", "/polls/1/vote/", nil)
	req = req.WithContext(WithUser(req.Context(), models.User{ID: 1, Username: "alice"}))
	handler(httptest.NewRecorder(), req)
	if !called {
		t.Error("handler should run for authenticated requests")
	}
}

func TestRequireStaff(t *testing.T) {
	handler := RequireStaff("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		user   *models.User
		status int
	}{
		{"anonymous", nil, http.StatusFound},
		{"regular user", &models.User{ID: 1, Username: "bob"}, http.StatusForbidden},
		{"staff", &models.User{ID: 2, Username: "root", IsStaff: true}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/polls/question/", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tt.user))
			}
			w := httptest.NewRecorder()
			handler(w, req)
			testutil.AssertStatus(t, w, tt.status)
		})
	}
}
