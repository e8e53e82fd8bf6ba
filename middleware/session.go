// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielhkuo/pollbox/auth"
	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/models"
)

type userKey struct{}

// UserLoader resolves the account named by a session
type UserLoader interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
}

// WithUser returns a context carrying the authenticated user
func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey{}).(models.User)
	return u, ok
}

// WithSession attaches the session's user to the request context. The
// account is reloaded on every request so deleted accounts and revoked
// staff flags take effect immediately. Bad sessions are anonymous.
func WithSession(sessions *auth.SessionManager, users UserLoader, logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := sessions.Parse(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		id, _ := claims.UserID()
		user, err := users.GetUser(r.Context(), id)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				logger.Error("failed to load session user", "user_id", id, "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// LoginRedirectURL builds loginURL?next=<path>, leaving slashes readable
func LoginRedirectURL(loginURL, next string) string {
	return loginURL + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// RequireLogin redirects anonymous requests to the login page
func RequireLogin(loginURL string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			Redirect(w, r, LoginRedirectURL(loginURL, r.URL.Path))
			return
		}
		next(w, r)
	}
}

// RequireStaff allows only staff accounts; anonymous requests go to login
func RequireStaff(loginURL string, next http.HandlerFunc) http.HandlerFunc {
	return RequireLogin(loginURL, func(w http.ResponseWriter, r *http.Request) {
		user, _ := UserFromContext(r.Context())
		if !user.IsStaff {
			ErrorResponse(w, http.StatusForbidden, "Staff access required")
			return
		}
		next(w, r)
	})
}

// SafeNext returns next if it is a local absolute path, else fallback
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
