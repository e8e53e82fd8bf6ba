// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/pollbox/audit"
	"github.com/danielhkuo/pollbox/auth"
	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/middleware"
	"github.com/danielhkuo/pollbox/models"
)

const defaultLoginRedirect = "/polls/"

type AccountsHandler struct {
	store    db.Store
	sessions *auth.SessionManager
	audit    *audit.Bus
	logger   *slog.Logger
	now      func() time.Time
}

func NewAccountsHandler(store db.Store, sessions *auth.SessionManager, bus *audit.Bus, logger *slog.Logger) *AccountsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountsHandler{store: store, sessions: sessions, audit: bus, logger: logger, now: time.Now}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

// LoginPage handles GET /accounts/login/
func (h *AccountsHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	middleware.JSONResponse(w, http.StatusOK, models.LoginPromptResponse{
		Message: "Log in to continue",
		Next:    middleware.SafeNext(r.URL.Query().Get("next"), ""),
	})
}

// Login handles POST /accounts/login/
func (h *AccountsHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := readLogin(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	ip := middleware.GetClientIP(r)

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		h.logger.Error("failed to load account", "username", req.Username, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if err != nil || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		h.audit.Publish(r.Context(), audit.Event{
			Kind:  audit.KindLoginFailed,
			Actor: req.Username,
			IP:    ip,
			At:    h.now(),
		})
		middleware.ErrorResponse(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	if err := h.sessions.Issue(w, user); err != nil {
		h.logger.Error("failed to issue session", "user_id", user.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	h.audit.Publish(r.Context(), audit.Event{
		Kind:  audit.KindLogin,
		Actor: user.Username,
		IP:    ip,
		At:    h.now(),
	})

	middleware.Redirect(w, r, middleware.SafeNext(req.Next, defaultLoginRedirect))
}

// Logout handles POST /accounts/logout/
func (h *AccountsHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user, ok := middleware.UserFromContext(r.Context()); ok {
		h.audit.Publish(r.Context(), audit.Event{
			Kind:  audit.KindLogout,
			Actor: user.Username,
			IP:    middleware.GetClientIP(r),
			At:    h.now(),
		})
	}

	h.sessions.Clear(w)
	middleware.Redirect(w, r, defaultLoginRedirect)
}

func readLogin(r *http.Request) (loginRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req loginRequest
		err := middleware.ParseJSONBody(r, &req)
		return req, err
	}
	if err := r.ParseForm(); err != nil {
		return loginRequest{}, err
	}
	return loginRequest{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Next:     r.FormValue("next"),
	}, nil
}
