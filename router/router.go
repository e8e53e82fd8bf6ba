// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pollbox/audit"
	"github.com/danielhkuo/pollbox/auth"
	"github.com/danielhkuo/pollbox/cliparse"
	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/handlers"
	"github.com/danielhkuo/pollbox/middleware"
	"github.com/danielhkuo/pollbox/voting"
)

// NewRouter wires every route. The returned handler resolves the session
// user before dispatching to the mux.
func NewRouter(store db.Store, cfg cliparse.Config, bus *audit.Bus, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	loginURL := cfg.LoginURL
	if loginURL == "" {
		loginURL = cliparse.DefaultLoginURL
	}

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(store, logger)
	votingHandler := handlers.NewVotingHandler(store, voting.NewService(store, bus, logger), logger)
	accountsHandler := handlers.NewAccountsHandler(store, sessions, bus, logger)
	adminHandler := handlers.NewAdminHandler(store, logger)

	logged := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(logger, h)
	}
	staff := func(h http.HandlerFunc) http.HandlerFunc {
		return logged(middleware.RequireStaff(loginURL, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Root redirects to the poll list
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		middleware.Redirect(w, r, "/polls/")
	})

	// Public poll pages
	mux.HandleFunc("GET /polls/{$}", logged(pollHandler.Index))
	mux.HandleFunc("GET /polls/{id}/{$}", logged(pollHandler.Detail))
	mux.HandleFunc("GET /polls/{id}/results/{$}", logged(pollHandler.Results))

	// Voting (login required)
	mux.HandleFunc("POST /polls/{id}/vote/{$}", logged(middleware.RequireLogin(loginURL, votingHandler.Vote)))

	// Accounts
	mux.HandleFunc("GET /accounts/login/{$}", logged(accountsHandler.LoginPage))
	mux.HandleFunc("POST /accounts/login/{$}", logged(accountsHandler.Login))
	mux.HandleFunc("POST /accounts/logout/{$}", logged(accountsHandler.Logout))

	// Admin (staff only)
	mux.HandleFunc("GET /admin/polls/question/{$}", staff(adminHandler.ListQuestions))
	mux.HandleFunc("POST /admin/polls/question/{$}", staff(adminHandler.CreateQuestion))
	mux.HandleFunc("GET /admin/polls/question/{id}/{$}", staff(adminHandler.GetQuestion))
	mux.HandleFunc("PUT /admin/polls/question/{id}/{$}", staff(adminHandler.UpdateQuestion))
	mux.HandleFunc("DELETE /admin/polls/question/{id}/{$}", staff(adminHandler.DeleteQuestion))
	mux.HandleFunc("POST /admin/polls/question/{id}/reset-votes/{$}", staff(adminHandler.ResetVotes))

	return middleware.WithSession(sessions, store, logger, mux)
}
