// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers for pollbox.

# Handler Types

Each handler is a struct built from a db.Store and a *slog.Logger:

  - PollHandler: index, detail and results pages
  - VotingHandler: the vote form submission
  - AccountsHandler: login and logout
  - AdminHandler: staff question management

	pollHandler := handlers.NewPollHandler(store, logger)

# Public Pages

Only published questions (pub_date <= now) are visible; anything else is 404.

	GET /polls/              → Index (newest first)
	GET /polls/{id}/         → Detail
	GET /polls/{id}/results/ → Results

# Voting

	POST /polls/{id}/vote/ → Vote (login required)

The choice is read from the "choice" form field or a JSON body. A missing
or foreign choice, or a question outside its voting window, re-renders the
detail page with an error_message. A JSON body that is empty or cannot be
decoded counts as no choice and gets the same page, so form and JSON
clients see one behaviour. A successful vote redirects to the results page. The upsert and recount run through voting.Service.

# Accounts

	GET  /accounts/login/  → LoginPage
	POST /accounts/login/  → Login (sets the session cookie)
	POST /accounts/logout/ → Logout

Login, logout and failed logins are published to the audit bus.

# Admin

	GET    /admin/polls/question/                    → ListQuestions
	POST   /admin/polls/question/                    → CreateQuestion
	GET    /admin/polls/question/{id}/               → GetQuestion
	PUT    /admin/polls/question/{id}/               → UpdateQuestion
	DELETE /admin/polls/question/{id}/               → DeleteQuestion
	POST   /admin/polls/question/{id}/reset-votes/   → ResetVotes

Admin routes require a staff session.
*/
package handlers
