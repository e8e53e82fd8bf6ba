// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the polls service.

# Route Registration

NewRouter builds an http.ServeMux with all endpoints and wraps it in the
session middleware:

	handler := router.NewRouter(store, cfg, bus, logger)

# Endpoints

Health:

	GET /health
	GET /        - Redirect to /polls/

Polls (public):

	GET  /polls/              - Published questions, newest first
	GET  /polls/{id}/         - Question with its choices
	GET  /polls/{id}/results/ - Tallies
	POST /polls/{id}/vote/    - Vote (login required)

Accounts:

	GET  /accounts/login/  - Login prompt, echoes ?next=
	POST /accounts/login/  - Log in, sets the session cookie
	POST /accounts/logout/ - Log out

Admin (staff only):

	GET    /admin/polls/question/                   - List with filters
	POST   /admin/polls/question/                   - Create with inline choices
	GET    /admin/polls/question/{id}/              - Detail
	PUT    /admin/polls/question/{id}/              - Update with inline choices
	DELETE /admin/polls/question/{id}/              - Delete
	POST   /admin/polls/question/{id}/reset-votes/  - Clear all votes

Paths end in a slash and match exactly. A non-numeric {id} is a 404.
*/
package router
