// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(logger, handler))

Logs request start and completion (status, duration_ms) under a request id
that is echoed in the X-Request-ID header.

# Sessions

WithSession resolves the session cookie to an account and stores it in the
request context:

	handler := middleware.WithSession(sessions, store, logger, mux)
	user, ok := middleware.UserFromContext(r.Context())

RequireLogin redirects anonymous callers to loginURL?next=<path>.
RequireStaff does the same and answers 403 for non-staff accounts.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(cfg.CORSOrigins, handler),
	}

Only exact origins from the allowlist receive Access-Control-Allow-Origin
and credentials; preflights from other origins get 403.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

JSONResponse returns the encode error instead of logging it; the package
keeps no logger of its own. Wrappers that take a *slog.Logger fall back to
slog.Default() only when given nil.

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Takes the last X-Forwarded-For entry, then X-Real-IP, then RemoteAddr
without the port. The result is recorded in audit events.
*/
package middleware
