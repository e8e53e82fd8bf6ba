// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the pollbox server.

pollbox is a small polls application: staff publish questions with a fixed
set of choices, signed-in users vote once per question (and may change
their vote while the question is open), and anyone can read the results.

# Starting the Server

Configuration comes from flags, the environment, or a .env file:

	DATABASE_URL="file:polls.db?_pragma=foreign_keys(1)&_txlock=immediate" \
	SESSION_SECRET=change-me go run .

Or against PostgreSQL:

	go run . -t postgres -d "postgres://..." -session-secret change-me

# Configuration

Required settings:

  - DATABASE_URL (-d): database connection string
  - SESSION_SECRET (--session-secret): HMAC key for session cookies

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SESSION_TTL (--session-ttl): session lifetime (default: 14 days)
  - AUDIT_REDIS_URL (--audit-redis): mirror audit events to a redis list
  - AUDIT_REDIS_KEY: list key for audit events (default: polls:audit)
  - ADMIN_USERNAME, ADMIN_PASSWORD: staff account created at startup
  - CORS_ALLOWED_ORIGINS (--cors-origins): comma-separated origins allowed
    to make credentialed cross-origin calls (default: none)

# Architecture

  - handlers: HTTP handlers (polls, voting, accounts, admin)
  - voting: the vote workflow (validate, upsert, recount, audit)
  - db: schema and the SQL-backed record store
  - audit: event bus with slog and redis sinks
  - auth: password hashing and signed session cookies
  - middleware: sessions, login gates, CORS, logging, JSON helpers
  - router: route definitions using Go 1.22+ routing
  - models: records, derived predicates, response types
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
