// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadEnv pulls a .env file into the environment, then ParseFlags returns a
Config struct with all settings:

	if err := cliparse.LoadEnv(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type (sqlite or postgres)
	-session-secret  Session signing secret
	-session-ttl     Session lifetime (Go duration)
	-audit-redis     Redis URL for the audit sink
	-cors-origins    Comma-separated CORS origin allowlist

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p (default 3318)
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t (default sqlite)
	SESSION_SECRET  → -session-secret
	SESSION_TTL     → -session-ttl (default 336h)
	AUDIT_REDIS_URL → -audit-redis
	CORS_ALLOWED_ORIGINS → -cors-origins (default none)
	AUDIT_REDIS_KEY   list key for audit events (default polls:audit)
	ADMIN_USERNAME    bootstrap staff account (optional)
	ADMIN_PASSWORD    required with ADMIN_USERNAME

CLI flags take precedence over environment variables.

# SQLite DSNs

Voting runs its upsert and tally recount in one transaction. With sqlite,
use _txlock=immediate so concurrent voters queue on the write lock:

	file:polls.db?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)
*/
package cliparse
