// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides password hashing and signed session cookies.

# Passwords

Passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword(password)
	err := auth.CheckPassword(hash, password) // ErrInvalidCredentials on mismatch

# Sessions

A session is an HS256 JWT in the "sessionid" cookie. The subject is the
account id; username and staff flag ride along so most requests need no
account lookup:

	sessions := auth.NewSessionManager(secret, ttl)
	sessions.Issue(w, user)
	claims, err := sessions.Parse(r) // ErrInvalidSession if absent or bad
	sessions.Clear(w)

Each token carries a random UUID as its jti.
*/
package auth
