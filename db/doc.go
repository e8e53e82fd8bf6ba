// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db owns the schema and the SQL record store.

# Schema Creation

CreateSchema initializes all required tables for the chosen dialect:

	if err := db.CreateSchema(conn, db.DialectSQLite); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - account: Login accounts, staff flag for the admin surface
  - question: Question text with publish and end dates
  - choice: Options per question with a cached vote tally
  - vote: One live vote per (user, question)

# Relationships

	question 1──* choice
	question 1──* vote
	choice   1──* vote
	account  1──* vote

All foreign keys use ON DELETE CASCADE.

# Store

SQLStore implements Store for both lib/pq and modernc.org/sqlite:

	store := db.NewSQLStore(conn, db.DialectPostgres)
	res, err := store.CastVote(ctx, userID, questionID, choiceID, time.Now())

CastVote runs the vote upsert and the tally recount in one transaction.
The question row is locked first (FOR UPDATE on postgres, the database
write lock on sqlite) so two voters on the same question cannot
interleave their recounts. Every choice.votes value is recomputed as
COUNT(*) over the vote table; tallies are never incremented.
*/
package db
