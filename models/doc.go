// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines domain, request, and response types for the API.

# Domain Types

  - Question: poll prompt with a publish date and a closing date
  - Choice: answer under a question with a cached vote tally
  - Vote: a user's current choice for a question (one per user per question)
  - User: account used for login and staff-only admin access

# Predicates

Questions expose pure predicates evaluated against a caller-supplied time:

	q.IsPublished(now)          // pub_date <= now
	q.CanVote(now)              // pub_date <= now <= end_date
	q.WasPublishedRecently(now) // now-24h <= pub_date <= now

Derived admin columns are declared once in QuestionPredicates. Each
Predicate carries its label, the stored field it orders by, and its Eval
function, so the admin list can both render and sort by the column.

# Response Types

  - IndexResponse: latest_question_list
  - DetailResponse: question, choices, optional error_message
  - ResultsResponse: question, choices with tallies, total_votes
  - AdminQuestionList / AdminQuestionDetail: admin screens
  - ErrorResponse: error, message
*/
package models
