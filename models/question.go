// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// RecentWindow is how far back a publish date still counts as recent.
const RecentWindow = 24 * time.Hour

// IsPublished reports whether the question is visible at now.
func (q Question) IsPublished(now time.Time) bool {
	return !q.PubDate.After(now)
}

// CanVote reports whether now falls inside [PubDate, EndDate].
// A question whose EndDate precedes its PubDate is never open.
func (q Question) CanVote(now time.Time) bool {
	return !q.PubDate.After(now) && !now.After(q.EndDate)
}

// WasPublishedRecently reports whether PubDate lies in [now-24h, now].
func (q Question) WasPublishedRecently(now time.Time) bool {
	return !q.PubDate.Before(now.Add(-RecentWindow)) && !q.PubDate.After(now)
}

// TotalVotes sums the cached tallies of the given choices.
func TotalVotes(choices []Choice) int {
	total := 0
	for _, c := range choices {
		total += c.Votes
	}
	return total
}

// Predicate describes a derived boolean column of a Question: how it is
// labelled, which stored field it sorts by, and how it is computed.
type Predicate struct {
	Name             string
	ShortDescription string
	OrderField       string
	Boolean          bool
	Eval             func(q Question, now time.Time) bool
}

// QuestionPredicates lists the derived columns shown in the admin list.
var QuestionPredicates = []Predicate{
	{
		Name:             "was_published_recently",
		ShortDescription: "Published recently?",
		OrderField:       "pub_date",
		Boolean:          true,
		Eval:             Question.WasPublishedRecently,
	},
	{
		Name:             "can_vote",
		ShortDescription: "Open?",
		OrderField:       "end_date",
		Boolean:          true,
		Eval:             Question.CanVote,
	},
}

// LookupPredicate finds a descriptor by column name.
func LookupPredicate(name string) (Predicate, bool) {
	for _, p := range QuestionPredicates {
		if p.Name == name {
			return p, true
		}
	}
	return Predicate{}, false
}

// Columns evaluates every descriptor for q at now.
func (q Question) Columns(now time.Time) []AdminColumn {
	cols := make([]AdminColumn, 0, len(QuestionPredicates))
	for _, p := range QuestionPredicates {
		cols = append(cols, AdminColumn{
			Name:             p.Name,
			ShortDescription: p.ShortDescription,
			Boolean:          p.Boolean,
			Value:            p.Eval(q, now),
		})
	}
	return cols
}
