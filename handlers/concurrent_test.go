// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/pollbox/models"
	"github.com/danielhkuo/pollbox/testutil"
)

// TestConcurrentVotes verifies that simultaneous votes from different users
// leave every cached tally equal to the number of vote rows for its choice
func TestConcurrentVotes(t *testing.T) {
	h, store, _ := newVotingHandler(t)

	q := testutil.CreateOpenQuestion(t, store, "Busy poll")
	choices := []models.Choice{
		testutil.AddTestChoice(t, store, q.ID, "Option A"),
		testutil.AddTestChoice(t, store, q.ID, "Option B"),
		testutil.AddTestChoice(t, store, q.ID, "Option C"),
	}

	numVoters := 12
	users := make([]models.User, numVoters)
	for i := range users {
		users[i] = testutil.CreateTestUser(t, store, fmt.Sprintf("voter%02d", i), false)
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			c := choices[idx%len(choices)]
			w := httptest.NewRecorder()
			h.Vote(w, voteRequestFor(q, users[idx], url.Values{"choice": {strconv.FormatInt(c.ID, 10)}}))

			if w.Code == http.StatusFound {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, successCount.Load())
	}

	if n, _ := store.CountVotes(t.Context(), q.ID); n != numVoters {
		t.Errorf("Expected %d vote rows, got %d", numVoters, n)
	}

	votes := testutil.ChoiceVotes(t, store, q.ID)
	for _, c := range choices {
		if votes[c.ID] != numVoters/len(choices) {
			t.Errorf("Choice %s: expected %d votes, got %d", c.ChoiceText, numVoters/len(choices), votes[c.ID])
		}
	}
}

// TestConcurrentRevotesSameUser verifies that racing re-votes by one user
// collapse to a single vote row and a single counted vote
func TestConcurrentRevotesSameUser(t *testing.T) {
	h, store, _ := newVotingHandler(t)

	q := testutil.CreateOpenQuestion(t, store, "Indecisive")
	a := testutil.AddTestChoice(t, store, q.ID, "A")
	b := testutil.AddTestChoice(t, store, q.ID, "B")
	user := testutil.CreateTestUser(t, store, "flipper", false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			choice := a.ID
			if idx%2 == 1 {
				choice = b.ID
			}
			h.Vote(httptest.NewRecorder(), voteRequestFor(q, user, url.Values{"choice": {strconv.FormatInt(choice, 10)}}))
		}(i)
	}
	wg.Wait()

	if n, _ := store.CountVotes(t.Context(), q.ID); n != 1 {
		t.Fatalf("Expected exactly 1 vote row, got %d", n)
	}

	vote, err := store.GetVote(t.Context(), user.ID, q.ID)
	if err != nil {
		t.Fatalf("GetVote: %v", err)
	}

	votes := testutil.ChoiceVotes(t, store, q.ID)
	if votes[a.ID]+votes[b.ID] != 1 {
		t.Errorf("Expected tallies to sum to 1, got A=%d B=%d", votes[a.ID], votes[b.ID])
	}
	if votes[vote.ChoiceID] != 1 {
		t.Errorf("Tally of the recorded choice %d should be 1, got %d", vote.ChoiceID, votes[vote.ChoiceID])
	}
}
