package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/pollbox/db"
	"github.com/danielhkuo/pollbox/models"
	"github.com/danielhkuo/pollbox/testutil"
)

func newAdminHandler(t *testing.T) (*AdminHandler, *db.SQLStore) {
	t.Helper()
	_, store := testutil.NewStore(t)
	return NewAdminHandler(store, testutil.DiscardLogger()), store
}

func TestAdminCreateQuestion(t *testing.T) {
	h, store := newAdminHandler(t)
	pub := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	in := models.QuestionInput{
		QuestionText: "  Favourite season?  ",
		PubDate:      pub,
		EndDate:      pub.Add(48 * time.Hour),
		Choices: []models.ChoiceInput{
			{ChoiceText: "Summer"},
			{ChoiceText: "Winter"},
		},
	}
	w := httptest.NewRecorder()
	h.CreateQuestion(w, testutil.MakeRequest("POST", "/admin/polls/question/", in, nil))

	testutil.AssertStatus(t, w, http.StatusCreated)
	var resp models.AdminQuestionDetail
	testutil.AssertJSON(t, w, &resp)

	if resp.Question.ID == 0 || resp.Question.QuestionText != "Favourite season?" {
		t.Errorf("Unexpected question %+v", resp.Question)
	}
	if len(resp.Choices) != 2 || resp.Choices[1].ChoiceText != "Winter" {
		t.Errorf("Unexpected choices %+v", resp.Choices)
	}
	if len(resp.Columns) != 2 || resp.Columns[0].Name != "was_published_recently" || !resp.Columns[0].Value {
		t.Errorf("Unexpected columns %+v", resp.Columns)
	}

	stored, err := store.GetQuestion(t.Context(), resp.Question.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.PubDate.Equal(pub) {
		t.Errorf("Stored pub_date %v, want %v", stored.PubDate, pub)
	}
}

func TestAdminCreateQuestion_Validation(t *testing.T) {
	h, store := newAdminHandler(t)
	now := time.Now()

	tests := []struct {
		name string
		in   models.QuestionInput
	}{
		{"missing text", models.QuestionInput{QuestionText: "  ", PubDate: now, EndDate: now}},
		{"text too long", models.QuestionInput{QuestionText: strings.Repeat("x", 201), PubDate: now, EndDate: now}},
		{"missing pub_date", models.QuestionInput{QuestionText: "Q", EndDate: now}},
		{"missing end_date", models.QuestionInput{QuestionText: "Q", PubDate: now}},
		{"end before pub", models.QuestionInput{QuestionText: "Q", PubDate: now, EndDate: now.Add(-time.Second)}},
		{"empty choice", models.QuestionInput{QuestionText: "Q", PubDate: now, EndDate: now, Choices: []models.ChoiceInput{{ChoiceText: ""}}}},
		{"choice too long", models.QuestionInput{QuestionText: "Q", PubDate: now, EndDate: now, Choices: []models.ChoiceInput{{ChoiceText: strings.Repeat("y", 201)}}}},
		{"choice with id", models.QuestionInput{QuestionText: "Q", PubDate: now, EndDate: now, Choices: []models.ChoiceInput{{ID: 4, ChoiceText: "A"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.CreateQuestion(w, testutil.MakeRequest("POST", "/admin/polls/question/", tt.in, nil))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}

	// Boundary: exactly 200 characters and end == pub are accepted
	ok := models.QuestionInput{QuestionText: strings.Repeat("é", 200), PubDate: now, EndDate: now}
	w := httptest.NewRecorder()
	h.CreateQuestion(w, testutil.MakeRequest("POST", "/admin/polls/question/", ok, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	qs, _ := store.ListQuestions(t.Context(), db.QuestionQuery{})
	if len(qs) != 1 {
		t.Errorf("Only the valid question should be stored, got %d", len(qs))
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/admin/polls/question/", strings.NewReader("{"))
	h.CreateQuestion(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestAdminUpdateQuestion_InlineChoices(t *testing.T) {
	h, store := newAdminHandler(t)

	q := testutil.CreateOpenQuestion(t, store, "Before")
	keep := testutil.AddTestChoice(t, store, q.ID, "Keep")
	drop := testutil.AddTestChoice(t, store, q.ID, "Drop")
	other := testutil.CreateOpenQuestion(t, store, "Other")
	foreign := testutil.AddTestChoice(t, store, other.ID, "Foreign")

	in := models.QuestionInput{
		QuestionText: "After",
		PubDate:      q.PubDate,
		EndDate:      q.EndDate.Add(time.Hour),
		Choices: []models.ChoiceInput{
			{ID: keep.ID, ChoiceText: "Kept"},
			{ID: drop.ID, Delete: true},
			{ChoiceText: "Added"},
		},
	}
	w := httptest.NewRecorder()
	h.UpdateQuestion(w, withPath(testutil.MakeRequest("PUT", "/admin/polls/question/x/", in, nil), q.ID))

	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.AdminQuestionDetail
	testutil.AssertJSON(t, w, &resp)
	if resp.Question.QuestionText != "After" {
		t.Errorf("Expected updated text, got %q", resp.Question.QuestionText)
	}
	if len(resp.Choices) != 2 || resp.Choices[0].ChoiceText != "Kept" || resp.Choices[1].ChoiceText != "Added" {
		t.Errorf("Unexpected choices %+v", resp.Choices)
	}

	// A choice id from another question is rejected
	in.Choices = []models.ChoiceInput{{ID: foreign.ID, ChoiceText: "Hijack"}}
	w = httptest.NewRecorder()
	h.UpdateQuestion(w, withPath(testutil.MakeRequest("PUT", "/admin/polls/question/x/", in, nil), q.ID))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	if c, _ := store.GetChoice(t.Context(), other.ID, foreign.ID); c.ChoiceText != "Foreign" {
		t.Errorf("Foreign choice was modified: %+v", c)
	}

	// end_date before pub_date
	in.Choices = nil
	in.EndDate = in.PubDate.Add(-time.Minute)
	w = httptest.NewRecorder()
	h.UpdateQuestion(w, withPath(testutil.MakeRequest("PUT", "/admin/polls/question/x/", in, nil), q.ID))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = httptest.NewRecorder()
	h.UpdateQuestion(w, withPath(testutil.MakeRequest("PUT", "/admin/polls/question/x/", in, nil), 9999))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestAdminSave_FailedChoiceWriteLeavesNothing(t *testing.T) {
	conn, store := testutil.NewStore(t)
	h := NewAdminHandler(store, testutil.DiscardLogger())
	testutil.RejectChoiceText(t, conn, "Boom")
	pub := time.Now().Add(-time.Hour)

	t.Run("create", func(t *testing.T) {
		in := models.QuestionInput{
			QuestionText: "Three choices",
			PubDate:      pub,
			EndDate:      pub.Add(time.Hour * 48),
			Choices:      []models.ChoiceInput{{ChoiceText: "A"}, {ChoiceText: "Boom"}, {ChoiceText: "C"}},
		}
		w := httptest.NewRecorder()
		h.CreateQuestion(w, testutil.MakeRequest("POST", "/admin/polls/question/", in, nil))
		testutil.AssertStatus(t, w, http.StatusInternalServerError)

		if qs, _ := store.ListQuestions(t.Context(), db.QuestionQuery{}); len(qs) != 0 {
			t.Errorf("Failed create left %d questions behind", len(qs))
		}
	})

	t.Run("update", func(t *testing.T) {
		q := testutil.CreateOpenQuestion(t, store, "Untouched")
		c := testutil.AddTestChoice(t, store, q.ID, "Original")

		in := models.QuestionInput{
			QuestionText: "Touched",
			PubDate:      q.PubDate,
			EndDate:      q.EndDate,
			Choices: []models.ChoiceInput{
				{ID: c.ID, ChoiceText: "Renamed"},
				{ChoiceText: "Added"},
				{ChoiceText: "Boom"},
			},
		}
		w := httptest.NewRecorder()
		h.UpdateQuestion(w, withPath(testutil.MakeRequest("PUT", "/admin/polls/question/x/", in, nil), q.ID))
		testutil.AssertStatus(t, w, http.StatusInternalServerError)

		got, _ := store.GetQuestion(t.Context(), q.ID, nil)
		if got.QuestionText != "Untouched" {
			t.Errorf("Question text changed to %q", got.QuestionText)
		}
		choices, _ := store.ListChoices(t.Context(), q.ID)
		if len(choices) != 1 || choices[0].ChoiceText != "Original" {
			t.Errorf("Choices changed: %+v", choices)
		}
	})
}

func TestAdminListQuestions(t *testing.T) {
	h, store := newAdminHandler(t)

	old := testutil.CreateTestQuestion(t, store, "Old poll", -72*time.Hour, -48*time.Hour)
	open := testutil.CreateTestQuestion(t, store, "Open poll", -time.Hour, 24*time.Hour)
	future := testutil.CreateTestQuestion(t, store, "Future POLL", time.Hour, 48*time.Hour)

	list := func(query string) models.AdminQuestionList {
		t.Helper()
		w := httptest.NewRecorder()
		h.ListQuestions(w, httptest.NewRequest("GET", "/admin/polls/question/?"+query, nil))
		testutil.AssertStatus(t, w, http.StatusOK)
		var resp models.AdminQuestionList
		testutil.AssertJSON(t, w, &resp)
		return resp
	}
	ids := func(l models.AdminQuestionList) []int64 {
		out := make([]int64, 0, len(l.Results))
		for _, r := range l.Results {
			out = append(out, r.ID)
		}
		return out
	}

	all := list("")
	if all.Count != 3 {
		t.Fatalf("Admin list should include unpublished questions, got %d", all.Count)
	}
	if got := ids(all); got[0] != future.ID || got[2] != old.ID {
		t.Errorf("Default order should be newest pub_date first, got %v", got)
	}
	for _, row := range all.Results {
		if row.ID == open.ID && (!row.Columns[0].Value || !row.Columns[1].Value) {
			t.Errorf("Open question columns should all be true, got %+v", row.Columns)
		}
		if row.ID == old.ID && (row.Columns[0].Value || row.Columns[1].Value) {
			t.Errorf("Old question columns should all be false, got %+v", row.Columns)
		}
	}

	if got := ids(list("q=poll")); len(got) != 3 {
		t.Errorf("Case-insensitive search should match all, got %v", got)
	}
	if got := ids(list("q=future")); len(got) != 1 || got[0] != future.ID {
		t.Errorf("Search 'future' got %v", got)
	}

	// Ordering by a derived column sorts by its stored field
	if got := ids(list("o=can_vote")); got[0] != old.ID || got[2] != future.ID {
		t.Errorf("o=can_vote should sort by end_date ascending, got %v", got)
	}
	if got := ids(list("o=-was_published_recently")); got[0] != future.ID {
		t.Errorf("o=-was_published_recently should sort by pub_date descending, got %v", got)
	}

	from := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	if got := ids(list("pub_from=" + from + "&o=pub_date")); len(got) != 2 || got[0] != open.ID {
		t.Errorf("pub_from filter got %v", got)
	}
	endTo := time.Now().UTC().Format(time.RFC3339)
	if got := ids(list("end_to=" + endTo)); len(got) != 1 || got[0] != old.ID {
		t.Errorf("end_to filter got %v", got)
	}

	for _, bad := range []string{"pub_from=yesterday", "o=votes", "o=-password"} {
		w := httptest.NewRecorder()
		h.ListQuestions(w, httptest.NewRequest("GET", "/admin/polls/question/?"+bad, nil))
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	}
}

func TestAdminGetAndDeleteQuestion(t *testing.T) {
	h, store := newAdminHandler(t)

	q := testutil.CreateTestQuestion(t, store, "Unpublished", time.Hour, 2*time.Hour)
	testutil.AddTestChoice(t, store, q.ID, "A")

	w := httptest.NewRecorder()
	h.GetQuestion(w, withPath(httptest.NewRequest("GET", "/admin/polls/question/x/", nil), q.ID))
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp models.AdminQuestionDetail
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Choices) != 1 {
		t.Errorf("Expected 1 choice, got %d", len(resp.Choices))
	}

	w = httptest.NewRecorder()
	h.DeleteQuestion(w, withPath(httptest.NewRequest("DELETE", "/admin/polls/question/x/", nil), q.ID))
	testutil.AssertStatus(t, w, http.StatusNoContent)

	w = httptest.NewRecorder()
	h.GetQuestion(w, withPath(httptest.NewRequest("GET", "/admin/polls/question/x/", nil), q.ID))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	w = httptest.NewRecorder()
	h.DeleteQuestion(w, withPath(httptest.NewRequest("DELETE", "/admin/polls/question/x/", nil), q.ID))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestAdminResetVotes(t *testing.T) {
	h, store := newAdminHandler(t)

	q := testutil.CreateOpenQuestion(t, store, "Reset")
	a := testutil.AddTestChoice(t, store, q.ID, "A")
	b := testutil.AddTestChoice(t, store, q.ID, "B")
	for i, name := range []string{"u1", "u2", "u3"} {
		u := testutil.CreateTestUser(t, store, name, false)
		choice := a.ID
		if i == 2 {
			choice = b.ID
		}
		if _, err := store.CastVote(t.Context(), u.ID, q.ID, choice, time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	h.ResetVotes(w, withPath(httptest.NewRequest("POST", "/admin/polls/question/x/reset-votes/", nil), q.ID))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.AdminQuestionDetail
	testutil.AssertJSON(t, w, &resp)
	if resp.TotalVotes != 0 {
		t.Errorf("Expected 0 total votes, got %d", resp.TotalVotes)
	}
	if n, _ := store.CountVotes(t.Context(), q.ID); n != 0 {
		t.Errorf("Expected no vote rows, got %d", n)
	}

	w = httptest.NewRecorder()
	h.ResetVotes(w, withPath(httptest.NewRequest("POST", "/admin/polls/question/x/reset-votes/", nil), 9999))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
