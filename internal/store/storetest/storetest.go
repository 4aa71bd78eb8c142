// Package storetest is a conformance suite run against every Store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/vote"
)

// Opener returns an empty store. The suite closes it.
type Opener func(t *testing.T) store.Store

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"QuestionLifecycle", testQuestionLifecycle},
		{"MissingQuestion", testMissingQuestion},
		{"AnswerLifecycle", testAnswerLifecycle},
		{"AnswerToMissingQuestion", testAnswerToMissingQuestion},
		{"VoteScenario", testVoteScenario},
		{"VoteRepeatIgnored", testVoteRepeatIgnored},
		{"VoteRepeatRetracts", testVoteRepeatRetracts},
		{"AnswerVotesOrderAnswers", testAnswerVotes},
		{"VoteMissingTarget", testVoteMissingTarget},
		{"ListQuestionsFilters", testListQuestionsFilters},
		{"ListQuestionsPagination", testListQuestionsPagination},
		{"TextSearchFoldsUnicode", testTextSearchFoldsUnicode},
		{"ConcurrentVotes", testConcurrentVotes},
		{"SiteStats", testSiteStats},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := open(t)
			defer st.Close()
			tc.fn(t, st)
		})
	}
}

func mustQuestion(t *testing.T, st store.Store, title, lang string, tags []string, at time.Time) int64 {
	t.Helper()
	q := model.Question{
		Title:     title,
		Body:      "Body for " + title,
		Tags:      tags,
		Language:  lang,
		CreatedAt: at,
	}
	id, err := st.CreateQuestion(context.Background(), &q)
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	return id
}

func mustAnswer(t *testing.T, st store.Store, questionID int64, body string, at time.Time) int64 {
	t.Helper()
	a := model.Answer{
		QuestionID: questionID,
		Body:       body,
		Author:     model.AnonymousAuthor,
		CreatedAt:  at,
	}
	id, err := st.CreateAnswer(context.Background(), &a)
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	return id
}

func mustVote(t *testing.T, st store.Store, voter string, kind model.TargetKind, id int64, dir model.Direction, policy vote.Policy) model.VoteOutcome {
	t.Helper()
	out, err := st.CastVote(context.Background(), voter, kind, id, dir, policy)
	if err != nil {
		t.Fatalf("cast vote: %v", err)
	}
	return out
}

func testQuestionLifecycle(t *testing.T, st store.Store) {
	ctx := context.Background()
	id := mustQuestion(t, st, "How do channels close?", "go", []string{"go", "channels"}, base)
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}
	second := mustQuestion(t, st, "Second question here", "go", []string{"go"}, base.Add(time.Second))
	if second <= id {
		t.Fatalf("expected monotonic ids, got %d then %d", id, second)
	}

	got, err := st.GetQuestion(ctx, id)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.Title != "How do channels close?" || got.Language != "go" {
		t.Fatalf("unexpected question: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "channels" {
		t.Fatalf("tags not preserved: %v", got.Tags)
	}
	if got.Votes != 0 || got.AnswerCount != 0 {
		t.Fatalf("expected zero totals, got votes=%d answers=%d", got.Votes, got.AnswerCount)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("created_at not preserved: %v", got.CreatedAt)
	}

	items, total, err := st.ListQuestions(ctx, query.Criteria{}.Normalize(0))
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if total != 2 || len(items) != 2 || items[0].ID != second {
		t.Fatalf("unexpected listing: total=%d items=%v", total, items)
	}
}

func testMissingQuestion(t *testing.T, st store.Store) {
	_, err := st.GetQuestion(context.Background(), 999)
	if !store.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, err = st.ListAnswers(context.Background(), 999)
	if !errors.Is(err, store.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	_, err = st.GetAnswer(context.Background(), 999)
	if !errors.Is(err, store.ErrAnswerNotFound) {
		t.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}
}

func testAnswerLifecycle(t *testing.T, st store.Store) {
	ctx := context.Background()
	qid := mustQuestion(t, st, "Why is my map nil?", "go", []string{"go", "maps"}, base)

	a := model.Answer{
		QuestionID: qid,
		Body:       "Initialize it with make before writing.",
		CodeExamples: []model.CodeExample{
			{Language: "go", Code: "m := make(map[string]int)"},
			{Language: "go", Code: "m[\"a\"] = 1"},
		},
		Author:    "gopher",
		CreatedAt: base.Add(time.Minute),
	}
	aid, err := st.CreateAnswer(ctx, &a)
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	mustAnswer(t, st, qid, "A second answer body text.", base.Add(2*time.Minute))

	q, err := st.GetQuestion(ctx, qid)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.AnswerCount != 2 {
		t.Fatalf("expected answer_count 2, got %d", q.AnswerCount)
	}

	answers, err := st.ListAnswers(ctx, qid)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if len(answers) != 2 || answers[0].ID != aid {
		t.Fatalf("expected oldest answer first on equal votes, got %+v", answers)
	}
	first := answers[0]
	if first.Author != "gopher" || first.QuestionID != qid {
		t.Fatalf("unexpected answer: %+v", first)
	}
	if len(first.CodeExamples) != 2 || first.CodeExamples[1].Code != "m[\"a\"] = 1" {
		t.Fatalf("code examples not preserved: %+v", first.CodeExamples)
	}
	if answers[1].CodeExamples == nil {
		t.Fatalf("expected empty code examples slice, got nil")
	}

	got, err := st.GetAnswer(ctx, aid)
	if err != nil {
		t.Fatalf("get answer: %v", err)
	}
	if got.Body != a.Body {
		t.Fatalf("unexpected body: %s", got.Body)
	}
}

func testAnswerToMissingQuestion(t *testing.T, st store.Store) {
	ctx := context.Background()
	qid := mustQuestion(t, st, "Existing question", "go", []string{"go"}, base)

	a := model.Answer{QuestionID: qid + 100, Body: "Nobody will see this.", Author: "x", CreatedAt: base}
	if _, err := st.CreateAnswer(ctx, &a); !errors.Is(err, store.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	q, _ := st.GetQuestion(ctx, qid)
	if q.AnswerCount != 0 {
		t.Fatalf("answer count changed: %d", q.AnswerCount)
	}
	stats, err := st.GetSiteStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Answers != 0 {
		t.Fatalf("expected no answers, got %d", stats.Answers)
	}
}

func testVoteScenario(t *testing.T, st store.Store) {
	qid := mustQuestion(t, st, "X marks the spot", "python", []string{"python"}, base)

	out := mustVote(t, st, "a", model.TargetQuestion, qid, model.Upvoted, vote.PolicyIgnore)
	if out.NewTotal != 1 || out.Previous != model.NoVote || out.Current != model.Upvoted {
		t.Fatalf("first vote: %+v", out)
	}
	out = mustVote(t, st, "a", model.TargetQuestion, qid, model.Downvoted, vote.PolicyIgnore)
	if out.NewTotal != -1 || out.Previous != model.Upvoted || out.Current != model.Downvoted {
		t.Fatalf("switch vote: %+v", out)
	}
	out = mustVote(t, st, "b", model.TargetQuestion, qid, model.Upvoted, vote.PolicyIgnore)
	if out.NewTotal != 0 {
		t.Fatalf("second voter: %+v", out)
	}

	q, _ := st.GetQuestion(context.Background(), qid)
	if q.Votes != 0 {
		t.Fatalf("stored total %d, want 0", q.Votes)
	}
	dir, err := st.GetVote(context.Background(), "a", model.TargetQuestion, qid)
	if err != nil {
		t.Fatalf("get vote: %v", err)
	}
	if dir != model.Downvoted {
		t.Fatalf("expected a downvoted, got %v", dir)
	}
}

func testVoteRepeatIgnored(t *testing.T, st store.Store) {
	qid := mustQuestion(t, st, "Repeat votes question", "go", []string{"go"}, base)
	mustVote(t, st, "a", model.TargetQuestion, qid, model.Upvoted, vote.PolicyIgnore)
	out := mustVote(t, st, "a", model.TargetQuestion, qid, model.Upvoted, vote.PolicyIgnore)
	if out.NewTotal != 1 || out.Previous != model.Upvoted || out.Current != model.Upvoted {
		t.Fatalf("repeat vote: %+v", out)
	}
	stats, _ := st.GetSiteStats(context.Background())
	if stats.Votes != 1 {
		t.Fatalf("expected one ledger record, got %d", stats.Votes)
	}
}

func testVoteRepeatRetracts(t *testing.T, st store.Store) {
	qid := mustQuestion(t, st, "Retract votes question", "go", []string{"go"}, base)
	mustVote(t, st, "a", model.TargetQuestion, qid, model.Downvoted, vote.PolicyRetract)
	out := mustVote(t, st, "a", model.TargetQuestion, qid, model.Downvoted, vote.PolicyRetract)
	if out.NewTotal != 0 || out.Previous != model.Downvoted || out.Current != model.NoVote {
		t.Fatalf("retract: %+v", out)
	}
	dir, _ := st.GetVote(context.Background(), "a", model.TargetQuestion, qid)
	if dir != model.NoVote {
		t.Fatalf("expected no vote after retract, got %v", dir)
	}
	out = mustVote(t, st, "a", model.TargetQuestion, qid, model.Upvoted, vote.PolicyRetract)
	if out.NewTotal != 1 || out.Previous != model.NoVote {
		t.Fatalf("vote after retract: %+v", out)
	}
}

func testAnswerVotes(t *testing.T, st store.Store) {
	ctx := context.Background()
	qid := mustQuestion(t, st, "Answer voting question", "go", []string{"go"}, base)
	first := mustAnswer(t, st, qid, "First answer body here.", base.Add(time.Minute))
	second := mustAnswer(t, st, qid, "Second answer body here.", base.Add(2*time.Minute))

	mustVote(t, st, "a", model.TargetAnswer, second, model.Upvoted, vote.PolicyIgnore)
	out := mustVote(t, st, "b", model.TargetAnswer, second, model.Upvoted, vote.PolicyIgnore)
	if out.NewTotal != 2 || out.TargetKind != model.TargetAnswer {
		t.Fatalf("answer vote: %+v", out)
	}
	mustVote(t, st, "a", model.TargetAnswer, first, model.Downvoted, vote.PolicyIgnore)

	answers, err := st.ListAnswers(ctx, qid)
	if err != nil {
		t.Fatalf("list answers: %v", err)
	}
	if answers[0].ID != second || answers[0].Votes != 2 || answers[1].Votes != -1 {
		t.Fatalf("unexpected order: %+v", answers)
	}

	// A question and an answer with the same id are separate targets.
	q, _ := st.GetQuestion(ctx, qid)
	if q.Votes != 0 {
		t.Fatalf("question total leaked from answer votes: %d", q.Votes)
	}
}

func testVoteMissingTarget(t *testing.T, st store.Store) {
	_, err := st.CastVote(context.Background(), "a", model.TargetQuestion, 42, model.Upvoted, vote.PolicyIgnore)
	if !errors.Is(err, store.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	_, err = st.CastVote(context.Background(), "a", model.TargetAnswer, 42, model.Upvoted, vote.PolicyIgnore)
	if !errors.Is(err, store.ErrAnswerNotFound) {
		t.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}
}

func testListQuestionsFilters(t *testing.T, st store.Store) {
	ctx := context.Background()
	goID := mustQuestion(t, st, "Goroutine leak in pool", "go", []string{"go", "concurrency"}, base)
	pyID := mustQuestion(t, st, "FastAPI Depends twice", "python", []string{"python", "fastapi"}, base.Add(time.Second))
	rsID := mustQuestion(t, st, "Borrow checker context", "rust", []string{"rust"}, base.Add(2*time.Second))

	mustAnswer(t, st, goID, "Close the jobs channel.", base.Add(time.Minute))
	mustVote(t, st, "a", model.TargetQuestion, goID, model.Upvoted, vote.PolicyIgnore)
	mustVote(t, st, "b", model.TargetQuestion, goID, model.Upvoted, vote.PolicyIgnore)
	mustVote(t, st, "a", model.TargetQuestion, pyID, model.Upvoted, vote.PolicyIgnore)
	mustVote(t, st, "a", model.TargetQuestion, rsID, model.Downvoted, vote.PolicyIgnore)

	minVotes := 1
	hasAnswers := true
	noAnswers := false
	cases := []struct {
		name string
		c    query.Criteria
		want []int64
	}{
		{"all newest first", query.Criteria{}, []int64{rsID, pyID, goID}},
		{"by votes", query.Criteria{Sort: query.SortVotes}, []int64{goID, pyID, rsID}},
		{"language", query.Criteria{Language: "Python"}, []int64{pyID}},
		{"tag intersection", query.Criteria{Tags: []string{"rust", "concurrency"}}, []int64{rsID, goID}},
		{"min votes inclusive", query.Criteria{MinVotes: &minVotes}, []int64{pyID, goID}},
		{"has answers", query.Criteria{HasAnswers: &hasAnswers}, []int64{goID}},
		{"no answers", query.Criteria{HasAnswers: &noAnswers}, []int64{rsID, pyID}},
		{"text in title", query.Criteria{Text: "DEPENDS"}, []int64{pyID}},
		{"text in body", query.Criteria{Text: "borrow checker"}, []int64{rsID}},
		{"conjunction", query.Criteria{Language: "go", Tags: []string{"go"}, MinVotes: &minVotes, HasAnswers: &hasAnswers, Text: "leak"}, []int64{goID}},
		{"conjunction excludes", query.Criteria{Language: "python", HasAnswers: &hasAnswers}, nil},
	}
	for _, tc := range cases {
		items, total, err := st.ListQuestions(ctx, tc.c.Normalize(0))
		if err != nil {
			t.Fatalf("%s: list: %v", tc.name, err)
		}
		if total != len(tc.want) || len(items) != len(tc.want) {
			t.Fatalf("%s: expected %v, got total=%d items=%v", tc.name, tc.want, total, items)
		}
		for i, id := range tc.want {
			if items[i].ID != id {
				t.Fatalf("%s: position %d expected %d, got %d", tc.name, i, id, items[i].ID)
			}
		}
	}

	items, _, _ := st.ListQuestions(ctx, query.Criteria{Language: "go"}.Normalize(0))
	if items[0].AnswerCount != 1 || items[0].Votes != 2 {
		t.Fatalf("expected derived counters in listing, got %+v", items[0])
	}
}

func testTextSearchFoldsUnicode(t *testing.T, st store.Store) {
	ctx := context.Background()
	id := mustQuestion(t, st, "Sorting école names with Ωmega weights", "go", []string{"unicode"}, base)
	mustQuestion(t, st, "Plain ASCII question about sorting", "go", []string{"sort"}, base.Add(time.Second))

	for _, text := range []string{"ÉCOLE", "école", "ΩMEGA", "ωmega"} {
		items, total, err := st.ListQuestions(ctx, query.Criteria{Text: text}.Normalize(0))
		if err != nil {
			t.Fatalf("%s: list: %v", text, err)
		}
		if total != 1 || len(items) != 1 || items[0].ID != id {
			t.Fatalf("%s: expected only question %d, got total=%d items=%v", text, id, total, items)
		}
	}
}

func testListQuestionsPagination(t *testing.T, st store.Store) {
	ctx := context.Background()
	var created []int64
	for i := 0; i < 7; i++ {
		created = append(created, mustQuestion(t, st, fmt.Sprintf("Pagination question %d", i), "go", []string{"go"}, base.Add(time.Duration(i)*time.Second)))
	}

	seen := make(map[int64]bool)
	for offset := 0; offset < 7; offset += 3 {
		items, total, err := st.ListQuestions(ctx, query.Criteria{Limit: 3, Offset: offset}.Normalize(0))
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 7 {
			t.Fatalf("expected total 7, got %d", total)
		}
		if len(items) > 3 {
			t.Fatalf("page larger than limit: %d", len(items))
		}
		for _, q := range items {
			if seen[q.ID] {
				t.Fatalf("question %d returned twice", q.ID)
			}
			seen[q.ID] = true
		}
	}
	if len(seen) != 7 {
		t.Fatalf("expected to page through 7 questions, saw %d", len(seen))
	}

	items, total, err := st.ListQuestions(ctx, query.Criteria{Limit: 3, Offset: 7}.Normalize(0))
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if total != 7 || len(items) != 0 {
		t.Fatalf("expected empty page past end, got total=%d items=%d", total, len(items))
	}

	items, _, _ = st.ListQuestions(ctx, query.Criteria{Limit: 1}.Normalize(0))
	if items[0].ID != created[6] {
		t.Fatalf("expected newest question first, got %d", items[0].ID)
	}
}

func testConcurrentVotes(t *testing.T, st store.Store) {
	qid := mustQuestion(t, st, "Concurrent votes question", "go", []string{"go"}, base)

	const voters = 20
	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			voter := fmt.Sprintf("voter-%d", i)
			if _, err := st.CastVote(context.Background(), voter, model.TargetQuestion, qid, model.Downvoted, vote.PolicyIgnore); err != nil {
				errs <- err
				return
			}
			if _, err := st.CastVote(context.Background(), voter, model.TargetQuestion, qid, model.Upvoted, vote.PolicyIgnore); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent vote: %v", err)
	}

	q, err := st.GetQuestion(context.Background(), qid)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.Votes != voters {
		t.Fatalf("expected total %d, got %d", voters, q.Votes)
	}
}

func testSiteStats(t *testing.T, st store.Store) {
	ctx := context.Background()
	q1 := mustQuestion(t, st, "Stats question one", "go", []string{"go", "http"}, base)
	q2 := mustQuestion(t, st, "Stats question two", "go", []string{"go", "sql"}, base.Add(time.Second))
	a1 := mustAnswer(t, st, q1, "Stats answer body.", base.Add(time.Minute))
	mustVote(t, st, "a", model.TargetQuestion, q1, model.Upvoted, vote.PolicyIgnore)
	mustVote(t, st, "b", model.TargetQuestion, q2, model.Upvoted, vote.PolicyIgnore)
	mustVote(t, st, "a", model.TargetAnswer, a1, model.Downvoted, vote.PolicyIgnore)

	stats, err := st.GetSiteStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Questions != 2 || stats.Answers != 1 || stats.Votes != 3 || stats.UniqueTags != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.QuestionVoteSum != 2 {
		t.Fatalf("expected question vote sum 2, got %d", stats.QuestionVoteSum)
	}
	if err := st.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
