package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/contextoverflow/internal/model"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func fixture() []model.Question {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []model.Question{
		{ID: 1, Title: "Goroutine leak in worker pool", Body: "My workers never exit", Tags: []string{"go", "concurrency"}, Language: "go", Votes: 3, AnswerCount: 1, CreatedAt: base},
		{ID: 2, Title: "FastAPI dependency injection", Body: "Depends() runs twice", Tags: []string{"python", "fastapi"}, Language: "python", Votes: 5, AnswerCount: 0, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Title: "Context cancellation", Body: "How do I propagate a Context?", Tags: []string{"go"}, Language: "go", Votes: 3, AnswerCount: 2, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 4, Title: "Asyncio gather ordering", Body: "Results come back shuffled", Tags: []string{"python", "asyncio"}, Language: "python", Votes: -1, AnswerCount: 0, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func ids(qs []model.Question) []int64 {
	out := make([]int64, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func TestNormalizeClampsWindow(t *testing.T) {
	c := Criteria{Limit: 1000, Offset: -5}.Normalize(0)
	assert.Equal(t, MaxLimit, c.Limit)
	assert.Equal(t, 0, c.Offset)
	assert.Equal(t, SortNew, c.Sort)

	c = Criteria{}.Normalize(50)
	assert.Equal(t, DefaultLimit, c.Limit)

	c = Criteria{Limit: 80}.Normalize(50)
	assert.Equal(t, 50, c.Limit)
}

func TestNormalizeCanonicalizesFilters(t *testing.T) {
	c := Criteria{Language: "  Go ", Tags: []string{" Go", "go", "", "HTTP"}, Text: "  leak "}.Normalize(0)
	assert.Equal(t, "go", c.Language)
	assert.Equal(t, []string{"go", "http"}, c.Tags)
	assert.Equal(t, "leak", c.Text)
}

func TestParseTags(t *testing.T) {
	assert.Nil(t, ParseTags(""))
	assert.Nil(t, ParseTags(" , ,"))
	assert.Equal(t, []string{"python", "fastapi"}, ParseTags("Python, fastapi,python"))
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortNew, s)

	s, err = ParseSort("VOTES")
	require.NoError(t, err)
	assert.Equal(t, SortVotes, s)

	_, err = ParseSort("hot")
	assert.Error(t, err)
}

func TestApplyDefaultOrderNewestFirst(t *testing.T) {
	items, total := Apply(fixture(), Criteria{}.Normalize(0))
	assert.Equal(t, 4, total)
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(items))
}

func TestApplyByVotesBreaksTiesByNewest(t *testing.T) {
	items, _ := Apply(fixture(), Criteria{Sort: SortVotes}.Normalize(0))
	assert.Equal(t, []int64{2, 3, 1, 4}, ids(items))
}

func TestApplyFiltersAreConjunctive(t *testing.T) {
	c := Criteria{
		Language:   "go",
		Tags:       []string{"concurrency", "python"},
		MinVotes:   intPtr(3),
		HasAnswers: boolPtr(true),
	}.Normalize(0)
	items, total := Apply(fixture(), c)
	assert.Equal(t, 1, total)
	assert.Equal(t, []int64{1}, ids(items))

	c.Language = "python"
	items, total = Apply(fixture(), c)
	assert.Equal(t, 0, total)
	assert.Empty(t, items)
}

func TestApplyMinVotesIsInclusive(t *testing.T) {
	items, _ := Apply(fixture(), Criteria{MinVotes: intPtr(5)}.Normalize(0))
	assert.Equal(t, []int64{2}, ids(items))
}

func TestApplyHasAnswersFalse(t *testing.T) {
	items, _ := Apply(fixture(), Criteria{HasAnswers: boolPtr(false)}.Normalize(0))
	assert.Equal(t, []int64{4, 2}, ids(items))
}

func TestApplyTextMatchIsCaseInsensitive(t *testing.T) {
	items, _ := Apply(fixture(), Criteria{Text: "CONTEXT"}.Normalize(0))
	assert.Equal(t, []int64{3}, ids(items))

	items, _ = Apply(fixture(), Criteria{Text: "shuffled"}.Normalize(0))
	assert.Equal(t, []int64{4}, ids(items))
}

func TestApplyPagination(t *testing.T) {
	for limit := 1; limit <= 5; limit++ {
		for offset := 0; offset <= 6; offset++ {
			items, total := Apply(fixture(), Criteria{Limit: limit, Offset: offset}.Normalize(0))
			assert.Equal(t, 4, total)
			assert.LessOrEqual(t, len(items), limit)
			if offset >= total {
				assert.Empty(t, items)
				assert.NotNil(t, items)
			}
		}
	}

	items, _ := Apply(fixture(), Criteria{Limit: 2, Offset: 1}.Normalize(0))
	assert.Equal(t, []int64{3, 2}, ids(items))
}

func TestSortAnswers(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	answers := []model.Answer{
		{ID: 1, Votes: 0, CreatedAt: base},
		{ID: 2, Votes: 4, CreatedAt: base.Add(time.Minute)},
		{ID: 3, Votes: 0, CreatedAt: base.Add(-time.Minute)},
		{ID: 4, Votes: 4, CreatedAt: base.Add(time.Minute)},
	}
	SortAnswers(answers)
	got := make([]int64, 0, len(answers))
	for _, a := range answers {
		got = append(got, a.ID)
	}
	assert.Equal(t, []int64{2, 4, 3, 1}, got)
}

func TestNewResultHasMore(t *testing.T) {
	c := Criteria{Limit: 2, Offset: 0}.Normalize(0)
	items, total := Apply(fixture(), c)
	r := NewResult(items, total, c)
	assert.True(t, r.HasMore)
	assert.Equal(t, 4, r.Total)

	c.Offset = 2
	items, total = Apply(fixture(), c)
	r = NewResult(items, total, c)
	assert.False(t, r.HasMore)
}
