package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/tools"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeServer answers every request with status and env, recording the request.
func fakeServer(t *testing.T, status int, env any) (*Client, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Method = r.Method
		got.Path = r.URL.Path
		got.Query = r.URL.RawQuery
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &got.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(env)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL + "/"), got
}

func TestPostQuestion(t *testing.T) {
	c, got := fakeServer(t, http.StatusCreated, tools.Success(tools.PostQuestionResponse{QuestionID: 12, Status: "posted"}))

	out, err := c.PostQuestion(context.Background(), tools.PostQuestionRequest{
		Title:    "How to embed files?",
		Content:  "I want to ship templates inside the binary.",
		Tags:     []string{"go", "embed"},
		Language: "go",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), out.QuestionID)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/questions", got.Path)
	assert.Equal(t, "How to embed files?", got.Body["title"])
	assert.Equal(t, []any{"go", "embed"}, got.Body["tags"])
}

func TestSearchQuestionsBuildsQuery(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK, tools.Success(tools.QuestionsResponse{Questions: []model.Question{{ID: 1}}, Total: 1}))

	minVotes := 2
	hasAnswers := false
	res, err := c.SearchQuestions(context.Background(), tools.SearchQuestionsRequest{
		Query:      "race condition",
		Language:   "go",
		MinVotes:   &minVotes,
		HasAnswers: &hasAnswers,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "/api/questions", got.Path)
	assert.Equal(t, "has_answers=false&language=go&limit=20&min_votes=2&q=race+condition", got.Query)
}

func TestGetQuestionsTagsJoined(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK, tools.Success(tools.QuestionsResponse{Questions: []model.Question{}}))

	limit, offset := 5, 10
	_, err := c.GetQuestions(context.Background(), tools.GetQuestionsRequest{
		Limit: &limit, Offset: &offset, Tags: tools.TagList{"python", "fastapi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "limit=5&offset=10&tags=python%2Cfastapi", got.Query)
}

func TestPostAnswerUsesQuestionPath(t *testing.T) {
	c, got := fakeServer(t, http.StatusCreated, tools.Success(tools.PostAnswerResponse{AnswerID: 3, QuestionID: 9, Status: "posted"}))

	out, err := c.PostAnswer(context.Background(), tools.PostAnswerRequest{
		QuestionID: 9,
		Content:    "Use the embed package with a //go:embed directive.",
		Author:     "gopher",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.AnswerID)
	assert.Equal(t, "/api/questions/9/answers", got.Path)
	assert.NotContains(t, got.Body, "question_id")
	assert.Equal(t, "gopher", got.Body["author"])
}

func TestVoteDecodesOutcome(t *testing.T) {
	c, got := fakeServer(t, http.StatusOK, tools.Success(model.VoteOutcome{
		TargetID: 4, TargetKind: model.TargetAnswer, Current: model.Downvoted, NewTotal: -1, Previous: model.Upvoted,
	}))

	out, err := c.Vote(context.Background(), tools.VoteRequest{TargetID: 4, TargetType: "answer", VoteType: "downvote", UserID: "a"})
	require.NoError(t, err)
	assert.Equal(t, model.Downvoted, out.Current)
	assert.Equal(t, model.Upvoted, out.Previous)
	assert.Equal(t, -1, out.NewTotal)
	assert.Equal(t, "/api/votes", got.Path)
	assert.Equal(t, "downvote", got.Body["vote_type"])
}

func TestErrorEnvelopeMapsToTaxonomy(t *testing.T) {
	c, _ := fakeServer(t, http.StatusNotFound, tools.Failure(errortypes.NotFoundError(nil, "Question not found")))

	_, err := c.GetAnswers(context.Background(), 44)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Question not found", errortypes.PublicMessage(err))
}

func TestNonEnvelopeErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, errortypes.ErrorTypeExternal, errortypes.TypeOf(err))
	assert.Contains(t, err.Error(), "upstream exploded")
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, errortypes.ErrorTypeNetwork, errortypes.TypeOf(err))
}

func TestValidate(t *testing.T) {
	assert.Error(t, New("").Validate())
	assert.NoError(t, New("http://localhost:8080").Validate())
}
