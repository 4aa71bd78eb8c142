package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/contextoverflow/internal/engine"
	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/store/memory"
)

// recordingBackend remembers the last request it saw.
type recordingBackend struct {
	calls   int
	last    any
	failure error
}

func (b *recordingBackend) record(req any) error {
	b.calls++
	b.last = req
	return b.failure
}

func (b *recordingBackend) PostQuestion(_ context.Context, req PostQuestionRequest) (PostQuestionResponse, error) {
	return PostQuestionResponse{QuestionID: 7, Status: StatusPosted}, b.record(req)
}

func (b *recordingBackend) GetQuestions(_ context.Context, req GetQuestionsRequest) (QuestionsResponse, error) {
	return query.Result{Questions: []model.Question{}}, b.record(req)
}

func (b *recordingBackend) SearchQuestions(_ context.Context, req SearchQuestionsRequest) (QuestionsResponse, error) {
	return query.Result{Questions: []model.Question{}}, b.record(req)
}

func (b *recordingBackend) PostAnswer(_ context.Context, req PostAnswerRequest) (PostAnswerResponse, error) {
	return PostAnswerResponse{AnswerID: 3, QuestionID: req.QuestionID, Status: StatusPosted}, b.record(req)
}

func (b *recordingBackend) GetAnswers(_ context.Context, questionID int64) (GetAnswersResponse, error) {
	return GetAnswersResponse{QuestionID: questionID, Answers: []model.Answer{}}, b.record(questionID)
}

func (b *recordingBackend) Vote(_ context.Context, req VoteRequest) (VoteResponse, error) {
	return model.VoteOutcome{TargetID: req.TargetID, NewTotal: 1, Current: model.Upvoted}, b.record(req)
}

func (b *recordingBackend) Health(context.Context) (model.Health, error) {
	return model.Health{Status: "ok"}, nil
}

func (b *recordingBackend) Stats(context.Context) (model.SiteStats, error) {
	return model.SiteStats{}, nil
}

func TestDispatchRejectsBeforeBackend(t *testing.T) {
	cases := []struct {
		name string
		tool string
		args string
		msg  string
	}{
		{"unknown tool", "delete_question", `{}`, `unknown operation "delete_question"`},
		{"missing required", ToolPostQuestion, `{"title":"t","content":"c"}`, "missing required field(s) for post_question: tags, language"},
		{"null required", ToolGetAnswers, `{"question_id":null}`, "missing required field(s) for get_answers: question_id"},
		{"unknown field", ToolVote, `{"target_id":1,"target_type":"question","vote_type":"upvote","weight":5}`, "unknown field(s) for vote: weight"},
		{"not an object", ToolGetQuestions, `[1,2]`, "arguments must be a JSON object"},
		{"wrong type", ToolGetAnswers, `{"question_id":"seven"}`, "invalid value for field question_id"},
		{"search has no offset", ToolSearchQuestions, `{"offset":10}`, "unknown field(s) for search_questions: offset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &recordingBackend{}
			env := NewDispatcher(b).Dispatch(context.Background(), tc.tool, json.RawMessage(tc.args))
			assert.Equal(t, StatusError, env.Status)
			assert.Equal(t, string(errortypes.ErrorTypeValidation), env.ErrorType)
			assert.Equal(t, tc.msg, env.ErrorMessage)
			assert.Nil(t, env.Data)
			assert.Zero(t, b.calls)
		})
	}
}

func TestDispatchAppliesDefaults(t *testing.T) {
	b := &recordingBackend{}
	d := NewDispatcher(b)
	ctx := context.Background()

	env := d.Dispatch(ctx, ToolVote, json.RawMessage(`{"target_id":4,"target_type":"answer","vote_type":"downvote"}`))
	require.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, VoteRequest{TargetID: 4, TargetType: "answer", VoteType: "downvote", UserID: DefaultUser}, b.last)

	env = d.Dispatch(ctx, ToolPostAnswer, json.RawMessage(`{"question_id":2,"content":"body"}`))
	require.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, DefaultUser, b.last.(PostAnswerRequest).Author)

	d = NewDispatcher(b, WithDefaultUser("agent-7"))
	d.Dispatch(ctx, ToolVote, json.RawMessage(`{"target_id":4,"target_type":"answer","vote_type":"upvote"}`))
	assert.Equal(t, "agent-7", b.last.(VoteRequest).UserID)
}

func TestDispatchAcceptsCommaTags(t *testing.T) {
	b := &recordingBackend{}
	d := NewDispatcher(b)

	env := d.Dispatch(context.Background(), ToolGetQuestions, json.RawMessage(`{"tags":"Python, fastapi","limit":5}`))
	require.Equal(t, StatusSuccess, env.Status)
	req := b.last.(GetQuestionsRequest)
	assert.Equal(t, TagList{"python", "fastapi"}, req.Tags)
	assert.Equal(t, 5, req.Criteria().Limit)

	d.Dispatch(context.Background(), ToolGetQuestions, json.RawMessage(`{"tags":["go"]}`))
	assert.Equal(t, TagList{"go"}, b.last.(GetQuestionsRequest).Tags)
}

func TestDispatchEmptyArgs(t *testing.T) {
	b := &recordingBackend{}
	env := NewDispatcher(b).Dispatch(context.Background(), ToolSearchQuestions, nil)
	require.Equal(t, StatusSuccess, env.Status)
	assert.Equal(t, query.DefaultSearchLimit, b.last.(SearchQuestionsRequest).Criteria().Limit)
}

func TestDispatchWrapsForeignErrors(t *testing.T) {
	b := &recordingBackend{failure: errors.New("socket closed")}
	env := NewDispatcher(b).Dispatch(context.Background(), ToolGetAnswers, json.RawMessage(`{"question_id":1}`))
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, "internal", env.ErrorType)
	assert.Equal(t, "internal error", env.ErrorMessage)
}

func TestOperationsCoverEveryTool(t *testing.T) {
	var names []string
	for _, op := range Operations() {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{ToolPostQuestion, ToolGetQuestions, ToolSearchQuestions, ToolPostAnswer, ToolGetAnswers, ToolVote}, names)
}

func TestLocalBackendScenario(t *testing.T) {
	d := NewDispatcher(NewLocal(engine.New(memory.New())))
	ctx := context.Background()

	env := d.Dispatch(ctx, ToolPostQuestion, json.RawMessage(`{
		"title": "Why does my list comprehension leak?",
		"content": "The loop variable seems visible after the comprehension finishes.",
		"tags": ["Python"],
		"language": "python"
	}`))
	require.Equal(t, StatusSuccess, env.Status, env.ErrorMessage)
	qid := env.Data.(PostQuestionResponse).QuestionID

	vote := func(user, dir string) VoteResponse {
		args, _ := json.Marshal(map[string]any{"target_id": qid, "target_type": "question", "vote_type": dir, "user_id": user})
		env := d.Dispatch(ctx, ToolVote, args)
		require.Equal(t, StatusSuccess, env.Status, env.ErrorMessage)
		return env.Data.(VoteResponse)
	}
	assert.Equal(t, 1, vote("a", "upvote").NewTotal)
	assert.Equal(t, -1, vote("a", "downvote").NewTotal)
	assert.Equal(t, 0, vote("b", "upvote").NewTotal)

	env = d.Dispatch(ctx, ToolPostAnswer, json.RawMessage(`{"question_id": 999, "content": "An answer for a question that is not there."}`))
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, "not_found", env.ErrorType)
	assert.Equal(t, "Question not found", env.ErrorMessage)

	env = d.Dispatch(ctx, ToolGetQuestions, json.RawMessage(`{"tags":"python"}`))
	require.Equal(t, StatusSuccess, env.Status)
	res := env.Data.(QuestionsResponse)
	require.Len(t, res.Questions, 1)
	assert.Equal(t, 0, res.Questions[0].AnswerCount)
	assert.False(t, res.HasMore)

	env = d.Dispatch(ctx, ToolPostQuestion, json.RawMessage(`{"title":"short","content":"c","tags":["x"],"language":"go"}`))
	assert.Equal(t, "validation", env.ErrorType)
}

func TestEnvelopeJSON(t *testing.T) {
	data, err := json.Marshal(Failure(errortypes.Validationf("title is required")))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","error_message":"title is required","error_type":"validation"}`, string(data))

	data, err = json.Marshal(Success(PostQuestionResponse{QuestionID: 1, Status: StatusPosted}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","data":{"question_id":1,"status":"posted"}}`, string(data))
}
