package tools

import (
	"context"

	"github.com/alphabot-ai/contextoverflow/internal/engine"
	"github.com/alphabot-ai/contextoverflow/internal/model"
)

// Local runs tool calls against an in-process engine.
type Local struct {
	engine *engine.Engine
}

func NewLocal(e *engine.Engine) *Local {
	return &Local{engine: e}
}

func (l *Local) PostQuestion(ctx context.Context, req PostQuestionRequest) (PostQuestionResponse, error) {
	q, err := l.engine.CreateQuestion(ctx, engine.QuestionInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Language: req.Language,
	})
	if err != nil {
		return PostQuestionResponse{}, err
	}
	return PostQuestionResponse{QuestionID: q.ID, Status: StatusPosted}, nil
}

func (l *Local) GetQuestions(ctx context.Context, req GetQuestionsRequest) (QuestionsResponse, error) {
	return l.engine.ListQuestions(ctx, req.Criteria())
}

func (l *Local) SearchQuestions(ctx context.Context, req SearchQuestionsRequest) (QuestionsResponse, error) {
	return l.engine.SearchQuestions(ctx, req.Criteria())
}

func (l *Local) PostAnswer(ctx context.Context, req PostAnswerRequest) (PostAnswerResponse, error) {
	a, err := l.engine.CreateAnswer(ctx, engine.AnswerInput{
		QuestionID:   req.QuestionID,
		Content:      req.Content,
		CodeExamples: req.CodeExamples,
		Author:       req.Author,
	})
	if err != nil {
		return PostAnswerResponse{}, err
	}
	return PostAnswerResponse{AnswerID: a.ID, QuestionID: a.QuestionID, Status: StatusPosted}, nil
}

func (l *Local) GetAnswers(ctx context.Context, questionID int64) (GetAnswersResponse, error) {
	answers, err := l.engine.GetAnswers(ctx, questionID)
	if err != nil {
		return GetAnswersResponse{}, err
	}
	return GetAnswersResponse{QuestionID: questionID, Answers: answers}, nil
}

func (l *Local) Vote(ctx context.Context, req VoteRequest) (VoteResponse, error) {
	return l.engine.CastVote(ctx, engine.VoteInput{
		Voter:      req.UserID,
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
		VoteType:   req.VoteType,
	})
}

func (l *Local) Health(ctx context.Context) (model.Health, error) {
	return l.engine.Health(ctx), nil
}

func (l *Local) Stats(ctx context.Context) (model.SiteStats, error) {
	return l.engine.Stats(ctx)
}
