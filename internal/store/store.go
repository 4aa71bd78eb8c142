package store

import (
	"context"
	"errors"

	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/vote"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrQuestionNotFound) || errors.Is(err, ErrAnswerNotFound)
}

type Store interface {
	QuestionStore
	AnswerStore
	VoteLedger
	GetSiteStats(ctx context.Context) (model.SiteStats, error)
	Ping(ctx context.Context) error
	Close() error
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *model.Question) (int64, error)
	GetQuestion(ctx context.Context, id int64) (model.Question, error)
	// ListQuestions expects normalized criteria and returns one page plus
	// the number of matching questions.
	ListQuestions(ctx context.Context, c query.Criteria) ([]model.Question, int, error)
}

type AnswerStore interface {
	// CreateAnswer inserts the answer and bumps the owning question's
	// answer count together. It returns ErrQuestionNotFound when the
	// question does not exist.
	CreateAnswer(ctx context.Context, a *model.Answer) (int64, error)
	GetAnswer(ctx context.Context, id int64) (model.Answer, error)
	// ListAnswers returns ErrQuestionNotFound when the question does not exist.
	ListAnswers(ctx context.Context, questionID int64) ([]model.Answer, error)
}

// VoteLedger applies votes. CastVote reads the current record, computes the
// transition with the policy, stores the new record and adds the delta to
// the target total as one atomic step.
type VoteLedger interface {
	CastVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64, requested model.Direction, policy vote.Policy) (model.VoteOutcome, error)
	GetVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64) (model.Direction, error)
}

// NotFoundFor returns the sentinel for a missing vote target.
func NotFoundFor(kind model.TargetKind) error {
	if kind == model.TargetAnswer {
		return ErrAnswerNotFound
	}
	return ErrQuestionNotFound
}
