// Package engine holds the Q&A operations: input validation, the calls into
// the content store and vote ledger, and the translation of storage
// failures into the error taxonomy.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/vote"
)

const (
	HealthMessage = "Context Overflow API is running"
	pingTimeout   = 2 * time.Second
)

type Engine struct {
	store   store.Store
	policy  vote.Policy
	maxPage int
	now     func() time.Time
	logger  *slog.Logger
}

type Option func(*Engine)

// WithVotePolicy sets what a repeated identical vote does.
func WithVotePolicy(p vote.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithMaxPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPage = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		policy:  vote.PolicyIgnore,
		maxPage: query.MaxLimit,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() vote.Policy {
	return e.policy
}

type QuestionInput struct {
	Title    string
	Content  string
	Tags     []string
	Language string
}

func (e *Engine) CreateQuestion(ctx context.Context, in QuestionInput) (model.Question, error) {
	q, err := validateQuestion(in)
	if err != nil {
		return model.Question{}, err
	}
	q.CreatedAt = e.now().UTC()

	id, err := e.store.CreateQuestion(ctx, &q)
	if err != nil {
		return model.Question{}, e.storageError(err, "create question")
	}
	q.ID = id
	return q, nil
}

func (e *Engine) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	if id <= 0 {
		return model.Question{}, e.storageError(store.ErrQuestionNotFound, "get question").WithField("question_id", id)
	}
	q, err := e.store.GetQuestion(ctx, id)
	if err != nil {
		return model.Question{}, e.storageError(err, "get question").WithField("question_id", id)
	}
	return q, nil
}

// ListQuestions normalizes c and returns one page of matching questions.
func (e *Engine) ListQuestions(ctx context.Context, c query.Criteria) (query.Result, error) {
	c = c.Normalize(e.maxPage)
	items, total, err := e.store.ListQuestions(ctx, c)
	if err != nil {
		return query.Result{}, e.storageError(err, "list questions")
	}
	return query.NewResult(items, total, c), nil
}

// SearchQuestions is ListQuestions with the larger default page used for
// text search.
func (e *Engine) SearchQuestions(ctx context.Context, c query.Criteria) (query.Result, error) {
	if c.Limit <= 0 {
		c.Limit = query.DefaultSearchLimit
	}
	return e.ListQuestions(ctx, c)
}

type AnswerInput struct {
	QuestionID   int64
	Content      string
	CodeExamples []model.CodeExample
	Author       string
}

func (e *Engine) CreateAnswer(ctx context.Context, in AnswerInput) (model.Answer, error) {
	a, err := validateAnswer(in)
	if err != nil {
		return model.Answer{}, err
	}
	if in.QuestionID <= 0 {
		return model.Answer{}, e.storageError(store.ErrQuestionNotFound, "create answer").WithField("question_id", in.QuestionID)
	}
	a.CreatedAt = e.now().UTC()

	id, err := e.store.CreateAnswer(ctx, &a)
	if err != nil {
		return model.Answer{}, e.storageError(err, "create answer").WithField("question_id", in.QuestionID)
	}
	a.ID = id
	return a, nil
}

func (e *Engine) GetAnswers(ctx context.Context, questionID int64) ([]model.Answer, error) {
	if questionID <= 0 {
		return nil, e.storageError(store.ErrQuestionNotFound, "list answers").WithField("question_id", questionID)
	}
	answers, err := e.store.ListAnswers(ctx, questionID)
	if err != nil {
		return nil, e.storageError(err, "list answers").WithField("question_id", questionID)
	}
	if answers == nil {
		answers = []model.Answer{}
	}
	return answers, nil
}

type VoteInput struct {
	Voter      string
	TargetID   int64
	TargetType string
	VoteType   string
}

func (e *Engine) CastVote(ctx context.Context, in VoteInput) (model.VoteOutcome, error) {
	voter, kind, dir, err := validateVote(in)
	if err != nil {
		return model.VoteOutcome{}, err
	}
	// Ids start at 1.
	if in.TargetID <= 0 {
		return model.VoteOutcome{}, e.storageError(store.NotFoundFor(kind), "cast vote").
			WithField("target_type", string(kind)).
			WithField("target_id", in.TargetID)
	}
	out, err := e.store.CastVote(ctx, voter, kind, in.TargetID, dir, e.policy)
	if err != nil {
		return model.VoteOutcome{}, e.storageError(err, "cast vote").
			WithField("target_type", string(kind)).
			WithField("target_id", in.TargetID)
	}
	return out, nil
}

// Stats returns the store counters plus the derived averages.
func (e *Engine) Stats(ctx context.Context) (model.SiteStats, error) {
	stats, err := e.store.GetSiteStats(ctx)
	if err != nil {
		return model.SiteStats{}, e.storageError(err, "site stats")
	}
	if stats.Questions > 0 {
		stats.AvgVotesPerQuestion = float64(stats.QuestionVoteSum) / float64(stats.Questions)
		stats.AvgAnswersPerQuestion = float64(stats.Answers) / float64(stats.Questions)
	}
	stats.PlatformHealth = "healthy"
	stats.LastUpdated = e.now().UTC()
	return stats, nil
}

// Health never fails; an unreachable store is reported in the snapshot.
func (e *Engine) Health(ctx context.Context) model.Health {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	h := model.Health{Message: HealthMessage, Database: "healthy", Status: "ok"}
	if err := e.store.Ping(ctx); err != nil {
		e.logger.Warn("store ping failed", "error", err)
		h.Database = "unhealthy"
		h.Status = "degraded"
	}
	return h
}

func (e *Engine) storageError(err error, op string) *errortypes.AppError {
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if store.IsNotFound(err) {
		return errortypes.NotFoundError(err, notFoundMessage(err))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errortypes.InternalError(err, op+" interrupted")
	}
	appErr = errortypes.DatabaseError(err, op+" failed")
	errortypes.LogError(e.logger, appErr)
	return appErr
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrQuestionNotFound):
		return "Question not found"
	case errors.Is(err, store.ErrAnswerNotFound):
		return "Answer not found"
	}
	return "Not found"
}
