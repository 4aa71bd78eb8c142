// Package memory is a Store kept in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/vote"
)

type voteKey struct {
	voter    string
	kind     model.TargetKind
	targetID int64
}

// Store owns its tables. One lock serializes writers across all tables so
// a vote record and the total it feeds always change together.
type Store struct {
	mu sync.RWMutex

	questions    map[int64]*model.Question
	answers      map[int64]*model.Answer
	byQuestion   map[int64][]int64
	votes        map[voteKey]model.VoteRecord
	nextQuestion int64
	nextAnswer   int64
}

func New() *Store {
	return &Store{
		questions:  make(map[int64]*model.Question),
		answers:    make(map[int64]*model.Answer),
		byQuestion: make(map[int64][]int64),
		votes:      make(map[voteKey]model.VoteRecord),
	}
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateQuestion(ctx context.Context, q *model.Question) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextQuestion++
	stored := *q
	stored.ID = s.nextQuestion
	stored.Tags = append([]string(nil), q.Tags...)
	stored.Votes = 0
	stored.AnswerCount = 0
	s.questions[stored.ID] = &stored
	return stored.ID, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return model.Question{}, store.ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (s *Store) ListQuestions(ctx context.Context, c query.Criteria) ([]model.Question, int, error) {
	s.mu.RLock()
	all := make([]model.Question, 0, len(s.questions))
	for _, q := range s.questions {
		all = append(all, copyQuestion(q))
	}
	s.mu.RUnlock()

	items, total := query.Apply(all, c)
	return items, total, nil
}

func (s *Store) CreateAnswer(ctx context.Context, a *model.Answer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[a.QuestionID]
	if !ok {
		return 0, store.ErrQuestionNotFound
	}
	s.nextAnswer++
	stored := *a
	stored.ID = s.nextAnswer
	stored.CodeExamples = append([]model.CodeExample(nil), a.CodeExamples...)
	stored.Votes = 0
	s.answers[stored.ID] = &stored
	s.byQuestion[q.ID] = append(s.byQuestion[q.ID], stored.ID)
	q.AnswerCount++
	return stored.ID, nil
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.answers[id]
	if !ok {
		return model.Answer{}, store.ErrAnswerNotFound
	}
	return copyAnswer(a), nil
}

func (s *Store) ListAnswers(ctx context.Context, questionID int64) ([]model.Answer, error) {
	s.mu.RLock()
	if _, ok := s.questions[questionID]; !ok {
		s.mu.RUnlock()
		return nil, store.ErrQuestionNotFound
	}
	ids := s.byQuestion[questionID]
	answers := make([]model.Answer, 0, len(ids))
	for _, id := range ids {
		answers = append(answers, copyAnswer(s.answers[id]))
	}
	s.mu.RUnlock()

	query.SortAnswers(answers)
	return answers, nil
}

func (s *Store) GetVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64) (model.Direction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.votes[voteKey{voter, kind, targetID}].Direction, nil
}

func (s *Store) CastVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64, requested model.Direction, policy vote.Policy) (model.VoteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, ok := s.totalLocked(kind, targetID)
	if !ok {
		return model.VoteOutcome{}, store.NotFoundFor(kind)
	}

	key := voteKey{voter, kind, targetID}
	step := policy.Transition(s.votes[key].Direction, requested)
	if step.Changed() {
		if step.Next == model.NoVote {
			delete(s.votes, key)
		} else {
			s.votes[key] = model.VoteRecord{
				Voter:      voter,
				TargetKind: kind,
				TargetID:   targetID,
				Direction:  step.Next,
				UpdatedAt:  time.Now(),
			}
		}
		total = s.applyVoteDeltaLocked(kind, targetID, step.Delta)
	}

	return model.VoteOutcome{
		TargetID:   targetID,
		TargetKind: kind,
		Current:    step.Next,
		NewTotal:   total,
		Previous:   step.Previous,
	}, nil
}

func (s *Store) totalLocked(kind model.TargetKind, id int64) (int, bool) {
	switch kind {
	case model.TargetQuestion:
		if q, ok := s.questions[id]; ok {
			return q.Votes, true
		}
	case model.TargetAnswer:
		if a, ok := s.answers[id]; ok {
			return a.Votes, true
		}
	}
	return 0, false
}

// applyVoteDeltaLocked is only reached from CastVote.
func (s *Store) applyVoteDeltaLocked(kind model.TargetKind, id int64, delta int) int {
	if kind == model.TargetAnswer {
		a := s.answers[id]
		a.Votes += delta
		return a.Votes
	}
	q := s.questions[id]
	q.Votes += delta
	return q.Votes
}

func (s *Store) GetSiteStats(ctx context.Context) (model.SiteStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.SiteStats{
		Questions: int64(len(s.questions)),
		Answers:   int64(len(s.answers)),
		Votes:     int64(len(s.votes)),
	}
	tags := make(map[string]struct{})
	for _, q := range s.questions {
		stats.QuestionVoteSum += int64(q.Votes)
		for _, tag := range q.Tags {
			tags[tag] = struct{}{}
		}
	}
	stats.UniqueTags = int64(len(tags))
	return stats, nil
}

func copyQuestion(q *model.Question) model.Question {
	out := *q
	out.Tags = append([]string(nil), q.Tags...)
	return out
}

func copyAnswer(a *model.Answer) model.Answer {
	out := *a
	out.CodeExamples = append([]model.CodeExample{}, a.CodeExamples...)
	return out
}
