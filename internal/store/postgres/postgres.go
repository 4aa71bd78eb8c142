// Package postgres is a Store on PostgreSQL through gorm. Tags live in a
// text[] column so tag filters run server-side with the && operator.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/vote"
)

type questionRow struct {
	ID          int64          `gorm:"primaryKey"`
	Title       string         `gorm:"size:200;not null"`
	Body        string         `gorm:"type:text;not null"`
	Tags        pq.StringArray `gorm:"type:text[];not null"`
	Language    string         `gorm:"size:50;not null;index"`
	Votes       int            `gorm:"not null;default:0;index"`
	AnswerCount int            `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}

func (questionRow) TableName() string { return "questions" }

type answerRow struct {
	ID           int64       `gorm:"primaryKey"`
	QuestionID   int64       `gorm:"not null;index"`
	Body         string      `gorm:"type:text;not null"`
	CodeExamples string      `gorm:"type:jsonb;not null"`
	Author       string      `gorm:"size:100;not null"`
	Votes        int         `gorm:"not null;default:0"`
	CreatedAt    time.Time   `gorm:"not null"`
	Question     questionRow `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (answerRow) TableName() string { return "answers" }

type voteRow struct {
	Voter      string `gorm:"primaryKey;size:200"`
	TargetType string `gorm:"primaryKey;size:16"`
	TargetID   int64  `gorm:"primaryKey"`
	Direction  int    `gorm:"not null;check:chk_votes_direction,direction IN (-1, 1)"`
	UpdatedAt  time.Time
}

func (voteRow) TableName() string { return "votes" }

type Store struct {
	db *gorm.DB
}

// Open connects with a postgres DSN and migrates the schema.
func Open(dsn string) (*Store, error) {
	gormLogger := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := db.AutoMigrate(&questionRow{}, &answerRow{}, &voteRow{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) CreateQuestion(ctx context.Context, q *model.Question) (int64, error) {
	row := questionRow{
		Title:     q.Title,
		Body:      q.Body,
		Tags:      pq.StringArray(q.Tags),
		Language:  q.Language,
		CreatedAt: q.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	var row questionRow
	err := s.db.WithContext(ctx).Take(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Question{}, store.ErrQuestionNotFound
	}
	if err != nil {
		return model.Question{}, err
	}
	return row.toModel(), nil
}

func (s *Store) ListQuestions(ctx context.Context, c query.Criteria) ([]model.Question, int, error) {
	var total int64
	if err := s.filtered(ctx, c).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if int64(c.Offset) >= total {
		return []model.Question{}, int(total), nil
	}

	order := "created_at DESC, id DESC"
	if c.Sort == query.SortVotes {
		order = "votes DESC, created_at DESC, id DESC"
	}
	var rows []questionRow
	err := s.filtered(ctx, c).Order(order).Limit(c.Limit).Offset(c.Offset).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	questions := make([]model.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.toModel())
	}
	return questions, int(total), nil
}

func (s *Store) filtered(ctx context.Context, c query.Criteria) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&questionRow{})
	if c.Language != "" {
		tx = tx.Where("language = ?", c.Language)
	}
	if len(c.Tags) > 0 {
		tx = tx.Where("tags && ?", pq.StringArray(c.Tags))
	}
	if c.MinVotes != nil {
		tx = tx.Where("votes >= ?", *c.MinVotes)
	}
	if c.HasAnswers != nil {
		if *c.HasAnswers {
			tx = tx.Where("answer_count > 0")
		} else {
			tx = tx.Where("answer_count = 0")
		}
	}
	if c.Text != "" {
		pattern := "%" + escapeLike(c.Text) + "%"
		tx = tx.Where("(title ILIKE ? OR body ILIKE ?)", pattern, pattern)
	}
	return tx
}

func (s *Store) CreateAnswer(ctx context.Context, a *model.Answer) (int64, error) {
	examples := a.CodeExamples
	if examples == nil {
		examples = []model.CodeExample{}
	}
	encoded, err := json.Marshal(examples)
	if err != nil {
		return 0, err
	}
	row := answerRow{
		QuestionID:   a.QuestionID,
		Body:         a.Body,
		CodeExamples: string(encoded),
		Author:       a.Author,
		CreatedAt:    a.CreatedAt.UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&questionRow{}).Where("id = ?", a.QuestionID).
			UpdateColumn("answer_count", gorm.Expr("answer_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrQuestionNotFound
		}
		return tx.Omit(clause.Associations).Create(&row).Error
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (model.Answer, error) {
	var row answerRow
	err := s.db.WithContext(ctx).Take(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Answer{}, store.ErrAnswerNotFound
	}
	if err != nil {
		return model.Answer{}, err
	}
	return row.toModel(), nil
}

func (s *Store) ListAnswers(ctx context.Context, questionID int64) ([]model.Answer, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&questionRow{}).Where("id = ?", questionID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, store.ErrQuestionNotFound
	}

	var rows []answerRow
	err := s.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("votes DESC, created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	answers := make([]model.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, row.toModel())
	}
	return answers, nil
}

func (s *Store) GetVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64) (model.Direction, error) {
	var row voteRow
	err := s.db.WithContext(ctx).
		Where("voter = ? AND target_type = ? AND target_id = ?", voter, string(kind), targetID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.NoVote, nil
	}
	if err != nil {
		return model.NoVote, err
	}
	return model.Direction(row.Direction), nil
}

func (s *Store) CastVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64, requested model.Direction, policy vote.Policy) (model.VoteOutcome, error) {
	table, err := targetTable(kind)
	if err != nil {
		return model.VoteOutcome{}, err
	}

	var out model.VoteOutcome
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total int
		// The row lock on the target serializes every vote on it.
		row := tx.Table(table).Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("votes").Where("id = ?", targetID).Row()
		if err := row.Scan(&total); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.NotFoundFor(kind)
			}
			return err
		}

		var current voteRow
		err := tx.Where("voter = ? AND target_type = ? AND target_id = ?", voter, string(kind), targetID).
			Take(&current).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		step := policy.Transition(model.Direction(current.Direction), requested)
		if step.Changed() {
			if step.Next == model.NoVote {
				err = tx.Where("voter = ? AND target_type = ? AND target_id = ?", voter, string(kind), targetID).
					Delete(&voteRow{}).Error
			} else {
				err = tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "voter"}, {Name: "target_type"}, {Name: "target_id"}},
					DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
				}).Create(&voteRow{
					Voter:      voter,
					TargetType: string(kind),
					TargetID:   targetID,
					Direction:  step.Next.Weight(),
				}).Error
			}
			if err != nil {
				return err
			}
			if err := applyVoteDelta(tx, table, targetID, step.Delta); err != nil {
				return err
			}
			total += step.Delta
		}

		out = model.VoteOutcome{
			TargetID:   targetID,
			TargetKind: kind,
			Current:    step.Next,
			NewTotal:   total,
			Previous:   step.Previous,
		}
		return nil
	})
	return out, err
}

func applyVoteDelta(tx *gorm.DB, table string, id int64, delta int) error {
	return tx.Table(table).Where("id = ?", id).UpdateColumn("votes", gorm.Expr("votes + ?", delta)).Error
}

func (s *Store) GetSiteStats(ctx context.Context) (model.SiteStats, error) {
	var stats model.SiteStats
	db := s.db.WithContext(ctx)

	if err := db.Model(&questionRow{}).Count(&stats.Questions).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&questionRow{}).Select("COALESCE(SUM(votes), 0)").Row().Scan(&stats.QuestionVoteSum); err != nil {
		return stats, err
	}
	if err := db.Model(&answerRow{}).Count(&stats.Answers).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&voteRow{}).Count(&stats.Votes).Error; err != nil {
		return stats, err
	}
	if err := db.Raw(`SELECT COUNT(DISTINCT t) FROM questions, unnest(tags) AS t`).Row().Scan(&stats.UniqueTags); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r questionRow) toModel() model.Question {
	return model.Question{
		ID:          r.ID,
		Title:       r.Title,
		Body:        r.Body,
		Tags:        []string(r.Tags),
		Language:    r.Language,
		Votes:       r.Votes,
		AnswerCount: r.AnswerCount,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func (r answerRow) toModel() model.Answer {
	examples := []model.CodeExample{}
	if r.CodeExamples != "" {
		_ = json.Unmarshal([]byte(r.CodeExamples), &examples)
	}
	if examples == nil {
		examples = []model.CodeExample{}
	}
	return model.Answer{
		ID:           r.ID,
		QuestionID:   r.QuestionID,
		Body:         r.Body,
		CodeExamples: examples,
		Author:       r.Author,
		Votes:        r.Votes,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

func targetTable(kind model.TargetKind) (string, error) {
	switch kind {
	case model.TargetQuestion:
		return "questions", nil
	case model.TargetAnswer:
		return "answers", nil
	}
	return "", fmt.Errorf("unknown target kind %q", kind)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
