package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/vote"

	sqlitedrv "modernc.org/sqlite"
)

// foldFunc is the SQL name of a Unicode lower-casing function. The built-in
// LOWER and LIKE only fold ASCII.
const foldFunc = "co_fold"

func init() {
	sqlitedrv.MustRegisterDeterministicScalarFunction(foldFunc, 1, fold)
}

func fold(_ *sqlitedrv.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	}
	return args[0], nil
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite has a single writer; one connection keeps vote transactions
	// from failing with SQLITE_BUSY instead of waiting their turn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	tags TEXT NOT NULL,
	language TEXT NOT NULL,
	votes INTEGER NOT NULL DEFAULT 0,
	answer_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_questions_votes ON questions(votes DESC);
CREATE INDEX IF NOT EXISTS idx_questions_language ON questions(language);

CREATE TABLE IF NOT EXISTS answers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id INTEGER NOT NULL,
	body TEXT NOT NULL,
	code_examples TEXT NOT NULL,
	author TEXT NOT NULL,
	votes INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(question_id) REFERENCES questions(id)
);
CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id);

CREATE TABLE IF NOT EXISTS votes (
	voter TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id INTEGER NOT NULL,
	direction INTEGER NOT NULL CHECK (direction IN (-1, 1)),
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (voter, target_type, target_id)
);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	// Create schema_version table to track migrations
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

const questionColumns = `q.id, q.title, q.body, q.tags, q.language, q.votes, q.answer_count, q.created_at`

func (s *Store) CreateQuestion(ctx context.Context, q *model.Question) (int64, error) {
	tags, err := json.Marshal(q.Tags)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO questions (title, body, tags, language, votes, answer_count, created_at)
VALUES (?, ?, ?, ?, 0, 0, ?)
`, q.Title, q.Body, string(tags), q.Language, q.CreatedAt.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions q WHERE q.id = ?`, id)
	return scanQuestion(row)
}

func (s *Store) ListQuestions(ctx context.Context, c query.Criteria) ([]model.Question, int, error) {
	where, args := whereClause(c)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions q`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if c.Offset >= total {
		return []model.Question{}, total, nil
	}

	order := "q.created_at DESC, q.id DESC"
	if c.Sort == query.SortVotes {
		order = "q.votes DESC, q.created_at DESC, q.id DESC"
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s
FROM questions q%s
ORDER BY %s
LIMIT ? OFFSET ?
`, questionColumns, where, order), append(args, c.Limit, c.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	questions := make([]model.Question, 0, c.Limit)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func whereClause(c query.Criteria) (string, []any) {
	var conds []string
	var args []any
	if c.Language != "" {
		conds = append(conds, "q.language = ?")
		args = append(args, c.Language)
	}
	if len(c.Tags) > 0 {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(q.tags) t WHERE t.value IN ("+placeholders(len(c.Tags))+"))")
		for _, tag := range c.Tags {
			args = append(args, tag)
		}
	}
	if c.MinVotes != nil {
		conds = append(conds, "q.votes >= ?")
		args = append(args, *c.MinVotes)
	}
	if c.HasAnswers != nil {
		if *c.HasAnswers {
			conds = append(conds, "q.answer_count > 0")
		} else {
			conds = append(conds, "q.answer_count = 0")
		}
	}
	if c.Text != "" {
		pattern := "%" + escapeLike(strings.ToLower(c.Text)) + "%"
		conds = append(conds, `(`+foldFunc+`(q.title) LIKE ? ESCAPE '\' OR `+foldFunc+`(q.body) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) CreateAnswer(ctx context.Context, a *model.Answer) (id int64, err error) {
	examples, err := json.Marshal(nonNilExamples(a.CodeExamples))
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE questions SET answer_count = answer_count + 1 WHERE id = ?`, a.QuestionID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = store.ErrQuestionNotFound
		return 0, err
	}

	res, err = tx.ExecContext(ctx, `
INSERT INTO answers (question_id, body, code_examples, author, votes, created_at)
VALUES (?, ?, ?, ?, 0, ?)
`, a.QuestionID, a.Body, string(examples), a.Author, a.CreatedAt.UnixMilli())
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) GetAnswer(ctx context.Context, id int64) (model.Answer, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, question_id, body, code_examples, author, votes, created_at
FROM answers
WHERE id = ?
`, id)
	return scanAnswer(row)
}

func (s *Store) ListAnswers(ctx context.Context, questionID int64) ([]model.Answer, error) {
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id = ?`, questionID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQuestionNotFound
		}
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, question_id, body, code_examples, author, votes, created_at
FROM answers
WHERE question_id = ?
ORDER BY votes DESC, created_at ASC, id ASC
`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *Store) GetVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64) (model.Direction, error) {
	var dir int
	err := s.db.QueryRowContext(ctx, `
SELECT direction FROM votes WHERE voter = ? AND target_type = ? AND target_id = ?
`, voter, string(kind), targetID).Scan(&dir)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NoVote, nil
	}
	if err != nil {
		return model.NoVote, err
	}
	return model.Direction(dir), nil
}

func (s *Store) CastVote(ctx context.Context, voter string, kind model.TargetKind, targetID int64, requested model.Direction, policy vote.Policy) (out model.VoteOutcome, err error) {
	table, err := targetTable(kind)
	if err != nil {
		return out, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return out, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var total int
	err = tx.QueryRowContext(ctx, `SELECT votes FROM `+table+` WHERE id = ?`, targetID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		err = store.NotFoundFor(kind)
		return out, err
	}
	if err != nil {
		return out, err
	}

	var current int
	err = tx.QueryRowContext(ctx, `
SELECT direction FROM votes WHERE voter = ? AND target_type = ? AND target_id = ?
`, voter, string(kind), targetID).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return out, err
	}

	step := policy.Transition(model.Direction(current), requested)
	if step.Changed() {
		if step.Next == model.NoVote {
			_, err = tx.ExecContext(ctx, `
DELETE FROM votes WHERE voter = ? AND target_type = ? AND target_id = ?
`, voter, string(kind), targetID)
		} else {
			_, err = tx.ExecContext(ctx, `
INSERT INTO votes (voter, target_type, target_id, direction, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(voter, target_type, target_id) DO UPDATE SET direction = excluded.direction, updated_at = excluded.updated_at
`, voter, string(kind), targetID, step.Next.Weight(), time.Now().UnixMilli())
		}
		if err != nil {
			return out, err
		}
		if err = applyVoteDelta(ctx, tx, table, targetID, step.Delta); err != nil {
			return out, err
		}
		total += step.Delta
	}

	if err = tx.Commit(); err != nil {
		return out, err
	}
	return model.VoteOutcome{
		TargetID:   targetID,
		TargetKind: kind,
		Current:    step.Next,
		NewTotal:   total,
		Previous:   step.Previous,
	}, nil
}

// applyVoteDelta must run inside the CastVote transaction.
func applyVoteDelta(ctx context.Context, tx *sql.Tx, table string, id int64, delta int) error {
	_, err := tx.ExecContext(ctx, `UPDATE `+table+` SET votes = votes + ? WHERE id = ?`, delta, id)
	return err
}

func (s *Store) GetSiteStats(ctx context.Context) (model.SiteStats, error) {
	var stats model.SiteStats
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(votes), 0) FROM questions`)
	if err := row.Scan(&stats.Questions, &stats.QuestionVoteSum); err != nil {
		return stats, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`)
	if err := row.Scan(&stats.Answers); err != nil {
		return stats, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes`)
	if err := row.Scan(&stats.Votes); err != nil {
		return stats, err
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT t.value) FROM questions q, json_each(q.tags) t`)
	if err := row.Scan(&stats.UniqueTags); err != nil {
		return stats, err
	}
	return stats, nil
}

func scanQuestion(scanner interface{ Scan(dest ...any) error }) (model.Question, error) {
	var q model.Question
	var tagsRaw string
	var created int64
	if err := scanner.Scan(&q.ID, &q.Title, &q.Body, &tagsRaw, &q.Language, &q.Votes, &q.AnswerCount, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Question{}, store.ErrQuestionNotFound
		}
		return model.Question{}, err
	}
	if tagsRaw != "" {
		_ = json.Unmarshal([]byte(tagsRaw), &q.Tags)
	}
	q.CreatedAt = time.UnixMilli(created).UTC()
	return q, nil
}

func scanAnswer(scanner interface{ Scan(dest ...any) error }) (model.Answer, error) {
	var a model.Answer
	var examplesRaw string
	var created int64
	if err := scanner.Scan(&a.ID, &a.QuestionID, &a.Body, &examplesRaw, &a.Author, &a.Votes, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Answer{}, store.ErrAnswerNotFound
		}
		return model.Answer{}, err
	}
	if examplesRaw != "" {
		_ = json.Unmarshal([]byte(examplesRaw), &a.CodeExamples)
	}
	a.CodeExamples = nonNilExamples(a.CodeExamples)
	a.CreatedAt = time.UnixMilli(created).UTC()
	return a, nil
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

func nonNilExamples(examples []model.CodeExample) []model.CodeExample {
	if examples == nil {
		return []model.CodeExample{}
	}
	return examples
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
