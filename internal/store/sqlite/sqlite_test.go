package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/store"
	"github.com/alphabot-ai/contextoverflow/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return st
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contextoverflow.db")
	ctx := context.Background()

	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	id, err := st.CreateQuestion(ctx, &model.Question{
		Title:     "Persisted question title",
		Body:      "This body should survive a reopen of the database file.",
		Tags:      []string{"sqlite"},
		Language:  "go",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Migrations must not run twice.
	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()

	var version int
	if err := st.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("expected schema version %d, got %d", len(migrations), version)
	}

	got, err := st.GetQuestion(ctx, id)
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if got.Title != "Persisted question title" || len(got.Tags) != 1 || got.Tags[0] != "sqlite" {
		t.Fatalf("unexpected question after reopen: %+v", got)
	}
}

func TestTextSearchEscapesWildcards(t *testing.T) {
	st := newTestStore(t)
	defer st.Close()
	ctx := context.Background()

	for _, title := range []string{"Coverage stuck at 100% forever", "Coverage stuck at 1000 lines"} {
		_, err := st.CreateQuestion(ctx, &model.Question{
			Title:     title,
			Body:      "The coverage report never changes between runs of the suite.",
			Tags:      []string{"testing"},
			Language:  "go",
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	c := query.Criteria{Text: "100%"}.Normalize(query.MaxLimit)
	got, total, err := st.ListQuestions(ctx, c)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Title != "Coverage stuck at 100% forever" {
		t.Fatalf("expected only the literal match, got total=%d %+v", total, got)
	}
}
