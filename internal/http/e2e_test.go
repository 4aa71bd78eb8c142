package httpapp_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"

	"github.com/alphabot-ai/contextoverflow/internal/client"
	"github.com/alphabot-ai/contextoverflow/internal/config"
	"github.com/alphabot-ai/contextoverflow/internal/engine"
	httpapp "github.com/alphabot-ai/contextoverflow/internal/http"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/rate"
	"github.com/alphabot-ai/contextoverflow/internal/store/sqlite"
	"github.com/alphabot-ai/contextoverflow/internal/tools"
)

func TestEndToEndServer(t *testing.T) {
	st, err := sqlite.Open("file:e2e_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	cfg := config.Config{
		Addr:       ":0",
		RateLimits: config.RateLimits{QuestionPerMinute: 1000, AnswerPerMinute: 1000, VotePerMinute: 1000},
		HashSecret: "test-hash",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httpapp.NewServer(engine.New(st), rate.NewMemory(), cfg, logger)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	httpServer := &http.Server{Handler: server}
	go func() {
		_ = httpServer.Serve(listener)
	}()
	defer httpServer.Close()

	ctx := context.Background()
	c := client.New("http://" + listener.Addr().String() + "/")

	health, err := c.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("unexpected health %+v", health)
	}

	posted, err := c.PostQuestion(ctx, tools.PostQuestionRequest{
		Title:    "E2E question about contexts",
		Content:  "How should cancellation flow through handlers?",
		Tags:     []string{"context"},
		Language: "go",
	})
	if err != nil {
		t.Fatalf("post question: %v", err)
	}

	answer, err := c.PostAnswer(ctx, tools.PostAnswerRequest{
		QuestionID: posted.QuestionID,
		Content:    "Pass r.Context() down to every blocking call.",
		Author:     "e2e",
	})
	if err != nil {
		t.Fatalf("post answer: %v", err)
	}

	out, err := c.Vote(ctx, tools.VoteRequest{
		TargetID:   answer.AnswerID,
		TargetType: "answer",
		VoteType:   "upvote",
		UserID:     "e2e-voter",
	})
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if out.NewTotal != 1 || out.Current != model.Upvoted {
		t.Fatalf("unexpected vote outcome %+v", out)
	}

	answers, err := c.GetAnswers(ctx, posted.QuestionID)
	if err != nil {
		t.Fatalf("get answers: %v", err)
	}
	if len(answers.Answers) != 1 || answers.Answers[0].Votes != 1 || answers.Answers[0].Author != "e2e" {
		t.Fatalf("unexpected answers %+v", answers)
	}

	if _, err := c.GetAnswers(ctx, posted.QuestionID+100); !client.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := c.PostAnswer(ctx, tools.PostAnswerRequest{QuestionID: 0, Content: "An answer to a question that cannot exist."}); !client.IsNotFound(err) {
		t.Fatalf("expected not found for question 0, got %v", err)
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Questions != 1 || stats.Answers != 1 || stats.Votes != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
