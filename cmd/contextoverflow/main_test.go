package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/contextoverflow/internal/config"
	"github.com/alphabot-ai/contextoverflow/internal/engine"
	httpapp "github.com/alphabot-ai/contextoverflow/internal/http"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/rate"
	"github.com/alphabot-ai/contextoverflow/internal/store/memory"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := config.Config{
		HashSecret: "cli-test",
		RateLimits: config.RateLimits{QuestionPerMinute: 100, AnswerPerMinute: 100, VotePerMinute: 100},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(httpapp.NewServer(engine.New(memory.New()), rate.NewMemory(), cfg, logger))
	t.Cleanup(ts.Close)
	return ts.URL
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"contextoverflow"}, args...))
	return out.String(), err
}

func TestCLIRoundTrip(t *testing.T) {
	url := startServer(t)

	out, err := runCLI(t, "--url", url, "ask",
		"--title", "How do I embed files in a binary?",
		"--content", "Looking for the standard way to ship assets.",
		"--tags", "embed,Build",
		"--language", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted question 1")

	out, err = runCLI(t, "--url", url, "answer", "--question", "1", "--content", "Use the embed package with a go:embed directive.")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted answer 1 on question 1")

	out, err = runCLI(t, "--url", url, "vote", "--answer", "1", "--down", "--user", "cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Downvoted answer 1 (total -1)")

	out, err = runCLI(t, "--url", url, "-o", "json", "questions", "--tags", "build")
	require.NoError(t, err)
	var res query.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Questions, 1)
	assert.Equal(t, []string{"embed", "build"}, res.Questions[0].Tags)
	assert.Equal(t, 1, res.Questions[0].AnswerCount)

	out, err = runCLI(t, "--url", url, "-o", "yaml", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "total_questions: 1")

	out, err = runCLI(t, "--url", url, "search", "binary")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 How do I embed files in a binary?")

	out, err = runCLI(t, "--url", url, "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Answers (1)")
}

func TestCLIErrors(t *testing.T) {
	url := startServer(t)

	_, err := runCLI(t, "--url", url, "answers", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Question not found")

	_, err = runCLI(t, "--url", url, "vote", "--question", "1", "--answer", "2", "--up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --question or --answer")

	_, err = runCLI(t, "--url", url, "answers", "abc")
	require.Error(t, err)
}

func TestWriteOutput(t *testing.T) {
	h := model.Health{Message: "up", Database: "healthy", Status: "ok"}

	var buf bytes.Buffer
	require.NoError(t, writeOutput(&buf, formatYAML, h, nil))
	assert.Equal(t, "database: healthy\nmessage: up\nstatus: ok\n", buf.String())

	buf.Reset()
	require.NoError(t, writeOutput(&buf, formatText, h, func(w io.Writer) { io.WriteString(w, "plain") }))
	assert.Equal(t, "plain", buf.String())

	err := writeOutput(&buf, "xml", h, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "xml"))
}

func TestReadExamples(t *testing.T) {
	_, err := readExamples([]string{"go"})
	require.Error(t, err)

	examples, err := readExamples(nil)
	require.NoError(t, err)
	assert.Empty(t, examples)
}
