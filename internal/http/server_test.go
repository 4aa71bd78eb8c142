package httpapp

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alphabot-ai/contextoverflow/internal/config"
	"github.com/alphabot-ai/contextoverflow/internal/engine"
	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/store/memory"
	"github.com/alphabot-ai/contextoverflow/internal/tools"
)

type allowAllLimiter struct{}

func (a allowAllLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	return true, 0
}

func newMemoryServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		HashSecret: "test-hash",
		Version:    "test",
		RateLimits: config.RateLimits{QuestionPerMinute: 100, AnswerPerMinute: 100, VotePerMinute: 100},
	}
	st := memory.New()
	t.Cleanup(func() { _ = st.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(engine.New(st), allowAllLimiter{}, cfg, logger)
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	resp := httptest.NewRecorder()
	s.ServeHTTP(resp, req)
	return resp
}

func TestRootJSON(t *testing.T) {
	server := newMemoryServer(t)

	resp := serve(server, http.MethodGet, "/", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var env struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("json parse: %v", err)
	}
	if env.Status != tools.StatusSuccess {
		t.Fatalf("expected success, got %q", env.Status)
	}
	if env.Data["version"] != "test" {
		t.Fatalf("expected version in banner, got %v", env.Data)
	}
}

func TestRequestID(t *testing.T) {
	server := newMemoryServer(t)

	resp := serve(server, http.MethodGet, "/health", "")
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestRoutingErrors(t *testing.T) {
	server := newMemoryServer(t)

	cases := []struct {
		method, path string
		status       int
		errType      string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/nope", http.StatusNotFound, "not_found"},
		{http.MethodDelete, "/api/questions", http.StatusMethodNotAllowed, "validation"},
		{http.MethodPost, "/api/stats", http.StatusMethodNotAllowed, "validation"},
		{http.MethodGet, "/api/votes", http.StatusMethodNotAllowed, "validation"},
		{http.MethodGet, "/mcp/vote", http.StatusMethodNotAllowed, "validation"},
		{http.MethodGet, "/api/questions/abc", http.StatusBadRequest, "validation"},
		{http.MethodGet, "/api/questions/0", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/questions/-3/answers", http.StatusNotFound, "not_found"},
		{http.MethodGet, "/api/questions/42", http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		resp := serve(server, tc.method, tc.path, "")
		if resp.Code != tc.status {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, resp.Code)
			continue
		}
		var env tools.Envelope
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: json parse: %v", tc.method, tc.path, err)
		}
		if env.Status != tools.StatusError || env.ErrorType != tc.errType {
			t.Errorf("%s %s: unexpected envelope %+v", tc.method, tc.path, env)
		}
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	server := newMemoryServer(t)

	resp := serve(server, http.MethodPost, "/api/questions", `{"title":"x","bogus":true}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "bogus") {
		t.Fatalf("expected unknown field in message, got %s", resp.Body.String())
	}

	resp = serve(server, http.MethodPost, "/api/questions", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", resp.Code)
	}
}

func TestClientIP(t *testing.T) {
	server := newMemoryServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	if got := server.clientIP(req); got != "10.1.2.3" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := server.clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded address, got %q", got)
	}
}

func TestSplitPath(t *testing.T) {
	if got := splitPath("/"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	got := splitPath("/questions/7/answers/")
	if len(got) != 3 || got[0] != "questions" || got[1] != "7" || got[2] != "answers" {
		t.Fatalf("unexpected segments %v", got)
	}
}

func TestIntParam(t *testing.T) {
	if n, err := intParam("", "limit"); err != nil || n != 0 {
		t.Fatalf("expected absent value to be zero, got %d, %v", n, err)
	}
	if n, err := intParam(" 25 ", "limit"); err != nil || n != 25 {
		t.Fatalf("expected 25, got %d, %v", n, err)
	}
	_, err := intParam("ten", "offset")
	if !errortypes.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg := errortypes.PublicMessage(err); msg != "offset must be an integer" {
		t.Fatalf("unexpected message %q", msg)
	}
}
