// Package client provides a Go client for the Context Overflow REST API.
// Client implements tools.Backend so the MCP bridge can run against a
// remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/tools"
)

const DefaultTimeout = 30 * time.Second

// Client is a Context Overflow API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// New creates a new client. Calls time out after DefaultTimeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  "contextoverflow-client",
	}
}

var _ tools.Backend = (*Client)(nil)

// envelope mirrors tools.Envelope with the payload left undecoded.
type envelope struct {
	Status       string          `json:"status"`
	Data         json.RawMessage `json:"data"`
	ErrorMessage string          `json:"error_message"`
	ErrorType    string          `json:"error_type"`
}

// doRequest sends one request and decodes the envelope payload into out.
// It never retries.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return errortypes.InternalError(err, "encode request")
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return errortypes.InternalError(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errortypes.NetworkError(err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return errortypes.NetworkError(err, "read response")
	}

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Status == tools.StatusError {
		msg := env.ErrorMessage
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("%s %s failed (%d): %s", method, path, resp.StatusCode, strings.TrimSpace(truncate(string(respBody), 200)))
		}
		return errortypes.FromHTTPStatus(resp.StatusCode, env.ErrorType, msg)
	}
	if decodeErr != nil {
		return errortypes.ExternalError(decodeErr, "decode response")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errortypes.ExternalError(err, "decode response data")
	}
	return nil
}

func (c *Client) PostQuestion(ctx context.Context, req tools.PostQuestionRequest) (tools.PostQuestionResponse, error) {
	var out tools.PostQuestionResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/questions", req, &out)
	return out, err
}

func (c *Client) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	var out model.Question
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/questions/%d", id), nil, &out)
	return out, err
}

// ListOptions are the query parameters of GET /api/questions.
type ListOptions struct {
	Limit      int
	Offset     int
	Language   string
	Tags       []string
	Query      string
	MinVotes   *int
	HasAnswers *bool
	Sort       string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		v.Set("offset", strconv.Itoa(o.Offset))
	}
	if o.Language != "" {
		v.Set("language", o.Language)
	}
	if len(o.Tags) > 0 {
		v.Set("tags", strings.Join(o.Tags, ","))
	}
	if o.Query != "" {
		v.Set("q", o.Query)
	}
	if o.MinVotes != nil {
		v.Set("min_votes", strconv.Itoa(*o.MinVotes))
	}
	if o.HasAnswers != nil {
		v.Set("has_answers", strconv.FormatBool(*o.HasAnswers))
	}
	if o.Sort != "" {
		v.Set("sort", o.Sort)
	}
	return v
}

func (c *Client) ListQuestions(ctx context.Context, opts ListOptions) (tools.QuestionsResponse, error) {
	path := "/api/questions"
	if q := opts.values().Encode(); q != "" {
		path += "?" + q
	}
	var out tools.QuestionsResponse
	err := c.doRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) GetQuestions(ctx context.Context, req tools.GetQuestionsRequest) (tools.QuestionsResponse, error) {
	opts := ListOptions{Language: req.Language, Tags: req.Tags}
	if req.Limit != nil {
		opts.Limit = *req.Limit
	}
	if req.Offset != nil {
		opts.Offset = *req.Offset
	}
	return c.ListQuestions(ctx, opts)
}

func (c *Client) SearchQuestions(ctx context.Context, req tools.SearchQuestionsRequest) (tools.QuestionsResponse, error) {
	crit := req.Criteria()
	return c.ListQuestions(ctx, ListOptions{
		Limit:      crit.Limit,
		Language:   req.Language,
		Query:      req.Query,
		MinVotes:   req.MinVotes,
		HasAnswers: req.HasAnswers,
	})
}

func (c *Client) PostAnswer(ctx context.Context, req tools.PostAnswerRequest) (tools.PostAnswerResponse, error) {
	body := struct {
		Content      string              `json:"content"`
		CodeExamples []model.CodeExample `json:"code_examples,omitempty"`
		Author       string              `json:"author,omitempty"`
	}{req.Content, req.CodeExamples, req.Author}

	var out tools.PostAnswerResponse
	err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/api/questions/%d/answers", req.QuestionID), body, &out)
	return out, err
}

func (c *Client) GetAnswers(ctx context.Context, questionID int64) (tools.GetAnswersResponse, error) {
	var out tools.GetAnswersResponse
	err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/questions/%d/answers", questionID), nil, &out)
	return out, err
}

func (c *Client) Vote(ctx context.Context, req tools.VoteRequest) (tools.VoteResponse, error) {
	var out tools.VoteResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/votes", req, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (model.Health, error) {
	var out model.Health
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) Stats(ctx context.Context) (model.SiteStats, error) {
	var out model.SiteStats
	err := c.doRequest(ctx, http.MethodGet, "/api/stats", nil, &out)
	return out, err
}

// Operations fetches the tool list the server advertises.
func (c *Client) Operations(ctx context.Context) ([]tools.Operation, error) {
	var out struct {
		Tools []tools.Operation `json:"tools"`
	}
	err := c.doRequest(ctx, http.MethodGet, "/mcp/tools", nil, &out)
	return out.Tools, err
}

// IsNotFound reports whether err came from a 404-class response.
func IsNotFound(err error) bool {
	return errortypes.IsNotFoundError(err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var errEmptyBaseURL = errors.New("base URL is empty")

// Validate checks that the client can build request URLs.
func (c *Client) Validate() error {
	if c.BaseURL == "" {
		return errortypes.ConfigError(errEmptyBaseURL, "client base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return errortypes.ConfigError(err, "client base URL is invalid")
	}
	return nil
}
