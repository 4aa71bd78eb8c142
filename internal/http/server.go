package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"

	"github.com/alphabot-ai/contextoverflow/internal/auth"
	"github.com/alphabot-ai/contextoverflow/internal/config"
	"github.com/alphabot-ai/contextoverflow/internal/engine"
	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/rate"
	"github.com/alphabot-ai/contextoverflow/internal/tools"

	_ "github.com/alphabot-ai/contextoverflow/docs" // swagger docs
)

const maxBodyBytes = 1 << 20

type Server struct {
	engine     *engine.Engine
	dispatcher *tools.Dispatcher
	limiter    rate.Limiter
	voters     *auth.Fingerprinter
	cfg        config.Config
	logger     *slog.Logger
}

func NewServer(eng *engine.Engine, limiter rate.Limiter, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := tools.NewDispatcher(tools.NewLocal(eng),
		tools.WithDefaultUser(cfg.Bridge.User),
		tools.WithLogger(logger),
	)
	return &Server{
		engine:     eng,
		dispatcher: dispatcher,
		limiter:    limiter,
		voters:     auth.NewFingerprinter(cfg.HashSecret),
		cfg:        cfg,
		logger:     logger,
	}
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-Id", requestID)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.route(rec, r)

	s.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
		"request_id", requestID,
	)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleRoot(w, r)
	case path == "/health":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleHealth(w, r)
	case strings.HasPrefix(path, "/api/"):
		s.handleAPI(w, r)
	case strings.HasPrefix(path, "/mcp/"):
		s.handleMCP(w, r)
	case strings.HasPrefix(path, "/swagger/"):
		httpSwagger.WrapHandler.ServeHTTP(w, r)
	default:
		notFound(w)
	}
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	segments := splitPath(path)

	switch {
	case len(segments) == 1 && segments[0] == "questions":
		if r.Method == http.MethodPost {
			s.handleCreateQuestion(w, r)
			return
		}
		if r.Method == http.MethodGet {
			s.handleListQuestions(w, r)
			return
		}
		methodNotAllowed(w)
		return
	case len(segments) == 2 && segments[0] == "questions":
		if r.Method == http.MethodGet {
			s.handleGetQuestion(w, r, segments[1])
			return
		}
		methodNotAllowed(w)
		return
	case len(segments) == 3 && segments[0] == "questions" && segments[2] == "answers":
		if r.Method == http.MethodGet {
			s.handleListAnswers(w, r, segments[1])
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreateAnswerForQuestion(w, r, segments[1])
			return
		}
		methodNotAllowed(w)
		return
	case len(segments) == 1 && segments[0] == "answers":
		if r.Method == http.MethodPost {
			s.handleCreateAnswer(w, r)
			return
		}
		methodNotAllowed(w)
		return
	case len(segments) == 1 && segments[0] == "votes":
		if r.Method == http.MethodPost {
			s.handleCreateVote(w, r)
			return
		}
		methodNotAllowed(w)
		return
	case len(segments) == 1 && segments[0] == "stats":
		if r.Method == http.MethodGet {
			s.handleGetStats(w, r)
			return
		}
		methodNotAllowed(w)
		return
	case len(segments) == 1 && segments[0] == "openapi.json":
		if r.Method == http.MethodGet {
			s.serveOpenAPIJSON(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "openapi.yaml":
		if r.Method == http.MethodGet {
			s.serveOpenAPIYAML(w, r)
			return
		}
	}

	notFound(w)
}

// handleRoot godoc
//
//	@Summary		Service banner
//	@Tags			Meta
//	@Produce		json
//	@Success		200	{object}	tools.Envelope
//	@Router			/ [get]
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"message": "Context Overflow API",
		"version": s.cfg.Version,
		"docs":    "/swagger/index.html",
		"tools":   "/mcp/tools",
	})
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Reports process liveness and whether the store answers a ping.
//	@Tags			Meta
//	@Produce		json
//	@Success		200	{object}	tools.Envelope{data=model.Health}
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, s.engine.Health(r.Context()))
}

// handleGetStats godoc
//
//	@Summary		Get site statistics
//	@Description	Question, answer and vote counts plus per-question averages
//	@Tags			Meta
//	@Produce		json
//	@Success		200	{object}	tools.Envelope{data=model.SiteStats}
//	@Router			/api/stats [get]
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, stats)
}

// handleCreateQuestion godoc
//
//	@Summary		Post a question
//	@Description	Title 10-200 characters, content 20-5000, 1-10 tags, language 2-50. Tags and language are lowercased.
//	@Tags			Questions
//	@Accept			json
//	@Produce		json
//	@Param			question	body		tools.PostQuestionRequest	true	"Question"
//	@Success		201			{object}	tools.Envelope{data=tools.PostQuestionResponse}
//	@Failure		400			{object}	tools.Envelope	"Validation error"
//	@Failure		429			{object}	tools.Envelope	"Rate limited"
//	@Router			/api/questions [post]
func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "question", s.cfg.RateLimits.QuestionPerMinute) {
		return
	}
	var req tools.PostQuestionRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	q, err := s.engine.CreateQuestion(r.Context(), engine.QuestionInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Language: req.Language,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, tools.PostQuestionResponse{QuestionID: q.ID, Status: tools.StatusPosted})
}

// handleListQuestions godoc
//
//	@Summary		List or search questions
//	@Description	Filters combine with AND. Tags match when any listed tag is on the question. Passing q switches to text search with a default page of 20.
//	@Tags			Questions
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"	default(10)	maximum(100)
//	@Param			offset		query		int		false	"Items to skip"	default(0)
//	@Param			language	query		string	false	"Exact language"
//	@Param			tags		query		string	false	"Comma-separated tags"
//	@Param			q			query		string	false	"Case-insensitive text in title or content"
//	@Param			min_votes	query		int		false	"Inclusive lower bound on votes"
//	@Param			has_answers	query		bool	false	"Only answered (true) or unanswered (false)"
//	@Param			sort		query		string	false	"Ordering"	Enums(new, votes)	default(new)
//	@Success		200			{object}	tools.Envelope{data=query.Result}
//	@Failure		400			{object}	tools.Envelope	"Invalid parameter"
//	@Router			/api/questions [get]
func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var res query.Result
	if c.Text != "" {
		res, err = s.engine.SearchQuestions(r.Context(), c)
	} else {
		res, err = s.engine.ListQuestions(r.Context(), c)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func criteriaFromQuery(r *http.Request) (query.Criteria, error) {
	v := r.URL.Query()
	c := query.Criteria{
		Language: v.Get("language"),
		Tags:     query.ParseTags(v.Get("tags")),
		Text:     strings.TrimSpace(v.Get("q")),
	}
	var err error
	if c.Limit, err = intParam(v.Get("limit"), "limit"); err != nil {
		return c, err
	}
	if c.Offset, err = intParam(v.Get("offset"), "offset"); err != nil {
		return c, err
	}
	if raw := v.Get("min_votes"); raw != "" {
		n, err := intParam(raw, "min_votes")
		if err != nil {
			return c, err
		}
		c.MinVotes = &n
	}
	if raw := v.Get("has_answers"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c, errortypes.Validationf("has_answers must be true or false")
		}
		c.HasAnswers = &b
	}
	sort, err := query.ParseSort(v.Get("sort"))
	if err != nil {
		return c, errortypes.ValidationError(err, err.Error())
	}
	c.Sort = sort
	return c, nil
}

// handleGetQuestion godoc
//
//	@Summary		Get a question
//	@Tags			Questions
//	@Produce		json
//	@Param			id	path		int	true	"Question ID"
//	@Success		200	{object}	tools.Envelope{data=model.Question}
//	@Failure		404	{object}	tools.Envelope	"Question not found"
//	@Router			/api/questions/{id} [get]
func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := parseID(idStr, "question id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	q, err := s.engine.GetQuestion(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, q)
}

// handleListAnswers godoc
//
//	@Summary		Get answers for a question
//	@Description	Highest voted first, then oldest first.
//	@Tags			Answers
//	@Produce		json
//	@Param			id	path		int	true	"Question ID"
//	@Success		200	{object}	tools.Envelope{data=tools.GetAnswersResponse}
//	@Failure		404	{object}	tools.Envelope	"Question not found"
//	@Router			/api/questions/{id}/answers [get]
func (s *Server) handleListAnswers(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := parseID(idStr, "question id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	answers, err := s.engine.GetAnswers(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, tools.GetAnswersResponse{QuestionID: id, Answers: answers})
}

type answerBody struct {
	Content      string              `json:"content"`
	CodeExamples []model.CodeExample `json:"code_examples"`
	Author       string              `json:"author"`
}

// handleCreateAnswerForQuestion godoc
//
//	@Summary		Answer a question
//	@Description	Content 20-10000 characters, at most 10 code examples. Author defaults to "anonymous".
//	@Tags			Answers
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int								true	"Question ID"
//	@Param			answer	body		object{content=string,code_examples=[]model.CodeExample,author=string}	true	"Answer"
//	@Success		201		{object}	tools.Envelope{data=tools.PostAnswerResponse}
//	@Failure		400		{object}	tools.Envelope	"Validation error"
//	@Failure		404		{object}	tools.Envelope	"Question not found"
//	@Failure		429		{object}	tools.Envelope	"Rate limited"
//	@Router			/api/questions/{id}/answers [post]
func (s *Server) handleCreateAnswerForQuestion(w http.ResponseWriter, r *http.Request, idStr string) {
	if !s.allowRateLimit(w, r, "answer", s.cfg.RateLimits.AnswerPerMinute) {
		return
	}
	id, err := parseID(idStr, "question id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body answerBody
	if err := readJSON(w, r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	s.createAnswer(w, r, engine.AnswerInput{
		QuestionID:   id,
		Content:      body.Content,
		CodeExamples: body.CodeExamples,
		Author:       body.Author,
	})
}

// handleCreateAnswer godoc
//
//	@Summary		Post an answer
//	@Description	Same as POST /api/questions/{id}/answers with the question id in the body.
//	@Tags			Answers
//	@Accept			json
//	@Produce		json
//	@Param			answer	body		tools.PostAnswerRequest	true	"Answer"
//	@Success		201		{object}	tools.Envelope{data=tools.PostAnswerResponse}
//	@Failure		400		{object}	tools.Envelope	"Validation error"
//	@Failure		404		{object}	tools.Envelope	"Question not found"
//	@Failure		429		{object}	tools.Envelope	"Rate limited"
//	@Router			/api/answers [post]
func (s *Server) handleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "answer", s.cfg.RateLimits.AnswerPerMinute) {
		return
	}
	var req tools.PostAnswerRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	s.createAnswer(w, r, engine.AnswerInput{
		QuestionID:   req.QuestionID,
		Content:      req.Content,
		CodeExamples: req.CodeExamples,
		Author:       req.Author,
	})
}

func (s *Server) createAnswer(w http.ResponseWriter, r *http.Request, in engine.AnswerInput) {
	a, err := s.engine.CreateAnswer(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, tools.PostAnswerResponse{
		AnswerID:   a.ID,
		QuestionID: a.QuestionID,
		Status:     tools.StatusPosted,
	})
}

// handleCreateVote godoc
//
//	@Summary		Vote on a question or answer
//	@Description	One live vote per voter and target. Switching direction moves the total by 2. Repeating the current direction is a no-op unless the server runs with VOTE_REPEAT=retract. Without user_id the voter is derived from the client address.
//	@Tags			Votes
//	@Accept			json
//	@Produce		json
//	@Param			vote	body		tools.VoteRequest	true	"Vote"
//	@Success		200		{object}	tools.Envelope{data=model.VoteOutcome}
//	@Failure		400		{object}	tools.Envelope	"Validation error"
//	@Failure		404		{object}	tools.Envelope	"Target not found"
//	@Failure		429		{object}	tools.Envelope	"Rate limited"
//	@Router			/api/votes [post]
func (s *Server) handleCreateVote(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "vote", s.cfg.RateLimits.VotePerMinute) {
		return
	}
	var req tools.VoteRequest
	if err := readJSON(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	voter := strings.TrimSpace(req.UserID)
	if voter == "" {
		voter = s.voters.Voter(s.clientIP(r))
	}
	out, err := s.engine.CastVote(r.Context(), engine.VoteInput{
		Voter:      voter,
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
		VoteType:   req.VoteType,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

// handleMCP godoc
//
//	@Summary		Call a tool operation
//	@Description	Runs one of post_question, get_questions, search_questions, post_answer, get_answers or vote with a JSON argument object. Unknown or missing fields are rejected.
//	@Tags			Tools
//	@Accept			json
//	@Produce		json
//	@Param			operation	path		string	true	"Tool name"
//	@Param			arguments	body		object	false	"Tool arguments"
//	@Success		200			{object}	tools.Envelope
//	@Failure		400			{object}	tools.Envelope	"Validation error"
//	@Failure		404			{object}	tools.Envelope	"Target not found"
//	@Router			/mcp/{operation} [post]
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(strings.TrimPrefix(r.URL.Path, "/mcp"))
	if len(segments) != 1 {
		notFound(w)
		return
	}
	if segments[0] == "tools" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleListTools(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	name := segments[0]
	switch name {
	case tools.ToolPostQuestion:
		if !s.allowRateLimit(w, r, "question", s.cfg.RateLimits.QuestionPerMinute) {
			return
		}
	case tools.ToolPostAnswer:
		if !s.allowRateLimit(w, r, "answer", s.cfg.RateLimits.AnswerPerMinute) {
			return
		}
	case tools.ToolVote:
		if !s.allowRateLimit(w, r, "vote", s.cfg.RateLimits.VotePerMinute) {
			return
		}
	}

	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errortypes.ValidationError(err, "request body too large or unreadable"))
		return
	}
	data, err := s.dispatcher.Call(r.Context(), name, json.RawMessage(args))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, data)
}

// handleListTools godoc
//
//	@Summary		List tool operations
//	@Tags			Tools
//	@Produce		json
//	@Success		200	{object}	tools.Envelope
//	@Router			/mcp/tools [get]
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"tools": tools.Operations()})
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.writeError(w, errortypes.InternalError(err, "read api document"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(doc))
}

func (s *Server) serveOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.writeError(w, errortypes.InternalError(err, "read api document"))
		return
	}
	var tree any
	if err := json.Unmarshal([]byte(doc), &tree); err != nil {
		s.writeError(w, errortypes.InternalError(err, "parse api document"))
		return
	}
	out, err := yaml.Marshal(tree)
	if err != nil {
		s.writeError(w, errortypes.InternalError(err, "encode api document"))
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	w.Write(out)
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) bool {
	if limit <= 0 {
		return true
	}
	ipKey := fmt.Sprintf("%s:ip:%s", action, s.clientIP(r))
	if ok, retry := s.limiter.Allow(ipKey, limit, time.Minute); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeError sends the failure envelope with the status for its type.
// Server-side failures are logged; caller mistakes are not.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errortypes.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		errortypes.LogError(s.logger, err)
	}
	writeJSON(w, status, tools.Failure(err))
}

func readJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errortypes.ValidationError(err, "request body is required")
		}
		return errortypes.ValidationError(err, "invalid JSON body: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, tools.Success(data))
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	seconds := int(math.Ceil(retry.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeJSON(w, http.StatusTooManyRequests, tools.Envelope{
		Status:       tools.StatusError,
		ErrorMessage: fmt.Sprintf("rate limit exceeded, retry in %ds", seconds),
		ErrorType:    "rate_limited",
	})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, tools.Envelope{
		Status:       tools.StatusError,
		ErrorMessage: "not found",
		ErrorType:    string(errortypes.ErrorTypeNotFound),
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, tools.Envelope{
		Status:       tools.StatusError,
		ErrorMessage: "method not allowed",
		ErrorType:    string(errortypes.ErrorTypeValidation),
	})
}

// intParam parses an optional integer query parameter; absent is zero.
func intParam(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errortypes.Validationf("%s must be an integer", name)
	}
	return n, nil
}

func parseID(value, what string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errortypes.Validationf("invalid %s", what)
	}
	return id, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
