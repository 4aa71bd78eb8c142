package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
)

// Backend executes validated tool calls. The engine adapter and the REST
// client both implement it.
type Backend interface {
	PostQuestion(ctx context.Context, req PostQuestionRequest) (PostQuestionResponse, error)
	GetQuestions(ctx context.Context, req GetQuestionsRequest) (QuestionsResponse, error)
	SearchQuestions(ctx context.Context, req SearchQuestionsRequest) (QuestionsResponse, error)
	PostAnswer(ctx context.Context, req PostAnswerRequest) (PostAnswerResponse, error)
	GetAnswers(ctx context.Context, questionID int64) (GetAnswersResponse, error)
	Vote(ctx context.Context, req VoteRequest) (VoteResponse, error)
	Health(ctx context.Context) (model.Health, error)
	Stats(ctx context.Context) (model.SiteStats, error)
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the uniform result of every tool call.
type Envelope struct {
	Status       string `json:"status"`
	Data         any    `json:"data,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
}

func Success(data any) Envelope {
	return Envelope{Status: StatusSuccess, Data: data}
}

func Failure(err error) Envelope {
	return Envelope{
		Status:       StatusError,
		ErrorMessage: errortypes.PublicMessage(err),
		ErrorType:    string(errortypes.TypeOf(err)),
	}
}

// Dispatcher maps a tool name and a JSON argument object to one Backend
// call. It makes a single attempt and never retries.
type Dispatcher struct {
	backend     Backend
	defaultUser string
	logger      *slog.Logger
}

type DispatcherOption func(*Dispatcher)

// WithDefaultUser sets the voter and author used when a call omits them.
func WithDefaultUser(user string) DispatcherOption {
	return func(d *Dispatcher) {
		if strings.TrimSpace(user) != "" {
			d.defaultUser = user
		}
	}
}

func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

func NewDispatcher(b Backend, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{backend: b, defaultUser: DefaultUser, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Backend() Backend {
	return d.backend
}

// Dispatch runs the named tool and wraps the outcome in an Envelope.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) Envelope {
	data, err := d.Call(ctx, name, args)
	if err != nil {
		switch errortypes.TypeOf(err) {
		case errortypes.ErrorTypeValidation, errortypes.ErrorTypeNotFound, errortypes.ErrorTypeConflict:
			d.logger.Debug("tool call rejected", "tool", name, "error", err)
		default:
			errortypes.LogError(d.logger, err)
		}
		return Failure(err)
	}
	return Success(data)
}

// Call validates args against the tool's field sets and invokes the
// backend. Every returned error is an *errortypes.AppError.
func (d *Dispatcher) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	op, ok := lookup(name)
	if !ok {
		return nil, errortypes.Validationf("unknown operation %q", name)
	}
	if err := checkFields(op, args); err != nil {
		return nil, err
	}

	var (
		data any
		err  error
	)
	switch op.Name {
	case ToolPostQuestion:
		var req PostQuestionRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		data, err = d.backend.PostQuestion(ctx, req)
	case ToolGetQuestions:
		var req GetQuestionsRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		data, err = d.backend.GetQuestions(ctx, req)
	case ToolSearchQuestions:
		var req SearchQuestionsRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		data, err = d.backend.SearchQuestions(ctx, req)
	case ToolPostAnswer:
		var req PostAnswerRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.Author) == "" {
			req.Author = d.defaultUser
		}
		data, err = d.backend.PostAnswer(ctx, req)
	case ToolGetAnswers:
		var req GetAnswersRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		data, err = d.backend.GetAnswers(ctx, req.QuestionID)
	case ToolVote:
		var req VoteRequest
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if strings.TrimSpace(req.UserID) == "" {
			req.UserID = d.defaultUser
		}
		data, err = d.backend.Vote(ctx, req)
	}
	if err != nil {
		return nil, asAppError(err)
	}
	return data, nil
}

// checkFields rejects unknown fields and missing or null required ones.
func checkFields(op Operation, args json.RawMessage) error {
	fields := map[string]json.RawMessage{}
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return errortypes.ValidationError(err, "arguments must be a JSON object")
		}
	}

	allowed := make(map[string]bool, len(op.Required)+len(op.Optional))
	for _, f := range op.Required {
		allowed[f] = true
	}
	for _, f := range op.Optional {
		allowed[f] = true
	}

	var unknown []string
	for f := range fields {
		if !allowed[f] {
			unknown = append(unknown, f)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errortypes.Validationf("unknown field(s) for %s: %s", op.Name, strings.Join(unknown, ", ")).
			WithField("tool", op.Name)
	}

	var missing []string
	for _, f := range op.Required {
		raw, ok := fields[f]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return errortypes.Validationf("missing required field(s) for %s: %s", op.Name, strings.Join(missing, ", ")).
			WithField("tool", op.Name)
	}
	return nil
}

func decodeArgs(args json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return errortypes.ValidationError(err, fmt.Sprintf("invalid value for field %s", typeErr.Field))
		}
		return errortypes.ValidationError(err, "invalid arguments: "+err.Error())
	}
	return nil
}

func asAppError(err error) error {
	var appErr *errortypes.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return errortypes.InternalError(err, "")
}

// Criteria converts list arguments into query criteria.
func (r GetQuestionsRequest) Criteria() query.Criteria {
	c := query.Criteria{Language: r.Language, Tags: []string(r.Tags)}
	if r.Limit != nil {
		c.Limit = *r.Limit
	}
	if r.Offset != nil {
		c.Offset = *r.Offset
	}
	return c
}

func (r SearchQuestionsRequest) Criteria() query.Criteria {
	return query.Criteria{
		Language:   r.Language,
		Text:       r.Query,
		MinVotes:   r.MinVotes,
		HasAnswers: r.HasAnswers,
		Limit:      query.DefaultSearchLimit,
	}
}
