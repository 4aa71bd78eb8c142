// Package mcp serves the Context Overflow tools to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/localrivet/gomcp/server"
	"github.com/localrivet/gomcp/util/schema"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/tools"
)

const (
	ServerName = "context-overflow"

	HealthURI = "context-overflow://health"
	StatsURI  = "context-overflow://stats"

	// DefaultCallTimeout bounds one tool call, including the REST round trip
	// in remote mode.
	DefaultCallTimeout = 30 * time.Second
)

var ErrServerNotInitialized = errors.New("server not initialized")

// ToolServer exposes a Dispatcher as MCP tools and resources. Every result
// is the dispatcher envelope; failures never surface as protocol errors.
type ToolServer struct {
	dispatcher *tools.Dispatcher
	logger     *slog.Logger
	timeout    time.Duration
	mcpServer  server.Server
}

func NewToolServer(d *tools.Dispatcher, logger *slog.Logger) *ToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolServer{dispatcher: d, logger: logger, timeout: DefaultCallTimeout}
}

// Initialize registers the tools and resources.
func (s *ToolServer) Initialize() error {
	if s.dispatcher == nil {
		return errortypes.ConfigError(errors.New("missing dispatcher"), "server initialization failed")
	}

	srv := server.NewServer(ServerName)

	for _, op := range tools.Operations() {
		srv = srv.Tool(op.Name, op.Description, s.handler(op.Name))
	}
	if err := advertiseSchemas(srv); err != nil {
		return errortypes.InternalError(err, "server initialization failed")
	}

	srv = srv.Resource(HealthURI, "Process and storage liveness", s.handleHealthResource)
	srv = srv.Resource(StatsURI, "Aggregate question, answer and vote counts", s.handleStatsResource)

	s.mcpServer = srv
	s.logger.Info("MCP tool server initialized", "tool_count", len(tools.Operations()))
	return nil
}

// Start serves on stdio until stdin closes.
func (s *ToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(ErrServerNotInitialized, "cannot start server")
	}
	s.logger.Info("starting MCP tool server", "transport", "stdio")
	return s.mcpServer.AsStdio().Run()
}

// handler takes the raw argument map so unknown keys reach the dispatcher's
// field checks instead of being dropped by struct decoding.
func (s *ToolServer) handler(name string) func(*server.Context, map[string]interface{}) (tools.Envelope, error) {
	return func(ctx *server.Context, args map[string]interface{}) (tools.Envelope, error) {
		return s.call(name, args), nil
	}
}

func (s *ToolServer) call(name string, args map[string]interface{}) tools.Envelope {
	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return tools.Failure(errortypes.ValidationError(err, "tool arguments must be a JSON object"))
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Debug("tool call", "tool", name)
	return s.dispatcher.Dispatch(ctx, name, raw)
}

// advertiseSchemas replaces the generic object schema of the map handlers
// with the one generated from each request type.
func advertiseSchemas(srv server.Server) error {
	registered := srv.GetServer().GetTools()
	gen := schema.NewGenerator()
	for name, req := range requestTypes {
		tool, ok := registered[name]
		if !ok {
			return fmt.Errorf("tool %s not registered", name)
		}
		sch, err := gen.GenerateSchema(req)
		if err != nil {
			return fmt.Errorf("schema for %s: %w", name, err)
		}
		tool.Schema = sch
	}
	return nil
}

var requestTypes = map[string]any{
	tools.ToolPostQuestion:    tools.PostQuestionRequest{},
	tools.ToolGetQuestions:    tools.GetQuestionsRequest{},
	tools.ToolSearchQuestions: tools.SearchQuestionsRequest{},
	tools.ToolPostAnswer:      tools.PostAnswerRequest{},
	tools.ToolGetAnswers:      tools.GetAnswersRequest{},
	tools.ToolVote:            tools.VoteRequest{},
}

func (s *ToolServer) handleHealthResource(ctx *server.Context, args struct{}) (string, error) {
	return s.snapshot(func(c context.Context) (any, error) {
		return s.dispatcher.Backend().Health(c)
	})
}

func (s *ToolServer) handleStatsResource(ctx *server.Context, args struct{}) (string, error) {
	return s.snapshot(func(c context.Context) (any, error) {
		return s.dispatcher.Backend().Stats(c)
	})
}

// snapshot renders a read-only resource as envelope JSON.
func (s *ToolServer) snapshot(read func(context.Context) (any, error)) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	env := tools.Success(nil)
	data, err := read(ctx)
	if err != nil {
		errortypes.LogError(s.logger, err)
		env = tools.Failure(err)
	} else {
		env.Data = data
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", errortypes.InternalError(err, "encode resource")
	}
	return string(out), nil
}
