// Package mcp exposes the scoring engine and session store as MCP tools
// over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/report"
	"github.com/TJerry3s/SCI-90test/internal/service"
)

const (
	serverName    = "sci90-scorer"
	serverVersion = "1.0.0"
)

// ComputeResultParams defines parameters for the compute_result tool
type ComputeResultParams struct {
	Answers []*int `json:"answers" jsonschema:"answers for items 1-90 in order, each 0-4; null or missing entries count as 0"`
}

// InterpretFactorParams defines parameters for the interpret_factor tool
type InterpretFactorParams struct {
	Factor  string  `json:"factor" jsonschema:"factor key, e.g. depression"`
	Average float64 `json:"average" jsonschema:"factor average on the 0-4 scale"`
}

// ListQuestionsParams defines parameters for the list_questions tool
type ListQuestionsParams struct {
	Offset int `json:"offset,omitempty" jsonschema:"index of the first item to return"`
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of items; 0 returns all"`
}

// IssueTokensParams defines parameters for the issue_tokens tool
type IssueTokensParams struct {
	Count int    `json:"count" jsonschema:"number of access tokens to create"`
	Label string `json:"label,omitempty" jsonschema:"free text label shared by the batch"`
}

// GetResultParams defines parameters for the get_result tool
type GetResultParams struct {
	Token    string `json:"token" jsonschema:"session access token"`
	DeviceID string `json:"device_id,omitempty" jsonschema:"device the session is bound to"`
}

// ExportResult describes a finished export
type ExportResult struct {
	Path string `json:"path"`
}

// Server wraps the MCP server with the assessment service.
type Server struct {
	service   *service.AssessmentService
	logger    *logrus.Logger
	exportDir string
	mcpServer *mcp.Server
}

// ServerOption is a functional option for Server.
type ServerOption func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithExportDir sets the directory export_sessions writes into.
func WithExportDir(dir string) ServerOption {
	return func(s *Server) {
		s.exportDir = dir
	}
}

// NewServer creates the MCP server and registers its tools.
func NewServer(svc *service.AssessmentService, opts ...ServerOption) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("assessment service is required")
	}

	s := &Server{
		service: svc,
		logger:  logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "compute_result",
		Description: "Score a complete set of 90 answers and return totals, factor scores and the risk level",
	}, s.handleComputeResult)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "interpret_factor",
		Description: "Explain what an average score on one factor means",
	}, s.handleInterpretFactor)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_factors",
		Description: "List the nine factors in report order with their item numbers",
	}, s.handleListFactors)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_questions",
		Description: "List questionnaire items",
	}, s.handleListQuestions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "issue_tokens",
		Description: "Create access tokens for new test sessions",
	}, s.handleIssueTokens)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_result",
		Description: "Fetch the stored result of a completed session as a text report",
	}, s.handleGetResult)

	if s.exportDir != "" {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        "export_sessions",
			Description: "Write every session to a JSON file in the export directory",
		}, s.handleExportSessions)
	}

	s.logger.Debug("Registered MCP tools")
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"name":    serverName,
		"version": serverVersion,
	}).Info("Starting MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func (s *Server) handleComputeResult(ctx context.Context, req *mcp.CallToolRequest, params ComputeResultParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "compute_result").Info("Tool invoked")

	if len(params.Answers) == 0 {
		return errorResult("answers are required", nil), nil, nil
	}

	result, err := s.service.Score(domain.AnswerVector(params.Answers))
	if err != nil {
		return errorResult("invalid answers", err), nil, nil
	}

	rep := report.Build(s.service.Engine(), result)
	return textResult(rep.Text()), rep, nil
}

func (s *Server) handleInterpretFactor(ctx context.Context, req *mcp.CallToolRequest, params InterpretFactorParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "interpret_factor").Info("Tool invoked")

	if params.Factor == "" {
		return errorResult("factor is required", nil), nil, nil
	}
	if !domain.ValidAverage(params.Average) {
		return errorResult(fmt.Sprintf("average must be between %d and %d", domain.MinAnswer, domain.MaxAnswer), nil), nil, nil
	}

	interp := s.service.Interpret(params.Factor, params.Average)
	text := fmt.Sprintf("%s (%s, average %s)\n%s\n%s",
		interp.DisplayName, interp.Level, report.Round(interp.Average).StringFixed(report.DisplayPlaces),
		interp.Description, interp.HighScoreMeaning)
	return textResult(text), interp, nil
}

func (s *Server) handleListFactors(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	factors := s.service.Factors()
	result, err := jsonResult(factors)
	if err != nil {
		return nil, nil, err
	}
	return result, factors, nil
}

func (s *Server) handleListQuestions(ctx context.Context, req *mcp.CallToolRequest, params ListQuestionsParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = domain.ItemCount
	}
	items, total := s.service.Questions(params.Offset, limit)

	out := map[string]interface{}{"items": items, "total": total}
	result, err := jsonResult(out)
	if err != nil {
		return nil, nil, err
	}
	return result, out, nil
}

func (s *Server) handleIssueTokens(ctx context.Context, req *mcp.CallToolRequest, params IssueTokensParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "issue_tokens").Info("Tool invoked")

	issued, err := s.service.IssueTokens(ctx, params.Count, params.Label)
	if err != nil {
		if service.IsClientError(err) {
			return errorResult("cannot issue tokens", err), nil, nil
		}
		return nil, nil, err
	}

	tokens := make([]string, len(issued))
	for i, sess := range issued {
		tokens[i] = sess.Token
	}
	out := map[string]interface{}{"tokens": tokens, "label": params.Label}
	result, err := jsonResult(out)
	if err != nil {
		return nil, nil, err
	}
	return result, out, nil
}

func (s *Server) handleGetResult(ctx context.Context, req *mcp.CallToolRequest, params GetResultParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "get_result").Info("Tool invoked")

	if params.Token == "" {
		return errorResult("token is required", nil), nil, nil
	}

	result, err := s.service.Result(ctx, params.Token, params.DeviceID)
	if err != nil {
		if service.IsClientError(err) {
			return errorResult("no result for token", err), nil, nil
		}
		return nil, nil, err
	}

	rep := report.Build(s.service.Engine(), result)
	return textResult(rep.Text()), rep, nil
}

func (s *Server) handleExportSessions(ctx context.Context, req *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", "export_sessions").Info("Tool invoked")

	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating export directory: %w", err)
	}
	path := filepath.Join(s.exportDir, fmt.Sprintf("sessions-%s.json", time.Now().UTC().Format("20060102-150405")))

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := s.service.ExportSessions(ctx, f); err != nil {
		return nil, nil, err
	}

	out := ExportResult{Path: path}
	return textResult("Sessions exported to " + path), out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool output: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a caller mistake back to the client as a tool error.
func errorResult(message string, err error) *mcp.CallToolResult {
	text := message
	if err != nil {
		text = fmt.Sprintf("%s: %v", message, err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
