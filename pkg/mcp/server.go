// Package mcp exposes the workflow engine to MCP clients: running
// workflows, reading execution history and validating definitions.
package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/engine"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/processors"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/internal/validation"
)

// Executor runs a workflow synchronously.
type Executor interface {
	Execute(ctx context.Context, workflowID string, triggerData map[string]any, opts engine.Options) (*engine.ExecutionResult, error)
}

// Submitter queues a workflow run in the background.
type Submitter interface {
	Submit(ctx context.Context, task engine.Task) error
}

// Store is the read side the tools need.
type Store interface {
	GetWorkflow(ctx context.Context, id string) (*store.Workflow, error)
	GetExecution(ctx context.Context, id string) (*store.Execution, error)
	ListExecutions(ctx context.Context, filter store.ExecutionFilter) ([]*store.Execution, error)
}

// BlockCatalog lists the registered block types.
type BlockCatalog interface {
	List() []processors.Info
	Count() int
}

// ServerDeps holds the dependencies for creating a Server. Dispatcher is
// only needed for execute_workflow with wait=false.
type ServerDeps struct {
	Executor   Executor
	Dispatcher Submitter
	Store      Store
	Validator  validation.Validator
	Blocks     BlockCatalog
	Logger     *slog.Logger
	Version    string
}

// Server wraps an MCP server with the workflow tool handlers.
type Server struct {
	executor   Executor
	dispatcher Submitter
	store      Store
	validator  validation.Validator
	blocks     BlockCatalog
	notifier   Notifier
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// NewServer creates a Server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		executor:   deps.Executor,
		dispatcher: deps.Dispatcher,
		store:      deps.Store,
		validator:  deps.Validator,
		blocks:     deps.Blocks,
		logger:     logger,
	}

	mcpSrv := server.NewMCPServer(
		"apifyn",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("APIfyn runs user-defined automation workflows. Use execute_workflow to run one, get_execution and list_executions to inspect runs, validate_workflow to check a definition before saving it, list_blocks to see the available step types, and workflow_diagram to see its graph."),
	)
	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewSessionNotifier(mcpSrv)
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// SSEHandler returns the SSE transport rooted at /mcp (/mcp/sse and
// /mcp/message). baseURL is the externally visible server address.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	return server.NewSSEServer(s.mcpServer,
		server.WithBaseURL(baseURL),
		server.WithStaticBasePath("/mcp"),
	)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: executeTool(), Handler: s.handleExecute},
		{Tool: getExecutionTool(), Handler: s.handleGetExecution},
		{Tool: listExecutionsTool(), Handler: s.handleListExecutions},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: listBlocksTool(), Handler: s.handleListBlocks},
	}
}

// --- Tool definitions ---

func executeTool() mcp.Tool {
	return mcp.NewTool("execute_workflow",
		mcp.WithDescription("Execute a stored workflow with the given trigger data"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow to execute")),
		mcp.WithObject("trigger_data", mcp.Description("Payload the trigger step receives")),
		mcp.WithString("mode",
			mcp.Enum("NORMAL", "TEST"),
			mcp.Description("NORMAL requires an active workflow; TEST runs inactive workflows too (default: NORMAL)"),
		),
		mcp.WithBoolean("wait", mcp.Description("Wait for the run to finish (default: true). When false the result is pushed as a notification")),
	)
}

func getExecutionTool() mcp.Tool {
	return mcp.NewTool("get_execution",
		mcp.WithDescription("Get an execution record with its step trace"),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("ID of the execution")),
	)
}

func listExecutionsTool() mcp.Tool {
	return mcp.NewTool("list_executions",
		mcp.WithDescription("List a workflow's executions, newest first"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow")),
		mcp.WithString("status",
			mcp.Enum("RUNNING", "SUCCESS", "FAILED"),
			mcp.Description("Only executions with this status"),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum number of executions (default: 20)")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("validate_workflow",
		mcp.WithDescription("Validate a workflow definition without saving it"),
		mcp.WithObject("definition", mcp.Required(), mcp.Description("Workflow definition with steps and connections")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("workflow_diagram",
		mcp.WithDescription("Render a workflow as a Mermaid flowchart"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow")),
		mcp.WithString("execution_id", mcp.Description("Colour the nodes by this execution's outcome")),
	)
}

func listBlocksTool() mcp.Tool {
	return mcp.NewTool("list_blocks",
		mcp.WithDescription("List the block types a workflow step can use"),
	)
}
