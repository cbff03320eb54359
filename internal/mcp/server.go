package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/search-relevance/internal/containers"
	"github.com/lox/search-relevance/internal/db"
	"github.com/lox/search-relevance/internal/request"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// UpdateTimes reports when the stored settings of a container last changed
type UpdateTimes interface {
	UpdatedAt(ctx context.Context, name string) (time.Time, error)
}

type Server struct {
	registry *containers.Registry
	updates  UpdateTimes
	logger   *log.Logger
}

// New creates a server over the registry. updates may be nil when no
// settings store is available.
func New(registry *containers.Registry, updates UpdateTimes, logger *log.Logger) *Server {
	return &Server{
		registry: registry,
		updates:  updates,
		logger:   logger,
	}
}

// MCPServer builds the MCP server with all relevance tools registered
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		"Search Relevance Configuration",
		"1.0.0",
	)

	mcpServer.AddTool(mcp.NewTool("list_containers",
		mcp.WithDescription("List search request containers that have a relevance configuration"),
	), s.listContainersHandler)

	mcpServer.AddTool(mcp.NewTool("get_relevance_config",
		mcp.WithDescription("Show the relevance configuration of a search request container"),
		mcp.WithString("container",
			mcp.Required(),
			mcp.Description("Container name. Use list_containers to see available containers."),
		),
	), s.getRelevanceConfigHandler)

	mcpServer.AddTool(mcp.NewTool("plan_query",
		mcp.WithDescription("Show the query clauses a text search in a container is built from"),
		mcp.WithString("container",
			mcp.Required(),
			mcp.Description("Container name"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text query"),
		),
		mcp.WithString("fields",
			mcp.Description("Comma separated fields to search (default: search)"),
		),
	), s.planQueryHandler)

	return mcpServer
}

func (s *Server) Run() error {
	s.logger.Info("Starting MCP server", "containers", s.registry.Len())

	// Start the stdio server
	if err := server.ServeStdio(s.MCPServer()); err != nil {
		return err
	}

	return nil
}

func (s *Server) listContainersHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := s.registry.List()
	if len(names) == 0 {
		return mcp.NewToolResultText("No containers configured\n"), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Configured containers (%d)\n\n", len(names))
	for _, name := range names {
		cfg, _ := s.registry.Get(name)
		fmt.Fprintf(&result, "%-40s fuzziness=%t phonetic=%t\n", name, cfg.FuzzinessEnabled(), cfg.PhoneticSearchEnabled())
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) getRelevanceConfigHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArgument(req, "container")
	if err != nil {
		return nil, err
	}

	var result strings.Builder
	cfg, ok := s.registry.Get(name)
	if !ok {
		fmt.Fprintf(&result, "%s has no stored configuration, showing defaults\n\n", name)
		cfg = s.registry.GetOrDefault(name)
	}
	result.WriteString(containers.Describe(name, cfg))

	if ok {
		if updatedAt := s.updatedAt(ctx, name); !updatedAt.IsZero() {
			fmt.Fprintf(&result, "  Last Updated: %s\n", updatedAt.Format(time.RFC3339))
		}
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (s *Server) planQueryHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArgument(req, "container")
	if err != nil {
		return nil, err
	}
	query, err := stringArgument(req, "query")
	if err != nil {
		return nil, err
	}

	var opts []request.PlanOption
	if fields, ok := req.Params.Arguments["fields"].(string); ok && strings.TrimSpace(fields) != "" {
		opts = append(opts, request.WithFields(splitFields(fields)...))
	}

	var result strings.Builder
	if _, ok := s.registry.Get(name); !ok {
		fmt.Fprintf(&result, "%s has no stored configuration, using defaults\n\n", name)
	}

	plan := request.Build(s.registry.GetOrDefault(name), query, opts...)
	s.logger.Debug("Planned query",
		"container", name,
		"query", query,
		"clauses", len(plan.Clauses),
		"fuzzy", plan.Has(request.ClauseFuzzyMatch),
		"phonetic", plan.Has(request.ClausePhoneticMatch))

	result.WriteString(plan.String())
	return mcp.NewToolResultText(result.String()), nil
}

// updatedAt returns the last update time of a stored container, or the zero
// time when it is unknown
func (s *Server) updatedAt(ctx context.Context, name string) time.Time {
	if s.updates == nil {
		return time.Time{}
	}
	t, err := s.updates.UpdatedAt(ctx, name)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("Failed to read update time", "container", name, "error", err)
		}
		return time.Time{}
	}
	return t
}

func stringArgument(req mcp.CallToolRequest, key string) (string, error) {
	switch v := req.Params.Arguments[key].(type) {
	case string:
		return v, nil
	case nil:
		return "", fmt.Errorf("%s is required", key)
	default:
		return "", errors.New(key + " must be a string")
	}
}

func splitFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
