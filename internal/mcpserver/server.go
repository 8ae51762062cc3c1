// Package mcpserver provides a read-only MCP (Model Context Protocol)
// server over a decision repository, via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/drctl/drctl/internal/apperr"
	"github.com/drctl/drctl/internal/governance"
	"github.com/drctl/drctl/internal/models"
	"github.com/drctl/drctl/internal/repo"
	"github.com/drctl/drctl/internal/store"
)

// ContractURI is the resource URI of the decision format contract.
const ContractURI = "drctl://decision-format"

// Server wraps the MCP server with drctl tools.
type Server struct {
	mcp  *server.MCPServer
	repo *repo.Context
	log  *slog.Logger
}

// DecisionSummary is one item of list_decisions.
type DecisionSummary struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Domain     string `json:"domain"`
	Version    string `json:"version"`
	LastEdited string `json:"lastEdited"`
	Path       string `json:"path"`
}

// New creates an MCP server for rc with all tools registered.
func New(rc *repo.Context, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{repo: rc, log: logger}

	s.mcp = server.NewMCPServer(
		"drctl",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_decisions",
		mcp.WithDescription("List decision records, optionally filtered by status or domain."),
		mcp.WithString("status", mcp.Description("Only return records with this status")),
		mcp.WithString("domain", mcp.Description("Only return records in this domain")),
	), s.listDecisions)

	s.mcp.AddTool(mcp.NewTool("read_decision",
		mcp.WithDescription("Read the full Markdown file of a decision record by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Decision id, e.g. DR--20240315--platform--use-postgres")),
	), s.readDecision)

	s.mcp.AddTool(mcp.NewTool("validate_decisions",
		mcp.WithDescription("Run governance checks over every record and return the issues found."),
	), s.validateDecisions)

	s.mcp.AddTool(mcp.NewTool("get_decision_contract",
		mcp.WithDescription("Returns the decision record format. Read it before interpreting records."),
	), s.getContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Decision Record Format",
			mcp.WithResourceDescription("Frontmatter fields and rules of drctl decision records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp: serving stdio", slog.String("root", s.repo.Root))
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listDecisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := req.GetString("status", "")
	domain := req.GetString("domain", "")

	records, err := store.List(s.repo)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]DecisionSummary, 0, len(records))
	for i := range records {
		r := &records[i]
		if status != "" && string(r.Status) != status {
			continue
		}
		if domain != "" && r.Domain != domain {
			continue
		}
		out = append(out, DecisionSummary{
			ID:         r.ID,
			Status:     string(r.Status),
			Domain:     r.Domain,
			Version:    r.Version,
			LastEdited: r.LastEdited,
			Path:       r.RelPath(s.repo),
		})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readDecision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := models.DomainFromID(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := store.Load(s.repo, id, "")
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := os.ReadFile(rec.Path) // #nosec G304 - path computed by store
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) validateDecisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := store.List(s.repo)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issues := governance.Validate(records, s.repo)
	if len(issues) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no issues in %d records", len(records))), nil
	}
	data, _ := json.MarshalIndent(issues, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DecisionFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     DecisionFormatContract,
		},
	}, nil
}
