// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes graph analysis tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/linkgraph/internal/apperr"
	"github.com/starford/linkgraph/internal/graphservice"
)

const vaultFormatURI = "linkgraph://vault-format"

// Server wraps the MCP server with linkgraph tools.
type Server struct {
	mcp *server.MCPServer
	svc *graphservice.Service
}

// New creates a new MCP server with all linkgraph tools registered.
func New(svc *graphservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"linkgraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("find_path",
		mcp.WithDescription("Find the shortest chain of links between two pages. "+
			"Directed mode follows links and falls back to the reverse direction; "+
			"undirected mode ignores link direction."),
		mcp.WithString("from", mcp.Required(), mcp.Description("Start page name, alias or node id")),
		mcp.WithString("to", mcp.Required(), mcp.Description("End page name, alias or node id")),
		mcp.WithString("mode", mcp.Description("directed (default) or undirected")),
	), s.findPath)

	s.mcp.AddTool(mcp.NewTool("similar_pages",
		mcp.WithDescription("Rank pages by Adamic-Adar similarity: pages sharing rare neighbours score highest."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page name, alias or node id")),
	), s.similarPages)

	s.mcp.AddTool(mcp.NewTool("co_cited_pages",
		mcp.WithDescription("Rank pages mentioned in the same blocks as a page, scored 0 to 10."),
		mcp.WithString("page", mcp.Required(), mcp.Description("Page name, alias or node id")),
	), s.coCitedPages)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Find pages whose name or alias contains the query. "+
			"A query starting with q: runs the rest as a read-only SQL SELECT whose first column is a page id."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("graph_stats",
		mcp.WithDescription("Describe the current graph snapshot: generation, node and edge counts, build counters."),
	), s.graphStats)

	s.mcp.AddTool(mcp.NewTool("get_vault_format",
		mcp.WithDescription("Returns the Markdown conventions the indexer understands (pages, aliases, outline, references)."),
	), s.getVaultFormat)

	// Resource: vault format.
	s.mcp.AddResource(
		mcp.NewResource(vaultFormatURI, "Vault Format",
			mcp.WithResourceDescription("Markdown conventions that turn vault files into graph pages and links."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readVaultFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNoGraph):
		return mcp.NewToolResultError("graph not built yet")
	case errors.Is(err, apperr.ErrNoPath):
		return mcp.NewToolResultError("no path between these pages")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) findPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := req.GetString("mode", "directed")
	if mode != "directed" && mode != "undirected" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q", mode)), nil
	}

	route, err := s.svc.Path(from, to, mode == "undirected")
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(strings.Join(route.Labels, " -> ")), nil
}

func (s *Server) similarPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rank, err := s.svc.Similar(page)
	if err != nil {
		return toolError(err), nil
	}
	if len(rank.Results) == 0 {
		return mcp.NewToolResultText("no similar pages found"), nil
	}
	return jsonResult(rank.Results), nil
}

func (s *Server) coCitedPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := req.RequireString("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rank, err := s.svc.CoCited(ctx, page)
	if err != nil {
		return toolError(err), nil
	}
	if len(rank.Results) == 0 {
		return mcp.NewToolResultText("no co-cited pages found"), nil
	}
	return jsonResult(rank.Results), nil
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.svc.Search(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	labels := make([]string, 0, len(nodes))
	for _, n := range nodes {
		labels = append(labels, n.Label)
	}
	if len(labels) == 0 {
		return mcp.NewToolResultText("no pages found"), nil
	}
	return mcp.NewToolResultText(strings.Join(labels, "\n")), nil
}

func (s *Server) graphStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(st), nil
}

func (s *Server) getVaultFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(VaultFormat), nil
}

func (s *Server) readVaultFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      vaultFormatURI,
			MIMEType: "text/markdown",
			Text:     VaultFormat,
		},
	}, nil
}
