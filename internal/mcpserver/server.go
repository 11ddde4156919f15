// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes livepad projects to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/livepad/internal/apperr"
	"github.com/starford/livepad/internal/preview"
	"github.com/starford/livepad/internal/projectservice"
	"github.com/starford/livepad/internal/registry"
)

const contractURI = "livepad://preview-contract"

// Server wraps the MCP server with livepad tools.
type Server struct {
	mcp *server.MCPServer
	svc *projectservice.Service
}

// New creates a new MCP server with all livepad tools registered.
func New(svc *projectservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"livepad",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List all projects with their ids."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the files of a project in tab order."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
	), s.listFiles)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the full content of a project file."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("File name (e.g. index.html)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Create a project file or replace its content. "+
			"Read the preview contract first via get_preview_contract or the "+
			contractURI+" resource to learn how files are combined."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("File name (letters, digits, '.', '_' and '-')")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full file content")),
	), s.writeFile)

	s.mcp.AddTool(mcp.NewTool("render_preview",
		mcp.WithDescription("Render the HTML preview document of a project exactly as the editor shows it."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("active", mcp.Description("File whose content becomes the page body (defaults to the first file)")),
	), s.renderPreview)

	s.mcp.AddTool(mcp.NewTool("search_files",
		mcp.WithDescription("Full-text search through a project's file names and content."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchFiles)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all files of a project that link to the specified file."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("file_name", mcp.Required(), mcp.Description("File name to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_preview_contract",
		mcp.WithDescription("Returns the rules livepad uses to turn project files into a preview page. "+
			"Call this before writing files."),
	), s.getPreviewContract)

	s.mcp.AddTool(mcp.NewTool("import_file",
		mcp.WithDescription("Import a text asset (html, css, js, json, svg, txt) into a project "+
			"from an http/https URL or a base64 data URI."),
		mcp.WithNumber("project_id", mcp.Required(), mcp.Description("Project ID")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("file_name", mcp.Description("Target file name (derived from the URL when empty)")),
	), s.importFile)

	// Resource: preview contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Preview Contract",
			mcp.WithResourceDescription("How project files are combined into the preview document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func projectID(req mcp.CallToolRequest) (int64, error) {
	id, err := req.RequireInt("project_id")
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("project_id must be positive")
	}
	return int64(id), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.svc.ListProjects(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(projects), nil
}

func (s *Server) listFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid, err := projectID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.svc.ListFileItems(ctx, pid)
	if err != nil {
		return toolError(err), nil
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.FileName
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid, err := projectID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetFileByName(ctx, pid, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(d.Content), nil
}

func (s *Server) writeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid, err := projectID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, created, err := s.svc.WriteFile(ctx, pid, name, []byte(content))
	if err != nil {
		return toolError(err), nil
	}
	if created {
		return mcp.NewToolResultText("created: " + name), nil
	}
	return mcp.NewToolResultText("updated: " + name), nil
}

func (s *Server) renderPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid, err := projectID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	files, err := s.svc.ListFiles(ctx, pid)
	if err != nil {
		return toolError(err), nil
	}
	reg, err := registry.New(files)
	if err != nil {
		return toolError(err), nil
	}
	if active := req.GetString("active", ""); active != "" {
		f, ok := reg.ByName(active)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", active)), nil
		}
		reg.SetActive(f.ID)
	}
	return mcp.NewToolResultText(preview.Compose(reg.Files(), reg.Active())), nil
}

func (s *Server) searchFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid, err := projectID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, pid, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pid, err := projectID(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, pid, name)
	if err != nil {
		return toolError(err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getPreviewContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PreviewContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     PreviewContract,
		},
	}, nil
}
