// Package mcptools exposes the site document store as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jlrickert/sitedoc/pkg/document"
	"github.com/jlrickert/sitedoc/pkg/log"
	"github.com/jlrickert/sitedoc/pkg/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names.
const (
	ToolRead     = "site_read"
	ToolWrite    = "site_write"
	ToolVersions = "site_versions"
	ToolVersion  = "site_version"
	ToolRevert   = "site_revert"
	ToolHistory  = "site_history"
)

// DefaultActor is recorded for writes that name no actor.
const DefaultActor = "mcp"

// Tools binds a store to an MCP server.
type Tools struct {
	store  *store.Store
	logger *slog.Logger
}

// New returns Tools for st. A nil logger discards logs.
func New(st *store.Store, lg *slog.Logger) *Tools {
	if lg == nil {
		lg = log.NewNopLogger()
	}
	return &Tools{store: st, logger: lg}
}

// NewServer returns an MCP server with every site tool registered.
func (t *Tools) NewServer(name, version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	t.Register(srv)
	return srv
}

// Register adds the site tools to srv.
func (t *Tools) Register(srv *mcp.Server) {
	t.registerRead(srv)
	t.registerWrite(srv)
	t.registerVersions(srv)
	t.registerVersion(srv)
	t.registerRevert(srv)
	t.registerHistory(srv)
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// addTool wraps h so argument and store errors become tool errors and results
// are returned as JSON text.
func (t *Tools) addTool(srv *mcp.Server, tool *mcp.Tool, h handlerFunc) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lg := t.logger.With("tool", tool.Name)
		ctx = log.WithLogger(ctx, lg)

		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		out, err := h(ctx, args)
		if err != nil {
			lg.Warn("tool call failed", "err", err)
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func actorOr(a string) string {
	if a = strings.TrimSpace(a); a != "" {
		return a
	}
	return DefaultActor
}

// --- site_read ---

type readReq struct {
	Section string `json:"section"`
}

func (t *Tools) registerRead(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolRead,
		Description: "Read the current site content, or one top-level section of it.",
		InputSchema: inputSchema(map[string]any{
			"section": map[string]any{"type": "string", "description": "Optional section name, e.g. home or nav"},
		}, nil),
	}
	t.addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var r readReq
		if err := decode(args, &r); err != nil {
			return nil, err
		}
		doc, err := t.store.Read(ctx)
		if err != nil {
			return nil, err
		}
		if r.Section == "" {
			return doc, nil
		}
		raw, ok := doc.Section(r.Section)
		if !ok {
			return nil, fmt.Errorf("section %q not found", r.Section)
		}
		return raw, nil
	})
}

// --- site_write ---

type writeReq struct {
	Content json.RawMessage `json:"content"`
	Actor   string          `json:"actor"`
}

func (t *Tools) registerWrite(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: ToolWrite,
		Description: "Replace the site content. Missing required sections are filled from defaults. " +
			"The previous content is kept as a version. Fails if another write is in progress.",
		InputSchema: inputSchema(map[string]any{
			"content": map[string]any{"type": "object", "description": "The complete site content document"},
			"actor":   map[string]any{"type": "string", "description": "Who is making the change"},
		}, []string{"content"}),
	}
	t.addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var r writeReq
		if err := decode(args, &r); err != nil {
			return nil, err
		}
		if len(r.Content) == 0 {
			return nil, errors.New("content is required")
		}
		doc, err := document.Parse(r.Content)
		if err != nil {
			return nil, fmt.Errorf("invalid content: %w", err)
		}
		if err := t.store.Write(ctx, doc, store.WriteOptions{Actor: actorOr(r.Actor)}); err != nil {
			return nil, err
		}
		return t.store.Read(ctx)
	})
}

// --- site_versions ---

func (t *Tools) registerVersions(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolVersions,
		Description: "List saved versions of the site content, newest first.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	t.addTool(srv, tool, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return map[string]any{"versions": t.store.ListVersions(ctx)}, nil
	})
}

// --- site_version ---

type versionReq struct {
	Filename string `json:"filename"`
}

func (t *Tools) registerVersion(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolVersion,
		Description: "Show the content of one saved version without restoring it.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Version filename from site_versions"},
		}, []string{"filename"}),
	}
	t.addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var r versionReq
		if err := decode(args, &r); err != nil {
			return nil, err
		}
		return t.store.ReadVersion(ctx, r.Filename)
	})
}

// --- site_revert ---

type revertReq struct {
	Filename string `json:"filename"`
	Actor    string `json:"actor"`
}

func (t *Tools) registerRevert(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolRevert,
		Description: "Restore a saved version. The current content is saved first so the revert can be undone.",
		InputSchema: inputSchema(map[string]any{
			"filename": map[string]any{"type": "string", "description": "Version filename from site_versions"},
			"actor":    map[string]any{"type": "string", "description": "Who is making the change"},
		}, []string{"filename"}),
	}
	t.addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var r revertReq
		if err := decode(args, &r); err != nil {
			return nil, err
		}
		if err := t.store.RevertTo(ctx, r.Filename, store.WriteOptions{Actor: actorOr(r.Actor)}); err != nil {
			return nil, err
		}
		return t.store.Read(ctx)
	})
}

// --- site_history ---

type historyReq struct {
	Limit int `json:"limit"`
}

func (t *Tools) registerHistory(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolHistory,
		Description: "List recent changes to the site content, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum entries to return (0 for all)"},
		}, nil),
	}
	t.addTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var r historyReq
		if err := decode(args, &r); err != nil {
			return nil, err
		}
		entries, err := t.store.History(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"entries": entries}, nil
	})
}
