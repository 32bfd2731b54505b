package mcp

import (
	"context"
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/config"
	"github.com/hpungsan/grabtext/internal/ops"
)

// Capturer grabs and recognizes a screen region. *ops.Service implements it.
type Capturer interface {
	Capture(ctx context.Context, box capture.Box) (*ops.CaptureOutput, error)
}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
	// needsCapturer tools are skipped when no Capturer is available.
	needsCapturer bool
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"capture_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"capture_fetch": {
		def:     fetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch },
	},
	"capture_count": {
		def:     countToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCount },
	},
	"capture_region": {
		def:           regionToolDef,
		handler:       func(h *Handlers) server.ToolHandlerFunc { return h.HandleRegion },
		needsCapturer: true,
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with grabtext tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration, as is
// capture_region when capturer is nil.
func NewServer(db *sql.DB, cfg *config.Config, capturer Capturer, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"grabtext",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, capturer)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		if entry.needsCapturer && capturer == nil {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, capturer Capturer, version string) error {
	s := NewServer(db, cfg, capturer, version)
	return server.ServeStdio(s)
}
