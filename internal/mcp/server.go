// Package mcp exposes the clip board to MCP clients over stdio, so
// agent tooling can capture and query clips without the HTTP surface.
package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/snipboard/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"clip_save": {
		def:     clipSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipSave },
	},
	"clip_get": {
		def:     clipGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipGet },
	},
	"clip_list": {
		def:     clipListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipList },
	},
	"clip_delete": {
		def:     clipDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleClipDelete },
	},
	"section_list": {
		def:     sectionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSectionList },
	},
	"section_create": {
		def:     sectionCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSectionCreate },
	},
	"capture_save": {
		def:     captureSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCaptureSave },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
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

// NewServer creates a new MCP server with SnipBoard tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"snipboard",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, version string) error {
	s := NewServer(db, cfg, version)
	return server.ServeStdio(s)
}
