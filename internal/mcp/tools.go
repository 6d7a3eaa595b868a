package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

var clipSaveToolDef = mcp.NewToolWithRawSchema(
	"clip_save",
	"Create or update a clip. Omit id to create; the saved clip is returned with its assigned id.",
	json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "Clip id; omit to create a new clip"},
			"title": {"type": "string"},
			"text": {"type": "string", "description": "Clip body, markdown"},
			"notes": {"type": "string"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"sectionId": {"type": "string", "description": "Owning section; defaults to inbox"},
			"sourceUrl": {"type": "string"},
			"sourceTitle": {"type": "string"},
			"mirror": {"type": "boolean", "description": "Also refresh the section's export projection"}
		}
	}`),
)

var clipGetToolDef = mcp.NewToolWithRawSchema(
	"clip_get",
	"Fetch one clip by id.",
	json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string"}
		},
		"required": ["id"]
	}`),
)

var clipListToolDef = mcp.NewToolWithRawSchema(
	"clip_list",
	"List clips in display order, optionally filtered by section or tag.",
	json.RawMessage(`{
		"type": "object",
		"properties": {
			"sectionId": {"type": "string", "description": "Restrict to one section; \"all\" lists everything"},
			"tag": {"type": "string"}
		}
	}`),
)

var clipDeleteToolDef = mcp.NewToolWithRawSchema(
	"clip_delete",
	"Delete a clip by id. Fails with SECTION_LOCKED when the clip's section is locked.",
	json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string"}
		},
		"required": ["id"]
	}`),
)

var sectionListToolDef = mcp.NewToolWithRawSchema(
	"section_list",
	"List sections in display order.",
	json.RawMessage(`{"type": "object", "properties": {}}`),
)

var sectionCreateToolDef = mcp.NewToolWithRawSchema(
	"section_create",
	"Create a section.",
	json.RawMessage(`{
		"type": "object",
		"properties": {
			"id": {"type": "string", "description": "Omit to generate"},
			"name": {"type": "string"},
			"color": {"type": "string"},
			"icon": {"type": "string"},
			"exportPath": {"type": "string", "description": "Directory to mirror member clips into"}
		},
		"required": ["name"]
	}`),
)

var captureSaveToolDef = mcp.NewToolWithRawSchema(
	"capture_save",
	"Store a captured conversation as a clip. Messages are flattened into role-labelled text.",
	json.RawMessage(`{
		"type": "object",
		"properties": {
			"messages": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"role": {"type": "string"},
						"content": {"type": "string"}
					},
					"required": ["role", "content"]
				}
			},
			"sourceUrl": {"type": "string"},
			"sourceTitle": {"type": "string"},
			"sectionId": {"type": "string", "description": "Defaults to inbox"}
		},
		"required": ["messages"]
	}`),
)
