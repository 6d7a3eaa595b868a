package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/snipboard/internal/capture"
	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/config"
	"github.com/hpungsan/snipboard/internal/errors"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	gw  *gateway.Local
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{gw: gateway.NewLocal(db, cfg), cfg: cfg}
}

// ClipSaveRequest represents the arguments for clip_save.
type ClipSaveRequest struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title,omitempty"`
	Text        string   `json:"text,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SectionID   string   `json:"sectionId,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty"`
	SourceTitle string   `json:"sourceTitle,omitempty"`
	Mirror      bool     `json:"mirror,omitempty"`
}

// ClipRefRequest identifies a clip by id.
type ClipRefRequest struct {
	ID string `json:"id"`
}

// ClipListRequest represents the arguments for clip_list.
type ClipListRequest struct {
	SectionID string `json:"sectionId,omitempty"`
	Tag       string `json:"tag,omitempty"`
}

// SectionCreateRequest represents the arguments for section_create.
type SectionCreateRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Color      string `json:"color,omitempty"`
	Icon       string `json:"icon,omitempty"`
	ExportPath string `json:"exportPath,omitempty"`
}

// CaptureSaveRequest represents the arguments for capture_save.
type CaptureSaveRequest struct {
	Messages    []capture.Message `json:"messages"`
	SourceURL   string            `json:"sourceUrl,omitempty"`
	SourceTitle string            `json:"sourceTitle,omitempty"`
	SectionID   string            `json:"sectionId,omitempty"`
}

// HandleClipSave handles the clip_save tool call.
func (h *Handlers) HandleClipSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	saved, err := h.gw.SaveClip(ctx, clip.Clip{
		ID:          input.ID,
		Title:       input.Title,
		Text:        input.Text,
		Notes:       input.Notes,
		Tags:        input.Tags,
		SectionID:   input.SectionID,
		SourceURL:   input.SourceURL,
		SourceTitle: input.SourceTitle,
	}, gateway.SaveOptions{Mirror: input.Mirror})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(saved)
}

// HandleClipGet handles the clip_get tool call.
func (h *Handlers) HandleClipGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipRefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	data, err := h.gw.GetData(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	for _, c := range data.Clips {
		if c.ID == input.ID {
			return successResult(c)
		}
	}
	return errorResult(errors.NewNotFound(input.ID)), nil
}

// HandleClipList handles the clip_list tool call.
func (h *Handlers) HandleClipList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	data, err := h.gw.GetData(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	items := make([]clip.Clip, 0, len(data.Clips))
	for _, c := range data.Clips {
		if input.SectionID != "" && input.SectionID != clip.AllSectionID && c.SectionID != input.SectionID {
			continue
		}
		if input.Tag != "" && !hasTag(c, input.Tag) {
			continue
		}
		items = append(items, c)
	}
	return successResult(map[string]any{"clips": items, "count": len(items)})
}

// HandleClipDelete handles the clip_delete tool call.
func (h *Handlers) HandleClipDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClipRefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	result, err := h.gw.DeleteClip(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	if result.Blocked {
		sectionID := ""
		if data, derr := h.gw.GetData(ctx); derr == nil {
			for _, c := range data.Clips {
				if c.ID == input.ID {
					sectionID = c.SectionID
					break
				}
			}
		}
		return errorResult(errors.NewSectionLocked(sectionID)), nil
	}
	return successResult(map[string]bool{"ok": true})
}

// HandleSectionList handles the section_list tool call.
func (h *Handlers) HandleSectionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tabs, err := h.gw.LoadTabs(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(tabs)
}

// HandleSectionCreate handles the section_create tool call.
func (h *Handlers) HandleSectionCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Name) == "" {
		return errorResult(errors.NewInvalidRequest("name is required")), nil
	}

	s := clip.Section{
		ID:         input.ID,
		Name:       input.Name,
		Color:      input.Color,
		Icon:       input.Icon,
		ExportPath: input.ExportPath,
	}
	if err := h.gw.CreateSection(ctx, s); err != nil {
		return errorResult(err), nil
	}

	tabs, err := h.gw.LoadTabs(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(tabs)
}

// HandleCaptureSave handles the capture_save tool call.
func (h *Handlers) HandleCaptureSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CaptureSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sectionID := input.SectionID
	if sectionID == "" {
		sectionID = clip.InboxSectionID
	}
	draft, err := capture.Draft(capture.Payload{
		Messages:    input.Messages,
		SourceURL:   input.SourceURL,
		SourceTitle: input.SourceTitle,
	}, sectionID)
	if err != nil {
		return errorResult(err), nil
	}

	saved, err := h.gw.SaveClip(ctx, draft, gateway.SaveOptions{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(saved)
}

func hasTag(c clip.Clip, tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// errorResult creates an MCP error result from an error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if snipErr, ok := err.(*errors.SnipError); ok {
		errorObj := map[string]any{
			"code":    snipErr.Code,
			"message": snipErr.Message,
			"status":  snipErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if snipErr.Code != errors.ErrInternal && snipErr.Details != nil {
			errorObj["details"] = snipErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
