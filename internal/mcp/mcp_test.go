package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/snipboard/internal/config"
	"github.com/hpungsan/snipboard/internal/db"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, config.DefaultConfig()
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is not TextContent: %T", result.Content[0])
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	return payload
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if !result.IsError {
		t.Fatal("expected error result")
	}
	payload := resultPayload(t, result)
	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatal("no error object in payload")
	}
	if code, _ := errorObj["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func TestHandleClipSave(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	result, err := h.HandleClipSave(ctx, makeRequest(map[string]any{
		"title": "mcp clip",
		"text":  "stored over stdio",
		"tags":  []any{"agent", "agent"},
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %v", resultPayload(t, result))
	}

	payload := resultPayload(t, result)
	if payload["id"] == "" || payload["id"] == nil {
		t.Error("expected assigned id")
	}
	if payload["sectionId"] != "inbox" {
		t.Errorf("expected inbox default, got %v", payload["sectionId"])
	}
	tags, _ := payload["tags"].([]any)
	if len(tags) != 1 {
		t.Errorf("expected deduplicated tags, got %v", tags)
	}
}

func TestHandleClipGet(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	saveResult, err := h.HandleClipSave(ctx, makeRequest(map[string]any{"title": "target"}))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	id, _ := resultPayload(t, saveResult)["id"].(string)

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "fetch existing clip",
			args: map[string]any{"id": id},
		},
		{
			name:      "fetch missing clip",
			args:      map[string]any{"id": "ghost"},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
		{
			name:      "fetch without id",
			args:      map[string]any{},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleClipGet(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if tt.wantError {
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			if result.IsError {
				t.Fatalf("unexpected error: %v", resultPayload(t, result))
			}
			if got := resultPayload(t, result)["title"]; got != "target" {
				t.Errorf("got title %v", got)
			}
		})
	}
}

func TestHandleClipListFilters(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	if _, err := h.HandleSectionCreate(ctx, makeRequest(map[string]any{"id": "work", "name": "Work"})); err != nil {
		t.Fatalf("create section: %v", err)
	}
	seeds := []map[string]any{
		{"title": "a", "sectionId": "work", "tags": []any{"go"}},
		{"title": "b", "tags": []any{"misc"}},
	}
	for _, s := range seeds {
		if _, err := h.HandleClipSave(ctx, makeRequest(s)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	result, err := h.HandleClipList(ctx, makeRequest(map[string]any{"sectionId": "work"}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := resultPayload(t, result)["count"]; got != float64(1) {
		t.Errorf("section filter: got count %v", got)
	}

	result, err = h.HandleClipList(ctx, makeRequest(map[string]any{"tag": "GO"}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := resultPayload(t, result)["count"]; got != float64(1) {
		t.Errorf("tag filter should be case-insensitive: got count %v", got)
	}

	result, err = h.HandleClipList(ctx, makeRequest(map[string]any{"sectionId": "all"}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := resultPayload(t, result)["count"]; got != float64(2) {
		t.Errorf("pseudo-section all: got count %v", got)
	}
}

func TestHandleClipDeleteLocked(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	saveResult, err := h.HandleClipSave(ctx, makeRequest(map[string]any{"title": "guarded"}))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	id, _ := resultPayload(t, saveResult)["id"].(string)

	locked := true
	if err := h.gw.UpdateSection(ctx, "inbox", gateway.SectionPatch{Locked: &locked}); err != nil {
		t.Fatalf("lock: %v", err)
	}

	result, err := h.HandleClipDelete(ctx, makeRequest(map[string]any{"id": id}))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	assertErrorCode(t, result, "SECTION_LOCKED")
}

func TestHandleCaptureSave(t *testing.T) {
	database, cfg := testSetup(t)
	h := NewHandlers(database, cfg)
	ctx := context.Background()

	result, err := h.HandleCaptureSave(ctx, makeRequest(map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": "question"},
			map[string]any{"role": "assistant", "content": "answer"},
		},
		"sourceTitle": "A chat",
	}))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %v", resultPayload(t, result))
	}

	payload := resultPayload(t, result)
	text, _ := payload["text"].(string)
	if !strings.Contains(text, "USER:\nquestion") || !strings.Contains(text, "ASSISTANT:\nanswer") {
		t.Errorf("flattened text mismatch: %q", text)
	}

	result, err = h.HandleCaptureSave(ctx, makeRequest(map[string]any{"messages": []any{}}))
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"clip_save", "bogus_tool"})
	if len(unknown) != 1 || unknown[0] != "bogus_tool" {
		t.Errorf("got %v", unknown)
	}
}

func TestAllToolNamesCoversRegistry(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("got %d names, registry has %d", len(names), len(toolRegistry))
	}
}
