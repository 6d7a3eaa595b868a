package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/config"
	"github.com/hpungsan/snipboard/internal/db"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// TestParseTags tests the parseTags helper function.
func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single tag",
			input:    "foo",
			expected: []string{"foo"},
		},
		{
			name:     "multiple tags",
			input:    "foo,bar,baz",
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "tags with spaces",
			input:    " foo , bar , baz ",
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "empty tags filtered",
			input:    "foo,,bar,",
			expected: []string{"foo", "bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTags(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d tags, got %d", len(tt.expected), len(result))
				return
			}
			for i, tag := range result {
				if tag != tt.expected[i] {
					t.Errorf("expected tag[%d]=%q, got %q", i, tt.expected[i], tag)
				}
			}
		})
	}
}

// TestIsCLIMode tests subcommand detection against the command table.
func TestIsCLIMode(t *testing.T) {
	for name := range cliCommands {
		if !cliCommands[name] {
			t.Errorf("command %q should be enabled", name)
		}
	}
}

// TestCLIAppCommands verifies the app wires a command for every entry
// in the mode-detection table (except the built-in help).
func TestCLIAppCommands(t *testing.T) {
	app := newCLIApp(nil, nil)
	registered := make(map[string]bool)
	for _, cmd := range app.Commands {
		registered[cmd.Name] = true
	}
	for name := range cliCommands {
		if name == "help" {
			continue
		}
		if !registered[name] {
			t.Errorf("command %q missing from CLI app", name)
		}
	}
}

// TestShowAndDeleteCommands drives list/show/delete against a real
// database through the app.
func TestShowAndDeleteCommands(t *testing.T) {
	database := setupTestDB(t)
	cfg := config.DefaultConfig()

	gw := gateway.NewLocal(database, cfg)
	saved, err := gw.SaveClip(context.Background(), clip.Clip{Title: "from cli"}, gateway.SaveOptions{})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	app := newCLIApp(database, cfg)

	if err := app.Run([]string{"snipboard", "show", saved.ID}); err != nil {
		t.Errorf("show: %v", err)
	}
	if err := app.Run([]string{"snipboard", "show", "ghost"}); err == nil {
		t.Error("show of missing clip should fail")
	}
	if err := app.Run([]string{"snipboard", "delete", saved.ID}); err != nil {
		t.Errorf("delete: %v", err)
	}
	if err := app.Run([]string{"snipboard", "delete", saved.ID}); err == nil {
		t.Error("second delete should fail")
	}
}

// TestSectionsCommand creates and lists sections through the app.
func TestSectionsCommand(t *testing.T) {
	database := setupTestDB(t)
	cfg := config.DefaultConfig()
	app := newCLIApp(database, cfg)

	if err := app.Run([]string{"snipboard", "sections", "--create", "Work", "--id", "work"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	gw := gateway.NewLocal(database, cfg)
	tabs, err := gw.LoadTabs(context.Background())
	if err != nil {
		t.Fatalf("load tabs: %v", err)
	}
	found := false
	for _, s := range tabs.Sections {
		if s.ID == "work" && s.Name == "Work" {
			found = true
		}
	}
	if !found {
		t.Errorf("work section not created: %v", tabs.Sections)
	}
}
