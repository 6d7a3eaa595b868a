package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/snipboard/internal/assets"
	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/config"
	"github.com/hpungsan/snipboard/internal/engine"
	"github.com/hpungsan/snipboard/internal/errors"
	"github.com/hpungsan/snipboard/internal/gateway"
	"github.com/hpungsan/snipboard/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "snipboard",
		Usage:   "Personal clip board for captured conversations",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(db, cfg),
			showCmd(db, cfg),
			listCmd(db, cfg),
			deleteCmd(db, cfg),
			sectionsCmd(db, cfg),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a clip (reads body text from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Clip title"},
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Section id (defaults to inbox)"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "source-url", Usage: "Capture source URL"},
			&cli.StringFlag{Name: "source-title", Usage: "Capture source page title"},
			&cli.BoolFlag{Name: "mirror", Usage: "Refresh the section's export projection"},
		},
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("clip text must be piped via stdin"))
			}
			text, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if text == "" {
				return outputError(errors.NewInvalidRequest("clip text is required"))
			}

			gw := gateway.NewLocal(db, cfg)
			saved, err := gw.SaveClip(c.Context, clip.Clip{
				Title:       c.String("title"),
				Text:        text,
				Tags:        parseTags(c.String("tags")),
				SectionID:   c.String("section"),
				SourceURL:   c.String("source-url"),
				SourceTitle: c.String("source-title"),
			}, gateway.SaveOptions{Mirror: c.Bool("mirror")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(saved)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a clip by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("clip id is required"))
			}
			id := c.Args().First()

			gw := gateway.NewLocal(db, cfg)
			data, err := gw.GetData(c.Context)
			if err != nil {
				return outputError(err)
			}
			for _, cl := range data.Clips {
				if cl.ID == id {
					return outputJSON(cl)
				}
			}
			return outputError(errors.NewNotFound(id))
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List clips in display order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Restrict to one section"},
			&cli.StringFlag{Name: "tag", Usage: "Restrict to one tag"},
			&cli.BoolFlag{Name: "ids", Usage: "Print ids only"},
		},
		Action: func(c *cli.Context) error {
			gw := gateway.NewLocal(db, cfg)
			data, err := gw.GetData(c.Context)
			if err != nil {
				return outputError(err)
			}

			section := c.String("section")
			tag := c.String("tag")
			items := make([]clip.Clip, 0, len(data.Clips))
			for _, cl := range data.Clips {
				if section != "" && section != clip.AllSectionID && cl.SectionID != section {
					continue
				}
				if tag != "" && !clipHasTag(cl, tag) {
					continue
				}
				items = append(items, cl)
			}

			if c.Bool("ids") {
				for _, cl := range items {
					fmt.Println(cl.ID)
				}
				return nil
			}
			return outputJSON(map[string]any{"clips": items, "count": len(items)})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a clip by id",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("clip id is required"))
			}
			id := c.Args().First()

			gw := gateway.NewLocal(db, cfg)
			result, err := gw.DeleteClip(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			if result.Blocked {
				return outputError(errors.NewSectionLocked(""))
			}
			return outputJSON(map[string]bool{"ok": true})
		},
	}
}

// sectionsCmd creates the sections command.
func sectionsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "sections",
		Usage: "List sections, or create one with --create",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "create", Usage: "Create a section with this name"},
			&cli.StringFlag{Name: "id", Usage: "Section id for --create (generated when omitted)"},
			&cli.StringFlag{Name: "export-path", Usage: "Directory to mirror member clips into"},
		},
		Action: func(c *cli.Context) error {
			gw := gateway.NewLocal(db, cfg)

			if name := c.String("create"); name != "" {
				err := gw.CreateSection(c.Context, clip.Section{
					ID:         c.String("id"),
					Name:       name,
					ExportPath: c.String("export-path"),
				})
				if err != nil {
					return outputError(err)
				}
			}

			tabs, err := gw.LoadTabs(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(tabs)
		},
	}
}

// serveCmd creates the serve command, running the HTTP API with the
// reconciliation engine polling in the background.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Value: 7333, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			gw := gateway.NewLocal(db, cfg)
			eng := engine.New(gw)

			hydrateCtx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			err := eng.Hydrate(hydrateCtx)
			cancel()
			if err != nil {
				return outputError(err)
			}

			runCtx, stop := context.WithCancel(c.Context)
			defer stop()
			go eng.Run(runCtx, cfg.PollInterval())

			cache := assets.NewURLCache(gw)
			srv := web.NewServer(eng, gw, cache, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if snipErr, ok := err.(*errors.SnipError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", snipErr.Code, snipErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func clipHasTag(c clip.Clip, tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
