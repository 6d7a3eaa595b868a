package gateway

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/config"
	"github.com/hpungsan/snipboard/internal/db"
	"github.com/hpungsan/snipboard/internal/errors"
)

// Local is a sqlite-backed Gateway. It assigns ids at first persist,
// stamps updatedAt on every write, refuses clip deletes in locked
// sections, and emits change events to subscribers after each mutation.
type Local struct {
	db  *sql.DB
	cfg *config.Config

	mu       sync.Mutex
	subs     []chan Event
	activeID string
}

var _ Gateway = (*Local)(nil)

// NewLocal creates a local gateway over an initialized database.
func NewLocal(database *sql.DB, cfg *config.Config) *Local {
	return &Local{
		db:       database,
		cfg:      cfg,
		activeID: clip.AllSectionID,
	}
}

// GetData returns every stored clip in display order.
func (g *Local) GetData(ctx context.Context) (*Data, error) {
	clips, err := db.GetClips(g.db)
	if err != nil {
		return nil, err
	}
	return &Data{Clips: clips}, nil
}

// SaveClip upserts a clip. Drafts get a ULID and a capture timestamp;
// the stored row's updatedAt always moves forward. With opts.Mirror the
// owning section's export projection is refreshed as well.
func (g *Local) SaveClip(ctx context.Context, c clip.Clip, opts SaveOptions) (*clip.Clip, error) {
	c = clip.Normalize(c)

	if c.ID == "" {
		id, err := newULID()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		c.ID = id
		if c.CapturedAt == 0 {
			c.CapturedAt = time.Now().UnixMilli()
		}
	}

	if err := db.UpsertClip(g.db, &c); err != nil {
		return nil, err
	}

	if opts.Mirror {
		if err := g.exportClip(&c); err != nil {
			// The row is already committed; projection failures must not
			// fail the save. Surface them as an event-free soft error.
			fmt.Fprintf(os.Stderr, "snipboard: export projection failed: %v\n", err)
		}
	}

	g.emit(Event{Type: EventClip, ID: c.ID})
	return &c, nil
}

// DeleteClip removes a clip unless its section is locked, in which case
// the result is Blocked and nothing changes.
func (g *Local) DeleteClip(ctx context.Context, id string) (*DeleteResult, error) {
	sectionID, err := db.GetClipSection(g.db, id)
	if err != nil {
		return nil, err
	}

	section, err := db.GetSection(g.db, sectionID)
	if err == nil && section.Locked {
		return &DeleteResult{Blocked: true}, nil
	}

	if err := db.DeleteClip(g.db, id); err != nil {
		return nil, err
	}

	g.emit(Event{Type: EventClip, ID: id})
	return &DeleteResult{OK: true}, nil
}

// SaveClipOrder persists clip display order.
func (g *Local) SaveClipOrder(ctx context.Context, ids []string) error {
	if err := db.SaveClipOrder(g.db, ids); err != nil {
		return err
	}
	g.emit(Event{Type: EventClip})
	return nil
}

// SaveScreenshot stores rasters keyed by filename, replacing previous
// content.
func (g *Local) SaveScreenshot(ctx context.Context, items []ScreenshotItem) ([]SavedScreenshot, error) {
	saved := make([]SavedScreenshot, 0, len(items))
	for _, item := range items {
		if item.Filename == "" || len(item.Data) == 0 {
			continue
		}
		if limit := g.cfg.ScreenshotMaxBytes; limit > 0 && len(item.Data) > limit {
			return nil, errors.NewInvalidRequest(
				fmt.Sprintf("screenshot %q exceeds %d bytes", item.Filename, limit))
		}
		if err := db.PutScreenshot(g.db, item.Filename, item.Data); err != nil {
			return nil, err
		}
		saved = append(saved, SavedScreenshot{Filename: item.Filename})
	}
	return saved, nil
}

// ScreenshotURL resolves a stored screenshot to a serving path.
func (g *Local) ScreenshotURL(ctx context.Context, filename string) (string, error) {
	if _, err := db.GetScreenshot(g.db, filename); err != nil {
		return "", err
	}
	return "/screenshots/" + filename, nil
}

// Screenshot returns the raw raster bytes for a filename.
func (g *Local) Screenshot(ctx context.Context, filename string) ([]byte, error) {
	return db.GetScreenshot(g.db, filename)
}

// LoadTabs returns the ordered section list and the active section id.
func (g *Local) LoadTabs(ctx context.Context) (*TabsConfig, error) {
	sections, err := db.GetSections(g.db)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	active := g.activeID
	g.mu.Unlock()
	return &TabsConfig{Sections: sections, ActiveSectionID: active}, nil
}

// SetActiveSection records the active section for the process lifetime.
func (g *Local) SetActiveSection(id string) {
	g.mu.Lock()
	g.activeID = id
	g.mu.Unlock()
}

// CreateSection stores a new section, generating an id when absent.
func (g *Local) CreateSection(ctx context.Context, s clip.Section) error {
	if s.ID == "" {
		id, err := newULID()
		if err != nil {
			return errors.NewInternal(err)
		}
		s.ID = strings.ToLower(id)
	}
	if err := db.InsertSection(g.db, &s); err != nil {
		return err
	}
	g.emit(Event{Type: EventSection, ID: s.ID})
	return nil
}

// SaveSectionOrder persists section display order and any renamed
// labels carried in the refs.
func (g *Local) SaveSectionOrder(ctx context.Context, refs []SectionRef) error {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
		if ref.Name == "" {
			continue
		}
		section, err := db.GetSection(g.db, ref.ID)
		if err != nil {
			continue
		}
		if section.Name != ref.Name {
			section.Name = ref.Name
			if err := db.UpdateSection(g.db, section); err != nil {
				return err
			}
		}
	}

	if err := db.SaveSectionOrder(g.db, ids); err != nil {
		return err
	}
	g.emit(Event{Type: EventSection})
	return nil
}

// UpdateSection applies a partial update.
func (g *Local) UpdateSection(ctx context.Context, id string, patch SectionPatch) error {
	section, err := db.GetSection(g.db, id)
	if err != nil {
		return err
	}

	if patch.Name != nil {
		section.Name = *patch.Name
	}
	if patch.Color != nil {
		section.Color = *patch.Color
	}
	if patch.Icon != nil {
		section.Icon = *patch.Icon
	}
	if patch.ExportPath != nil {
		section.ExportPath = *patch.ExportPath
	}
	if patch.Locked != nil {
		section.Locked = *patch.Locked
	}

	if err := db.UpdateSection(g.db, section); err != nil {
		return err
	}
	g.emit(Event{Type: EventSection, ID: id})
	return nil
}

// DeleteSection removes a section; its clips move to the inbox. The
// inbox itself cannot be deleted.
func (g *Local) DeleteSection(ctx context.Context, id string) error {
	if id == clip.InboxSectionID {
		return errors.NewInvalidRequest("the inbox section cannot be deleted")
	}
	if err := db.DeleteSection(g.db, id); err != nil {
		return err
	}
	g.emit(Event{Type: EventSection, ID: id})
	return nil
}

// Subscribe returns a channel of out-of-band change events. Slow
// subscribers drop events rather than blocking mutations; the poll loop
// catches anything dropped.
func (g *Local) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	g.mu.Lock()
	g.subs = append(g.subs, ch)
	g.mu.Unlock()
	return ch
}

func (g *Local) emit(ev Event) {
	g.mu.Lock()
	subs := append([]chan Event(nil), g.subs...)
	g.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// exportClip mirrors a clip's text into its section's export directory,
// one markdown file per clip id.
func (g *Local) exportClip(c *clip.Clip) error {
	section, err := db.GetSection(g.db, c.SectionID)
	if err != nil || section.ExportPath == "" {
		return nil
	}

	if err := os.MkdirAll(section.ExportPath, 0700); err != nil {
		return err
	}

	var b strings.Builder
	if c.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", c.Title)
	}
	b.WriteString(c.Text)
	if c.Notes != "" {
		fmt.Fprintf(&b, "\n\n---\n%s", c.Notes)
	}
	b.WriteString("\n")

	path := filepath.Join(section.ExportPath, c.ID+".md")
	return os.WriteFile(path, []byte(b.String()), 0600)
}

// newULID generates a new ULID.
func newULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
