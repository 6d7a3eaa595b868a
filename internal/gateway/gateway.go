// Package gateway defines the persistence collaborator contract the
// reconciliation engine calls into, and a local sqlite-backed
// implementation of it. The engine treats the gateway as a black box
// with at-least-once delivery and idempotent writes keyed by clip id.
package gateway

import (
	"context"

	"github.com/hpungsan/snipboard/internal/clip"
)

// Event is an out-of-band change notification. An empty or unrecognized
// Type asks the consumer for a full refresh.
type Event struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// Recognized event types.
const (
	EventClip    = "clip"
	EventSection = "section"
)

// Data is the full clip payload returned by GetData.
type Data struct {
	Clips []clip.Clip `json:"clips"`
}

// TabsConfig is the ordered section list plus the active section.
type TabsConfig struct {
	Sections        []clip.Section `json:"tabs"`
	ActiveSectionID string         `json:"activeTabId"`
}

// SaveOptions controls side effects of SaveClip. Mirror asks the
// backend to also update the section's external export projection;
// screenshot-only edits pass false to skip it.
type SaveOptions struct {
	Mirror bool
}

// DeleteResult reports the outcome of a clip delete. Blocked means the
// clip's section is locked and nothing was removed.
type DeleteResult struct {
	OK      bool `json:"ok"`
	Blocked bool `json:"blocked,omitempty"`
}

// ScreenshotItem is one raster write, keyed by filename (replacing, not
// appending).
type ScreenshotItem struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// SavedScreenshot confirms one raster write.
type SavedScreenshot struct {
	Filename string `json:"filename"`
}

// SectionRef carries a section's id and display name for order writes.
type SectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SectionPatch is a partial section update. Nil fields are untouched.
type SectionPatch struct {
	Name       *string `json:"name,omitempty"`
	Color      *string `json:"color,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	ExportPath *string `json:"exportPath,omitempty"`
	Locked     *bool   `json:"locked,omitempty"`
}

// Gateway is the persistence/IPC collaborator. All calls are
// synchronous from the caller's point of view, may suspend on ctx, and
// may fail; callers decide what a failure means for their own state.
type Gateway interface {
	// GetData returns every clip the backend knows about.
	GetData(ctx context.Context) (*Data, error)

	// SaveClip persists a clip. A draft (no id) is assigned one; the
	// returned clip is authoritative (id, updatedAt).
	SaveClip(ctx context.Context, c clip.Clip, opts SaveOptions) (*clip.Clip, error)

	// DeleteClip removes a clip, unless its section is locked.
	DeleteClip(ctx context.Context, id string) (*DeleteResult, error)

	// SaveClipOrder persists the display order of clips.
	SaveClipOrder(ctx context.Context, ids []string) error

	// SaveScreenshot writes rasters keyed by filename.
	SaveScreenshot(ctx context.Context, items []ScreenshotItem) ([]SavedScreenshot, error)

	// ScreenshotURL resolves a display URL for a stored screenshot.
	ScreenshotURL(ctx context.Context, filename string) (string, error)

	// LoadTabs returns the ordered section list and the active section.
	LoadTabs(ctx context.Context) (*TabsConfig, error)

	// CreateSection stores a new section at the end of the order.
	CreateSection(ctx context.Context, s clip.Section) error

	// SaveSectionOrder persists section display order.
	SaveSectionOrder(ctx context.Context, refs []SectionRef) error

	// UpdateSection applies a partial update to a section.
	UpdateSection(ctx context.Context, id string, patch SectionPatch) error

	// DeleteSection removes a section; member clips move to the inbox.
	DeleteSection(ctx context.Context, id string) error

	// Subscribe returns a channel of out-of-band change events.
	Subscribe() <-chan Event
}
