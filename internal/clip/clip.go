package clip

// InboxSectionID is the sentinel section clips fall back to when they
// carry no section, or name one that does not exist.
const InboxSectionID = "inbox"

// AllSectionID is the view-layer pseudo-section that shows every clip.
// It is never persisted.
const AllSectionID = "all"

// Clip is a saved unit of captured text with optional screenshots and
// metadata. ID is backend-assigned at first persist; a draft has none.
type Clip struct {
	ID string `json:"id,omitempty"`

	Title string `json:"title"`

	// Text is the captured body.
	Text string `json:"text"`

	Notes string `json:"notes,omitempty"`

	// Tags is a deduplicated, trimmed set; order is not significant.
	Tags []string `json:"tags"`

	// Screenshots is an ordered sequence of asset filenames; display
	// order is significant, duplicates and blank entries are excluded.
	Screenshots []string `json:"screenshots"`

	// SectionID is a foreign key into Section, defaulted to "inbox".
	SectionID string `json:"sectionId"`

	// SourceURL and SourceTitle identify where a captured clip came from.
	SourceURL   string `json:"sourceUrl,omitempty"`
	SourceTitle string `json:"sourceTitle,omitempty"`

	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`

	// CapturedAt is set at creation, UpdatedAt by the backend on each
	// persist. Both are Unix milliseconds.
	CapturedAt int64 `json:"capturedAt"`
	UpdatedAt  int64 `json:"updatedAt,omitempty"`
}

// Clone returns a deep copy so mirror state never aliases caller slices.
func (c Clip) Clone() Clip {
	out := c
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	if c.Screenshots != nil {
		out.Screenshots = append([]string(nil), c.Screenshots...)
	}
	return out
}

// Section is a named, orderable, optionally locked grouping of clips.
// Order is persisted explicitly as an index, independent of creation
// order.
type Section struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Locked sections refuse deletes of member clips.
	Locked bool `json:"locked,omitempty"`

	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`

	// ExportPath is an optional directory the section mirrors clips to.
	ExportPath string `json:"exportPath,omitempty"`
}

// Label returns the display name for a section, falling back to its id.
func (s Section) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
