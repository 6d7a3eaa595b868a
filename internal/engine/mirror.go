package engine

import (
	"sort"
	"strings"

	"github.com/hpungsan/snipboard/internal/clip"
)

// Sort modes for VisibleClips. The zero value keeps mirror order.
const (
	SortManual   = ""
	SortTitle    = "title"
	SortCaptured = "captured"
	SortUpdated  = "updated"
)

// Clips returns a deep copy of the mirror's clip sequence.
func (e *Engine) Clips() []clip.Clip {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]clip.Clip, len(e.clips))
	for i, c := range e.clips {
		out[i] = c.Clone()
	}
	return out
}

// Sections returns a copy of the mirror's section sequence.
func (e *Engine) Sections() []clip.Section {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]clip.Section(nil), e.sections...)
}

// CurrentClip returns a copy of the selected clip, or false when no
// clip is selected.
func (e *Engine) CurrentClip() (clip.Clip, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.findClip(e.currentClipID)
	if !ok {
		return clip.Clip{}, false
	}
	return c.Clone(), true
}

// SetCurrentClip selects a clip by id. Unknown ids clear the selection.
func (e *Engine) SetCurrentClip(id string) {
	e.mu.Lock()
	if _, ok := e.findClip(id); ok {
		e.currentClipID = id
	} else {
		e.currentClipID = ""
	}
	e.mu.Unlock()
	e.fire(changes{current: true})
}

// ActiveSection returns the active section id, which may be the
// pseudo-section "all".
func (e *Engine) ActiveSection() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeSectionID
}

// SetActiveSection switches the visible section.
func (e *Engine) SetActiveSection(id string) {
	e.mu.Lock()
	e.activeSectionID = id
	e.mu.Unlock()
	e.fire(changes{clips: true})
}

// SetSearchQuery filters visible clips by a case-insensitive substring
// of title, text, or notes. Empty clears the filter.
func (e *Engine) SetSearchQuery(q string) {
	e.mu.Lock()
	e.searchQuery = strings.TrimSpace(q)
	e.mu.Unlock()
	e.fire(changes{clips: true})
}

// SetTagFilter filters visible clips by exact tag. Empty clears the
// filter.
func (e *Engine) SetTagFilter(tag string) {
	e.mu.Lock()
	e.tagFilter = strings.TrimSpace(tag)
	e.mu.Unlock()
	e.fire(changes{clips: true})
}

// SetSortMode sets the presentation order of VisibleClips. Sorting is a
// view concern only; the mirror sequence and persisted order are
// untouched.
func (e *Engine) SetSortMode(mode string) {
	e.mu.Lock()
	e.sortMode = mode
	e.mu.Unlock()
	e.fire(changes{clips: true})
}

// VisibleClips applies the active section, search, tag filter, and sort
// mode to the mirror and returns the result as copies.
func (e *Engine) VisibleClips() []clip.Clip {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []clip.Clip
	for _, c := range e.clips {
		if e.activeSectionID != "" && e.activeSectionID != clip.AllSectionID && c.SectionID != e.activeSectionID {
			continue
		}
		if e.searchQuery != "" && !matchesQuery(c, e.searchQuery) {
			continue
		}
		if e.tagFilter != "" && !hasTag(c, e.tagFilter) {
			continue
		}
		out = append(out, c.Clone())
	}

	switch e.sortMode {
	case SortTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case SortCaptured:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CapturedAt > out[j].CapturedAt
		})
	case SortUpdated:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UpdatedAt > out[j].UpdatedAt
		})
	}
	return out
}

func matchesQuery(c clip.Clip, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.Text), q) ||
		strings.Contains(strings.ToLower(c.Notes), q)
}

func hasTag(c clip.Clip, tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
