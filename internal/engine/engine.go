// Package engine owns the client mirror: the authoritative in-memory
// copy of clips and sections. The backend is the source of truth and
// can change out-of-band; the engine keeps the mirror consistent by
// persisting-then-merging every mutation and detecting remote drift via
// change signatures. View surfaces hold no private copies; every
// mutation goes through the engine.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/errors"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// Confirmer asks the user to confirm a destructive action. It is an
// external collaborator (modal, prompt, --yes flag).
type Confirmer func(prompt string) bool

// Engine reconciles the mirror against the gateway.
type Engine struct {
	gw gateway.Gateway

	mu              sync.Mutex
	clips           []clip.Clip
	sections        []clip.Section
	activeSectionID string
	currentClipID   string
	searchQuery     string
	tagFilter       string
	sortMode        string
	lastSignature   string

	clipsSubs    []func()
	sectionsSubs []func()
	currentSubs  []func(*clip.Clip)
}

// New creates an engine over a gateway. The mirror starts empty; the
// first Hydrate populates it.
func New(gw gateway.Gateway) *Engine {
	return &Engine{
		gw:              gw,
		activeSectionID: clip.AllSectionID,
	}
}

// OnClipsChanged subscribes to clip sequence changes.
func (e *Engine) OnClipsChanged(fn func()) {
	e.mu.Lock()
	e.clipsSubs = append(e.clipsSubs, fn)
	e.mu.Unlock()
}

// OnSectionsChanged subscribes to section sequence changes.
func (e *Engine) OnSectionsChanged(fn func()) {
	e.mu.Lock()
	e.sectionsSubs = append(e.sectionsSubs, fn)
	e.mu.Unlock()
}

// OnCurrentClipChanged subscribes to editor binding changes. The
// argument is nil when no clip is selected.
func (e *Engine) OnCurrentClipChanged(fn func(*clip.Clip)) {
	e.mu.Lock()
	e.currentSubs = append(e.currentSubs, fn)
	e.mu.Unlock()
}

// notify flags; collected under the lock, fired after it is released so
// subscribers can call back into the engine.
type changes struct {
	clips    bool
	sections bool
	current  bool
}

func (e *Engine) fire(ch changes) {
	e.mu.Lock()
	clipsSubs := make([]func(), len(e.clipsSubs))
	copy(clipsSubs, e.clipsSubs)
	sectionsSubs := make([]func(), len(e.sectionsSubs))
	copy(sectionsSubs, e.sectionsSubs)
	currentSubs := make([]func(*clip.Clip), len(e.currentSubs))
	copy(currentSubs, e.currentSubs)
	var current *clip.Clip
	if ch.current {
		if c, ok := e.findClip(e.currentClipID); ok {
			cc := c.Clone()
			current = &cc
		}
	}
	e.mu.Unlock()

	if ch.clips {
		for _, fn := range clipsSubs {
			fn()
		}
	}
	if ch.sections {
		for _, fn := range sectionsSubs {
			fn()
		}
	}
	if ch.current {
		for _, fn := range currentSubs {
			fn(current)
		}
	}
}

// findClip locates a clip by id. Caller holds the lock.
func (e *Engine) findClip(id string) (*clip.Clip, bool) {
	if id == "" {
		return nil, false
	}
	for i := range e.clips {
		if e.clips[i].ID == id {
			return &e.clips[i], true
		}
	}
	return nil, false
}

// Hydrate fetches the full data set and replaces the mirror's clip and
// section sequences. The current clip is preserved if it still exists,
// otherwise the first clip is selected, otherwise none. On transport
// failure the prior mirror state is retained.
func (e *Engine) Hydrate(ctx context.Context) error {
	data, err := e.gw.GetData(ctx)
	if err != nil {
		return errors.NewTransport(err)
	}
	tabs, err := e.gw.LoadTabs(ctx)
	if err != nil {
		return errors.NewTransport(err)
	}

	e.mu.Lock()
	e.applyHydration(data.Clips, tabs.Sections, tabs.ActiveSectionID)
	e.mu.Unlock()

	e.fire(changes{clips: true, sections: true, current: true})
	return nil
}

// applyHydration replaces the mirror sequences. Caller holds the lock.
func (e *Engine) applyHydration(clips []clip.Clip, sections []clip.Section, activeID string) {
	if sections != nil {
		e.sections = sections
	}

	normalized := make([]clip.Clip, 0, len(clips))
	for _, c := range clips {
		if c.ID == "" {
			// Malformed payload element; drop it rather than failing the
			// whole hydration.
			continue
		}
		normalized = append(normalized, clip.NormalizeAgainst(c, e.sections))
	}
	e.clips = normalized
	e.lastSignature = clip.Signature(e.clips)

	if activeID != "" {
		e.activeSectionID = activeID
	}

	if _, ok := e.findClip(e.currentClipID); !ok {
		if len(e.clips) > 0 {
			e.currentClipID = e.clips[0].ID
		} else {
			e.currentClipID = ""
		}
	}
}

// Persist saves a clip through the gateway, then merges the
// authoritative result into the mirror by id — insert if new, replace
// if existing — and selects it. The mirror is never speculatively
// mutated: on gateway failure there is nothing to revert.
func (e *Engine) Persist(ctx context.Context, c clip.Clip, opts gateway.SaveOptions) (*clip.Clip, error) {
	saved, err := e.gw.SaveClip(ctx, c, opts)
	if err != nil {
		return nil, err
	}
	if saved == nil || saved.ID == "" {
		return nil, errors.NewInternal(nil)
	}

	e.mu.Lock()
	normalized := clip.NormalizeAgainst(*saved, e.sections)
	if existing, ok := e.findClip(normalized.ID); ok {
		*existing = normalized
	} else {
		e.clips = append(e.clips, normalized)
	}
	e.lastSignature = clip.Signature(e.clips)
	e.currentClipID = normalized.ID
	e.mu.Unlock()

	e.fire(changes{clips: true, current: true})
	return &normalized, nil
}

// CreateDraft persists an empty clip in the active section and selects
// it.
func (e *Engine) CreateDraft(ctx context.Context) (*clip.Clip, error) {
	e.mu.Lock()
	sectionID := e.activeSectionID
	e.mu.Unlock()
	if sectionID == "" || sectionID == clip.AllSectionID {
		sectionID = clip.InboxSectionID
	}
	return e.Persist(ctx, clip.Clip{
		SectionID:  sectionID,
		CapturedAt: time.Now().UnixMilli(),
	}, gateway.SaveOptions{})
}

// Delete removes a clip after confirmation. A gateway "blocked" result
// (locked section) aborts with a specific reason and leaves the mirror
// untouched. A declined confirmation is a silent no-op.
func (e *Engine) Delete(ctx context.Context, c clip.Clip, confirm Confirmer) error {
	if c.ID == "" {
		return errors.NewInvalidRequest("clip id is required")
	}
	if confirm != nil {
		label := c.Title
		if label == "" {
			label = c.ID
		}
		if !confirm(`Delete clip "` + label + `"?`) {
			return nil
		}
	}

	result, err := e.gw.DeleteClip(ctx, c.ID)
	if err != nil {
		return err
	}
	if result.Blocked {
		return errors.NewSectionLocked(c.SectionID)
	}

	e.mu.Lock()
	e.removeClip(c.ID)
	e.mu.Unlock()

	e.fire(changes{clips: true, current: true})
	return nil
}

// removeClip deletes a clip from the mirror and reselects when it was
// current. Caller holds the lock.
func (e *Engine) removeClip(id string) {
	kept := e.clips[:0]
	for _, c := range e.clips {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	e.clips = kept
	e.lastSignature = clip.Signature(e.clips)

	if e.currentClipID == id {
		if len(e.clips) > 0 {
			e.currentClipID = e.clips[0].ID
		} else {
			e.currentClipID = ""
		}
	}
}

// ReorderClips moves source before target's current position; a target
// that no longer exists appends to the end. The reorder is applied
// locally first for immediate feedback, then persisted best-effort: a
// persist failure intentionally leaves the optimistic local order in
// place, because the drag already visually completed.
func (e *Engine) ReorderClips(ctx context.Context, sourceID, targetID string) {
	e.mu.Lock()
	if !reorder(clipIDs(e.clips), sourceID, targetID, func(from, to int) {
		moved := e.clips[from]
		e.clips = append(e.clips[:from], e.clips[from+1:]...)
		if to < 0 || to > len(e.clips) {
			e.clips = append(e.clips, moved)
		} else {
			e.clips = append(e.clips[:to], append([]clip.Clip{moved}, e.clips[to:]...)...)
		}
	}) {
		e.mu.Unlock()
		return
	}
	ids := clipIDs(e.clips)
	e.mu.Unlock()

	e.fire(changes{clips: true})

	if err := e.gw.SaveClipOrder(ctx, ids); err != nil {
		log.Printf("persist clip order failed (keeping local order): %v", err)
	}
}

// ReorderSections is the section counterpart of ReorderClips, with the
// same optimistic no-rollback persistence.
func (e *Engine) ReorderSections(ctx context.Context, sourceID, targetID string) {
	e.mu.Lock()
	if !reorder(sectionIDs(e.sections), sourceID, targetID, func(from, to int) {
		moved := e.sections[from]
		e.sections = append(e.sections[:from], e.sections[from+1:]...)
		if to < 0 || to > len(e.sections) {
			e.sections = append(e.sections, moved)
		} else {
			e.sections = append(e.sections[:to], append([]clip.Section{moved}, e.sections[to:]...)...)
		}
	}) {
		e.mu.Unlock()
		return
	}
	refs := make([]gateway.SectionRef, len(e.sections))
	for i, s := range e.sections {
		refs[i] = gateway.SectionRef{ID: s.ID, Name: s.Label()}
	}
	e.mu.Unlock()

	e.fire(changes{sections: true})

	if err := e.gw.SaveSectionOrder(ctx, refs); err != nil {
		log.Printf("persist section order failed (keeping local order): %v", err)
	}
}

// reorder computes the splice for moving source before target within
// the id sequence and invokes move(from, to). A missing target yields
// to == -1 (append). Returns false when the source is unknown.
func reorder(ids []string, sourceID, targetID string, move func(from, to int)) bool {
	from := indexOf(ids, sourceID)
	if from == -1 {
		return false
	}
	to := indexOf(ids, targetID)
	if to > from {
		// Removing the source shifts the target down one.
		to--
	}
	move(from, to)
	return true
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func clipIDs(clips []clip.Clip) []string {
	ids := make([]string, len(clips))
	for i, c := range clips {
		ids[i] = c.ID
	}
	return ids
}

func sectionIDs(sections []clip.Section) []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	return ids
}

// CheckRemote performs one poll tick: fetch, compare signatures, and
// re-hydrate only on drift. Returns whether the mirror changed.
func (e *Engine) CheckRemote(ctx context.Context) (bool, error) {
	data, err := e.gw.GetData(ctx)
	if err != nil {
		return false, errors.NewTransport(err)
	}

	// Sign the payload as hydration would keep it: id-less entries are
	// dropped on ingestion, so they must not count as drift either, or
	// a malformed backend row would defeat the gate on every tick.
	kept := make([]clip.Clip, 0, len(data.Clips))
	for _, c := range data.Clips {
		if c.ID != "" {
			kept = append(kept, c)
		}
	}

	e.mu.Lock()
	sig := clip.Signature(kept)
	if sig == e.lastSignature {
		e.mu.Unlock()
		return false, nil
	}
	e.applyHydration(data.Clips, nil, "")
	e.mu.Unlock()

	e.fire(changes{clips: true, current: true})
	return true, nil
}

// RefreshOne fetches the full data set and reconciles a single clip by
// id: absent means it was deleted elsewhere and is removed locally
// (reselecting if it was current); present means normalize and upsert.
// Used for targeted external-change notifications instead of a full
// refresh, to avoid visible flicker.
func (e *Engine) RefreshOne(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewInvalidRequest("clip id is required")
	}
	data, err := e.gw.GetData(ctx)
	if err != nil {
		return errors.NewTransport(err)
	}

	var fetched *clip.Clip
	for i := range data.Clips {
		if data.Clips[i].ID == id {
			fetched = &data.Clips[i]
			break
		}
	}

	e.mu.Lock()
	wasCurrent := e.currentClipID == id
	if fetched == nil {
		e.removeClip(id)
	} else {
		normalized := clip.NormalizeAgainst(*fetched, e.sections)
		if existing, ok := e.findClip(id); ok {
			*existing = normalized
		} else {
			e.clips = append(e.clips, normalized)
		}
		e.lastSignature = clip.Signature(e.clips)
	}
	e.mu.Unlock()

	e.fire(changes{clips: true, current: wasCurrent})
	return nil
}

// RefreshSections reloads the section list only.
func (e *Engine) RefreshSections(ctx context.Context) error {
	tabs, err := e.gw.LoadTabs(ctx)
	if err != nil {
		return errors.NewTransport(err)
	}

	e.mu.Lock()
	e.sections = tabs.Sections
	if tabs.ActiveSectionID != "" {
		e.activeSectionID = tabs.ActiveSectionID
	}
	e.mu.Unlock()

	e.fire(changes{sections: true})
	return nil
}

// HandleEvent consumes an out-of-band change notification: a clip event
// triggers a targeted refresh, a section event a section-only refresh,
// and anything unrecognized a full refresh. The full refresh is
// signature-gated like the poll loop, so spurious events stay cheap.
func (e *Engine) HandleEvent(ctx context.Context, ev gateway.Event) {
	var err error
	switch {
	case ev.Type == gateway.EventClip && ev.ID != "":
		err = e.RefreshOne(ctx, ev.ID)
	case ev.Type == gateway.EventSection:
		err = e.RefreshSections(ctx)
	default:
		if _, err = e.CheckRemote(ctx); err == nil {
			err = e.RefreshSections(ctx)
		}
	}
	if err != nil {
		log.Printf("refresh after %q event failed: %v", ev.Type, err)
	}
}

// Run drives the engine until ctx is done: it consumes gateway events
// and polls at the given interval. Poll failures are soft; the next
// tick retries.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	events := e.gw.Subscribe()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			e.HandleEvent(ctx, ev)
		case <-ticker.C:
			if _, err := e.CheckRemote(ctx); err != nil {
				log.Printf("poll failed: %v", err)
			}
		}
	}
}
