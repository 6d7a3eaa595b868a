package engine

import (
	"context"
	"fmt"

	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/errors"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// Command is a closed set of item actions, one variant per action, so
// the compiler checks dispatch exhaustiveness instead of a string key
// lookup silently falling through.
type Command interface {
	isCommand()
}

// RenameClip sets a clip's title.
type RenameClip struct {
	ID    string
	Title string
}

// ChangeClipIcon sets a clip's icon.
type ChangeClipIcon struct {
	ID   string
	Icon string
}

// ChangeClipColor sets a clip's accent color.
type ChangeClipColor struct {
	ID    string
	Color string
}

// DeleteClip removes a clip after confirmation.
type DeleteClip struct {
	ID      string
	Confirm Confirmer
}

// RenameSection sets a section's name.
type RenameSection struct {
	ID   string
	Name string
}

// ChangeSectionColor sets a section's accent color.
type ChangeSectionColor struct {
	ID    string
	Color string
}

// ChangeSectionIcon sets a section's icon.
type ChangeSectionIcon struct {
	ID   string
	Icon string
}

// SetSectionExportPath sets the directory a section mirrors clips into.
type SetSectionExportPath struct {
	ID   string
	Path string
}

// ToggleSectionLock flips a section's deletion lock.
type ToggleSectionLock struct {
	ID string
}

// DeleteSection removes a section after confirmation; its clips move to
// the inbox.
type DeleteSection struct {
	ID      string
	Confirm Confirmer
}

func (RenameClip) isCommand()           {}
func (ChangeClipIcon) isCommand()       {}
func (ChangeClipColor) isCommand()      {}
func (DeleteClip) isCommand()           {}
func (RenameSection) isCommand()        {}
func (ChangeSectionColor) isCommand()   {}
func (ChangeSectionIcon) isCommand()    {}
func (SetSectionExportPath) isCommand() {}
func (ToggleSectionLock) isCommand()    {}
func (DeleteSection) isCommand()        {}

// Dispatch executes a command against the mirror, persisting through
// the gateway first as usual.
func (e *Engine) Dispatch(ctx context.Context, cmd Command) error {
	switch v := cmd.(type) {
	case RenameClip:
		return e.mutateClip(ctx, v.ID, func(c *clip.Clip) { c.Title = v.Title })
	case ChangeClipIcon:
		return e.mutateClip(ctx, v.ID, func(c *clip.Clip) { c.Icon = v.Icon })
	case ChangeClipColor:
		return e.mutateClip(ctx, v.ID, func(c *clip.Clip) { c.Color = v.Color })
	case DeleteClip:
		e.mu.Lock()
		c, ok := e.findClip(v.ID)
		if !ok {
			e.mu.Unlock()
			return errors.NewNotFound(v.ID)
		}
		target := c.Clone()
		e.mu.Unlock()
		return e.Delete(ctx, target, v.Confirm)
	case RenameSection:
		return e.patchSection(ctx, v.ID, gateway.SectionPatch{Name: &v.Name})
	case ChangeSectionColor:
		return e.patchSection(ctx, v.ID, gateway.SectionPatch{Color: &v.Color})
	case ChangeSectionIcon:
		return e.patchSection(ctx, v.ID, gateway.SectionPatch{Icon: &v.Icon})
	case SetSectionExportPath:
		return e.patchSection(ctx, v.ID, gateway.SectionPatch{ExportPath: &v.Path})
	case ToggleSectionLock:
		e.mu.Lock()
		var locked bool
		found := false
		for _, s := range e.sections {
			if s.ID == v.ID {
				locked = !s.Locked
				found = true
				break
			}
		}
		e.mu.Unlock()
		if !found {
			return errors.NewNotFound(v.ID)
		}
		return e.patchSection(ctx, v.ID, gateway.SectionPatch{Locked: &locked})
	case DeleteSection:
		if v.Confirm != nil && !v.Confirm("Delete section? Its clips move to the inbox.") {
			return nil
		}
		if err := e.gw.DeleteSection(ctx, v.ID); err != nil {
			return err
		}
		// Member clips were reassigned server-side.
		return e.Hydrate(ctx)
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unknown command %T", cmd))
	}
}

// mutateClip loads a clip from the mirror, applies the edit to a copy,
// and persists through the gateway.
func (e *Engine) mutateClip(ctx context.Context, id string, edit func(*clip.Clip)) error {
	e.mu.Lock()
	c, ok := e.findClip(id)
	if !ok {
		e.mu.Unlock()
		return errors.NewNotFound(id)
	}
	updated := c.Clone()
	e.mu.Unlock()

	edit(&updated)
	_, err := e.Persist(ctx, updated, gateway.SaveOptions{})
	return err
}

// patchSection applies a partial update through the gateway and reloads
// the section list.
func (e *Engine) patchSection(ctx context.Context, id string, patch gateway.SectionPatch) error {
	if err := e.gw.UpdateSection(ctx, id, patch); err != nil {
		return err
	}
	return e.RefreshSections(ctx)
}
