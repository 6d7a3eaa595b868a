// Package annotate implements the screenshot markup editor: a raster
// canvas loaded from a stored screenshot, drawn on with a pen or
// eraser, and saved back under the same filename so every reference to
// the screenshot picks up the annotated version.
package annotate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"

	"github.com/hpungsan/snipboard/internal/assets"
	"github.com/hpungsan/snipboard/internal/errors"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// State is the editor lifecycle. Transitions are strictly
// Closed -> Loading -> Ready -> Saving -> Closed; a failed load or save
// also lands in Closed.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateReady
	StateSaving
)

// Tool selects the stroke mode.
type Tool int

const (
	// ToolPen paints opaque strokes in the active color.
	ToolPen Tool = iota
	// ToolEraser clears pixels to transparent rather than painting
	// background-colored ones, so erasure survives over any underlying
	// content.
	ToolEraser
)

// Stroke widths in CSS pixels. The backing canvas is deviceScale times
// larger, so the widths are multiplied by the open-time scale before
// stamping; otherwise strokes thin out on high-density displays.
const (
	penWidth    = 6
	eraserWidth = 28
)

// Palette is the default quick-pick annotation palette. The free
// picker can supply any other color.
var Palette = []string{"#ff3b30", "#ffcc00", "#34c759", "#007aff", "#ffffff", "#000000"}

// Store is the slice of the backend the editor needs: fetch one
// screenshot and write some back.
type Store interface {
	Screenshot(ctx context.Context, filename string) ([]byte, error)
	SaveScreenshot(ctx context.Context, items []gateway.ScreenshotItem) ([]gateway.SavedScreenshot, error)
}

// Editor annotates one screenshot at a time.
type Editor struct {
	store   Store
	cache   *assets.URLCache
	onSaved func(filename string)

	state    State
	filename string
	canvas   *image.RGBA
	scale    float64

	// Displayed CSS size, for mapping client coordinates onto the
	// backing canvas. Each axis scales independently.
	cssW, cssH float64

	tool  Tool
	color color.RGBA

	// Pointer capture: only the pointer that started the stroke may
	// extend it. -1 means no stroke in progress.
	activePointer int
	lastX, lastY  float64
}

// NewEditor creates a closed editor. cache and onSaved may be nil;
// onSaved is called after a successful save so thumbnails can redraw.
func NewEditor(store Store, cache *assets.URLCache, onSaved func(filename string)) *Editor {
	return &Editor{
		store:         store,
		cache:         cache,
		onSaved:       onSaved,
		color:         color.RGBA{R: 0xff, G: 0x3b, B: 0x30, A: 0xff},
		activePointer: -1,
	}
}

// State returns the current lifecycle state.
func (e *Editor) State() State {
	return e.state
}

// Canvas exposes the backing raster, nil unless Ready or Saving.
func (e *Editor) Canvas() *image.RGBA {
	return e.canvas
}

// Open loads a screenshot and prepares the canvas. The backing canvas
// is the image's natural size multiplied by deviceScale on each axis,
// so strokes stay sharp on high-density displays. A fetch or decode
// failure closes the editor.
func (e *Editor) Open(ctx context.Context, filename string, deviceScale float64) error {
	if e.state != StateClosed {
		return errors.NewInvalidRequest("editor is already open")
	}
	if deviceScale <= 0 {
		deviceScale = 1
	}
	e.state = StateLoading
	e.filename = filename

	// Resolve through the cache first so a missing file is recorded
	// (and warned about) once, the same as thumbnail rendering.
	if e.cache != nil {
		if _, ok := e.cache.URL(ctx, filename); !ok {
			e.reset()
			return errors.NewNotFound(filename)
		}
	}

	data, err := e.store.Screenshot(ctx, filename)
	if err != nil {
		e.reset()
		return err
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		e.reset()
		return errors.NewInvalidRequest(fmt.Sprintf("cannot decode screenshot %s: %v", filename, err))
	}

	natural := src.Bounds()
	w := int(float64(natural.Dx()) * deviceScale)
	h := int(float64(natural.Dy()) * deviceScale)
	e.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	e.scale = deviceScale
	drawScaled(e.canvas, src)

	// Until told otherwise, assume the canvas is displayed at natural
	// CSS size.
	e.cssW = float64(natural.Dx())
	e.cssH = float64(natural.Dy())
	e.state = StateReady
	return nil
}

// SetDisplaySize records the CSS size the canvas is rendered at, which
// drives the client-to-canvas coordinate mapping.
func (e *Editor) SetDisplaySize(w, h float64) {
	if w > 0 {
		e.cssW = w
	}
	if h > 0 {
		e.cssH = h
	}
}

// SetTool selects pen or eraser.
func (e *Editor) SetTool(t Tool) {
	e.tool = t
}

// SetColor sets the pen color from a #rrggbb hex string. Malformed
// input is ignored.
func (e *Editor) SetColor(hex string) {
	c, err := parseHexColor(hex)
	if err != nil {
		return
	}
	e.color = c
}

// PointerDown begins a stroke at a client-space position. The pointer
// id is captured; concurrent pointers are ignored until PointerUp.
func (e *Editor) PointerDown(pointerID int, clientX, clientY float64) {
	if e.state != StateReady || e.activePointer != -1 {
		return
	}
	e.activePointer = pointerID
	x, y := e.toCanvas(clientX, clientY)
	e.stamp(x, y)
	e.lastX, e.lastY = x, y
}

// PointerMove extends the captured stroke.
func (e *Editor) PointerMove(pointerID int, clientX, clientY float64) {
	if e.state != StateReady || pointerID != e.activePointer {
		return
	}
	x, y := e.toCanvas(clientX, clientY)
	e.segment(e.lastX, e.lastY, x, y)
	e.lastX, e.lastY = x, y
}

// PointerUp releases the capture.
func (e *Editor) PointerUp(pointerID int) {
	if pointerID == e.activePointer {
		e.activePointer = -1
	}
}

// toCanvas maps client (CSS) coordinates to backing-canvas pixels.
// Each axis uses its own ratio of backing size to displayed size.
func (e *Editor) toCanvas(clientX, clientY float64) (float64, float64) {
	b := e.canvas.Bounds()
	return clientX * float64(b.Dx()) / e.cssW, clientY * float64(b.Dy()) / e.cssH
}

// Save encodes the canvas as PNG and writes it back under the original
// filename, replacing the stored screenshot. Cached URLs for the file
// are invalidated and the saved callback fires so thumbnails pick up
// the new content. The editor closes whether or not the save succeeds;
// a failure is reported once, not retried.
func (e *Editor) Save(ctx context.Context) error {
	if e.state != StateReady {
		return errors.NewInvalidRequest("no annotation in progress")
	}
	e.state = StateSaving

	var buf bytes.Buffer
	if err := png.Encode(&buf, e.canvas); err != nil {
		e.reset()
		return errors.NewInternal(err)
	}

	_, err := e.store.SaveScreenshot(ctx, []gateway.ScreenshotItem{
		{Filename: e.filename, Data: buf.Bytes()},
	})
	if err != nil {
		log.Printf("save annotated screenshot %s failed: %v", e.filename, err)
		e.reset()
		return err
	}

	if e.cache != nil {
		e.cache.Invalidate(e.filename)
	}
	if e.onSaved != nil {
		e.onSaved(e.filename)
	}
	e.reset()
	return nil
}

// Cancel discards the annotation and closes the editor.
func (e *Editor) Cancel() {
	e.reset()
}

func (e *Editor) reset() {
	e.state = StateClosed
	e.filename = ""
	e.canvas = nil
	e.scale = 0
	e.activePointer = -1
}

func parseHexColor(s string) (color.RGBA, error) {
	var c color.RGBA
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("malformed color %q", s)
	}
	_, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B)
	if err != nil {
		return c, fmt.Errorf("malformed color %q", s)
	}
	c.A = 0xff
	return c, nil
}
