package annotate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/hpungsan/snipboard/internal/assets"
	"github.com/hpungsan/snipboard/internal/config"
	"github.com/hpungsan/snipboard/internal/db"
	"github.com/hpungsan/snipboard/internal/gateway"
)

func newTestStore(t *testing.T) *gateway.Local {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return gateway.NewLocal(database, config.DefaultConfig())
}

// putScreenshot stores a solid-white w x h PNG and returns its bytes.
func putScreenshot(t *testing.T, gw *gateway.Local, filename string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, white)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err := gw.SaveScreenshot(context.Background(), []gateway.ScreenshotItem{
		{Filename: filename, Data: buf.Bytes()},
	})
	if err != nil {
		t.Fatalf("store screenshot: %v", err)
	}
	return buf.Bytes()
}

func TestOpenSizesCanvasByDeviceScale(t *testing.T) {
	gw := newTestStore(t)
	putScreenshot(t, gw, "shot.png", 40, 30)

	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "shot.png", 2); err != nil {
		t.Fatalf("open: %v", err)
	}
	if ed.State() != StateReady {
		t.Fatalf("expected Ready, got %v", ed.State())
	}
	b := ed.Canvas().Bounds()
	if b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("expected 80x60 backing canvas, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestOpenDecodeFailureCloses(t *testing.T) {
	gw := newTestStore(t)
	_, err := gw.SaveScreenshot(context.Background(), []gateway.ScreenshotItem{
		{Filename: "broken.png", Data: []byte("not a png")},
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "broken.png", 1); err == nil {
		t.Fatal("expected decode error")
	}
	if ed.State() != StateClosed {
		t.Errorf("expected Closed after decode failure, got %v", ed.State())
	}
	if ed.Canvas() != nil {
		t.Error("canvas should be discarded")
	}
}

func TestOpenMissingScreenshot(t *testing.T) {
	gw := newTestStore(t)
	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "nope.png", 1); err == nil {
		t.Fatal("expected error for missing screenshot")
	}
	if ed.State() != StateClosed {
		t.Errorf("expected Closed, got %v", ed.State())
	}
}

func TestPenStrokeMapsClientCoordinates(t *testing.T) {
	gw := newTestStore(t)
	putScreenshot(t, gw, "shot.png", 100, 50)

	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "shot.png", 2); err != nil {
		t.Fatalf("open: %v", err)
	}
	// Backing canvas is 200x100, displayed at 50x50 CSS: scaleX=4, scaleY=2.
	ed.SetDisplaySize(50, 50)
	ed.SetColor("#ff0000")

	ed.PointerDown(1, 10, 10)
	ed.PointerUp(1)

	// Client (10,10) lands at canvas (40,20).
	r, _, _, a := ed.Canvas().At(40, 20).RGBA()
	if a == 0 || r>>8 != 0xff {
		t.Errorf("expected red pixel at (40,20), got %v", ed.Canvas().At(40, 20))
	}
	// Far corner untouched.
	if got := ed.Canvas().RGBAAt(190, 90); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("expected untouched white at (190,90), got %v", got)
	}
}

func TestEraserClearsToTransparent(t *testing.T) {
	gw := newTestStore(t)
	putScreenshot(t, gw, "shot.png", 100, 100)

	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "shot.png", 1); err != nil {
		t.Fatalf("open: %v", err)
	}
	ed.SetDisplaySize(100, 100)
	ed.SetTool(ToolEraser)

	ed.PointerDown(1, 50, 50)
	ed.PointerUp(1)

	if got := ed.Canvas().RGBAAt(50, 50); got.A != 0 {
		t.Errorf("eraser must clear alpha, got %v", got)
	}
	// Outside the eraser radius stays opaque.
	if got := ed.Canvas().RGBAAt(50, 80); got.A != 0xff {
		t.Errorf("pixel outside radius should be untouched, got %v", got)
	}
}

// strokeDiameter counts marked pixels across a stamp's center row.
func strokeDiameter(img *image.RGBA, cy int, marked func(color.RGBA) bool) int {
	n := 0
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		if marked(img.RGBAAt(x, cy)) {
			n++
		}
	}
	return n
}

func TestStrokeWidthScalesWithDeviceScale(t *testing.T) {
	gw := newTestStore(t)
	putScreenshot(t, gw, "shot.png", 100, 100)

	isRed := func(c color.RGBA) bool { return c.R == 0xff && c.G == 0 && c.B == 0 }

	diameters := map[float64]int{}
	for _, scale := range []float64{1, 2} {
		ed := NewEditor(gw, nil, nil)
		if err := ed.Open(context.Background(), "shot.png", scale); err != nil {
			t.Fatalf("open at scale %v: %v", scale, err)
		}
		ed.SetColor("#ff0000")
		// Canvas is 100*scale square, displayed at natural CSS size,
		// so client (50,50) lands at the canvas center.
		ed.PointerDown(1, 50, 50)
		ed.PointerUp(1)
		diameters[scale] = strokeDiameter(ed.Canvas(), int(50*scale), isRed)
		ed.Cancel()
	}

	if diameters[1] != penWidth {
		t.Errorf("pen diameter at scale 1 = %d, want %d", diameters[1], penWidth)
	}
	if diameters[2] != 2*penWidth {
		t.Errorf("pen diameter at scale 2 = %d, want %d", diameters[2], 2*penWidth)
	}

	// The eraser scales the same way.
	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "shot.png", 2); err != nil {
		t.Fatalf("open: %v", err)
	}
	ed.SetTool(ToolEraser)
	ed.PointerDown(1, 50, 50)
	ed.PointerUp(1)
	cleared := strokeDiameter(ed.Canvas(), 100, func(c color.RGBA) bool { return c.A == 0 })
	if cleared != 2*eraserWidth {
		t.Errorf("eraser diameter at scale 2 = %d, want %d", cleared, 2*eraserWidth)
	}
}

func TestPointerCaptureIgnoresOtherPointers(t *testing.T) {
	gw := newTestStore(t)
	putScreenshot(t, gw, "shot.png", 100, 100)

	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "shot.png", 1); err != nil {
		t.Fatalf("open: %v", err)
	}
	ed.SetDisplaySize(100, 100)
	ed.SetColor("#0000ff")

	ed.PointerDown(1, 10, 10)
	// A second pointer must not draw or steal the stroke.
	ed.PointerDown(2, 80, 80)
	ed.PointerMove(2, 90, 90)
	ed.PointerUp(1)

	if got := ed.Canvas().RGBAAt(80, 80); got.B == 0xff && got.R == 0 {
		t.Errorf("second pointer drew at (80,80): %v", got)
	}
	if got := ed.Canvas().RGBAAt(10, 10); got.B != 0xff {
		t.Errorf("captured pointer should have drawn at (10,10): %v", got)
	}
}

func TestSaveReplacesScreenshotAndNotifies(t *testing.T) {
	gw := newTestStore(t)
	original := putScreenshot(t, gw, "shot.png", 60, 60)

	cache := assets.NewURLCache(gw)
	ctx := context.Background()
	if _, ok := cache.URL(ctx, "shot.png"); !ok {
		t.Fatal("expected cached URL for stored screenshot")
	}

	var saved string
	ed := NewEditor(gw, cache, func(filename string) { saved = filename })
	if err := ed.Open(ctx, "shot.png", 1); err != nil {
		t.Fatalf("open: %v", err)
	}
	ed.SetDisplaySize(60, 60)
	ed.SetColor("#ff0000")
	ed.PointerDown(1, 30, 30)
	ed.PointerMove(1, 40, 30)
	ed.PointerUp(1)

	if err := ed.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ed.State() != StateClosed {
		t.Errorf("expected Closed after save, got %v", ed.State())
	}
	if saved != "shot.png" {
		t.Errorf("saved callback got %q", saved)
	}

	stored, err := gw.Screenshot(ctx, "shot.png")
	if err != nil {
		t.Fatalf("fetch stored: %v", err)
	}
	if bytes.Equal(stored, original) {
		t.Error("stored screenshot should have been replaced")
	}
	img, err := png.Decode(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("stored screenshot must be valid PNG: %v", err)
	}
	r, _, _, _ := img.At(30, 30).RGBA()
	if r>>8 != 0xff {
		t.Errorf("annotation missing from saved image at (30,30): %v", img.At(30, 30))
	}
}

func TestSaveFailureStillCloses(t *testing.T) {
	gw := newTestStore(t)
	putScreenshot(t, gw, "shot.png", 20, 20)

	store := &failingStore{Local: gw}
	ed := NewEditor(store, nil, nil)
	if err := ed.Open(context.Background(), "shot.png", 1); err != nil {
		t.Fatalf("open: %v", err)
	}

	store.failSave = true
	if err := ed.Save(context.Background()); err == nil {
		t.Fatal("expected save failure")
	}
	if ed.State() != StateClosed {
		t.Errorf("editor must close even on save failure, got %v", ed.State())
	}
}

func TestCancelDiscards(t *testing.T) {
	gw := newTestStore(t)
	original := putScreenshot(t, gw, "shot.png", 20, 20)

	ed := NewEditor(gw, nil, nil)
	if err := ed.Open(context.Background(), "shot.png", 1); err != nil {
		t.Fatalf("open: %v", err)
	}
	ed.PointerDown(1, 5, 5)
	ed.PointerUp(1)
	ed.Cancel()

	if ed.State() != StateClosed {
		t.Fatalf("expected Closed, got %v", ed.State())
	}
	stored, err := gw.Screenshot(context.Background(), "shot.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Equal(stored, original) {
		t.Error("cancel must not write anything")
	}
}

type failingStore struct {
	*gateway.Local
	failSave bool
}

func (f *failingStore) SaveScreenshot(ctx context.Context, items []gateway.ScreenshotItem) ([]gateway.SavedScreenshot, error) {
	if f.failSave {
		return nil, fmt.Errorf("gateway unavailable")
	}
	return f.Local.SaveScreenshot(ctx, items)
}
