package annotate

import (
	"image"
	"image/color"
	"math"
)

// drawScaled copies src into dst, stretching with nearest-neighbor
// sampling. dst and src may differ in size on either axis.
func drawScaled(dst *image.RGBA, src image.Image) {
	db, sb := dst.Bounds(), src.Bounds()
	for y := 0; y < db.Dy(); y++ {
		sy := sb.Min.Y + y*sb.Dy()/db.Dy()
		for x := 0; x < db.Dx(); x++ {
			sx := sb.Min.X + x*sb.Dx()/db.Dx()
			dst.Set(db.Min.X+x, db.Min.Y+y, src.At(sx, sy))
		}
	}
}

// stamp draws one round cap at a canvas position with the active tool.
// Widths are in CSS pixels, so the radius scales with the backing
// canvas's device scale.
func (e *Editor) stamp(cx, cy float64) {
	switch e.tool {
	case ToolEraser:
		stampCircle(e.canvas, cx, cy, eraserWidth*e.scale/2, color.RGBA{})
	default:
		stampCircle(e.canvas, cx, cy, penWidth*e.scale/2, e.color)
	}
}

// segment draws a stroke segment as overlapping round stamps, giving
// round caps and joins.
func (e *Editor) segment(x0, y0, x1, y1 float64) {
	dist := math.Hypot(x1-x0, y1-y0)
	steps := int(dist) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		e.stamp(x0+(x1-x0)*t, y0+(y1-y0)*t)
	}
}

// stampCircle fills a disc. The eraser passes the zero color, clearing
// pixels to fully transparent; the pen writes opaque color.
func stampCircle(img *image.RGBA, cx, cy, r float64, c color.RGBA) {
	b := img.Bounds()
	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))
	for y := minY; y <= maxY; y++ {
		if y < b.Min.Y || y >= b.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < b.Min.X || x >= b.Max.X {
				continue
			}
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
