package imaging

import (
	"errors"
	"fmt"
	"image"
)

// DefaultThreshold is the brightness at or above which an opaque pixel is
// treated as margin when the caller has no preference.
const DefaultThreshold = 240

// alphaCutoff is the alpha below which a pixel counts as transparent.
const alphaCutoff = 128

// ErrInvalidThreshold is returned for thresholds outside [0, 255].
var ErrInvalidThreshold = errors.New("threshold out of range")

// BoundingBox is an axis-aligned rectangle in inclusive pixel coordinates.
//
// Unlike image.Rectangle, Right and Bottom name the last column
// and row that belong to the box, not the first ones past it.
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the number of columns the box spans.
func (b BoundingBox) Width() int { return b.Right - b.Left + 1 }

// Height returns the number of rows the box spans.
func (b BoundingBox) Height() int { return b.Bottom - b.Top + 1 }

// Valid reports whether the box is usable for cropping.
//
// A box must span more than one column and more than one row: content
// confined to a single row or column is rejected, and Crop falls back to the
// full image.
func (b BoundingBox) Valid() bool {
	return b.Width() > 0 && b.Height() > 0 && b.Left < b.Right && b.Top < b.Bottom
}

// Rect returns the box as a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right+1, b.Bottom+1)
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.Left, b.Top, b.Right, b.Bottom)
}

// IsMargin reports whether a pixel is ignorable background: either mostly
// transparent (alpha below 128) or with an average RGB brightness at or
// above threshold.
func IsMargin(r, g, b, a uint8, threshold int) bool {
	if a < alphaCutoff {
		return true
	}
	// (r+g+b)/3 >= threshold without losing the fractional part.
	return int(r)+int(g)+int(b) >= 3*threshold
}

// ValidateThreshold returns ErrInvalidThreshold unless 0 <= t <= 255.
func ValidateThreshold(t int) error {
	if t < 0 || t > 255 {
		return fmt.Errorf("%w: %d (want 0-255)", ErrInvalidThreshold, t)
	}
	return nil
}

// Detect finds the tightest box containing every non-margin pixel of buf.
//
// Four independent scans run inward from the left, right, top and bottom
// edges, each stopping at the first column or row that holds content. A scan
// that never finds content keeps its own edge of the image, so an image made
// entirely of margin reports the full frame. That box is valid whenever the
// image is at least 2x2, and cropping to it leaves the image unchanged.
//
// The second return value is false only for a zero-area buffer, where no scan
// can run. Callers should still check Valid before cropping; Crop does so.
//
// Errors:
//   - ErrInvalidBuffer if buf violates its length invariant
//   - ErrInvalidThreshold if threshold is outside [0, 255]
func Detect(buf PixelBuffer, threshold int) (BoundingBox, bool, error) {
	if err := buf.Validate(); err != nil {
		return BoundingBox{}, false, err
	}
	if err := ValidateThreshold(threshold); err != nil {
		return BoundingBox{}, false, err
	}

	w, h := buf.Width, buf.Height
	if w == 0 || h == 0 {
		return BoundingBox{}, false, nil
	}

	box := BoundingBox{Left: 0, Top: 0, Right: w - 1, Bottom: h - 1}

	for x := 0; x < w; x++ {
		if buf.columnHasContent(x, threshold) {
			box.Left = x
			break
		}
	}
	for x := w - 1; x >= 0; x-- {
		if buf.columnHasContent(x, threshold) {
			box.Right = x
			break
		}
	}
	for y := 0; y < h; y++ {
		if buf.rowHasContent(y, threshold) {
			box.Top = y
			break
		}
	}
	for y := h - 1; y >= 0; y-- {
		if buf.rowHasContent(y, threshold) {
			box.Bottom = y
			break
		}
	}

	return box, true, nil
}

func (p PixelBuffer) isContent(x, y, threshold int) bool {
	i := p.offset(x, y)
	return !IsMargin(p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3], threshold)
}

func (p PixelBuffer) columnHasContent(x, threshold int) bool {
	for y := 0; y < p.Height; y++ {
		if p.isContent(x, y, threshold) {
			return true
		}
	}
	return false
}

func (p PixelBuffer) rowHasContent(y, threshold int) bool {
	for x := 0; x < p.Width; x++ {
		if p.isContent(x, y, threshold) {
			return true
		}
	}
	return false
}
