package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrInvalidBuffer is returned when a pixel buffer's length does not match
// its declared geometry.
var ErrInvalidBuffer = errors.New("invalid pixel buffer")

// PixelBuffer is a width x height grid of 8-bit RGBA pixels in row-major
// order. Colour channels are not premultiplied by alpha, which matches what
// a decoded PNG or a browser canvas hands back.
//
// The invariant len(Pix) == Width*Height*4 is checked by Validate and by
// every operation that reads the buffer. Callers own the input buffer;
// functions in this package never modify it.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// NewPixelBuffer wraps pix as a buffer of the given geometry.
//
// Returns ErrInvalidBuffer if the dimensions are negative or the slice length
// is not width*height*4. The slice is not copied.
func NewPixelBuffer(width, height int, pix []byte) (PixelBuffer, error) {
	buf := PixelBuffer{Width: width, Height: height, Pix: pix}
	if err := buf.Validate(); err != nil {
		return PixelBuffer{}, err
	}
	return buf, nil
}

// Validate reports whether the buffer satisfies its length invariant.
func (p PixelBuffer) Validate() error {
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidBuffer, p.Width, p.Height)
	}
	if want := p.Width * p.Height * 4; len(p.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrInvalidBuffer, p.Width, p.Height, want, len(p.Pix))
	}
	return nil
}

// offset returns the index of the red channel of pixel (x, y).
func (p PixelBuffer) offset(x, y int) int {
	return (y*p.Width + x) * 4
}

// Clone returns a deep copy of the buffer.
func (p PixelBuffer) Clone() PixelBuffer {
	pix := make([]byte, len(p.Pix))
	copy(pix, p.Pix)
	return PixelBuffer{Width: p.Width, Height: p.Height, Pix: pix}
}

// Image returns an *image.NRGBA that shares the buffer's memory. It is the
// form handed to encoders.
func (p PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    p.Pix,
		Stride: p.Width * 4,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// FromImage converts any image.Image into a PixelBuffer.
//
// The conversion goes through imaging.Clone, which always yields a
// non-premultiplied NRGBA image anchored at (0,0) with a tight stride, so
// its Pix slice already has the PixelBuffer layout. Images whose bounds do
// not start at the origin are translated.
func FromImage(img image.Image) PixelBuffer {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	return PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: nrgba.Pix}
}
