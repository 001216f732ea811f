package imaging

import (
	"errors"
	"fmt"
)

// ErrInvalidBox is returned when a box handed to Crop does not fit inside
// the image.
var ErrInvalidBox = errors.New("bounding box outside image")

// DecodedImage is a decoded source image ready for margin detection.
type DecodedImage struct {
	// Name is the caller's name for the source, usually its file name. It is
	// carried through to the result and never interpreted.
	Name string

	// Format is the name reported by the decoder ("png", "jpeg", ...).
	Format string

	Pixels PixelBuffer
}

// CropResult is the output of Crop.
type CropResult struct {
	// Pixels holds the output image. It never aliases the source buffer.
	Pixels PixelBuffer

	// Width and Height equal the box dimensions when the crop was applied and
	// the source dimensions on fallback.
	Width  int
	Height int

	SourceName string
	Format     string

	// Box is the box that was considered, zero if none was found.
	Box BoundingBox

	// Cropped is false when the source was passed through unchanged.
	Cropped bool
}

// Crop extracts box from img into a new buffer.
//
// When found is false or box fails BoundingBox.Valid, the result is a copy of
// the whole source with its original dimensions. Otherwise the pixels inside
// the box are copied row by row, channel for channel, with no resampling.
//
// Errors:
//   - ErrInvalidBuffer if img.Pixels violates its length invariant
//   - ErrInvalidBox if a valid box reaches outside the image
func Crop(img DecodedImage, box BoundingBox, found bool) (*CropResult, error) {
	src := img.Pixels
	if err := src.Validate(); err != nil {
		return nil, err
	}

	result := &CropResult{
		SourceName: img.Name,
		Format:     img.Format,
	}
	if found {
		result.Box = box
	}

	if !found || !box.Valid() {
		result.Pixels = src.Clone()
		result.Width = src.Width
		result.Height = src.Height
		return result, nil
	}

	if box.Left < 0 || box.Top < 0 || box.Right >= src.Width || box.Bottom >= src.Height {
		return nil, fmt.Errorf("%w: %s in %dx%d image", ErrInvalidBox, box, src.Width, src.Height)
	}

	w, h := box.Width(), box.Height()
	pix := make([]byte, w*h*4)
	rowBytes := w * 4
	for y := 0; y < h; y++ {
		start := src.offset(box.Left, box.Top+y)
		copy(pix[y*rowBytes:(y+1)*rowBytes], src.Pix[start:start+rowBytes])
	}

	result.Pixels = PixelBuffer{Width: w, Height: h, Pix: pix}
	result.Width = w
	result.Height = h
	result.Cropped = true
	return result, nil
}

// CropMargins detects the content box of img at threshold and crops to it.
// It is Detect followed by Crop.
func CropMargins(img DecodedImage, threshold int) (*CropResult, error) {
	box, found, err := Detect(img.Pixels, threshold)
	if err != nil {
		return nil, err
	}
	return Crop(img, box, found)
}
