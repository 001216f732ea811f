package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultOverlayColor is the outline color used when none is given.
const DefaultOverlayColor = "#FF000080"

// marginShade darkens the area a crop would remove.
var marginShade = color.NRGBA{0, 0, 0, 96}

// OverlayResult contains a preview of what margin detection found.
type OverlayResult struct {
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	ImageBase64 string      `json:"image_base64"`
	MimeType    string      `json:"mime_type"`
	Box         BoundingBox `json:"box"`
	Found       bool        `json:"found"`

	// WouldCrop is false when the detected box fails validation and a crop
	// would return the image unchanged.
	WouldCrop bool `json:"would_crop"`
}

// MarginOverlay renders img with the detected content box outlined.
//
// When the box is valid, everything outside it is shaded so the margins a
// crop would remove stand out. colorHex may be "#RRGGBB" or "#RRGGBBAA"; an
// unparsable color falls back to DefaultOverlayColor. A positive scale other
// than 1 resizes the preview; box coordinates stay in source pixels.
func MarginOverlay(img DecodedImage, threshold int, colorHex string, scale float64) (*OverlayResult, error) {
	box, found, err := Detect(img.Pixels, threshold)
	if err != nil {
		return nil, err
	}

	outline, err := parseHexColor(colorHex)
	if err != nil {
		outline, _ = parseHexColor(DefaultOverlayColor)
	}

	src := img.Pixels.Image()
	bounds := src.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, src, bounds.Min, draw.Src)

	valid := found && box.Valid()
	if valid {
		shade := image.NewUniform(marginShade)
		r := box.Rect()
		for _, m := range []image.Rectangle{
			image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, r.Min.Y), // above
			image.Rect(bounds.Min.X, r.Max.Y, bounds.Max.X, bounds.Max.Y), // below
			image.Rect(bounds.Min.X, r.Min.Y, r.Min.X, r.Max.Y),           // left
			image.Rect(r.Max.X, r.Min.Y, bounds.Max.X, r.Max.Y),           // right
		} {
			draw.Draw(result, m, shade, image.Point{}, draw.Over)
		}
	}
	if found {
		drawOutline(result, box.Rect(), outline)
	}

	var out image.Image = result
	if scale > 0 && scale != 1.0 {
		w := int(float64(bounds.Dx()) * scale)
		h := int(float64(bounds.Dy()) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		out = transform.Resize(result, w, h, transform.Linear)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode overlay image: %w", err)
	}

	return &OverlayResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Box:         box,
		Found:       found,
		WouldCrop:   valid,
	}, nil
}

// drawOutline draws a one-pixel border just inside r, blended over img.
func drawOutline(img *image.RGBA, r image.Rectangle, c color.NRGBA) {
	src := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y+1, r.Min.X+1, r.Max.Y-1),
		image.Rect(r.Max.X-1, r.Min.Y+1, r.Max.X, r.Max.Y-1),
	} {
		draw.Draw(img, edge.Intersect(img.Bounds()), src, image.Point{}, draw.Over)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func parseHexColor(hex string) (color.NRGBA, error) {
	if hex == "" {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}

	alpha := uint8(255)
	switch len(hex) {
	case 7:
	case 9:
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:7]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}
