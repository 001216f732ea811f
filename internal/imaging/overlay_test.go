package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func decodeOverlay(t *testing.T, result *OverlayResult) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func TestMarginOverlay(t *testing.T) {
	buf := solidBuffer(40, 30, white)
	fillRect(buf, 10, 8, 29, 21, color.NRGBA{0, 0, 200, 255})

	result, err := MarginOverlay(decoded("a.png", buf), DefaultThreshold, "#00FF00", 1.0)
	if err != nil {
		t.Fatalf("MarginOverlay failed: %v", err)
	}

	if result.Width != 40 || result.Height != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	if !result.Found || !result.WouldCrop {
		t.Errorf("found=%v wouldCrop=%v, want both true", result.Found, result.WouldCrop)
	}
	if result.Box != (BoundingBox{10, 8, 29, 21}) {
		t.Errorf("box = %v", result.Box)
	}

	img := decodeOverlay(t, result)

	// Outline on the box edge.
	if r, g, b := rgb8(img.At(10, 15)); r != 0 || g != 255 || b != 0 {
		t.Errorf("outline at (10,15): got (%d,%d,%d), want (0,255,0)", r, g, b)
	}
	// Margin is shaded, so no longer pure white.
	if r, g, b := rgb8(img.At(2, 2)); r == 255 && g == 255 && b == 255 {
		t.Error("margin at (2,2) was not shaded")
	}
	// Content interior untouched.
	if r, g, b := rgb8(img.At(20, 15)); r != 0 || g != 0 || b != 200 {
		t.Errorf("content at (20,15): got (%d,%d,%d), want (0,0,200)", r, g, b)
	}
}

func TestMarginOverlay_InvalidBoxNotShaded(t *testing.T) {
	buf := solidBuffer(10, 10, white)
	setPixel(buf, 5, 5, black)

	result, err := MarginOverlay(decoded("dot.png", buf), DefaultThreshold, "", 1.0)
	if err != nil {
		t.Fatalf("MarginOverlay failed: %v", err)
	}
	if result.WouldCrop {
		t.Error("single-pixel box should not crop")
	}

	img := decodeOverlay(t, result)
	if r, g, b := rgb8(img.At(0, 0)); r != 255 || g != 255 || b != 255 {
		t.Errorf("(0,0) got (%d,%d,%d), want unshaded white", r, g, b)
	}
}

func TestMarginOverlay_Scale(t *testing.T) {
	buf := solidBuffer(40, 20, white)
	fillRect(buf, 5, 5, 14, 14, black)

	result, err := MarginOverlay(decoded("a.png", buf), DefaultThreshold, "#FF0000", 0.5)
	if err != nil {
		t.Fatalf("MarginOverlay failed: %v", err)
	}
	if result.Width != 20 || result.Height != 10 {
		t.Errorf("scaled dimensions: got %dx%d, want 20x10", result.Width, result.Height)
	}
	if result.Box != (BoundingBox{5, 5, 14, 14}) {
		t.Errorf("box should stay in source coordinates, got %v", result.Box)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.NRGBA
		wantErr bool
	}{
		{"#FF0000", color.NRGBA{255, 0, 0, 255}, false},
		{"00ff00", color.NRGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.NRGBA{0, 0, 255, 128}, false},
		{"", color.NRGBA{}, true},
		{"#FFF", color.NRGBA{}, true},
		{"#GGGGGG", color.NRGBA{}, true},
		{"#FF0000ZZ", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseHexColor(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseHexColor(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHexColor(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseHexColor(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
