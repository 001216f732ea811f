package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"testing"

	"github.com/disintegration/imaging"
)

// failingEncoder always fails and records that it was called.
type failingEncoder struct {
	calls int
	err   error
}

func (f *failingEncoder) Encode(w io.Writer, img image.Image, format imaging.Format) error {
	f.calls++
	// Partial output must never reach the caller.
	w.Write([]byte("garbage"))
	return f.err
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		source string
		want   imaging.Format
	}{
		{"png", imaging.PNG},
		{"jpeg", imaging.JPEG},
		{"gif", imaging.PNG},
		{"bmp", imaging.BMP},
		{"tiff", imaging.TIFF},
		{"webp", imaging.PNG},
		{"", imaging.PNG},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := OutputFormat(tt.source); got != tt.want {
				t.Errorf("OutputFormat(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		name, format, want string
	}{
		{"photo.png", "png", "cropped_photo.png"},
		{"photo.jpg", "jpeg", "cropped_photo.jpg"},
		{"photo.JPEG", "jpeg", "cropped_photo.JPEG"},
		{"sticker.webp", "webp", "cropped_sticker.png"},
		{"screenshot", "png", "cropped_screenshot.png"},
		{"misnamed.png", "jpeg", "cropped_misnamed.jpeg"},
		{"/some/dir/scan.gif", "gif", "cropped_scan.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputName(tt.name, tt.format); got != tt.want {
				t.Errorf("OutputName(%q, %q) = %q, want %q", tt.name, tt.format, got, tt.want)
			}
		})
	}
}

func TestStdEncoder_PNGRoundTrip(t *testing.T) {
	buf := solidBuffer(5, 4, color.NRGBA{10, 200, 30, 180})

	var out bytes.Buffer
	if err := (StdEncoder{}).Encode(&out, buf.Image(), imaging.PNG); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	img, err := png.Decode(&out)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if got := FromImage(img); !bytes.Equal(got.Pix, buf.Pix) {
		t.Error("PNG output does not preserve pixels")
	}
}

func TestJpegliEncoder_RejectsNonJPEG(t *testing.T) {
	buf := solidBuffer(2, 2, black)
	err := (JpegliEncoder{}).Encode(io.Discard, buf.Image(), imaging.PNG)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEncoderChain_FallsThrough(t *testing.T) {
	first := &failingEncoder{err: errors.New("boom")}
	chain := EncoderChain{first, StdEncoder{}}
	buf := solidBuffer(3, 3, black)

	var out bytes.Buffer
	if err := chain.Encode(&out, buf.Image(), imaging.PNG); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if first.calls != 1 {
		t.Errorf("first encoder called %d times, want 1", first.calls)
	}
	if _, err := png.Decode(&out); err != nil {
		t.Errorf("output is not a clean PNG: %v", err)
	}
}

func TestEncoderChain_AllFail(t *testing.T) {
	cause1 := errors.New("first")
	cause2 := errors.New("second")
	chain := EncoderChain{&failingEncoder{err: cause1}, &failingEncoder{err: cause2}}

	var out bytes.Buffer
	err := chain.Encode(&out, solidBuffer(1, 1, black).Image(), imaging.PNG)
	if !errors.Is(err, ErrEncode) || !errors.Is(err, cause1) || !errors.Is(err, cause2) {
		t.Errorf("err = %v, want ErrEncode wrapping both causes", err)
	}
	if out.Len() != 0 {
		t.Errorf("failed chain wrote %d bytes", out.Len())
	}
}

func TestEncoderChain_Empty(t *testing.T) {
	err := EncoderChain{}.Encode(io.Discard, solidBuffer(1, 1, black).Image(), imaging.PNG)
	if !errors.Is(err, ErrEncode) {
		t.Errorf("err = %v, want ErrEncode", err)
	}
}

func TestEncodeResult(t *testing.T) {
	res := &CropResult{
		Pixels:     solidBuffer(6, 2, color.NRGBA{50, 60, 70, 255}),
		Width:      6,
		Height:     2,
		SourceName: "sticker.webp",
		Format:     "webp",
	}

	data, format, err := EncodeResult(StdEncoder{}, res)
	if err != nil {
		t.Fatalf("EncodeResult failed: %v", err)
	}
	if format != imaging.PNG {
		t.Errorf("format = %v, want PNG", format)
	}
	img, err := Decode("out", data)
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if img.Pixels.Width != 6 || img.Pixels.Height != 2 {
		t.Errorf("dimensions: got %dx%d, want 6x2", img.Pixels.Width, img.Pixels.Height)
	}
}

func TestEncodeResult_GIFKeepsPixels(t *testing.T) {
	src := image.NewPaletted(image.Rect(0, 0, 20, 20), color.Palette{
		color.NRGBA{0, 0, 0, 0},
		color.NRGBA{37, 141, 201, 255},
	})
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			src.SetColorIndex(x, y, 1)
		}
	}
	var gifData bytes.Buffer
	if err := gif.Encode(&gifData, src, nil); err != nil {
		t.Fatalf("failed to encode GIF: %v", err)
	}
	decoded, err := Decode("scan.gif", gifData.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// Threshold 0 leaves no content, so the whole frame comes back.
	res, err := CropMargins(*decoded, 0)
	if err != nil {
		t.Fatalf("CropMargins failed: %v", err)
	}
	data, format, err := EncodeResult(NewEncoderChain(DefaultJPEGQuality), res)
	if err != nil {
		t.Fatalf("EncodeResult failed: %v", err)
	}
	if format != imaging.PNG {
		t.Errorf("format = %v, want PNG", format)
	}

	out, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if got := FromImage(out); !bytes.Equal(got.Pix, decoded.Pixels.Pix) {
		t.Error("GIF source pixels changed on output")
	}
	if got := FromImage(out).Pix[3]; got != 0 {
		t.Errorf("corner alpha = %d, want 0", got)
	}

	cropped, err := CropMargins(*decoded, DefaultThreshold)
	if err != nil {
		t.Fatalf("CropMargins failed: %v", err)
	}
	data, _, err = EncodeResult(NewEncoderChain(DefaultJPEGQuality), cropped)
	if err != nil {
		t.Fatalf("EncodeResult failed: %v", err)
	}
	out, err = png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Fatalf("cropped size %dx%d, want 10x10", b.Dx(), b.Dy())
	}
	if got := FromImage(out).Pix[:4]; !bytes.Equal(got, []byte{37, 141, 201, 255}) {
		t.Errorf("content pixel = %v, want [37 141 201 255]", got)
	}
}

func TestEncodeResult_Failure(t *testing.T) {
	res := &CropResult{Pixels: solidBuffer(1, 1, black), SourceName: "a.png", Format: "png"}

	_, _, err := EncodeResult(&failingEncoder{err: errors.New("disk full")}, res)
	if !errors.Is(err, ErrEncode) {
		t.Errorf("err = %v, want ErrEncode", err)
	}
}

func TestNewEncoderChain_JPEG(t *testing.T) {
	buf := solidBuffer(16, 16, color.NRGBA{200, 40, 40, 255})

	var out bytes.Buffer
	if err := NewEncoderChain(85).Encode(&out, buf.Image(), imaging.JPEG); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	img, err := Decode("out.jpg", out.Bytes())
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if img.Format != "jpeg" {
		t.Errorf("format = %s, want jpeg", img.Format)
	}
	if img.Pixels.Width != 16 || img.Pixels.Height != 16 {
		t.Errorf("dimensions: got %dx%d, want 16x16", img.Pixels.Width, img.Pixels.Height)
	}
}
