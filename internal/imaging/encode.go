package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/jpegli"
)

var (
	// ErrEncode wraps every failure to serialize an output image.
	ErrEncode = errors.New("failed to encode image")

	// ErrUnsupportedFormat is returned by an Encoder asked for a format it
	// cannot write.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// OutputPrefix is prepended to the source name of every cropped output.
const OutputPrefix = "cropped_"

// DefaultJPEGQuality is used when an encoder is built without a quality.
const DefaultJPEGQuality = 90

// Encoder serializes an image in a given format.
type Encoder interface {
	Encode(w io.Writer, img image.Image, format imaging.Format) error
}

// JpegliEncoder writes JPEG output with the jpegli encoder. It refuses every
// other format with ErrUnsupportedFormat so that an EncoderChain moves on.
type JpegliEncoder struct {
	Quality int
}

// Encode implements Encoder.
func (e JpegliEncoder) Encode(w io.Writer, img image.Image, format imaging.Format) error {
	if format != imaging.JPEG {
		return fmt.Errorf("jpegli: %w: %s", ErrUnsupportedFormat, format)
	}
	q := e.Quality
	if q <= 0 {
		q = DefaultJPEGQuality
	}
	return jpegli.Encode(w, img, &jpegli.EncodingOptions{
		Quality:           q,
		ChromaSubsampling: image.YCbCrSubsampleRatio444,
	})
}

// StdEncoder writes any format disintegration/imaging supports: JPEG, PNG,
// GIF, TIFF and BMP. GIF output is palettized and drops alpha, so
// OutputFormat never asks for it.
type StdEncoder struct {
	JPEGQuality int
}

// Encode implements Encoder.
func (e StdEncoder) Encode(w io.Writer, img image.Image, format imaging.Format) error {
	q := e.JPEGQuality
	if q <= 0 {
		q = DefaultJPEGQuality
	}
	return imaging.Encode(w, img, format, imaging.JPEGQuality(q))
}

// EncoderChain tries each encoder in turn until one succeeds. Output from a
// failed attempt is discarded, so w only ever receives one complete image.
type EncoderChain []Encoder

// NewEncoderChain returns the default chain: jpegli for JPEG, then the
// standard encoders for everything else and as the JPEG retry path.
func NewEncoderChain(jpegQuality int) EncoderChain {
	return EncoderChain{
		JpegliEncoder{Quality: jpegQuality},
		StdEncoder{JPEGQuality: jpegQuality},
	}
}

// Encode implements Encoder. If every encoder fails the returned error wraps
// ErrEncode and each encoder's error.
func (c EncoderChain) Encode(w io.Writer, img image.Image, format imaging.Format) error {
	errs := []error{ErrEncode}
	for _, enc := range c {
		var buf bytes.Buffer
		if err := enc.Encode(&buf, img, format); err != nil {
			errs = append(errs, err)
			continue
		}
		_, err := w.Write(buf.Bytes())
		return err
	}
	if len(c) == 0 {
		errs = append(errs, errors.New("no encoders configured"))
	}
	return errors.Join(errs...)
}

// OutputFormat picks the format an image decoded as sourceFormat is written
// back in: the same format where an encoder keeps every pixel, PNG otherwise.
// GIF and WebP sources come out as PNG.
func OutputFormat(sourceFormat string) imaging.Format {
	f, err := imaging.FormatFromExtension(sourceFormat)
	if err != nil || f == imaging.GIF {
		return imaging.PNG
	}
	return f
}

// OutputName returns the file name for the cropped version of name. When the
// output format differs from what the extension says, the extension is
// replaced to match.
func OutputName(name, sourceFormat string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	out := OutputFormat(sourceFormat)
	ext := filepath.Ext(base)
	if f, err := imaging.FormatFromExtension(ext); err != nil || f != out {
		base = strings.TrimSuffix(base, ext) + "." + strings.ToLower(out.String())
	}
	return OutputPrefix + base
}

// EncodeResult serializes res in the output format for its source format.
func EncodeResult(enc Encoder, res *CropResult) ([]byte, imaging.Format, error) {
	format := OutputFormat(res.Format)
	var buf bytes.Buffer
	if err := enc.Encode(&buf, res.Pixels.Image(), format); err != nil {
		if !errors.Is(err, ErrEncode) {
			err = fmt.Errorf("%w %s: %w", ErrEncode, res.SourceName, err)
		}
		return nil, format, err
	}
	return buf.Bytes(), format, nil
}
