// Package imaging finds and removes the blank margins around an image.
//
// The core is two pure functions over a PixelBuffer, a row-major RGBA pixel
// grid:
//
//   - Detect scans inward from each edge and returns the tightest BoundingBox
//     holding every non-margin pixel.
//   - Crop copies that box into a new buffer, or passes the whole image
//     through when the box is unusable.
//
// CropMargins composes the two. Around them sit the collaborators a caller
// needs to get pixels in and out: Decode and ImageCache for input, the
// Encoder implementations for output, plus SampleColor and MarginOverlay for
// choosing a threshold.
//
// # Margin Pixels
//
// A pixel is margin when its alpha is below 128 or when the average of its
// red, green and blue channels is at or above the threshold (0-255,
// DefaultThreshold is 240). Lowering the threshold treats more light colors
// as background.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner.
// BoundingBox coordinates are inclusive on all four sides; BoundingBox.Rect
// converts to the half-open image.Rectangle convention.
//
// # Fallback Rules
//
// Each edge scan that finds nothing keeps the image edge, so an image with no
// content at all reports its full frame and crops to an identical copy. A box
// one pixel wide or one pixel tall is never cropped to; the full image is
// returned instead.
//
// # Thread Safety
//
// Detect, Crop and the encoders hold no state and may run concurrently on
// any number of images. They never modify their input buffers. ImageCache is
// safe for concurrent use.
//
// # Error Handling
//
// Malformed input is reported with sentinel errors that callers match using
// errors.Is: ErrInvalidBuffer, ErrInvalidThreshold and ErrInvalidBox from
// the core, ErrDecode and ErrEncode from the collaborators.
package imaging
