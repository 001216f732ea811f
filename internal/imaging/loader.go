package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrDecode wraps every failure to turn source bytes into pixels.
var ErrDecode = errors.New("failed to decode image")

// Decode turns encoded image bytes into a DecodedImage.
//
// The format is sniffed from the content, not from name. EXIF orientation is
// applied, so the pixels are laid out the way the image is displayed.
//
// Supported formats are PNG, JPEG, GIF, WebP, BMP and TIFF. Any failure is
// returned wrapped in ErrDecode; no partial image is produced.
func Decode(name string, data []byte) (*DecodedImage, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, name, err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, name, err)
	}

	return &DecodedImage{
		Name:   name,
		Format: format,
		Pixels: FromImage(img),
	}, nil
}

// DecodeFile reads and decodes the image at path. The result is named after
// the file's base name.
func DecodeFile(path string) (*DecodedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return Decode(filepath.Base(path), data)
}

// IsSupportedImage reports whether data looks like an image this package can
// decode, judging by its leading bytes.
func IsSupportedImage(data []byte) bool {
	switch http.DetectContentType(data) {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp":
		return true
	}
	// http.DetectContentType does not know TIFF.
	return bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))
}

// ImageCache provides thread-safe caching of decoded images to avoid redundant
// disk reads.
//
// The cache stores DecodedImage values keyed by their file path. Once an image
// is loaded, subsequent Load() calls for the same path return the cached copy
// without disk I/O. Cached pixel buffers are shared and must be treated as
// read-only, which every function in this package does.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// For long-running processes handling many images, consider periodic cleanup to
// prevent unbounded memory growth.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*DecodedImage
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*DecodedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk if not cached.
//
// The image is cached using the exact path string provided. Different paths to
// the same file (e.g., relative vs absolute) will result in separate cache
// entries.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns an ErrDecode error if the file is not a supported image
func (c *ImageCache) Load(path string) (*DecodedImage, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*DecodedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format detected from the file contents, e.g. "png" or "jpeg".
	Format string `json:"format"`

	// HasTransparency reports whether any pixel has alpha below 255.
	HasTransparency bool `json:"has_transparency"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// The image is loaded into the cache if not already present.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &ImageInfo{
		Width:           img.Pixels.Width,
		Height:          img.Pixels.Height,
		Format:          strings.ToLower(img.Format),
		HasTransparency: hasTransparency(img.Pixels),
		FileSizeBytes:   stat.Size(),
	}, nil
}

func hasTransparency(p PixelBuffer) bool {
	for i := 3; i < len(p.Pix); i += 4 {
		if p.Pix[i] != 0xff {
			return true
		}
	}
	return false
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	return &DimensionsResult{
		Width:  img.Pixels.Width,
		Height: img.Pixels.Height,
	}, nil
}
