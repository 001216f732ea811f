// Package archive bundles cropped images into a single ZIP download.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// DefaultName is the file name used for a batch archive.
const DefaultName = "cropped_images.zip"

// ErrEmptyName is returned for an entry without a name.
var ErrEmptyName = errors.New("archive entry has no name")

// Entry is one file in an archive.
type Entry struct {
	Name string
	Data []byte
}

// WriteZip writes entries to w as a deflate-compressed ZIP archive, in order.
//
// Directory parts of entry names are dropped. Names that repeat get " (2)",
// " (3)" and so on inserted before the extension, so no entry overwrites
// another on extraction. WriteZip returns the names actually written.
func WriteZip(w io.Writer, entries []Entry) ([]string, error) {
	raw := make([]string, len(entries))
	for i, e := range entries {
		raw[i] = e.Name
	}
	names, err := UniqueNames(raw)
	if err != nil {
		return nil, err
	}

	zw := zip.NewWriter(w)
	modified := time.Now()
	for i, e := range entries {
		name := names[i]
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to add %s: %w", name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return names, nil
}

// WriteZipFile writes entries to a new archive at path, replacing any file
// already there.
func WriteZipFile(path string, entries []Entry) ([]string, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	names, err := WriteZip(f, entries)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close archive: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return names, nil
}

// UniqueNames reduces each name to its base name and renames repeats the
// way WriteZip does. The result is parallel to names.
func UniqueNames(names []string) ([]string, error) {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		base := path.Base(strings.ReplaceAll(n, "\\", "/"))
		if n == "" || base == "." || base == "/" {
			return nil, ErrEmptyName
		}
		out[i] = uniqueName(base, seen)
		seen[out[i]] = true
	}
	return out, nil
}

func uniqueName(name string, seen map[string]bool) string {
	if !seen[name] {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !seen[candidate] {
			return candidate
		}
	}
}
