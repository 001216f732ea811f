package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/image-margin-mcp/internal/archive"
	"github.com/ironsheep/image-margin-mcp/internal/batch"
	"github.com/ironsheep/image-margin-mcp/internal/config"
	"github.com/ironsheep/image-margin-mcp/internal/imaging"
)

// sniffLen is how much of a file is read to decide whether it is an image.
const sniffLen = 512

// runCrop implements the crop sub-command and returns the process exit code:
// 0 when every image was cropped and written, 1 when anything failed, 2 for
// bad usage.
func runCrop(ctx context.Context, args []string, cfg config.Config, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("crop", flag.ContinueOnError)
	fs.SetOutput(stderr)
	threshold := fs.Int("threshold", cfg.Threshold, "margin brightness threshold (0-255)")
	workers := fs.Int("workers", cfg.Workers, "images processed at once")
	outDir := fs.String("out", "", "output directory (default: beside each source)")
	zipPath := fs.String("zip", "", "also write all outputs into this ZIP file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg.Threshold = *threshold
	cfg.Workers = *workers
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "crop: %v\n", err)
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "crop: no input files")
		return 2
	}

	paths, err := expandInputs(fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "crop: %v\n", err)
		return 1
	}

	reqs, readFailures := batch.ReadFiles(paths)
	p := &batch.Processor{
		Threshold: cfg.Threshold,
		Workers:   cfg.Workers,
		Encoder:   imaging.NewEncoderChain(cfg.JPEGQuality),
	}
	report, err := p.Process(ctx, reqs)
	if err != nil {
		fmt.Fprintf(stderr, "crop: %v\n", err)
		return 1
	}
	report.Failures = append(report.Failures, readFailures...)
	report.Sort()

	failed := len(report.Failures) > 0

	// With only -zip given, the archive is the sole output.
	if *outDir != "" || *zipPath == "" {
		if *outDir != "" {
			if err := os.MkdirAll(*outDir, 0755); err != nil {
				fmt.Fprintf(stderr, "crop: %v\n", err)
				return 1
			}
		}
		written, err := report.WriteFiles(*outDir)
		if err != nil {
			fmt.Fprintf(stderr, "crop: %v\n", err)
			failed = true
		}
		for i, o := range report.Successes {
			if written[i] == "" {
				fmt.Fprintf(stdout, "FAIL  %s: write\n", o.ID)
				continue
			}
			fmt.Fprintf(stdout, "ok    %s -> %s (%dx%d -> %dx%d)\n",
				o.ID, written[i], o.SourceW, o.SourceH, o.Width, o.Height)
		}
	} else {
		for _, o := range report.Successes {
			fmt.Fprintf(stdout, "ok    %s (%dx%d -> %dx%d)\n", o.ID, o.SourceW, o.SourceH, o.Width, o.Height)
		}
	}
	for _, f := range report.Failures {
		fmt.Fprintf(stdout, "FAIL  %s: %s: %v\n", f.ID, f.Stage, f.Err)
	}

	if *zipPath != "" && len(report.Successes) > 0 {
		if _, err := archive.WriteZipFile(*zipPath, report.Entries()); err != nil {
			fmt.Fprintf(stderr, "crop: %v\n", err)
			failed = true
		} else {
			fmt.Fprintf(stdout, "zip   %s (%d files)\n", *zipPath, len(report.Successes))
		}
	}

	if failed {
		return 1
	}
	return 0
}

// expandInputs replaces each directory argument with the image files directly
// inside it, sorted by name. File arguments are kept as given even when they
// do not look like images, so that they are reported as failures.
func expandInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		var found []string
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			path := filepath.Join(arg, e.Name())
			ok, err := looksLikeImage(path)
			if err != nil {
				return nil, err
			}
			if ok {
				found = append(found, path)
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func looksLikeImage(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return imaging.IsSupportedImage(head[:n]), nil
}
