// Package batch crops the margins of many images concurrently.
//
// Every request runs through decode, margin crop and encode on its own. A
// request that fails at any stage is reported and the rest carry on, so a
// Report always accounts for every request, either as an Output or as a
// Failure, keyed by the request's ID.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-margin-mcp/internal/archive"
	"github.com/ironsheep/image-margin-mcp/internal/imaging"
)

// Stage names the step a request failed at.
type Stage string

const (
	StageRead     Stage = "read"
	StageDecode   Stage = "decode"
	StageCrop     Stage = "crop"
	StageEncode   Stage = "encode"
	StageCanceled Stage = "canceled"
)

// ErrDuplicateID is returned by Process when two requests share an ID.
var ErrDuplicateID = errors.New("duplicate request ID")

// Request is one image to process. ID must be unique within a batch.
type Request struct {
	ID   string
	Name string

	// Path is the file the data came from, if any. WriteFiles uses its
	// directory when no output directory is given.
	Path string

	Data []byte
}

// Output is a successfully processed image.
type Output struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Path       string              `json:"path,omitempty"`
	OutputName string              `json:"output_name"`
	Format     string              `json:"format"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	SourceW    int                 `json:"source_width"`
	SourceH    int                 `json:"source_height"`
	Box        imaging.BoundingBox `json:"box"`
	Cropped    bool                `json:"cropped"`
	Data       []byte              `json:"-"`
}

// Failure records why a request produced no output.
type Failure struct {
	ID    string
	Name  string
	Path  string
	Stage Stage
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", f.Name, f.Stage, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Report collects the outcome of a batch. Successes and Failures are in
// completion order until Sort is called.
type Report struct {
	Successes []Output
	Failures  []Failure

	order map[string]int
}

// Output returns the output for a request ID.
func (r *Report) Output(id string) (Output, bool) {
	for _, o := range r.Successes {
		if o.ID == id {
			return o, true
		}
	}
	return Output{}, false
}

// Failure returns the failure for a request ID.
func (r *Report) Failure(id string) (Failure, bool) {
	for _, f := range r.Failures {
		if f.ID == id {
			return f, true
		}
	}
	return Failure{}, false
}

// Sort orders both lists by the position of their request in the batch.
// IDs the batch never saw sort last.
func (r *Report) Sort() {
	pos := func(id string) int {
		if i, ok := r.order[id]; ok {
			return i
		}
		return len(r.order)
	}
	sort.SliceStable(r.Successes, func(i, j int) bool {
		return pos(r.Successes[i].ID) < pos(r.Successes[j].ID)
	})
	sort.SliceStable(r.Failures, func(i, j int) bool {
		return pos(r.Failures[i].ID) < pos(r.Failures[j].ID)
	})
}

// Entries returns the successful outputs as archive entries.
func (r *Report) Entries() []archive.Entry {
	entries := make([]archive.Entry, 0, len(r.Successes))
	for _, o := range r.Successes {
		entries = append(entries, archive.Entry{Name: o.OutputName, Data: o.Data})
	}
	return entries
}

// WriteFiles writes every success to disk under its OutputName. The returned
// slice is parallel to Successes and holds the path each output was written
// to, or "" where that write failed.
//
// Outputs go to dir, or beside their source file when dir is empty. Names
// that would collide within a directory are made unique the way
// archive.WriteZip does. A failed write does not stop the others; all write
// errors are returned joined.
func (r *Report) WriteFiles(dir string) ([]string, error) {
	targets := make([]string, len(r.Successes))
	byDir := make(map[string][]int)
	var errs []error
	for i, o := range r.Successes {
		d := dir
		if d == "" {
			if o.Path == "" {
				errs = append(errs, fmt.Errorf("%s: no output directory", o.Name))
				continue
			}
			d = filepath.Dir(o.Path)
		}
		byDir[d] = append(byDir[d], i)
	}

	for d, idx := range byDir {
		names := make([]string, len(idx))
		for j, i := range idx {
			names[j] = r.Successes[i].OutputName
		}
		unique, err := archive.UniqueNames(names)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
			continue
		}
		for j, i := range idx {
			targets[i] = filepath.Join(d, unique[j])
		}
	}

	for i, o := range r.Successes {
		if targets[i] == "" {
			continue
		}
		if err := os.WriteFile(targets[i], o.Data, 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", targets[i], err))
			targets[i] = ""
		}
	}
	return targets, errors.Join(errs...)
}

// Processor runs margin crops over batches of images.
type Processor struct {
	// Threshold is passed to imaging.Detect as is. Zero is a real threshold
	// under which every opaque pixel is margin, so a zero Processor passes
	// images through uncropped. Set imaging.DefaultThreshold for the usual
	// behavior.
	Threshold int

	// Workers bounds concurrent requests. Values below 1 mean one per CPU.
	Workers int

	// Encoder writes the outputs. Nil means imaging.NewEncoderChain with the
	// default JPEG quality.
	Encoder imaging.Encoder
}

// Process runs every request and returns once all have finished.
//
// Requests not yet started when ctx is cancelled are reported as failures at
// StageCanceled with the context's error. Requests already running complete
// normally. If two requests share an ID nothing runs and the error wraps
// ErrDuplicateID.
func (p *Processor) Process(ctx context.Context, reqs []Request) (*Report, error) {
	report := &Report{order: make(map[string]int, len(reqs))}
	for i, req := range reqs {
		if j, ok := report.order[req.ID]; ok {
			return nil, fmt.Errorf("%w: %q at %d and %d", ErrDuplicateID, req.ID, j, i)
		}
		report.order[req.ID] = i
	}

	workers := p.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	enc := p.Encoder
	if enc == nil {
		enc = imaging.NewEncoderChain(imaging.DefaultJPEGQuality)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(workers)

	for _, req := range reqs {
		req := req
		g.Go(func() error {
			var (
				out  Output
				fail *Failure
			)
			if err := ctx.Err(); err != nil {
				fail = &Failure{ID: req.ID, Name: req.Name, Path: req.Path, Stage: StageCanceled, Err: err}
			} else {
				out, fail = p.processOne(enc, req)
			}

			mu.Lock()
			defer mu.Unlock()
			if fail != nil {
				log.Printf("batch: %v", fail)
				report.Failures = append(report.Failures, *fail)
			} else {
				report.Successes = append(report.Successes, out)
			}
			// Failures are collected, never returned, so one bad image
			// cannot stop the group.
			return nil
		})
	}
	_ = g.Wait()

	return report, nil
}

func (p *Processor) processOne(enc imaging.Encoder, req Request) (Output, *Failure) {
	fail := func(stage Stage, err error) (Output, *Failure) {
		return Output{}, &Failure{ID: req.ID, Name: req.Name, Path: req.Path, Stage: stage, Err: err}
	}

	img, err := imaging.Decode(req.Name, req.Data)
	if err != nil {
		return fail(StageDecode, err)
	}

	res, err := imaging.CropMargins(*img, p.Threshold)
	if err != nil {
		return fail(StageCrop, err)
	}

	data, format, err := imaging.EncodeResult(enc, res)
	if err != nil {
		return fail(StageEncode, err)
	}

	return Output{
		ID:         req.ID,
		Name:       req.Name,
		Path:       req.Path,
		OutputName: imaging.OutputName(req.Name, img.Format),
		Format:     strings.ToLower(format.String()),
		Width:      res.Width,
		Height:     res.Height,
		SourceW:    img.Pixels.Width,
		SourceH:    img.Pixels.Height,
		Box:        res.Box,
		Cropped:    res.Cropped,
		Data:       data,
	}, nil
}

// ReadFiles builds one request per path, using the path as ID and its base
// name as Name. A path listed again gets the ID "path#i", i being its position
// in paths, so IDs stay unique. Paths that cannot be read are returned as
// StageRead failures.
func ReadFiles(paths []string) ([]Request, []Failure) {
	reqs := make([]Request, 0, len(paths))
	var failures []Failure
	seen := make(map[string]bool, len(paths))
	for i, path := range paths {
		id := path
		if seen[path] {
			id = fmt.Sprintf("%s#%d", path, i)
		}
		seen[path] = true

		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			failures = append(failures, Failure{ID: id, Name: name, Path: path, Stage: StageRead, Err: err})
			continue
		}
		reqs = append(reqs, Request{ID: id, Name: name, Path: path, Data: data})
	}
	return reqs, failures
}
