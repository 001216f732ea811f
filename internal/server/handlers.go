package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/image-margin-mcp/internal/archive"
	"github.com/ironsheep/image-margin-mcp/internal/batch"
	"github.com/ironsheep/image-margin-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_margin_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errMissingPath is returned by tools called without a path argument.
var errMissingPath = errors.New("path is required")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if s.cfg.Debug {
			log.Printf("tool %s failed: %v", params.Name, err)
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging or batch function
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Margin Operations
	case "image_margin_detect":
		return s.handleMarginDetect(args)
	case "image_margin_crop":
		return s.handleMarginCrop(args)
	case "image_margin_overlay":
		return s.handleMarginOverlay(args)
	case "image_margin_crop_batch":
		return s.handleMarginCropBatch(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// threshold returns the requested threshold or the configured default.
func (s *Server) threshold(t *int) int {
	if t == nil {
		return s.cfg.Threshold
	}
	return *t
}

func (s *Server) loadImage(path string) (*imaging.DecodedImage, error) {
	if path == "" {
		return nil, errMissingPath
	}
	return s.cache.Load(path)
}

// mimeType maps an imaging format name to its MIME type.
func mimeType(format string) string {
	return "image/" + strings.ToLower(format)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path      string `json:"path"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Threshold *int   `json:"threshold"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img.Pixels, a.X, a.Y, s.threshold(a.Threshold))
}

// === Margin Operation Handlers ===

type marginArgs struct {
	Path      string `json:"path"`
	Threshold *int   `json:"threshold"`
}

// MarginDetectResult describes the content box found in an image.
type MarginDetectResult struct {
	Width     int                 `json:"width"`
	Height    int                 `json:"height"`
	Threshold int                 `json:"threshold"`
	Box       imaging.BoundingBox `json:"box"`
	Found     bool                `json:"found"`

	// Valid reports whether a crop would use the box. When false, cropping
	// returns the image unchanged.
	Valid bool `json:"valid"`

	ContentWidth  int `json:"content_width,omitempty"`
	ContentHeight int `json:"content_height,omitempty"`
}

func (s *Server) handleMarginDetect(args json.RawMessage) (interface{}, error) {
	var a marginArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	threshold := s.threshold(a.Threshold)
	box, found, err := imaging.Detect(img.Pixels, threshold)
	if err != nil {
		return nil, err
	}

	result := &MarginDetectResult{
		Width:     img.Pixels.Width,
		Height:    img.Pixels.Height,
		Threshold: threshold,
		Box:       box,
		Found:     found,
		Valid:     found && box.Valid(),
	}
	if result.Valid {
		result.ContentWidth = box.Width()
		result.ContentHeight = box.Height()
	}
	return result, nil
}

type marginCropArgs struct {
	Path       string `json:"path"`
	Threshold  *int   `json:"threshold"`
	OutputPath string `json:"output_path"`
}

// MarginCropResult is the outcome of cropping one image.
type MarginCropResult struct {
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	SourceWidth  int                 `json:"source_width"`
	SourceHeight int                 `json:"source_height"`
	Box          imaging.BoundingBox `json:"box"`
	Cropped      bool                `json:"cropped"`
	Format       string              `json:"format"`
	OutputName   string              `json:"output_name"`
	MimeType     string              `json:"mime_type"`

	// Exactly one of these is set, depending on whether output_path was given.
	OutputPath  string `json:"output_path,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

func (s *Server) handleMarginCrop(args json.RawMessage) (interface{}, error) {
	var a marginCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := imaging.CropMargins(*img, s.threshold(a.Threshold))
	if err != nil {
		return nil, err
	}
	data, format, err := imaging.EncodeResult(s.encoder, res)
	if err != nil {
		return nil, err
	}

	result := &MarginCropResult{
		Width:        res.Width,
		Height:       res.Height,
		SourceWidth:  img.Pixels.Width,
		SourceHeight: img.Pixels.Height,
		Box:          res.Box,
		Cropped:      res.Cropped,
		Format:       strings.ToLower(format.String()),
		OutputName:   imaging.OutputName(img.Name, img.Format),
		MimeType:     mimeType(format.String()),
	}

	if a.OutputPath == "" {
		result.ImageBase64 = base64.StdEncoding.EncodeToString(data)
		return result, nil
	}
	if err := os.WriteFile(a.OutputPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	result.OutputPath = a.OutputPath
	return result, nil
}

type marginOverlayArgs struct {
	Path      string  `json:"path"`
	Threshold *int    `json:"threshold"`
	Color     string  `json:"color"`
	Scale     float64 `json:"scale"`
}

func (s *Server) handleMarginOverlay(args json.RawMessage) (interface{}, error) {
	var a marginOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Color == "" {
		a.Color = imaging.DefaultOverlayColor
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.loadImage(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.MarginOverlay(*img, s.threshold(a.Threshold), a.Color, a.Scale)
}

type marginCropBatchArgs struct {
	Paths     []string `json:"paths"`
	Threshold *int     `json:"threshold"`
	OutputDir string   `json:"output_dir"`
	ZipPath   string   `json:"zip_path"`
}

// BatchItem reports one successfully cropped image.
type BatchItem struct {
	batch.Output
	OutputPath  string `json:"output_path,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// BatchFailure reports one image that could not be cropped.
type BatchFailure struct {
	ID    string      `json:"id"`
	Path  string      `json:"path"`
	Stage batch.Stage `json:"stage"`
	Error string      `json:"error"`
}

// MarginCropBatchResult is the outcome of a batch crop. Every requested path
// appears in exactly one of Succeeded or Failed.
type MarginCropBatchResult struct {
	Threshold  int            `json:"threshold"`
	Succeeded  []BatchItem    `json:"succeeded"`
	Failed     []BatchFailure `json:"failed"`
	ZipPath    string         `json:"zip_path,omitempty"`
	WriteError string         `json:"write_error,omitempty"`
}

func (s *Server) handleMarginCropBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a marginCropBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}
	threshold := s.threshold(a.Threshold)
	if err := imaging.ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	reqs, readFailures := batch.ReadFiles(a.Paths)
	p := &batch.Processor{
		Threshold: threshold,
		Workers:   s.cfg.Workers,
		Encoder:   s.encoder,
	}
	report, err := p.Process(ctx, reqs)
	if err != nil {
		return nil, err
	}
	report.Failures = append(report.Failures, readFailures...)
	report.Sort()

	result := &MarginCropBatchResult{
		Threshold: threshold,
		Succeeded: make([]BatchItem, len(report.Successes)),
		Failed:    make([]BatchFailure, 0, len(report.Failures)),
	}
	for i, o := range report.Successes {
		result.Succeeded[i] = BatchItem{Output: o}
	}
	for _, f := range report.Failures {
		result.Failed = append(result.Failed, BatchFailure{ID: f.ID, Path: f.Path, Stage: f.Stage, Error: f.Err.Error()})
	}

	var writeErrs []error
	if a.OutputDir != "" {
		if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		written, err := report.WriteFiles(a.OutputDir)
		if err != nil {
			writeErrs = append(writeErrs, err)
		}
		for i, path := range written {
			result.Succeeded[i].OutputPath = path
		}
	}
	if a.ZipPath != "" {
		zipPath := a.ZipPath
		if info, err := os.Stat(zipPath); err == nil && info.IsDir() {
			zipPath = filepath.Join(zipPath, archive.DefaultName)
		}
		if _, err := archive.WriteZipFile(zipPath, report.Entries()); err != nil {
			writeErrs = append(writeErrs, err)
		} else {
			result.ZipPath = zipPath
		}
	}
	if a.OutputDir == "" && a.ZipPath == "" {
		for i := range result.Succeeded {
			result.Succeeded[i].ImageBase64 = base64.StdEncoding.EncodeToString(result.Succeeded[i].Data)
		}
	}
	if err := errors.Join(writeErrs...); err != nil {
		result.WriteError = err.Error()
	}

	return result, nil
}
