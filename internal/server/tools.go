package server

import (
	"github.com/ironsheep/image-margin-mcp/internal/archive"
	"github.com/ironsheep/image-margin-mcp/internal/imaging"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func thresholdProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"minimum":     0,
		"maximum":     255,
		"default":     imaging.DefaultThreshold,
		"description": "Brightness at or above which an opaque pixel counts as margin (0-255). Lower values treat more light colors as background.",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and whether it has transparency.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the exact color at a pixel and whether margin detection would treat it as background at the given threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
					"threshold": thresholdProperty(),
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Margin Operations
		{
			Name:        "image_margin_detect",
			Description: "Find the bounding box of non-margin content. Margin pixels are transparent (alpha < 128) or light (average RGB at or above the threshold). Coordinates are inclusive.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"threshold": thresholdProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_margin_crop",
			Description: "Crop the blank margins from an image. Returns the cropped image as base64, or writes it to output_path. Images whose content box is a single row or column are returned unchanged.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"threshold": thresholdProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file to write the cropped image to instead of returning it inline",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_margin_overlay",
			Description: "Render a PNG preview with the detected content box outlined and the margins that would be removed shaded. Use it to pick a threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"threshold": thresholdProperty(),
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Outline color as hex (#RRGGBB or #RRGGBBAA)",
						"default":     imaging.DefaultOverlayColor,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the preview. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_margin_crop_batch",
			Description: "Crop the margins of many images concurrently. Each image succeeds or fails on its own; failures are reported per path with the stage that failed. Outputs are named cropped_<name> and can be written to a directory, a ZIP archive, or returned inline.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the images to crop",
					},
					"threshold": thresholdProperty(),
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to write cropped images into",
					},
					"zip_path": map[string]interface{}{
						"type":        "string",
						"description": "ZIP file to write all cropped images into. An existing directory gets " + archive.DefaultName,
					},
				},
				"required": []string{"paths"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
