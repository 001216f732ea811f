// Package server implements the MCP (Model Context Protocol) server for margin cropping.
//
// This package provides a JSON-RPC 2.0 server that exposes margin detection and
// cropping through the MCP protocol, so an MCP client can inspect an image,
// tune the threshold and strip the blank border from one file or many.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_sample_color: Get color at pixel and its margin verdict
//
// Margin Operations:
//   - image_margin_detect: Find the content bounding box
//   - image_margin_crop: Crop one image to its content
//   - image_margin_overlay: Preview what a crop would remove
//   - image_margin_crop_batch: Crop many images, to files or a ZIP
//
// Every margin tool takes an optional threshold. When it is omitted the
// server's configured threshold applies (IMAGE_MARGIN_THRESHOLD, default 240).
//
// # Image Caching
//
// The server maintains an in-memory cache of decoded images keyed by path.
// Single-image tools reuse it across calls; the batch tool reads its files
// directly so a large batch does not fill the cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A batch call only fails as a whole for bad arguments. Images that cannot be
// read, decoded, cropped or encoded are listed under "failed" next to the
// ones that succeeded.
//
// # Usage
//
// The server is typically started by an MCP client:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
