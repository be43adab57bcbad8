// Package server implements the MCP (Model Context Protocol) server for UML
// class diagram structure extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the extraction
// pipeline through the MCP protocol, so MCP clients can turn rendered class
// diagrams into box, divider and relationship structure.
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
// Extraction:
//   - diagram_extract: Canonical structure for one diagram (record or schema form)
//   - diagram_extract_batch: Many diagrams in parallel, optionally saved as records
//
// Individual stages:
//   - diagram_detect_boxes: Geometric box and divider detection only
//   - imagemap_parse: Boxes and class names from HTML imagemap markup
//
// Output forms:
//   - diagram_schema: Derived class schema from a saved record
//
// # Reference Data
//
// The fallback table for irregular diagrams is built once when the server
// starts and shared read-only by every tool call.
//
// # Error Handling
//
// Unreadable diagrams and malformed regions are not tool errors: they are
// counted in the returned diagnostics. Tool execution errors (missing
// arguments, unknown formats) are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv, err := server.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
