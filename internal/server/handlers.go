package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/uml-structure-mcp/internal/detection"
	"github.com/ironsheep/uml-structure-mcp/internal/diagram"
	"github.com/ironsheep/uml-structure-mcp/internal/fallback"
	"github.com/ironsheep/uml-structure-mcp/internal/imagemap"
	"github.com/ironsheep/uml-structure-mcp/internal/imaging"
	"github.com/ironsheep/uml-structure-mcp/internal/pipeline"
	"github.com/ironsheep/uml-structure-mcp/internal/schema"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "diagram_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	text, ok := result.(textResult)
	if !ok {
		text = textResult(mustMarshalJSON(result))
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}
}

// textResult is returned verbatim instead of being JSON encoded.
type textResult string

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Extraction
	case "diagram_extract":
		return s.handleDiagramExtract(args)
	case "diagram_extract_batch":
		return s.handleDiagramExtractBatch(args)

	// Individual stages
	case "diagram_detect_boxes":
		return s.handleDiagramDetectBoxes(args)
	case "imagemap_parse":
		return s.handleImagemapParse(args)

	// Output forms
	case "diagram_schema":
		return s.handleDiagramSchema(args)

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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Extraction Handlers ===

type diagramArgs struct {
	Name       string `json:"name"`
	ImagePath  string `json:"image_path"`
	MarkupPath string `json:"markup_path"`
}

// input converts tool arguments into a pipeline input, deriving the diagram
// key from the file names when no name is given.
func (a diagramArgs) input() (pipeline.Input, error) {
	if a.ImagePath == "" && a.MarkupPath == "" {
		return pipeline.Input{}, errors.New("image_path or markup_path is required")
	}
	name := a.Name
	if name == "" {
		if a.ImagePath != "" {
			name = fallback.Key(a.ImagePath)
		} else {
			name = fallback.Key(a.MarkupPath)
		}
	}
	return pipeline.Input{Name: name, ImagePath: a.ImagePath, MarkupPath: a.MarkupPath}, nil
}

type diagramExtractArgs struct {
	diagramArgs
	Format string `json:"format"`
}

func (s *Server) handleDiagramExtract(args json.RawMessage) (interface{}, error) {
	var a diagramExtractArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	in, err := a.input()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Batch.Timeout)
	defer cancel()
	st, err := s.processor.Process(ctx, in)
	if err != nil {
		return nil, err
	}

	rec := schema.FromStructure(st)
	switch a.Format {
	case "", "record":
		return rec, nil
	case "schema":
		return rec.Derive(), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want record or schema)", a.Format)
	}
}

type diagramExtractBatchArgs struct {
	Diagrams       []diagramArgs `json:"diagrams"`
	OutputDir      string        `json:"output_dir"`
	Workers        int           `json:"workers"`
	TimeoutSeconds float64       `json:"timeout_seconds"`
}

// BatchEntry reports the outcome for one diagram of a batch.
type BatchEntry struct {
	Name   string         `json:"name"`
	Record *schema.Record `json:"record,omitempty"`
	Path   string         `json:"path,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// BatchResult is the result of diagram_extract_batch.
type BatchResult struct {
	Processed   int                 `json:"processed"`
	Failed      int                 `json:"failed"`
	Diagnostics diagram.Diagnostics `json:"diagnostics"`
	Diagrams    []BatchEntry        `json:"diagrams"`
}

func (s *Server) handleDiagramExtractBatch(args json.RawMessage) (interface{}, error) {
	var a diagramExtractBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Diagrams) == 0 {
		return nil, errors.New("diagrams must not be empty")
	}

	opts := pipeline.BatchOptions{Workers: s.cfg.Batch.Workers, Timeout: s.cfg.Batch.Timeout}
	if a.Workers > 0 {
		opts.Workers = a.Workers
	}
	if a.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(a.TimeoutSeconds * float64(time.Second))
	}

	// Argument errors are per diagram, like every other failure in a batch.
	inputs := make([]pipeline.Input, 0, len(a.Diagrams))
	entries := make([]BatchEntry, len(a.Diagrams))
	slot := make([]int, 0, len(a.Diagrams))
	for i, d := range a.Diagrams {
		in, err := d.input()
		if err != nil {
			entries[i] = BatchEntry{Name: d.Name, Error: err.Error()}
			continue
		}
		entries[i].Name = in.Name
		inputs = append(inputs, in)
		slot = append(slot, i)
	}

	if a.OutputDir != "" {
		if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	result := BatchResult{}
	for j, r := range s.processor.Batch(context.Background(), inputs, opts) {
		e := &entries[slot[j]]
		if r.Err != nil {
			e.Error = r.Err.Error()
			continue
		}
		rec := schema.FromStructure(r.Structure)
		result.Diagnostics = result.Diagnostics.Add(rec.Diagnostics)
		if a.OutputDir == "" {
			e.Record = rec
			continue
		}
		path, err := writeRecord(a.OutputDir, rec)
		if err != nil {
			e.Error = err.Error()
			continue
		}
		e.Path = path
	}

	for _, e := range entries {
		if e.Error != "" {
			result.Failed++
		} else {
			result.Processed++
		}
	}
	result.Diagrams = entries
	return result, nil
}

func writeRecord(dir string, rec *schema.Record) (string, error) {
	path := filepath.Join(dir, fallback.Key(rec.DiagramName)+"_structure.json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	if err := rec.WriteJSON(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write record: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}
	return path, nil
}

// === Stage Handlers ===

type detectBoxesArgs struct {
	ImagePath string `json:"image_path"`
}

// DetectBoxesResult is the result of diagram_detect_boxes.
type DetectBoxesResult struct {
	Width         int                   `json:"width"`
	Height        int                   `json:"height"`
	InkPixels     int                   `json:"ink_pixels"`
	LowConfidence bool                  `json:"low_confidence"`
	Boxes         []diagram.Box         `json:"boxes"`
	Dividers      []diagram.DividerLine `json:"horizontal_lines"`
}

func (s *Server) handleDiagramDetectBoxes(args json.RawMessage) (interface{}, error) {
	var a detectBoxesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.ImagePath == "" {
		return nil, errors.New("image_path is required")
	}
	img, err := s.processor.Images.Load(a.ImagePath)
	if err != nil {
		return nil, err
	}
	defer s.processor.Images.Evict(a.ImagePath)

	opts := s.cfg.DetectionOptions()
	ink := imaging.Preprocess(img, s.cfg.PreprocessOptions())
	found := detection.DetectBoxes(ink, opts.Boxes)
	return &DetectBoxesResult{
		Width:         ink.Width,
		Height:        ink.Height,
		InkPixels:     ink.Count(),
		LowConfidence: found.LowConfidence,
		Boxes:         found.Boxes,
		Dividers:      detection.DetectDividers(ink, found.Boxes, opts.Dividers),
	}, nil
}

type imagemapParseArgs struct {
	Name       string `json:"name"`
	MarkupPath string `json:"markup_path"`
}

// ImagemapResult is the result of imagemap_parse.
type ImagemapResult struct {
	MapName string         `json:"map_name,omitempty"`
	Areas   int            `json:"areas"`
	Record  *schema.Record `json:"record"`
}

func (s *Server) handleImagemapParse(args json.RawMessage) (interface{}, error) {
	var a imagemapParseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MarkupPath == "" {
		return nil, errors.New("markup_path is required")
	}
	m, err := imagemap.ParseFile(a.MarkupPath)
	if err != nil {
		return nil, err
	}
	name := a.Name
	if name == "" {
		name = fallback.Key(a.MarkupPath)
	}
	st := imagemap.Extract(name, m)
	st.Normalize()
	return &ImagemapResult{
		MapName: m.MapName,
		Areas:   len(m.Areas),
		Record:  schema.FromStructure(st),
	}, nil
}

// === Output Form Handlers ===

type diagramSchemaArgs struct {
	RecordPath string `json:"record_path"`
	Format     string `json:"format"`
}

func (s *Server) handleDiagramSchema(args json.RawMessage) (interface{}, error) {
	var a diagramSchemaArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.RecordPath == "" {
		return nil, errors.New("record_path is required")
	}
	rec, err := schema.LoadRecord(a.RecordPath)
	if err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	derived := rec.Derive()
	switch a.Format {
	case "", "yaml":
		data, err := derived.YAML()
		if err != nil {
			return nil, err
		}
		return textResult(data), nil
	case "json":
		return derived, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want yaml or json)", a.Format)
	}
}
