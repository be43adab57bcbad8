package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

var diagramInputProps = map[string]interface{}{
	"name":        stringProp("Diagram key. Defaults to the image or markup file name without extension."),
	"image_path":  stringProp("Absolute path to the rendered diagram (PNG, JPEG or GIF)"),
	"markup_path": stringProp("Absolute path to an HTML page carrying the diagram's <map>/<area> imagemap"),
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "diagram_extract",
			Description: "Extract the class boxes, compartment dividers and relationships of one UML class diagram. " +
				"Imagemap markup, when given, supplies exact box positions and class names; the raster supplies dividers and relationships. " +
				"Returns the persisted record, or the derived class schema when format is schema.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":        diagramInputProps["name"],
					"image_path":  diagramInputProps["image_path"],
					"markup_path": diagramInputProps["markup_path"],
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"record", "schema"},
						"description": "Output form. Default record",
						"default":     "record",
					},
				},
			},
		},
		{
			Name:        "diagram_extract_batch",
			Description: "Extract many diagrams concurrently. Each diagram is independent: one failing or timing out never affects the others. Optionally writes <name>_structure.json records to an output directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"diagrams": map[string]interface{}{
						"type":        "array",
						"description": "Diagrams to process",
						"items": map[string]interface{}{
							"type":       "object",
							"properties": diagramInputProps,
						},
					},
					"output_dir": stringProp("Optional directory for <name>_structure.json records"),
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum diagrams processed at once. Defaults to the configured worker count",
					},
					"timeout_seconds": map[string]interface{}{
						"type":        "number",
						"description": "Per-diagram time limit. Timed out diagrams are reported without a structure",
					},
				},
				"required": []string{"diagrams"},
			},
		},
		{
			Name:        "diagram_detect_boxes",
			Description: "Run geometric detection only: binarize the raster and report class boxes and dividers without fallback data or markup.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image_path": diagramInputProps["image_path"],
				},
				"required": []string{"image_path"},
			},
		},
		{
			Name:        "imagemap_parse",
			Description: "Parse an HTML imagemap into class boxes named after their link targets. Malformed areas are counted, not fatal.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name":        diagramInputProps["name"],
					"markup_path": diagramInputProps["markup_path"],
				},
				"required": []string{"markup_path"},
			},
		},
		{
			Name:        "diagram_schema",
			Description: "Convert a saved <name>_structure.json record into the derived class schema (classes keyed by name with empty methods and attributes, relationships by class name).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"record_path": stringProp("Absolute path to a structure record written by diagram_extract_batch"),
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"yaml", "json"},
						"description": "Schema encoding. Default yaml",
						"default":     "yaml",
					},
				},
				"required": []string{"record_path"},
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
