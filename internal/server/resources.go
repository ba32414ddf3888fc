package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	guidelinesURI = "linkgraph://usage-guidelines"
	schemaPrefix  = "linkgraph://schemas/"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         guidelinesURI,
		Name:        "Usage Guidelines",
		Description: "Usage guidelines for the linkgraph MCP server",
		MIMEType:    "text/markdown",
	}, s.readGuidelines)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaPrefix + "{tool_name}",
		Name:        "Tool Schema",
		Description: "JSON schema for the named tool's arguments",
		MIMEType:    "application/schema+json",
	}, s.readSchema)
}

func (s *Server) readGuidelines(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      guidelinesURI,
				MIMEType: "text/markdown",
				Text:     s.systemPrompt,
			},
		},
	}, nil
}

func (s *Server) readSchema(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	toolName := strings.TrimPrefix(uri, schemaPrefix)
	schemaJSON, ok := toolSchemas[toolName]
	if !ok {
		return nil, fmt.Errorf("unknown tool schema: %q", toolName)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/schema+json",
				Text:     schemaJSON,
			},
		},
	}, nil
}

var toolSchemas = buildSchemaMap()

// buildSchemaMap constructs a map from tool name to its JSON schema string.
// Schemas are derived from the args structs using jsonschema inference.
func buildSchemaMap() map[string]string {
	m := make(map[string]string)
	addSchema[ScanArgs](m, "scan")
	addSchema[ScanStatusArgs](m, "scan_status")
	addSchema[GetLinksArgs](m, "get_links")
	addSchema[GetBacklinksArgs](m, "get_backlinks")
	addSchema[GetBrokenLinksArgs](m, "get_broken_links")
	addSchema[GetGraphArgs](m, "get_graph")
	return m
}

func addSchema[T any](m map[string]string, name string) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return
	}
	m[name] = string(schemaJSON)
}
