// ABOUTME: MCP resource implementations for the fitness data store.
// ABOUTME: Provides fitlog://coverage and fitlog://summary resources.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/fitlog/internal/coverage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	coverageURI = "fitlog://coverage"
	summaryURI  = "fitlog://summary"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         coverageURI,
		Name:        "Data Coverage",
		Description: "Covered span and gaps for every stored metric",
		MIMEType:    "application/json",
	}, s.handleCoverageResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         summaryURI,
		Name:        "Health Summary",
		Description: "Heart rate, sleep, steps, and calories over the last 7 days of data",
		MIMEType:    "application/json",
	}, s.handleSummaryResource)
}

func (s *Server) handleCoverageResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	reports, err := s.coverage(nil)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"span": coverage.OverallSpan(reports),
		"gaps": coverage.AllGaps(reports),
	}
	return jsonResource(coverageURI, result)
}

func (s *Server) handleSummaryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	summary, err := s.summary("", "")
	if err != nil {
		return nil, err
	}
	return jsonResource(summaryURI, summary)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
