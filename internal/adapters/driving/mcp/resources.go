package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme for Sema resources.
const uriScheme = "sema://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing topics.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "topics",
		Name:        "topics",
		Description: "Topic clusters from the last organise pass",
		MIMEType:    "application/json",
	}, s.handleTopicsResource)
}

// handleTopicsResource returns the organised topics as JSON.
func (s *Server) handleTopicsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	clusters, err := s.ports.Topics.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}

	infos := make([]TopicOutput, len(clusters))
	for i, cluster := range clusters {
		notes := make([]string, len(cluster.Members))
		for j, member := range cluster.Members {
			notes[j] = member.Title
		}
		infos[i] = TopicOutput{
			ID:      cluster.ID,
			Label:   cluster.Label,
			Summary: cluster.Summary,
			Notes:   notes,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling topics: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
