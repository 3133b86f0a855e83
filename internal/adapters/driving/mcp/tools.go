package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
)

// OrganizeInput is the input schema for the organize_notes tool.
type OrganizeInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of notes to process (default all)"`
}

// OrganizeOutput is the output schema for the organize_notes tool.
type OrganizeOutput struct {
	NotesSeen      int `json:"notes_seen"`
	NotesNew       int `json:"notes_new"`
	NotesModified  int `json:"notes_modified"`
	NotesUnchanged int `json:"notes_unchanged"`
	NotesFailed    int `json:"notes_failed"`
	Clusters       int `json:"clusters"`
	Outliers       int `json:"outliers"`
}

// ListTopicsOutput is the output schema for the list_topics tool.
type ListTopicsOutput struct {
	Topics []TopicOutput `json:"topics"`
	Count  int           `json:"count"`
}

// TopicOutput represents one topic cluster.
type TopicOutput struct {
	ID      int      `json:"id"`
	Label   string   `json:"label"`
	Summary string   `json:"summary"`
	Notes   []string `json:"notes"`
}

// SearchInput is the input schema for the search_notes tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find notes"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SearchOutput is the output schema for the search_notes tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Title   string  `json:"title"`
	Topic   string  `json:"topic,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "organize_notes",
		Description: "Index notes and cluster them into named topics",
	}, s.handleOrganize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_topics",
		Description: "List the topic clusters with their member notes",
	}, s.handleListTopics)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_notes",
		Description: "Search across all indexed notes",
	}, s.handleSearch)
}

// handleOrganize handles the organize_notes tool invocation.
func (s *Server) handleOrganize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OrganizeInput,
) (*mcp.CallToolResult, OrganizeOutput, error) {
	if s.ports.Organizer == nil {
		return nil, OrganizeOutput{}, errors.New("organizer not configured")
	}

	report, err := s.ports.Organizer.Organize(ctx, input.Limit)
	if err != nil {
		return nil, OrganizeOutput{}, err
	}

	return nil, OrganizeOutput{
		NotesSeen:      report.NotesSeen,
		NotesNew:       report.NotesNew,
		NotesModified:  report.NotesModified,
		NotesUnchanged: report.NotesUnchanged,
		NotesFailed:    report.NotesFailed,
		Clusters:       report.Clusters,
		Outliers:       report.Outliers,
	}, nil
}

// handleListTopics handles the list_topics tool invocation.
func (s *Server) handleListTopics(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, ListTopicsOutput, error) {
	clusters, err := s.ports.Topics.List(ctx)
	if err != nil {
		return nil, ListTopicsOutput{}, err
	}

	output := ListTopicsOutput{
		Topics: make([]TopicOutput, len(clusters)),
		Count:  len(clusters),
	}
	for i, cluster := range clusters {
		notes := make([]string, len(cluster.Members))
		for j, member := range cluster.Members {
			notes[j] = member.Title
		}
		output.Topics[i] = TopicOutput{
			ID:      cluster.ID,
			Label:   cluster.Label,
			Summary: cluster.Summary,
			Notes:   notes,
		}
	}

	return nil, output, nil
}

// handleSearch handles the search_notes tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.ports.Topics.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(hits)),
		Count:   len(hits),
	}
	for i := range hits {
		topic := ""
		if hits[i].Cluster != nil && hits[i].Cluster.ID != domain.Outlier {
			topic = hits[i].Cluster.Label
		}
		output.Results[i] = SearchResultOutput{
			Title:   hits[i].Chunk.NoteKey.Title,
			Topic:   topic,
			Score:   hits[i].Score,
			Content: hits[i].Chunk.Text,
		}
	}

	return nil, output, nil
}
