package mcp

import (
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Organizer runs organise passes.
	Organizer driving.Organizer

	// Topics reads clusters and searches the index.
	Topics driving.TopicService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Topics == nil {
		return ErrMissingTopicService
	}
	// Organizer is optional; a read-only server can still list and search
	return nil
}
