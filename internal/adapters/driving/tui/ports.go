// Package tui provides an interactive terminal browser for organised
// topics. It implements a driving adapter following hexagonal
// architecture principles.
package tui

import (
	"github.com/custodia-labs/sema-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Topics reads organised topics and searches the chunk store.
	Topics driving.TopicService

	// Organizer runs organise passes. Optional; without it the browser
	// is read-only.
	Organizer driving.Organizer
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Topics == nil {
		return ErrMissingTopicService
	}
	return nil
}
