// Package mcp provides an MCP (Model Context Protocol) server adapter for Sema.
// It enables AI assistants like Claude to organise and query notes.
package mcp

import "errors"

// ErrMissingTopicService is returned when the topic service is not provided.
var ErrMissingTopicService = errors.New("mcp: topic service is required")
