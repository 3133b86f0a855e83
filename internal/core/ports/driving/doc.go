// Package driving provides interfaces for host-facing adapters
// (primary/inbound ports): the CLI, the TUI and the MCP server call
// the core through these.
package driving
