// Package connectors provides implementations of the NoteSource
// interface for the supported note sources. Each connector knows how
// to enumerate and fetch notes from a specific source type
// (filesystem, Notion).
package connectors
