// Package domain contains the core entities of the note organiser:
// notes, chunks, embeddings, clusters and the incremental sync
// snapshot. Types here have no dependencies outside the standard
// library and are shared by services and adapters.
package domain
