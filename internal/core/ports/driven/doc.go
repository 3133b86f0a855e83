// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): note sources, the embedding service, the
// chunk store and the snapshot store.
package driven
