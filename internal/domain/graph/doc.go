// Package graph defines the storage-independent adjacency model the sync
// engine keeps the mirrored catalog in.
//
// Nodes are keyed by (kind, remote id) and hold the JSON content of the
// catalog entity. Edges are directed and typed; an edge kind fixes which
// node kinds it may connect:
//
//	varies       Variant  -> Product
//	categorises  Category -> Product
//	ancestor_of  Category -> Category
//
// Edge sets are never diffed. Owners clear their edges and rewrite them
// on every upsert, so the store does not deduplicate.
package graph
