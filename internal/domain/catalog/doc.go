// Package catalog contains the remote catalog model mirrored by the sync engine.
//
// Products, variants, categories and shipping zones are owned by the source
// shop. The sync engine stores them as content-replacing nodes keyed by their
// remote id and materializes the relations between them as graph edges
// (see package graph). Nothing here talks to storage or the network.
package catalog
