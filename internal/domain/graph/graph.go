package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the persisted layout version written by this build
const SchemaVersion = 1

var (
	ErrUnknownNodeKind  = errors.New("graph: unknown node kind")
	ErrUnknownEdgeKind  = errors.New("graph: unknown edge kind")
	ErrEndpointMismatch = errors.New("graph: edge endpoint kind mismatch")
	ErrNodeNotFound     = errors.New("graph: node not found")
)

// ---------------------------------------------------------------------------
// Node kinds
// ---------------------------------------------------------------------------

// NodeKind names a node collection
type NodeKind string

const (
	NodeProduct      NodeKind = "product"
	NodeVariant      NodeKind = "variant"
	NodeCategory     NodeKind = "category"
	NodeShippingZone NodeKind = "shipping_zone"
)

// NodeKinds lists every node kind
var NodeKinds = []NodeKind{NodeProduct, NodeVariant, NodeCategory, NodeShippingZone}

// IsValid checks if the node kind is known
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeProduct, NodeVariant, NodeCategory, NodeShippingZone:
		return true
	}
	return false
}

// String returns the string representation of NodeKind
func (k NodeKind) String() string {
	return string(k)
}

// ---------------------------------------------------------------------------
// Edge kinds
// ---------------------------------------------------------------------------

// EdgeKind names an edge collection
type EdgeKind string

const (
	EdgeVaries      EdgeKind = "varies"
	EdgeCategorises EdgeKind = "categorises"
	EdgeAncestorOf  EdgeKind = "ancestor_of"
)

// EdgeKinds lists every edge kind
var EdgeKinds = []EdgeKind{EdgeVaries, EdgeCategorises, EdgeAncestorOf}

// Endpoints returns the node kinds an edge of this kind connects
func (k EdgeKind) Endpoints() (from, to NodeKind, ok bool) {
	switch k {
	case EdgeVaries:
		return NodeVariant, NodeProduct, true
	case EdgeCategorises:
		return NodeCategory, NodeProduct, true
	case EdgeAncestorOf:
		return NodeCategory, NodeCategory, true
	}
	return "", "", false
}

// IsValid checks if the edge kind is known
func (k EdgeKind) IsValid() bool {
	_, _, ok := k.Endpoints()
	return ok
}

// String returns the string representation of EdgeKind
func (k EdgeKind) String() string {
	return string(k)
}

// Check verifies that from and to are valid endpoints for the edge kind
func (k EdgeKind) Check(from, to NodeRef) error {
	fromKind, toKind, ok := k.Endpoints()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEdgeKind, k)
	}
	if from.Kind != fromKind || to.Kind != toKind {
		return fmt.Errorf("%w: %s connects %s -> %s, got %s -> %s",
			ErrEndpointMismatch, k, fromKind, toKind, from.Kind, to.Kind)
	}
	return nil
}

// Touches reports whether an edge of this kind can have a node of kind n at
// its from side, its to side, or both.
func (k EdgeKind) Touches(n NodeKind) (asFrom, asTo bool) {
	fromKind, toKind, _ := k.Endpoints()
	return fromKind == n, toKind == n
}

// Direction selects edges relative to a node
type Direction int

const (
	// Out selects edges whose from side is the node
	Out Direction = iota
	// In selects edges whose to side is the node
	In
	// Both selects edges on either side
	Both
)

// String returns the string representation of Direction
func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case Both:
		return "both"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

// NodeRef identifies a node
type NodeRef struct {
	Kind NodeKind
	ID   string
}

// Ref builds a NodeRef
func Ref(kind NodeKind, id string) NodeRef {
	return NodeRef{Kind: kind, ID: id}
}

// String returns e.g. "variant:UHJvZHVjdFZhcmlhbnQ6MQ=="
func (r NodeRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// Node is a stored node with its JSON content
type Node struct {
	Ref       NodeRef
	Content   json.RawMessage
	UpdatedAt time.Time
}

// Decode unmarshals the node content into v
func (n Node) Decode(v any) error {
	if err := json.Unmarshal(n.Content, v); err != nil {
		return fmt.Errorf("graph: decode %s: %w", n.Ref, err)
	}
	return nil
}

// Encode marshals v as node content
func Encode(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("graph: encode content: %w", err)
	}
	return raw, nil
}

// Issue is a human readable problem recorded by the last batch run
type Issue struct {
	ID         uuid.UUID
	Kind       string
	Message    string
	RecordedAt time.Time
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Store is the graph storage contract.
// Every operation is synchronous and reports failures as storage errors.
type Store interface {
	// UpsertNode replaces the full content of a node, creating it if needed.
	UpsertNode(ctx context.Context, ref NodeRef, content json.RawMessage) error
	// GetNode returns ErrNodeNotFound when the node does not exist.
	GetNode(ctx context.Context, ref NodeRef) (*Node, error)
	// DeleteNode removes the node and every edge touching it.
	DeleteNode(ctx context.Context, ref NodeRef) error
	// NodesOf lists all nodes of a kind ordered by id.
	NodesOf(ctx context.Context, kind NodeKind) ([]Node, error)

	// ClearEdges deletes every edge of the kind touching ref in the given direction.
	ClearEdges(ctx context.Context, kind EdgeKind, ref NodeRef, dir Direction) error
	// Relate inserts one edge. It does not deduplicate.
	Relate(ctx context.Context, from NodeRef, kind EdgeKind, to NodeRef) error
	// Related returns the nodes across matching edges in edge insertion order.
	// Edges pointing at nodes that are not stored are skipped.
	Related(ctx context.Context, ref NodeRef, kind EdgeKind, dir Direction) ([]Node, error)

	// SchemaVersion returns the persisted layout version.
	SchemaVersion(ctx context.Context) (int, error)
	// RecordIssues replaces the issues of the previous run.
	RecordIssues(ctx context.Context, issues []Issue) error
	// Issues returns the recorded issues oldest first.
	Issues(ctx context.Context) ([]Issue, error)
}
