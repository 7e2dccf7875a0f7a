// Package graphtest provides an in-memory graph.Store for tests.
package graphtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
)

type edge struct {
	kind graph.EdgeKind
	from graph.NodeRef
	to   graph.NodeRef
}

// MemoryStore is a graph.Store kept in maps. Failures can be injected per operation.
type MemoryStore struct {
	mu     sync.Mutex
	nodes  map[graph.NodeRef]graph.Node
	edges  []edge
	issues []graph.Issue
	fail   map[string]error
}

var _ graph.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[graph.NodeRef]graph.Node),
		fail:  make(map[string]error),
	}
}

// FailOn makes every later call of op ("UpsertNode", "Related", ...) return err
func (s *MemoryStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

func (s *MemoryStore) failure(op string) error {
	return s.fail[op]
}

func (s *MemoryStore) UpsertNode(_ context.Context, ref graph.NodeRef, content json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("UpsertNode"); err != nil {
		return err
	}
	if !ref.Kind.IsValid() {
		return shared.NewStorageError("graph.upsert_node", fmt.Errorf("%w: %q", graph.ErrUnknownNodeKind, ref.Kind))
	}
	s.nodes[ref] = graph.Node{Ref: ref, Content: append(json.RawMessage(nil), content...), UpdatedAt: time.Now()}
	return nil
}

func (s *MemoryStore) GetNode(_ context.Context, ref graph.NodeRef) (*graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetNode"); err != nil {
		return nil, err
	}
	n, ok := s.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, ref)
	}
	return &n, nil
}

func (s *MemoryStore) DeleteNode(_ context.Context, ref graph.NodeRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("DeleteNode"); err != nil {
		return err
	}
	delete(s.nodes, ref)
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.from != ref && e.to != ref {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	return nil
}

func (s *MemoryStore) NodesOf(_ context.Context, kind graph.NodeKind) ([]graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("NodesOf"); err != nil {
		return nil, err
	}
	var out []graph.Node
	for ref, n := range s.nodes {
		if ref.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.ID < out[j].Ref.ID })
	return out, nil
}

func matches(e edge, kind graph.EdgeKind, ref graph.NodeRef, dir graph.Direction) bool {
	if e.kind != kind {
		return false
	}
	switch dir {
	case graph.Out:
		return e.from == ref
	case graph.In:
		return e.to == ref
	default:
		return e.from == ref || e.to == ref
	}
}

func (s *MemoryStore) ClearEdges(_ context.Context, kind graph.EdgeKind, ref graph.NodeRef, dir graph.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ClearEdges"); err != nil {
		return err
	}
	kept := s.edges[:0]
	for _, e := range s.edges {
		if !matches(e, kind, ref, dir) {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	return nil
}

func (s *MemoryStore) Relate(_ context.Context, from graph.NodeRef, kind graph.EdgeKind, to graph.NodeRef) error {
	if err := kind.Check(from, to); err != nil {
		return shared.NewStorageError("graph.relate", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Relate"); err != nil {
		return err
	}
	s.edges = append(s.edges, edge{kind: kind, from: from, to: to})
	return nil
}

func (s *MemoryStore) Related(_ context.Context, ref graph.NodeRef, kind graph.EdgeKind, dir graph.Direction) ([]graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("Related"); err != nil {
		return nil, err
	}
	var out []graph.Node
	for _, e := range s.edges {
		if !matches(e, kind, ref, dir) {
			continue
		}
		other := e.from
		if e.from == ref {
			other = e.to
		}
		if n, ok := s.nodes[other]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *MemoryStore) SchemaVersion(context.Context) (int, error) {
	return graph.SchemaVersion, nil
}

func (s *MemoryStore) RecordIssues(_ context.Context, issues []graph.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("RecordIssues"); err != nil {
		return err
	}
	s.issues = append([]graph.Issue(nil), issues...)
	return nil
}

func (s *MemoryStore) Issues(context.Context) ([]graph.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]graph.Issue(nil), s.issues...), nil
}

// EdgeCount returns the number of edges of kind touching ref in dir
func (s *MemoryStore) EdgeCount(kind graph.EdgeKind, ref graph.NodeRef, dir graph.Direction) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.edges {
		if matches(e, kind, ref, dir) {
			n++
		}
	}
	return n
}

// References counts the edges of any kind touching ref
func (s *MemoryStore) References(ref graph.NodeRef) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.edges {
		if e.from == ref || e.to == ref {
			n++
		}
	}
	return n
}

// Put stores v as the content of ref, panicking on encode errors
func (s *MemoryStore) Put(ref graph.NodeRef, v any) {
	raw, err := graph.Encode(v)
	if err != nil {
		panic(err)
	}
	if err := s.UpsertNode(context.Background(), ref, raw); err != nil {
		panic(err)
	}
}
