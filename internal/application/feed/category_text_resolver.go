package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/graph"
	"github.com/feedsync/backend/internal/domain/shared"
)

var (
	ErrCategoryTextMissing = errors.New("feed: no category text on the category or any ancestor")
	ErrCategoryLoop        = errors.New("feed: category parent chain loops")
)

// CategoryTextResolver finds the marketplace category text of a category,
// inheriting it from the nearest ancestor that carries one.
type CategoryTextResolver struct {
	store graph.Store
}

// NewCategoryTextResolver creates a resolver reading parents from store
func NewCategoryTextResolver(store graph.Store) *CategoryTextResolver {
	return &CategoryTextResolver{store: store}
}

// Resolve walks from leaf towards the root and returns the first category text found
func (r *CategoryTextResolver) Resolve(ctx context.Context, leaf catalog.Category) (string, error) {
	visited := make(map[string]struct{})
	current := leaf
	for {
		if current.HasCategoryText() {
			return current.CategoryText, nil
		}
		if _, seen := visited[current.ID]; seen {
			return "", shared.NewDataIntegrityError("feed.category_text", fmt.Errorf("%w at %s", ErrCategoryLoop, current.ID))
		}
		visited[current.ID] = struct{}{}

		parent, ok, err := r.parent(ctx, current)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", shared.NewDataIntegrityError("feed.category_text", fmt.Errorf("%w: %s", ErrCategoryTextMissing, leaf.ID))
		}
		current = parent
	}
}

// parent returns the direct parent of c. Stored ancestor_of edges are
// consulted first, then the parent node itself, then the reference embedded
// in c. A category without a parent reference falls back to its nearest
// stored ancestor.
func (r *CategoryTextResolver) parent(ctx context.Context, c catalog.Category) (catalog.Category, bool, error) {
	ancestors, err := r.store.Related(ctx, graph.Ref(graph.NodeCategory, c.ID), graph.EdgeAncestorOf, graph.In)
	if err != nil {
		return catalog.Category{}, false, err
	}

	parentID := c.ParentID()
	for _, node := range ancestors {
		if parentID != "" && node.Ref.ID != parentID {
			continue
		}
		var parent catalog.Category
		if err := node.Decode(&parent); err != nil {
			return catalog.Category{}, false, shared.NewDataIntegrityError("feed.category_text", err)
		}
		return parent, true, nil
	}
	if parentID == "" {
		return catalog.Category{}, false, nil
	}

	node, err := r.store.GetNode(ctx, graph.Ref(graph.NodeCategory, parentID))
	switch {
	case err == nil:
		var parent catalog.Category
		if err := node.Decode(&parent); err != nil {
			return catalog.Category{}, false, shared.NewDataIntegrityError("feed.category_text", err)
		}
		return parent, true, nil
	case errors.Is(err, graph.ErrNodeNotFound):
		return *c.Parent, true, nil
	default:
		return catalog.Category{}, false, err
	}
}
