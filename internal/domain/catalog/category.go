package catalog

import (
	"errors"
	"strings"
)

var ErrCategoryMissingID = errors.New("catalog: category id is required")

// Category is a node of the category tree.
// CategoryText is the marketplace category path stored as metadata on the
// category; it is inherited by descendants that do not set their own.
type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug,omitempty"`
	CategoryText string    `json:"categoryText,omitempty"`
	Parent       *Category `json:"parent,omitempty"`
}

// Validate checks the fields required to ingest a category
func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrCategoryMissingID
	}
	return nil
}

// HasCategoryText reports whether the category carries its own text
func (c Category) HasCategoryText() bool {
	return strings.TrimSpace(c.CategoryText) != ""
}

// ParentID returns the id of the parent, or "" for a root category
func (c Category) ParentID() string {
	if c.Parent == nil {
		return ""
	}
	return c.Parent.ID
}

// Stored returns the node content persisted for the category.
// Only a reference to the direct parent is kept.
func (c Category) Stored() Category {
	if c.Parent != nil {
		c.Parent = &Category{
			ID:           c.Parent.ID,
			Name:         c.Parent.Name,
			Slug:         c.Parent.Slug,
			CategoryText: c.Parent.CategoryText,
		}
	}
	return c
}
