package catalog

import (
	"encoding/json"
	"errors"
	"html"
	"regexp"
	"strings"
)

var (
	ErrProductMissingID       = errors.New("catalog: product id is required")
	ErrProductMissingName     = errors.New("catalog: product name is required")
	ErrProductMissingCategory = errors.New("catalog: product has no category")
	ErrVariantMissingID       = errors.New("catalog: variant id is required")
	ErrVariantMissingProduct  = errors.New("catalog: variant has no product reference")
)

// Product is a sellable product as delivered by the source shop.
// Category and Variants are carried by payloads only; the stored
// node content omits them and the relations live in edges.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug,omitempty"`
	Description string       `json:"description,omitempty"`
	Weight      *Weight      `json:"weight,omitempty"`
	ProductType *ProductType `json:"productType,omitempty"`
	Category    *Category    `json:"category,omitempty"`
	Variants    []Variant    `json:"variants,omitempty"`
}

// Validate checks the fields required to ingest a product
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrProductMissingID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrProductMissingName
	}
	if p.Category == nil || p.Category.ID == "" {
		return ErrProductMissingCategory
	}
	return nil
}

// Stored returns the node content persisted for the product.
func (p Product) Stored() Product {
	p.Category = nil
	p.Variants = nil
	return p
}

// PlainDescription returns the description as plain text.
// Rich text documents ({"blocks":[{"data":{"text":...}}]}) are flattened
// to their block texts with inline markup removed.
func (p Product) PlainDescription() string {
	return plainText(p.Description)
}

// ProductRef identifies the product a variant belongs to
type ProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// Variant is a purchasable variant of a product
type Variant struct {
	ID      string      `json:"id"`
	SKU     string      `json:"sku,omitempty"`
	Name    string      `json:"name"`
	Price   *Money      `json:"price,omitempty"`
	Media   []Media     `json:"media,omitempty"`
	Weight  *Weight     `json:"weight,omitempty"`
	Product *ProductRef `json:"product,omitempty"`
}

// Validate checks the fields required to ingest a variant
func (v Variant) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return ErrVariantMissingID
	}
	if v.Product == nil || v.Product.ID == "" {
		return ErrVariantMissingProduct
	}
	return nil
}

// Media is an image attached to a variant; the first one is the primary image
type Media struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

type richText struct {
	Blocks []struct {
		Data struct {
			Text  string   `json:"text"`
			Items []string `json:"items"`
		} `json:"data"`
	} `json:"blocks"`
}

func plainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var doc richText
	if strings.HasPrefix(s, "{") && json.Unmarshal([]byte(s), &doc) == nil && doc.Blocks != nil {
		parts := make([]string, 0, len(doc.Blocks))
		for _, b := range doc.Blocks {
			if b.Data.Text != "" {
				parts = append(parts, b.Data.Text)
			}
			parts = append(parts, b.Data.Items...)
		}
		s = strings.Join(parts, "\n")
	}
	return strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(s, "")))
}
