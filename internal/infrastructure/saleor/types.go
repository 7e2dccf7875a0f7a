package saleor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInvalidWeight marks a weight dropped from a shop payload
var ErrInvalidWeight = errors.New("saleor: invalid weight")

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

type gqlResponse[T any] struct {
	Data   *T         `json:"data"`
	Errors []gqlError `json:"errors"`
}

type pageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

type edge[T any] struct {
	Node T `json:"node"`
}

type connection[T any] struct {
	PageInfo pageInfo  `json:"pageInfo"`
	Edges    []edge[T] `json:"edges"`
}

type weightDTO struct {
	Unit  string          `json:"unit"`
	Value decimal.Decimal `json:"value"`
}

// decoder collects the fields dropped while converting payloads to catalog types
type decoder struct {
	dropped []error
}

func (d *decoder) drop(field string, err error) {
	d.dropped = append(d.dropped, shared.DataIntegrityf("saleor.decode", "%w: %s: %w", ErrInvalidWeight, field, err))
}

// log reports each dropped field as a warning
func (d *decoder) log(logger *zap.Logger, op string) {
	for _, err := range d.dropped {
		logger.Warn("Dropped invalid field from shop payload", zap.String("op", op), zap.Error(err))
	}
}

// toDomain returns nil for an absent weight. A weight with an unknown unit
// or a negative value is dropped and recorded on d.
func (w *weightDTO) toDomain(d *decoder, field string) *catalog.Weight {
	if w == nil {
		return nil
	}
	unit, err := catalog.ParseWeightUnit(w.Unit)
	if err == nil {
		var weight catalog.Weight
		if weight, err = catalog.NewWeight(w.Value, unit); err == nil {
			return &weight
		}
	}
	d.drop(fmt.Sprintf("%s (%s %s)", field, w.Value, w.Unit), err)
	return nil
}

type moneyDTO struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type categoryDTO struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Slug         string       `json:"slug"`
	CategoryText *string      `json:"categoryText"`
	Parent       *categoryDTO `json:"parent"`
}

func (c *categoryDTO) toDomain() *catalog.Category {
	if c == nil {
		return nil
	}
	out := &catalog.Category{
		ID:     c.ID,
		Name:   c.Name,
		Slug:   c.Slug,
		Parent: c.Parent.toDomain(),
	}
	if c.CategoryText != nil {
		out.CategoryText = strings.TrimSpace(*c.CategoryText)
	}
	return out
}

type mediaDTO struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type productRefDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type variantDTO struct {
	ID      string     `json:"id"`
	SKU     *string    `json:"sku"`
	Name    string     `json:"name"`
	Weight  *weightDTO `json:"weight"`
	Media   []mediaDTO `json:"media"`
	Pricing *struct {
		Price *struct {
			Gross moneyDTO `json:"gross"`
		} `json:"price"`
	} `json:"pricing"`
	Product *productRefDTO `json:"product"`
}

func (v variantDTO) toDomain(d *decoder, product *catalog.ProductRef) catalog.Variant {
	out := catalog.Variant{
		ID:      v.ID,
		Name:    v.Name,
		Weight:  v.Weight.toDomain(d, "variant "+v.ID+" weight"),
		Product: product,
	}
	if v.SKU != nil {
		out.SKU = *v.SKU
	}
	if v.Pricing != nil && v.Pricing.Price != nil {
		price := catalog.NewMoney(v.Pricing.Price.Gross.Amount, v.Pricing.Price.Gross.Currency)
		out.Price = &price
	}
	for _, m := range v.Media {
		if m.URL == "" {
			continue
		}
		out.Media = append(out.Media, catalog.Media{URL: m.URL, Alt: m.Alt})
	}
	if out.Product == nil && v.Product != nil {
		out.Product = &catalog.ProductRef{ID: v.Product.ID, Name: v.Product.Name, Slug: v.Product.Slug}
	}
	return out
}

type productTypeDTO struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Weight *weightDTO `json:"weight"`
}

type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description *string         `json:"description"`
	Weight      *weightDTO      `json:"weight"`
	ProductType *productTypeDTO `json:"productType"`
	Category    *categoryDTO    `json:"category"`
	Variants    []variantDTO    `json:"variants"`
}

func (p productDTO) toDomain(d *decoder) catalog.Product {
	out := catalog.Product{
		ID:       p.ID,
		Name:     p.Name,
		Slug:     p.Slug,
		Weight:   p.Weight.toDomain(d, "product "+p.ID+" weight"),
		Category: p.Category.toDomain(),
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.ProductType != nil {
		out.ProductType = &catalog.ProductType{
			ID:     p.ProductType.ID,
			Name:   p.ProductType.Name,
			Weight: p.ProductType.Weight.toDomain(d, "product type "+p.ProductType.ID+" weight"),
		}
	}
	ref := &catalog.ProductRef{ID: p.ID, Name: p.Name, Slug: p.Slug}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, v.toDomain(d, ref))
	}
	return out
}

type channelListingDTO struct {
	Channel *struct {
		Slug string `json:"slug"`
	} `json:"channel"`
	Price *moneyDTO `json:"price"`
}

type shippingMethodDTO struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	MinimumOrderWeight *weightDTO          `json:"minimumOrderWeight"`
	MaximumOrderWeight *weightDTO          `json:"maximumOrderWeight"`
	ChannelListings    []channelListingDTO `json:"channelListings"`
}

type shippingZoneDTO struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	CourierID       *string             `json:"courierId"`
	ShippingMethods []shippingMethodDTO `json:"shippingMethods"`
}

// toDomain keeps the price listings of channel; an empty channel keeps all of them
func (z shippingZoneDTO) toDomain(d *decoder, channel string) catalog.ShippingZone {
	out := catalog.ShippingZone{ID: z.ID, Name: z.Name}
	if z.CourierID != nil {
		out.CourierID = strings.TrimSpace(*z.CourierID)
	}
	for _, m := range z.ShippingMethods {
		method := catalog.ShippingMethod{
			ID:                 m.ID,
			Name:               m.Name,
			MinimumOrderWeight: m.MinimumOrderWeight.toDomain(d, "shipping method "+m.ID+" minimum order weight"),
			MaximumOrderWeight: m.MaximumOrderWeight.toDomain(d, "shipping method "+m.ID+" maximum order weight"),
		}
		for _, l := range m.ChannelListings {
			if l.Price == nil {
				continue
			}
			if channel != "" && l.Channel != nil && l.Channel.Slug != channel {
				continue
			}
			method.Prices = append(method.Prices, catalog.NewMoney(l.Price.Amount, l.Price.Currency))
		}
		out.ShippingMethods = append(out.ShippingMethods, method)
	}
	return out
}

type productsData struct {
	Products *connection[productDTO] `json:"products"`
}

type shippingZonesData struct {
	ShippingZones *connection[shippingZoneDTO] `json:"shippingZones"`
}

type categoryData struct {
	Category *categoryDTO `json:"category"`
}

type categoryChildrenData struct {
	Category *struct {
		Children *connection[categoryDTO] `json:"children"`
	} `json:"category"`
}
