package saleor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/feedsync/backend/internal/domain/catalog"
)

// EventType is the value of the saleor-event header
type EventType string

const (
	ProductCreated        EventType = "product_created"
	ProductUpdated        EventType = "product_updated"
	ProductDeleted        EventType = "product_deleted"
	ProductVariantCreated EventType = "product_variant_created"
	ProductVariantUpdated EventType = "product_variant_updated"
	ProductVariantDeleted EventType = "product_variant_deleted"
	CategoryCreated       EventType = "category_created"
	CategoryUpdated       EventType = "category_updated"
	CategoryDeleted       EventType = "category_deleted"
	ShippingZoneCreated   EventType = "shipping_zone_created"
	ShippingZoneUpdated   EventType = "shipping_zone_updated"
	ShippingZoneDeleted   EventType = "shipping_zone_deleted"
)

var (
	ErrUnknownEvent  = errors.New("saleor: unknown webhook event")
	ErrEmptyPayload  = errors.New("saleor: webhook payload carries no object")
	ErrMalformedBody = errors.New("saleor: malformed webhook body")
)

// ParseEventType normalizes a header value such as "PRODUCT_UPDATED"
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ProductCreated, ProductUpdated, ProductDeleted,
		ProductVariantCreated, ProductVariantUpdated, ProductVariantDeleted,
		CategoryCreated, CategoryUpdated, CategoryDeleted,
		ShippingZoneCreated, ShippingZoneUpdated, ShippingZoneDeleted:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
}

// IsDelete reports whether the event removes its object
func (t EventType) IsDelete() bool {
	return strings.HasSuffix(string(t), "_deleted")
}

// Webhook is a decoded webhook. Exactly one of the object fields is set.
// Dropped lists the invalid fields left out of that object.
type Webhook struct {
	Event        EventType
	Product      *catalog.Product
	Variant      *catalog.Variant
	Category     *catalog.Category
	ShippingZone *catalog.ShippingZone
	Dropped      []error
}

// ObjectID returns the id of the carried object
func (w Webhook) ObjectID() string {
	switch {
	case w.Product != nil:
		return w.Product.ID
	case w.Variant != nil:
		return w.Variant.ID
	case w.Category != nil:
		return w.Category.ID
	case w.ShippingZone != nil:
		return w.ShippingZone.ID
	}
	return ""
}

type webhookBody struct {
	Product        *productDTO      `json:"product"`
	ProductVariant *variantDTO      `json:"productVariant"`
	Category       *categoryDTO     `json:"category"`
	ShippingZone   *shippingZoneDTO `json:"shippingZone"`
}

// ParseWebhook decodes the subscription payload of event
func ParseWebhook(event EventType, body []byte) (*Webhook, error) {
	var payload webhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	var d decoder
	w := &Webhook{Event: event}
	switch event {
	case ProductCreated, ProductUpdated, ProductDeleted:
		if payload.Product == nil {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, event)
		}
		p := payload.Product.toDomain(&d)
		w.Product = &p
	case ProductVariantCreated, ProductVariantUpdated, ProductVariantDeleted:
		if payload.ProductVariant == nil {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, event)
		}
		v := payload.ProductVariant.toDomain(&d, nil)
		w.Variant = &v
	case CategoryCreated, CategoryUpdated, CategoryDeleted:
		if payload.Category == nil {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, event)
		}
		w.Category = payload.Category.toDomain()
	case ShippingZoneCreated, ShippingZoneUpdated, ShippingZoneDeleted:
		if payload.ShippingZone == nil {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, event)
		}
		z := payload.ShippingZone.toDomain(&d, "")
		w.ShippingZone = &z
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	w.Dropped = d.dropped
	return w, nil
}
