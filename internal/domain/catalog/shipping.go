package catalog

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrShippingZoneMissingID      = errors.New("catalog: shipping zone id is required")
	ErrShippingZoneMissingCourier = errors.New("catalog: shipping zone has no courier id")
)

// ShippingZone groups shipping methods served by one courier
type ShippingZone struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	CourierID       string           `json:"courierId,omitempty"`
	ShippingMethods []ShippingMethod `json:"shippingMethods,omitempty"`
}

// Validate rejects zones that cannot produce deliveries
func (z ShippingZone) Validate() error {
	if strings.TrimSpace(z.ID) == "" {
		return ErrShippingZoneMissingID
	}
	if strings.TrimSpace(z.CourierID) == "" {
		return ErrShippingZoneMissingCourier
	}
	return nil
}

// ShippingMethod is one priced way of shipping within a zone
type ShippingMethod struct {
	ID                 string  `json:"id,omitempty"`
	Name               string  `json:"name"`
	MinimumOrderWeight *Weight `json:"minimumOrderWeight,omitempty"`
	MaximumOrderWeight *Weight `json:"maximumOrderWeight,omitempty"`
	Prices             []Money `json:"prices,omitempty"`
}

// Accepts reports whether weight lies within the inclusive weight band.
// A missing lower bound is zero, a missing upper bound is unbounded.
func (m ShippingMethod) Accepts(weight Weight) bool {
	kg := weight.Kilograms()
	minKg := decimal.Zero
	if m.MinimumOrderWeight != nil {
		minKg = m.MinimumOrderWeight.Kilograms()
	}
	if kg.LessThan(minKg) {
		return false
	}
	if m.MaximumOrderWeight != nil && kg.GreaterThan(m.MaximumOrderWeight.Kilograms()) {
		return false
	}
	return true
}

// PriceIn returns the first price listing accepted by the predicate
func (m ShippingMethod) PriceIn(accept func(currency string) bool) (Money, bool) {
	for _, p := range m.Prices {
		if accept(p.Currency) {
			return p, true
		}
	}
	return Money{}, false
}
