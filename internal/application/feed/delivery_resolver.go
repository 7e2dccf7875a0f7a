package feed

import (
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feed"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeliveryResolver turns shipping zones into feed deliveries for one item weight
type DeliveryResolver struct {
	currencies     *CurrencyPolicy
	cashOnDelivery bool
	surcharge      *decimal.Decimal
	logger         *zap.Logger
}

// DeliveryOption configures a DeliveryResolver
type DeliveryOption func(*DeliveryResolver)

// WithCashOnDelivery emits a COD price on every delivery: the delivery price
// plus surcharge, or the delivery price alone when surcharge is nil.
func WithCashOnDelivery(surcharge *decimal.Decimal) DeliveryOption {
	return func(r *DeliveryResolver) {
		r.cashOnDelivery = true
		r.surcharge = surcharge
	}
}

// WithDeliveryLogger sets the logger
func WithDeliveryLogger(logger *zap.Logger) DeliveryOption {
	return func(r *DeliveryResolver) {
		r.logger = logger
	}
}

// NewDeliveryResolver creates a resolver using currencies to pick price listings
func NewDeliveryResolver(currencies *CurrencyPolicy, opts ...DeliveryOption) *DeliveryResolver {
	r := &DeliveryResolver{currencies: currencies, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one delivery per method of zone that has an acceptable
// price and whose weight band contains weight, in method order.
// Zones without a known courier yield nothing.
func (r *DeliveryResolver) Resolve(zone catalog.ShippingZone, weight catalog.Weight) []feed.Delivery {
	courier, err := feed.ParseCourierID(zone.CourierID)
	if err != nil {
		r.logger.Debug("shipping zone skipped",
			zap.String("zone_id", zone.ID),
			zap.String("courier_id", zone.CourierID),
			zap.Error(err),
		)
		return nil
	}

	var out []feed.Delivery
	for _, method := range zone.ShippingMethods {
		price, ok := method.PriceIn(r.currencies.Accepts)
		if !ok {
			continue
		}
		if !method.Accepts(weight) {
			continue
		}
		d := feed.Delivery{ID: courier, Price: price.Amount}
		if r.cashOnDelivery {
			cod := price.Amount
			if r.surcharge != nil {
				cod = cod.Add(*r.surcharge)
			}
			d.PriceCOD = &cod
		}
		out = append(out, d)
	}
	return out
}

// ResolveAll concatenates the deliveries of every zone in zone order
func (r *DeliveryResolver) ResolveAll(zones []catalog.ShippingZone, weight catalog.Weight) []feed.Delivery {
	var out []feed.Delivery
	for _, zone := range zones {
		out = append(out, r.Resolve(zone, weight)...)
	}
	return out
}
