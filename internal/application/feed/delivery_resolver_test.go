package feed

import (
	"testing"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feed"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kg(v string) *catalog.Weight {
	return &catalog.Weight{Unit: catalog.WeightUnitKilogram, Value: decimal.RequireFromString(v)}
}

func czk(v string) catalog.Money {
	return catalog.NewMoney(decimal.RequireFromString(v), "CZK")
}

func strictCZK(t *testing.T) *CurrencyPolicy {
	t.Helper()
	p, err := NewCurrencyPolicy([]string{"CZK", "EUR"}, true)
	require.NoError(t, err)
	return p
}

func TestCurrencyPolicy(t *testing.T) {
	strict := strictCZK(t)
	assert.True(t, strict.Strict())
	assert.True(t, strict.Accepts("CZK"))
	assert.True(t, strict.Accepts("eur"))
	assert.False(t, strict.Accepts("USD"))
	assert.False(t, strict.Accepts("XYZ1"))

	relaxed, err := NewCurrencyPolicy(nil, false)
	require.NoError(t, err)
	assert.True(t, relaxed.Accepts("USD"))
	assert.False(t, relaxed.Accepts("dollars"))

	_, err = NewCurrencyPolicy([]string{"CZK", "KORUNA"}, true)
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = NewCurrencyPolicy(nil, true)
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestDeliveryResolver_Resolve(t *testing.T) {
	zone := catalog.ShippingZone{
		ID:        "z1",
		CourierID: "ppl",
		ShippingMethods: []catalog.ShippingMethod{
			{Name: "light", MaximumOrderWeight: kg("2"), Prices: []catalog.Money{czk("89")}},
			{Name: "heavy", MinimumOrderWeight: kg("2"), MaximumOrderWeight: kg("30"), Prices: []catalog.Money{czk("149")}},
			{Name: "dollars only", Prices: []catalog.Money{catalog.NewMoney(decimal.NewFromInt(5), "USD")}},
			{Name: "unbounded", Prices: []catalog.Money{catalog.NewMoney(decimal.NewFromInt(4), "USD"), czk("199")}},
		},
	}

	tests := []struct {
		name   string
		weight *catalog.Weight
		want   []string
	}{
		{"light parcel", kg("1"), []string{"89", "199"}},
		{"band edges are inclusive", kg("2"), []string{"89", "149", "199"}},
		{"heavy parcel", kg("2.5"), []string{"149", "199"}},
		{"above every band", kg("31"), []string{"199"}},
		{"grams are normalized", &catalog.Weight{Unit: catalog.WeightUnitGram, Value: decimal.NewFromInt(2500)}, []string{"149", "199"}},
	}

	r := NewDeliveryResolver(strictCZK(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(zone, *tt.weight)
			prices := make([]string, len(got))
			for i, d := range got {
				assert.Equal(t, feed.CourierID("PPL"), d.ID)
				assert.Nil(t, d.PriceCOD)
				prices[i] = d.Price.String()
			}
			assert.Equal(t, tt.want, prices)
		})
	}
}

func TestDeliveryResolver_CashOnDelivery(t *testing.T) {
	zone := catalog.ShippingZone{
		ID: "z1", CourierID: "DPD",
		ShippingMethods: []catalog.ShippingMethod{{Name: "std", Prices: []catalog.Money{czk("100")}}},
	}

	t.Run("with surcharge", func(t *testing.T) {
		surcharge := decimal.RequireFromString("30.50")
		got := NewDeliveryResolver(strictCZK(t), WithCashOnDelivery(&surcharge)).Resolve(zone, catalog.DefaultWeight)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].PriceCOD)
		assert.Equal(t, "130.5", got[0].PriceCOD.String())
		assert.Equal(t, "100", got[0].Price.String())
	})

	t.Run("without surcharge", func(t *testing.T) {
		got := NewDeliveryResolver(strictCZK(t), WithCashOnDelivery(nil)).Resolve(zone, catalog.DefaultWeight)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].PriceCOD)
		assert.Equal(t, "100", got[0].PriceCOD.String())
	})
}

func TestDeliveryResolver_SkipsUnusableZones(t *testing.T) {
	r := NewDeliveryResolver(strictCZK(t))
	methods := []catalog.ShippingMethod{{Name: "std", Prices: []catalog.Money{czk("100")}}}

	assert.Empty(t, r.Resolve(catalog.ShippingZone{ID: "none", ShippingMethods: methods}, catalog.DefaultWeight))
	assert.Empty(t, r.Resolve(catalog.ShippingZone{ID: "bad", CourierID: "CARRIER_PIGEON", ShippingMethods: methods}, catalog.DefaultWeight))
}

func TestDeliveryResolver_ResolveAll(t *testing.T) {
	zones := []catalog.ShippingZone{
		{ID: "a", CourierID: "PPL", ShippingMethods: []catalog.ShippingMethod{{Prices: []catalog.Money{czk("90")}}}},
		{ID: "b", CourierID: "", ShippingMethods: []catalog.ShippingMethod{{Prices: []catalog.Money{czk("10")}}}},
		{ID: "c", CourierID: "ZASILKOVNA", ShippingMethods: []catalog.ShippingMethod{{Prices: []catalog.Money{czk("60")}}}},
	}

	got := NewDeliveryResolver(strictCZK(t)).ResolveAll(zones, catalog.DefaultWeight)
	require.Len(t, got, 2)
	assert.Equal(t, feed.CourierID("PPL"), got[0].ID)
	assert.Equal(t, feed.CourierID("ZASILKOVNA"), got[1].ID)
}
