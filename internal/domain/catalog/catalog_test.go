package catalog

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kg(s string) *Weight {
	return &Weight{Unit: WeightUnitKilogram, Value: decimal.RequireFromString(s)}
}

func TestWeight_Kilograms(t *testing.T) {
	tests := []struct {
		name   string
		weight Weight
		want   string
	}{
		{"grams", Weight{Unit: WeightUnitGram, Value: decimal.NewFromInt(1500)}, "1.5"},
		{"kilograms", Weight{Unit: WeightUnitKilogram, Value: decimal.RequireFromString("2.25")}, "2.25"},
		{"tonnes", Weight{Unit: WeightUnitTonne, Value: decimal.RequireFromString("0.002")}, "2"},
		{"pounds", Weight{Unit: WeightUnitPound, Value: decimal.NewFromInt(1)}, "0.45359237"},
		{"ounces", Weight{Unit: WeightUnitOunce, Value: decimal.NewFromInt(16)}, "0.45359237"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(tt.weight.Kilograms()),
				"got %s", tt.weight.Kilograms())
		})
	}
}

func TestParseWeightUnit(t *testing.T) {
	u, err := ParseWeightUnit(" kg ")
	require.NoError(t, err)
	assert.Equal(t, WeightUnitKilogram, u)

	_, err = ParseWeightUnit("stone")
	assert.ErrorIs(t, err, ErrUnknownWeightUnit)
}

func TestNewWeight(t *testing.T) {
	_, err := NewWeight(decimal.NewFromInt(-1), WeightUnitGram)
	assert.ErrorIs(t, err, ErrNegativeWeight)

	w, err := NewWeight(decimal.NewFromInt(3), WeightUnitOunce)
	require.NoError(t, err)
	assert.Equal(t, "3 OZ", w.String())
}

func TestResolveWeight(t *testing.T) {
	typeWeight := kg("3")
	productWeight := kg("2")
	variantWeight := kg("1")

	product := Product{ID: "P1", ProductType: &ProductType{Weight: typeWeight}}

	assert.Equal(t, DefaultWeight, ResolveWeight(Variant{}, Product{}))
	assert.Equal(t, *typeWeight, ResolveWeight(Variant{}, product))

	product.Weight = productWeight
	assert.Equal(t, *productWeight, ResolveWeight(Variant{}, product))
	assert.Equal(t, *variantWeight, ResolveWeight(Variant{Weight: variantWeight}, product))
}

func TestProduct_Validate(t *testing.T) {
	assert.ErrorIs(t, Product{}.Validate(), ErrProductMissingID)
	assert.ErrorIs(t, Product{ID: "P1"}.Validate(), ErrProductMissingName)
	assert.ErrorIs(t, Product{ID: "P1", Name: "Mug"}.Validate(), ErrProductMissingCategory)
	assert.NoError(t, Product{ID: "P1", Name: "Mug", Category: &Category{ID: "C1"}}.Validate())
}

func TestProduct_Stored(t *testing.T) {
	p := Product{
		ID:       "P1",
		Name:     "Mug",
		Category: &Category{ID: "C1"},
		Variants: []Variant{{ID: "V1"}},
	}
	stored := p.Stored()
	assert.Nil(t, stored.Category)
	assert.Nil(t, stored.Variants)
	assert.NotNil(t, p.Category, "receiver must not be modified")

	raw, err := json.Marshal(stored)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"P1","name":"Mug"}`, string(raw))
}

func TestProduct_PlainDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text", "  Hand made  ", "Hand made"},
		{
			"rich text blocks",
			`{"time":1,"blocks":[{"type":"paragraph","data":{"text":"Big <b>mug</b> &amp; saucer"}},{"type":"list","data":{"items":["one","two"]}}]}`,
			"Big mug & saucer\none\ntwo",
		},
		{"broken json stays text", `{"blocks": [`, `{"blocks": [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Product{Description: tt.in}.PlainDescription())
		})
	}
}

func TestVariant_Validate(t *testing.T) {
	assert.ErrorIs(t, Variant{}.Validate(), ErrVariantMissingID)
	assert.ErrorIs(t, Variant{ID: "V1"}.Validate(), ErrVariantMissingProduct)
	assert.NoError(t, Variant{ID: "V1", Product: &ProductRef{ID: "P1"}}.Validate())
}

func TestCategory_Stored(t *testing.T) {
	c := Category{
		ID: "C3",
		Parent: &Category{
			ID:           "C2",
			CategoryText: "Home | Kitchen",
			Parent:       &Category{ID: "C1"},
		},
	}
	stored := c.Stored()
	require.NotNil(t, stored.Parent)
	assert.Equal(t, "C2", stored.ParentID())
	assert.Equal(t, "Home | Kitchen", stored.Parent.CategoryText)
	assert.Nil(t, stored.Parent.Parent)
	assert.NotNil(t, c.Parent.Parent)
	assert.Equal(t, "", Category{ID: "root"}.ParentID())
}

func TestShippingZone_Validate(t *testing.T) {
	assert.ErrorIs(t, ShippingZone{}.Validate(), ErrShippingZoneMissingID)
	assert.ErrorIs(t, ShippingZone{ID: "Z1"}.Validate(), ErrShippingZoneMissingCourier)
	assert.NoError(t, ShippingZone{ID: "Z1", CourierID: "PPL"}.Validate())
}

func TestShippingMethod_Accepts(t *testing.T) {
	method := ShippingMethod{MinimumOrderWeight: kg("1"), MaximumOrderWeight: kg("5")}

	assert.False(t, method.Accepts(*kg("0.5")))
	assert.True(t, method.Accepts(*kg("1")))
	assert.True(t, method.Accepts(*kg("5")))
	assert.False(t, method.Accepts(*kg("5.01")))
	assert.True(t, method.Accepts(Weight{Unit: WeightUnitGram, Value: decimal.NewFromInt(5000)}))

	unbounded := ShippingMethod{}
	assert.True(t, unbounded.Accepts(*kg("0")))
	assert.True(t, unbounded.Accepts(*kg("100000")))
}

func TestShippingMethod_PriceIn(t *testing.T) {
	method := ShippingMethod{Prices: []Money{
		NewMoney(decimal.NewFromInt(4), "usd"),
		NewMoney(decimal.NewFromInt(99), "CZK"),
		NewMoney(decimal.NewFromInt(4), "EUR"),
	}}

	price, ok := method.PriceIn(func(c string) bool { return c == "CZK" || c == "EUR" })
	require.True(t, ok)
	assert.Equal(t, "99.00 CZK", price.String())

	_, ok = method.PriceIn(func(string) bool { return false })
	assert.False(t, ok)
}
