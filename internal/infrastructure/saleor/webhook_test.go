package saleor

import (
	"testing"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventType(t *testing.T) {
	got, err := ParseEventType(" PRODUCT_UPDATED ")
	require.NoError(t, err)
	assert.Equal(t, ProductUpdated, got)
	assert.False(t, got.IsDelete())
	assert.True(t, CategoryDeleted.IsDelete())

	_, err = ParseEventType("order_created")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestParseWebhook(t *testing.T) {
	t.Run("variant payload carries its product reference", func(t *testing.T) {
		body := []byte(`{"productVariant":{"id":"v1","name":"XL","sku":null,
			"weight":{"unit":"LB","value":2},
			"product":{"id":"p1","name":"Shirt","slug":"shirt"}}}`)

		w, err := ParseWebhook(ProductVariantUpdated, body)
		require.NoError(t, err)
		require.NotNil(t, w.Variant)
		assert.Equal(t, "v1", w.ObjectID())
		require.NotNil(t, w.Variant.Product)
		assert.Equal(t, "p1", w.Variant.Product.ID)
		assert.Empty(t, w.Variant.SKU)
		require.NotNil(t, w.Variant.Weight)
		assert.Equal(t, "0.90718474", w.Variant.Weight.Kilograms().String())
	})

	t.Run("shipping zone keeps every channel listing", func(t *testing.T) {
		body := []byte(`{"shippingZone":{"id":"z1","name":"CZ","courierId":null,
			"shippingMethods":[{"name":"Std","channelListings":[
				{"channel":{"slug":"a"},"price":{"amount":1,"currency":"CZK"}},
				{"channel":{"slug":"b"},"price":{"amount":2,"currency":"EUR"}}]}]}}`)

		w, err := ParseWebhook(ShippingZoneCreated, body)
		require.NoError(t, err)
		require.NotNil(t, w.ShippingZone)
		assert.Empty(t, w.ShippingZone.CourierID)
		assert.Len(t, w.ShippingZone.ShippingMethods[0].Prices, 2)
	})

	t.Run("category", func(t *testing.T) {
		w, err := ParseWebhook(CategoryDeleted, []byte(`{"category":{"id":"c1","name":"Shoes","parent":null}}`))
		require.NoError(t, err)
		require.NotNil(t, w.Category)
		assert.Empty(t, w.Category.ParentID())
	})

	t.Run("product", func(t *testing.T) {
		w, err := ParseWebhook(ProductCreated, []byte(`{"product":{"id":"p1","name":"Shirt","variants":[{"id":"v1","name":"S"}]}}`))
		require.NoError(t, err)
		require.Len(t, w.Product.Variants, 1)
		assert.Equal(t, "p1", w.Product.Variants[0].Product.ID)
	})

	t.Run("invalid weights are dropped and reported", func(t *testing.T) {
		body := []byte(`{"product":{"id":"p1","name":"Shirt",
			"weight":{"unit":"STONE","value":1},
			"productType":{"id":"pt1","name":"Shirts","weight":{"unit":"KG","value":0.2}},
			"variants":[{"id":"v1","name":"S","weight":{"unit":"G","value":-5}}]}}`)

		w, err := ParseWebhook(ProductUpdated, body)
		require.NoError(t, err)
		assert.Nil(t, w.Product.Weight)
		require.NotNil(t, w.Product.ProductType.Weight)
		assert.Nil(t, w.Product.Variants[0].Weight)

		require.Len(t, w.Dropped, 2)
		for _, err := range w.Dropped {
			assert.ErrorIs(t, err, ErrInvalidWeight)
			assert.ErrorIs(t, err, shared.ErrDataIntegrity)
		}
		assert.ErrorIs(t, w.Dropped[0], catalog.ErrUnknownWeightUnit)
		assert.Contains(t, w.Dropped[0].Error(), "product p1 weight")
		assert.ErrorIs(t, w.Dropped[1], catalog.ErrNegativeWeight)
		assert.Contains(t, w.Dropped[1].Error(), "variant v1 weight")
	})

	t.Run("shipping method weight limits", func(t *testing.T) {
		body := []byte(`{"shippingZone":{"id":"z1","name":"CZ","shippingMethods":[{"id":"m1","name":"Std",
			"minimumOrderWeight":{"unit":"KG","value":-1},
			"maximumOrderWeight":{"unit":"KG","value":30}}]}}`)

		w, err := ParseWebhook(ShippingZoneUpdated, body)
		require.NoError(t, err)
		m := w.ShippingZone.ShippingMethods[0]
		assert.Nil(t, m.MinimumOrderWeight)
		require.NotNil(t, m.MaximumOrderWeight)
		require.Len(t, w.Dropped, 1)
		assert.Contains(t, w.Dropped[0].Error(), "shipping method m1 minimum order weight")
	})

	t.Run("valid payload drops nothing", func(t *testing.T) {
		w, err := ParseWebhook(ProductCreated, []byte(`{"product":{"id":"p1","name":"Shirt","weight":{"unit":"KG","value":1}}}`))
		require.NoError(t, err)
		assert.Empty(t, w.Dropped)
	})

	t.Run("missing object", func(t *testing.T) {
		_, err := ParseWebhook(ProductUpdated, []byte(`{"product":null}`))
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseWebhook(ProductUpdated, []byte(`{`))
		assert.ErrorIs(t, err, ErrMalformedBody)
	})
}
