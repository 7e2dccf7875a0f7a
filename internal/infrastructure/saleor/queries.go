package saleor

const weightFields = `unit value`

const categoryFields = `
fragment CategoryFields on Category {
  id
  name
  slug
  categoryText: metafield(key: "heureka_categorytext")
  parent {
    id
    name
    slug
    categoryText: metafield(key: "heureka_categorytext")
  }
}
`

const variantFields = `
fragment VariantFields on ProductVariant {
  id
  sku
  name
  weight { ` + weightFields + ` }
  media {
    url(format: WEBP, size: 1024)
    alt
  }
  pricing {
    price {
      gross { amount currency }
    }
  }
}
`

const productFields = `
fragment ProductFields on Product {
  id
  name
  slug
  description
  weight { ` + weightFields + ` }
  productType {
    id
    name
    weight { ` + weightFields + ` }
  }
  category { ...CategoryFields }
  variants { ...VariantFields }
}
` + categoryFields + variantFields

const shippingZoneFields = `
fragment ShippingZoneFields on ShippingZone {
  id
  name
  courierId: metafield(key: "heureka_courierid")
  shippingMethods {
    id
    name
    minimumOrderWeight { ` + weightFields + ` }
    maximumOrderWeight { ` + weightFields + ` }
    channelListings {
      channel { slug }
      price { amount currency }
    }
  }
}
`

const productsQuery = `
query Products($first: Int!, $after: String, $channel: String!) {
  products(first: $first, after: $after, channel: $channel) {
    pageInfo { hasNextPage endCursor }
    edges { node { ...ProductFields } }
  }
}
` + productFields

const shippingZonesQuery = `
query ShippingZones($first: Int!, $after: String, $channel: String!) {
  shippingZones(first: $first, after: $after, channel: $channel) {
    pageInfo { hasNextPage endCursor }
    edges { node { ...ShippingZoneFields } }
  }
}
` + shippingZoneFields

const categoryQuery = `
query Category($id: ID!) {
  category(id: $id) { ...CategoryFields }
}
` + categoryFields

const categoryChildrenQuery = `
query CategoryChildren($id: ID!, $first: Int!) {
  category(id: $id) {
    children(first: $first) {
      edges { node { ...CategoryFields } }
    }
  }
}
` + categoryFields
