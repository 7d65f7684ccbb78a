// Package catalog fetches the vendor product catalog from its public
// Shopify storefront and turns each product into a cleaned record with
// specs parsed from the title.
//
// Requests are rate limited (one per second by default) and collections
// are paged until a short or empty page. A collection that fails part way
// keeps the products fetched before the failure.
package catalog
