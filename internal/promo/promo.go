// Package promo implements the drawer's promotion widgets. Each widget
// derives its display state from the cart alone: on every cart-changed
// notification it re-fetches and recomputes from scratch, applying the
// result only when the snapshot stamp is newer than the last one it used.
package promo

import (
	"context"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/catalog"
)

// CartFetcher reads the authoritative cart.
type CartFetcher interface {
	Fetch(ctx context.Context) (*cart.Cart, error)
}

// ProductAdder adds a variant to the cart and refreshes the drawer. The
// controller implements it; widgets that mutate the cart go through it so
// the add triggers the same refresh sequence as a shopper-initiated add.
type ProductAdder interface {
	AddProduct(ctx context.Context, variantID int64, quantity int) error
}

// VariantSource looks up variant details for gift blocks.
type VariantSource interface {
	Variant(ctx context.Context, variantID int64) (catalog.Variant, error)
}

// RecommendationSource looks up recommended products for a seed product.
type RecommendationSource interface {
	Recommendations(ctx context.Context, productID int64, limit int) ([]catalog.Product, error)
}
