package promo

import (
	"context"
	"sync"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/catalog"
)

// stubCart serves a mutable cart, standing in for the remote authority.
type stubCart struct {
	mu       sync.Mutex
	cart     *cart.Cart
	fetchErr error
	fetches  int
}

func (s *stubCart) Fetch(ctx context.Context) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	clone := *s.cart
	clone.Items = append([]cart.Line(nil), s.cart.Items...)
	return &clone, nil
}

func (s *stubCart) set(c *cart.Cart) {
	s.mu.Lock()
	s.cart = c
	s.mu.Unlock()
}

// stubAdder records adds and, like the real controller, makes the mutation
// visible in subsequent fetches.
type stubAdder struct {
	mu     sync.Mutex
	target *stubCart
	addErr error
	added  []int64
}

func (s *stubAdder) AddProduct(ctx context.Context, variantID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, variantID)
	if s.target != nil {
		s.target.mu.Lock()
		s.target.cart.Items = append(s.target.cart.Items, cart.Line{
			VariantID: variantID,
			Quantity:  quantity,
		})
		s.target.cart.ItemCount += quantity
		s.target.mu.Unlock()
	}
	return nil
}

func (s *stubAdder) addedVariants() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.added))
	copy(out, s.added)
	return out
}

type stubVariants struct {
	variant catalog.Variant
	err     error
}

func (s *stubVariants) Variant(ctx context.Context, variantID int64) (catalog.Variant, error) {
	if s.err != nil {
		return catalog.Variant{}, s.err
	}
	return s.variant, nil
}

type stubRecommendations struct {
	products []catalog.Product
	err      error
	seeds    []int64
}

func (s *stubRecommendations) Recommendations(ctx context.Context, productID int64, limit int) ([]catalog.Product, error) {
	s.seeds = append(s.seeds, productID)
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}
