package promo

import (
	"context"
	"testing"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/catalog"
	"github.com/louisbranch/voocart/internal/drawer"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

func bogoPairs() []BogoPair {
	return []BogoPair{
		{
			TriggerProductID: 100,
			GiftProduct: catalog.Product{
				ID:    200,
				Title: "Tote Bag",
				Variants: []catalog.Variant{
					{ID: 2001, Title: "Natural"},
					{ID: 2002, Title: "Black"},
				},
			},
		},
		{
			TriggerProductID:  300,
			TriggerVariantIDs: []int64{3001},
			GiftProduct: catalog.Product{
				ID:    400,
				Title: "Socks",
				Variants: []catalog.Variant{
					{ID: 4001, Title: "S"},
					{ID: 4002, Title: "L"},
				},
			},
			GiftVariantIDs: []int64{4002},
		},
	}
}

func TestBogoOffersEligiblePairs(t *testing.T) {
	stub := &stubCart{cart: &cart.Cart{Items: []cart.Line{
		{ProductID: 100, VariantID: 1001, Quantity: 1},
	}}}
	widget := NewBogo(stub, &stubAdder{target: stub}, &drawer.SnapshotHolder{}, bogoPairs())

	if err := widget.Update(context.Background()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !widget.Visible() {
		t.Fatal("expected widget visible")
	}
	offers := widget.Offers()
	if len(offers) != 1 || offers[0].Product.ID != 200 {
		t.Fatalf("expected one tote bag offer, got %+v", offers)
	}
	if len(offers[0].Variants) != 2 {
		t.Fatal("unrestricted pair offers every gift variant")
	}
}

func TestBogoVariantRestrictedPair(t *testing.T) {
	// Variant 3002 is not a qualifying trigger for the socks pair.
	stub := &stubCart{cart: &cart.Cart{Items: []cart.Line{
		{ProductID: 300, VariantID: 3002, Quantity: 1},
	}}}
	widget := NewBogo(stub, &stubAdder{target: stub}, &drawer.SnapshotHolder{}, bogoPairs())

	if err := widget.Update(context.Background()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if widget.Visible() {
		t.Fatal("non-qualifying variant must not trigger the pair")
	}

	// Variant 3001 qualifies; the offered gift narrows to variant 4002.
	stub.set(&cart.Cart{Items: []cart.Line{
		{ProductID: 300, VariantID: 3001, Quantity: 1},
	}})
	if err := widget.Update(context.Background()); err != nil {
		t.Fatalf("update: %v", err)
	}
	offers := widget.Offers()
	if len(offers) != 1 {
		t.Fatalf("expected one offer, got %d", len(offers))
	}
	if len(offers[0].Variants) != 1 || offers[0].Variants[0].ID != 4002 {
		t.Fatalf("expected gift narrowed to variant 4002, got %+v", offers[0].Variants)
	}
}

func TestBogoHidesWhenAnyGiftPresent(t *testing.T) {
	// Both triggers present, but the socks gift is already in the cart: the
	// whole widget hides, including the tote bag offer.
	stub := &stubCart{cart: &cart.Cart{Items: []cart.Line{
		{ProductID: 100, VariantID: 1001, Quantity: 1},
		{ProductID: 300, VariantID: 3001, Quantity: 1},
		{ProductID: 400, VariantID: 4002, Quantity: 1},
	}}}
	widget := NewBogo(stub, &stubAdder{target: stub}, &drawer.SnapshotHolder{}, bogoPairs())

	if err := widget.Update(context.Background()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if widget.Visible() {
		t.Fatal("a held gift hides the whole widget")
	}
	if len(widget.Offers()) != 0 {
		t.Fatal("expected no offers")
	}
}

func TestBogoMultiplePairsOfferedTogether(t *testing.T) {
	stub := &stubCart{cart: &cart.Cart{Items: []cart.Line{
		{ProductID: 100, VariantID: 1001, Quantity: 1},
		{ProductID: 300, VariantID: 3001, Quantity: 1},
	}}}
	widget := NewBogo(stub, &stubAdder{target: stub}, &drawer.SnapshotHolder{}, bogoPairs())

	if err := widget.Update(context.Background()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := len(widget.Offers()); got != 2 {
		t.Fatalf("expected both pairs offered, got %d", got)
	}
}

func TestBogoAddGiftInFlightGuard(t *testing.T) {
	stub := &stubCart{cart: &cart.Cart{}}
	adder := &stubAdder{target: stub}
	widget := NewBogo(stub, adder, &drawer.SnapshotHolder{}, bogoPairs())

	widget.mu.Lock()
	widget.inFlight = true
	widget.mu.Unlock()

	err := widget.AddGift(context.Background(), 2001)
	if apperrors.CodeOf(err) != apperrors.CodeCartMutationInFlight {
		t.Fatalf("expected in-flight guard, got %v", err)
	}
	if len(adder.addedVariants()) != 0 {
		t.Fatal("guarded add must not reach the cart")
	}
}
