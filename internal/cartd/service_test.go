package cartd_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/louisbranch/voocart/internal/cartd"
	"github.com/louisbranch/voocart/internal/cartd/storage/sqlite"
	"github.com/louisbranch/voocart/internal/catalog"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

func testProducts() []catalog.Product {
	return []catalog.Product{
		{
			ID: 100, Handle: "linen-shirt", Title: "Linen Shirt", Price: 2500,
			Variants: []catalog.Variant{
				{ID: 1001, Title: "S", Price: 2500, Available: true},
				{ID: 1002, Title: "M", Price: 2500, Available: true},
			},
		},
		{
			ID: 200, Handle: "tote-bag", Title: "Tote Bag", Price: 1500,
			Variants: []catalog.Variant{
				{ID: 2001, Title: "Natural", Price: 1500, Available: true},
			},
		},
	}
}

func newService(t *testing.T) *cartd.Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "cart.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.SeedProducts(context.Background(), testProducts()); err != nil {
		t.Fatalf("seed products: %v", err)
	}
	return cartd.NewService(store, store)
}

func TestGetCreatesEmptyCart(t *testing.T) {
	svc := newService(t)
	token := cartd.NewToken()

	snapshot, err := svc.Get(context.Background(), token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !snapshot.IsEmpty() || snapshot.Token != token {
		t.Fatalf("expected empty cart for token, got %+v", snapshot)
	}
}

func TestAddMergesSameVariant(t *testing.T) {
	svc := newService(t)
	token := cartd.NewToken()
	ctx := context.Background()

	if _, err := svc.Add(ctx, token, 1001, 1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	snapshot, err := svc.Add(ctx, token, 1001, 2)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if len(snapshot.Items) != 1 {
		t.Fatalf("same variant must merge into one line, got %d lines", len(snapshot.Items))
	}
	if snapshot.Items[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", snapshot.Items[0].Quantity)
	}
	if snapshot.ItemCount != 3 || snapshot.ItemsSubtotalPrice != 7500 {
		t.Fatalf("unexpected totals: %+v", snapshot)
	}
}

func TestAddUnknownVariant(t *testing.T) {
	svc := newService(t)

	_, err := svc.Add(context.Background(), cartd.NewToken(), 999, 1)
	if apperrors.CodeOf(err) != apperrors.CodeCartVariantNotFound {
		t.Fatalf("expected CART_VARIANT_NOT_FOUND, got %v", err)
	}
}

func TestChangeIsIdempotent(t *testing.T) {
	svc := newService(t)
	token := cartd.NewToken()
	ctx := context.Background()

	if _, err := svc.Add(ctx, token, 1001, 3); err != nil {
		t.Fatalf("add: %v", err)
	}

	first, err := svc.Change(ctx, token, 1, 2)
	if err != nil {
		t.Fatalf("first change: %v", err)
	}
	second, err := svc.Change(ctx, token, 1, 2)
	if err != nil {
		t.Fatalf("second change: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replaying a change must yield the same cart:\n%+v\n%+v", first, second)
	}
	if second.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", second.Items[0].Quantity)
	}
}

func TestChangeZeroDeletesAndRenumbers(t *testing.T) {
	svc := newService(t)
	token := cartd.NewToken()
	ctx := context.Background()

	if _, err := svc.Add(ctx, token, 1001, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, token, 1002, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, token, 2001, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	snapshot, err := svc.Change(ctx, token, 2, 0)
	if err != nil {
		t.Fatalf("change: %v", err)
	}
	if len(snapshot.Items) != 2 {
		t.Fatalf("expected 2 lines after deletion, got %d", len(snapshot.Items))
	}
	if snapshot.Items[0].VariantID != 1001 || snapshot.Items[1].VariantID != 2001 {
		t.Fatalf("expected remaining lines renumbered in order, got %+v", snapshot.Items)
	}
	// Index 3 no longer exists; a stale index must be rejected, not
	// silently applied to whatever occupies it now.
	if _, err := svc.Change(ctx, token, 3, 1); apperrors.CodeOf(err) != apperrors.CodeCartLineNotFound {
		t.Fatalf("expected CART_LINE_NOT_FOUND for stale index, got %v", err)
	}
}

func TestChangeValidation(t *testing.T) {
	svc := newService(t)
	token := cartd.NewToken()
	ctx := context.Background()

	if _, err := svc.Change(ctx, token, 0, 1); apperrors.CodeOf(err) != apperrors.CodeCartInvalidLineIndex {
		t.Fatalf("expected invalid line index, got %v", err)
	}
	if _, err := svc.Change(ctx, token, 1, -1); apperrors.CodeOf(err) != apperrors.CodeCartInvalidQuantity {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := svc.Change(ctx, token, 1, 1); apperrors.CodeOf(err) != apperrors.CodeCartSessionNotFound {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestUpdateNotePersists(t *testing.T) {
	svc := newService(t)
	token := cartd.NewToken()
	ctx := context.Background()

	if _, err := svc.Get(ctx, token); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := svc.UpdateNote(ctx, token, "ring twice"); err != nil {
		t.Fatalf("update note: %v", err)
	}

	snapshot, err := svc.Get(ctx, token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if snapshot.Note != "ring twice" {
		t.Fatalf("expected persisted note, got %q", snapshot.Note)
	}
}

func TestUpdateNoteTooLong(t *testing.T) {
	svc := newService(t)
	token := cartd.NewToken()
	ctx := context.Background()
	if _, err := svc.Get(ctx, token); err != nil {
		t.Fatalf("get: %v", err)
	}

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := svc.UpdateNote(ctx, token, string(long)); apperrors.CodeOf(err) != apperrors.CodeCartNoteTooLong {
		t.Fatalf("expected note-too-long error, got %v", err)
	}
}

func TestCartsAreIsolatedByToken(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	tokenA := cartd.NewToken()
	tokenB := cartd.NewToken()

	if _, err := svc.Add(ctx, tokenA, 1001, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	snapshot, err := svc.Get(ctx, tokenB)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !snapshot.IsEmpty() {
		t.Fatal("another session's cart must be empty")
	}
}
