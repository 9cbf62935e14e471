// Package cartd implements a reference cart authority with the same wire
// contract the drawer engine consumes: cart reads, line adds, 1-based
// line quantity changes with server-side merging, and note updates. It
// backs development setups and integration tests.
package cartd

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/catalog"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// maxNoteLength bounds the cart note.
const maxNoteLength = 1000

// LineRecord is one persisted cart line.
type LineRecord struct {
	VariantID    int64
	ProductID    int64
	Handle       string
	Title        string
	VariantTitle string
	Image        string
	Quantity     int
	UnitPrice    int64
}

// CartRecord is one persisted cart.
type CartRecord struct {
	Token string
	Note  string
	Lines []LineRecord
}

// Store persists carts keyed by session token.
type Store interface {
	GetCart(ctx context.Context, token string) (CartRecord, bool, error)
	SaveCart(ctx context.Context, record CartRecord) error
}

// Catalog resolves product data for pricing added lines and serving the
// product endpoints.
type Catalog interface {
	VariantProduct(ctx context.Context, variantID int64) (catalog.Product, catalog.Variant, bool, error)
	ProductByHandle(ctx context.Context, handle string) (catalog.Product, bool, error)
	Recommendations(ctx context.Context, productID int64, limit int) ([]catalog.Product, error)
}

// Service owns the cart mutation semantics.
type Service struct {
	store   Store
	catalog Catalog
}

// NewService creates the cart service.
func NewService(store Store, cat Catalog) *Service {
	return &Service{store: store, catalog: cat}
}

// NewToken mints a cart session token.
func NewToken() string {
	return uuid.NewString()
}

// Get returns the cart for a token, creating an empty one on first use.
func (s *Service) Get(ctx context.Context, token string) (*cart.Cart, error) {
	record, ok, err := s.store.GetCart(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		record = CartRecord{Token: token}
		if err := s.store.SaveCart(ctx, record); err != nil {
			return nil, err
		}
	}
	return render(record), nil
}

// Add puts a variant in the cart. An existing line with the same variant
// is merged: its quantity grows and no new line appears.
func (s *Service) Add(ctx context.Context, token string, variantID int64, quantity int) (*cart.Cart, error) {
	if quantity < 1 {
		quantity = 1
	}

	product, variant, ok, err := s.catalog.VariantProduct(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeCartVariantNotFound,
			fmt.Sprintf("variant %d does not exist", variantID))
	}

	record, _, err := s.store.GetCart(ctx, token)
	if err != nil {
		return nil, err
	}
	record.Token = token

	merged := false
	for i := range record.Lines {
		if record.Lines[i].VariantID == variantID {
			record.Lines[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		record.Lines = append(record.Lines, LineRecord{
			VariantID:    variantID,
			ProductID:    product.ID,
			Handle:       product.Handle,
			Title:        product.Title,
			VariantTitle: variant.Title,
			Image:        product.FeaturedImage,
			Quantity:     quantity,
			UnitPrice:    variant.Price,
		})
	}

	if err := s.store.SaveCart(ctx, record); err != nil {
		return nil, err
	}
	return render(record), nil
}

// Change sets the quantity of the line at the given 1-based index.
// Quantity zero deletes the line and renumbers the rest. Setting a line
// to its current quantity is a no-op, so replaying a change yields the
// same cart.
func (s *Service) Change(ctx context.Context, token string, lineIndex, quantity int) (*cart.Cart, error) {
	if lineIndex < 1 {
		return nil, apperrors.New(apperrors.CodeCartInvalidLineIndex,
			fmt.Sprintf("line index %d is not 1-based", lineIndex))
	}
	if quantity < 0 {
		return nil, apperrors.New(apperrors.CodeCartInvalidQuantity,
			fmt.Sprintf("quantity %d is negative", quantity))
	}

	record, ok, err := s.store.GetCart(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeCartSessionNotFound, "no cart for session")
	}
	if lineIndex > len(record.Lines) {
		return nil, apperrors.New(apperrors.CodeCartLineNotFound,
			fmt.Sprintf("no line at index %d", lineIndex))
	}

	if quantity == 0 {
		record.Lines = append(record.Lines[:lineIndex-1], record.Lines[lineIndex:]...)
	} else {
		record.Lines[lineIndex-1].Quantity = quantity
	}

	if err := s.store.SaveCart(ctx, record); err != nil {
		return nil, err
	}
	return render(record), nil
}

// UpdateNote replaces the cart note.
func (s *Service) UpdateNote(ctx context.Context, token, note string) (*cart.Cart, error) {
	if len(note) > maxNoteLength {
		return nil, apperrors.New(apperrors.CodeCartNoteTooLong,
			fmt.Sprintf("note exceeds %d bytes", maxNoteLength))
	}

	record, ok, err := s.store.GetCart(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeCartSessionNotFound, "no cart for session")
	}

	record.Note = note
	if err := s.store.SaveCart(ctx, record); err != nil {
		return nil, err
	}
	return render(record), nil
}

// render projects a stored cart onto the wire shape, recomputing counts,
// totals, and 1-based indexes.
func render(record CartRecord) *cart.Cart {
	out := &cart.Cart{
		Token: record.Token,
		Note:  record.Note,
		Items: make([]cart.Line, 0, len(record.Lines)),
	}
	for i, line := range record.Lines {
		lineTotal := line.UnitPrice * int64(line.Quantity)
		out.ItemCount += line.Quantity
		out.ItemsSubtotalPrice += lineTotal
		out.TotalPrice += lineTotal
		out.Items = append(out.Items, cart.Line{
			Key:               fmt.Sprintf("%d:%d", line.VariantID, i+1),
			VariantID:         line.VariantID,
			ProductID:         line.ProductID,
			Handle:            line.Handle,
			Title:             line.Title,
			VariantTitle:      line.VariantTitle,
			Quantity:          line.Quantity,
			Image:             line.Image,
			UnitPrice:         line.UnitPrice,
			OriginalLinePrice: lineTotal,
			FinalLinePrice:    lineTotal,
		})
	}
	return out
}
