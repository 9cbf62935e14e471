package drawer

import (
	"context"

	"github.com/louisbranch/voocart/internal/cart"
)

// Renderer produces display markup from cart data. Implementations must
// be pure functions of their input so that re-renders are deterministic;
// the engine never inspects the markup it is handed.
type Renderer interface {
	// Line renders one cart line at its 1-based index.
	Line(line cart.Line, lineIndex int) (string, error)
	// Footer renders the subtotal and cart-level discount list.
	Footer(c *cart.Cart) (string, error)
	// Empty renders the empty-cart state.
	Empty() (string, error)
}

// CartClient is the engine's view of the remote cart gateway.
type CartClient interface {
	Fetch(ctx context.Context) (*cart.Cart, error)
	AddLine(ctx context.Context, variantID int64, quantity int) error
	ChangeLineQuantity(ctx context.Context, lineIndex, quantity int) (*cart.Cart, error)
	UpdateNote(ctx context.Context, note string) error
}
