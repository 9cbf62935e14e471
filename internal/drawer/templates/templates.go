// Package templates renders the drawer's HTML fragments. Every fragment
// carries the line's identifying facts as data attributes so a rendered
// view can be parsed back without re-fetching the cart.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/platform/money"
)

// Renderer renders drawer fragments with a merchant money format.
type Renderer struct {
	money *money.Formatter
}

// New creates a renderer. A nil formatter uses the default money format.
func New(formatter *money.Formatter) *Renderer {
	if formatter == nil {
		formatter = money.New(money.DefaultFormat)
	}
	return &Renderer{money: formatter}
}

// Line renders a single cart line fragment.
func (r *Renderer) Line(line cart.Line, lineIndex int) (string, error) {
	return render(r.LineItem(line, lineIndex))
}

// Footer renders the totals and checkout fragment.
func (r *Renderer) Footer(c *cart.Cart) (string, error) {
	return render(r.CartFooter(c))
}

// Empty renders the empty-cart fragment.
func (r *Renderer) Empty() (string, error) {
	return render(EmptyState())
}

func render(component templ.Component) (string, error) {
	var buf strings.Builder
	if err := component.Render(context.Background(), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LineItem renders one cart line. The data attributes identify the line
// durably by variant and transiently by key and index.
func (r *Renderer) LineItem(line cart.Line, lineIndex int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		attrs := fmt.Sprintf(`<li class="voo-cart-item" data-variant-id="%d" data-line-key="%s" data-line-index="%d" data-quantity="%d">`,
			line.VariantID, templ.EscapeString(line.Key), lineIndex, line.Quantity)
		if _, err := io.WriteString(w, attrs); err != nil {
			return err
		}
		if line.Image != "" {
			if _, err := fmt.Fprintf(w, `<img class="voo-cart-item__image" src="%s" alt="%s">`,
				templ.EscapeString(line.Image), templ.EscapeString(line.Title)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `<p class="voo-cart-item__title">%s</p>`, templ.EscapeString(line.Title)); err != nil {
			return err
		}
		if !line.OnlyDefaultVariant && line.VariantTitle != "" {
			if _, err := fmt.Fprintf(w, `<p class="voo-cart-item__variant">%s</p>`, templ.EscapeString(line.VariantTitle)); err != nil {
				return err
			}
		}
		for _, option := range line.OptionsWithValues {
			if _, err := fmt.Fprintf(w, `<p class="voo-cart-item__option">%s: %s</p>`,
				templ.EscapeString(option.Name), templ.EscapeString(option.Value)); err != nil {
				return err
			}
		}
		if err := r.writeLinePrice(w, line); err != nil {
			return err
		}
		for _, alloc := range line.LineLevelDiscountAllocs {
			if _, err := fmt.Fprintf(w, `<p class="voo-cart-item__discount">%s (-%s)</p>`,
				templ.EscapeString(alloc.DiscountApplication.Title), r.money.Format(alloc.Amount)); err != nil {
				return err
			}
		}
		if err := writeQuantityControls(w, line, lineIndex); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</li>`)
		return err
	})
}

func (r *Renderer) writeLinePrice(w io.Writer, line cart.Line) error {
	if line.OriginalLinePrice > line.FinalLinePrice {
		_, err := fmt.Fprintf(w,
			`<p class="voo-cart-item__price"><s>%s</s> <span class="voo-cart-item__price--final">%s</span></p>`,
			r.money.Format(line.OriginalLinePrice), r.money.Format(line.FinalLinePrice))
		return err
	}
	_, err := fmt.Fprintf(w, `<p class="voo-cart-item__price">%s</p>`, r.money.Format(line.FinalLinePrice))
	return err
}

func writeQuantityControls(w io.Writer, line cart.Line, lineIndex int) error {
	_, err := fmt.Fprintf(w,
		`<div class="voo-cart-item__quantity">`+
			`<button class="voo-qty-decrease" data-line-index="%d" aria-label="Decrease quantity">-</button>`+
			`<input class="voo-qty-input" type="number" min="0" value="%d" data-line-index="%d">`+
			`<button class="voo-qty-increase" data-line-index="%d" aria-label="Increase quantity">+</button>`+
			`<button class="voo-qty-remove" data-line-index="%d" aria-label="Remove item">Remove</button>`+
			`</div>`,
		lineIndex, line.Quantity, lineIndex, lineIndex, lineIndex)
	return err
}

// CartFooter renders totals, cart-level discounts, and the checkout button.
func (r *Renderer) CartFooter(c *cart.Cart) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if c == nil {
			return nil
		}
		if _, err := io.WriteString(w, `<footer class="voo-cart-footer">`); err != nil {
			return err
		}
		for _, discount := range c.CartLevelDiscounts {
			if _, err := fmt.Fprintf(w, `<p class="voo-cart-footer__discount">%s (-%s)</p>`,
				templ.EscapeString(discount.Title), r.money.Format(discount.TotalAllocatedAmount)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w,
			`<p class="voo-cart-footer__subtotal">Subtotal <span data-subtotal="%d">%s</span></p>`,
			c.TotalPrice, r.money.Format(c.TotalPrice)); err != nil {
			return err
		}
		_, err := io.WriteString(w,
			`<a class="voo-cart-footer__checkout" href="/checkout">Checkout</a></footer>`)
		return err
	})
}

// EmptyState renders the empty-cart fragment.
func EmptyState() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div class="voo-cart-empty"><p>Your cart is empty</p></div>`)
		return err
	})
}

// AnnouncementBar renders the optional drawer-top announcement.
func AnnouncementBar(text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if text == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, `<div class="voo-cart-announcement">%s</div>`, templ.EscapeString(text))
		return err
	})
}

// StickyLauncher renders the floating cart trigger with its item badge.
func StickyLauncher(itemCount int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<button class="voo-cart-launcher" aria-label="Open cart"><span class="voo-cart-launcher__badge" data-item-count="%d">%d</span></button>`,
			itemCount, itemCount)
		return err
	})
}

// NoteBlock renders the cart note textarea, optionally collapsed behind a
// trigger link.
func NoteBlock(text string, collapsible, collapsed bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="voo-cart-note">`); err != nil {
			return err
		}
		if collapsible {
			state := "expanded"
			if collapsed {
				state = "collapsed"
			}
			if _, err := fmt.Fprintf(w,
				`<button class="voo-cart-note__toggle" data-state="%s">Add a note</button>`, state); err != nil {
				return err
			}
		}
		if !collapsible || !collapsed {
			if _, err := fmt.Fprintf(w,
				`<textarea class="voo-cart-note__input" placeholder="Order note">%s</textarea>`,
				templ.EscapeString(text)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// RewardBar renders the tiered reward progress bar. Fill is a percentage
// already clamped by the widget.
func RewardBar(fill float64, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div class="voo-reward-bar"><div class="voo-reward-bar__fill" style="width: %.0f%%"></div><p class="voo-reward-bar__message">%s</p></div>`,
			fill, templ.EscapeString(message))
		return err
	})
}
