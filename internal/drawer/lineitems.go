package drawer

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/louisbranch/voocart/internal/cart"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// Line view handler targets. Each rendered line binds one handler per
// target; a rebuild releases and rebinds all of them.
const (
	bindRemove        = "remove"
	bindDecrease      = "decrease"
	bindIncrease      = "increase"
	bindQuantityInput = "quantity-input"
)

// DisplayedLineView is the client-local projection of one cart line plus
// its bound handlers. Views are owned exclusively by the LineItemList and
// are destroyed and rebuilt on a full re-render, or patched in place for
// a single-line update.
type DisplayedLineView struct {
	VariantID int64
	LineKey   string
	LineIndex int
	Quantity  int
	Markup    string

	bindings []BindingToken
}

// Bindings returns the view's live handler tokens.
func (v *DisplayedLineView) Bindings() []BindingToken {
	return v.bindings
}

// LineItemList renders the mapping from cart line index to product line
// and owns the quantity-change reconciliation protocol.
type LineItemList struct {
	mu       sync.Mutex
	client   CartClient
	renderer Renderer
	registry *BindingRegistry
	holder   *SnapshotHolder
	notify   func(ctx context.Context, evt CartChanged)
	views    []*DisplayedLineView
}

// NewLineItemList assembles a line item list around the shared snapshot
// holder. The notifier is invoked after every completed mutation,
// successful render or not.
func NewLineItemList(client CartClient, renderer Renderer, holder *SnapshotHolder, registry *BindingRegistry) *LineItemList {
	if registry == nil {
		registry = &BindingRegistry{}
	}
	return &LineItemList{
		client:   client,
		renderer: renderer,
		registry: registry,
		holder:   holder,
		notify:   func(context.Context, CartChanged) {},
	}
}

// SetNotifier installs the cart-changed notifier, normally the
// controller's broadcast entry point.
func (l *LineItemList) SetNotifier(fn func(ctx context.Context, evt CartChanged)) {
	if fn == nil {
		fn = func(context.Context, CartChanged) {}
	}
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

// Views returns the current line views in display order.
func (l *LineItemList) Views() []*DisplayedLineView {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*DisplayedLineView, len(l.views))
	copy(out, l.views)
	return out
}

// Registry exposes the binding registry shared with the drawer surface.
func (l *LineItemList) Registry() *BindingRegistry {
	return l.registry
}

// Refresh re-fetches the cart and rebuilds every line view. A fetch
// failure leaves the current views untouched.
func (l *LineItemList) Refresh(ctx context.Context) error {
	snapshot, err := l.client.Fetch(ctx)
	if err != nil {
		log.Printf("line list refresh: %v", err)
		return err
	}
	return l.RenderAll(snapshot)
}

// RenderAll destroys and rebuilds every view from the given cart,
// releasing every previously bound handler first so nothing stale
// survives the rebuild.
func (l *LineItemList) RenderAll(c *cart.Cart) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.releaseAllLocked()
	if c == nil || len(c.Items) == 0 {
		l.views = nil
		return nil
	}

	views := make([]*DisplayedLineView, 0, len(c.Items))
	for i, line := range c.Items {
		view, err := l.buildViewLocked(line, i+1)
		if err != nil {
			// Roll back: a half-rebuilt list must not keep partial bindings.
			for _, v := range views {
				l.releaseViewLocked(v)
			}
			l.views = nil
			return err
		}
		views = append(views, view)
	}
	l.views = views
	return nil
}

// ChangeQuantity runs the quantity-change reconciliation state machine
// for the line at the given pre-mutation index. Quantity 0 removes the
// line; removal and quantity change share this one path.
func (l *LineItemList) ChangeQuantity(ctx context.Context, lineIndex, quantity int) error {
	// Step 1: capture the acted-on variant from the pre-mutation view;
	// after the mutation the line may have moved or vanished.
	l.mu.Lock()
	view := l.viewAtLocked(lineIndex)
	l.mu.Unlock()
	if view == nil {
		return apperrors.New(apperrors.CodeCartLineNotFound, fmt.Sprintf("no line view at index %d", lineIndex))
	}
	variantID := view.VariantID

	// Step 2: the one mutation that returns authoritative state directly.
	updated, err := l.client.ChangeLineQuantity(ctx, lineIndex, quantity)
	if err != nil {
		// A failed write leaves the UI exactly as it was; dependents stay
		// on last-known-good state, so no notification.
		log.Printf("change line %d quantity to %d: %v", lineIndex, quantity, err)
		return err
	}

	// Steps 3-4: quantity arithmetic and index arithmetic do not compose
	// across a merge, so a merge (or a removal) discards the single-line
	// optimization.
	renderErr := func() error {
		if quantity == 0 || updated.HasMergedLines() {
			return l.RenderAll(updated)
		}
		if err := l.patchLine(updated, variantID, lineIndex); err != nil {
			// Full re-render is the universal recovery path.
			log.Printf("patch line %d: %v; falling back to full re-render", lineIndex, err)
			return l.RenderAll(updated)
		}
		return nil
	}()

	// Step 5: notify unconditionally, carrying the item count so the
	// sticky badge needs no re-fetch.
	snap := l.holder.Observe(updated)
	l.notifier()(ctx, CartChanged{
		Snapshot:  snap,
		Reason:    ReasonQuantityChange,
		Quantity:  quantity,
		LineIndex: lineIndex,
	})
	return renderErr
}

// Remove removes the line at the given index. It is the same network
// primitive as a quantity change to zero.
func (l *LineItemList) Remove(ctx context.Context, lineIndex int) error {
	return l.ChangeQuantity(ctx, lineIndex, 0)
}

func (l *LineItemList) notifier() func(ctx context.Context, evt CartChanged) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notify
}

// patchLine re-renders exactly one view in place. The view is located by
// the variant captured before the mutation, because the line index may no
// longer be trustworthy. Any previous handlers on the view are released
// before the new ones are bound.
func (l *LineItemList) patchLine(updated *cart.Cart, variantID int64, lineIndex int) error {
	line, ok := updated.LineByVariant(variantID)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeDataInconsistency,
			"acted-on variant missing from fresh snapshot",
			map[string]string{"variant_id": fmt.Sprintf("%d", variantID)})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	view := l.viewAtLocked(lineIndex)
	if view == nil || view.VariantID != variantID {
		return apperrors.New(apperrors.CodeDataInconsistency, "line view moved during mutation")
	}

	markup, err := l.renderer.Line(line, lineIndex)
	if err != nil {
		return err
	}

	l.releaseViewLocked(view)
	view.Quantity = line.Quantity
	view.LineKey = line.Key
	view.Markup = markup
	l.bindViewLocked(view)
	return nil
}

func (l *LineItemList) viewAtLocked(lineIndex int) *DisplayedLineView {
	for _, view := range l.views {
		if view.LineIndex == lineIndex {
			return view
		}
	}
	return nil
}

func (l *LineItemList) buildViewLocked(line cart.Line, lineIndex int) (*DisplayedLineView, error) {
	markup, err := l.renderer.Line(line, lineIndex)
	if err != nil {
		return nil, err
	}
	view := &DisplayedLineView{
		VariantID: line.VariantID,
		LineKey:   line.Key,
		LineIndex: lineIndex,
		Quantity:  line.Quantity,
		Markup:    markup,
	}
	l.bindViewLocked(view)
	return view, nil
}

func (l *LineItemList) bindViewLocked(view *DisplayedLineView) {
	view.bindings = []BindingToken{
		l.registry.Bind(bindRemove),
		l.registry.Bind(bindDecrease),
		l.registry.Bind(bindIncrease),
		l.registry.Bind(bindQuantityInput),
	}
}

func (l *LineItemList) releaseViewLocked(view *DisplayedLineView) {
	for _, token := range view.bindings {
		l.registry.Release(token)
	}
	view.bindings = nil
}

func (l *LineItemList) releaseAllLocked() {
	for _, view := range l.views {
		l.releaseViewLocked(view)
	}
}
