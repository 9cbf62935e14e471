package drawer

import (
	"context"
	"log"
	"sync"
)

// Controller owns drawer visibility, the footer, the sticky item-count
// badge, and the fan-out of cart-changed notifications to the mounted
// promotion widgets.
type Controller struct {
	mu          sync.Mutex
	client      CartClient
	renderer    Renderer
	lines       *LineItemList
	broadcaster *Broadcaster
	holder      *SnapshotHolder

	open         bool
	empty        bool
	footerMarkup string
	emptyMarkup  string
	badgeCount   int
}

// NewController assembles the drawer controller and wires the line list's
// notifier to the broadcast sequence.
func NewController(client CartClient, renderer Renderer, lines *LineItemList, holder *SnapshotHolder, broadcaster *Broadcaster) *Controller {
	if broadcaster == nil {
		broadcaster = &Broadcaster{}
	}
	c := &Controller{
		client:      client,
		renderer:    renderer,
		lines:       lines,
		broadcaster: broadcaster,
		holder:      holder,
		empty:       true,
	}
	if lines != nil {
		lines.SetNotifier(c.NotifyCartChanged)
	}
	return c
}

// Broadcaster exposes the widget subscription registry.
func (c *Controller) Broadcaster() *Broadcaster {
	return c.broadcaster
}

// Open marks the drawer visible and refreshes its dynamic content.
func (c *Controller) Open(ctx context.Context) {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	if err := c.RefreshDynamicContent(ctx, ReasonRefresh); err != nil {
		log.Printf("open drawer refresh: %v", err)
	}
}

// Close marks the drawer hidden. In-flight widget refreshes may still
// complete; their version gates make late application harmless.
func (c *Controller) Close() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

// IsOpen reports drawer visibility.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// IsEmpty reports the empty/non-empty visual state.
func (c *Controller) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.empty
}

// FooterMarkup returns the rendered footer.
func (c *Controller) FooterMarkup() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.footerMarkup
}

// BadgeCount returns the sticky launcher item count.
func (c *Controller) BadgeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badgeCount
}

// AddProduct adds a variant to the cart, refreshes the dynamic content,
// and opens the drawer. This is the entry point for intercepted
// product-form submits and recommendation/gift add buttons.
func (c *Controller) AddProduct(ctx context.Context, variantID int64, quantity int) error {
	if err := c.client.AddLine(ctx, variantID, quantity); err != nil {
		log.Printf("add product %d: %v", variantID, err)
		return err
	}
	if err := c.RefreshDynamicContent(ctx, ReasonAdd); err != nil {
		return err
	}
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	return nil
}

// RefreshDynamicContent re-fetches the cart and runs the full refresh
// sequence: empty state, line list, footer, badge, then widget fan-out.
// A fetch failure leaves every view unchanged.
func (c *Controller) RefreshDynamicContent(ctx context.Context, reason Reason) error {
	snapshot, err := c.client.Fetch(ctx)
	if err != nil {
		log.Printf("refresh drawer content: %v", err)
		return err
	}

	if err := c.lines.RenderAll(snapshot); err != nil {
		return err
	}

	snap := c.holder.Observe(snapshot)
	c.NotifyCartChanged(ctx, CartChanged{Snapshot: snap, Reason: reason})
	return nil
}

// NotifyCartChanged runs the post-mutation broadcast sequence: refresh
// the empty/non-empty state, the footer, and the badge from the event's
// snapshot, then notify each mounted promotion widget. The line list is
// not refreshed here; the mutation's own caller has already reconciled it.
func (c *Controller) NotifyCartChanged(ctx context.Context, evt CartChanged) {
	c.refreshChrome(evt)
	c.broadcaster.Publish(ctx, evt)
}

func (c *Controller) refreshChrome(evt CartChanged) {
	snapshot := evt.Snapshot.Cart

	footer, err := c.renderer.Footer(snapshot)
	if err != nil {
		log.Printf("render footer: %v", err)
		footer = ""
	}
	emptyMarkup, err := c.renderer.Empty()
	if err != nil {
		log.Printf("render empty state: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.empty = snapshot.IsEmpty()
	c.emptyMarkup = emptyMarkup
	if footer != "" {
		c.footerMarkup = footer
	}
	// The badge count rides the event; no extra fetch.
	c.badgeCount = evt.ItemCount()
}
