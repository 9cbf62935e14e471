package promo

import (
	"context"
	"log"
	"sync"

	"github.com/louisbranch/voocart/internal/drawer"
)

// FreeGiftConfig is the merchant configuration for the free-gift block.
type FreeGiftConfig struct {
	GiftVariantID int64
	// TargetTotal is the spend threshold in minor units.
	TargetTotal int64
}

// FreeGift is the spend-threshold gift widget. When the cart subtotal,
// excluding the gift line itself, reaches the target it adds the gift
// variant to the cart. It never adds the gift twice.
type FreeGift struct {
	mu       sync.Mutex
	client   CartFetcher
	adder    ProductAdder
	variants VariantSource
	holder   *drawer.SnapshotHolder
	gate     drawer.VersionGate
	rules    *RuleSet
	cfg      FreeGiftConfig

	broadcaster *drawer.Broadcaster
	sub         int

	inFlight  bool
	remaining int64
	visible   bool
	giftName  string
	giftImage string
}

// NewFreeGift creates the free-gift widget. The rule set is optional.
func NewFreeGift(client CartFetcher, adder ProductAdder, variants VariantSource, holder *drawer.SnapshotHolder, rules *RuleSet, cfg FreeGiftConfig) *FreeGift {
	return &FreeGift{
		client:   client,
		adder:    adder,
		variants: variants,
		holder:   holder,
		rules:    rules,
		cfg:      cfg,
	}
}

// Mount subscribes the widget to cart-changed notifications and loads the
// gift variant's display data.
func (g *FreeGift) Mount(ctx context.Context, b *drawer.Broadcaster) {
	g.mu.Lock()
	g.broadcaster = b
	g.mu.Unlock()
	g.sub = b.Subscribe(g.onCartChanged)

	variant, err := g.variants.Variant(ctx, g.cfg.GiftVariantID)
	if err != nil {
		log.Printf("load gift variant %d: %v", g.cfg.GiftVariantID, err)
		return
	}
	g.mu.Lock()
	g.giftName = variant.Name
	if variant.FeaturedImage != nil {
		g.giftImage = variant.FeaturedImage.Src
	}
	g.mu.Unlock()
}

// Unmount removes the subscription. Late refreshes become no-ops.
func (g *FreeGift) Unmount() {
	g.mu.Lock()
	b := g.broadcaster
	g.mu.Unlock()
	if b != nil {
		b.Unsubscribe(g.sub)
	}
}

func (g *FreeGift) onCartChanged(ctx context.Context, evt drawer.CartChanged) {
	if err := g.Update(ctx); err != nil {
		log.Printf("free gift update: %v", err)
	}
}

// Remaining returns the minor units still needed to earn the gift.
func (g *FreeGift) Remaining() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

// Visible reports whether the spend-more message is shown.
func (g *FreeGift) Visible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visible
}

// GiftName returns the gift variant's display name.
func (g *FreeGift) GiftName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.giftName
}

// Update re-fetches the cart and recomputes the gift state. The gift's own
// line does not count toward the threshold, so removing other items after
// earning the gift brings the message back instead of hiding it forever.
func (g *FreeGift) Update(ctx context.Context) error {
	snapshot, err := g.client.Fetch(ctx)
	if err != nil {
		log.Printf("free gift fetch: %v", err)
		return err
	}
	snap := g.holder.Observe(snapshot)
	if !g.gate.Admit(snap.Version) {
		return nil
	}

	var giftLineTotal int64
	if line, ok := snapshot.LineByVariant(g.cfg.GiftVariantID); ok {
		giftLineTotal = line.FinalLinePrice
	}
	remaining := g.cfg.TargetTotal - snapshot.ItemsSubtotalPrice + giftLineTotal

	g.mu.Lock()
	g.remaining = remaining
	g.visible = remaining > 0
	g.mu.Unlock()

	if remaining > 0 || snapshot.HasVariant(g.cfg.GiftVariantID) {
		return nil
	}
	return g.addGift(ctx, snapshot.ItemsSubtotalPrice, snapshot.ItemCount)
}

// addGift adds the gift variant at most once. The fresh fetch inside the
// in-flight window re-checks presence so overlapping updates cannot add a
// second gift.
func (g *FreeGift) addGift(ctx context.Context, subtotal int64, itemCount int) error {
	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return nil
	}
	g.inFlight = true
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inFlight = false
		g.mu.Unlock()
	}()

	allowed, err := g.rules.Eligible(subtotal, itemCount)
	if err != nil {
		log.Printf("free gift rule: %v", err)
		return err
	}
	if !allowed {
		return nil
	}

	current, err := g.client.Fetch(ctx)
	if err != nil {
		log.Printf("free gift presence check: %v", err)
		return err
	}
	if current.HasVariant(g.cfg.GiftVariantID) {
		return nil
	}
	return g.adder.AddProduct(ctx, g.cfg.GiftVariantID, 1)
}
