package promo

import (
	"context"
	"log"
	"sync"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/catalog"
	"github.com/louisbranch/voocart/internal/drawer"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// BogoPair is one buy-one-get-one configuration: buying the trigger
// product earns the gift product. Empty variant lists mean any variant of
// the product qualifies.
type BogoPair struct {
	TriggerProductID  int64
	TriggerVariantIDs []int64
	GiftProduct       catalog.Product
	GiftVariantIDs    []int64
}

// BogoOffer is one claimable gift, with variants narrowed to the pair's
// qualifying set.
type BogoOffer struct {
	Product  catalog.Product
	Variants []catalog.Variant
}

// Bogo is the buy-one-get-one widget. A pair is eligible when at least one
// qualifying trigger variant is in the cart and no qualifying gift variant
// is; all eligible pairs' gifts are offered at once. If any pair's gift is
// already present, the whole widget hides: a shopper holding one gift
// cannot claim another.
type Bogo struct {
	mu     sync.Mutex
	client CartFetcher
	adder  ProductAdder
	holder *drawer.SnapshotHolder
	gate   drawer.VersionGate
	pairs  []BogoPair

	broadcaster *drawer.Broadcaster
	sub         int

	inFlight bool
	offers   []BogoOffer
	visible  bool
}

// NewBogo creates the BOGO widget for the configured pairs.
func NewBogo(client CartFetcher, adder ProductAdder, holder *drawer.SnapshotHolder, pairs []BogoPair) *Bogo {
	return &Bogo{
		client: client,
		adder:  adder,
		holder: holder,
		pairs:  pairs,
	}
}

// Mount subscribes the widget to cart-changed notifications.
func (b *Bogo) Mount(broadcaster *drawer.Broadcaster) {
	b.mu.Lock()
	b.broadcaster = broadcaster
	b.mu.Unlock()
	b.sub = broadcaster.Subscribe(b.onCartChanged)
}

// Unmount removes the subscription.
func (b *Bogo) Unmount() {
	b.mu.Lock()
	broadcaster := b.broadcaster
	b.mu.Unlock()
	if broadcaster != nil {
		broadcaster.Unsubscribe(b.sub)
	}
}

func (b *Bogo) onCartChanged(ctx context.Context, evt drawer.CartChanged) {
	if err := b.Update(ctx); err != nil {
		log.Printf("bogo update: %v", err)
	}
}

// Visible reports whether any gift offer is shown.
func (b *Bogo) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// Offers returns the currently claimable gifts.
func (b *Bogo) Offers() []BogoOffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BogoOffer, len(b.offers))
	copy(out, b.offers)
	return out
}

// Update re-fetches the cart and recomputes pair eligibility.
func (b *Bogo) Update(ctx context.Context) error {
	snapshot, err := b.client.Fetch(ctx)
	if err != nil {
		log.Printf("bogo fetch: %v", err)
		return err
	}
	snap := b.holder.Observe(snapshot)
	if !b.gate.Admit(snap.Version) {
		return nil
	}

	var offers []BogoOffer
	giftPresent := false
	for _, pair := range b.pairs {
		if pairMatches(snapshot, pair.GiftProduct.ID, pair.GiftVariantIDs) {
			giftPresent = true
			continue
		}
		if pairMatches(snapshot, pair.TriggerProductID, pair.TriggerVariantIDs) {
			offers = append(offers, BogoOffer{
				Product:  pair.GiftProduct,
				Variants: qualifyingVariants(pair.GiftProduct, pair.GiftVariantIDs),
			})
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if giftPresent || len(offers) == 0 {
		b.visible = false
		b.offers = nil
		return nil
	}
	b.visible = true
	b.offers = offers
	return nil
}

// AddGift claims a gift variant. The trigger is disabled for the duration
// of its own in-flight call.
func (b *Bogo) AddGift(ctx context.Context, variantID int64) error {
	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return apperrors.New(apperrors.CodeCartMutationInFlight, "gift add already in flight")
	}
	b.inFlight = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight = false
		b.mu.Unlock()
	}()

	return b.adder.AddProduct(ctx, variantID, 1)
}

// pairMatches reports whether the cart holds the product, narrowed to the
// qualifying variants when the list is non-empty.
func pairMatches(c *cart.Cart, productID int64, variantIDs []int64) bool {
	if len(variantIDs) == 0 {
		return c.HasProduct(productID)
	}
	for _, id := range variantIDs {
		if c.HasVariant(id) {
			return true
		}
	}
	return false
}

func qualifyingVariants(product catalog.Product, variantIDs []int64) []catalog.Variant {
	if len(variantIDs) == 0 {
		return product.Variants
	}
	allowed := make(map[int64]struct{}, len(variantIDs))
	for _, id := range variantIDs {
		allowed[id] = struct{}{}
	}
	var out []catalog.Variant
	for _, variant := range product.Variants {
		if _, ok := allowed[variant.ID]; ok {
			out = append(out, variant)
		}
	}
	return out
}
