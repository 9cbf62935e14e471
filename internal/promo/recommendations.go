package promo

import (
	"context"
	"log"
	"sync"

	"github.com/louisbranch/voocart/internal/catalog"
	"github.com/louisbranch/voocart/internal/drawer"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// defaultRecommendationLimit caps the list when no limit is configured.
const defaultRecommendationLimit = 4

// RecommendationsConfig selects the recommendation source: a merchant-
// curated list, or the recommendations API keyed by the cart's first
// line's product.
type RecommendationsConfig struct {
	Curated []catalog.Product
	UseAPI  bool
	Limit   int
}

// Recommendations is the cross-sell widget. It re-derives its list on
// notification because "already in cart" changes after any mutation, but
// only when the acted-on line could alter the exclusion set or the seed
// product.
type Recommendations struct {
	mu     sync.Mutex
	client CartFetcher
	source RecommendationSource
	adder  ProductAdder
	holder *drawer.SnapshotHolder
	gate   drawer.VersionGate
	cfg    RecommendationsConfig

	broadcaster *drawer.Broadcaster
	sub         int

	inFlight bool
	items    []catalog.Product
}

// NewRecommendations creates the recommendations widget.
func NewRecommendations(client CartFetcher, source RecommendationSource, adder ProductAdder, holder *drawer.SnapshotHolder, cfg RecommendationsConfig) *Recommendations {
	if cfg.Limit < 1 {
		cfg.Limit = defaultRecommendationLimit
	}
	return &Recommendations{
		client: client,
		source: source,
		adder:  adder,
		holder: holder,
		cfg:    cfg,
	}
}

// Mount subscribes the widget to cart-changed notifications.
func (r *Recommendations) Mount(b *drawer.Broadcaster) {
	r.mu.Lock()
	r.broadcaster = b
	r.mu.Unlock()
	r.sub = b.Subscribe(r.onCartChanged)
}

// Unmount removes the subscription.
func (r *Recommendations) Unmount() {
	r.mu.Lock()
	b := r.broadcaster
	r.mu.Unlock()
	if b != nil {
		b.Unsubscribe(r.sub)
	}
}

func (r *Recommendations) onCartChanged(ctx context.Context, evt drawer.CartChanged) {
	if !evt.RecomputeRecommendations() {
		return
	}
	if err := r.Update(ctx); err != nil {
		log.Printf("recommendations update: %v", err)
	}
}

// Items returns the current recommendation list.
func (r *Recommendations) Items() []catalog.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]catalog.Product, len(r.items))
	copy(out, r.items)
	return out
}

// Visible reports whether the widget has anything to show.
func (r *Recommendations) Visible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items) > 0
}

// Update re-fetches the cart and re-derives the list, excluding products
// already present as cart lines and capping at the configured limit.
func (r *Recommendations) Update(ctx context.Context) error {
	snapshot, err := r.client.Fetch(ctx)
	if err != nil {
		log.Printf("recommendations fetch: %v", err)
		return err
	}
	snap := r.holder.Observe(snapshot)
	if !r.gate.Admit(snap.Version) {
		return nil
	}

	candidates := r.cfg.Curated
	if r.cfg.UseAPI {
		if snapshot.IsEmpty() {
			// No seed product; keep whatever is displayed.
			return nil
		}
		candidates, err = r.source.Recommendations(ctx, snapshot.Items[0].ProductID, r.cfg.Limit)
		if err != nil {
			log.Printf("recommendations lookup: %v", err)
			return err
		}
	}

	items := make([]catalog.Product, 0, r.cfg.Limit)
	for _, product := range candidates {
		if len(items) == r.cfg.Limit {
			break
		}
		if snapshot.HasProduct(product.ID) {
			continue
		}
		items = append(items, product)
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	return nil
}

// AddProduct adds a recommended variant to the cart, then re-derives the
// list so the added product drops out of it.
func (r *Recommendations) AddProduct(ctx context.Context, variantID int64) error {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return apperrors.New(apperrors.CodeCartMutationInFlight, "recommendation add already in flight")
	}
	r.inFlight = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	return r.adder.AddProduct(ctx, variantID, 1)
}
