package promo

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/voocart/internal/drawer"
	"github.com/louisbranch/voocart/internal/platform/money"
)

// RewardTier is one configured spend threshold with its reward title.
type RewardTier struct {
	// Target is the spend threshold in minor units.
	Target int64
	Title  string
}

// RewardBarState is the derived display state of the reward bar.
type RewardBarState struct {
	// Fill is the progress-line percentage, clamped to [0,100].
	Fill float64
	// SpendMessage prompts for the next tier; empty once every tier is earned.
	SpendMessage string
	// AppliedMessage lists the earned tiers; empty when none are earned.
	AppliedMessage string
}

// RewardBar is the tiered spend-reward progress widget. Tiers are kept
// sorted ascending by target regardless of configuration order.
type RewardBar struct {
	mu     sync.Mutex
	client CartFetcher
	holder *drawer.SnapshotHolder
	gate   drawer.VersionGate
	tiers  []RewardTier
	money  *money.Formatter

	broadcaster *drawer.Broadcaster
	sub         int

	state RewardBarState
}

// NewRewardBar creates the reward bar for the configured tiers.
func NewRewardBar(client CartFetcher, holder *drawer.SnapshotHolder, formatter *money.Formatter, tiers []RewardTier) *RewardBar {
	sorted := make([]RewardTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Target < sorted[j].Target
	})
	return &RewardBar{
		client: client,
		holder: holder,
		money:  formatter,
		tiers:  sorted,
	}
}

// Mount subscribes the widget to cart-changed notifications.
func (r *RewardBar) Mount(b *drawer.Broadcaster) {
	r.mu.Lock()
	r.broadcaster = b
	r.mu.Unlock()
	r.sub = b.Subscribe(r.onCartChanged)
}

// Unmount removes the subscription.
func (r *RewardBar) Unmount() {
	r.mu.Lock()
	b := r.broadcaster
	r.mu.Unlock()
	if b != nil {
		b.Unsubscribe(r.sub)
	}
}

func (r *RewardBar) onCartChanged(ctx context.Context, evt drawer.CartChanged) {
	if err := r.Update(ctx); err != nil {
		log.Printf("reward bar update: %v", err)
	}
}

// Tiers returns the tiers in ascending target order.
func (r *RewardBar) Tiers() []RewardTier {
	out := make([]RewardTier, len(r.tiers))
	copy(out, r.tiers)
	return out
}

// State returns the current derived display state.
func (r *RewardBar) State() RewardBarState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Update re-fetches the cart and re-derives the bar state.
func (r *RewardBar) Update(ctx context.Context) error {
	snapshot, err := r.client.Fetch(ctx)
	if err != nil {
		log.Printf("reward bar fetch: %v", err)
		return err
	}
	snap := r.holder.Observe(snapshot)
	if !r.gate.Admit(snap.Version) {
		return nil
	}

	state := r.derive(snapshot.ItemsSubtotalPrice)
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()
	return nil
}

// derive computes the bar state for a subtotal. A tier is earned at
// exactly its target; the next tier is the first one strictly above.
func (r *RewardBar) derive(subtotal int64) RewardBarState {
	if len(r.tiers) == 0 {
		return RewardBarState{}
	}

	var applied []RewardTier
	var next *RewardTier
	for i, tier := range r.tiers {
		if subtotal >= tier.Target {
			applied = append(applied, tier)
		} else if next == nil {
			next = &r.tiers[i]
		}
	}

	state := RewardBarState{
		Fill:           progressFill(subtotal, r.tiers[len(r.tiers)-1].Target),
		AppliedMessage: appliedMessage(applied),
	}
	if next != nil {
		state.SpendMessage = fmt.Sprintf("Spend %s more to get %s",
			r.money.Format(next.Target-subtotal), next.Title)
	}
	return state
}

func progressFill(subtotal, maxTarget int64) float64 {
	if maxTarget <= 0 {
		return 0
	}
	fill := float64(subtotal) / float64(maxTarget) * 100
	if fill < 0 {
		return 0
	}
	if fill > 100 {
		return 100
	}
	return fill
}

// appliedMessage joins earned tier titles as "A, B and C applied!".
func appliedMessage(applied []RewardTier) string {
	if len(applied) == 0 {
		return ""
	}
	titles := make([]string, len(applied))
	for i, tier := range applied {
		titles[i] = tier.Title
	}

	var joined string
	if len(titles) < 3 {
		joined = strings.Join(titles, " and ")
	} else {
		joined = strings.Join(titles[:len(titles)-1], ", ") + " and " + titles[len(titles)-1]
	}
	return joined + " applied!"
}
