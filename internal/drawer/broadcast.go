package drawer

import (
	"context"
	"sync"
)

// Reason describes what kind of mutation produced a cart-changed event.
type Reason string

const (
	// ReasonQuantityChange marks a line quantity mutation (including removal).
	ReasonQuantityChange Reason = "quantity_change"
	// ReasonAdd marks a line added to the cart.
	ReasonAdd Reason = "add"
	// ReasonDiscount marks a successful discount application.
	ReasonDiscount Reason = "discount"
	// ReasonRefresh marks a refresh with no specific mutation, such as
	// the drawer opening.
	ReasonRefresh Reason = "refresh"
)

// CartChanged notifies dependents that the cart mutated. It carries the
// stamped post-mutation snapshot so the sticky badge does not need to
// re-fetch, plus the acted-on line facts that drive the narrower
// recommendations trigger.
type CartChanged struct {
	Snapshot  Snapshot
	Reason    Reason
	Quantity  int // quantity requested, for quantity changes
	LineIndex int // pre-mutation 1-based index acted on, for quantity changes
}

// ItemCount returns the post-mutation item count.
func (e CartChanged) ItemCount() int {
	if e.Snapshot.Cart == nil {
		return 0
	}
	return e.Snapshot.Cart.ItemCount
}

// RecomputeRecommendations reports whether the recommendations widget
// should re-derive its list. Quantity changes only trigger it when a line
// was removed or the first line was acted on: the exclusion set depends
// on which product occupies line one. All other reasons always trigger.
func (e CartChanged) RecomputeRecommendations() bool {
	if e.Reason != ReasonQuantityChange {
		return true
	}
	return e.Quantity == 0 || e.LineIndex == 1
}

// Subscriber handles a cart-changed event for one widget.
type Subscriber func(ctx context.Context, evt CartChanged)

// Broadcaster is the publish/subscribe registry connecting the controller
// to the mounted promotion widgets. A widget subscribes at mount and
// unsubscribes at unmount; absence is not an error, it just means no
// delivery.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]Subscriber
}

// Subscribe registers a handler and returns its subscription token.
func (b *Broadcaster) Subscribe(fn Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]Subscriber)
	}
	b.next++
	b.subs[b.next] = fn
	return b.next
}

// Unsubscribe removes a handler. Unknown tokens are ignored.
func (b *Broadcaster) Unsubscribe(token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, token)
}

// Publish delivers the event to every subscriber. Subscribers run
// concurrently, since independent widgets have no cross-ordering
// guarantee; Publish waits for all of them to return.
func (b *Broadcaster) Publish(ctx context.Context, evt CartChanged) {
	b.mu.Lock()
	subs := make([]Subscriber, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, fn := range subs {
		wg.Add(1)
		go func(fn Subscriber) {
			defer wg.Done()
			fn(ctx, evt)
		}(fn)
	}
	wg.Wait()
}

// SubscriberCount returns the number of mounted subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
