// Package drawer implements the cart drawer synchronization engine.
//
// The drawer is composed of independently-owned widgets that all observe
// and mutate one server-held cart. There is no shared in-memory cart
// object: every component treats its last fetch as the truth. The engine
// provides the pieces that keep that arrangement consistent:
//
//   - SnapshotHolder stamps every fetched cart with a monotonically
//     increasing version so late-arriving fetches can be discarded
//     instead of clobbering newer state.
//   - Broadcaster fans a cart-changed event out to whichever promotion
//     widgets are mounted; widgets that a merchant disabled are simply
//     never subscribed.
//   - LineItemList owns the per-line views and the patch-versus-rebuild
//     reconciliation after a quantity change.
//   - Controller owns drawer visibility, the footer, the sticky badge,
//     and the refresh sequence that runs after every mutation.
//
// Markup generation lives behind the Renderer interface; the engine only
// requires that rendering is a pure function of cart data.
package drawer
