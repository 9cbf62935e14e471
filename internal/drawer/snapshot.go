package drawer

import (
	"sync"

	"github.com/louisbranch/voocart/internal/cart"
)

// Snapshot pairs a fetched cart with its version stamp. A snapshot's line
// indexes are only valid against that snapshot.
type Snapshot struct {
	Cart    *cart.Cart
	Version uint64
}

// SnapshotHolder stamps fetched carts with monotonically increasing
// versions. Widgets that re-fetch independently use the stamps to discard
// completions that arrive out of order, which removes the race where a
// fetch started before a mutation resolves after a newer one.
type SnapshotHolder struct {
	mu      sync.Mutex
	version uint64
	latest  Snapshot
}

// Observe stamps a freshly fetched cart and records it as the latest
// known snapshot.
func (h *SnapshotHolder) Observe(c *cart.Cart) Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.version++
	h.latest = Snapshot{Cart: c, Version: h.version}
	return h.latest
}

// Latest returns the most recently observed snapshot.
func (h *SnapshotHolder) Latest() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest, h.latest.Cart != nil
}

// VersionGate tracks the last snapshot version a widget applied. Each
// widget owns its own gate; gates are never shared.
type VersionGate struct {
	mu   sync.Mutex
	last uint64
}

// Admit reports whether a snapshot version is newer than the last applied
// one, recording it if so. A false return means the caller holds stale
// data and must not touch its view.
func (g *VersionGate) Admit(version uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if version <= g.last {
		return false
	}
	g.last = version
	return true
}
