package drawer

import "sync"

// BindingToken identifies one registered action handler.
type BindingToken uint64

// BindingRegistry tracks the action handlers currently bound to rendered
// line views. Rebuilding a view must release its previous bindings before
// registering new ones: a stale handler bound to a removed view must
// never fire, and a patched view must not end up double-bound.
type BindingRegistry struct {
	mu     sync.Mutex
	next   BindingToken
	active map[BindingToken]string
}

// Bind registers a handler for the named target and returns its token.
func (r *BindingRegistry) Bind(target string) BindingToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		r.active = make(map[BindingToken]string)
	}
	r.next++
	r.active[r.next] = target
	return r.next
}

// Release removes a binding. Unknown tokens are ignored.
func (r *BindingRegistry) Release(token BindingToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, token)
}

// IsActive reports whether a token is still bound.
func (r *BindingRegistry) IsActive(token BindingToken) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[token]
	return ok
}

// ActiveCount returns the number of live bindings.
func (r *BindingRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
