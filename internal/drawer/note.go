package drawer

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// noteDebounce collapses rapid keystrokes into one update call.
const noteDebounce = 300 * time.Millisecond

// NoteWidget owns the cart note textarea model. Updates are fire-and-
// forget and debounced so a typing shopper produces one network call.
type NoteWidget struct {
	mu        sync.Mutex
	client    CartClient
	clock     clock.Clock
	timer     *clock.Timer
	text      string
	collapsed bool
}

// NewNoteWidget creates the note widget. A nil clk uses the wall clock;
// tests inject a mock for deterministic debounce timing.
func NewNoteWidget(client CartClient, clk clock.Clock, collapsible bool) *NoteWidget {
	if clk == nil {
		clk = clock.New()
	}
	return &NoteWidget{
		client:    client,
		clock:     clk,
		collapsed: collapsible,
	}
}

// Load reads the current note from a fresh cart fetch. A failure leaves
// the displayed text unchanged.
func (n *NoteWidget) Load(ctx context.Context) error {
	snapshot, err := n.client.Fetch(ctx)
	if err != nil {
		log.Printf("load cart note: %v", err)
		return err
	}
	n.mu.Lock()
	n.text = snapshot.Note
	n.mu.Unlock()
	return nil
}

// Text returns the current note text.
func (n *NoteWidget) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Collapsed reports whether the textarea is hidden behind the trigger.
func (n *NoteWidget) Collapsed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.collapsed
}

// ToggleCollapsed flips the collapsible trigger state.
func (n *NoteWidget) ToggleCollapsed() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.collapsed = !n.collapsed
}

// SetText records a keystroke's worth of note text and schedules the
// debounced update. Each call resets the timer, so only the final text
// within the window is sent.
func (n *NoteWidget) SetText(ctx context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.text = text
	if n.timer != nil {
		n.timer.Stop()
	}
	// Late delivery after the caller moved on is acceptable; the update
	// must not die with the request context.
	sendCtx := context.WithoutCancel(ctx)
	n.timer = n.clock.AfterFunc(noteDebounce, func() {
		n.flush(sendCtx)
	})
}

func (n *NoteWidget) flush(ctx context.Context) {
	n.mu.Lock()
	text := n.text
	n.mu.Unlock()

	if err := n.client.UpdateNote(ctx, text); err != nil {
		// Fire-and-forget: the textarea already shows the typed text.
		log.Printf("update cart note: %v", err)
	}
}
