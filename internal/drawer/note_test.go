package drawer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/louisbranch/voocart/internal/cart"
)

func TestNoteDebounceCollapsesKeystrokes(t *testing.T) {
	client := &fakeClient{}
	mock := clock.NewMock()
	widget := NewNoteWidget(client, mock, false)

	ctx := context.Background()
	widget.SetText(ctx, "p")
	mock.Add(100 * time.Millisecond)
	widget.SetText(ctx, "pl")
	mock.Add(100 * time.Millisecond)
	widget.SetText(ctx, "please gift wrap")

	if notes := client.noteLog(); len(notes) != 0 {
		t.Fatalf("no update may fire inside the debounce window, got %v", notes)
	}

	mock.Add(noteDebounce)
	notes := client.noteLog()
	if len(notes) != 1 || notes[0] != "please gift wrap" {
		t.Fatalf("expected one update with the final text, got %v", notes)
	}
}

func TestNoteSeparatedEditsEachFlush(t *testing.T) {
	client := &fakeClient{}
	mock := clock.NewMock()
	widget := NewNoteWidget(client, mock, false)

	ctx := context.Background()
	widget.SetText(ctx, "first")
	mock.Add(noteDebounce + time.Millisecond)
	widget.SetText(ctx, "second")
	mock.Add(noteDebounce + time.Millisecond)

	notes := client.noteLog()
	if len(notes) != 2 || notes[0] != "first" || notes[1] != "second" {
		t.Fatalf("expected two updates, got %v", notes)
	}
}

func TestNoteUpdateFailureKeepsText(t *testing.T) {
	client := &fakeClient{noteErr: errors.New("HTTP 502")}
	mock := clock.NewMock()
	widget := NewNoteWidget(client, mock, false)

	widget.SetText(context.Background(), "keep me")
	mock.Add(noteDebounce)

	// Fire-and-forget: the typed text stays regardless of the outcome.
	if got := widget.Text(); got != "keep me" {
		t.Fatalf("expected text preserved, got %q", got)
	}
}

func TestNoteLoadReadsFromCart(t *testing.T) {
	c := twoLineCart()
	c.Note = "ring twice"
	client := &fakeClient{fetchCart: c}
	widget := NewNoteWidget(client, clock.NewMock(), false)

	if err := widget.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := widget.Text(); got != "ring twice" {
		t.Fatalf("expected loaded note, got %q", got)
	}
}

func TestNoteLoadFailureLeavesTextUnchanged(t *testing.T) {
	c := &cart.Cart{Note: "original"}
	client := &fakeClient{fetchCart: c}
	widget := NewNoteWidget(client, clock.NewMock(), false)
	if err := widget.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	client.fetchErr = errors.New("timeout")
	if err := widget.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := widget.Text(); got != "original" {
		t.Fatalf("expected text unchanged, got %q", got)
	}
}

func TestNoteCollapsibleToggle(t *testing.T) {
	widget := NewNoteWidget(&fakeClient{}, clock.NewMock(), true)

	if !widget.Collapsed() {
		t.Fatal("collapsible note starts collapsed")
	}
	widget.ToggleCollapsed()
	if widget.Collapsed() {
		t.Fatal("expected expanded after toggle")
	}
}
