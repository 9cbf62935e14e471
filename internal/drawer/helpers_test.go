package drawer

import (
	"context"
	"fmt"
	"sync"

	"github.com/louisbranch/voocart/internal/cart"
)

type changeCall struct {
	line     int
	quantity int
}

// fakeClient scripts cart service responses for engine tests.
type fakeClient struct {
	mu sync.Mutex

	fetchCart *cart.Cart
	fetchErr  error

	changeResult *cart.Cart
	changeErr    error
	changeCalls  []changeCall

	addErr   error
	addCalls []int64

	noteErr error
	notes   []string
}

func (f *fakeClient) Fetch(ctx context.Context) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetchCart, nil
}

func (f *fakeClient) AddLine(ctx context.Context, variantID int64, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.addCalls = append(f.addCalls, variantID)
	return nil
}

func (f *fakeClient) ChangeLineQuantity(ctx context.Context, lineIndex, quantity int) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changeCalls = append(f.changeCalls, changeCall{line: lineIndex, quantity: quantity})
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	return f.changeResult, nil
}

func (f *fakeClient) UpdateNote(ctx context.Context, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noteErr != nil {
		return f.noteErr
	}
	f.notes = append(f.notes, note)
	return nil
}

func (f *fakeClient) noteLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notes))
	copy(out, f.notes)
	return out
}

// fakeRenderer emits deterministic markup stamped with the line fields.
type fakeRenderer struct {
	lineErr error
}

func (f *fakeRenderer) Line(line cart.Line, lineIndex int) (string, error) {
	if f.lineErr != nil {
		return "", f.lineErr
	}
	return fmt.Sprintf(`<li data-variant-id="%d" data-line-index="%d">qty %d</li>`, line.VariantID, lineIndex, line.Quantity), nil
}

func (f *fakeRenderer) Footer(c *cart.Cart) (string, error) {
	if c == nil {
		return "", nil
	}
	return fmt.Sprintf("<footer>%d</footer>", c.TotalPrice), nil
}

func (f *fakeRenderer) Empty() (string, error) {
	return "<p>Your cart is empty</p>", nil
}

func twoLineCart() *cart.Cart {
	return &cart.Cart{
		ItemCount:          4,
		ItemsSubtotalPrice: 6000,
		TotalPrice:         6000,
		Items: []cart.Line{
			{Key: "a", VariantID: 111, Quantity: 1, FinalLinePrice: 2000},
			{Key: "b", VariantID: 222, Quantity: 3, FinalLinePrice: 4000},
		},
	}
}
