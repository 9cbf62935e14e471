package templates

import (
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/platform/money"
)

func testLine() cart.Line {
	return cart.Line{
		Key:               "line-key-1",
		VariantID:         44510002,
		ProductID:         7001,
		Title:             "Linen Shirt",
		VariantTitle:      "Medium / Blue",
		Quantity:          3,
		Image:             "https://cdn.example.com/shirt.jpg",
		UnitPrice:         2500,
		OriginalLinePrice: 7500,
		FinalLinePrice:    7500,
	}
}

func TestLineFragmentRoundTrip(t *testing.T) {
	r := New(nil)

	markup, err := r.Line(testLine(), 2)
	if err != nil {
		t.Fatalf("render line: %v", err)
	}

	facts, err := ParseLineFacts(markup)
	if err != nil {
		t.Fatalf("parse line facts: %v", err)
	}
	want := LineFacts{VariantID: 44510002, LineKey: "line-key-1", LineIndex: 2, Quantity: 3}
	if facts != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", facts, want)
	}
}

func TestLineFragmentContent(t *testing.T) {
	r := New(money.New("${{amount}}"))

	markup, err := r.Line(testLine(), 1)
	if err != nil {
		t.Fatalf("render line: %v", err)
	}

	for _, want := range []string{
		"Linen Shirt",
		"Medium / Blue",
		"$75.00",
		`value="3"`,
		`data-line-index="1"`,
	} {
		if !strings.Contains(markup, want) {
			t.Fatalf("expected fragment to contain %q, got %q", want, markup)
		}
	}
}

func TestLineFragmentEscapesTitles(t *testing.T) {
	r := New(nil)
	line := testLine()
	line.Title = `<script>alert("x")</script>`

	markup, err := r.Line(line, 1)
	if err != nil {
		t.Fatalf("render line: %v", err)
	}
	if strings.Contains(markup, "<script>") {
		t.Fatal("title must be escaped")
	}
}

func TestLineFragmentHidesDefaultVariantTitle(t *testing.T) {
	r := New(nil)
	line := testLine()
	line.OnlyDefaultVariant = true
	line.VariantTitle = "Default Title"

	markup, err := r.Line(line, 1)
	if err != nil {
		t.Fatalf("render line: %v", err)
	}
	if strings.Contains(markup, "Default Title") {
		t.Fatal("single-variant products must not show a variant title")
	}
}

func TestLineFragmentShowsDiscountedPrice(t *testing.T) {
	r := New(nil)
	line := testLine()
	line.FinalLinePrice = 6000
	line.LineLevelDiscountAllocs = []cart.LineDiscountAllocation{{
		Amount:              1500,
		DiscountApplication: cart.DiscountApplication{Title: "SUMMER20"},
	}}

	markup, err := r.Line(line, 1)
	if err != nil {
		t.Fatalf("render line: %v", err)
	}
	if !strings.Contains(markup, "<s>$75.00</s>") {
		t.Fatalf("expected struck original price, got %q", markup)
	}
	if !strings.Contains(markup, "$60.00") {
		t.Fatalf("expected final price, got %q", markup)
	}
	if !strings.Contains(markup, "SUMMER20") {
		t.Fatalf("expected discount title, got %q", markup)
	}
}

func TestFooterListsCartLevelDiscounts(t *testing.T) {
	r := New(nil)
	c := &cart.Cart{
		TotalPrice: 9000,
		CartLevelDiscounts: []cart.DiscountApplication{
			{Title: "FREESHIP", TotalAllocatedAmount: 500},
		},
		Items: []cart.Line{testLine()},
	}

	markup, err := r.Footer(c)
	if err != nil {
		t.Fatalf("render footer: %v", err)
	}
	if !strings.Contains(markup, "FREESHIP") {
		t.Fatalf("expected cart-level discount, got %q", markup)
	}
	if !strings.Contains(markup, "$90.00") {
		t.Fatalf("expected subtotal, got %q", markup)
	}
	if !strings.Contains(markup, `href="/checkout"`) {
		t.Fatalf("expected checkout link, got %q", markup)
	}
}

func TestMoneyFormatVariants(t *testing.T) {
	c := &cart.Cart{TotalPrice: 123456, Items: []cart.Line{testLine()}}

	r := New(money.New("{{amount_with_comma_separator}} kr"))
	markup, err := r.Footer(c)
	if err != nil {
		t.Fatalf("render footer: %v", err)
	}
	if !strings.Contains(markup, "1.234,56 kr") {
		t.Fatalf("expected comma-separator format, got %q", markup)
	}
}

func TestEmptyStateFragment(t *testing.T) {
	r := New(nil)
	markup, err := r.Empty()
	if err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if !strings.Contains(markup, "Your cart is empty") {
		t.Fatalf("unexpected empty state: %q", markup)
	}
}

func TestNoteBlockCollapsedHidesTextarea(t *testing.T) {
	markup, err := renderToString(NoteBlock("ring twice", true, true))
	if err != nil {
		t.Fatalf("render note: %v", err)
	}
	if strings.Contains(markup, "<textarea") {
		t.Fatal("collapsed note must not render the textarea")
	}
	if !strings.Contains(markup, `data-state="collapsed"`) {
		t.Fatalf("expected collapsed toggle, got %q", markup)
	}

	markup, err = renderToString(NoteBlock("ring twice", true, false))
	if err != nil {
		t.Fatalf("render note: %v", err)
	}
	if !strings.Contains(markup, "ring twice") {
		t.Fatalf("expected note text, got %q", markup)
	}
}

func TestStickyLauncherBadge(t *testing.T) {
	markup, err := renderToString(StickyLauncher(7))
	if err != nil {
		t.Fatalf("render launcher: %v", err)
	}
	if !strings.Contains(markup, `data-item-count="7"`) {
		t.Fatalf("expected badge count, got %q", markup)
	}
}

func TestAnnouncementBarEmptyRendersNothing(t *testing.T) {
	markup, err := renderToString(AnnouncementBar(""))
	if err != nil {
		t.Fatalf("render announcement: %v", err)
	}
	if markup != "" {
		t.Fatalf("expected empty output, got %q", markup)
	}
}

func renderToString(component templ.Component) (string, error) {
	return render(component)
}
