// Package cart defines the authoritative cart data model.
//
// A Cart is only ever constructed from a cart service response; the drawer
// never builds one locally. Line indexes are 1-based positions that are
// valid only against the snapshot they were read from: removing a line or
// merging two lines with the same variant reassigns every subsequent index.
package cart

// Cart is a snapshot of the remote cart resource.
type Cart struct {
	Token              string                `json:"token,omitempty"`
	ItemCount          int                   `json:"item_count"`
	ItemsSubtotalPrice int64                 `json:"items_subtotal_price"`
	TotalPrice         int64                 `json:"total_price"`
	Note               string                `json:"note"`
	Items              []Line                `json:"items"`
	CartLevelDiscounts []DiscountApplication `json:"cart_level_discount_applications"`
}

// Line is one row in the cart, identified transiently by position and
// durably by variant id.
type Line struct {
	Key                     string                   `json:"key"`
	VariantID               int64                    `json:"variant_id"`
	ProductID               int64                    `json:"product_id"`
	Handle                  string                   `json:"handle"`
	Title                   string                   `json:"title"`
	VariantTitle            string                   `json:"variant_title"`
	Quantity                int                      `json:"quantity"`
	Image                   string                   `json:"image"`
	UnitPrice               int64                    `json:"price"`
	OriginalLinePrice       int64                    `json:"original_line_price"`
	FinalLinePrice          int64                    `json:"final_line_price"`
	OnlyDefaultVariant      bool                     `json:"product_has_only_default_variant"`
	OptionsWithValues       []OptionValue            `json:"options_with_values"`
	LineLevelDiscountAllocs []LineDiscountAllocation `json:"line_level_discount_allocations"`
}

// OptionValue is a selected product option on a line.
type OptionValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DiscountApplication is a cart-level discount returned by the authority.
type DiscountApplication struct {
	Title                string `json:"title"`
	TotalAllocatedAmount int64  `json:"total_allocated_amount"`
}

// LineDiscountAllocation is a line-level discount allocation.
type LineDiscountAllocation struct {
	Amount              int64               `json:"amount"`
	DiscountApplication DiscountApplication `json:"discount_application"`
}

// HasMergedLines reports whether the cart holds fewer unique variant ids
// than lines, meaning the authority merged this mutation's line into
// another line with the same variant and reassigned subsequent indexes.
func (c *Cart) HasMergedLines() bool {
	if c == nil {
		return false
	}
	seen := make(map[int64]struct{}, len(c.Items))
	for _, line := range c.Items {
		seen[line.VariantID] = struct{}{}
	}
	return len(seen) != len(c.Items)
}

// LineByVariant returns the first line holding the variant, if any.
func (c *Cart) LineByVariant(variantID int64) (Line, bool) {
	if c == nil {
		return Line{}, false
	}
	for _, line := range c.Items {
		if line.VariantID == variantID {
			return line, true
		}
	}
	return Line{}, false
}

// LineIndexByVariant returns the 1-based index of the first line holding
// the variant, or 0 when absent. The index is only valid against this
// snapshot.
func (c *Cart) LineIndexByVariant(variantID int64) int {
	if c == nil {
		return 0
	}
	for i, line := range c.Items {
		if line.VariantID == variantID {
			return i + 1
		}
	}
	return 0
}

// HasVariant reports whether any line holds the variant.
func (c *Cart) HasVariant(variantID int64) bool {
	return c.LineIndexByVariant(variantID) != 0
}

// HasProduct reports whether any line belongs to the product.
func (c *Cart) HasProduct(productID int64) bool {
	if c == nil {
		return false
	}
	for _, line := range c.Items {
		if line.ProductID == productID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
