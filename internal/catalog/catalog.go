// Package catalog provides read-only product data lookups used by
// promotion widgets: variant details for gift blocks, product details for
// curated lists, and the recommendations endpoint keyed by a product.
package catalog

// Product is the storefront product shape returned by product lookups.
type Product struct {
	ID            int64     `json:"id"`
	Handle        string    `json:"handle"`
	Title         string    `json:"title"`
	FeaturedImage string    `json:"featured_image"`
	Price         int64     `json:"price"`
	Variants      []Variant `json:"variants"`
}

// Variant is one purchasable variant of a product.
type Variant struct {
	ID             int64         `json:"id"`
	Title          string        `json:"title"`
	Name           string        `json:"name"`
	Price          int64         `json:"price"`
	CompareAtPrice int64         `json:"compare_at_price"`
	Available      bool          `json:"available"`
	FeaturedImage  *VariantImage `json:"featured_image"`
}

// VariantImage is the featured image attached to a variant.
type VariantImage struct {
	Src string `json:"src"`
}

// AvailableVariants returns the purchasable variants of a product.
func (p Product) AvailableVariants() []Variant {
	out := make([]Variant, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.Available {
			out = append(out, v)
		}
	}
	return out
}

// VariantByID returns the product's variant with the given id, if any.
func (p Product) VariantByID(id int64) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}
