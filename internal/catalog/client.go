package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// Client fetches product data from the storefront. Failures surface as
// CART_CATALOG_UNAVAILABLE and leave widget views unchanged.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a catalog client rooted at the storefront base URL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Variant fetches a single variant by id.
func (c *Client) Variant(ctx context.Context, variantID int64) (Variant, error) {
	var v Variant
	url := fmt.Sprintf("%s/variants/%d.js", c.baseURL, variantID)
	if err := c.get(ctx, url, &v); err != nil {
		return Variant{}, err
	}
	return v, nil
}

// Product fetches a product by handle.
func (c *Client) Product(ctx context.Context, handle string) (Product, error) {
	var p Product
	url := fmt.Sprintf("%s/products/%s.js", c.baseURL, handle)
	if err := c.get(ctx, url, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

type recommendationsResponse struct {
	Products []Product `json:"products"`
}

// Recommendations fetches recommended products for a product id, capped
// at limit by the remote service.
func (c *Client) Recommendations(ctx context.Context, productID int64, limit int) ([]Product, error) {
	if limit < 1 {
		limit = 4
	}
	var res recommendationsResponse
	url := fmt.Sprintf("%s/recommendations/products.json?product_id=%d&limit=%d", c.baseURL, productID, limit)
	if err := c.get(ctx, url, &res); err != nil {
		return nil, err
	}
	return res.Products, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCartCatalogUnavailable, "build catalog request", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCartCatalogUnavailable, "fetch catalog data", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return apperrors.New(apperrors.CodeCartCatalogUnavailable, fmt.Sprintf("catalog lookup: HTTP %d", res.StatusCode))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.CodeCartCatalogUnavailable, "decode catalog response", err)
	}
	return nil
}
