// Package client is the sole gateway to the remote cart resource.
//
// Every call is a single attempt with no retry: a failed call means no
// change occurred and the caller keeps its current view. Only
// ChangeLineQuantity returns the post-mutation cart, because its caller
// must immediately choose between a full re-render and a single-line patch.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/voocart/internal/cart"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

const tracerName = "voocart/cart/client"

// Routes holds the cart protocol endpoints.
type Routes struct {
	CartURL       string
	CartAddURL    string
	CartChangeURL string
	CartUpdateURL string
}

// DefaultRoutes derives the standard cart endpoints from a base URL.
func DefaultRoutes(base string) Routes {
	base = strings.TrimRight(base, "/")
	return Routes{
		CartURL:       base + "/cart.js",
		CartAddURL:    base + "/cart/add.js",
		CartChangeURL: base + "/cart/change.js",
		CartUpdateURL: base + "/cart/update.js",
	}
}

// Client talks to the remote cart service. No other component performs
// network calls for cart data.
type Client struct {
	httpClient *http.Client
	routes     Routes
	tracer     trace.Tracer
}

// New creates a cart client for the given routes. A nil httpClient falls
// back to http.DefaultClient.
func New(routes Routes, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		routes:     routes,
		tracer:     otel.Tracer(tracerName),
	}
}

type addLinePayload struct {
	Items []addLineItem `json:"items"`
}

type addLineItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type changeLinePayload struct {
	Line     int `json:"line"`
	Quantity int `json:"quantity"`
}

type updateNotePayload struct {
	Note string `json:"note"`
}

// Fetch reads the full authoritative cart.
func (c *Client) Fetch(ctx context.Context) (*cart.Cart, error) {
	ctx, span := c.tracer.Start(ctx, "cart.fetch")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.routes.CartURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeNetwork, "build cart fetch request", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(apperrors.CodeNetwork, "fetch cart", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		err := apperrors.New(apperrors.CodeNetwork, fmt.Sprintf("fetch cart: HTTP %d", res.StatusCode))
		span.RecordError(err)
		return nil, err
	}

	var snapshot cart.Cart
	if err := json.NewDecoder(res.Body).Decode(&snapshot); err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(apperrors.CodeCartMalformedResponse, "decode cart", err)
	}

	span.SetAttributes(attribute.Int("cart.item_count", snapshot.ItemCount))
	return &snapshot, nil
}

// AddLine asks the authority to append or merge a line for the variant.
// The updated cart is not returned; callers that need fresh data re-fetch.
func (c *Client) AddLine(ctx context.Context, variantID int64, quantity int) error {
	ctx, span := c.tracer.Start(ctx, "cart.add_line",
		trace.WithAttributes(
			attribute.Int64("cart.variant_id", variantID),
			attribute.Int("cart.quantity", quantity),
		))
	defer span.End()

	if quantity < 1 {
		quantity = 1
	}
	payload := addLinePayload{Items: []addLineItem{{ID: variantID, Quantity: quantity}}}
	if err := c.post(ctx, c.routes.CartAddURL, payload, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// ChangeLineQuantity sets the quantity of the line at the given 1-based
// index and returns the authoritative post-mutation cart. Quantity 0
// removes the line; removal and quantity change share this one primitive.
func (c *Client) ChangeLineQuantity(ctx context.Context, lineIndex, quantity int) (*cart.Cart, error) {
	ctx, span := c.tracer.Start(ctx, "cart.change_line",
		trace.WithAttributes(
			attribute.Int("cart.line_index", lineIndex),
			attribute.Int("cart.quantity", quantity),
		))
	defer span.End()

	if lineIndex < 1 {
		return nil, apperrors.New(apperrors.CodeCartInvalidLineIndex, fmt.Sprintf("change line: index %d", lineIndex))
	}
	if quantity < 0 {
		return nil, apperrors.New(apperrors.CodeCartInvalidQuantity, fmt.Sprintf("change line: quantity %d", quantity))
	}

	var updated cart.Cart
	payload := changeLinePayload{Line: lineIndex, Quantity: quantity}
	if err := c.post(ctx, c.routes.CartChangeURL, payload, &updated); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &updated, nil
}

// UpdateNote stores the cart note. Fire-and-forget: the response body is
// discarded. Debouncing rapid edits is the caller's responsibility.
func (c *Client) UpdateNote(ctx context.Context, note string) error {
	ctx, span := c.tracer.Start(ctx, "cart.update_note")
	defer span.End()

	if err := c.post(ctx, c.routes.CartUpdateURL, updateNotePayload{Note: note}, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNetwork, "encode cart payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNetwork, "build cart request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNetwork, "post cart mutation", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return apperrors.New(apperrors.CodeNetwork, fmt.Sprintf("cart mutation: HTTP %d", res.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.CodeCartMalformedResponse, "decode cart response", err)
	}
	return nil
}
