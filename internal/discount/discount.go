// Package discount implements the checkout-simulation side channel used
// to validate and apply discount codes outside the cart API. It is opaque
// to the drawer core beyond one contract: a successfully applied code
// triggers the same refresh-and-broadcast sequence as a cart mutation.
package discount

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/drawer"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// Routes are the storefront endpoints the side channel talks to.
type Routes struct {
	PaymentsConfig string
	Checkouts      string
	ApplyBase      string
}

// DefaultRoutes returns the standard storefront endpoints under base.
func DefaultRoutes(base string) Routes {
	return Routes{
		PaymentsConfig: base + "/payments/config",
		Checkouts:      base + "/wallets/checkouts/",
		ApplyBase:      base + "/discount/",
	}
}

// SavedCode is a successfully applied code persisted across sessions.
type SavedCode struct {
	Code      string
	CartTotal int64
}

// Store persists the applied discount code so a returning shopper gets it
// re-applied at mount.
type Store interface {
	Load() (SavedCode, bool)
	Save(SavedCode)
	Clear()
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.Mutex
	saved SavedCode
	ok    bool
}

func (s *MemoryStore) Load() (SavedCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved, s.ok
}

func (s *MemoryStore) Save(code SavedCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = code
	s.ok = true
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = SavedCode{}
	s.ok = false
}

// Refresher runs the post-mutation refresh-and-broadcast sequence. The
// drawer controller implements it.
type Refresher interface {
	RefreshDynamicContent(ctx context.Context, reason drawer.Reason) error
}

// CartFetcher reads the authoritative cart for the checkout body.
type CartFetcher interface {
	Fetch(ctx context.Context) (*cart.Cart, error)
}

// Applicator validates a discount code through a simulated checkout and,
// when the code applies, commits it via the discount apply URL.
type Applicator struct {
	httpClient *http.Client
	routes     Routes
	cart       CartFetcher
	refresher  Refresher
	store      Store

	country  string
	currency string

	mu          sync.Mutex
	inFlight    bool
	accessToken string
	tokenExpiry time.Time
	lastError   string
}

// NewApplicator creates the discount applicator. A nil store disables
// persistence; a nil httpClient uses the default client.
func NewApplicator(routes Routes, httpClient *http.Client, cartClient CartFetcher, refresher Refresher, store Store, country, currency string) *Applicator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if store == nil {
		store = &MemoryStore{}
	}
	return &Applicator{
		httpClient: httpClient,
		routes:     routes,
		cart:       cartClient,
		refresher:  refresher,
		store:      store,
		country:    country,
		currency:   currency,
	}
}

// LastError returns the display message from the most recent attempt, or
// empty when the last attempt succeeded.
func (a *Applicator) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastError
}

// ApplySaved re-applies a persisted code, if any. Called at mount.
func (a *Applicator) ApplySaved(ctx context.Context) error {
	saved, ok := a.store.Load()
	if !ok || saved.Code == "" {
		return nil
	}
	return a.Apply(ctx, saved.Code)
}

// Apply validates the code via checkout simulation and commits it. The
// trigger control stays disabled for the duration of the in-flight call.
func (a *Applicator) Apply(ctx context.Context, code string) error {
	a.mu.Lock()
	if a.inFlight {
		a.mu.Unlock()
		return apperrors.New(apperrors.CodeCartMutationInFlight, "discount apply already in flight")
	}
	a.inFlight = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.inFlight = false
		a.mu.Unlock()
	}()

	err := a.apply(ctx, code)
	a.mu.Lock()
	switch {
	case err == nil:
		a.lastError = ""
	case apperrors.CodeOf(err) == apperrors.CodeDiscountInvalidCode:
		a.lastError = "Invalid code"
	default:
		a.lastError = "Could not apply discount"
	}
	a.mu.Unlock()
	return err
}

// Clear forgets the persisted code and resets the storefront discount by
// applying the blank sentinel.
func (a *Applicator) Clear(ctx context.Context) error {
	a.store.Clear()
	a.mu.Lock()
	a.lastError = ""
	a.mu.Unlock()

	applyURL := fmt.Sprintf("%s+?v=%d&redirect=/checkout/", a.routes.ApplyBase, time.Now().UnixMilli())
	if err := a.get(ctx, applyURL); err != nil {
		return err
	}
	return a.refresher.RefreshDynamicContent(ctx, drawer.ReasonDiscount)
}

func (a *Applicator) apply(ctx context.Context, code string) error {
	token, err := a.token(ctx)
	if err != nil {
		return err
	}

	snapshot, err := a.cart.Fetch(ctx)
	if err != nil {
		return err
	}

	applied, total, err := a.simulateCheckout(ctx, token, code, snapshot)
	if err != nil {
		return err
	}
	if !applied {
		a.store.Clear()
		return apperrors.New(apperrors.CodeDiscountInvalidCode, fmt.Sprintf("code %q does not apply", code))
	}

	applyURL := fmt.Sprintf("%s%s?v=%d&redirect=/checkout/",
		a.routes.ApplyBase, url.PathEscape(code), time.Now().UnixMilli())
	if err := a.get(ctx, applyURL); err != nil {
		return err
	}

	a.store.Save(SavedCode{Code: code, CartTotal: total})
	return a.refresher.RefreshDynamicContent(ctx, drawer.ReasonDiscount)
}

// token returns the payments access token, re-fetching the payments config
// only once the cached token's expiry claim has passed.
func (a *Applicator) token(ctx context.Context) (string, error) {
	a.mu.Lock()
	cached := a.accessToken
	expiry := a.tokenExpiry
	a.mu.Unlock()
	if cached != "" && (expiry.IsZero() || time.Now().Before(expiry)) {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.routes.PaymentsConfig, nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeNetwork, "payments config request", err)
	}
	res, err := a.httpClient.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeNetwork, "payments config", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", apperrors.New(apperrors.CodeNetwork, fmt.Sprintf("payments config: HTTP %d", res.StatusCode))
	}

	var payload struct {
		PaymentInstruments struct {
			AccessToken string `json:"accessToken"`
		} `json:"paymentInstruments"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", apperrors.Wrap(apperrors.CodeCartMalformedResponse, "decode payments config", err)
	}
	token := payload.PaymentInstruments.AccessToken
	if token == "" {
		return "", apperrors.New(apperrors.CodeDiscountNoToken, "payments config holds no access token")
	}

	a.mu.Lock()
	a.accessToken = token
	a.tokenExpiry = tokenExpiry(token)
	a.mu.Unlock()
	return token, nil
}

// tokenExpiry reads the exp claim from a JWT access token. Opaque tokens
// get a zero expiry and are cached indefinitely.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func (a *Applicator) simulateCheckout(ctx context.Context, token, code string, snapshot *cart.Cart) (bool, int64, error) {
	body := map[string]any{
		"checkout": map[string]any{
			"country":              a.country,
			"discount_code":        code,
			"line_items":           snapshot.Items,
			"presentment_currency": a.currency,
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return false, 0, apperrors.Wrap(apperrors.CodeUnknown, "encode checkout body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.routes.Checkouts, bytes.NewReader(raw))
	if err != nil {
		return false, 0, apperrors.Wrap(apperrors.CodeNetwork, "checkout request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(token)))

	res, err := a.httpClient.Do(req)
	if err != nil {
		return false, 0, apperrors.Wrap(apperrors.CodeNetwork, "checkout simulation", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusUnprocessableEntity {
		a.store.Clear()
		return false, 0, apperrors.New(apperrors.CodeDiscountInvalidCode, fmt.Sprintf("code %q rejected", code))
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return false, 0, apperrors.New(apperrors.CodeNetwork, fmt.Sprintf("checkout simulation: HTTP %d", res.StatusCode))
	}

	var payload struct {
		Checkout struct {
			AppliedDiscounts    []json.RawMessage `json:"applied_discounts"`
			TotalLineItemsPrice int64             `json:"total_line_items_price"`
		} `json:"checkout"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return false, 0, apperrors.Wrap(apperrors.CodeCartMalformedResponse, "decode checkout", err)
	}
	return len(payload.Checkout.AppliedDiscounts) > 0, payload.Checkout.TotalLineItemsPrice, nil
}

func (a *Applicator) get(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNetwork, "discount apply request", err)
	}
	res, err := a.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNetwork, "discount apply", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return apperrors.New(apperrors.CodeNetwork, fmt.Sprintf("discount apply: HTTP %d", res.StatusCode))
	}
	return nil
}
