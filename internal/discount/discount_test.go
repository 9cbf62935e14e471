package discount

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/louisbranch/voocart/internal/cart"
	"github.com/louisbranch/voocart/internal/drawer"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

type fakeRefresher struct {
	mu      sync.Mutex
	reasons []drawer.Reason
}

func (f *fakeRefresher) RefreshDynamicContent(ctx context.Context, reason drawer.Reason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
	return nil
}

func (f *fakeRefresher) calls() []drawer.Reason {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]drawer.Reason, len(f.reasons))
	copy(out, f.reasons)
	return out
}

type fakeCart struct{}

func (fakeCart) Fetch(ctx context.Context) (*cart.Cart, error) {
	return &cart.Cart{Items: []cart.Line{{VariantID: 1, Quantity: 2}}}, nil
}

type sideChannel struct {
	mu             sync.Mutex
	token          string
	configRequests int
	applyRequests  int
	appliedCodes   []string
	acceptCode     string
	rejectWith     int
}

func (s *sideChannel) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /payments/config", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.configRequests++
		token := s.token
		s.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{
			"paymentInstruments": map[string]any{"accessToken": token},
		})
	})
	mux.HandleFunc("POST /wallets/checkouts/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Checkout struct {
				DiscountCode string `json:"discount_code"`
			} `json:"checkout"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		reject := s.rejectWith
		accept := s.acceptCode
		s.mu.Unlock()
		if reject != 0 {
			w.WriteHeader(reject)
			return
		}
		applied := []map[string]any{}
		if body.Checkout.DiscountCode == accept && accept != "" {
			applied = append(applied, map[string]any{"title": accept})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"checkout": map[string]any{
				"applied_discounts":      applied,
				"total_line_items_price": 6000,
			},
		})
	})
	mux.HandleFunc("GET /discount/{code}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.applyRequests++
		s.appliedCodes = append(s.appliedCodes, r.PathValue("code"))
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newApplicator(t *testing.T, channel *sideChannel) (*Applicator, *fakeRefresher, *MemoryStore, func()) {
	t.Helper()
	server := httptest.NewServer(channel.handler())
	refresher := &fakeRefresher{}
	store := &MemoryStore{}
	applicator := NewApplicator(DefaultRoutes(server.URL), server.Client(), fakeCart{}, refresher, store, "US", "USD")
	return applicator, refresher, store, server.Close
}

func TestApplyValidCode(t *testing.T) {
	channel := &sideChannel{token: "opaque-token", acceptCode: "SUMMER20"}
	applicator, refresher, store, done := newApplicator(t, channel)
	defer done()

	if err := applicator.Apply(context.Background(), "SUMMER20"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if got := refresher.calls(); len(got) != 1 || got[0] != drawer.ReasonDiscount {
		t.Fatalf("expected one discount refresh, got %v", got)
	}
	saved, ok := store.Load()
	if !ok || saved.Code != "SUMMER20" || saved.CartTotal != 6000 {
		t.Fatalf("expected code persisted with total, got %+v %v", saved, ok)
	}
	if applicator.LastError() != "" {
		t.Fatalf("expected no display error, got %q", applicator.LastError())
	}
	if len(channel.appliedCodes) != 1 || channel.appliedCodes[0] != "SUMMER20" {
		t.Fatalf("expected apply URL hit with the code, got %v", channel.appliedCodes)
	}
}

func TestApplyInvalidCode(t *testing.T) {
	channel := &sideChannel{token: "opaque-token", acceptCode: "SUMMER20"}
	applicator, refresher, store, done := newApplicator(t, channel)
	defer done()

	store.Save(SavedCode{Code: "OLD"})
	err := applicator.Apply(context.Background(), "BOGUS")
	if apperrors.CodeOf(err) != apperrors.CodeDiscountInvalidCode {
		t.Fatalf("expected invalid-code error, got %v", err)
	}

	if len(refresher.calls()) != 0 {
		t.Fatal("a rejected code must not broadcast")
	}
	if _, ok := store.Load(); ok {
		t.Fatal("a rejected code clears the persisted one")
	}
	if applicator.LastError() != "Invalid code" {
		t.Fatalf("expected invalid-code display message, got %q", applicator.LastError())
	}
	if channel.applyRequests != 0 {
		t.Fatal("the apply URL must not be hit for a rejected code")
	}
}

func TestApplyUnprocessableIsInvalidCode(t *testing.T) {
	channel := &sideChannel{token: "opaque-token", rejectWith: http.StatusUnprocessableEntity}
	applicator, _, _, done := newApplicator(t, channel)
	defer done()

	err := applicator.Apply(context.Background(), "ANY")
	if apperrors.CodeOf(err) != apperrors.CodeDiscountInvalidCode {
		t.Fatalf("expected invalid-code error for HTTP 422, got %v", err)
	}
}

func TestApplyInFlightGuard(t *testing.T) {
	channel := &sideChannel{token: "opaque-token", acceptCode: "X"}
	applicator, _, _, done := newApplicator(t, channel)
	defer done()

	applicator.mu.Lock()
	applicator.inFlight = true
	applicator.mu.Unlock()

	err := applicator.Apply(context.Background(), "X")
	if apperrors.CodeOf(err) != apperrors.CodeCartMutationInFlight {
		t.Fatalf("expected in-flight guard, got %v", err)
	}
}

func TestOpaqueTokenIsCached(t *testing.T) {
	channel := &sideChannel{token: "opaque-token", acceptCode: "A"}
	applicator, _, _, done := newApplicator(t, channel)
	defer done()

	if err := applicator.Apply(context.Background(), "A"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := applicator.Apply(context.Background(), "A"); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if channel.configRequests != 1 {
		t.Fatalf("expected one payments config fetch, got %d", channel.configRequests)
	}
}

func TestExpiredJWTTokenIsRefetched(t *testing.T) {
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	channel := &sideChannel{token: expired, acceptCode: "A"}
	applicator, _, _, done := newApplicator(t, channel)
	defer done()

	if err := applicator.Apply(context.Background(), "A"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := applicator.Apply(context.Background(), "A"); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if channel.configRequests != 2 {
		t.Fatalf("expected expired token to force a refetch, got %d fetches", channel.configRequests)
	}
}

func TestApplySavedReappliesPersistedCode(t *testing.T) {
	channel := &sideChannel{token: "opaque-token", acceptCode: "WELCOME"}
	applicator, refresher, store, done := newApplicator(t, channel)
	defer done()

	store.Save(SavedCode{Code: "WELCOME", CartTotal: 6000})
	if err := applicator.ApplySaved(context.Background()); err != nil {
		t.Fatalf("apply saved: %v", err)
	}
	if len(refresher.calls()) != 1 {
		t.Fatal("expected the persisted code re-applied at mount")
	}
}

func TestApplySavedWithoutCodeIsNoop(t *testing.T) {
	channel := &sideChannel{token: "opaque-token"}
	applicator, refresher, _, done := newApplicator(t, channel)
	defer done()

	if err := applicator.ApplySaved(context.Background()); err != nil {
		t.Fatalf("apply saved: %v", err)
	}
	if len(refresher.calls()) != 0 {
		t.Fatal("nothing persisted, nothing to apply")
	}
}
