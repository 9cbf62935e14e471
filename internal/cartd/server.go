package cartd

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/louisbranch/voocart/internal/catalog"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
)

// tokenCookie carries the cart session token.
const tokenCookie = "cart"

// Server exposes the cart authority's HTTP surface.
type Server struct {
	service *Service
	catalog Catalog
}

// NewServer creates the HTTP surface for a cart service.
func NewServer(service *Service, cat Catalog) *Server {
	return &Server{service: service, catalog: cat}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart.js", s.handleGetCart)
	mux.HandleFunc("POST /cart/add.js", s.handleAdd)
	mux.HandleFunc("POST /cart/change.js", s.handleChange)
	mux.HandleFunc("POST /cart/update.js", s.handleUpdate)
	mux.HandleFunc("GET /variants/{id}", s.handleVariant)
	mux.HandleFunc("GET /products/{handle}", s.handleProduct)
	mux.HandleFunc("GET /recommendations/products.json", s.handleRecommendations)
	return mux
}

// token reads the session token cookie, minting one when absent.
func (s *Server) token(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token := NewToken()
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.Get(r.Context(), s.token(w, r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Items []struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed add payload", http.StatusBadRequest)
		return
	}
	if len(payload.Items) == 0 {
		http.Error(w, "no items to add", http.StatusUnprocessableEntity)
		return
	}

	token := s.token(w, r)
	var snapshot any
	for _, item := range payload.Items {
		updated, err := s.service.Add(r.Context(), token, item.ID, item.Quantity)
		if err != nil {
			writeError(w, err)
			return
		}
		snapshot = updated
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Line     int `json:"line"`
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed change payload", http.StatusBadRequest)
		return
	}

	snapshot, err := s.service.Change(r.Context(), s.token(w, r), payload.Line, payload.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed update payload", http.StatusBadRequest)
		return
	}

	snapshot, err := s.service.UpdateNote(r.Context(), s.token(w, r), payload.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleVariant(w http.ResponseWriter, r *http.Request) {
	raw := trimJSSuffix(r.PathValue("id"))
	variantID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "malformed variant id", http.StatusBadRequest)
		return
	}

	product, variant, ok, err := s.catalog.VariantProduct(r.Context(), variantID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "variant not found", http.StatusNotFound)
		return
	}
	if variant.Name == "" {
		variant.Name = product.Title
		if variant.Title != "" {
			variant.Name = product.Title + " - " + variant.Title
		}
	}
	if variant.FeaturedImage == nil && product.FeaturedImage != "" {
		variant.FeaturedImage = &catalog.VariantImage{Src: product.FeaturedImage}
	}
	writeJSON(w, variant)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	handle := trimJSSuffix(r.PathValue("handle"))
	product, ok, err := s.catalog.ProductByHandle(r.Context(), handle)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	writeJSON(w, product)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil {
		http.Error(w, "malformed product id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, err := s.catalog.Recommendations(r.Context(), productID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"products": products})
}

func trimJSSuffix(segment string) string {
	if len(segment) > 3 && segment[len(segment)-3:] == ".js" {
		return segment[:len(segment)-3]
	}
	return segment
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Error(w, err.Error(), code.HTTPStatus())
}
