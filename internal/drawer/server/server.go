// Package server exposes the drawer engine over HTTP: fragment endpoints
// returning rendered markup, and action endpoints driving the engine's
// mutations. One engine instance serves one shopper session.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/louisbranch/voocart/internal/discount"
	"github.com/louisbranch/voocart/internal/drawer"
	"github.com/louisbranch/voocart/internal/drawer/templates"
	apperrors "github.com/louisbranch/voocart/internal/platform/errors"
	"github.com/louisbranch/voocart/internal/promo"
)

const shutdownTimeout = 10 * time.Second

// Widgets holds the promotion widgets enabled by merchant configuration.
// Nil fields are blocks the merchant disabled; the handlers treat absence
// as "not found", never as an error.
type Widgets struct {
	FreeGift        *promo.FreeGift
	Bogo            *promo.Bogo
	RewardBar       *promo.RewardBar
	Recommendations *promo.Recommendations
}

// Block names a drawer section a merchant can enable.
type Block string

// Drawer blocks, rendered in the order the merchant lists them.
const (
	BlockAnnouncementBar Block = "announcement-bar"
	BlockRewardBar       Block = "reward-bar"
	BlockItems           Block = "items"
	BlockNote            Block = "note"
)

// DefaultBlocks is the block order used when a merchant configures none.
var DefaultBlocks = []Block{BlockAnnouncementBar, BlockRewardBar, BlockItems, BlockNote}

// Config defines the inputs for the drawer server.
type Config struct {
	HTTPAddr         string
	AnnouncementText string

	// Blocks is the explicit set of enabled drawer sections, in render
	// order. Empty means DefaultBlocks.
	Blocks []Block

	Controller *drawer.Controller
	Lines      *drawer.LineItemList
	Note       *drawer.NoteWidget
	Discount   *discount.Applicator
	Widgets    Widgets
}

// Server hosts the drawer HTTP surface.
type Server struct {
	httpAddr   string
	httpServer *http.Server

	controller *drawer.Controller
	lines      *drawer.LineItemList
	note       *drawer.NoteWidget
	discount   *discount.Applicator
	widgets    Widgets

	blocks       []Block
	announcement string
}

// NewServer assembles the drawer HTTP server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Controller == nil || cfg.Lines == nil {
		return nil, errors.New("drawer controller and line list are required")
	}

	blocks := cfg.Blocks
	if len(blocks) == 0 {
		blocks = DefaultBlocks
	}
	s := &Server{
		httpAddr:     cfg.HTTPAddr,
		controller:   cfg.Controller,
		lines:        cfg.Lines,
		note:         cfg.Note,
		discount:     cfg.Discount,
		widgets:      cfg.Widgets,
		blocks:       blocks,
		announcement: cfg.AnnouncementText,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /drawer", s.handleDrawer)
	mux.HandleFunc("GET /drawer/lines", s.handleLines)
	mux.HandleFunc("GET /drawer/footer", s.handleFooter)
	mux.HandleFunc("GET /drawer/launcher", s.handleLauncher)
	mux.HandleFunc("POST /drawer/open", s.handleOpen)
	mux.HandleFunc("POST /drawer/close", s.handleClose)
	mux.HandleFunc("POST /drawer/lines/{index}/quantity", s.handleChangeQuantity)
	mux.HandleFunc("POST /drawer/add", s.handleAdd)
	mux.HandleFunc("POST /drawer/note", s.handleNote)
	mux.HandleFunc("POST /drawer/note/toggle", s.handleNoteToggle)
	mux.HandleFunc("POST /drawer/discount", s.handleDiscount)
	mux.HandleFunc("POST /drawer/discount/clear", s.handleDiscountClear)
	mux.HandleFunc("GET /drawer/widgets/free-gift", s.handleFreeGift)
	mux.HandleFunc("GET /drawer/widgets/bogo", s.handleBogo)
	mux.HandleFunc("POST /drawer/widgets/bogo/add", s.handleBogoAdd)
	mux.HandleFunc("GET /drawer/widgets/reward-bar", s.handleRewardBar)
	mux.HandleFunc("GET /drawer/widgets/recommendations", s.handleRecommendations)
	mux.HandleFunc("POST /drawer/widgets/recommendations/add", s.handleRecommendationsAdd)
	return mux
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("drawer server is nil")
	}

	serveErr := make(chan error, 1)
	log.Printf("drawer listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// handleDrawer renders the enabled blocks in their configured order. Blocks
// the merchant left out never render, whatever their widget state.
func (s *Server) handleDrawer(w http.ResponseWriter, r *http.Request) {
	writeHTMLHeader(w)
	for _, block := range s.blocks {
		s.writeBlock(w, r, block)
	}
}

func (s *Server) writeBlock(w http.ResponseWriter, r *http.Request, block Block) {
	switch block {
	case BlockAnnouncementBar:
		writeComponent(w, r, templates.AnnouncementBar(s.announcement))
	case BlockRewardBar:
		if bar := s.widgets.RewardBar; bar != nil {
			state := bar.State()
			writeComponent(w, r, templates.RewardBar(state.Fill, rewardBarMessage(state)))
		}
	case BlockItems:
		s.writeItems(w, r)
	case BlockNote:
		if s.note != nil {
			writeComponent(w, r, templates.NoteBlock(s.note.Text(), true, s.note.Collapsed()))
		}
	}
}

func (s *Server) writeItems(w http.ResponseWriter, r *http.Request) {
	if s.controller.IsEmpty() {
		writeComponent(w, r, templates.EmptyState())
		return
	}
	for _, view := range s.lines.Views() {
		fmt.Fprint(w, view.Markup)
	}
	fmt.Fprint(w, s.controller.FooterMarkup())
}

func (s *Server) handleLines(w http.ResponseWriter, r *http.Request) {
	writeHTMLHeader(w)
	for _, view := range s.lines.Views() {
		fmt.Fprint(w, view.Markup)
	}
}

func (s *Server) handleFooter(w http.ResponseWriter, r *http.Request) {
	writeHTMLHeader(w)
	fmt.Fprint(w, s.controller.FooterMarkup())
}

func (s *Server) handleLauncher(w http.ResponseWriter, r *http.Request) {
	writeHTMLComponent(w, r, templates.StickyLauncher(s.controller.BadgeCount()))
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	s.controller.Open(r.Context())
	s.handleDrawer(w, r)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.controller.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	lineIndex, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "malformed line index", http.StatusBadRequest)
		return
	}
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed quantity payload", http.StatusBadRequest)
		return
	}

	if err := s.lines.ChangeQuantity(r.Context(), lineIndex, payload.Quantity); err != nil {
		writeError(w, err)
		return
	}
	s.handleLines(w, r)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		VariantID int64 `json:"variant_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed add payload", http.StatusBadRequest)
		return
	}

	if err := s.controller.AddProduct(r.Context(), payload.VariantID, payload.Quantity); err != nil {
		writeError(w, err)
		return
	}
	s.handleDrawer(w, r)
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	if s.note == nil {
		http.NotFound(w, r)
		return
	}
	var payload struct {
		Note string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed note payload", http.StatusBadRequest)
		return
	}
	s.note.SetText(r.Context(), payload.Note)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleNoteToggle(w http.ResponseWriter, r *http.Request) {
	if s.note == nil {
		http.NotFound(w, r)
		return
	}
	s.note.ToggleCollapsed()
	writeHTMLComponent(w, r, templates.NoteBlock(s.note.Text(), true, s.note.Collapsed()))
}

func (s *Server) handleDiscount(w http.ResponseWriter, r *http.Request) {
	if s.discount == nil {
		http.NotFound(w, r)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed discount payload", http.StatusBadRequest)
		return
	}
	if payload.Code == "" {
		http.Error(w, "discount code is required", http.StatusUnprocessableEntity)
		return
	}

	if err := s.discount.Apply(r.Context(), payload.Code); err != nil {
		writeJSON(w, map[string]string{"error": s.discount.LastError()}, apperrors.CodeOf(err).HTTPStatus())
		return
	}
	writeJSON(w, map[string]string{"status": "applied"}, http.StatusOK)
}

func (s *Server) handleDiscountClear(w http.ResponseWriter, r *http.Request) {
	if s.discount == nil {
		http.NotFound(w, r)
		return
	}
	if err := s.discount.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFreeGift(w http.ResponseWriter, r *http.Request) {
	gift := s.widgets.FreeGift
	if gift == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"visible":   gift.Visible(),
		"remaining": gift.Remaining(),
		"gift_name": gift.GiftName(),
	}, http.StatusOK)
}

func (s *Server) handleBogo(w http.ResponseWriter, r *http.Request) {
	bogo := s.widgets.Bogo
	if bogo == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"visible": bogo.Visible(),
		"offers":  bogo.Offers(),
	}, http.StatusOK)
}

func (s *Server) handleBogoAdd(w http.ResponseWriter, r *http.Request) {
	bogo := s.widgets.Bogo
	if bogo == nil {
		http.NotFound(w, r)
		return
	}
	var payload struct {
		VariantID int64 `json:"variant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed gift payload", http.StatusBadRequest)
		return
	}
	if err := bogo.AddGift(r.Context(), payload.VariantID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRewardBar(w http.ResponseWriter, r *http.Request) {
	bar := s.widgets.RewardBar
	if bar == nil {
		http.NotFound(w, r)
		return
	}
	state := bar.State()
	writeHTMLComponent(w, r, templates.RewardBar(state.Fill, rewardBarMessage(state)))
}

func rewardBarMessage(state promo.RewardBarState) string {
	switch {
	case state.SpendMessage != "" && state.AppliedMessage != "":
		return state.AppliedMessage + " " + state.SpendMessage
	case state.SpendMessage != "":
		return state.SpendMessage
	default:
		return state.AppliedMessage
	}
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs := s.widgets.Recommendations
	if recs == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"visible":  recs.Visible(),
		"products": recs.Items(),
	}, http.StatusOK)
}

func (s *Server) handleRecommendationsAdd(w http.ResponseWriter, r *http.Request) {
	recs := s.widgets.Recommendations
	if recs == nil {
		http.NotFound(w, r)
		return
	}
	var payload struct {
		VariantID int64 `json:"variant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "malformed add payload", http.StatusBadRequest)
		return
	}
	if err := recs.AddProduct(r.Context(), payload.VariantID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeHTMLHeader(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

func writeHTMLComponent(w http.ResponseWriter, r *http.Request, component templ.Component) {
	writeHTMLHeader(w)
	writeComponent(w, r, component)
}

func writeComponent(w http.ResponseWriter, r *http.Request, component templ.Component) {
	if err := component.Render(r.Context(), w); err != nil {
		log.Printf("render fragment: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
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
