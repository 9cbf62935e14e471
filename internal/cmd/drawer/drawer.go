// Package drawer wires and runs the drawer service.
package drawer

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"os"

	"github.com/benbjohnson/clock"

	"github.com/louisbranch/voocart/internal/cart/client"
	"github.com/louisbranch/voocart/internal/catalog"
	"github.com/louisbranch/voocart/internal/discount"
	"github.com/louisbranch/voocart/internal/drawer"
	"github.com/louisbranch/voocart/internal/drawer/server"
	"github.com/louisbranch/voocart/internal/drawer/templates"
	"github.com/louisbranch/voocart/internal/platform/config"
	"github.com/louisbranch/voocart/internal/platform/money"
	"github.com/louisbranch/voocart/internal/platform/otel"
	"github.com/louisbranch/voocart/internal/promo"
)

// Config holds the drawer command configuration.
type Config struct {
	HTTPAddr     string `env:"VOOCART_DRAWER_HTTP_ADDR" envDefault:"localhost:8091"`
	CartBaseURL  string `env:"VOOCART_DRAWER_CART_BASE_URL" envDefault:"http://localhost:8090"`
	SettingsPath string `env:"VOOCART_DRAWER_SETTINGS"`
	RulesPath    string `env:"VOOCART_DRAWER_RULES"`
}

// ParseConfig loads configuration from the environment, then lets flags
// override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.CartBaseURL, "cart-base-url", cfg.CartBaseURL, "Cart authority base URL")
	fs.StringVar(&cfg.SettingsPath, "settings", cfg.SettingsPath, "Merchant settings JSON file")
	fs.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "Lua promotion rules file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Settings is the merchant-editable drawer configuration.
type Settings struct {
	Blocks           []string `json:"blocks"`
	AnnouncementText string   `json:"announcement_text"`
	MoneyFormat      string   `json:"money_format"`
	NoteCollapsible  bool     `json:"note_collapsible"`

	FreeGift        *FreeGiftSettings        `json:"free_gift"`
	BogoPairs       []BogoPairSettings       `json:"bogo_pairs"`
	RewardTiers     []RewardTierSettings     `json:"reward_tiers"`
	Recommendations *RecommendationsSettings `json:"recommendations"`
	Discount        *DiscountSettings        `json:"discount"`
}

// FreeGiftSettings configures the threshold free-gift widget.
type FreeGiftSettings struct {
	GiftVariantID int64 `json:"gift_variant_id"`
	TargetTotal   int64 `json:"target_total"`
}

// BogoPairSettings configures one trigger/gift pair. Empty variant lists
// match at the product level.
type BogoPairSettings struct {
	TriggerProductID  int64   `json:"trigger_product_id"`
	TriggerVariantIDs []int64 `json:"trigger_variant_ids"`
	GiftProductHandle string  `json:"gift_product_handle"`
	GiftVariantIDs    []int64 `json:"gift_variant_ids"`
}

// RewardTierSettings configures one reward-bar tier.
type RewardTierSettings struct {
	Target int64  `json:"target"`
	Title  string `json:"title"`
}

// RecommendationsSettings configures the recommendations widget. Curated
// lists product handles resolved against the catalog at startup.
type RecommendationsSettings struct {
	Curated []string `json:"curated"`
	UseAPI  bool     `json:"use_api"`
	Limit   int      `json:"limit"`
}

// DiscountSettings configures the discount side channel.
type DiscountSettings struct {
	BaseURL  string `json:"base_url"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

// LoadSettings reads merchant settings from a JSON file. An empty path
// yields zero settings, which disables every optional block.
func LoadSettings(path string) (Settings, error) {
	if path == "" {
		return Settings{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return settings, nil
}

// Run starts the drawer service.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := otel.Setup(ctx, "drawer")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	settings, err := LoadSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}

	// One cookie jar per process: the engine is one shopper session, and
	// the cart authority keys the session off a cookie.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("init cookie jar: %w", err)
	}
	httpClient := &http.Client{Jar: jar}

	cartClient := client.New(client.DefaultRoutes(cfg.CartBaseURL), httpClient)
	catalogClient := catalog.NewClient(cfg.CartBaseURL, httpClient)

	formatter := money.New(settings.MoneyFormat)
	renderer := templates.New(formatter)

	holder := &drawer.SnapshotHolder{}
	registry := &drawer.BindingRegistry{}
	lines := drawer.NewLineItemList(cartClient, renderer, holder, registry)
	controller := drawer.NewController(cartClient, renderer, lines, holder, &drawer.Broadcaster{})

	var rules *promo.RuleSet
	if cfg.RulesPath != "" {
		script, err := os.ReadFile(cfg.RulesPath)
		if err != nil {
			return fmt.Errorf("read rules: %w", err)
		}
		rules, err = promo.CompileRules(string(script))
		if err != nil {
			return fmt.Errorf("compile rules: %w", err)
		}
	}

	widgets, err := mountWidgets(ctx, settings, cartClient, catalogClient, controller, holder, formatter, rules)
	if err != nil {
		return err
	}

	note := drawer.NewNoteWidget(cartClient, clock.New(), settings.NoteCollapsible)
	if err := note.Load(ctx); err != nil {
		log.Printf("load note: %v", err)
	}

	var applicator *discount.Applicator
	if settings.Discount != nil {
		base := settings.Discount.BaseURL
		if base == "" {
			base = cfg.CartBaseURL
		}
		applicator = discount.NewApplicator(
			discount.DefaultRoutes(base), httpClient, cartClient, controller,
			&discount.MemoryStore{}, settings.Discount.Country, settings.Discount.Currency,
		)
		if err := applicator.ApplySaved(ctx); err != nil {
			log.Printf("re-apply saved discount: %v", err)
		}
	}

	if err := controller.RefreshDynamicContent(ctx, drawer.ReasonRefresh); err != nil {
		log.Printf("initial refresh: %v", err)
	}

	blocks := make([]server.Block, 0, len(settings.Blocks))
	for _, name := range settings.Blocks {
		blocks = append(blocks, server.Block(name))
	}

	srv, err := server.NewServer(server.Config{
		HTTPAddr:         cfg.HTTPAddr,
		AnnouncementText: settings.AnnouncementText,
		Blocks:           blocks,
		Controller:       controller,
		Lines:            lines,
		Note:             note,
		Discount:         applicator,
		Widgets:          widgets,
	})
	if err != nil {
		return fmt.Errorf("init drawer server: %w", err)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve drawer: %w", err)
	}
	return nil
}

func mountWidgets(ctx context.Context, settings Settings, cartClient *client.Client, catalogClient *catalog.Client, controller *drawer.Controller, holder *drawer.SnapshotHolder, formatter *money.Formatter, rules *promo.RuleSet) (server.Widgets, error) {
	var widgets server.Widgets
	broadcaster := controller.Broadcaster()

	if s := settings.FreeGift; s != nil {
		widgets.FreeGift = promo.NewFreeGift(cartClient, controller, catalogClient, holder, rules, promo.FreeGiftConfig{
			GiftVariantID: s.GiftVariantID,
			TargetTotal:   s.TargetTotal,
		})
		widgets.FreeGift.Mount(ctx, broadcaster)
	}

	if len(settings.BogoPairs) > 0 {
		pairs, err := resolveBogoPairs(ctx, settings.BogoPairs, catalogClient)
		if err != nil {
			return server.Widgets{}, err
		}
		widgets.Bogo = promo.NewBogo(cartClient, controller, holder, pairs)
		widgets.Bogo.Mount(broadcaster)
	}

	if len(settings.RewardTiers) > 0 {
		tiers := make([]promo.RewardTier, 0, len(settings.RewardTiers))
		for _, tier := range settings.RewardTiers {
			tiers = append(tiers, promo.RewardTier{Target: tier.Target, Title: tier.Title})
		}
		widgets.RewardBar = promo.NewRewardBar(cartClient, holder, formatter, tiers)
		widgets.RewardBar.Mount(broadcaster)
	}

	if s := settings.Recommendations; s != nil {
		curated := make([]catalog.Product, 0, len(s.Curated))
		for _, handle := range s.Curated {
			product, err := catalogClient.Product(ctx, handle)
			if err != nil {
				return server.Widgets{}, fmt.Errorf("resolve curated product %q: %w", handle, err)
			}
			curated = append(curated, product)
		}
		widgets.Recommendations = promo.NewRecommendations(cartClient, catalogClient, controller, holder, promo.RecommendationsConfig{
			Curated: curated,
			UseAPI:  s.UseAPI,
			Limit:   s.Limit,
		})
		widgets.Recommendations.Mount(broadcaster)
	}

	return widgets, nil
}

// resolveBogoPairs hydrates gift product handles into catalog products so
// the widget can offer titles, images, and variant prices.
func resolveBogoPairs(ctx context.Context, pairSettings []BogoPairSettings, catalogClient *catalog.Client) ([]promo.BogoPair, error) {
	pairs := make([]promo.BogoPair, 0, len(pairSettings))
	for _, s := range pairSettings {
		product, err := catalogClient.Product(ctx, s.GiftProductHandle)
		if err != nil {
			return nil, fmt.Errorf("resolve gift product %q: %w", s.GiftProductHandle, err)
		}
		pairs = append(pairs, promo.BogoPair{
			TriggerProductID:  s.TriggerProductID,
			TriggerVariantIDs: s.TriggerVariantIDs,
			GiftProduct:       product,
			GiftVariantIDs:    s.GiftVariantIDs,
		})
	}
	return pairs, nil
}
