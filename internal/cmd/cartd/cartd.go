// Package cartd wires and runs the reference cart authority.
package cartd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/louisbranch/voocart/internal/cartd"
	"github.com/louisbranch/voocart/internal/cartd/storage/sqlite"
	"github.com/louisbranch/voocart/internal/catalog"
	"github.com/louisbranch/voocart/internal/platform/config"
)

const shutdownTimeout = 10 * time.Second

// Config holds the cartd command configuration.
type Config struct {
	HTTPAddr string `env:"VOOCART_CARTD_HTTP_ADDR" envDefault:"localhost:8090"`
	DBPath   string `env:"VOOCART_CARTD_DB_PATH" envDefault:"cartd.db"`
	SeedPath string `env:"VOOCART_CARTD_SEED"`
}

// ParseConfig loads configuration from the environment, then lets flags
// override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.StringVar(&cfg.SeedPath, "seed", cfg.SeedPath, "Catalog seed JSON file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run starts the cart authority.
func Run(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	if cfg.SeedPath != "" {
		products, err := loadSeed(cfg.SeedPath)
		if err != nil {
			return err
		}
		if err := store.SeedProducts(ctx, products); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		log.Printf("seeded %d products", len(products))
	}

	service := cartd.NewService(store, store)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           cartd.NewServer(service, store).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	log.Printf("cart authority listening on %s", cfg.HTTPAddr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := httpServer.Shutdown(shutdownCtx)
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

// loadSeed reads a catalog seed file: a JSON array of products with
// nested variants.
func loadSeed(path string) ([]catalog.Product, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var products []catalog.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return products, nil
}
