// Package sqlite provides SQLite-backed persistence for the cart
// authority: carts and their lines keyed by session token, plus the
// product catalog served by the product endpoints.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/voocart/internal/cartd"
	"github.com/louisbranch/voocart/internal/cartd/storage/sqlite/migrations"
	"github.com/louisbranch/voocart/internal/catalog"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed cart and catalog persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and migrates a cart SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetCart loads a cart and its lines by session token.
func (s *Store) GetCart(ctx context.Context, token string) (cartd.CartRecord, bool, error) {
	if s == nil || s.sqlDB == nil {
		return cartd.CartRecord{}, false, fmt.Errorf("storage is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return cartd.CartRecord{}, false, fmt.Errorf("cart token is required")
	}

	record := cartd.CartRecord{Token: token}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT note FROM carts WHERE token = ?`, token)
	if err := row.Scan(&record.Note); err != nil {
		if err == sql.ErrNoRows {
			return cartd.CartRecord{}, false, nil
		}
		return cartd.CartRecord{}, false, fmt.Errorf("get cart: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT variant_id, product_id, handle, title, variant_title, image, quantity, unit_price
		 FROM cart_lines
		 WHERE cart_token = ?
		 ORDER BY position`,
		token,
	)
	if err != nil {
		return cartd.CartRecord{}, false, fmt.Errorf("get cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line cartd.LineRecord
		if err := rows.Scan(
			&line.VariantID,
			&line.ProductID,
			&line.Handle,
			&line.Title,
			&line.VariantTitle,
			&line.Image,
			&line.Quantity,
			&line.UnitPrice,
		); err != nil {
			return cartd.CartRecord{}, false, fmt.Errorf("scan cart line: %w", err)
		}
		record.Lines = append(record.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return cartd.CartRecord{}, false, fmt.Errorf("iterate cart lines: %w", err)
	}
	return record, true, nil
}

// SaveCart upserts a cart and replaces its lines in one transaction.
func (s *Store) SaveCart(ctx context.Context, record cartd.CartRecord) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	record.Token = strings.TrimSpace(record.Token)
	if record.Token == "" {
		return fmt.Errorf("cart token is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save cart: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO carts (token, note, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET note = excluded.note, updated_at = excluded.updated_at`,
		record.Token, record.Note, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_token = ?`, record.Token); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	for i, line := range record.Lines {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO cart_lines
			 (cart_token, position, variant_id, product_id, handle, title, variant_title, image, quantity, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.Token, i+1, line.VariantID, line.ProductID, line.Handle,
			line.Title, line.VariantTitle, line.Image, line.Quantity, line.UnitPrice,
		); err != nil {
			return fmt.Errorf("insert cart line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save cart: %w", err)
	}
	return nil
}

// SeedProducts inserts or replaces catalog products and their variants.
func (s *Store) SeedProducts(ctx context.Context, products []catalog.Product) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, product := range products {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO products (id, handle, title, featured_image, price) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   handle = excluded.handle, title = excluded.title,
			   featured_image = excluded.featured_image, price = excluded.price`,
			product.ID, product.Handle, product.Title, product.FeaturedImage, product.Price,
		); err != nil {
			return fmt.Errorf("upsert product %d: %w", product.ID, err)
		}
		for _, variant := range product.Variants {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO variants (id, product_id, title, name, price, compare_at_price, available)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET
				   product_id = excluded.product_id, title = excluded.title, name = excluded.name,
				   price = excluded.price, compare_at_price = excluded.compare_at_price,
				   available = excluded.available`,
				variant.ID, product.ID, variant.Title, variant.Name,
				variant.Price, variant.CompareAtPrice, boolToInt(variant.Available),
			); err != nil {
				return fmt.Errorf("upsert variant %d: %w", variant.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// VariantProduct resolves a variant and its product.
func (s *Store) VariantProduct(ctx context.Context, variantID int64) (catalog.Product, catalog.Variant, bool, error) {
	if s == nil || s.sqlDB == nil {
		return catalog.Product{}, catalog.Variant{}, false, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT p.id, p.handle, p.title, p.featured_image, p.price,
		        v.id, v.title, v.name, v.price, v.compare_at_price, v.available
		 FROM variants v JOIN products p ON p.id = v.product_id
		 WHERE v.id = ?`,
		variantID,
	)

	var product catalog.Product
	var variant catalog.Variant
	var available int64
	if err := row.Scan(
		&product.ID, &product.Handle, &product.Title, &product.FeaturedImage, &product.Price,
		&variant.ID, &variant.Title, &variant.Name, &variant.Price, &variant.CompareAtPrice, &available,
	); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Product{}, catalog.Variant{}, false, nil
		}
		return catalog.Product{}, catalog.Variant{}, false, fmt.Errorf("get variant: %w", err)
	}
	variant.Available = available != 0
	return product, variant, true, nil
}

// ProductByHandle loads a product and its variants by handle.
func (s *Store) ProductByHandle(ctx context.Context, handle string) (catalog.Product, bool, error) {
	if s == nil || s.sqlDB == nil {
		return catalog.Product{}, false, fmt.Errorf("storage is not configured")
	}

	var product catalog.Product
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, handle, title, featured_image, price FROM products WHERE handle = ?`,
		strings.TrimSpace(handle),
	)
	if err := row.Scan(&product.ID, &product.Handle, &product.Title, &product.FeaturedImage, &product.Price); err != nil {
		if err == sql.ErrNoRows {
			return catalog.Product{}, false, nil
		}
		return catalog.Product{}, false, fmt.Errorf("get product: %w", err)
	}

	variants, err := s.productVariants(ctx, product.ID)
	if err != nil {
		return catalog.Product{}, false, err
	}
	product.Variants = variants
	return product, true, nil
}

// Recommendations returns other products, excluding the seed product,
// capped at limit.
func (s *Store) Recommendations(ctx context.Context, productID int64, limit int) ([]catalog.Product, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit < 1 {
		limit = 4
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, handle, title, featured_image, price FROM products WHERE id != ? ORDER BY id LIMIT ?`,
		productID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	for rows.Next() {
		var product catalog.Product
		if err := rows.Scan(&product.ID, &product.Handle, &product.Title, &product.FeaturedImage, &product.Price); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}

	for i := range products {
		variants, err := s.productVariants(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Variants = variants
	}
	return products, nil
}

func (s *Store) productVariants(ctx context.Context, productID int64) ([]catalog.Variant, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, title, name, price, compare_at_price, available FROM variants WHERE product_id = ? ORDER BY id`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("get product variants: %w", err)
	}
	defer rows.Close()

	var variants []catalog.Variant
	for rows.Next() {
		var variant catalog.Variant
		var available int64
		if err := rows.Scan(&variant.ID, &variant.Title, &variant.Name, &variant.Price, &variant.CompareAtPrice, &available); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variant.Available = available != 0
		variants = append(variants, variant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return variants, nil
}

// runMigrations applies embedded SQL migrations in filename order.
func (s *Store) runMigrations() error {
	return applyMigrations(s.sqlDB, migrations.FS)
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
