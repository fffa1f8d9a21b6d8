package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stockflow/internal/models"
	"stockflow/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const pgUniqueViolation = "23505"

// PostgresCatalog stores products in a postgres table. Change
// notification is in-process: every mutation re-reads the table and
// republishes the snapshot through the hub.
type PostgresCatalog struct {
	db     *sqlx.DB
	hub    *hub
	logger *zap.Logger
}

// NewPostgresCatalog connects to postgres and verifies the connection.
func NewPostgresCatalog(databaseURL string) (*PostgresCatalog, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresCatalog{db: db, hub: newHub(), logger: util.GetLogger()}, nil
}

// Close closes the database connection.
func (c *PostgresCatalog) Close() error {
	return c.db.Close()
}

// Snapshot returns all products in insertion order.
func (c *PostgresCatalog) Snapshot(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := c.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY created_at, id")
	return products, err
}

// Subscribe registers fn and delivers an initial snapshot asynchronously.
func (c *PostgresCatalog) Subscribe(fn func([]models.Product)) func() {
	unsubscribe := c.hub.subscribe(fn)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		products, err := c.Snapshot(ctx)
		if err != nil {
			c.logger.Error("Failed to load initial catalog snapshot", zap.Error(err))
			return
		}
		fn(products)
	}()

	return unsubscribe
}

// Create inserts a new product row.
func (c *PostgresCatalog) Create(ctx context.Context, p models.Product) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO products (id, barcode, ean, name, description, mrp, cost_price_code, stock, low_inventory_factor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := c.db.ExecContext(ctx, query,
		p.ID, p.Barcode, p.EAN, p.Name, p.Description, p.MRP, p.CostPriceCode, p.Stock, p.LowInventoryFactor, p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	c.publishChanged()
	return nil
}

// Update merges the non-nil patch fields into the row.
func (c *PostgresCatalog) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	query := `
		UPDATE products SET
			name = COALESCE($1, name),
			description = COALESCE($2, description),
			mrp = COALESCE($3, mrp),
			cost_price_code = COALESCE($4, cost_price_code),
			stock = COALESCE($5, stock),
			low_inventory_factor = COALESCE($6, low_inventory_factor)
		WHERE id = $7`

	res, err := c.db.ExecContext(ctx, query,
		patch.Name, patch.Description, patch.MRP, patch.CostPriceCode, patch.Stock, patch.LowInventoryFactor, id)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c.publishChanged()
	return nil
}

// DecrementStock subtracts qty inside a transaction with a row lock, so
// concurrent registers cannot drive stock negative.
func (c *PostgresCatalog) DecrementStock(ctx context.Context, id string, qty int) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stock int
	err = tx.GetContext(ctx, &stock, "SELECT stock FROM products WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock product row: %w", err)
	}

	if stock < qty {
		return fmt.Errorf("%w: have %d, requested %d", ErrInsufficientStock, stock, qty)
	}

	_, err = tx.ExecContext(ctx, "UPDATE products SET stock = stock - $1 WHERE id = $2", qty, id)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	c.publishChanged()
	return nil
}

func (c *PostgresCatalog) publishChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	products, err := c.Snapshot(ctx)
	if err != nil {
		c.logger.Error("Failed to reload catalog snapshot after change", zap.Error(err))
		return
	}
	c.hub.publish(products)
}
