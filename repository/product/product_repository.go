package product

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/johnshimelis/outlier-commerce/model"
	redisrepo "github.com/johnshimelis/outlier-commerce/repository/redis"
)

// ErrProductNotFound signals a catalog lookup that matched nothing.
var ErrProductNotFound = errors.New("product not found")

type SQL struct {
	conn     *sqlx.DB
	cache    redisrepo.Repository
	cacheTTL time.Duration
}

type ProductRepository interface {
	Insert(ctx context.Context, product *model.Product) (uint64, error)
	List(ctx context.Context, page, perPage int) ([]model.Product, int64, error)
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint64) error

	GetSummaryByID(ctx context.Context, id uint64) (*model.ProductSummary, error)
	GetSummaryByName(ctx context.Context, name string) (*model.ProductSummary, error)
	ApplyDeliveryAdjustmentTx(ctx context.Context, tx *sqlx.Tx, productID uint64, quantity int) error
}

func NewProductRepository(conn *sqlx.DB, cache redisrepo.Repository, cacheTTL time.Duration) ProductRepository {
	return &SQL{conn: conn, cache: cache, cacheTTL: cacheTTL}
}

const (
	productColumns = "id, name, description, price, image_url, image_key, stock, sold, category_id, created_at, updated_at"

	summaryColumns = "id, name, price, image_url, stock, sold"

	insertProductQuery = `INSERT INTO products (name, description, price, image_url, image_key, stock, sold, category_id)
VALUES (?, ?, ?, ?, ?, ?, 0, ?)`

	updateProductQuery = `UPDATE products
SET name = ?, description = ?, price = ?, image_url = ?, image_key = ?, stock = ?, category_id = ?
WHERE id = ?`

	// Delivery moves stock into sold. Applied once per order on the
	// transition edge, inside the status-update transaction.
	deliveryAdjustmentQuery = "UPDATE products SET stock = stock - ?, sold = sold + ? WHERE id = ?"
)

func summaryCacheKey(id uint64) string {
	return fmt.Sprintf("product:summary:%d", id)
}

func (s *SQL) Insert(ctx context.Context, product *model.Product) (uint64, error) {
	res, err := s.conn.ExecContext(ctx, insertProductQuery,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
		product.ImageKey,
		product.Stock,
		product.CategoryID,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (s *SQL) List(ctx context.Context, page, perPage int) ([]model.Product, int64, error) {
	offset := (page - 1) * perPage

	q := "SELECT " + productColumns + " FROM products ORDER BY id LIMIT ? OFFSET ?"
	rows, err := s.conn.QueryxContext(ctx, q, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.StructScan(&p); err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}

	// get total count
	var total int64
	if err := s.conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM products"); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (s *SQL) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	q := "SELECT " + productColumns + " FROM products WHERE id = ?"
	if err := s.conn.QueryRowxContext(ctx, q, id).StructScan(&p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *SQL) Update(ctx context.Context, product *model.Product) error {
	res, err := s.conn.ExecContext(ctx, updateProductQuery,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
		product.ImageKey,
		product.Stock,
		product.CategoryID,
		product.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	s.invalidateSummary(ctx, product.ID)
	return nil
}

func (s *SQL) Delete(ctx context.Context, id uint64) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	s.invalidateSummary(ctx, id)
	return nil
}

// GetSummaryByID resolves a catalog summary, reading through the Redis
// cache.
func (s *SQL) GetSummaryByID(ctx context.Context, id uint64) (*model.ProductSummary, error) {
	key := summaryCacheKey(id)
	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var summary model.ProductSummary
		if err := json.Unmarshal([]byte(cached), &summary); err == nil {
			return &summary, nil
		}
	}

	var summary model.ProductSummary
	q := "SELECT " + summaryColumns + " FROM products WHERE id = ?"
	if err := s.conn.QueryRowxContext(ctx, q, id).StructScan(&summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if raw, err := json.Marshal(&summary); err == nil {
		_ = s.cache.SetWithTTL(ctx, key, string(raw), s.cacheTTL)
	}
	return &summary, nil
}

// GetSummaryByName is the display-name fallback used when an order item
// carries no usable product id. Name lookups skip the cache.
func (s *SQL) GetSummaryByName(ctx context.Context, name string) (*model.ProductSummary, error) {
	var summary model.ProductSummary
	q := "SELECT " + summaryColumns + " FROM products WHERE name = ? ORDER BY id LIMIT 1"
	if err := s.conn.QueryRowxContext(ctx, q, name).StructScan(&summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &summary, nil
}

func (s *SQL) ApplyDeliveryAdjustmentTx(ctx context.Context, tx *sqlx.Tx, productID uint64, quantity int) error {
	if _, err := tx.ExecContext(ctx, deliveryAdjustmentQuery, quantity, quantity, productID); err != nil {
		return err
	}
	s.invalidateSummary(ctx, productID)
	return nil
}

func (s *SQL) invalidateSummary(ctx context.Context, id uint64) {
	_ = s.cache.Delete(ctx, summaryCacheKey(id))
}
