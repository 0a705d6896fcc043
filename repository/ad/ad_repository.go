package ad

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/johnshimelis/outlier-commerce/model"
)

var ErrAdNotFound = errors.New("ad not found")

type SQL struct {
	conn *sqlx.DB
}

type AdRepository interface {
	Insert(ctx context.Context, ad *model.Ad) (uint64, error)
	List(ctx context.Context, activeOnly bool) ([]model.Ad, error)
	GetByID(ctx context.Context, id uint64) (*model.Ad, error)
	Delete(ctx context.Context, id uint64) error
}

func NewAdRepository(conn *sqlx.DB) AdRepository {
	return &SQL{conn: conn}
}

const adColumns = "id, title, description, image_url, image_key, product_id, active, created_at, updated_at"

func (r *SQL) Insert(ctx context.Context, ad *model.Ad) (uint64, error) {
	res, err := r.conn.ExecContext(ctx,
		"INSERT INTO ads (title, description, image_url, image_key, product_id, active) VALUES (?, ?, ?, ?, ?, ?)",
		ad.Title, ad.Description, ad.ImageURL, ad.ImageKey, ad.ProductID, ad.Active,
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

func (r *SQL) List(ctx context.Context, activeOnly bool) ([]model.Ad, error) {
	q := "SELECT " + adColumns + " FROM ads"
	if activeOnly {
		q += " WHERE active = 1"
	}
	q += " ORDER BY id DESC"

	rows, err := r.conn.QueryxContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Ad, 0)
	for rows.Next() {
		var a model.Ad
		if err := rows.StructScan(&a); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *SQL) GetByID(ctx context.Context, id uint64) (*model.Ad, error) {
	var a model.Ad
	if err := r.conn.QueryRowxContext(ctx, "SELECT "+adColumns+" FROM ads WHERE id = ?", id).StructScan(&a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *SQL) Delete(ctx context.Context, id uint64) error {
	res, err := r.conn.ExecContext(ctx, "DELETE FROM ads WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAdNotFound
	}
	return nil
}
