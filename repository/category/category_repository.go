package category

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/johnshimelis/outlier-commerce/model"
)

var ErrCategoryNotFound = errors.New("category not found")

type SQL struct {
	conn *sqlx.DB
}

type CategoryRepository interface {
	Insert(ctx context.Context, category *model.Category) (uint64, error)
	List(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id uint64) (*model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uint64) error
}

func NewCategoryRepository(conn *sqlx.DB) CategoryRepository {
	return &SQL{conn: conn}
}

const categoryColumns = "id, name, description, created_at, updated_at"

func (r *SQL) Insert(ctx context.Context, category *model.Category) (uint64, error) {
	res, err := r.conn.ExecContext(ctx, "INSERT INTO categories (name, description) VALUES (?, ?)", category.Name, category.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *SQL) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.conn.QueryxContext(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := rows.StructScan(&c); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

func (r *SQL) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	var c model.Category
	if err := r.conn.QueryRowxContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id).StructScan(&c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *SQL) Update(ctx context.Context, category *model.Category) error {
	res, err := r.conn.ExecContext(ctx, "UPDATE categories SET name = ?, description = ? WHERE id = ?", category.Name, category.Description, category.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *SQL) Delete(ctx context.Context, id uint64) error {
	res, err := r.conn.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
