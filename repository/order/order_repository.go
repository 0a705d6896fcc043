package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/johnshimelis/outlier-commerce/model"
)

var (
	// ErrNotFound signals a lookup by sequence id that matched nothing.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateSequence signals an insert that collided on the
	// sequence_id unique index.
	ErrDuplicateSequence = errors.New("sequence id already used")
)

const mysqlDuplicateEntry = 1062

type SQL struct {
	conn *sqlx.DB
}

type OrderRepository interface {
	NextSequenceID(ctx context.Context) (uint64, error)
	Insert(ctx context.Context, order *model.Order) (uint64, error)
	GetBySequenceID(ctx context.Context, sequenceID uint64) (*model.Order, error)
	GetBySequenceIDTx(ctx context.Context, tx *sqlx.Tx, sequenceID uint64) (*model.Order, error)
	List(ctx context.Context, page, perPage int) ([]model.Order, int64, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, sequenceID uint64, status string) error
	DeleteBySequenceID(ctx context.Context, sequenceID uint64) error
	DeleteAll(ctx context.Context) error
}

func NewOrderRepository(conn *sqlx.DB) OrderRepository {
	return &SQL{conn: conn}
}

const (
	// LAST_INSERT_ID(expr) makes the incremented counter readable from
	// this connection without a second round trip, and the single UPDATE
	// is atomic under concurrent callers.
	nextSequenceQuery = "UPDATE order_sequence SET value = LAST_INSERT_ID(value + 1) WHERE id = 1"

	insertOrderQuery = `INSERT INTO orders
(sequence_id, user_id, customer_name, phone_number, delivery_address, total_amount, status, payment_proof_url, line_items, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectOrderColumns = "id, sequence_id, user_id, customer_name, phone_number, delivery_address, total_amount, status, payment_proof_url, line_items, created_at, updated_at"
)

func (r *SQL) NextSequenceID(ctx context.Context) (uint64, error) {
	res, err := r.conn.ExecContext(ctx, nextSequenceQuery)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *SQL) Insert(ctx context.Context, order *model.Order) (uint64, error) {
	res, err := r.conn.ExecContext(ctx, insertOrderQuery,
		order.SequenceID,
		order.UserID,
		order.CustomerName,
		order.PhoneNumber,
		order.DeliveryAddress,
		order.TotalAmount,
		order.Status,
		order.PaymentProofURL,
		order.LineItems,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return 0, ErrDuplicateSequence
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *SQL) GetBySequenceID(ctx context.Context, sequenceID uint64) (*model.Order, error) {
	var order model.Order
	q := "SELECT " + selectOrderColumns + " FROM orders WHERE sequence_id = ?"
	if err := r.conn.QueryRowxContext(ctx, q, sequenceID).StructScan(&order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetBySequenceIDTx locks the order row so a concurrent status update
// cannot apply the delivery adjustment twice.
func (r *SQL) GetBySequenceIDTx(ctx context.Context, tx *sqlx.Tx, sequenceID uint64) (*model.Order, error) {
	var order model.Order
	q := "SELECT " + selectOrderColumns + " FROM orders WHERE sequence_id = ? FOR UPDATE"
	if err := tx.QueryRowxContext(ctx, q, sequenceID).StructScan(&order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *SQL) List(ctx context.Context, page, perPage int) ([]model.Order, int64, error) {
	offset := (page - 1) * perPage

	q := "SELECT " + selectOrderColumns + " FROM orders ORDER BY sequence_id DESC LIMIT ? OFFSET ?"
	rows, err := r.conn.QueryxContext(ctx, q, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]model.Order, 0)
	for rows.Next() {
		var o model.Order
		if err := rows.StructScan(&o); err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}

	var total int64
	if err := r.conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *SQL) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	q := "SELECT " + selectOrderColumns + " FROM orders WHERE user_id = ? ORDER BY sequence_id DESC"
	rows, err := r.conn.QueryxContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Order, 0)
	for rows.Next() {
		var o model.Order
		if err := rows.StructScan(&o); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, nil
}

func (r *SQL) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, sequenceID uint64, status string) error {
	_, err := tx.ExecContext(ctx, "UPDATE orders SET status = ?, updated_at = NOW() WHERE sequence_id = ?", status, sequenceID)
	return err
}

func (r *SQL) DeleteBySequenceID(ctx context.Context, sequenceID uint64) error {
	res, err := r.conn.ExecContext(ctx, "DELETE FROM orders WHERE sequence_id = ?", sequenceID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every order. The sequence counter is left untouched so
// sequence ids are never reissued.
func (r *SQL) DeleteAll(ctx context.Context) error {
	_, err := r.conn.ExecContext(ctx, "DELETE FROM orders")
	return err
}
