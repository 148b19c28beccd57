package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"ms-membership/internal/database"
	"ms-membership/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) conn(ctx context.Context) bun.IDB {
	return database.FromContext(ctx, d.Bun)
}

// CreateOrder inserts a new order. The unique index on order_ref makes a
// duplicate reference surface as a constraint violation here.
func (d *DB) CreateOrder(ctx context.Context, order models.Order) error {
	_, err := d.conn(ctx).NewInsert().Model(&order).Exec(ctx)
	return err
}

// GetOrderByRef fetches an order by its idempotency reference. A missing
// order is not an error: it returns (nil, nil).
func (d *DB) GetOrderByRef(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := d.conn(ctx).NewSelect().
		Model(&order).
		Where("order_ref = ?", ref).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.conn(ctx).NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrder persists a status transition.
func (d *DB) UpdateOrder(ctx context.Context, order models.Order) error {
	_, err := d.conn(ctx).NewUpdate().
		Model(&order).
		Column("status", "paid_at").
		Where("order_id = ?", order.OrderID).
		Exec(ctx)
	return err
}
