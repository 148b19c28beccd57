package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-membership/internal/models"
)

// Migrate creates the orders and memberships tables with the unique
// indexes the workflow's idempotency guarantees depend on.
func Migrate(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Order)(nil),
		(*models.Membership)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table failed: %w", err)
		}
	}

	// The unique index on order_ref is the concurrency-safety mechanism:
	// two concurrent pledges with the same reference must not both insert.
	indexes := []struct {
		name   string
		model  interface{}
		column string
	}{
		{"idx_orders_order_ref", (*models.Order)(nil), "order_ref"},
		{"idx_memberships_member_no", (*models.Membership)(nil), "member_no"},
	}
	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			Unique().
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s failed: %w", idx.name, err)
		}
	}

	return nil
}
