package db

import (
	"context"

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

// CreateMemberships inserts all memberships of one order in a single
// statement so the fan-out is all-or-nothing even outside a wrapping
// transaction.
func (d *DB) CreateMemberships(ctx context.Context, memberships []models.Membership) error {
	if len(memberships) == 0 {
		return nil
	}
	_, err := d.conn(ctx).NewInsert().Model(&memberships).Exec(ctx)
	return err
}

func (d *DB) GetMembershipsByOrder(ctx context.Context, orderID string) ([]models.Membership, error) {
	var memberships []models.Membership
	err := d.conn(ctx).NewSelect().
		Model(&memberships).
		Where("order_id = ?", orderID).
		Order("issued_at").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (d *DB) GetMembershipByNo(ctx context.Context, memberNo string) (*models.Membership, error) {
	var membership models.Membership
	err := d.conn(ctx).NewSelect().
		Model(&membership).
		Where("member_no = ?", memberNo).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// UpdateMembership persists a status transition (cancel/expire).
func (d *DB) UpdateMembership(ctx context.Context, membership models.Membership) error {
	_, err := d.conn(ctx).NewUpdate().
		Model(&membership).
		Column("status", "user_id").
		Where("membership_id = ?", membership.MembershipID).
		Exec(ctx)
	return err
}
