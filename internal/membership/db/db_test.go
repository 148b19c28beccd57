package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-membership/internal/database"
	"ms-membership/internal/membership/db"
	"ms-membership/internal/models"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, bunDB.ResetModel(context.Background(), (*models.Membership)(nil)))

	return &db.DB{Bun: bunDB}
}

func sampleMembership(id, memberNo, orderID string) models.Membership {
	return models.NewMembership(
		id, memberNo, orderID, "supporter", 3,
		"Jane Doe", "jane@example.com",
		time.Now().Round(time.Second),
	)
}

func TestCreateAndGetMemberships(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	batch := []models.Membership{
		sampleMembership("mem_1", "NC-2026-AAAA", "ord_1"),
		sampleMembership("mem_2", "NC-2026-BBBB", "ord_1"),
	}
	require.NoError(t, store.CreateMemberships(ctx, batch))

	got, err := store.GetMembershipsByOrder(ctx, "ord_1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.MembershipActive, got[0].Status)
}

func TestCreateMembershipsEmptyBatchIsNoop(t *testing.T) {
	store := setupTestDB(t)

	require.NoError(t, store.CreateMemberships(context.Background(), nil))
}

func TestDuplicateMemberNoIsUniqueViolation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMemberships(ctx, []models.Membership{
		sampleMembership("mem_1", "NC-2026-AAAA", "ord_1"),
	}))
	err := store.CreateMemberships(ctx, []models.Membership{
		sampleMembership("mem_2", "NC-2026-AAAA", "ord_2"),
	})

	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err), "expected unique violation, got: %v", err)
}

func TestGetMembershipByNo(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMemberships(ctx, []models.Membership{
		sampleMembership("mem_1", "NC-2026-AAAA", "ord_1"),
	}))

	got, err := store.GetMembershipByNo(ctx, "NC-2026-AAAA")
	require.NoError(t, err)
	assert.Equal(t, "mem_1", got.MembershipID)
}

func TestUpdateMembershipPersistsCancel(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	m := sampleMembership("mem_1", "NC-2026-AAAA", "ord_1")
	require.NoError(t, store.CreateMemberships(ctx, []models.Membership{m}))

	m.Cancel()
	require.NoError(t, store.UpdateMembership(ctx, m))

	got, err := store.GetMembershipByNo(ctx, "NC-2026-AAAA")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipCancelled, got.Status)
	// ValidUntil is untouched by the transition.
	assert.Equal(t, m.ValidUntil.Unix(), got.ValidUntil.Unix())
}
