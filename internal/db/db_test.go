package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/accountd/internal/db"
	"github.com/xxxsen/accountd/test/testutil"
)

func TestApplyMigrations_RecordsAndSkipsApplied(t *testing.T) {
	conn, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.ApplyMigrations(ctx, conn))

	var names []string
	rows, err := conn.QueryContext(ctx, "SELECT name FROM schema_migrations ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"0001_users.sql", "0002_otp_records.sql"}, names)
}
