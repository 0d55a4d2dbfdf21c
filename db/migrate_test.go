package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMigrate_CreatesSchema(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, Migrate(conn, nil))

	for _, table := range []string{
		"schema_migrations",
		"workflow_schedules",
		"notebook_schedules",
		"sync_schedules",
		"pass_history",
	} {
		var name string
		err := conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "expected table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, Migrate(conn, nil))
	require.NoError(t, Migrate(conn, nil))

	var applied int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 5, applied)
}

func TestMigrate_NotebookHasExecutionBudget(t *testing.T) {
	conn := openTestDB(t)
	require.NoError(t, Migrate(conn, nil))

	// max_executions exists only on the notebook table
	_, err := conn.Exec("SELECT max_executions FROM notebook_schedules LIMIT 1")
	assert.NoError(t, err)
	_, err = conn.Exec("SELECT max_executions FROM workflow_schedules LIMIT 1")
	assert.Error(t, err)
}
