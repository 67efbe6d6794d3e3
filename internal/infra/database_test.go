package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase_SqliteMigrates(t *testing.T) {
	db, err := NewDatabase("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	for _, table := range []string{"shops", "users", "products", "sales", "activity_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("sales", "idx_sales_date_key"))

	// idempotent
	assert.NoError(t, Migrate(db))
}

func TestNewDatabase_UnknownDriver(t *testing.T) {
	_, err := NewDatabase("oracle", "whatever")
	assert.ErrorContains(t, err, "unsupported")
}
