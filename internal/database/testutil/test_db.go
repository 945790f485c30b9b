package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/database"
)

// MustOpenTestDB opens a migrated in-memory SQLite database private to the calling test.
// The connection is closed via t.Cleanup.
func MustOpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	require.NoError(t, database.AutoMigrate(db))
	return db
}
