package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/barangay/internal/models"
)

func TestOpenSQLiteMemoryAndMigrate(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Ping(db))
	require.NoError(t, AutoMigrate(db))

	for _, model := range Models() {
		require.True(t, db.Migrator().HasTable(model), "%T", model)
	}
}

func TestBootstrapClaimIsSingleton(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.BootstrapClaim{ID: models.FirstAccountClaimID, AccountID: "a"}).Error)
	require.Error(t, db.Create(&models.BootstrapClaim{ID: models.FirstAccountClaimID, AccountID: "b"}).Error)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
