package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "barangay", Name: "records"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=barangay dbname=records TimeZone=UTC sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.ph",
		Port:     6543,
		Password: "pass",
		Options:  map[string]string{"sslmode": "require"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db.example.ph")
	require.Contains(t, dsn, "port=6543")
	require.Contains(t, dsn, "password=pass")
	require.Contains(t, dsn, "sslmode=require")
	require.NotContains(t, dsn, "sslmode=disable")
}

func TestBuildDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "barangay", Name: "records"})
	require.NoError(t, err)
	require.Equal(t, "barangay@tcp(127.0.0.1:3306)/records?charset=utf8mb4&loc=UTC&parseTime=True", dsn)
}

func TestBuildMySQLDSNPassthrough(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{DSN: "custom"})
	require.NoError(t, err)
	require.Equal(t, "custom", dsn)
}
