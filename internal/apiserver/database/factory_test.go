package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncwave/crm/internal/common/config"
)

func TestNewDatabase_Factory(t *testing.T) {
	_, err := NewDatabase(&config.DatabaseConfig{Type: "unknown"})
	assert.Error(t, err)

	db, err := NewDatabase(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)
	_, ok := db.(*SQLite)
	assert.True(t, ok)
	assert.NoError(t, db.Close())

	// nothing listens on port 1, so opening fails fast
	_, err = NewDatabase(&config.DatabaseConfig{Type: "mysql", Host: "127.0.0.1", Port: 1, User: "u", Password: "p", DBName: "d"})
	assert.Error(t, err)
}

func TestNewSQLite_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	db, err := NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: dir + "/nested/crm.db"})
	require.NoError(t, err)
	assert.FileExists(t, dir+"/nested/crm.db")
	assert.NoError(t, db.Close())
}
