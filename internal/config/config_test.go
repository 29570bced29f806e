package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_USER", "crm")
	t.Setenv("DB_NAME", "crm_test")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 3, cfg.Database.TxMaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRequiresDatabaseName(t *testing.T) {
	t.Setenv("DB_USER", "crm")
	t.Setenv("DB_NAME", "")

	_, err := load(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_NAME")
}

func TestDatabaseURLs(t *testing.T) {
	t.Setenv("DB_USER", "crm")
	t.Setenv("DB_PASSWORD", "p@ss")
	t.Setenv("DB_NAME", "sales")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres://crm:p%40ss@db:6543/sales?sslmode=disable", cfg.GetDSN())
	assert.Equal(t, "postgres://crm:p%40ss@db:6543/postgres?sslmode=disable", cfg.GetMaintenanceDSN())
	assert.Equal(t, "pgx5://crm:p%40ss@db:6543/sales?sslmode=disable", cfg.GetMigrationDBURL())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
