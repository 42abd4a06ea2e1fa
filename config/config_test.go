package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "etl")
	t.Setenv("DB_NAME", "lattes")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "stg", cfg.StageSchema)
	assert.Equal(t, "dw", cfg.WarehouseSchema)
	assert.Equal(t, "Não se aplica.", cfg.Sentinel)
	assert.Equal(t, 1900, cfg.MinYear)
	assert.Equal(t, 2025, cfg.MaxYear)
	assert.Equal(t, 2026, cfg.FactYearCutoff)
	assert.Equal(t, 2026, cfg.ValidatorMaxYear)
	assert.False(t, cfg.ReportUploadEnabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_HOST")
}

func TestLoad_SQLiteNeedsNoServer(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_NAME", "")

	cfg, err := Load(func(c *Config) {
		c.DBDriver = DriverSQLite
		c.SQLitePath = "local.db"
	})
	require.NoError(t, err)
	assert.Equal(t, "local.db", cfg.SQLitePath)
}

func TestLoad_UnknownDriver(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	assert.ErrorContains(t, err, "mysql")
}

func TestLoad_RejectsInvertedYearRange(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MIN_YEAR", "2030")
	t.Setenv("MAX_YEAR", "2000")

	_, err := Load()
	assert.ErrorContains(t, err, "MIN_YEAR")
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5433, DBUser: "u", DBPassword: "p", DBName: "lattes",
		DBSSLMode: "disable", StageSchema: "stg", WarehouseSchema: "dw",
	}
	assert.Equal(t,
		"host=db user=u password=p dbname=lattes port=5433 sslmode=disable search_path=dw,stg",
		cfg.DSN())
}
