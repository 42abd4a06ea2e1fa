package storage

import (
	"context"
	"fmt"
	"strings"

	"lattes-dw/config"
	"lattes-dw/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Schemas names the two PostgreSQL schemas. SQLite ignores them.
type Schemas struct {
	Stage     string
	Warehouse string
}

// SchemasFromConfig reads the schema names from cfg.
func SchemasFromConfig(cfg *config.Config) Schemas {
	return Schemas{Stage: cfg.StageSchema, Warehouse: cfg.WarehouseSchema}
}

// Open connects to PostgreSQL. The DSN carries the search_path, so models use
// unqualified table names.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}

// OpenFromConfig opens the database named by cfg.DBDriver.
func OpenFromConfig(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == config.DriverSQLite {
		return OpenSQLite(cfg.SQLitePath)
	}
	return Open(cfg)
}

// OpenSQLite opens a SQLite database, for local runs without a PostgreSQL server.
// A single connection keeps in-memory databases consistent across transactions.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func isPostgres(db *gorm.DB) bool { return db.Dialector.Name() == "postgres" }

// Migrate creates the warehouse tables and the run log. With includeStaging the
// staging tables are created too; in production they belong to the extraction job.
func Migrate(ctx context.Context, db *gorm.DB, schemas Schemas, includeStaging bool) error {
	db = db.WithContext(ctx)

	warehouse := append(append(models.DimensionModels(), models.FactModels()...), &models.PipelineRun{})
	if !isPostgres(db) {
		if includeStaging {
			warehouse = append(warehouse, models.StageModels()...)
		}
		return db.AutoMigrate(warehouse...)
	}

	for _, schema := range []string{schemas.Warehouse, schemas.Stage} {
		if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + quoteIdent(schema)).Error; err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}
	if err := migrateIn(db, schemas.Warehouse, warehouse); err != nil {
		return err
	}
	if includeStaging {
		return migrateIn(db, schemas.Stage, models.StageModels())
	}
	return nil
}

func migrateIn(db *gorm.DB, schema string, tables []any) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SET LOCAL search_path TO " + quoteIdent(schema)).Error; err != nil {
			return err
		}
		if err := tx.AutoMigrate(tables...); err != nil {
			return fmt.Errorf("migrate schema %s: %w", schema, err)
		}
		return nil
	})
}

type tabler interface{ TableName() string }

// WarehouseTables lists every dimension and fact table.
func WarehouseTables() []string {
	var names []string
	for _, m := range append(models.DimensionModels(), models.FactModels()...) {
		names = append(names, m.(tabler).TableName())
	}
	return names
}

// Truncate empties every dimension and fact table and resets their sequences.
// The run log and staging are left alone.
func Truncate(ctx context.Context, db *gorm.DB) error {
	tables := WarehouseTables()
	db = db.WithContext(ctx)

	if isPostgres(db) {
		quoted := make([]string, len(tables))
		for i, t := range tables {
			quoted[i] = quoteIdent(t)
		}
		stmt := "TRUNCATE TABLE " + strings.Join(quoted, ", ") + " RESTART IDENTITY CASCADE"
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("truncate warehouse: %w", err)
		}
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Exec("DELETE FROM " + quoteIdent(t)).Error; err != nil {
				return fmt.Errorf("truncate %s: %w", t, err)
			}
		}
		if tx.Migrator().HasTable("sqlite_sequence") {
			return tx.Exec("DELETE FROM sqlite_sequence WHERE name IN ?", tables).Error
		}
		return nil
	})
}

// Ping checks that the database answers.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
