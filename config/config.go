package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the warehouse needs, read from the environment.
type Config struct {
	// DBDriver is "postgres" or "sqlite". SQLite is for local runs and tests.
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"lattes-dw.db"`

	DBHost     string `envconfig:"DB_HOST"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Staging is written by the extraction scripts, the warehouse by this service.
	StageSchema     string `envconfig:"STAGE_SCHEMA" default:"stg"`
	WarehouseSchema string `envconfig:"WAREHOUSE_SCHEMA" default:"dw"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Empty disables the scheduled reload.
	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	Sentinel        string `envconfig:"SENTINEL" default:"Não se aplica."`
	HomeInstitution string `envconfig:"HOME_INSTITUTION" default:"Universidade Federal do Espírito Santo"`

	// The three year bounds are intentionally independent, see DESIGN.md.
	MinYear          int `envconfig:"MIN_YEAR" default:"1900"`
	MaxYear          int `envconfig:"MAX_YEAR" default:"2025"`
	FactYearCutoff   int `envconfig:"FACT_YEAR_CUTOFF" default:"2026"`
	ValidatorMaxYear int `envconfig:"VALIDATOR_MAX_YEAR" default:"2026"`

	InsertBatchSize int `envconfig:"INSERT_BATCH_SIZE" default:"500"`

	// Optional: when set, every run uploads its validation report.
	ReportS3Key    string `envconfig:"REPORT_S3_KEY"`
	ReportS3Secret string `envconfig:"REPORT_S3_SECRET"`
	ReportS3URL    string `envconfig:"REPORT_S3_URL"`
	ReportS3Region string `envconfig:"REPORT_S3_REGION" default:"us-east-1"`
	ReportS3Bucket string `envconfig:"REPORT_S3_BUCKET"`
}

// DSN returns the PostgreSQL data source name. The search_path lets the models use
// unqualified table names for both schemas.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s search_path=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.SearchPath())
}

// SearchPath lists the warehouse schema first so new tables land there.
func (c *Config) SearchPath() string {
	return c.WarehouseSchema + "," + c.StageSchema
}

// ReportUploadEnabled reports whether the S3 report settings are complete.
func (c *Config) ReportUploadEnabled() bool {
	return c.ReportS3URL != "" && c.ReportS3Bucket != "" && c.ReportS3Key != "" && c.ReportS3Secret != ""
}

// Validate rejects settings that would make the pipeline silently wrong.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres:
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST, DB_USER and DB_NAME are required for postgres")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must not be empty")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.MinYear > c.MaxYear {
		return fmt.Errorf("MIN_YEAR (%d) is after MAX_YEAR (%d)", c.MinYear, c.MaxYear)
	}
	if c.InsertBatchSize <= 0 {
		return fmt.Errorf("INSERT_BATCH_SIZE must be positive, got %d", c.InsertBatchSize)
	}
	if c.Sentinel == "" {
		return fmt.Errorf("SENTINEL must not be empty")
	}
	if c.StageSchema == "" || c.WarehouseSchema == "" {
		return fmt.Errorf("schema names must not be empty")
	}
	return nil
}

// Load reads the configuration from the environment (and a .env file when present).
// Overrides run before validation, so command-line flags can replace settings.
func Load(overrides ...func(*Config)) (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
