package builders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lattes-dw/config"
	"lattes-dw/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Kind tells dimension builders apart from fact builders.
type Kind string

const (
	KindDimension Kind = "dimension"
	KindFact      Kind = "fact"
)

// Builder populates one warehouse table from staging.
type Builder interface {
	Name() string
	Kind() Kind
	Build(ctx context.Context) (*Result, error)
}

// Result is what a builder reports after a successful build.
type Result struct {
	Name       string           `json:"name"`
	Inserted   int64            `json:"inserted"`
	Considered int64            `json:"considered"`
	Dropped    map[string]int64 `json:"dropped,omitempty"`
	Stats      map[string]int64 `json:"stats,omitempty"`
	Sample     []string         `json:"sample,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

func newResult(name string) *Result {
	return &Result{Name: name, Dropped: map[string]int64{}, Stats: map[string]int64{}}
}

// Drop counts a staging row that was considered but left out of the table.
func (r *Result) Drop(reason string) { r.Dropped[reason]++ }

// TotalDropped sums all drop reasons.
func (r *Result) TotalDropped() int64 {
	var n int64
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

// Settings are the knobs builders read from the configuration.
type Settings struct {
	MinYear        int
	MaxYear        int
	FactYearCutoff int
	BatchSize      int
}

// SettingsFromConfig copies the builder settings out of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MinYear:        cfg.MinYear,
		MaxYear:        cfg.MaxYear,
		FactYearCutoff: cfg.FactYearCutoff,
		BatchSize:      cfg.InsertBatchSize,
	}
}

// DefaultSettings match the configuration defaults.
func DefaultSettings() Settings {
	return Settings{MinYear: 1900, MaxYear: 2025, FactYearCutoff: 2026, BatchSize: 500}
}

// Env bundles what every builder needs.
type Env struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	Normalizer *services.TextNormalizer
	Settings   Settings
}

// NewEnv creates the shared builder environment.
func NewEnv(db *gorm.DB, logger *zap.Logger, normalizer *services.TextNormalizer, settings Settings) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultSettings().BatchSize
	}
	return &Env{DB: db, Logger: logger, Normalizer: normalizer, Settings: settings}
}

// runUnit executes fn in a single transaction. On error the transaction is rolled
// back, the error is logged and returned; nothing is retried.
func (e *Env) runUnit(ctx context.Context, name string, fn func(tx *gorm.DB, res *Result) error) (*Result, error) {
	log := e.Logger.With(zap.String("builder", name))
	res := newResult(name)
	start := time.Now()

	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, res)
	})
	res.Duration = time.Since(start)
	if err != nil {
		log.Error("Build failed, transaction rolled back", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	log.Info("Build finished",
		zap.Int64("inserted", res.Inserted),
		zap.Int64("considered", res.Considered),
		zap.Any("dropped", res.Dropped),
		zap.Any("stats", res.Stats),
		zap.Strings("sample", res.Sample),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}

// eachRow streams a staging table in primary key order.
func eachRow[T any](tx *gorm.DB, batchSize int, fn func(row *T)) error {
	var batch []T
	return tx.FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
		for i := range batch {
			fn(&batch[i])
		}
		return nil
	}).Error
}

// insertAll writes rows in batches and returns the number of rows written.
func insertAll[T any](tx *gorm.DB, rows []T, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := tx.CreateInBatches(&rows, batchSize)
	return res.RowsAffected, res.Error
}

// insertSkipConflicts is insertAll with ON CONFLICT DO NOTHING; rows that already
// exist are not counted.
func insertSkipConflicts[T any](tx *gorm.DB, rows []T, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, batchSize)
	return res.RowsAffected, res.Error
}

// topN formats the n largest counts as "key (count)", ties broken by key.
func topN(counts map[string]int64, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("%s (%d)", k, counts[k])
	}
	return out
}

// Dimensions returns the dimension builders in build order.
func Dimensions(env *Env) []Builder {
	return []Builder{
		NewResearcherDimension(env),
		NewAreaDimension(env),
		NewResearchLineDimension(env),
		NewTimeDimension(env),
		NewProductionTypeDimension(env),
		NewWorkLocationDimension(env),
	}
}

// Facts returns the fact builders. They only read finished dimensions.
func Facts(env *Env) []Builder {
	return []Builder{
		NewResearcherAreaFact(env),
		NewResearcherResearchLineFact(env),
		NewProductionFact(env),
		NewProductionLocationFact(env),
	}
}
