package pipeline

import (
	"context"

	"lattes-dw/builders"
	"lattes-dw/config"
	"lattes-dw/services"
	"lattes-dw/storage"
	"lattes-dw/validation"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service bundles the runner and validator built from one configuration.
type Service struct {
	DB        *gorm.DB
	Runner    *Runner
	Validator *validation.Validator
}

// NewService wires builders, validator, run log and report upload. Metrics are
// registered with reg when it is not nil.
func NewService(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *zap.Logger, reg prometheus.Registerer) (*Service, error) {
	normalizer := services.NewTextNormalizer(cfg.Sentinel, cfg.HomeInstitution)
	env := builders.NewEnv(db, logger, normalizer, builders.SettingsFromConfig(cfg))
	validator := validation.NewValidator(db, logger, cfg.Sentinel, validation.Options{
		MinYear: cfg.MinYear,
		MaxYear: cfg.ValidatorMaxYear,
	})

	graph := DefaultGraph(env, validator, func(ctx context.Context) error {
		return storage.Truncate(ctx, db)
	})

	opts := []Option{WithRunLog(db), WithMetrics(NewMetrics(reg))}
	store, err := storage.NewReportStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, WithReportUploader(store))
		logger.Info("Validation reports will be uploaded", zap.String("bucket", cfg.ReportS3Bucket))
	}

	return &Service{
		DB:        db,
		Runner:    NewRunner(graph, logger, opts...),
		Validator: validator,
	}, nil
}
