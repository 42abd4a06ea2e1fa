package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"lattes-dw/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrRunInProgress is returned when a run or step is requested while another one holds the runner.
var ErrRunInProgress = errors.New("pipeline: a run is already in progress")

// ReportUploader stores a rendered validation report and returns its link.
type ReportUploader interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

// Runner executes a Graph. Only one run or single step executes at a time.
type Runner struct {
	graph    *Graph
	db       *gorm.DB
	logger   *zap.Logger
	metrics  *Metrics
	uploader ReportUploader
	now      func() time.Time

	mu sync.Mutex
}

type Option func(*Runner)

// WithRunLog records every run in the etl_execucoes table of db.
func WithRunLog(db *gorm.DB) Option { return func(r *Runner) { r.db = db } }

func WithMetrics(m *Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithReportUploader uploads the validation report of every run.
func WithReportUploader(u ReportUploader) Option { return func(r *Runner) { r.uploader = u } }

func NewRunner(graph *Graph, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{graph: graph, logger: logger, metrics: NewMetrics(nil), now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Graph returns the graph the runner executes.
func (r *Runner) Graph() *Graph { return r.graph }

// Run executes every step in dependency order and stops at the first failure.
// The returned run is also written to the run log when one is configured.
func (r *Runner) Run(ctx context.Context, trigger string) (*models.PipelineRun, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.run(ctx, trigger)
}

// Start claims the runner and executes the run in the background. done, when
// not nil, receives the result. ErrRunInProgress is returned synchronously.
func (r *Runner) Start(ctx context.Context, trigger string, done func(*models.PipelineRun, error)) error {
	if !r.mu.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer r.mu.Unlock()
		run, err := r.run(ctx, trigger)
		if done != nil {
			done(run, err)
		}
	}()
	return nil
}

func (r *Runner) run(ctx context.Context, trigger string) (*models.PipelineRun, error) {
	order, err := r.graph.Order()
	if err != nil {
		return nil, err
	}

	run := &models.PipelineRun{StartedAt: r.now(), Status: models.RunRunning, Trigger: trigger}
	if r.db != nil {
		if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
			return nil, fmt.Errorf("record run start: %w", err)
		}
	}
	log := r.logger.With(zap.Uint("run_id", run.ID), zap.String("trigger", trigger))
	log.Info("Pipeline run started", zap.Int("steps", len(order)))

	var (
		outcomes []models.StepOutcome
		runErr   error
	)
	for _, step := range order {
		out, rec, err := r.execute(ctx, step)
		outcomes = append(outcomes, rec)
		if err != nil {
			runErr = fmt.Errorf("step %s: %w", step.Name, err)
			break
		}
		if out != nil && out.Report != nil {
			run.Report = out.Report.String()
			run.ReportURL = r.uploadReport(ctx, log, run)
		}
	}

	finished := r.now()
	run.FinishedAt = &finished
	run.Status = models.RunSucceeded
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}
	if raw, err := json.Marshal(outcomes); err == nil {
		run.Steps = datatypes.JSON(raw)
	}

	elapsed := finished.Sub(run.StartedAt)
	r.metrics.runs.WithLabelValues(run.Status).Inc()
	r.metrics.runDuration.Observe(elapsed.Seconds())
	if runErr == nil {
		r.metrics.lastSuccess.Set(float64(finished.Unix()))
		log.Info("Pipeline run finished", zap.Duration("duration", elapsed))
	} else {
		log.Error("Pipeline run failed", zap.Duration("duration", elapsed), zap.Error(runErr))
	}

	if r.db != nil {
		// The run context may already be cancelled; the log entry is still written.
		if err := r.db.WithContext(context.WithoutCancel(ctx)).Save(run).Error; err != nil {
			log.Error("Failed to record run result", zap.Error(err))
		}
	}
	return run, runErr
}

// RunStep executes one step without its dependencies.
func (r *Runner) RunStep(ctx context.Context, name string) (*Outcome, error) {
	step, ok := r.graph.Step(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, name)
	}
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	out, _, err := r.execute(ctx, step)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", name, err)
	}
	return out, nil
}

func (r *Runner) execute(ctx context.Context, step Step) (*Outcome, models.StepOutcome, error) {
	rec := models.StepOutcome{Name: step.Name}
	if err := ctx.Err(); err != nil {
		rec.Status = models.RunFailed
		rec.Error = err.Error()
		return nil, rec, err
	}

	start := r.now()
	out, err := step.Run(ctx)
	elapsed := r.now().Sub(start)

	rec.DurationMS = elapsed.Milliseconds()
	r.metrics.stepDuration.WithLabelValues(step.Name).Observe(elapsed.Seconds())
	if err != nil {
		rec.Status = models.RunFailed
		rec.Error = err.Error()
		r.metrics.stepFailures.WithLabelValues(step.Name).Inc()
		return nil, rec, err
	}

	rec.Status = models.RunSucceeded
	if out != nil && out.Result != nil {
		rec.Inserted = out.Result.Inserted
		rec.Considered = out.Result.Considered
		if len(out.Result.Dropped) > 0 {
			rec.Dropped = out.Result.Dropped
		}
	}
	r.metrics.observeOutcome(step.Name, out)
	return out, rec, nil
}

func (r *Runner) uploadReport(ctx context.Context, log *zap.Logger, run *models.PipelineRun) string {
	if r.uploader == nil {
		return ""
	}
	key := fmt.Sprintf("reports/validation-%s.txt", run.StartedAt.UTC().Format("2006-01-02T15-04-05Z"))
	link, err := r.uploader.Upload(ctx, key, []byte(run.Report))
	if err != nil {
		log.Warn("Validation report upload failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	log.Info("Validation report uploaded", zap.String("url", link))
	return link
}
