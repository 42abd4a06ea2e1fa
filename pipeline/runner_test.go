package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"lattes-dw/builders"
	"lattes-dw/models"
	"lattes-dw/services"
	"lattes-dw/storage"
	"lattes-dw/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func s(v string) *string { return &v }

func recorder(calls *[]string, name string, err error) Step {
	return Step{Name: name, Run: func(context.Context) (*Outcome, error) {
		*calls = append(*calls, name)
		return &Outcome{Result: &builders.Result{Name: name, Inserted: 2, Dropped: map[string]int64{"invalid_year": 1}}}, err
	}}
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	g := NewGraph()
	g.MustAdd(recorder(&calls, "one", nil))
	g.MustAdd(recorder(&calls, "two", errors.New("boom")))
	g.MustAdd(recorder(&calls, "three", nil))

	m := NewMetrics(prometheus.NewRegistry())
	run, err := NewRunner(g, zaptest.NewLogger(t), WithMetrics(m)).Run(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step two: boom")

	assert.Equal(t, []string{"one", "two"}, calls)
	assert.Equal(t, models.RunFailed, run.Status)
	assert.NotNil(t, run.FinishedAt)
	assert.Contains(t, string(run.Steps), `"name":"two","status":"failed"`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(models.RunFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepFailures.WithLabelValues("two")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsInserted.WithLabelValues("one")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsDropped.WithLabelValues("one", "invalid_year")))
	assert.Zero(t, testutil.ToFloat64(m.lastSuccess))
}

func TestRunner_RejectsConcurrentRuns(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	started := make(chan struct{})
	release := make(chan struct{})
	g := NewGraph()
	g.MustAdd(Step{Name: "slow", Run: func(context.Context) (*Outcome, error) {
		close(started)
		<-release
		return nil, nil
	}})
	r := NewRunner(g, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = r.Run(context.Background(), "first")
	}()
	<-started

	_, err := r.Run(context.Background(), "second")
	assert.ErrorIs(t, err, ErrRunInProgress)
	_, err = r.RunStep(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
}

func TestRunner_StartRunsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	release := make(chan struct{})
	g := NewGraph()
	g.MustAdd(Step{Name: "slow", Run: func(context.Context) (*Outcome, error) {
		<-release
		return nil, nil
	}})
	r := NewRunner(g, zaptest.NewLogger(t))

	done := make(chan *models.PipelineRun, 1)
	require.NoError(t, r.Start(context.Background(), "api", func(run *models.PipelineRun, err error) {
		assert.NoError(t, err)
		done <- run
	}))
	assert.ErrorIs(t, r.Start(context.Background(), "api", nil), ErrRunInProgress)

	close(release)
	run := <-done
	assert.Equal(t, "api", run.Trigger)
	assert.Equal(t, models.RunSucceeded, run.Status)
}

func TestRunner_RunStepUnknown(t *testing.T) {
	r := NewRunner(NewGraph(), zaptest.NewLogger(t))
	_, err := r.RunStep(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownStep)
}

func TestRunner_CancelledContextStopsBeforeNextStep(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGraph()
	g.MustAdd(Step{Name: "first", Run: func(context.Context) (*Outcome, error) {
		calls = append(calls, "first")
		cancel()
		return nil, nil
	}})
	g.MustAdd(recorder(&calls, "second", nil))

	run, err := NewRunner(g, zaptest.NewLogger(t)).Run(ctx, "test")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, calls)
	assert.Equal(t, models.RunFailed, run.Status)
}

type fakeUploader struct {
	key  string
	data string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key, f.data = key, string(data)
	return "https://s3.example.org/" + key, nil
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := storage.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, storage.Migrate(context.Background(), db, storage.Schemas{}, true))
	return db
}

func defaultRunner(t *testing.T, db *gorm.DB, opts ...Option) *Runner {
	logger := zaptest.NewLogger(t)
	env := builders.NewEnv(db, logger, services.NewTextNormalizer("", ""), builders.DefaultSettings())
	validator := validation.NewValidator(db, logger, "", validation.Options{MinYear: 1900, MaxYear: 2026})
	graph := DefaultGraph(env, validator, func(ctx context.Context) error { return storage.Truncate(ctx, db) })
	return NewRunner(graph, logger, append([]Option{WithRunLog(db)}, opts...)...)
}

func seedStaging(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, r := range []any{
		&models.StageResearcher{LattesID: s("123"), Name: s("ana silva"), ProfessionalAddress: s("UFES")},
		&models.StageArticle{LattesID: s("123"), Year: s("2020")},
		&models.StageEventWork{LattesID: s("123"), Year: s("2019"), EventCountry: s("Brasil")},
		&models.StageWorkPresentation{LattesID: s("123"), Year: s("2019"), Country: s("Brasil")},
		&models.StageAreaOfExpertise{LattesID: s("123"), BroadArea: s("Ciências Exatas"), Area: s("Física")},
		&models.StageResearchLine{LattesID: s("123"), ResearchLine: s("Engenharia de software")},
	} {
		require.NoError(t, db.Create(r).Error)
	}
}

func TestDefaultGraph_Order(t *testing.T) {
	db := openDB(t)
	order, err := defaultRunner(t, db).Graph().Order()
	require.NoError(t, err)

	pos := map[string]int{}
	for i, st := range order {
		pos[st.Name] = i
	}
	assert.Equal(t, 0, pos[StepTruncate])
	assert.Equal(t, len(order)-1, pos[StepValidate])
	for fact, dims := range factDependencies {
		for _, d := range dims {
			assert.Less(t, pos[d], pos[fact], "%s before %s", d, fact)
		}
	}
}

func TestRunner_FullRunIsRepeatable(t *testing.T) {
	db := openDB(t)
	seedStaging(t, db)
	up := &fakeUploader{}
	m := NewMetrics(prometheus.NewRegistry())
	r := defaultRunner(t, db, WithReportUploader(up), WithMetrics(m))

	for i := 0; i < 2; i++ {
		run, err := r.Run(context.Background(), "test")
		require.NoError(t, err)
		assert.Equal(t, models.RunSucceeded, run.Status)
		assert.Contains(t, run.Report, "0 anomalies")
	}

	var researchers int64
	require.NoError(t, db.Model(&models.DimResearcher{}).Count(&researchers).Error)
	assert.Equal(t, int64(1), researchers, "truncate runs before the dimensions are rebuilt")

	var runs []models.PipelineRun
	require.NoError(t, db.Order("id").Find(&runs).Error)
	require.Len(t, runs, 2)
	assert.Equal(t, models.RunSucceeded, runs[1].Status)
	assert.Contains(t, string(runs[1].Steps), `"name":"dim_pesquisador"`)
	assert.True(t, strings.HasPrefix(runs[1].ReportURL, "https://s3.example.org/reports/validation-"))
	assert.Equal(t, runs[1].Report, up.data)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(models.RunSucceeded)))
	assert.Zero(t, testutil.ToFloat64(m.anomalies))
	assert.NotZero(t, testutil.ToFloat64(m.lastSuccess))
}
