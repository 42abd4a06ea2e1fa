package validation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"lattes-dw/builders"
	"lattes-dw/models"
	"lattes-dw/services"
	"lattes-dw/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func s(v string) *string { return &v }

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

func loadWarehouse(t *testing.T, db *gorm.DB) {
	t.Helper()
	for _, r := range []any{
		&models.StageResearcher{LattesID: s("123"), Name: s("Ana Silva"), ProfessionalAddress: s("UFES")},
		&models.StageArticle{LattesID: s("123"), Year: s("2020")},
		&models.StageArticle{LattesID: s("123"), Year: s("2030")},
		&models.StageEventWork{LattesID: s("123"), Year: s("2019"), EventCountry: s("Brasil")},
		&models.StageWorkPresentation{LattesID: s("123"), Year: s("2019"), Country: s("Brasil")},
		&models.StageAreaOfExpertise{LattesID: s("123"), BroadArea: s("Ciências Exatas"), Area: s("Física")},
		&models.StageResearchLine{LattesID: s("123"), ResearchLine: s("Engenharia de software")},
	} {
		require.NoError(t, db.Create(r).Error)
	}

	env := builders.NewEnv(db, zaptest.NewLogger(t), services.NewTextNormalizer("", ""), builders.DefaultSettings())
	for _, b := range append(builders.Dimensions(env), builders.Facts(env)...) {
		_, err := b.Build(context.Background())
		require.NoError(t, err)
	}
}

func newValidator(t *testing.T, db *gorm.DB) *Validator {
	return NewValidator(db, zaptest.NewLogger(t), "", Options{MinYear: 1900, MaxYear: 2026})
}

func finding(t *testing.T, r *Report, table, check string) Finding {
	t.Helper()
	for _, f := range r.Findings {
		if f.Table == table && f.Check == check {
			return f
		}
	}
	t.Fatalf("no finding %s/%s", table, check)
	return Finding{}
}

func TestValidator_CleanWarehouse(t *testing.T) {
	db := openDB(t)
	loadWarehouse(t, db)

	report, err := newValidator(t, db).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.Anomalies())
	assert.True(t, report.OK())
	assert.Equal(t, int64(1), report.RowCounts["dim_pesquisador"])
	assert.Equal(t, int64(3), report.RowCounts["fato_pesquisador_producoes"])

	audit := finding(t, report, "artigos", "staging_year_out_of_range_ano")
	assert.Equal(t, int64(1), audit.Value)
	assert.Equal(t, int64(2), audit.Total)
	assert.Equal(t, "2030×1", audit.Detail)
	assert.False(t, audit.Anomaly)
}

func TestValidator_DuplicatesAfterSecondDimensionBuild(t *testing.T) {
	db := openDB(t)
	loadWarehouse(t, db)

	env := builders.NewEnv(db, zaptest.NewLogger(t), services.NewTextNormalizer("", ""), builders.DefaultSettings())
	_, err := builders.NewResearcherDimension(env).Build(context.Background())
	require.NoError(t, err)

	report, err := newValidator(t, db).Run(context.Background())
	require.NoError(t, err)

	dup := finding(t, report, "dim_pesquisador", "duplicate_natural_keys")
	assert.True(t, dup.Anomaly)
	assert.Equal(t, int64(1), dup.Value)
	assert.Equal(t, "1 extra rows on (id_lattes)", dup.Detail)
	assert.False(t, report.OK())
}

func TestValidator_Anomalies(t *testing.T) {
	db := openDB(t)
	loadWarehouse(t, db)

	require.NoError(t, db.Create(&models.DimTime{Year: 2030}).Error)
	require.NoError(t, db.Create(&models.DimTime{Year: 2026}).Error)
	require.NoError(t, db.Create(&models.DimProductionType{Label: "Patente"}).Error)
	require.NoError(t, db.Create(&models.FactResearcherArea{ResearcherID: 999, AreaID: 1, Presence: 1}).Error)
	require.NoError(t, db.Create(&models.FactResearcherProduction{ResearcherID: 1, TimeID: 1, ProductionTypeID: 999, Count: 0}).Error)

	report, err := newValidator(t, db).Run(context.Background())
	require.NoError(t, err)

	years := finding(t, report, "dim_tempo", "year_out_of_bounds")
	assert.True(t, years.Anomaly)
	assert.Equal(t, int64(1), years.Value)

	labels := finding(t, report, "dim_tipo_producao", "unknown_labels")
	assert.True(t, labels.Anomaly)
	assert.Equal(t, "Patente", labels.Detail)

	assert.Equal(t, int64(1), finding(t, report, "fato_pesquisador_area_atuacao", "orphan_id_pesquisador").Value)
	assert.Zero(t, finding(t, report, "fato_pesquisador_area_atuacao", "orphan_id_area").Value)
	assert.Equal(t, int64(1), finding(t, report, "fato_pesquisador_producoes", "orphan_id_tipo_producao").Value)
	assert.Equal(t, int64(1), finding(t, report, "fato_pesquisador_producoes", "non_positive_qtd_producoes").Value)

	out := report.String()
	assert.Contains(t, out, "ANOMALY")
	assert.Contains(t, out, "dim_tempo")
	assert.Contains(t, out, fmt.Sprintf("%d anomalies", len(report.Anomalies())))
}

func TestValidator_EmptyWarehouse(t *testing.T) {
	db := openDB(t)

	report, err := newValidator(t, db).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, finding(t, report, "dim_tempo", "row_count").Anomaly)
	assert.Zero(t, finding(t, report, "dim_tempo", "year_out_of_bounds").Value)
}

func TestValidator_ReturnsDriverErrors(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Migrator().DropTable(&models.DimArea{}))

	_, err := newValidator(t, db).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}
