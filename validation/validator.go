package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"lattes-dw/models"
	"lattes-dw/services"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Finding is the outcome of one check against one table.
type Finding struct {
	Table   string `json:"table" yaml:"table"`
	Check   string `json:"check" yaml:"check"`
	Value   int64  `json:"value" yaml:"value"`
	Total   int64  `json:"total,omitempty" yaml:"total,omitempty"`
	Anomaly bool   `json:"anomaly" yaml:"anomaly"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report collects every finding of a validation run.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at" yaml:"generated_at"`
	RowCounts   map[string]int64 `json:"row_counts" yaml:"row_counts"`
	Findings    []Finding        `json:"findings" yaml:"findings"`
}

// Anomalies returns the failing checks.
func (r *Report) Anomalies() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Anomaly {
			out = append(out, f)
		}
	}
	return out
}

// OK reports whether no check failed.
func (r *Report) OK() bool { return len(r.Anomalies()) == 0 }

// String renders the report as a plain text table.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Validation report %s\n", r.GeneratedAt.Format(time.RFC3339))

	tables := make([]string, 0, len(r.RowCounts))
	for t := range r.RowCounts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	counts := table.New().Border(lipgloss.NormalBorder()).Headers("TABLE", "ROWS")
	var total int64
	for _, t := range tables {
		counts.Row(t, fmt.Sprintf("%d", r.RowCounts[t]))
		total += r.RowCounts[t]
	}
	counts.Row("TOTAL", fmt.Sprintf("%d", total))
	b.WriteString(counts.String())
	b.WriteString("\n")

	checks := table.New().Border(lipgloss.NormalBorder()).Headers("TABLE", "CHECK", "VALUE", "STATUS", "DETAIL")
	for _, f := range r.Findings {
		status := "ok"
		if f.Anomaly {
			status = "ANOMALY"
		}
		value := fmt.Sprintf("%d", f.Value)
		if f.Total > 0 {
			value = fmt.Sprintf("%d/%d (%.1f%%)", f.Value, f.Total, 100*float64(f.Value)/float64(f.Total))
		}
		checks.Row(f.Table, f.Check, value, status, f.Detail)
	}
	b.WriteString(checks.String())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d anomalies\n", len(r.Anomalies()))
	return b.String()
}

// Options bound the year checks.
type Options struct {
	MinYear int
	MaxYear int
}

// Validator inspects the finished warehouse and the staging year columns. It never
// writes; anomalies are reported, only driver errors are returned.
type Validator struct {
	db       *gorm.DB
	logger   *zap.Logger
	sentinel string
	opts     Options
}

func NewValidator(db *gorm.DB, logger *zap.Logger, sentinel string, opts Options) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sentinel == "" {
		sentinel = services.DefaultSentinel
	}
	return &Validator{db: db, logger: logger, sentinel: sentinel, opts: opts}
}

// Run executes every check.
func (v *Validator) Run(ctx context.Context) (*Report, error) {
	db := v.db.WithContext(ctx)
	r := &Report{GeneratedAt: time.Now().UTC(), RowCounts: map[string]int64{}}

	steps := []func(*gorm.DB, *Report) error{
		v.checkDimensions,
		v.checkTime,
		v.checkProductionTypes,
		v.checkFacts,
		v.auditStagingYears,
	}
	for _, step := range steps {
		if err := step(db, r); err != nil {
			v.logger.Error("Validation query failed", zap.Error(err))
			return nil, fmt.Errorf("validation: %w", err)
		}
	}

	v.logger.Info("Validation finished",
		zap.Int("findings", len(r.Findings)),
		zap.Int("anomalies", len(r.Anomalies())),
	)
	return r, nil
}

type dimensionSpec struct {
	model       any
	table       string
	naturalKey  []string
	descriptive []string
}

func dimensionSpecs() []dimensionSpec {
	return []dimensionSpec{
		{&models.DimResearcher{}, models.DimResearcher{}.TableName(), []string{"id_lattes"}, []string{"nome", "atuacao_profissional"}},
		{&models.DimArea{}, models.DimArea{}.TableName(), []string{"grande_area", "area"}, []string{"grande_area"}},
		{&models.DimResearchLine{}, models.DimResearchLine{}.TableName(), []string{"linha_pesquisa"}, []string{"linha_pesquisa"}},
		{&models.DimTime{}, models.DimTime{}.TableName(), []string{"ano"}, nil},
		{&models.DimProductionType{}, models.DimProductionType{}.TableName(), []string{"tipo_producao"}, nil},
		{&models.DimWorkLocation{}, models.DimWorkLocation{}.TableName(), []string{"id_lattes", "pais", "instituicao"}, []string{"pais", "instituicao"}},
	}
}

func (v *Validator) checkDimensions(db *gorm.DB, r *Report) error {
	for _, d := range dimensionSpecs() {
		var total int64
		if err := db.Model(d.model).Count(&total).Error; err != nil {
			return err
		}
		r.RowCounts[d.table] = total
		r.Findings = append(r.Findings, Finding{
			Table: d.table, Check: "row_count", Value: total, Anomaly: total == 0,
		})

		groups, extra, err := duplicateGroups(db, d.model, d.naturalKey)
		if err != nil {
			return err
		}
		r.Findings = append(r.Findings, Finding{
			Table:   d.table,
			Check:   "duplicate_natural_keys",
			Value:   groups,
			Anomaly: groups > 0,
			Detail:  duplicateDetail(d.naturalKey, groups, extra),
		})

		for _, col := range d.descriptive {
			var missing int64
			err := db.Model(d.model).
				Where(fmt.Sprintf("%s IS NULL OR TRIM(%s) = '' OR %s = ?", col, col, col), v.sentinel).
				Count(&missing).Error
			if err != nil {
				return err
			}
			r.Findings = append(r.Findings, Finding{
				Table: d.table, Check: "missing_" + col, Value: missing, Total: total,
			})
		}
	}
	return nil
}

// duplicateGroups counts natural-key groups with more than one row, and the rows
// beyond the first in those groups.
func duplicateGroups(db *gorm.DB, model any, key []string) (groups, extra int64, err error) {
	cols := strings.Join(key, ", ")
	var sizes []struct{ N int64 }
	err = db.Model(model).
		Select("COUNT(*) AS n").
		Group(cols).
		Having("COUNT(*) > 1").
		Scan(&sizes).Error
	if err != nil {
		return 0, 0, err
	}
	for _, s := range sizes {
		extra += s.N - 1
	}
	return int64(len(sizes)), extra, nil
}

func duplicateDetail(key []string, groups, extra int64) string {
	if groups == 0 {
		return ""
	}
	return fmt.Sprintf("%d extra rows on (%s)", extra, strings.Join(key, ", "))
}

func (v *Validator) checkTime(db *gorm.DB, r *Report) error {
	var outside int64
	err := db.Model(&models.DimTime{}).
		Where("ano < ? OR ano > ?", v.opts.MinYear, v.opts.MaxYear).
		Count(&outside).Error
	if err != nil {
		return err
	}
	var bounds struct {
		Lo *int
		Hi *int
	}
	if err := db.Model(&models.DimTime{}).Select("MIN(ano) AS lo, MAX(ano) AS hi").Scan(&bounds).Error; err != nil {
		return err
	}
	detail := fmt.Sprintf("allowed %d-%d", v.opts.MinYear, v.opts.MaxYear)
	if bounds.Lo != nil && bounds.Hi != nil {
		detail = fmt.Sprintf("range %d-%d, %s", *bounds.Lo, *bounds.Hi, detail)
	}
	r.Findings = append(r.Findings, Finding{
		Table: models.DimTime{}.TableName(), Check: "year_out_of_bounds",
		Value: outside, Anomaly: outside > 0, Detail: detail,
	})
	return nil
}

func (v *Validator) checkProductionTypes(db *gorm.DB, r *Report) error {
	var labels []string
	if err := db.Model(&models.DimProductionType{}).Distinct().Pluck("tipo_producao", &labels).Error; err != nil {
		return err
	}
	var unknown []string
	for _, l := range labels {
		if !models.IsKnownProductionType(l) {
			unknown = append(unknown, l)
		}
	}
	sort.Strings(unknown)
	r.Findings = append(r.Findings, Finding{
		Table: models.DimProductionType{}.TableName(), Check: "unknown_labels",
		Value: int64(len(unknown)), Anomaly: len(unknown) > 0, Detail: strings.Join(unknown, "; "),
	})
	return nil
}

type foreignKey struct {
	column   string
	dimTable string
	dimKey   string
}

type factSpec struct {
	table   string
	measure string
	keys    []foreignKey
}

var (
	fkResearcher = foreignKey{"id_pesquisador", models.DimResearcher{}.TableName(), "id_pesquisador"}
	fkTime       = foreignKey{"id_tempo", models.DimTime{}.TableName(), "id_tempo"}
	fkType       = foreignKey{"id_tipo_producao", models.DimProductionType{}.TableName(), "id_tipo_producao"}
)

func factSpecs() []factSpec {
	return []factSpec{
		{models.FactResearcherArea{}.TableName(), "presenca", []foreignKey{
			fkResearcher, {"id_area", models.DimArea{}.TableName(), "id_area"},
		}},
		{models.FactResearcherResearchLine{}.TableName(), "presenca", []foreignKey{
			fkResearcher, {"id_linha_pesquisa", models.DimResearchLine{}.TableName(), "id_linha_pesquisa"},
		}},
		{models.FactResearcherProduction{}.TableName(), "qtd_producoes", []foreignKey{
			fkResearcher, fkTime, fkType,
		}},
		{models.FactResearcherProductionLocation{}.TableName(), "qtd_producoes", []foreignKey{
			fkResearcher, fkTime, fkType,
			{"id_localizacao_trabalhos", models.DimWorkLocation{}.TableName(), "id_localizacao_trabalhos"},
		}},
	}
}

func (v *Validator) checkFacts(db *gorm.DB, r *Report) error {
	for _, f := range factSpecs() {
		var total int64
		if err := db.Table(f.table).Count(&total).Error; err != nil {
			return err
		}
		r.RowCounts[f.table] = total
		r.Findings = append(r.Findings, Finding{Table: f.table, Check: "row_count", Value: total, Anomaly: total == 0})

		for _, fk := range f.keys {
			var orphans int64
			err := db.Table(f.table+" AS f").
				Joins(fmt.Sprintf("LEFT JOIN %s AS d ON d.%s = f.%s", fk.dimTable, fk.dimKey, fk.column)).
				Where(fmt.Sprintf("d.%s IS NULL", fk.dimKey)).
				Count(&orphans).Error
			if err != nil {
				return err
			}
			r.Findings = append(r.Findings, Finding{
				Table: f.table, Check: "orphan_" + fk.column, Value: orphans, Anomaly: orphans > 0,
			})
		}

		var nonPositive int64
		if err := db.Table(f.table).Where(f.measure + " <= 0").Count(&nonPositive).Error; err != nil {
			return err
		}
		r.Findings = append(r.Findings, Finding{
			Table: f.table, Check: "non_positive_" + f.measure, Value: nonPositive, Anomaly: nonPositive > 0,
		})
	}
	return nil
}

// stagingYearColumns are the numeric year columns audited in staging.
var stagingYearColumns = []struct{ table, column string }{
	{"artigos", "ano"},
	{"livros", "ano"},
	{"capitulos_livros", "ano"},
	{"textos_jornais", "ano"},
	{"trabalhos_eventos", "ano"},
	{"trabalhos_eventos", "ano_realizacao"},
	{"apresentacoes_trabalho", "ano"},
	{"outras_producoes", "ano"},
	{"projetos_pesquisa", "ano_inicio"},
	{"projetos_pesquisa", "ano_fim"},
}

// auditStagingYears counts numeric staging years outside the allowed range, so
// operators can see where rejected years come from. These are staging data
// quality figures, not warehouse anomalies.
func (v *Validator) auditStagingYears(db *gorm.DB, r *Report) error {
	for _, c := range stagingYearColumns {
		var raw []*string
		if err := db.Table(c.table).Where(c.column+" IS NOT NULL").Pluck(c.column, &raw).Error; err != nil {
			return err
		}
		perYear := map[int]int64{}
		var bad int64
		for _, s := range raw {
			y, ok := services.ParseYear(s)
			if !ok || (y >= v.opts.MinYear && y <= v.opts.MaxYear) {
				continue
			}
			perYear[y]++
			bad++
		}
		r.Findings = append(r.Findings, Finding{
			Table:  c.table,
			Check:  "staging_year_out_of_range_" + c.column,
			Value:  bad,
			Total:  int64(len(raw)),
			Detail: yearDetail(perYear),
		})
	}
	return nil
}

func yearDetail(perYear map[int]int64) string {
	years := make([]int, 0, len(perYear))
	for y := range perYear {
		years = append(years, y)
	}
	sort.Ints(years)
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = fmt.Sprintf("%d×%d", y, perYear[y])
	}
	return strings.Join(parts, " ")
}
