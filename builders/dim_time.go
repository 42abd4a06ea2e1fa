package builders

import (
	"context"
	"fmt"
	"sort"

	"lattes-dw/models"
	"lattes-dw/services"

	"gorm.io/gorm"
)

// TimeDimension loads dim_tempo with every year mentioned by a production.
type TimeDimension struct{ env *Env }

func NewTimeDimension(env *Env) *TimeDimension { return &TimeDimension{env: env} }

func (b *TimeDimension) Name() string { return models.DimTime{}.TableName() }
func (b *TimeDimension) Kind() Kind   { return KindDimension }

// yearField reads one year-bearing column of a staging row.
type yearField struct {
	name  string
	parse func(*string) (int, bool)
}

// yearSources lists every staging column that contributes years.
func yearSources(tx *gorm.DB, batch int, visit func(field yearField, raw *string)) error {
	ano := yearField{"ano", services.ParseYear}

	steps := []func() error{
		func() error {
			return eachRow(tx, batch, func(r *models.StageArticle) { visit(ano, r.Year) })
		},
		func() error {
			return eachRow(tx, batch, func(r *models.StageBook) { visit(ano, r.Year) })
		},
		func() error {
			return eachRow(tx, batch, func(r *models.StageBookChapter) { visit(ano, r.Year) })
		},
		func() error {
			date := yearField{"data_publicacao", services.PublicationDateYear}
			return eachRow(tx, batch, func(r *models.StageNewspaperText) {
				visit(ano, r.Year)
				visit(date, r.PublicationDate)
			})
		},
		func() error {
			held := yearField{"ano_realizacao", services.ParseYear}
			return eachRow(tx, batch, func(r *models.StageEventWork) {
				visit(ano, r.Year)
				visit(held, r.HeldYear)
			})
		},
		func() error {
			return eachRow(tx, batch, func(r *models.StageWorkPresentation) { visit(ano, r.Year) })
		},
		func() error {
			return eachRow(tx, batch, func(r *models.StageOtherProduction) { visit(ano, r.Year) })
		},
		func() error {
			start := yearField{"ano_inicio", services.ParseYear}
			end := yearField{"ano_fim", services.ParseYear}
			return eachRow(tx, batch, func(r *models.StageResearchProject) {
				visit(start, r.StartYear)
				visit(end, r.EndYear)
			})
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Build inserts the distinct years within [MinYear, MaxYear] in ascending order.
func (b *TimeDimension) Build(ctx context.Context) (*Result, error) {
	lo, hi := b.env.Settings.MinYear, b.env.Settings.MaxYear
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		years := map[int]bool{}

		err := yearSources(tx, b.env.Settings.BatchSize, func(f yearField, raw *string) {
			if raw == nil {
				return
			}
			res.Considered++
			res.Stats["values_"+f.name]++
			y, ok := f.parse(raw)
			switch {
			case !ok:
				res.Drop(DropInvalidYear)
			case y < lo || y > hi:
				res.Drop("out_of_range")
			default:
				years[y] = true
			}
		})
		if err != nil {
			return err
		}

		sorted := make([]int, 0, len(years))
		for y := range years {
			sorted = append(sorted, y)
		}
		sort.Ints(sorted)
		rows := make([]models.DimTime, len(sorted))
		for i, y := range sorted {
			rows[i] = models.DimTime{Year: y}
		}

		if res.Inserted, err = insertAll(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		res.Stats["total"] = int64(len(rows))
		if len(sorted) > 0 {
			res.Stats["min"] = int64(sorted[0])
			res.Stats["max"] = int64(sorted[len(sorted)-1])
		}
		decades := map[string]int64{}
		for _, y := range sorted {
			decades[fmt.Sprintf("%ds", y/10*10)]++
		}
		for d, n := range decades {
			res.Stats["decade_"+d] = n
		}
		res.Sample = topN(decades, 5)
		return nil
	})
}
