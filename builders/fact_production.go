package builders

import (
	"context"

	"lattes-dw/models"
	"lattes-dw/services"

	"gorm.io/gorm"
)

// productionKeys resolves the researcher, year and type shared by both production facts.
type productionKeys struct {
	researchers map[string]uint
	years       map[int]uint
	types       map[string]uint
	cutoff      int
}

func loadProductionKeys(tx *gorm.DB, cutoff int) (*productionKeys, error) {
	researchers, err := researcherKeys(tx)
	if err != nil {
		return nil, err
	}
	years, err := yearKeys(tx)
	if err != nil {
		return nil, err
	}
	types, err := productionTypeKeys(tx)
	if err != nil {
		return nil, err
	}
	return &productionKeys{researchers: researchers, years: years, types: types, cutoff: cutoff}, nil
}

type productionKey struct {
	researcher, time, typ uint
}

// resolve maps a staging row to surrogate keys. Only four-digit years before the
// cutoff are joined.
func (k *productionKeys) resolve(res *Result, typ models.ProductionType, rawID, rawYear *string) (productionKey, bool) {
	id, _ := lattesID(rawID)
	rid, ok := k.researchers[id]
	if !ok {
		res.Drop(DropUnknownResearcher)
		return productionKey{}, false
	}
	year, ok := services.ParseFourDigitYear(rawYear)
	if !ok {
		res.Drop(DropInvalidYear)
		return productionKey{}, false
	}
	if year >= k.cutoff {
		res.Drop(DropYearAfterCutoff)
		return productionKey{}, false
	}
	tid, ok := k.years[year]
	if !ok {
		res.Drop(DropUnknownYear)
		return productionKey{}, false
	}
	pid, ok := k.types[string(typ)]
	if !ok {
		res.Drop(DropUnknownType)
		return productionKey{}, false
	}
	return productionKey{researcher: rid, time: tid, typ: pid}, true
}

// productionSource reads (id_lattes, year) pairs of one production type.
type productionSource struct {
	typ  models.ProductionType
	scan func(tx *gorm.DB, batch int, fn func(lattesID, year *string)) error
}

func sourceOf[T any](typ models.ProductionType, fields func(*T) (*string, *string)) productionSource {
	return productionSource{
		typ: typ,
		scan: func(tx *gorm.DB, batch int, fn func(lattesID, year *string)) error {
			return eachRow(tx, batch, func(row *T) { fn(fields(row)) })
		},
	}
}

// productionSources lists the eight production kinds counted by the production fact.
// Projects are dated by their start year.
func productionSources() []productionSource {
	return []productionSource{
		sourceOf(models.TypeArticle, func(r *models.StageArticle) (*string, *string) { return r.LattesID, r.Year }),
		sourceOf(models.TypeBook, func(r *models.StageBook) (*string, *string) { return r.LattesID, r.Year }),
		sourceOf(models.TypeBookChapter, func(r *models.StageBookChapter) (*string, *string) { return r.LattesID, r.Year }),
		sourceOf(models.TypeNewspaperText, func(r *models.StageNewspaperText) (*string, *string) { return r.LattesID, r.Year }),
		sourceOf(models.TypeEventWork, func(r *models.StageEventWork) (*string, *string) { return r.LattesID, r.Year }),
		sourceOf(models.TypeWorkPresentation, func(r *models.StageWorkPresentation) (*string, *string) { return r.LattesID, r.Year }),
		sourceOf(models.TypeOtherProduction, func(r *models.StageOtherProduction) (*string, *string) { return r.LattesID, r.Year }),
		sourceOf(models.TypeResearchProject, func(r *models.StageResearchProject) (*string, *string) { return r.LattesID, r.StartYear }),
	}
}

// ProductionFact loads fato_pesquisador_producoes.
type ProductionFact struct{ env *Env }

func NewProductionFact(env *Env) *ProductionFact { return &ProductionFact{env: env} }

func (b *ProductionFact) Name() string { return models.FactResearcherProduction{}.TableName() }
func (b *ProductionFact) Kind() Kind   { return KindFact }

// Build counts productions per (researcher, year, type).
func (b *ProductionFact) Build(ctx context.Context) (*Result, error) {
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		keys, err := loadProductionKeys(tx, b.env.Settings.FactYearCutoff)
		if err != nil {
			return err
		}

		counts := map[productionKey]int64{}
		var order []productionKey
		perType := map[string]int64{}

		for _, src := range productionSources() {
			err := src.scan(tx, b.env.Settings.BatchSize, func(id, year *string) {
				res.Considered++
				k, ok := keys.resolve(res, src.typ, id, year)
				if !ok {
					return
				}
				if counts[k] == 0 {
					order = append(order, k)
				}
				counts[k]++
				perType[string(src.typ)]++
			})
			if err != nil {
				return err
			}
		}

		rows := make([]models.FactResearcherProduction, len(order))
		for i, k := range order {
			rows[i] = models.FactResearcherProduction{
				ResearcherID: k.researcher, TimeID: k.time, ProductionTypeID: k.typ, Count: counts[k],
			}
		}
		if res.Inserted, err = insertSkipConflicts(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		res.Stats["resolved_rows"] = int64(len(rows))
		for t, n := range perType {
			res.Stats["productions_"+t] = n
		}
		res.Sample = topN(perType, len(perType))
		return nil
	})
}
