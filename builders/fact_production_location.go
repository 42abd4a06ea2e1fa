package builders

import (
	"context"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// ProductionLocationFact loads fato_pesquisador_producao_localizacao for event
// works and work presentations.
type ProductionLocationFact struct{ env *Env }

func NewProductionLocationFact(env *Env) *ProductionLocationFact {
	return &ProductionLocationFact{env: env}
}

func (b *ProductionLocationFact) Name() string {
	return models.FactResearcherProductionLocation{}.TableName()
}
func (b *ProductionLocationFact) Kind() Kind { return KindFact }

type locatedProductionKey struct {
	productionKey
	location uint
}

// Build resolves locations with the same normalizer calls as the location
// dimension. Event works carry no institution, so they match the sentinel row.
func (b *ProductionLocationFact) Build(ctx context.Context) (*Result, error) {
	tn := b.env.Normalizer
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		keys, err := loadProductionKeys(tx, b.env.Settings.FactYearCutoff)
		if err != nil {
			return err
		}
		locations, err := workLocationKeys(tx)
		if err != nil {
			return err
		}

		counts := map[locatedProductionKey]int64{}
		var order []locatedProductionKey
		perType := map[string]int64{}

		add := func(typ models.ProductionType, rawID, rawYear *string, loc locationKey) {
			res.Considered++
			pk, ok := keys.resolve(res, typ, rawID, rawYear)
			if !ok {
				return
			}
			lid, ok := locations[loc]
			if !ok {
				res.Drop(DropUnknownLocation)
				return
			}
			k := locatedProductionKey{productionKey: pk, location: lid}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
			perType[string(typ)]++
		}

		err = eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageEventWork) {
			id, _ := lattesID(s.LattesID)
			add(models.TypeEventWork, s.LattesID, s.Year, locationKey{
				LattesID: id, Country: tn.Country(s.EventCountry), Institution: tn.Sentinel(),
			})
		})
		if err != nil {
			return err
		}
		err = eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageWorkPresentation) {
			id, _ := lattesID(s.LattesID)
			add(models.TypeWorkPresentation, s.LattesID, s.Year, locationKey{
				LattesID: id, Country: tn.Country(s.Country), Institution: tn.Institution(s.PromotingInstitution),
			})
		})
		if err != nil {
			return err
		}

		rows := make([]models.FactResearcherProductionLocation, len(order))
		for i, k := range order {
			rows[i] = models.FactResearcherProductionLocation{
				ResearcherID:     k.researcher,
				TimeID:           k.time,
				ProductionTypeID: k.typ,
				WorkLocationID:   k.location,
				Count:            counts[k],
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
