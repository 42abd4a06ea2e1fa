package builders

import (
	"context"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// WorkLocationDimension loads dim_localizacao_trabalhos from work presentations.
type WorkLocationDimension struct{ env *Env }

func NewWorkLocationDimension(env *Env) *WorkLocationDimension {
	return &WorkLocationDimension{env: env}
}

func (b *WorkLocationDimension) Name() string { return models.DimWorkLocation{}.TableName() }
func (b *WorkLocationDimension) Kind() Kind   { return KindDimension }

func (b *WorkLocationDimension) Build(ctx context.Context) (*Result, error) {
	tn := b.env.Normalizer
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		seen := map[locationKey]bool{}
		var rows []models.DimWorkLocation
		institutions := map[string]int64{}

		err := eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageWorkPresentation) {
			res.Considered++
			id, ok := lattesID(s.LattesID)
			if !ok {
				res.Drop(DropMissingResearcherKey)
				return
			}
			k := locationKey{
				LattesID:    id,
				Country:     tn.Country(s.Country),
				Institution: tn.Institution(s.PromotingInstitution),
			}
			if seen[k] {
				return
			}
			seen[k] = true
			rows = append(rows, models.DimWorkLocation{LattesID: k.LattesID, Country: k.Country, Institution: k.Institution})
			institutions[k.Institution]++
		})
		if err != nil {
			return err
		}

		if res.Inserted, err = insertAll(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		res.Stats["total"] = int64(len(rows))
		res.Stats["without_institution"] = institutions[tn.Sentinel()]
		res.Stats["home_institution"] = institutions[tn.HomeInstitution()]
		res.Stats["with_institution"] = int64(len(rows)) - institutions[tn.Sentinel()]
		res.Sample = topN(institutions, 5)
		return nil
	})
}
