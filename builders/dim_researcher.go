package builders

import (
	"context"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// ResearcherDimension loads dim_pesquisador.
type ResearcherDimension struct{ env *Env }

func NewResearcherDimension(env *Env) *ResearcherDimension { return &ResearcherDimension{env: env} }

func (b *ResearcherDimension) Name() string { return models.DimResearcher{}.TableName() }
func (b *ResearcherDimension) Kind() Kind   { return KindDimension }

// Build inserts one row per distinct (id_lattes, name, affiliation) triple.
func (b *ResearcherDimension) Build(ctx context.Context) (*Result, error) {
	tn := b.env.Normalizer
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		seen := map[models.DimResearcher]bool{}
		var rows []models.DimResearcher
		affiliations := map[string]int64{}

		err := eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageResearcher) {
			res.Considered++
			id, ok := lattesID(s.LattesID)
			if !ok {
				res.Drop(DropMissingResearcherKey)
				return
			}
			row := models.DimResearcher{
				LattesID:    id,
				Name:        tn.DisplayName(s.Name),
				Affiliation: tn.Affiliation(s.ProfessionalAddress),
			}
			if seen[row] {
				return
			}
			seen[row] = true
			rows = append(rows, row)
			affiliations[row.Affiliation]++
		})
		if err != nil {
			return err
		}

		if res.Inserted, err = insertAll(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		res.Stats["total"] = int64(len(rows))
		res.Stats["without_affiliation"] = affiliations[tn.Sentinel()]
		res.Stats["with_affiliation"] = int64(len(rows)) - affiliations[tn.Sentinel()]
		res.Stats["home_institution"] = affiliations[tn.HomeInstitution()]
		res.Sample = topN(affiliations, 5)
		return nil
	})
}
