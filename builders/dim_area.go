package builders

import (
	"context"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// AreaDimension loads dim_area with the (broad area, area) pairs found in staging.
type AreaDimension struct{ env *Env }

func NewAreaDimension(env *Env) *AreaDimension { return &AreaDimension{env: env} }

func (b *AreaDimension) Name() string { return models.DimArea{}.TableName() }
func (b *AreaDimension) Kind() Kind   { return KindDimension }

// Build copies the values verbatim; the fact builder compares them trimmed.
func (b *AreaDimension) Build(ctx context.Context) (*Result, error) {
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		type pair struct {
			broad    string
			hasBroad bool
			area     string
		}
		seen := map[pair]bool{}
		var rows []models.DimArea
		perBroadArea := map[string]int64{}

		err := eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageAreaOfExpertise) {
			res.Considered++
			if s.Area == nil {
				res.Drop("missing_area")
				return
			}
			p := pair{area: *s.Area}
			if s.BroadArea != nil {
				p.broad, p.hasBroad = *s.BroadArea, true
			}
			if seen[p] {
				return
			}
			seen[p] = true

			row := models.DimArea{Area: p.area}
			if p.hasBroad {
				broad := p.broad
				row.BroadArea = &broad
				perBroadArea[broad]++
			} else {
				res.Stats["without_broad_area"]++
			}
			rows = append(rows, row)
		})
		if err != nil {
			return err
		}

		if res.Inserted, err = insertAll(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		res.Stats["total"] = int64(len(rows))
		res.Stats["broad_areas"] = int64(len(perBroadArea))
		res.Sample = topN(perBroadArea, 5)
		return nil
	})
}
