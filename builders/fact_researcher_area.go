package builders

import (
	"context"
	"strings"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// ResearcherAreaFact loads fato_pesquisador_area_atuacao.
type ResearcherAreaFact struct{ env *Env }

func NewResearcherAreaFact(env *Env) *ResearcherAreaFact { return &ResearcherAreaFact{env: env} }

func (b *ResearcherAreaFact) Name() string { return models.FactResearcherArea{}.TableName() }
func (b *ResearcherAreaFact) Kind() Kind   { return KindFact }

// Build links researchers to areas. A null broad area only matches a dimension
// row whose broad area is null or empty.
func (b *ResearcherAreaFact) Build(ctx context.Context) (*Result, error) {
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		researchers, err := researcherKeys(tx)
		if err != nil {
			return err
		}
		areas, err := areaKeys(tx)
		if err != nil {
			return err
		}

		seen := map[models.FactResearcherArea]bool{}
		var rows []models.FactResearcherArea
		err = eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageAreaOfExpertise) {
			res.Considered++
			if s.Area == nil || strings.TrimSpace(*s.Area) == "" {
				res.Drop(DropBlankArea)
				return
			}
			id, _ := lattesID(s.LattesID)
			rid, ok := researchers[id]
			if !ok {
				res.Drop(DropUnknownResearcher)
				return
			}
			aid, ok := areas[areaKey(s.BroadArea, s.Area)]
			if !ok {
				res.Drop(DropUnknownArea)
				return
			}
			f := models.FactResearcherArea{ResearcherID: rid, AreaID: aid, Presence: 1}
			if !seen[f] {
				seen[f] = true
				rows = append(rows, f)
			}
		})
		if err != nil {
			return err
		}

		if res.Inserted, err = insertSkipConflicts(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		res.Stats["resolved"] = int64(len(rows))
		res.Stats["already_present"] = int64(len(rows)) - res.Inserted
		return nil
	})
}
