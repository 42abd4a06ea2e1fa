package builders

import (
	"context"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// ResearcherResearchLineFact loads fato_pesquisador_linha_pesquisa.
type ResearcherResearchLineFact struct{ env *Env }

func NewResearcherResearchLineFact(env *Env) *ResearcherResearchLineFact {
	return &ResearcherResearchLineFact{env: env}
}

func (b *ResearcherResearchLineFact) Name() string {
	return models.FactResearcherResearchLine{}.TableName()
}
func (b *ResearcherResearchLineFact) Kind() Kind { return KindFact }

// Build resolves each staging line through the same normalizer call the
// dimension builder used.
func (b *ResearcherResearchLineFact) Build(ctx context.Context) (*Result, error) {
	tn := b.env.Normalizer
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		researchers, err := researcherKeys(tx)
		if err != nil {
			return err
		}
		lines, err := researchLineKeys(tx)
		if err != nil {
			return err
		}

		seen := map[models.FactResearcherResearchLine]bool{}
		var rows []models.FactResearcherResearchLine
		perLine := map[string]int64{}
		err = eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageResearchLine) {
			res.Considered++
			line, ok := tn.ResearchLine(s.ResearchLine)
			if !ok {
				res.Drop(DropRejectedLine)
				return
			}
			id, _ := lattesID(s.LattesID)
			rid, ok := researchers[id]
			if !ok {
				res.Drop(DropUnknownResearcher)
				return
			}
			lid, ok := lines[line]
			if !ok {
				res.Drop(DropUnknownLine)
				return
			}
			f := models.FactResearcherResearchLine{ResearcherID: rid, ResearchLineID: lid, Presence: 1}
			if !seen[f] {
				seen[f] = true
				rows = append(rows, f)
				perLine[line]++
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
		res.Sample = topN(perLine, 5)
		return nil
	})
}
