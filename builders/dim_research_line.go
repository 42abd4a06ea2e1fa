package builders

import (
	"context"
	"unicode/utf8"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// ResearchLineDimension loads dim_linha_pesquisa with normalized titles.
type ResearchLineDimension struct{ env *Env }

func NewResearchLineDimension(env *Env) *ResearchLineDimension {
	return &ResearchLineDimension{env: env}
}

func (b *ResearchLineDimension) Name() string { return models.DimResearchLine{}.TableName() }
func (b *ResearchLineDimension) Kind() Kind   { return KindDimension }

func (b *ResearchLineDimension) Build(ctx context.Context) (*Result, error) {
	tn := b.env.Normalizer
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		frequency := map[string]int64{}
		var rows []models.DimResearchLine

		err := eachRow(tx, b.env.Settings.BatchSize, func(s *models.StageResearchLine) {
			res.Considered++
			line, ok := tn.ResearchLine(s.ResearchLine)
			if !ok {
				res.Drop(DropRejectedLine)
				return
			}
			if frequency[line] == 0 {
				rows = append(rows, models.DimResearchLine{ResearchLine: line})
			}
			frequency[line]++
		})
		if err != nil {
			return err
		}

		if res.Inserted, err = insertAll(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		var totalLen int64
		for _, r := range rows {
			totalLen += int64(utf8.RuneCountInString(r.ResearchLine))
		}
		res.Stats["staging_rows"] = res.Considered
		res.Stats["rejected"] = res.Dropped[DropRejectedLine]
		res.Stats["distinct_lines"] = int64(len(rows))
		if len(rows) > 0 {
			res.Stats["avg_length"] = totalLen / int64(len(rows))
		}
		res.Sample = topN(frequency, 5)
		return nil
	})
}
