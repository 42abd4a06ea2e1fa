package builders

import (
	"context"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// ProductionTypeDimension loads dim_tipo_producao. A label is only inserted when
// its staging table holds at least one row.
type ProductionTypeDimension struct{ env *Env }

func NewProductionTypeDimension(env *Env) *ProductionTypeDimension {
	return &ProductionTypeDimension{env: env}
}

func (b *ProductionTypeDimension) Name() string { return models.DimProductionType{}.TableName() }
func (b *ProductionTypeDimension) Kind() Kind   { return KindDimension }

func (b *ProductionTypeDimension) Build(ctx context.Context) (*Result, error) {
	return b.env.runUnit(ctx, b.Name(), func(tx *gorm.DB, res *Result) error {
		var rows []models.DimProductionType
		sizes := map[string]int64{}

		for _, t := range models.ProductionTypes() {
			res.Considered++
			var n int64
			if err := tx.Table(t.SourceTable()).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				res.Drop("empty_source")
				continue
			}
			sizes[string(t)] = n
			rows = append(rows, models.DimProductionType{Label: string(t)})
		}

		var err error
		if res.Inserted, err = insertAll(tx, rows, b.env.Settings.BatchSize); err != nil {
			return err
		}
		res.Stats["total"] = int64(len(rows))
		res.Sample = topN(sizes, len(sizes))
		return nil
	})
}
