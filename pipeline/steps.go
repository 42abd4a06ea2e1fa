package pipeline

import (
	"context"

	"lattes-dw/builders"
	"lattes-dw/models"
	"lattes-dw/validation"
)

// Step names that are not table names.
const (
	StepTruncate = "truncate"
	StepValidate = "validate"
)

// BuilderStep wraps a dimension or fact builder.
func BuilderStep(b builders.Builder, dependsOn ...string) Step {
	return Step{
		Name:      b.Name(),
		DependsOn: dependsOn,
		Run: func(ctx context.Context) (*Outcome, error) {
			res, err := b.Build(ctx)
			if err != nil {
				return nil, err
			}
			return &Outcome{Result: res}, nil
		},
	}
}

// ValidationStep runs the validator.
func ValidationStep(v *validation.Validator, dependsOn ...string) Step {
	return Step{
		Name:      StepValidate,
		DependsOn: dependsOn,
		Run: func(ctx context.Context) (*Outcome, error) {
			report, err := v.Run(ctx)
			if err != nil {
				return nil, err
			}
			return &Outcome{Report: report}, nil
		},
	}
}

// TruncateStep empties the warehouse before a reload.
func TruncateStep(truncate func(ctx context.Context) error) Step {
	return Step{
		Name: StepTruncate,
		Run: func(ctx context.Context) (*Outcome, error) {
			return nil, truncate(ctx)
		},
	}
}

// factDependencies names the dimensions each fact table reads.
var factDependencies = map[string][]string{
	models.FactResearcherArea{}.TableName(): {
		models.DimResearcher{}.TableName(), models.DimArea{}.TableName(),
	},
	models.FactResearcherResearchLine{}.TableName(): {
		models.DimResearcher{}.TableName(), models.DimResearchLine{}.TableName(),
	},
	models.FactResearcherProduction{}.TableName(): {
		models.DimResearcher{}.TableName(), models.DimTime{}.TableName(), models.DimProductionType{}.TableName(),
	},
	models.FactResearcherProductionLocation{}.TableName(): {
		models.DimResearcher{}.TableName(), models.DimTime{}.TableName(), models.DimProductionType{}.TableName(),
		models.DimWorkLocation{}.TableName(),
	},
}

// DefaultGraph is the full reload: truncate, dimensions, facts, validation.
func DefaultGraph(env *builders.Env, validator *validation.Validator, truncate func(ctx context.Context) error) *Graph {
	g := NewGraph()
	g.MustAdd(TruncateStep(truncate))
	for _, b := range builders.Dimensions(env) {
		g.MustAdd(BuilderStep(b, StepTruncate))
	}
	var facts []string
	for _, b := range builders.Facts(env) {
		g.MustAdd(BuilderStep(b, factDependencies[b.Name()]...))
		facts = append(facts, b.Name())
	}
	g.MustAdd(ValidationStep(validator, facts...))
	return g
}
