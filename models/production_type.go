package models

// ProductionType is the fixed label of a production category in dim_tipo_producao.
type ProductionType string

const (
	TypeArticle          ProductionType = "Artigo"
	TypeBook             ProductionType = "Livro"
	TypeBookChapter      ProductionType = "Capítulo de Livro"
	TypeEventWork        ProductionType = "Trabalho em Evento"
	TypeNewspaperText    ProductionType = "Texto em Jornal"
	TypeWorkPresentation ProductionType = "Apresentação de Trabalho"
	TypeOtherProduction  ProductionType = "Outras Produções"
	// Lower case as the reporting layer already filters on it.
	TypeResearchProject ProductionType = "projetos pesquisa"
)

// ProductionTypes returns every label in the order they are inserted.
func ProductionTypes() []ProductionType {
	return []ProductionType{
		TypeArticle, TypeBook, TypeBookChapter, TypeEventWork,
		TypeNewspaperText, TypeWorkPresentation, TypeOtherProduction, TypeResearchProject,
	}
}

// IsKnownProductionType reports whether label belongs to the fixed enumeration.
func IsKnownProductionType(label string) bool {
	for _, t := range ProductionTypes() {
		if string(t) == label {
			return true
		}
	}
	return false
}

// SourceTable returns the staging table whose rows are of this type.
func (t ProductionType) SourceTable() string {
	switch t {
	case TypeArticle:
		return StageArticle{}.TableName()
	case TypeBook:
		return StageBook{}.TableName()
	case TypeBookChapter:
		return StageBookChapter{}.TableName()
	case TypeEventWork:
		return StageEventWork{}.TableName()
	case TypeNewspaperText:
		return StageNewspaperText{}.TableName()
	case TypeWorkPresentation:
		return StageWorkPresentation{}.TableName()
	case TypeOtherProduction:
		return StageOtherProduction{}.TableName()
	case TypeResearchProject:
		return StageResearchProject{}.TableName()
	}
	return ""
}
