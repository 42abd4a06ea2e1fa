package models

// Fact tables are unique on their composite key so loads can skip conflicts.

// FactResearcherArea flags that a researcher works in an area.
type FactResearcherArea struct {
	ResearcherID uint `json:"id_pesquisador" gorm:"column:id_pesquisador;primaryKey;autoIncrement:false"`
	AreaID       uint `json:"id_area" gorm:"column:id_area;primaryKey;autoIncrement:false"`
	Presence     int  `json:"presenca" gorm:"column:presenca;not null"`
}

func (FactResearcherArea) TableName() string { return "fato_pesquisador_area_atuacao" }

// FactResearcherResearchLine flags that a researcher follows a line of research.
type FactResearcherResearchLine struct {
	ResearcherID   uint `json:"id_pesquisador" gorm:"column:id_pesquisador;primaryKey;autoIncrement:false"`
	ResearchLineID uint `json:"id_linha_pesquisa" gorm:"column:id_linha_pesquisa;primaryKey;autoIncrement:false"`
	Presence       int  `json:"presenca" gorm:"column:presenca;not null"`
}

func (FactResearcherResearchLine) TableName() string { return "fato_pesquisador_linha_pesquisa" }

// FactResearcherProduction counts productions per researcher, year and type.
type FactResearcherProduction struct {
	ResearcherID     uint  `json:"id_pesquisador" gorm:"column:id_pesquisador;primaryKey;autoIncrement:false"`
	TimeID           uint  `json:"id_tempo" gorm:"column:id_tempo;primaryKey;autoIncrement:false"`
	ProductionTypeID uint  `json:"id_tipo_producao" gorm:"column:id_tipo_producao;primaryKey;autoIncrement:false"`
	Count            int64 `json:"qtd_producoes" gorm:"column:qtd_producoes;not null"`
}

func (FactResearcherProduction) TableName() string { return "fato_pesquisador_producoes" }

// FactResearcherProductionLocation counts productions per researcher, year, type and location.
type FactResearcherProductionLocation struct {
	ResearcherID     uint  `json:"id_pesquisador" gorm:"column:id_pesquisador;primaryKey;autoIncrement:false"`
	TimeID           uint  `json:"id_tempo" gorm:"column:id_tempo;primaryKey;autoIncrement:false"`
	ProductionTypeID uint  `json:"id_tipo_producao" gorm:"column:id_tipo_producao;primaryKey;autoIncrement:false"`
	WorkLocationID   uint  `json:"id_localizacao_trabalhos" gorm:"column:id_localizacao_trabalhos;primaryKey;autoIncrement:false"`
	Count            int64 `json:"qtd_producoes" gorm:"column:qtd_producoes;not null"`
}

func (FactResearcherProductionLocation) TableName() string {
	return "fato_pesquisador_producao_localizacao"
}

// FactModels lists the fact tables.
func FactModels() []any {
	return []any{
		&FactResearcherArea{}, &FactResearcherResearchLine{},
		&FactResearcherProduction{}, &FactResearcherProductionLocation{},
	}
}
