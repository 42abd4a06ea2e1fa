package models

// Dimension tables carry no database uniqueness constraint on their natural keys:
// the builders always insert, and duplicates are reported by the validator.

// DimResearcher is the researcher dimension.
type DimResearcher struct {
	ID          uint   `json:"id_pesquisador" gorm:"column:id_pesquisador;primaryKey"`
	LattesID    string `json:"id_lattes" gorm:"column:id_lattes;index;not null"`
	Name        string `json:"nome" gorm:"column:nome"`
	Affiliation string `json:"atuacao_profissional" gorm:"column:atuacao_profissional"`
}

func (DimResearcher) TableName() string { return "dim_pesquisador" }

// DimArea is a (broad area, area) pair of the knowledge-area tree.
type DimArea struct {
	ID        uint    `json:"id_area" gorm:"column:id_area;primaryKey"`
	BroadArea *string `json:"grande_area" gorm:"column:grande_area"`
	Area      string  `json:"area" gorm:"column:area;not null"`
}

func (DimArea) TableName() string { return "dim_area" }

// DimResearchLine is a normalized line-of-research title.
type DimResearchLine struct {
	ID           uint   `json:"id_linha_pesquisa" gorm:"column:id_linha_pesquisa;primaryKey"`
	ResearchLine string `json:"linha_pesquisa" gorm:"column:linha_pesquisa;index;not null"`
}

func (DimResearchLine) TableName() string { return "dim_linha_pesquisa" }

// DimTime is the yearly time dimension.
type DimTime struct {
	ID   uint `json:"id_tempo" gorm:"column:id_tempo;primaryKey"`
	Year int  `json:"ano" gorm:"column:ano;index;not null"`
}

func (DimTime) TableName() string { return "dim_tempo" }

// DimProductionType holds one label per production category.
type DimProductionType struct {
	ID    uint   `json:"id_tipo_producao" gorm:"column:id_tipo_producao;primaryKey"`
	Label string `json:"tipo_producao" gorm:"column:tipo_producao;index;not null"`
}

func (DimProductionType) TableName() string { return "dim_tipo_producao" }

// DimWorkLocation is where a researcher presented work: country and promoting institution.
type DimWorkLocation struct {
	ID          uint   `json:"id_localizacao_trabalhos" gorm:"column:id_localizacao_trabalhos;primaryKey"`
	LattesID    string `json:"id_lattes" gorm:"column:id_lattes;index;not null"`
	Country     string `json:"pais" gorm:"column:pais"`
	Institution string `json:"instituicao" gorm:"column:instituicao"`
}

func (DimWorkLocation) TableName() string { return "dim_localizacao_trabalhos" }

// DimensionModels lists the dimension tables in build order.
func DimensionModels() []any {
	return []any{
		&DimResearcher{}, &DimArea{}, &DimResearchLine{},
		&DimTime{}, &DimProductionType{}, &DimWorkLocation{},
	}
}
