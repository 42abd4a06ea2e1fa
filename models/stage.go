package models

// Staging rows are written once per ingestion batch by the extraction scripts and
// only read here. Every business column is a nullable string.

// StageResearcher is one curriculum owner.
type StageResearcher struct {
	ID                  uint    `gorm:"primaryKey"`
	LattesID            *string `gorm:"column:id_lattes;index"`
	Name                *string `gorm:"column:nome"`
	ProfessionalAddress *string `gorm:"column:atuacao_profissional"`
}

func (StageResearcher) TableName() string { return "pesquisador" }

// StageArticle is a published journal article.
type StageArticle struct {
	ID          uint    `gorm:"primaryKey"`
	LattesID    *string `gorm:"column:id_lattes;index"`
	Year        *string `gorm:"column:ano"`
	Title       *string `gorm:"column:titulo"`
	DOI         *string `gorm:"column:doi"`
	Language    *string `gorm:"column:idioma"`
	Nature      *string `gorm:"column:natureza"`
	Medium      *string `gorm:"column:meio_divulgacao"`
	Journal     *string `gorm:"column:titulo_periodico"`
	Volume      *string `gorm:"column:volume"`
	FirstPage   *string `gorm:"column:pagina_inicial"`
	LastPage    *string `gorm:"column:pagina_final"`
	ISSN        *string `gorm:"column:issn"`
	Publication *string `gorm:"column:local_publicacao"`
	Authors     *string `gorm:"column:autores"`
}

func (StageArticle) TableName() string { return "artigos" }

// StageBook is an authored book.
type StageBook struct {
	ID        uint    `gorm:"primaryKey"`
	LattesID  *string `gorm:"column:id_lattes;index"`
	Year       *string `gorm:"column:ano"`
	Title      *string `gorm:"column:titulo"`
	Edition    *string `gorm:"column:numero_edicao"`
	City       *string `gorm:"column:cidade_editora"`
	Publisher  *string `gorm:"column:nome_editora"`
	Volumes    *string `gorm:"column:numero_volumes"`
	PageCount  *string `gorm:"column:numero_paginas"`
	Authors    *string `gorm:"column:autores"`
}

func (StageBook) TableName() string { return "livros" }

// StageBookChapter is a chapter in an edited book.
type StageBookChapter struct {
	ID           uint    `gorm:"primaryKey"`
	LattesID     *string `gorm:"column:id_lattes;index"`
	Year         *string `gorm:"column:ano"`
	ChapterTitle *string `gorm:"column:titulo_capitulo"`
	BookTitle    *string `gorm:"column:titulo_livro"`
	DOI          *string `gorm:"column:doi"`
	Language     *string `gorm:"column:idioma"`
	Medium       *string `gorm:"column:meio_divulgacao"`
	Edition      *string `gorm:"column:numero_edicao"`
	City         *string `gorm:"column:cidade_editora"`
	Publisher    *string `gorm:"column:nome_editora"`
	ISBN         *string `gorm:"column:isbn"`
	FirstPage    *string `gorm:"column:pagina_inicial"`
	LastPage     *string `gorm:"column:pagina_final"`
	Editors      *string `gorm:"column:organizadores"`
	Authors      *string `gorm:"column:autores"`
}

func (StageBookChapter) TableName() string { return "capitulos_livros" }

// StageNewspaperText is a text published in a newspaper or magazine.
type StageNewspaperText struct {
	ID              uint    `gorm:"primaryKey"`
	LattesID        *string `gorm:"column:id_lattes;index"`
	Year            *string `gorm:"column:ano"`
	Title           *string `gorm:"column:titulo"`
	Newspaper       *string `gorm:"column:titulo_jornal"`
	DOI             *string `gorm:"column:doi"`
	Language        *string `gorm:"column:idioma"`
	Nature          *string `gorm:"column:natureza"`
	Medium          *string `gorm:"column:meio_divulgacao"`
	PublicationDate *string `gorm:"column:data_publicacao"` // DD/MM/YYYY
	Publication     *string `gorm:"column:local_publicacao"`
	FirstPage       *string `gorm:"column:pagina_inicial"`
	LastPage        *string `gorm:"column:pagina_final"`
	Volume          *string `gorm:"column:volume"`
	ISSN            *string `gorm:"column:issn"`
	Authors         *string `gorm:"column:autores"`
}

func (StageNewspaperText) TableName() string { return "textos_jornais" }

// StageEventWork is a paper published in event proceedings.
type StageEventWork struct {
	ID             uint    `gorm:"primaryKey"`
	LattesID       *string `gorm:"column:id_lattes;index"`
	Year           *string `gorm:"column:ano"`
	Title          *string `gorm:"column:titulo"`
	EventName      *string `gorm:"column:nome_evento"`
	Proceedings    *string `gorm:"column:titulo_anais"`
	DOI            *string `gorm:"column:doi"`
	Language       *string `gorm:"column:idioma"`
	Nature         *string `gorm:"column:natureza"`
	Medium         *string `gorm:"column:meio_divulgacao"`
	EventCountry   *string `gorm:"column:pais_evento"`
	HeldYear       *string `gorm:"column:ano_realizacao"`
	EventCity      *string `gorm:"column:cidade_evento"`
	Classification *string `gorm:"column:classificacao_evento"`
	Publisher      *string `gorm:"column:nome_editora"`
	PublisherCity  *string `gorm:"column:cidade_editora"`
	ISBN           *string `gorm:"column:isbn"`
	Volume         *string `gorm:"column:volume"`
	FirstPage      *string `gorm:"column:pagina_inicial"`
	LastPage       *string `gorm:"column:pagina_final"`
	Authors        *string `gorm:"column:autores"`
}

func (StageEventWork) TableName() string { return "trabalhos_eventos" }

// StageWorkPresentation is a talk or poster given at an event.
type StageWorkPresentation struct {
	ID                   uint    `gorm:"primaryKey"`
	LattesID             *string `gorm:"column:id_lattes;index"`
	Year                 *string `gorm:"column:ano"`
	Title                *string `gorm:"column:titulo"`
	DOI                  *string `gorm:"column:doi"`
	Language             *string `gorm:"column:idioma"`
	Nature               *string `gorm:"column:natureza"`
	Country              *string `gorm:"column:pais"`
	EventName            *string `gorm:"column:nome_evento"`
	City                 *string `gorm:"column:cidade_apresentacao"`
	Venue                *string `gorm:"column:local_apresentacao"`
	PromotingInstitution *string `gorm:"column:instituicao_promotora"`
	Authors              *string `gorm:"column:autores"`
}

func (StageWorkPresentation) TableName() string { return "apresentacoes_trabalho" }

// StageOtherProduction covers the remaining bibliographic production types.
type StageOtherProduction struct {
	ID          uint    `gorm:"primaryKey"`
	LattesID    *string `gorm:"column:id_lattes;index"`
	Year        *string `gorm:"column:ano"`
	Title       *string `gorm:"column:titulo"`
	DOI         *string `gorm:"column:doi"`
	Language    *string `gorm:"column:idioma"`
	Nature      *string `gorm:"column:natureza"`
	Medium      *string `gorm:"column:meio_divulgacao"`
	Country     *string `gorm:"column:pais_publicacao"`
	City        *string `gorm:"column:cidade_editora"`
	Publisher   *string `gorm:"column:editora"`
	ISSNOrISBN  *string `gorm:"column:issn_isbn"`
	PageCount   *string `gorm:"column:numero_paginas"`
	Authors     *string `gorm:"column:autores"`
}

func (StageOtherProduction) TableName() string { return "outras_producoes" }

// StageResearchProject is a research project with a start and (optional) end year.
type StageResearchProject struct {
	ID          uint    `gorm:"primaryKey"`
	LattesID    *string `gorm:"column:id_lattes;index"`
	StartYear   *string `gorm:"column:ano_inicio"`
	EndYear     *string `gorm:"column:ano_fim"`
	Name        *string `gorm:"column:nome_projeto"`
	Description *string `gorm:"column:descricao_projeto"`
	Status      *string `gorm:"column:situacao"`
	Nature      *string `gorm:"column:natureza"`
}

func (StageResearchProject) TableName() string { return "projetos_pesquisa" }

// StageAreaOfExpertise is one entry of the CNPq knowledge-area tree.
type StageAreaOfExpertise struct {
	ID        uint    `gorm:"primaryKey"`
	LattesID  *string `gorm:"column:id_lattes;index"`
	BroadArea  *string `gorm:"column:nome_grande_area"`
	Area       *string `gorm:"column:nome_area"`
	SubArea    *string `gorm:"column:nome_sub_area"`
	Speciality *string `gorm:"column:nome_especialidade"`
}

func (StageAreaOfExpertise) TableName() string { return "areas_atuacao" }

// StageResearchLine is a free-text line of research.
type StageResearchLine struct {
	ID           uint    `gorm:"primaryKey"`
	LattesID     *string `gorm:"column:id_lattes;index"`
	ResearchLine *string `gorm:"column:linha_pesquisa"`
}

func (StageResearchLine) TableName() string { return "linha_pesquisa" }

// StageModels lists every staging model, used by migrations in development and tests.
func StageModels() []any {
	return []any{
		&StageResearcher{}, &StageArticle{}, &StageBook{}, &StageBookChapter{},
		&StageNewspaperText{}, &StageEventWork{}, &StageWorkPresentation{},
		&StageOtherProduction{}, &StageResearchProject{}, &StageAreaOfExpertise{},
		&StageResearchLine{},
	}
}
