package builders

import (
	"strings"

	"lattes-dw/models"

	"gorm.io/gorm"
)

// Drop reasons reported by the fact builders.
const (
	DropMissingResearcherKey = "missing_id_lattes"
	DropUnknownResearcher    = "unknown_researcher"
	DropUnknownArea          = "unknown_area"
	DropBlankArea            = "blank_area"
	DropRejectedLine         = "rejected_research_line"
	DropUnknownLine          = "unknown_research_line"
	DropInvalidYear          = "invalid_year"
	DropYearAfterCutoff      = "year_after_cutoff"
	DropUnknownYear          = "unknown_year"
	DropUnknownType          = "unknown_production_type"
	DropUnknownLocation      = "unknown_location"
)

// Natural-key lookups map a dimension's natural key to its surrogate key. When a
// dimension holds duplicates (it is loaded without conflict handling) the lowest
// surrogate key wins, so resolution stays deterministic.

type surrogateRow struct {
	NaturalKey  string
	SurrogateID uint
}

func researcherKeys(tx *gorm.DB) (map[string]uint, error) {
	var rows []surrogateRow
	err := tx.Model(&models.DimResearcher{}).
		Select("id_lattes AS natural_key, MIN(id_pesquisador) AS surrogate_id").
		Group("id_lattes").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return collect(rows), nil
}

func researchLineKeys(tx *gorm.DB) (map[string]uint, error) {
	var rows []surrogateRow
	err := tx.Model(&models.DimResearchLine{}).
		Select("linha_pesquisa AS natural_key, MIN(id_linha_pesquisa) AS surrogate_id").
		Group("linha_pesquisa").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return collect(rows), nil
}

func productionTypeKeys(tx *gorm.DB) (map[string]uint, error) {
	var rows []surrogateRow
	err := tx.Model(&models.DimProductionType{}).
		Select("tipo_producao AS natural_key, MIN(id_tipo_producao) AS surrogate_id").
		Group("tipo_producao").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return collect(rows), nil
}

func yearKeys(tx *gorm.DB) (map[int]uint, error) {
	var rows []struct {
		Year        int
		SurrogateID uint
	}
	err := tx.Model(&models.DimTime{}).
		Select("ano AS year, MIN(id_tempo) AS surrogate_id").
		Group("ano").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]uint, len(rows))
	for _, r := range rows {
		out[r.Year] = r.SurrogateID
	}
	return out, nil
}

// areaKey compares broad area and area trimmed, with a null broad area equal to "".
func areaKey(broadArea, area *string) string {
	var b, a string
	if broadArea != nil {
		b = strings.TrimSpace(*broadArea)
	}
	if area != nil {
		a = strings.TrimSpace(*area)
	}
	return b + "\x00" + a
}

func areaKeys(tx *gorm.DB) (map[string]uint, error) {
	var dims []models.DimArea
	if err := tx.Order("id_area").Find(&dims).Error; err != nil {
		return nil, err
	}
	out := make(map[string]uint, len(dims))
	for _, d := range dims {
		area := d.Area
		k := areaKey(d.BroadArea, &area)
		if _, ok := out[k]; !ok {
			out[k] = d.ID
		}
	}
	return out, nil
}

type locationKey struct {
	LattesID    string
	Country     string
	Institution string
}

func workLocationKeys(tx *gorm.DB) (map[locationKey]uint, error) {
	var rows []struct {
		LattesID    string
		Country     string
		Institution string
		SurrogateID uint
	}
	err := tx.Model(&models.DimWorkLocation{}).
		Select("id_lattes AS lattes_id, pais AS country, instituicao AS institution, MIN(id_localizacao_trabalhos) AS surrogate_id").
		Group("id_lattes, pais, instituicao").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[locationKey]uint, len(rows))
	for _, r := range rows {
		out[locationKey{r.LattesID, r.Country, r.Institution}] = r.SurrogateID
	}
	return out, nil
}

func collect(rows []surrogateRow) map[string]uint {
	out := make(map[string]uint, len(rows))
	for _, r := range rows {
		out[r.NaturalKey] = r.SurrogateID
	}
	return out
}

// lattesID returns the trimmed natural key, or false when it is missing.
func lattesID(raw *string) (string, bool) {
	if raw == nil {
		return "", false
	}
	s := strings.TrimSpace(*raw)
	return s, s != ""
}
