package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestNormalizeResearchLine(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"letter enumerator and trailing period", "a) ENGENHARIA de software.", "Engenharia De Software"},
		{"numeric enumerator with dot", "2. Inteligência artificial", "Inteligência Artificial"},
		{"numeric enumerator with space", "3 Modelagem", "Modelagem"},
		{"quotes and whitespace", `"Redes" de   sensores`, "Redes De Sensores"},
		{"embedded url", "Visão computacional http://example.com/x", "Visão Computacional"},
		{"leading symbols", "? & : Ensino de física", "Ensino De Física"},
		{"repeated trailing periods", "ecologia e conservação...", "Ecologia E Conservação"},
		{"nested enumerators", "b) 1. c) Biologia marinha", "Biologia Marinha"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeResearchLine(tc.in))
		})
	}
}

func TestNormalizeResearchLine_Idempotent(t *testing.T) {
	inputs := []string{
		"a) ENGENHARIA de software.",
		" - 1) a) b. Topico",
		`"a) Sistemas" distribuídos..`,
		"1.2.3 Computação de alto desempenho",
		"Química orgânica https://x.y/z.",
		`x"y"z tema`,
		"d'água e solos",
		"  . . . Linha 2. com pontos . ",
		"A)  B)  C) Direito",
	}
	for _, in := range inputs {
		once := NormalizeResearchLine(in)
		assert.Equal(t, once, NormalizeResearchLine(once), "input %q", in)
	}
}

func TestResearchLine_Filter(t *testing.T) {
	tn := NewTextNormalizer("", "")

	cases := []struct {
		name string
		in   *string
		want string
		ok   bool
	}{
		{"nil", nil, "", false},
		{"blank", ptr("   "), "", false},
		{"bare url", ptr("https://lattes.cnpq.br/123"), "", false},
		{"three characters", ptr(" abc "), "", false},
		{"four characters", ptr("abcd"), "Abcd", true},
		{"empty after cleaning", ptr("a) ."), "", false},
		{"regular", ptr("1. gestão pública"), "Gestão Pública", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tn.ResearchLine(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInstitution(t *testing.T) {
	tn := NewTextNormalizer("", "")

	cases := []struct {
		name string
		in   *string
		want string
	}{
		{"nil", nil, DefaultSentinel},
		{"blank", ptr("  "), DefaultSentinel},
		{"quot entity prefix", ptr("&quot;UFES&quot;"), DefaultSentinel},
		{"website", ptr("www.ufes.br"), DefaultSentinel},
		{"br domain", ptr("Faculdade X (site.br)"), DefaultSentinel},
		{"acronym", ptr("UFES"), DefaultHomeInstitution},
		{"campus acronym", ptr("ceunes/ufes"), DefaultHomeInstitution},
		{"partial name", ptr("Federal do Espírito Santo"), DefaultHomeInstitution},
		{"name without accent", ptr("Universidade Federal do Espirito Santo - CEUNES"), DefaultHomeInstitution},
		{"excluded institute", ptr("Instituto Federal do Espírito Santo"), "Instituto Federal do Espirito Santo"},
		{"excluded court", ptr("Tribunal Regional UFES"), "Tribunal Regional UFES"},
		{"entities and leading punctuation", ptr(", ;Universidade de São Paulo&#8211;"), "Universidade de Sao Paulo"},
		{"named entity", ptr("Associação Brasileira &amp; Cia"), "Associacao Brasileira Cia"},
		{"whitespace", ptr("  Universidade   Federal  de Minas "), "Universidade Federal de Minas"},
		{"nothing printable left", ptr("日本大学"), DefaultSentinel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tn.Institution(tc.in))
		})
	}
}

func TestInstitution_CanonicalVariantsAgree(t *testing.T) {
	tn := NewTextNormalizer("", "")

	a := tn.Institution(ptr("UFES"))
	b := tn.Institution(ptr("ceunes/ufes"))
	c := tn.Institution(ptr("Federal do Espírito Santo"))
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, tn.Institution(ptr("Instituto Federal do Espírito Santo")))
}

func TestAffiliation(t *testing.T) {
	tn := NewTextNormalizer("", "")

	assert.Equal(t, DefaultHomeInstitution, tn.Affiliation(ptr("Universidade Federal do Espírito Santo, Centro Tecnológico")))
	assert.Equal(t, DefaultHomeInstitution, tn.Affiliation(ptr("UFES - Departamento de Informática")))
	assert.Equal(t, "Instituto Federal do Espírito Santo", tn.Affiliation(ptr(" Instituto Federal do Espírito Santo ")))
	assert.Equal(t, "Petrobras", tn.Affiliation(ptr("  Petrobras ")))
	for _, placeholder := range []*string{nil, ptr(""), ptr(" . "), ptr("...")} {
		assert.Equal(t, DefaultSentinel, tn.Affiliation(placeholder))
	}
}

func TestDisplayNameAndCountry(t *testing.T) {
	tn := NewTextNormalizer("n/a", "")

	assert.Equal(t, "Ana Silva", tn.DisplayName(ptr(" Ana Silva ")))
	assert.Equal(t, "n/a", tn.DisplayName(ptr("...")))
	assert.Equal(t, "Brasil", tn.Country(ptr(" Brasil ")))
	assert.Equal(t, "n/a", tn.Country(ptr("")))
	assert.Equal(t, "n/a", tn.Country(nil))
}

func TestParseYears(t *testing.T) {
	y, ok := ParseYear(ptr(" 1999 "))
	assert.True(t, ok)
	assert.Equal(t, 1999, y)

	for _, bad := range []*string{nil, ptr("20a0"), ptr("-2000"), ptr(""), ptr("99999999999999999999999")} {
		_, ok := ParseYear(bad)
		assert.False(t, ok)
	}

	y, ok = ParseFourDigitYear(ptr("2020"))
	assert.True(t, ok)
	assert.Equal(t, 2020, y)
	_, ok = ParseFourDigitYear(ptr("202"))
	assert.False(t, ok)
	_, ok = ParseFourDigitYear(ptr("02020"))
	assert.False(t, ok)

	y, ok = PublicationDateYear(ptr("15/03/2019"))
	assert.True(t, ok)
	assert.Equal(t, 2019, y)
	_, ok = PublicationDateYear(ptr("2019-03-15"))
	assert.False(t, ok)
	_, ok = PublicationDateYear(ptr("1/3/2019"))
	assert.False(t, ok)
}
