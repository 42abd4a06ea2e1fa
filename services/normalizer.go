package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSentinel is stored wherever a descriptive value is missing or unusable.
const DefaultSentinel = "Não se aplica."

// DefaultHomeInstitution is the canonical name of the home university.
const DefaultHomeInstitution = "Universidade Federal do Espírito Santo"

var (
	// research line filter + steps
	urlOnlyRE       = regexp.MustCompile(`(?i)^https?://`)
	embeddedURLRE   = regexp.MustCompile(`(?i)https?://\S+`)
	letterEnumRE    = regexp.MustCompile(`(?i)^[a-z]\)\s*`)
	numberEnumRE    = regexp.MustCompile(`^\d+[.\s]+`)
	leadingSymbolRE = regexp.MustCompile(`^[^\p{L}\p{N}]+`)
	whitespaceRE    = regexp.MustCompile(`\s+`)

	// institutions
	homePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)federal do esp[ií]rito santo`),
		regexp.MustCompile(`(?i)ufes`),
		regexp.MustCompile(`(?i)ceunes/ufes`),
	}
	homeExclusions = []*regexp.Regexp{
		regexp.MustCompile(`(?i)instituto`),
		regexp.MustCompile(`(?i)regional`),
		regexp.MustCompile(`(?i)justi[çc]a`),
		regexp.MustCompile(`(?i)associa[cç][aã]o`),
	}
	quotEntityPrefixRE = regexp.MustCompile(`(?i)^&quot`)
	numericEntityRE    = regexp.MustCompile(`&#\d+;`)
	namedEntityRE      = regexp.MustCompile(`(?i)&[a-z]+;`)
	leadingPunctRE     = regexp.MustCompile(`^[,.?!;\-\s]+`)
	nonPrintableRE     = regexp.MustCompile(`[^\x20-\x7E]`)

	// years
	digitsRE          = regexp.MustCompile(`^[0-9]+$`)
	fourDigitsRE      = regexp.MustCompile(`^[0-9]{4}$`)
	publicationDateRE = regexp.MustCompile(`^\d{2}/\d{2}/(\d{4})$`)
)

// TextNormalizer turns noisy curriculum text into canonical warehouse values.
// It holds no mutable state and is safe for concurrent use.
type TextNormalizer struct {
	sentinel        string
	homeInstitution string
}

// NewTextNormalizer builds a normalizer. Empty arguments fall back to the defaults.
func NewTextNormalizer(sentinel, homeInstitution string) *TextNormalizer {
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	if homeInstitution == "" {
		homeInstitution = DefaultHomeInstitution
	}
	return &TextNormalizer{sentinel: sentinel, homeInstitution: homeInstitution}
}

// Sentinel returns the "not applicable" placeholder.
func (tn *TextNormalizer) Sentinel() string { return tn.sentinel }

// HomeInstitution returns the canonical home university name.
func (tn *TextNormalizer) HomeInstitution() string { return tn.homeInstitution }

// ResearchLine filters and normalizes a research line title. The second return
// value is false when the raw value must not enter the warehouse.
//
// Dimension and fact builders both go through this method, so the value stored in
// dim_linha_pesquisa and the value used to join against it cannot drift apart.
func (tn *TextNormalizer) ResearchLine(raw *string) (string, bool) {
	if !AcceptResearchLine(raw) {
		return "", false
	}
	out := NormalizeResearchLine(*raw)
	if out == "" {
		return "", false
	}
	return out, true
}

// AcceptResearchLine is the filter applied before normalization: no nulls, blanks,
// bare URLs, or values of three characters or fewer.
func AcceptResearchLine(raw *string) bool {
	if raw == nil {
		return false
	}
	s := strings.TrimSpace(*raw)
	if s == "" || urlOnlyRE.MatchString(s) {
		return false
	}
	return utf8.RuneCountInString(s) > 3
}

// NormalizeResearchLine applies the cleaning pass until the output stops changing.
// A single pass can expose a new enumerator or a new trailing period, so the loop
// is what makes the result idempotent.
func NormalizeResearchLine(s string) string {
	for {
		next := researchLinePass(s)
		if next == s {
			return next
		}
		s = next
	}
}

// Order matters: the enumerator rules must see their punctuation before the
// leading-symbol rule eats it.
func researchLinePass(s string) string {
	s = initCap(s)
	s = strings.ReplaceAll(s, `"`, "")
	s = embeddedURLRE.ReplaceAllString(s, "")
	s = letterEnumRE.ReplaceAllString(s, "")
	s = numberEnumRE.ReplaceAllString(s, "")
	s = leadingSymbolRE.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, ".")
	s = whitespaceRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// initCap upper-cases the first letter of every alphanumeric run and lower-cases
// the rest, the way PostgreSQL's INITCAP does.
func initCap(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inWord := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if inWord {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			inWord = true
			continue
		}
		b.WriteRune(r)
		inWord = false
	}
	return b.String()
}

// Institution normalizes the promoting institution of a presentation.
func (tn *TextNormalizer) Institution(raw *string) string {
	if raw == nil {
		return tn.sentinel
	}
	s := strings.TrimSpace(*raw)
	lower := strings.ToLower(s)
	if s == "" || quotEntityPrefixRE.MatchString(s) ||
		strings.Contains(lower, "www.") || strings.Contains(lower, ".br") {
		return tn.sentinel
	}
	if isHomeInstitution(s, homePatterns) {
		return tn.homeInstitution
	}

	s = numericEntityRE.ReplaceAllString(*raw, "")
	s = namedEntityRE.ReplaceAllString(s, "")
	s = leadingPunctRE.ReplaceAllString(s, "")
	s = whitespaceRE.ReplaceAllString(s, " ")
	s = foldDiacritics(s)
	s = strings.TrimSpace(nonPrintableRE.ReplaceAllString(s, ""))
	if s == "" {
		return tn.sentinel
	}
	return s
}

// Affiliation normalizes a researcher's professional address. Home university
// detection runs before the placeholder check.
func (tn *TextNormalizer) Affiliation(raw *string) string {
	if raw != nil && isHomeInstitution(*raw, homePatterns[:2]) {
		return tn.homeInstitution
	}
	return tn.DisplayName(raw)
}

// DisplayName trims a free-text value and maps placeholders ("", ".", "...") to the sentinel.
func (tn *TextNormalizer) DisplayName(raw *string) string {
	if raw == nil {
		return tn.sentinel
	}
	s := strings.TrimSpace(*raw)
	switch s {
	case "", ".", "...":
		return tn.sentinel
	}
	return s
}

// Country trims a country name or returns the sentinel.
func (tn *TextNormalizer) Country(raw *string) string {
	if raw == nil {
		return tn.sentinel
	}
	if s := strings.TrimSpace(*raw); s != "" {
		return s
	}
	return tn.sentinel
}

func isHomeInstitution(s string, patterns []*regexp.Regexp) bool {
	matched := false
	for _, re := range patterns {
		if re.MatchString(s) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, re := range homeExclusions {
		if re.MatchString(s) {
			return false
		}
	}
	return true
}

// foldDiacritics turns "São" into "Sao" so the ASCII filter does not drop letters.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// ParseYear accepts a string of digits only (surrounding whitespace ignored).
func ParseYear(raw *string) (int, bool) {
	if raw == nil {
		return 0, false
	}
	s := strings.TrimSpace(*raw)
	if !digitsRE.MatchString(s) {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return y, true
}

// ParseFourDigitYear accepts exactly four digits, the shape fact joins require.
func ParseFourDigitYear(raw *string) (int, bool) {
	if raw == nil {
		return 0, false
	}
	s := strings.TrimSpace(*raw)
	if !fourDigitsRE.MatchString(s) {
		return 0, false
	}
	y, _ := strconv.Atoi(s)
	return y, true
}

// PublicationDateYear extracts the year of a DD/MM/YYYY date.
func PublicationDateYear(raw *string) (int, bool) {
	if raw == nil {
		return 0, false
	}
	m := publicationDateRE.FindStringSubmatch(strings.TrimSpace(*raw))
	if m == nil {
		return 0, false
	}
	y, _ := strconv.Atoi(m[1])
	return y, true
}
