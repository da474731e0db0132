package vehicle

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Row is a persisted classification fact for a make/model, optionally
// limited to a range of model years.
type Row struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Make      string   `json:"make" yaml:"make"`
	Model     string   `json:"model" yaml:"model"`
	YearStart *int     `json:"year_start" yaml:"year_start,omitempty"`
	YearEnd   *int     `json:"year_end" yaml:"year_end,omitempty"`
	Category  Category `json:"type_category" yaml:"type_category"`
	Luxury    bool     `json:"is_luxury" yaml:"is_luxury"`
	Notes     string   `json:"notes" yaml:"notes,omitempty"`
}

// Key is the case-insensitive identity of the row.
func (r Row) Key() string { return KeyOf(r.Make, r.Model) }

// KeyOf builds the identity key used to match rows by make and model.
func KeyOf(mk, model string) string {
	return Normalize(mk) + "::" + Normalize(model)
}

// Normalize trims and lower-cases a make or model for matching.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Capitalize is the storage form of a make or model: first letter upper,
// the rest lower ("land rover" -> "Land rover").
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// Contains reports whether year falls inside the row's inclusive year range.
// A nil bound is unbounded and a nil year matches every row.
func (r Row) Contains(year *int) bool {
	if year == nil {
		return true
	}
	if r.YearStart != nil && *year < *r.YearStart {
		return false
	}
	if r.YearEnd != nil && *year > *r.YearEnd {
		return false
	}
	return true
}

// distance is how far the midpoint of the row's range lies from year.
// Missing bounds collapse onto year itself.
func (r Row) distance(year int) float64 {
	start, end := float64(year), float64(year)
	if r.YearStart != nil {
		start = float64(*r.YearStart)
	}
	if r.YearEnd != nil {
		end = float64(*r.YearEnd)
	}
	return math.Abs((start+end)/2 - float64(year))
}

// SelectOverride picks the persisted row that applies to make/model/year.
// Rows whose range contains the year win in the order given; otherwise the
// row whose range midpoint is closest to the year, first one on ties. With no
// year the first matching row is used.
func SelectOverride(rows []Row, mk, model string, year *int) (Row, bool) {
	key := KeyOf(mk, model)
	var candidates []Row
	for _, r := range rows {
		if r.Key() == key {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return Row{}, false
	}
	for _, r := range candidates {
		if r.Contains(year) {
			return r, true
		}
	}
	best := candidates[0]
	bestDist := best.distance(*year)
	for _, r := range candidates[1:] {
		if d := r.distance(*year); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best, true
}

// IntPtr is a small helper for optional year fields.
func IntPtr(v int) *int { return &v }
