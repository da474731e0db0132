// Package vehicle infers the size category and luxury flag of a vehicle from
// its make, model and year.
package vehicle

import "strings"

// Source records which rule produced a classification.
type Source string

const (
	SourceDataset  Source = "dataset"
	SourceKeyword  Source = "keyword"
	SourceDefault  Source = "default"
	SourceOverride Source = "override"
	SourceOperator Source = "operator"
)

// Input is a classification request. Rows are the persisted overrides for
// the vehicle (remote rows merged with queued ones); Override is an explicit
// operator choice and wins over everything else.
type Input struct {
	Make     string
	Model    string
	Year     *int
	Override Category
	Rows     []Row
}

// Result is the outcome of classifying one vehicle.
type Result struct {
	Make      string   `json:"make"`
	Model     string   `json:"model"`
	Year      *int     `json:"year,omitempty"`
	Category  Category `json:"type_category"`
	Luxury    bool     `json:"is_luxury"`
	Rationale string   `json:"rationale"`
	Source    Source   `json:"source"`
	Matched   *Row     `json:"matched,omitempty"`
}

// Classifier evaluates the classification rules against a reference dataset.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	data *Dataset
}

func NewClassifier(ds *Dataset) *Classifier {
	if ds == nil {
		ds = DefaultDataset()
	}
	return &Classifier{data: ds}
}

// IsLuxuryMake reports whether the make contains one of the luxury brands.
func (c *Classifier) IsLuxuryMake(mk string) bool {
	m := Normalize(mk)
	for _, brand := range c.data.LuxuryMakes {
		if strings.Contains(m, brand) {
			return true
		}
	}
	return false
}

// Infer applies the static rules only: reference table first, keyword
// fallback second.
func (c *Classifier) Infer(mk, model string) Result {
	m, mo := Normalize(mk), Normalize(model)
	res := Result{Make: m, Model: mo, Luxury: c.IsLuxuryMake(m)}

	if row, ok := c.data.lookup(m, mo); ok {
		res.Category = row.Category
		res.Luxury = res.Luxury || row.Luxury
		res.Source = SourceDataset
		res.Rationale = res.Category.Rationale()
		return res
	}

	kw := c.data.Keywords
	switch {
	case containsAny(mo, kw.Truck) || containsAny(m, kw.TruckMakes):
		res.Category, res.Source = TruckVan, SourceKeyword
	case containsAny(mo, kw.Compact):
		res.Category, res.Source = CompactSedan, SourceKeyword
	case containsAny(mo, kw.Midsize):
		res.Category, res.Source = MidSizeSUV, SourceKeyword
	default:
		res.Category, res.Source = MidSizeSUV, SourceDefault
	}
	res.Rationale = res.Category.Rationale()
	return res
}

// Classify runs the full rule chain. It never fails: the worst case is the
// Mid-Size/SUV default.
func (c *Classifier) Classify(in Input) Result {
	res := c.Infer(in.Make, in.Model)
	res.Make, res.Model = strings.TrimSpace(in.Make), strings.TrimSpace(in.Model)
	res.Year = in.Year

	if row, ok := SelectOverride(in.Rows, in.Make, in.Model, in.Year); ok {
		matched := row
		res.Matched = &matched
		if row.Category.Valid() {
			res.Category = row.Category
		}
		res.Luxury = row.Luxury
		res.Source = SourceOverride
	}
	if in.Override != "" {
		res.Category = in.Override
		res.Source = SourceOperator
	}
	res.Rationale = res.Category.Rationale()
	return res
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
