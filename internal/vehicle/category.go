package vehicle

import (
	"fmt"
	"strings"
)

// Category is the three-way body-size classification of a vehicle.
type Category string

const (
	CompactSedan Category = "Compact/Sedan"
	MidSizeSUV   Category = "Mid-Size/SUV"
	TruckVan     Category = "Truck/Van/Large SUV"
)

// Categories lists every category in display order.
var Categories = []Category{CompactSedan, MidSizeSUV, TruckVan}

// ParseCategory accepts the canonical names and the spaced variants
// ("Compact / Sedan") older exports used. Matching ignores case.
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, " / ", "/")), " "))
	for _, c := range Categories {
		if strings.ToLower(string(c)) == key {
			return c, true
		}
	}
	return "", false
}

func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

// UnmarshalText lets JSON and YAML decoding normalize category names.
// The empty string decodes to the zero Category.
func (c *Category) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*c = ""
		return nil
	}
	parsed, ok := ParseCategory(s)
	if !ok {
		return fmt.Errorf("unknown vehicle category %q", s)
	}
	*c = parsed
	return nil
}

// Rationale is the operator-facing explanation shown next to a category.
func (c Category) Rationale() string {
	switch c {
	case TruckVan:
		return "Vehicle footprint is large. Interior volume consistent with trucks, vans, or full-size SUVs."
	case CompactSedan:
		return "Vehicle footprint consistent with compact sedans and small hatchbacks."
	default:
		return "Vehicle footprint and interior volume match mid-size standards."
	}
}
