package pricing

import (
	"strings"

	"detailinfra/internal/vehicle"
)

// Tier is a pricing bucket. It folds the size category and the luxury flag
// into one index for the price tables.
type Tier string

const (
	Compact Tier = "compact"
	Midsize Tier = "midsize"
	Truck   Tier = "truck"
	Luxury  Tier = "luxury"
)

var Tiers = []Tier{Compact, Midsize, Truck, Luxury}

func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tiers {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// TierFor maps a classification onto a price tier. Luxury vehicles are
// priced as luxury regardless of size.
func TierFor(c vehicle.Category, luxury bool) Tier {
	if luxury {
		return Luxury
	}
	switch c {
	case vehicle.CompactSedan:
		return Compact
	case vehicle.TruckVan:
		return Truck
	default:
		return Midsize
	}
}
