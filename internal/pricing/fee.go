package pricing

// DestinationFee is the travel surcharge for a mobile job miles away.
// Breakpoints are inclusive upper bounds; past 50 miles the fee is flat.
func DestinationFee(miles float64) float64 {
	switch {
	case miles <= 5:
		return 0
	case miles <= 10:
		return 10
	case miles <= 20:
		return 15 + (miles - 10)
	case miles <= 30:
		return 30 + (miles-20)*1.5
	case miles <= 50:
		return 50 + (miles-30)*1.25
	default:
		return 75
	}
}
