package facilities

import "math"

// EarthRadiusMiles is the mean Earth radius used for great-circle distance.
const EarthRadiusMiles = 3958.8

const metersPerMile = 1609.344

// auxNameRadiusMiles bounds how far a nearby named building may be to lend
// its name to an unnamed facility (about 150 m).
const auxNameRadiusMiles = 0.093

// Haversine returns the great-circle distance in miles between two points
// given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(a))
}

func milesToMeters(mi float64) float64 { return mi * metersPerMile }

func roundMiles(mi float64) float64 { return math.Round(mi*100) / 100 }
