// Package geo provides geodesic distance computation on the WGS-84
// ellipsoid. Distances are computed with the Vincenty inverse formula,
// which matches standard geodesic results (geographiclib, geopy) to well
// under 0.1% for city-scale trips.
package geo

import "math"

// WGS-84 ellipsoid parameters.
const (
	semiMajorAxis = 6378137.0           // equatorial radius in meters
	flattening    = 1 / 298.257223563   // ellipsoid flattening
	semiMinorAxis = semiMajorAxis * (1 - flattening)
)

const metersPerMile = 1609.344

// convergence settings for the Vincenty iteration
const (
	maxIterations = 200
	tolerance     = 1e-12
)

// Miles returns the geodesic surface distance in miles between two
// latitude/longitude points, in degrees. Identical points return exactly 0.
func Miles(lat1, lon1, lat2, lon2 float64) float64 {
	return Meters(lat1, lon1, lat2, lon2) / metersPerMile
}

// Meters returns the geodesic surface distance in meters between two
// latitude/longitude points, in degrees.
//
// The Vincenty inverse iteration fails to converge only for nearly
// antipodal pairs; those fall back to the spherical great-circle distance,
// which is within 0.5% of the geodesic and cannot occur for points inside
// a city-sized bounding box.
func Meters(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	l := radians(lon2 - lon1)
	u1 := math.Atan((1 - flattening) * math.Tan(radians(lat1)))
	u2 := math.Atan((1 - flattening) * math.Tan(radians(lat2)))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cos2Alpha, cos2SigmaM float64
	converged := false

	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		sinSigma = math.Hypot(
			cosU2*sinLambda,
			cosU1*sinU2-sinU1*cosU2*cosLambda,
		)
		if sinSigma == 0 {
			// coincident points
			return 0
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)

		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cos2Alpha = 1 - sinAlpha*sinAlpha
		if cos2Alpha == 0 {
			// both points on the equator
			cos2SigmaM = 0
		} else {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cos2Alpha
		}

		c := flattening / 16 * cos2Alpha * (4 + flattening*(4-3*cos2Alpha))
		prev := lambda
		lambda = l + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))

		if math.Abs(lambda-prev) < tolerance {
			converged = true
			break
		}
	}

	if !converged {
		return sphericalMeters(lat1, lon1, lat2, lon2)
	}

	uSq := cos2Alpha * (semiMajorAxis*semiMajorAxis - semiMinorAxis*semiMinorAxis) /
		(semiMinorAxis * semiMinorAxis)
	a := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	b := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := b * sinSigma * (cos2SigmaM + b/4*
		(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
			b/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return semiMinorAxis * a * (sigma - deltaSigma)
}

// MilesPairs computes geodesic distances in miles for paired pickup and
// dropoff coordinate slices. All four slices must have the same length;
// the function panics otherwise, since mismatched lengths indicate a
// programming error rather than bad data.
func MilesPairs(pickLat, pickLon, dropLat, dropLon []float64) []float64 {
	n := len(pickLat)
	if len(pickLon) != n || len(dropLat) != n || len(dropLon) != n {
		panic("geo: coordinate slices must have equal length")
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = Miles(pickLat[i], pickLon[i], dropLat[i], dropLon[i])
	}
	return out
}

// sphericalMeters is the haversine great-circle distance on a sphere with
// the IUGG mean Earth radius. Used only as the non-convergence fallback.
func sphericalMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const meanRadius = 6371008.8

	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * meanRadius * math.Asin(math.Sqrt(h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
