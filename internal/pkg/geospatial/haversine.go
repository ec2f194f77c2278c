package geospatial

import "math"

// Mean Earth radius in meters.
const earthRadiusM = 6_371_000.0

// Approximate length of one degree of latitude, for fast bounding-box
// construction.
const metersPerDegreeLat = 111_320.0

// Haversine returns the great-circle distance in meters between two
// WGS84 coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	sinLat := math.Sin(radians(lat2-lat1) / 2)
	sinLon := math.Sin(radians(lon2-lon1) / 2)

	h := sinLat*sinLat +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*sinLon*sinLon

	return 2 * earthRadiusM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// BoundingBox returns a lat/lon box covering a circle of radiusMeters
// around (lat, lon). The longitude span widens with latitude as
// meridians converge. The box is padded a little past the radius;
// callers follow up with an exact distance check.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	r := radiusMeters * 1.01
	dLat := r / metersPerDegreeLat
	dLon := r / (metersPerDegreeLat * math.Cos(radians(lat)))

	return lat - dLat, lon - dLon, lat + dLat, lon + dLon
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
