package geospatial

import "math"

// TurnAngle returns the absolute angle in degrees between the incoming
// direction p→q and the outgoing direction q→r, normalized to [0, 180].
// Coordinates are treated as planar (lat, lon) points, which is accurate
// enough for local turn detection but not for long-distance bearings.
func TurnAngle(pLat, pLon, qLat, qLon, rLat, rLon float64) float64 {
	in := math.Atan2(qLon-pLon, qLat-pLat)
	out := math.Atan2(rLon-qLon, rLat-qLat)

	deg := (out - in) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}
