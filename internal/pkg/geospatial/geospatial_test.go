package geospatial

import (
	"math"
	"testing"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao Abando to Moyua, roughly 600m apart.
	d := Haversine(43.2609, -2.9351, 43.2657, -2.9346)
	if d < 500 || d > 700 {
		t.Errorf("expected ~600m, got %.1f", d)
	}
}

func TestHaversine_ZeroDistance(t *testing.T) {
	if d := Haversine(43.26, -2.93, 43.26, -2.93); d != 0 {
		t.Errorf("expected 0, got %f", d)
	}
}

func TestHaversine_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111.2km on the sphere used here.
	d := Haversine(0, 0, 1, 0)
	if math.Abs(d-111194.9) > 100 {
		t.Errorf("expected ~111195m, got %.1f", d)
	}
}

func TestBoundingBox_ContainsCircle(t *testing.T) {
	minLat, minLon, maxLat, maxLon := BoundingBox(43.26, -2.93, 1000)
	if minLat >= 43.26 || maxLat <= 43.26 {
		t.Errorf("latitude band does not bracket center: [%f, %f]", minLat, maxLat)
	}
	if minLon >= -2.93 || maxLon <= -2.93 {
		t.Errorf("longitude band does not bracket center: [%f, %f]", minLon, maxLon)
	}
	// The box must cover the radius along the latitude axis.
	if Haversine(43.26, -2.93, maxLat, -2.93) < 1000 {
		t.Error("box edge closer than radius")
	}
}

func TestTurnAngle_Colinear(t *testing.T) {
	// q exactly between p and r: going straight, no turn.
	a := TurnAngle(0, 0, 0, 0.001, 0, 0.002)
	if a > 1e-9 {
		t.Errorf("expected 0 for colinear points, got %f", a)
	}
}

func TestTurnAngle_RightAngle(t *testing.T) {
	// East then north: a 90 degree bend.
	a := TurnAngle(0, 0, 0, 0.001, 0.001, 0.001)
	if math.Abs(a-90) > 1e-9 {
		t.Errorf("expected 90, got %f", a)
	}
}

func TestTurnAngle_UTurn(t *testing.T) {
	a := TurnAngle(0, 0, 0, 0.001, 0, 0)
	if math.Abs(a-180) > 1e-9 {
		t.Errorf("expected 180 for a reversal, got %f", a)
	}
}

func TestTurnAngle_NormalizedRange(t *testing.T) {
	// A shallow left and a shallow right report the same magnitude.
	left := TurnAngle(0, 0, 0, 0.001, 0.0002, 0.002)
	right := TurnAngle(0, 0, 0, 0.001, -0.0002, 0.002)
	if math.Abs(left-right) > 1e-9 {
		t.Errorf("expected symmetric magnitudes, got %f and %f", left, right)
	}
	if left < 0 || left > 180 {
		t.Errorf("angle out of [0,180]: %f", left)
	}
}
