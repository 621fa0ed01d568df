package geo

import (
	"math"
	"testing"
)

func TestDistance_SamePointIsZero(t *testing.T) {
	for _, p := range []Point{
		{0, 0},
		{-12.0464, -77.0428},
		{51.5007, -0.1246},
		{89.9, 179.9},
	} {
		if d := p.DistanceTo(p); d != 0 {
			t.Errorf("Distance(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{{-12.0464, -77.0428}, {-12.0553, -77.0311}},
		{{40.7128, -74.0060}, {34.0522, -118.2437}},
		{{0, 0}, {0, 1}},
	}
	for _, pr := range pairs {
		ab := pr[0].DistanceTo(pr[1])
		ba := pr[1].DistanceTo(pr[0])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("asymmetric distance: %f vs %f", ab, ba)
		}
	}
}

func TestDistance_KnownValues(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Point
		want    float64
		epsilon float64
	}{
		{
			// One degree of longitude on the equator: 2πR/360.
			name:    "one degree on equator",
			a:       Point{0, 0},
			b:       Point{0, 1},
			want:    111194.93,
			epsilon: 0.5,
		},
		{
			name:    "new york to los angeles",
			a:       Point{40.7128, -74.0060},
			b:       Point{34.0522, -118.2437},
			want:    3935746,
			epsilon: 2000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.DistanceTo(tt.b)
			if math.Abs(got-tt.want) > tt.epsilon {
				t.Errorf("distance = %f, want %f ± %f", got, tt.want, tt.epsilon)
			}
		})
	}
}

func TestDistance_TriangleInequalityShortRange(t *testing.T) {
	a := Point{-12.0464, -77.0428}
	b := Point{-12.0470, -77.0410}
	c := Point{-12.0481, -77.0399}

	if a.DistanceTo(c) > a.DistanceTo(b)+b.DistanceTo(c)+1e-6 {
		t.Error("triangle inequality violated for short distances")
	}
}

func TestPoint_Cell(t *testing.T) {
	p := Point{Lat: 57.64911, Lng: 10.40744}
	if got := p.Cell(); got != "u4pruyd" {
		t.Errorf("Cell() = %q, want %q", got, "u4pruyd")
	}
}

func TestPoint_Valid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{-90, 180}, true},
		{Point{90.1, 0}, false},
		{Point{0, -180.5}, false},
		{Point{math.NaN(), 0}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}
