package sim

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestParseCoords(t *testing.T) {
	tests := []struct {
		in      string
		want    Coords
		wantErr bool
	}{
		{"0,0", Coords{0, 0}, false},
		{"2,0", Coords{2, 0}, false},
		{" -3, 1 ", Coords{-3, 1}, false},
		{"1,0", Coords{}, true},
		{"a,0", Coords{}, true},
		{"4", Coords{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCoords(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNeighbourCentresAreSpacingApart(t *testing.T) {
	const spacing = 40.0
	origin := Coords{4, 2}
	for d, off := range Adjacent {
		dist := r3.Norm(r3.Sub(origin.Add(off).Center(spacing), origin.Center(spacing)))
		if math.Abs(dist-spacing) > 1e-9 {
			t.Errorf("direction %d: distance %v, want %v", d, dist, spacing)
		}
	}
}

func TestNearestDirection(t *testing.T) {
	for d := range Adjacent {
		if got := nearestDirection(directionAngle(d) + 0.1); got != d {
			t.Errorf("nearestDirection(angle %d + 0.1) = %d", d, got)
		}
	}
	if got := directionAngle(0); got != 0 {
		t.Errorf("east heading = %v, want 0", got)
	}
}
