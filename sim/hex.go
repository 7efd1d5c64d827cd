package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Coords addresses a hexagon cell. Horizontal neighbours differ by 2 in X,
// diagonal neighbours by 1 in both X and Y.
type Coords struct {
	X, Y int
}

// Adjacent lists the offsets of the six neighbours in direction order:
// east, north-east, north-west, west, south-west, south-east.
var Adjacent = [6]Coords{
	{X: 2, Y: 0},
	{X: 1, Y: -1},
	{X: -1, Y: -1},
	{X: -2, Y: 0},
	{X: -1, Y: 1},
	{X: 1, Y: 1},
}

// ParseCoords parses "x,y".
func ParseCoords(s string) (Coords, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Coords{}, fmt.Errorf("coords %q: want x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Coords{}, fmt.Errorf("coords %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Coords{}, fmt.Errorf("coords %q: %w", s, err)
	}
	if (x+y)%2 != 0 {
		return Coords{}, fmt.Errorf("coords %q: x+y must be even", s)
	}
	return Coords{X: x, Y: y}, nil
}

func (c Coords) String() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y)
}

// Add returns c offset by d.
func (c Coords) Add(d Coords) Coords {
	return Coords{X: c.X + d.X, Y: c.Y + d.Y}
}

// Center returns the world position of the cell centre on the ground plane.
// Neighbouring centres are spacing apart.
func (c Coords) Center(spacing float64) r3.Vec {
	return r3.Vec{
		X: float64(c.X) * spacing / 2,
		Z: float64(c.Y) * spacing * math.Sqrt(3) / 2,
	}
}

// directionAngle is the heading in radians of neighbour direction d.
func directionAngle(d int) float64 {
	off := Adjacent[d%len(Adjacent)]
	v := off.Center(1)
	return math.Atan2(v.Z, v.X)
}

// nearestDirection returns the neighbour direction closest to heading.
func nearestDirection(heading float64) int {
	best, bestDiff := 0, math.Inf(1)
	for d := range Adjacent {
		diff := math.Abs(normalizeAngle(heading - directionAngle(d)))
		if diff < bestDiff {
			best, bestDiff = d, diff
		}
	}
	return best
}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}
