// Package sim provides a reference island for the evolution engine: hexagon
// cells, a home with six neighbours, journeys between cells, byte-gene
// genomes and point-body creatures travelling over noisy terrain.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/galapagotchi/config"
	"github.com/pthm-cable/galapagotchi/evolution"
)

// Cell is one hexalot of the island.
type Cell struct {
	coords Coords
	center r3.Vec
}

// ID implements evolution.Location.
func (c *Cell) ID() string {
	return c.coords.String()
}

// Coords returns the cell address.
func (c *Cell) Coords() Coords {
	return c.coords
}

// Center returns the world position of the cell centre.
func (c *Cell) Center() r3.Vec {
	return c.center
}

// Terrain slows bodies according to a smooth noise field.
type Terrain struct {
	noise opensimplex.Noise
	scale float64
	drag  float64
}

// NewTerrain creates a terrain field. drag is the largest fraction of speed
// the terrain can take away.
func NewTerrain(seed int64, scale, drag float64) *Terrain {
	return &Terrain{noise: opensimplex.NewNormalized(seed), scale: scale, drag: drag}
}

// SpeedFactor returns the multiplier applied to body speed at p.
func (t *Terrain) SpeedFactor(p r3.Vec) float64 {
	return 1 - t.drag*t.noise.Eval2(p.X*t.scale, p.Z*t.scale)
}

// Island holds the cells of a journey, the terrain and the pool of bodies
// shared by every creature on it.
type Island struct {
	body     config.BodyConfig
	spacing  float64
	cells    map[Coords]*Cell
	terrain  *Terrain
	genetics *Genetics
	rng      *rand.Rand

	home    *Home
	journey *Leg

	live      int
	nextIndex int
}

// NewIsland builds the island described by cfg. The home cell and every
// journey destination become cells; other coordinates are empty.
func NewIsland(cfg config.IslandConfig, body config.BodyConfig, seed int64) (*Island, error) {
	rng := rand.New(rand.NewSource(seed))
	isl := &Island{
		body:     body,
		spacing:  cfg.Spacing,
		cells:    make(map[Coords]*Cell),
		terrain:  NewTerrain(seed, body.TerrainScale, body.TerrainDrag),
		genetics: NewGenetics(rng),
		rng:      rng,
	}

	homeCoords, err := ParseCoords(cfg.Home)
	if err != nil {
		return nil, fmt.Errorf("island home: %w", err)
	}
	isl.home = &Home{Cell: isl.cell(homeCoords), island: isl}

	if len(cfg.Journey) == 0 {
		return nil, fmt.Errorf("island journey is empty")
	}
	var prev *Leg
	for i, id := range cfg.Journey {
		c, err := ParseCoords(id)
		if err != nil {
			return nil, fmt.Errorf("island journey leg %d: %w", i, err)
		}
		leg := &Leg{number: i, destination: isl.cell(c)}
		if prev == nil {
			isl.journey = leg
		} else {
			prev.next = leg
		}
		prev = leg
	}
	return isl, nil
}

func (isl *Island) cell(c Coords) *Cell {
	if existing, ok := isl.cells[c]; ok {
		return existing
	}
	cell := &Cell{coords: c, center: c.Center(isl.spacing)}
	isl.cells[c] = cell
	return cell
}

// Home returns the home cell.
func (isl *Island) Home() *Home {
	return isl.home
}

// Journey returns the first leg.
func (isl *Island) Journey() *Leg {
	return isl.journey
}

// Genetics returns the genome factory bound to the island's random source.
func (isl *Island) Genetics() *Genetics {
	return isl.genetics
}

// Cell returns the cell at c, if the island has one.
func (isl *Island) Cell(c Coords) (*Cell, bool) {
	cell, ok := isl.cells[c]
	return cell, ok
}

// Live returns the number of bodies currently allocated.
func (isl *Island) Live() int {
	return isl.live
}

// acquire reserves a body, failing once the island is at capacity.
func (isl *Island) acquire() (int, bool) {
	if isl.live >= isl.body.Capacity {
		return 0, false
	}
	isl.live++
	isl.nextIndex++
	return isl.nextIndex, true
}

func (isl *Island) release() {
	isl.live--
}

// Home is the cell a journey starts from. It stores the current genome.
type Home struct {
	*Cell
	island *Island
	genome evolution.GenomeData
}

// CurrentGenome implements evolution.Home.
func (h *Home) CurrentGenome() (evolution.GenomeData, bool) {
	if len(h.genome) == 0 {
		return nil, false
	}
	return h.genome, true
}

// SetGenome replaces the stored genome.
func (h *Home) SetGenome(data evolution.GenomeData) {
	h.genome = append(evolution.GenomeData(nil), data...)
}

// Neighbors implements evolution.Home. Entries are nil where the island has
// no cell.
func (h *Home) Neighbors() []evolution.Location {
	out := make([]evolution.Location, len(Adjacent))
	for d, off := range Adjacent {
		if c, ok := h.island.cells[h.coords.Add(off)]; ok {
			out[d] = c
		}
	}
	return out
}

// CreateEvolver implements evolution.Home. The creature is born at the home
// centre facing direction.
func (h *Home) CreateEvolver(genome evolution.Genome, direction int) (evolution.Evolver, bool) {
	g, ok := genome.(*Genome)
	if !ok {
		return nil, false
	}
	c, ok := h.island.newCreature(g, direction, h.center, directionAngle(direction), 0)
	if !ok {
		return nil, false
	}
	return c, true
}

// Leg is one segment of a journey ending at a cell.
type Leg struct {
	number      int
	destination *Cell
	next        *Leg
}

// Destination implements evolution.Leg.
func (l *Leg) Destination() evolution.Location {
	return l.destination
}

// NextLeg implements evolution.Leg.
func (l *Leg) NextLeg() (evolution.Leg, bool) {
	if l.next == nil {
		return nil, false
	}
	return l.next, true
}

// Number returns the zero-based position of the leg in its journey.
func (l *Leg) Number() int {
	return l.number
}
