package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/galapagotchi/evolution"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// PopulationSnapshot is the serializable view of a published population.
type PopulationSnapshot struct {
	Version     int    `json:"version"`
	Home        string `json:"home"`
	Generation  int    `json:"generation"`
	Phase       string `json:"phase"`
	Leg         int    `json:"leg"`
	Destination string `json:"destination"`
	MinAge      int    `json:"min_age"`
	MaxAge      int    `json:"max_age"`
	Midpoint    Vec3   `json:"midpoint"`

	Evolvers []EvolverState `json:"evolvers"`

	Milestone *Milestone `json:"milestone,omitempty"`
}

// Vec3 is a JSON-friendly position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// EvolverState holds one evolver's observable state.
type EvolverState struct {
	Index     int     `json:"index"`
	Age       int     `json:"age"`
	Gestating bool    `json:"gestating"`
	Touched   bool    `json:"touched"`
	Direction int     `json:"direction"`
	Position  Vec3    `json:"position"`
	Distance  float64 `json:"distance"`

	// Distance at the last ranking, absent before the first one
	RankedDistance *float64 `json:"ranked_distance,omitempty"`

	Generation  int    `json:"generation"`
	Origin      string `json:"origin"`
	ParentIndex int    `json:"parent_index"`
}

// NewPopulationSnapshot captures pop as published by engine.
func NewPopulationSnapshot(engine *evolution.Evolution, pop evolution.Population) PopulationSnapshot {
	mid := engine.Midpoint()
	snap := PopulationSnapshot{
		Version:     SnapshotVersion,
		Home:        engine.Home().ID(),
		Generation:  pop.Generation,
		Phase:       pop.Phase.String(),
		Leg:         engine.LegNumber(),
		Destination: engine.Leg().Destination().ID(),
		MinAge:      engine.MinAge(),
		MaxAge:      engine.MaxAge(),
		Midpoint:    Vec3{X: mid.X, Y: mid.Y, Z: mid.Z},
		Evolvers:    make([]EvolverState, 0, len(pop.Members)),
	}
	for _, m := range pop.Members {
		ev := m.Evolver
		p := ev.Position()
		state := EvolverState{
			Index:       ev.Index(),
			Age:         ev.Age(),
			Gestating:   ev.Gestating(),
			Touched:     ev.TouchedDestination(),
			Direction:   ev.Direction(),
			Position:    Vec3{X: p.X, Y: p.Y, Z: p.Z},
			Distance:    ev.DistanceFromTarget(),
			ParentIndex: -1,
		}
		if lineage, ok := engine.Lineage(m.Handle); ok {
			state.Generation = lineage.Generation
			state.Origin = lineage.Origin.String()
			state.ParentIndex = lineage.ParentIndex
		}
		if f, ok := engine.Fitness(m.Handle); ok && f.Ranked {
			d := f.Distance
			state.RankedDistance = &d
		}
		snap.Evolvers = append(snap.Evolvers, state)
	}
	return snap
}

// SaveSnapshot writes a snapshot to dir and returns its path.
func SaveSnapshot(snapshot *PopulationSnapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_gen%d_%s", snapshot.Generation, snapshot.Phase)
	if snapshot.Milestone != nil {
		name += "_" + string(snapshot.Milestone.Type)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*PopulationSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot PopulationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
