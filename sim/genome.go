package sim

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/galapagotchi/evolution"
)

// ErrGenomeLength is returned for genome data that cannot be split into six
// equal strands.
var ErrGenomeLength = errors.New("genome length must be a positive multiple of 6")

// Genome is a byte-gene behavior description with one strand per neighbour
// direction. Each gene steers the body for a fixed number of ticks.
type Genome struct {
	strands [6][]byte
	rng     *rand.Rand
}

// Genetics creates and parses genomes sharing one mutation source.
type Genetics struct {
	rng *rand.Rand
}

// NewGenetics creates genetics drawing mutations from rng.
func NewGenetics(rng *rand.Rand) *Genetics {
	return &Genetics{rng: rng}
}

// Parse decodes genome data. It satisfies evolution.GenomeParser.
func (g *Genetics) Parse(data evolution.GenomeData) (evolution.Genome, error) {
	genome, err := g.parse(data)
	if err != nil {
		return nil, err
	}
	return genome, nil
}

func (g *Genetics) parse(data evolution.GenomeData) (*Genome, error) {
	if len(data) == 0 || len(data)%6 != 0 {
		return nil, fmt.Errorf("parsing %d bytes: %w", len(data), ErrGenomeLength)
	}
	n := len(data) / 6
	genome := &Genome{rng: g.rng}
	for d := range genome.strands {
		genome.strands[d] = append([]byte(nil), data[d*n:(d+1)*n]...)
	}
	return genome, nil
}

// Random creates a genome with strandLength random genes per direction.
func (g *Genetics) Random(strandLength int) *Genome {
	genome := &Genome{rng: g.rng}
	for d := range genome.strands {
		strand := make([]byte, strandLength)
		g.rng.Read(strand)
		genome.strands[d] = strand
	}
	return genome
}

// Data implements evolution.Genome.
func (g *Genome) Data() evolution.GenomeData {
	n := len(g.strands[0])
	data := make(evolution.GenomeData, 0, 6*n)
	for _, strand := range g.strands {
		data = append(data, strand...)
	}
	return data
}

// WithMutatedBehavior implements evolution.Genome.
func (g *Genome) WithMutatedBehavior(direction, count int) evolution.Genome {
	dup := g.clone()
	dup.mutate(direction, count)
	return dup
}

// StrandLength returns the number of genes per direction.
func (g *Genome) StrandLength() int {
	return len(g.strands[0])
}

// Gene returns gene i of the strand for direction, wrapping i.
func (g *Genome) Gene(direction, i int) byte {
	strand := g.strands[direction%6]
	return strand[i%len(strand)]
}

func (g *Genome) clone() *Genome {
	dup := &Genome{rng: g.rng}
	for d, strand := range g.strands {
		dup.strands[d] = append([]byte(nil), strand...)
	}
	return dup
}

// mutate replaces count random genes of one strand.
func (g *Genome) mutate(direction, count int) {
	strand := g.strands[direction%6]
	for range count {
		strand[g.rng.Intn(len(strand))] = byte(g.rng.Intn(256))
	}
}

// mutateAny replaces count random genes across all strands.
func (g *Genome) mutateAny(count int) {
	for range count {
		g.mutate(g.rng.Intn(6), 1)
	}
}
