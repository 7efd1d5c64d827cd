// Package config provides configuration loading and access for the evolution runtime.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all runtime configuration parameters.
type Config struct {
	Evolution EvolutionConfig `yaml:"evolution"`
	Body      BodyConfig      `yaml:"body"`
	Island    IslandConfig    `yaml:"island"`
	Driver    DriverConfig    `yaml:"driver"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Observe   ObserveConfig   `yaml:"observe"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EvolutionConfig holds the generational parameters of the evolution engine.
// Ages and lifespans are in simulation ticks.
type EvolutionConfig struct {
	MaxPopulation       int     `yaml:"max_population"`
	MutationCount       int     `yaml:"mutation_count"` // Mutations between siblings of a fresh population
	SurvivalRate        float64 `yaml:"survival_rate"`  // Fraction of a ranked generation that survives
	MinLifespan         int     `yaml:"min_lifespan"`
	LifespanIncrease    int     `yaml:"lifespan_increase"`     // Added to max age after each survival round
	MaxLifespanIncrease int     `yaml:"max_lifespan_increase"` // Window growth beyond min_lifespan before it resets
	NormalTicks         int     `yaml:"normal_ticks"`          // Tick budget per evolver per iteration
	SettleDelayMS       int     `yaml:"settle_delay_ms"`       // Wait between transition phases
}

// SettleDelay returns the settle delay as a duration.
func (c EvolutionConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// MaxLifespan is the widest allowed age window.
func (c EvolutionConfig) MaxLifespan() int {
	return c.MinLifespan + c.MaxLifespanIncrease
}

// Validate reports the first parameter that would break the engine invariants.
func (c EvolutionConfig) Validate() error {
	switch {
	case c.MaxPopulation <= 0:
		return fmt.Errorf("evolution.max_population must be positive, got %d", c.MaxPopulation)
	case c.SurvivalRate <= 0 || c.SurvivalRate > 1:
		return fmt.Errorf("evolution.survival_rate must be in (0, 1], got %v", c.SurvivalRate)
	case c.MinLifespan <= 0:
		return fmt.Errorf("evolution.min_lifespan must be positive, got %d", c.MinLifespan)
	case c.LifespanIncrease < 0 || c.MaxLifespanIncrease < 0:
		return fmt.Errorf("evolution lifespan increases must not be negative")
	case c.NormalTicks <= 0:
		return fmt.Errorf("evolution.normal_ticks must be positive, got %d", c.NormalTicks)
	case c.MutationCount < 0:
		return fmt.Errorf("evolution.mutation_count must not be negative, got %d", c.MutationCount)
	case c.SettleDelayMS < 0:
		return fmt.Errorf("evolution.settle_delay_ms must not be negative, got %d", c.SettleDelayMS)
	}
	return nil
}

// BodyConfig holds the parameters of the reference creature body.
type BodyConfig struct {
	Capacity           int     `yaml:"capacity"`        // Bodies an island can host at once
	StrandLength       int     `yaml:"strand_length"`   // Genes per direction strand
	TicksPerGene       int     `yaml:"ticks_per_gene"`  // Ticks each gene steers for
	GestationTicks     int     `yaml:"gestation_ticks"` // Ticks after birth before moving
	Speed              float64 `yaml:"speed"`           // Distance per tick on flat terrain
	MaxTurn            float64 `yaml:"max_turn"`        // Radians a gene can turn the heading
	SteerGain          float64 `yaml:"steer_gain"`      // Fraction of bearing error corrected per adjustment
	OffspringMutations int     `yaml:"offspring_mutations"`
	TouchRadius        float64 `yaml:"touch_radius"`
	TerrainScale       float64 `yaml:"terrain_scale"` // Noise frequency of the terrain drag field
	TerrainDrag        float64 `yaml:"terrain_drag"`  // Max fraction of speed lost to terrain
}

// IslandConfig describes the reference island and its journey.
// Cells are addressed by "x,y" hexagon coordinates.
type IslandConfig struct {
	Spacing float64  `yaml:"spacing"`
	Home    string   `yaml:"home"`
	Journey []string `yaml:"journey"`
}

// DriverConfig holds frame loop settings.
type DriverConfig struct {
	FPS       int `yaml:"fps"`
	MaxFrames int `yaml:"max_frames"` // 0 = unlimited
}

// StoreConfig holds genome persistence settings.
type StoreConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables persistence
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	OutputDir             string `yaml:"output_dir"`
	SnapshotDir           string `yaml:"snapshot_dir"`
	PerfWindow            int    `yaml:"perf_window"`
	MilestoneHistory      int    `yaml:"milestone_history"`
	StagnationGenerations int    `yaml:"stagnation_generations"`
}

// ObserveConfig holds the websocket observer settings.
type ObserveConfig struct {
	Listen       string `yaml:"listen"` // empty disables the observer endpoint
	ClientBuffer int    `yaml:"client_buffer"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	FrameDuration time.Duration // 1s / Driver.FPS
	SettleDelay   time.Duration
	MaxLifespan   int
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Fields absent from the file keep their default
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Evolution.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Clone returns a deep copy that can be modified without touching c.
func (c *Config) Clone() *Config {
	dup := *c
	dup.Island.Journey = append([]string(nil), c.Island.Journey...)
	return &dup
}

// Recompute refreshes derived values after fields were changed in place.
func (c *Config) Recompute() {
	c.computeDerived()
}

func (c *Config) computeDerived() {
	fps := c.Driver.FPS
	if fps <= 0 {
		fps = 60
	}
	c.Derived.FrameDuration = time.Second / time.Duration(fps)
	c.Derived.SettleDelay = c.Evolution.SettleDelay()
	c.Derived.MaxLifespan = c.Evolution.MaxLifespan()
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.EncodeYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// EncodeYAML encodes the configuration. Derived values are not written.
func (c *Config) EncodeYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
