package weather

import (
	"math"
	"math/rand"

	"github.com/kilianp07/microgrid/core/model"
)

// Rand is the random source used by the random walks.
type Rand interface {
	Float64() float64
}

// Walk describes a bounded random walk step: the increment is
// (r - 0.5) * Intensity * Speed.
type Walk struct {
	Intensity float64 `json:"intensity"`
	Speed     float64 `json:"speed"`
}

// Step moves prev by one random increment and clamps the result to [0,100].
func (w Walk) Step(prev, r float64) float64 {
	return model.ClampPct(prev + (r-0.5)*w.Intensity*w.Speed)
}

// Config defines the generator parameters.
type Config struct {
	Enabled bool `json:"enabled"`
	// StartMinutes is the initial time of day.
	StartMinutes int `json:"start_minutes"`
	// Seed initialises the random source. Zero selects a fixed default.
	Seed int64 `json:"seed"`
	// MaxKW is the per-source ceiling used when weather drives availability.
	MaxKW map[string]float64 `json:"max_kw"`
	Wind  Walk               `json:"wind"`
	Hydro Walk               `json:"hydro"`
}

// SetDefaults applies the default walk parameters and ceilings.
func (c *Config) SetDefaults() {
	if c.Wind == (Walk{}) {
		c.Wind = Walk{Intensity: 8, Speed: 0.05}
	}
	if c.Hydro == (Walk{}) {
		c.Hydro = Walk{Intensity: 3, Speed: 0.01}
	}
	if c.MaxKW == nil {
		c.MaxKW = map[string]float64{}
	}
	for _, k := range model.Renewables() {
		if _, ok := c.MaxKW[k.String()]; !ok {
			c.MaxKW[k.String()] = DefaultMaxKW
		}
	}
}

// DefaultMaxKW is the availability ceiling of each renewable source.
const DefaultMaxKW = 100

// Generator advances the weather state one minute per call.
type Generator struct {
	state model.Weather
	rng   Rand
	wind  Walk
	hydro Walk
	maxKW map[model.SourceKind]float64
}

// New creates a Generator. A nil rng is replaced by a math/rand source seeded
// from cfg.Seed.
func New(cfg Config, rng Rand) *Generator {
	cfg.SetDefaults()
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = 1
		}
		rng = rand.New(rand.NewSource(seed))
	}
	g := &Generator{
		rng:   rng,
		wind:  cfg.Wind,
		hydro: cfg.Hydro,
		maxKW: make(map[model.SourceKind]float64, 3),
	}
	for _, k := range model.Renewables() {
		g.maxKW[k] = cfg.MaxKW[k.String()]
	}
	g.state.Enabled = cfg.Enabled
	g.SetTime(cfg.StartMinutes)
	return g
}

// State returns a copy of the current weather.
func (g *Generator) State() model.Weather { return g.state }

// MaxKW returns the availability ceiling of a renewable source.
func (g *Generator) MaxKW(k model.SourceKind) float64 { return g.maxKW[k] }

// SetEnabled toggles whether Apply overwrites source availability.
func (g *Generator) SetEnabled(on bool) { g.state.Enabled = on }

// SetTime moves the clock to the given minute, wrapping into [0,1440), and
// recomputes the sunlight.
func (g *Generator) SetTime(minutes int) {
	m := minutes % model.MinutesPerDay
	if m < 0 {
		m += model.MinutesPerDay
	}
	g.state.TimeMinutes = m
	g.state.SunlightPct = Sunlight(m)
}

// Advance increments the clock by one minute and updates every percentage.
func (g *Generator) Advance() model.Weather {
	g.SetTime(g.state.TimeMinutes + 1)
	g.state.WindPct = g.wind.Step(g.state.WindPct, g.rng.Float64())
	g.state.HydroPct = g.hydro.Step(g.state.HydroPct, g.rng.Float64())
	return g.state
}

// Apply overwrites the availability of the renewable sources from the
// current weather. It does nothing while the generator is disabled.
func (g *Generator) Apply(sources map[model.SourceKind]*model.Source) {
	if !g.state.Enabled {
		return
	}
	for _, k := range model.Renewables() {
		src, ok := sources[k]
		if !ok {
			continue
		}
		src.SetAvailable(g.state.Pct(k) / 100 * g.maxKW[k])
	}
}

// Sunlight returns the triangular daylight curve: 100 at minute 720 and 0 at
// minutes 0 and 1440.
func Sunlight(minutes int) float64 {
	progress := math.Abs(float64(minutes)-720) / 720
	return math.Max(0, 100*(1-progress))
}
