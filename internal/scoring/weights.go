package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidStrategy is returned for a strategy name outside the four presets.
var ErrInvalidStrategy = errors.New("invalid strategy")

// WeightSet defines the relative importance of each scoring factor.
// All weights must sum to 1.0 (±0.001 tolerance).
type WeightSet struct {
	Urgency    float64 `json:"urgency"`
	Importance float64 `json:"importance"`
	Effort     float64 `json:"effort"`
	Dependence float64 `json:"dependence"`
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	return w.Urgency + w.Importance + w.Effort + w.Dependence
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w WeightSet) Validate() error {
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	for _, v := range w.asList() {
		if v < 0 {
			return fmt.Errorf("negative weight: %f", v)
		}
	}
	return nil
}

func (w WeightSet) asList() []float64 {
	return []float64{w.Urgency, w.Importance, w.Effort, w.Dependence}
}

// Strategy is one of the named weighting presets.
type Strategy int

const (
	SmartBalance Strategy = iota
	DeadlineDriven
	HighImpact
	FastestWins

	numStrategies
)

// DefaultStrategy is used when the caller names none.
const DefaultStrategy = SmartBalance

type strategyInfo struct {
	name    string
	slug    string
	weights WeightSet
}

// Indexed by Strategy; the array length keeps the table in step with the enum.
var strategyTable = [numStrategies]strategyInfo{
	SmartBalance: {
		name:    "Smart Balance",
		slug:    "smart_balance",
		weights: WeightSet{Urgency: 0.30, Importance: 0.35, Effort: 0.20, Dependence: 0.15},
	},
	DeadlineDriven: {
		name:    "Deadline Driven",
		slug:    "deadline_driven",
		weights: WeightSet{Urgency: 0.60, Importance: 0.20, Effort: 0.10, Dependence: 0.10},
	},
	HighImpact: {
		name:    "High Impact",
		slug:    "high_impact",
		weights: WeightSet{Urgency: 0.15, Importance: 0.55, Effort: 0.15, Dependence: 0.15},
	},
	FastestWins: {
		name:    "Fastest Wins",
		slug:    "fastest_wins",
		weights: WeightSet{Urgency: 0.20, Importance: 0.20, Effort: 0.45, Dependence: 0.15},
	},
}

// Strategies returns every preset in table order.
func Strategies() []Strategy {
	out := make([]Strategy, 0, numStrategies)
	for s := Strategy(0); s < numStrategies; s++ {
		out = append(out, s)
	}
	return out
}

// ParseStrategy resolves a display name ("Smart Balance") or slug
// ("smart_balance", "smart-balance"), ignoring case. An empty name yields
// DefaultStrategy.
func ParseStrategy(name string) (Strategy, error) {
	key := normalizeStrategyName(name)
	if key == "" {
		return DefaultStrategy, nil
	}
	for s := Strategy(0); s < numStrategies; s++ {
		if key == strategyTable[s].slug {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
}

func normalizeStrategyName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	return key
}

func (s Strategy) valid() bool {
	return s >= 0 && s < numStrategies
}

// Name returns the display name, e.g. "Deadline Driven".
func (s Strategy) Name() string {
	if !s.valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyTable[s].name
}

func (s Strategy) String() string { return s.Name() }

// Slug returns the identifier form, e.g. "deadline_driven".
func (s Strategy) Slug() string {
	if !s.valid() {
		return ""
	}
	return strategyTable[s].slug
}

// Weights returns the preset's weight set.
func (s Strategy) Weights() (WeightSet, error) {
	if !s.valid() {
		return WeightSet{}, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(s))
	}
	return strategyTable[s].weights, nil
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStrategy, int(s))
	}
	return []byte(s.Name()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
