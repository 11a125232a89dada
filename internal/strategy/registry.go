package strategy

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a strategy from loosely typed parameters (YAML or JSON).
type Factory func(params map[string]any) (Strategy, error)

type entry struct {
	info    Info
	factory Factory
}

// Registry maps strategy names to factories.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a strategy. Registering the same name twice is an error.
func (r *Registry) Register(info Info, f Factory) error {
	if info.Name == "" {
		return fmt.Errorf("strategy name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[info.Name]; ok {
		return fmt.Errorf("strategy %q already registered", info.Name)
	}
	r.entries[info.Name] = entry{info: info, factory: f}
	return nil
}

// Build constructs the named strategy.
func (r *Registry) Build(name string, params map[string]any) (Strategy, error) {
	r.mu.RLock()
	e, ok := r.entries[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported strategy: %q", name)
	}
	return e.factory(params)
}

// List returns strategy infos sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry holds the built-in strategies.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, b := range builtins() {
			if err := defaultRegistry.Register(b.info, b.factory); err != nil {
				panic(err)
			}
		}
	})
	return defaultRegistry
}

// FromConfig builds a built-in strategy by name.
func FromConfig(name string, params map[string]any) (Strategy, error) {
	return DefaultRegistry().Build(name, params)
}

func builtins() []entry {
	mr := DefaultMeanReversionParams()
	return []entry{
		{
			info: Info{
				Name:        "mean_reversion",
				Description: "Goes long when the close sits more than `threshold` rolling standard deviations below its rolling mean.",
				Parameters: []ParamInfo{
					{Name: "window", Type: "int", Description: "Rolling window length in bars", Default: mr.Window},
					{Name: "threshold", Type: "float", Description: "Z-score below -threshold opens a long", Default: mr.Threshold},
				},
			},
			factory: func(p map[string]any) (Strategy, error) {
				return NewMeanReversion(MeanReversionParams{
					Window:    mustInt(p, "window", mr.Window),
					Threshold: mustNum(p, "threshold", mr.Threshold),
				})
			},
		},
		{
			info: Info{
				Name:        "sma_cross",
				Description: "Long while the short simple moving average is above the long one.",
				Parameters: []ParamInfo{
					{Name: "short", Type: "int", Description: "Short SMA length in bars", Default: 10},
					{Name: "long", Type: "int", Description: "Long SMA length in bars", Default: 30},
				},
			},
			factory: func(p map[string]any) (Strategy, error) {
				return NewSMACross(SMACrossParams{
					Short: mustInt(p, "short", 10),
					Long:  mustInt(p, "long", 30),
				})
			},
		},
		{
			info: Info{
				Name:        "buy_and_hold",
				Description: "Buys every instrument on the first bar and holds to the end.",
			},
			factory: func(map[string]any) (Strategy, error) { return BuyAndHold{}, nil },
		},
		{
			info: Info{
				Name:        "oracle",
				Description: "Perfect foresight. Long whenever the next close is higher. Upper bound only.",
				Parameters: []ParamInfo{
					{Name: "min_move", Type: "float", Description: "Ignore next-bar gains below this fraction", Default: 0.0},
				},
				Lookahead: true,
			},
			factory: func(p map[string]any) (Strategy, error) {
				return &Oracle{MinMove: mustNum(p, "min_move", 0)}, nil
			},
		},
	}
}

func mustNum(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		case int:
			return float64(x)
		case int64:
			return float64(x)
		}
	}
	return def
}

func mustInt(m map[string]any, key string, def int) int {
	return int(mustNum(m, key, float64(def)))
}
