package autoscaler

import "fmt"

// Config bundles the parameters every strategy constructor needs, read
// from the simulation's autoscaler config block.
type Config struct {
	Speed         float64
	HistPercentile float64
	TokenMaxCapacity int64
}

var registry = map[string]func(Config) Strategy{
	"react": func(c Config) Strategy { return NewReact(c.Speed) },
	"reg":   func(c Config) Strategy { return NewReg(c.Speed) },
	"hist":  func(c Config) Strategy { return NewHist(c.Speed, c.HistPercentile) },
	"plan":  func(c Config) Strategy { return NewPlan(c.Speed) },
	"token": func(c Config) Strategy { return NewToken(c.Speed, c.TokenMaxCapacity) },
	"token_mod": func(c Config) Strategy {
		return NewTokenMod(c.Speed, c.TokenMaxCapacity)
	},
	"conpaas": func(c Config) Strategy { return NewConPaaS(c.Speed) },
	"adapt":   func(c Config) Strategy { return NewAdapt(c.Speed) },
}

// NewStrategy builds the named strategy, panicking on an unknown name — the
// caller is expected to validate user-supplied config before constructing
// the simulation. An empty name has no entry here; callers should treat it
// as "no autoscaler" before reaching this function.
func NewStrategy(name string, cfg Config) Strategy {
	factory, ok := registry[name]
	if !ok {
		panic(fmt.Sprintf("autoscaler: unknown strategy %q", name))
	}
	return factory(cfg)
}

// IsValidStrategyName reports whether name (including the empty string,
// meaning no autoscaler) is acceptable configuration.
func IsValidStrategyName(name string) bool {
	if name == "" {
		return true
	}
	_, ok := registry[name]
	return ok
}

// ValidStrategyNames returns the non-empty strategy names NewStrategy
// accepts, for building config validation error messages.
func ValidStrategyNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
