package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a strategy from its parameters.
type Factory func(Params) (Strategy, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
	aliases   = make(map[string]string)
)

// Register adds a strategy under its canonical name. Aliases resolve to
// the same factory. Names are matched case-insensitively.
func Register(name string, f Factory, alias ...string) {
	mu.Lock()
	defer mu.Unlock()

	key := normalize(name)
	factories[key] = f
	for _, a := range alias {
		aliases[normalize(a)] = key
	}
}

// New builds the named strategy. Zero parameters take their defaults.
func New(name string, p Params) (Strategy, error) {
	mu.RLock()
	key := normalize(name)
	if canon, ok := aliases[key]; ok {
		key = canon
	}
	f, ok := factories[key]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q (supported: %s)",
			ErrInvalidParameters, name, strings.Join(Names(), ", "))
	}
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return f(p)
}

// Names lists the canonical strategy names in order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func init() {
	Register(BuyAndHoldName, func(p Params) (Strategy, error) { return NewBuyAndHold(p), nil }, "BUYHOLD", "buyhold")
	Register(MomentumName, func(p Params) (Strategy, error) { return NewMomentum(p), nil }, "MOMENTUM")
	Register(BollingerName, func(p Params) (Strategy, error) { return NewBollinger(p), nil }, "BOLLINGER")
	Register(MACrossName, func(p Params) (Strategy, error) { return NewMACross(p) }, "MACROSS")
	Register(AdaptiveName, func(p Params) (Strategy, error) { return NewAdaptive(), nil }, "QUARKS")
}
