package broker

import (
	"fmt"
	"sort"
	"sync"
)

// Config selects and parameterizes a broker implementation. Fields not
// relevant to a given Kind are ignored by its constructor.
type Config struct {
	Kind string `json:"kind" yaml:"kind"` // e.g. "sim"

	InitialCash        float64 `json:"initial_cash" yaml:"initial_cash"`
	SlippageBPS        float64 `json:"slippage_bps" yaml:"slippage_bps"`
	SpreadBPS          float64 `json:"spread_bps" yaml:"spread_bps"`
	CommissionPerTrade float64 `json:"commission_per_trade" yaml:"commission_per_trade"`
	AllowShort         bool    `json:"allow_short" yaml:"allow_short"`

	// MaxParticipationPct caps a single fill at this fraction of the
	// bar's volume; 0 disables the cap (orders always fill whole).
	MaxParticipationPct float64 `json:"max_participation_pct" yaml:"max_participation_pct"`
}

// Constructor builds a broker from config.
type Constructor func(cfg Config) (Broker, error)

var (
	regMu    sync.Mutex
	registry = make(map[string]Constructor)
)

// Register makes a broker kind available to New. Implementations call
// it from init.
func Register(kind string, c Constructor) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[kind] = c
}

// New constructs the broker named by cfg.Kind. Unknown kinds are a
// configuration error.
func New(cfg Config) (Broker, error) {
	regMu.Lock()
	c, ok := registry[cfg.Kind]
	regMu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown broker kind %q (registered: %v)", cfg.Kind, Kinds())
	}
	return c(cfg)
}

// Kinds lists registered broker kinds, sorted.
func Kinds() []string {
	regMu.Lock()
	defer regMu.Unlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
