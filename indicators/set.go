package indicators

import (
	"sort"

	"github.com/rgallant/tradesim/market"
)

// Keys under which Engine publishes values in a Set.
const (
	MAShort    = "ma_short"
	MALong     = "ma_long"
	RSIKey     = "rsi"
	BBUpper    = "bb_upper"
	BBMiddle   = "bb_middle"
	BBLower    = "bb_lower"
	ATRKey     = "atr"
	ATRAvgKey  = "atr_avg"
	MACDKey    = "macd"
	MACDSignal = "macd_signal"
	VolumeAvg  = "volume_avg"
)

// Set is the indicator values for one bar. A key is absent until its
// indicator has enough history; absence is the explicit "unavailable"
// marker and must never be read as zero.
type Set struct {
	values map[string]float64
}

// Value returns the named indicator value and whether it is available.
func (s Set) Value(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s Set) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Names returns the available keys in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Config holds the lookback periods for a standard indicator engine.
type Config struct {
	ShortMAPeriod int     `json:"short_ma_period" yaml:"short_ma_period"`
	LongMAPeriod  int     `json:"long_ma_period" yaml:"long_ma_period"`
	RSIPeriod     int     `json:"rsi_period" yaml:"rsi_period"`
	BBPeriod      int     `json:"bb_period" yaml:"bb_period"`
	BBStdDev      float64 `json:"bb_std_dev" yaml:"bb_std_dev"`
	ATRPeriod     int     `json:"atr_period" yaml:"atr_period"`
	ATRAvgWindow  int     `json:"atr_avg_window" yaml:"atr_avg_window"`
	MACDFast      int     `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow      int     `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal    int     `json:"macd_signal" yaml:"macd_signal"`
	VolumeWindow  int     `json:"volume_window" yaml:"volume_window"`
}

func DefaultConfig() Config {
	return Config{
		ShortMAPeriod: 20,
		LongMAPeriod:  50,
		RSIPeriod:     14,
		BBPeriod:      20,
		BBStdDev:      2.0,
		ATRPeriod:     14,
		ATRAvgWindow:  50,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		VolumeWindow:  20,
	}
}

// Engine maintains the rolling indicator state for one symbol and
// produces a Set after each bar. It is a pure function of the bars fed
// so far: nothing here ever looks at a future bar.
type Engine struct {
	shortMA *SMA
	longMA  *SMA
	rsi     *RSI
	bb      *Bollinger
	atr     *ATR
	atrAvg  *ATRAverage
	macd    *MACD
	volumes []float64
	volWin  int
}

func NewEngine(cfg Config) *Engine {
	atr := NewATR(cfg.ATRPeriod)
	return &Engine{
		shortMA: NewSMA(cfg.ShortMAPeriod),
		longMA:  NewSMA(cfg.LongMAPeriod),
		rsi:     NewRSI(cfg.RSIPeriod),
		bb:      NewBollinger(cfg.BBPeriod, cfg.BBStdDev),
		atr:     atr,
		atrAvg:  NewATRAverage(atr, cfg.ATRAvgWindow),
		macd:    NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		volumes: make([]float64, 0, cfg.VolumeWindow),
		volWin:  cfg.VolumeWindow,
	}
}

func (e *Engine) Reset() {
	e.shortMA.Reset()
	e.longMA.Reset()
	e.rsi.Reset()
	e.bb.Reset()
	e.atr.Reset()
	e.atrAvg.Reset()
	e.macd.Reset()
	e.volumes = e.volumes[:0]
}

// Update consumes the next closed bar.
func (e *Engine) Update(b market.Bar) {
	e.shortMA.Update(b)
	e.longMA.Update(b)
	e.rsi.Update(b)
	e.bb.Update(b)
	e.atr.Update(b)
	e.atrAvg.Update(b) // samples the ATR updated just above
	e.macd.Update(b)

	e.volumes = append(e.volumes, b.Volume)
	if len(e.volumes) > e.volWin {
		e.volumes = e.volumes[1:]
	}
}

// Snapshot returns the Set for the bar most recently fed to Update.
func (e *Engine) Snapshot() Set {
	s := Set{values: make(map[string]float64, 11)}

	if e.shortMA.Ready() {
		s.values[MAShort] = e.shortMA.Value()
	}
	if e.longMA.Ready() {
		s.values[MALong] = e.longMA.Value()
	}
	if e.rsi.Ready() {
		s.values[RSIKey] = e.rsi.Value()
	}
	if e.bb.Ready() {
		mid, upper, lower := e.bb.Bands()
		s.values[BBMiddle] = mid
		s.values[BBUpper] = upper
		s.values[BBLower] = lower
	}
	if e.atr.Ready() {
		s.values[ATRKey] = e.atr.Value()
	}
	if e.atrAvg.Ready() {
		s.values[ATRAvgKey] = e.atrAvg.Value()
	}
	if e.macd.Ready() {
		s.values[MACDKey] = e.macd.Value()
		s.values[MACDSignal] = e.macd.Signal()
	}
	if len(e.volumes) >= e.volWin {
		sum := 0.0
		for _, v := range e.volumes {
			sum += v
		}
		s.values[VolumeAvg] = sum / float64(len(e.volumes))
	}

	return s
}

// NewSet builds a Set from explicit values; tests and callers that
// compute indicators elsewhere use it.
func NewSet(values map[string]float64) Set {
	copied := make(map[string]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Set{values: copied}
}
