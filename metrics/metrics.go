// Package metrics computes a performance report from an equity curve
// and a closed-trade ledger. Zero-denominator cases produce defined
// sentinels (0 for ratios over zero volatility, +Inf for a profit
// factor with no losses), never NaN.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/rgallant/tradesim/broker"
	"github.com/rgallant/tradesim/pnl"
)

// Options parameterize the report. Zero values fall back to the
// defaults noted on each field.
type Options struct {
	InitialCapital float64

	// RiskFreeRate is annualized; default 0.
	RiskFreeRate float64

	// TradingDaysPerYear for annualization; default 252.
	TradingDaysPerYear int

	// VaRConfidence in (0, 1); default 0.95.
	VaRConfidence float64
}

func (o Options) withDefaults() Options {
	if o.TradingDaysPerYear == 0 {
		o.TradingDaysPerYear = 252
	}
	if o.VaRConfidence == 0 {
		o.VaRConfidence = 0.95
	}
	return o
}

// Report is the full set of computed statistics.
type Report struct {
	TotalReturn float64
	CAGR        float64
	FinalEquity float64

	Sharpe  float64
	Sortino float64
	Calmar  float64

	MaxDrawdown     float64
	MaxDrawdownDays int

	AnnualVolatility float64
	VaR              float64 // positive loss fraction at the confidence level
	CVaR             float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	// ProfitFactor is +Inf when there are wins and no losses;
	// Undefined marks reports with no trades at all, where every
	// trade statistic is a zero value.
	ProfitFactor float64
	Undefined    bool

	Expectancy  float64
	AvgWin      float64
	AvgLoss     float64
	AvgTrade    float64
	LargestWin  float64
	LargestLoss float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
}

// Calculate runs once over the whole curve and ledger.
func Calculate(curve []pnl.Point, trades []broker.Trade, opts Options) Report {
	opts = opts.withDefaults()

	var r Report
	r.Undefined = len(trades) == 0

	if len(curve) > 0 && opts.InitialCapital > 0 {
		final := curve[len(curve)-1].Equity
		r.FinalEquity = final
		r.TotalReturn = (final - opts.InitialCapital) / opts.InitialCapital
		r.CAGR = cagr(opts.InitialCapital, final, curve[0].Time, curve[len(curve)-1].Time)
	}

	returns := periodReturns(curve)
	mean, std := meanStd(returns)

	tdpy := float64(opts.TradingDaysPerYear)
	r.AnnualVolatility = std * math.Sqrt(tdpy)

	dailyRF := opts.RiskFreeRate / tdpy
	if std > 0 {
		r.Sharpe = (mean - dailyRF) / std * math.Sqrt(tdpy)
	}
	if dd := downsideDeviation(returns, dailyRF); dd > 0 {
		r.Sortino = (mean - dailyRF) / dd * math.Sqrt(tdpy)
	}

	r.MaxDrawdown, r.MaxDrawdownDays = maxDrawdown(curve)
	if r.MaxDrawdown > 0 {
		r.Calmar = r.CAGR / r.MaxDrawdown
	}

	r.VaR, r.CVaR = valueAtRisk(returns, opts.VaRConfidence)

	tradeStats(&r, trades)
	return r
}

func cagr(initial, final float64, start, end time.Time) float64 {
	years := end.Sub(start).Hours() / (24 * 365.25)
	if years <= 0 || initial <= 0 || final <= 0 {
		return 0
	}
	return math.Pow(final/initial, 1/years) - 1
}

func periodReturns(curve []pnl.Point) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (curve[i].Equity-prev)/prev)
	}
	return out
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}

// downsideDeviation measures dispersion of returns below the target.
func downsideDeviation(xs []float64, target float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		if d := x - target; d < 0 {
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// maxDrawdown returns the deepest peak-to-trough decline and the
// longest stretch spent below a prior peak, in whole days.
func maxDrawdown(curve []pnl.Point) (float64, int) {
	if len(curve) == 0 {
		return 0, 0
	}

	peak := curve[0].Equity
	peakTime := curve[0].Time
	var worst float64
	var longest time.Duration

	for _, p := range curve {
		if p.Equity >= peak {
			peak = p.Equity
			peakTime = p.Time
			continue
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > worst {
				worst = dd
			}
		}
		if under := p.Time.Sub(peakTime); under > longest {
			longest = under
		}
	}
	return worst, int(longest.Hours() / 24)
}

// valueAtRisk returns the empirical VaR and CVaR as positive loss
// fractions. With too few observations for the tail it returns zeros.
func valueAtRisk(returns []float64, confidence float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	v := -sorted[idx]
	if v < 0 {
		v = 0
	}

	var tail float64
	for _, r := range sorted[:idx+1] {
		tail += r
	}
	cv := -tail / float64(idx+1)
	if cv < 0 {
		cv = 0
	}
	return v, cv
}

func tradeStats(r *Report, trades []broker.Trade) {
	if len(trades) == 0 {
		return
	}

	var grossProfit, grossLoss, total float64
	var winStreak, lossStreak int

	for _, t := range trades {
		total += t.RealizedPL

		switch {
		case t.RealizedPL > 0:
			r.WinningTrades++
			grossProfit += t.RealizedPL
			winStreak++
			lossStreak = 0
			if t.RealizedPL > r.LargestWin {
				r.LargestWin = t.RealizedPL
			}
		case t.RealizedPL < 0:
			r.LosingTrades++
			grossLoss += -t.RealizedPL
			lossStreak++
			winStreak = 0
			if -t.RealizedPL > r.LargestLoss {
				r.LargestLoss = -t.RealizedPL
			}
		default:
			winStreak, lossStreak = 0, 0
		}

		if winStreak > r.MaxConsecutiveWins {
			r.MaxConsecutiveWins = winStreak
		}
		if lossStreak > r.MaxConsecutiveLosses {
			r.MaxConsecutiveLosses = lossStreak
		}
	}

	r.TotalTrades = len(trades)
	r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	r.AvgTrade = total / float64(r.TotalTrades)

	if r.WinningTrades > 0 {
		r.AvgWin = grossProfit / float64(r.WinningTrades)
	}
	if r.LosingTrades > 0 {
		r.AvgLoss = grossLoss / float64(r.LosingTrades)
	}

	switch {
	case grossLoss > 0:
		r.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		r.ProfitFactor = math.Inf(1)
	}

	lossRate := float64(r.LosingTrades) / float64(r.TotalTrades)
	r.Expectancy = r.WinRate*r.AvgWin - lossRate*r.AvgLoss
}
