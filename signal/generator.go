package signal

import (
	"fmt"
	"time"

	"github.com/rgallant/tradesim/indicators"
)

// Generator scores indicator evidence into BUY/SELL/HOLD. Each rule
// votes signed points; the net score is compared to Threshold. An
// indicator without enough history simply does not vote rather than
// being treated as zero.
type Generator struct {
	// RSI levels. Overbought/Oversold add one point; the Strong levels
	// add three and also arm the safety override.
	RSIOverbought       float64
	RSIOversold         float64
	RSIStrongOverbought float64
	RSIStrongOversold   float64

	// Threshold is the absolute net score needed for a directional
	// signal.
	Threshold int
}

// NewGenerator returns a Generator with the standard 70/30 and 80/20
// RSI levels and a score threshold of 3.
func NewGenerator() *Generator {
	return &Generator{
		RSIOverbought:       70,
		RSIOversold:         30,
		RSIStrongOverbought: 80,
		RSIStrongOversold:   20,
		Threshold:           3,
	}
}

// vote is one rule's contribution to the score.
type vote struct {
	points int
	reason string
}

// Generate produces the signal for one symbol at one bar. price is the
// bar's close.
func (g *Generator) Generate(symbol string, at time.Time, ind indicators.Set, price float64) Signal {
	votes := g.score(ind, price)

	net := 0
	reasons := make([]string, 0, len(votes))
	for _, v := range votes {
		net += v.points
		reasons = append(reasons, v.reason)
	}

	dir := Hold
	switch {
	case net >= g.Threshold:
		dir = Buy
	case net <= -g.Threshold:
		dir = Sell
	}

	conf := g.confidence(dir, votes)

	// Safety override, applied after the aggregate score: an extreme
	// RSI blocks entries that would fight a stretched mean reversion.
	if rsi, ok := ind.Value(indicators.RSIKey); ok {
		if dir == Buy && rsi > g.RSIStrongOverbought {
			dir = Hold
			reasons = append(reasons, fmt.Sprintf("buy overridden: RSI %.1f above %.1f", rsi, g.RSIStrongOverbought))
			if conf > 40 {
				conf = 40
			}
		}
		if dir == Sell && rsi < g.RSIStrongOversold {
			dir = Hold
			reasons = append(reasons, fmt.Sprintf("sell overridden: RSI %.1f below %.1f", rsi, g.RSIStrongOversold))
			if conf > 40 {
				conf = 40
			}
		}
	}

	return Signal{
		Symbol:     symbol,
		Time:       at,
		Direction:  dir,
		Confidence: conf,
		Reasons:    reasons,
	}
}

func (g *Generator) score(ind indicators.Set, price float64) []vote {
	var votes []vote

	maShort, haveShort := ind.Value(indicators.MAShort)
	maLong, haveLong := ind.Value(indicators.MALong)
	bullishCross := haveShort && haveLong && maShort > maLong
	bearishCross := haveShort && haveLong && maShort < maLong

	switch {
	case bullishCross:
		votes = append(votes, vote{+2, fmt.Sprintf("bullish MA cross: short %.2f > long %.2f", maShort, maLong)})
	case bearishCross:
		votes = append(votes, vote{-2, fmt.Sprintf("bearish MA cross: short %.2f < long %.2f", maShort, maLong)})
	}

	if rsi, ok := ind.Value(indicators.RSIKey); ok {
		switch {
		case rsi < g.RSIStrongOversold:
			votes = append(votes, vote{+3, fmt.Sprintf("RSI strongly oversold (%.1f < %.1f)", rsi, g.RSIStrongOversold)})
		case rsi < g.RSIOversold:
			votes = append(votes, vote{+1, fmt.Sprintf("RSI oversold (%.1f < %.1f)", rsi, g.RSIOversold)})
		case rsi > g.RSIStrongOverbought:
			votes = append(votes, vote{-3, fmt.Sprintf("RSI strongly overbought (%.1f > %.1f)", rsi, g.RSIStrongOverbought)})
		case rsi > g.RSIOverbought:
			votes = append(votes, vote{-1, fmt.Sprintf("RSI overbought (%.1f > %.1f)", rsi, g.RSIOverbought)})
		}
	}

	if lower, ok := ind.Value(indicators.BBLower); ok {
		if upper, ok2 := ind.Value(indicators.BBUpper); ok2 {
			switch {
			case price < lower:
				votes = append(votes, vote{+1, fmt.Sprintf("price %.2f below lower band %.2f", price, lower)})
			case price > upper:
				votes = append(votes, vote{-1, fmt.Sprintf("price %.2f above upper band %.2f", price, upper)})
			}
		}
	}

	if macd, ok := ind.Value(indicators.MACDKey); ok {
		if sig, ok2 := ind.Value(indicators.MACDSignal); ok2 {
			if macd > sig {
				votes = append(votes, vote{+1, fmt.Sprintf("MACD %.4f above signal %.4f", macd, sig)})
			} else {
				votes = append(votes, vote{-1, fmt.Sprintf("MACD %.4f below signal %.4f", macd, sig)})
			}
		}
	}

	// Pullback rule: price dipping under the short MA in an uptrend is
	// an entry, price poking over it in a downtrend is an exit.
	if haveShort {
		if bullishCross && price < maShort {
			votes = append(votes, vote{+1, "pullback below short MA in uptrend"})
		} else if bearishCross && price > maShort {
			votes = append(votes, vote{-1, "rally above short MA in downtrend"})
		}
	}

	return votes
}

// confidence maps the confirming/contradicting vote split to 0-100:
// the share of confirming votes, a bonus when nothing contradicts, a
// penalty per contradicting vote.
func (g *Generator) confidence(dir Direction, votes []vote) float64 {
	if dir == Hold {
		return 50
	}

	confirming, contradicting := 0, 0
	for _, v := range votes {
		switch {
		case v.points == 0:
			continue
		case (v.points > 0) == (dir == Buy):
			confirming++
		default:
			contradicting++
		}
	}

	total := confirming + contradicting
	if total == 0 {
		return 50
	}

	conf := 100 * float64(confirming) / float64(total)
	if contradicting == 0 {
		conf += 10
	}
	conf -= 5 * float64(contradicting)

	if conf > 100 {
		conf = 100
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
