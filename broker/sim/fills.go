package sim

import (
	"fmt"
	"math"

	"github.com/rgallant/tradesim/broker"
	"github.com/rgallant/tradesim/market"
)

// workPendingLocked evaluates resting orders for one symbol in
// submission order. Orders that finish are removed from the queue.
func (b *Broker) workPendingLocked(symbol string, bar market.Bar) {
	remaining := b.pending[:0]
	for _, id := range b.pending {
		ord := b.orders[id]
		if ord.Symbol != symbol {
			remaining = append(remaining, id)
			continue
		}
		b.evalOrderLocked(ord, bar)
		if ord.Status.Terminal() {
			delete(b.trailExtreme, id)
		} else {
			remaining = append(remaining, id)
		}
	}
	b.pending = remaining
}

// evalOrderLocked attempts to execute an order against one bar.
func (b *Broker) evalOrderLocked(ord *broker.Order, bar market.Bar) {
	switch ord.Type {
	case broker.Market:
		price := b.marketFillPrice(ord.Side, bar.Close)
		b.fillLocked(ord, price, bar, price-bar.Close)

	case broker.Limit:
		limit := *ord.LimitPrice
		if ord.Side == broker.SideBuy && bar.Low <= limit {
			b.fillLocked(ord, limit, bar, 0)
		} else if ord.Side == broker.SideSell && bar.High >= limit {
			b.fillLocked(ord, limit, bar, 0)
		}

	case broker.Stop:
		stop := *ord.StopPrice
		if ord.Side == broker.SideBuy && bar.High >= stop {
			price := stop + stop*b.cfg.SlippageBPS/10000
			b.fillLocked(ord, price, bar, price-stop)
		} else if ord.Side == broker.SideSell && bar.Low <= stop {
			price := stop - stop*b.cfg.SlippageBPS/10000
			b.fillLocked(ord, price, bar, price-stop)
		}

	case broker.TrailingStop:
		stop := b.trailStopLevel(ord)
		if ord.Side == broker.SideSell && bar.Low <= stop {
			price := stop - stop*b.cfg.SlippageBPS/10000
			b.fillLocked(ord, price, bar, price-stop)
		} else if ord.Side == broker.SideBuy && bar.High >= stop {
			price := stop + stop*b.cfg.SlippageBPS/10000
			b.fillLocked(ord, price, bar, price-stop)
		}
	}
}

// marketFillPrice charges half the quoted spread plus slippage, both
// against the side.
func (b *Broker) marketFillPrice(side broker.Side, close float64) float64 {
	adverse := close*b.cfg.SpreadBPS/20000 + close*b.cfg.SlippageBPS/10000
	if side == broker.SideBuy {
		return close + adverse
	}
	return close - adverse
}

// updateTrailingStopsLocked ratchets each resting trailing stop's
// reference extreme. The stop level only ever tightens.
func (b *Broker) updateTrailingStopsLocked(symbol string, bar market.Bar) {
	for _, id := range b.pending {
		ord := b.orders[id]
		if ord.Symbol != symbol || ord.Type != broker.TrailingStop {
			continue
		}
		ext := b.trailExtreme[id]
		if ord.Side == broker.SideSell && bar.High > ext {
			b.trailExtreme[id] = bar.High
		} else if ord.Side == broker.SideBuy && bar.Low < ext {
			b.trailExtreme[id] = bar.Low
		}
	}
}

func (b *Broker) trailStopLevel(ord *broker.Order) float64 {
	ext := b.trailExtreme[ord.ID]
	if ord.Side == broker.SideSell {
		return ext * (1 - ord.TrailPct)
	}
	return ext * (1 + ord.TrailPct)
}

// fillLocked executes as much of an order as the bar's liquidity and
// the account's cash allow. Partial executions leave the order resting
// with status PARTIALLY_FILLED.
func (b *Broker) fillLocked(ord *broker.Order, price float64, bar market.Bar, slippage float64) {
	qty := ord.Quantity - ord.FilledQuantity

	if b.cfg.MaxParticipationPct > 0 && bar.Volume > 0 {
		liquidity := math.Floor(b.cfg.MaxParticipationPct * bar.Volume)
		if liquidity < 1 {
			return // no executable size this bar
		}
		if qty > liquidity {
			qty = liquidity
		}
	}

	if reason, ok := b.checkFundsLocked(ord, price, qty); !ok {
		ord.Status = broker.StatusRejected
		ord.RejectReason = reason
		return
	}

	commission := b.cfg.CommissionPerTrade
	if ord.Side == broker.SideBuy {
		b.cash -= price*qty + commission
	} else {
		b.cash += price*qty - commission
	}

	fill := broker.Fill{
		ID:         b.nextFillID(),
		OrderID:    ord.ID,
		Symbol:     ord.Symbol,
		Side:       ord.Side,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Slippage:   slippage,
		Time:       bar.Time,
	}
	b.fills = append(b.fills, fill)

	ord.AvgFillPrice = (ord.AvgFillPrice*ord.FilledQuantity + price*qty) / (ord.FilledQuantity + qty)
	ord.FilledQuantity += qty
	ord.Commission += commission
	ord.FilledAt = bar.Time
	if ord.FilledQuantity >= ord.Quantity {
		ord.Status = broker.StatusFilled
	} else {
		ord.Status = broker.StatusPartiallyFilled
	}

	b.applyToPositionLocked(ord, price, qty, commission)
}

// checkFundsLocked enforces the two hard constraints: cash can never
// go negative, and selling more than is held needs AllowShort.
func (b *Broker) checkFundsLocked(ord *broker.Order, price, qty float64) (string, bool) {
	if ord.Side == broker.SideBuy {
		cost := price*qty + b.cfg.CommissionPerTrade
		if cost > b.cash {
			return fmt.Sprintf("insufficient cash: need %.2f, have %.2f", cost, b.cash), false
		}
		return "", true
	}

	held := 0.0
	if pos, ok := b.positions[ord.Symbol]; ok {
		held = pos.Quantity
	}
	if held < qty && !b.cfg.AllowShort {
		return fmt.Sprintf("insufficient position: selling %v, holding %v", qty, held), false
	}
	return "", true
}

// applyToPositionLocked folds a fill into the symbol's position.
// Same-direction fills average the entry; opposing fills realize P&L
// and append to the trade ledger, flipping through zero if oversized.
func (b *Broker) applyToPositionLocked(ord *broker.Order, price, qty, commission float64) {
	signed := qty
	if ord.Side == broker.SideSell {
		signed = -qty
	}

	pos, ok := b.positions[ord.Symbol]
	if !ok {
		b.positions[ord.Symbol] = &broker.Position{
			Symbol:        ord.Symbol,
			Quantity:      signed,
			AvgEntryPrice: price,
			OpenedAt:      b.now,
			StopLoss:      ord.StopLoss,
			TakeProfit:    ord.TakeProfit,
		}
		return
	}

	if pos.Quantity*signed > 0 {
		total := pos.Quantity + signed
		pos.AvgEntryPrice = (pos.AvgEntryPrice*math.Abs(pos.Quantity) + price*qty) / math.Abs(total)
		pos.Quantity = total
		if ord.StopLoss != nil {
			pos.StopLoss = ord.StopLoss
		}
		if ord.TakeProfit != nil {
			pos.TakeProfit = ord.TakeProfit
		}
		return
	}

	dir := 1.0
	if pos.Quantity < 0 {
		dir = -1
	}
	closed := math.Min(qty, math.Abs(pos.Quantity))
	b.recordTradeLocked(pos, price, closed*dir, commission, "signal")

	leftover := qty - math.Abs(pos.Quantity)
	if leftover > 0 {
		pos.Quantity = -dir * leftover
		pos.AvgEntryPrice = price
		pos.OpenedAt = b.now
		pos.StopLoss = ord.StopLoss
		pos.TakeProfit = ord.TakeProfit
		return
	}

	pos.Quantity += signed
	if pos.Quantity == 0 {
		delete(b.positions, ord.Symbol)
	}
}

// recordTradeLocked realizes P&L for a closed quantity. quantity is
// signed like the position it came from.
func (b *Broker) recordTradeLocked(pos *broker.Position, exitPrice, quantity, commission float64, reason string) {
	pl := (exitPrice - pos.AvgEntryPrice) * quantity
	b.realized += pl
	b.trades = append(b.trades, broker.Trade{
		Symbol:     pos.Symbol,
		Quantity:   quantity,
		EntryPrice: pos.AvgEntryPrice,
		ExitPrice:  exitPrice,
		EntryTime:  pos.OpenedAt,
		ExitTime:   b.now,
		RealizedPL: pl,
		Commission: commission,
		Reason:     reason,
	})
}

// checkPositionExitsLocked evaluates attached stop-loss and
// take-profit levels against the bar. The stop is checked first; when
// a bar spans both levels the pessimistic outcome wins.
func (b *Broker) checkPositionExitsLocked(symbol string, bar market.Bar) {
	pos, ok := b.positions[symbol]
	if !ok {
		return
	}

	long := pos.Quantity > 0
	slip := func(p float64) float64 { return p * b.cfg.SlippageBPS / 10000 }

	if long {
		if pos.StopLoss != nil && bar.Low <= *pos.StopLoss {
			b.closePositionLocked(pos, *pos.StopLoss-slip(*pos.StopLoss), bar, "stop_loss")
			return
		}
		if pos.TakeProfit != nil && bar.High >= *pos.TakeProfit {
			b.closePositionLocked(pos, *pos.TakeProfit, bar, "take_profit")
		}
		return
	}

	if pos.StopLoss != nil && bar.High >= *pos.StopLoss {
		b.closePositionLocked(pos, *pos.StopLoss+slip(*pos.StopLoss), bar, "stop_loss")
		return
	}
	if pos.TakeProfit != nil && bar.Low <= *pos.TakeProfit {
		b.closePositionLocked(pos, *pos.TakeProfit, bar, "take_profit")
	}
}

// closePositionLocked liquidates a whole position at the given price.
func (b *Broker) closePositionLocked(pos *broker.Position, price float64, bar market.Bar, reason string) {
	qty := math.Abs(pos.Quantity)
	commission := b.cfg.CommissionPerTrade

	if pos.Quantity > 0 {
		b.cash += price*qty - commission
	} else {
		b.cash -= price*qty + commission
	}

	b.recordTradeLocked(pos, price, pos.Quantity, commission, reason)
	b.log.Debug("position exit",
		"symbol", pos.Symbol, "reason", reason, "price", price, "quantity", pos.Quantity, "time", bar.Time)
	delete(b.positions, pos.Symbol)
}
