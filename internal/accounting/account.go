// Package accounting is the ledger collaborator spec.md §6 names at its
// interface: positions, a trade ledger, realized/unrealized PnL,
// drawdown, and a CSV dump. Grounded on
// original_source/md-bus/engine/strategy/accounting.hpp.
package accounting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Side is the direction of a position.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "SHORT"
	}
	return "LONG"
}

// ExitReason classifies why a position was closed.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitThreshold
	ExitStopLoss
	ExitTakeProfit
	ExitCloseOut
)

func (r ExitReason) String() string {
	switch r {
	case ExitThreshold:
		return "THRESHOLD"
	case ExitStopLoss:
		return "STOPLOSS"
	case ExitTakeProfit:
		return "TAKEPROFIT"
	case ExitCloseOut:
		return "CLOSEOUT"
	default:
		return "NONE"
	}
}

// Position is the account's current open exposure, if any.
type Position struct {
	Symbol    string
	Open      bool
	Side      Side
	Qty       int
	EntryPq   float64
	EntryTsNs uint64
}

// Trade records one completed open+close round trip.
type Trade struct {
	Symbol     string
	Side       Side
	Qty        int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	EntryTsNs  uint64
	ExitTsNs   uint64
	ExitReason ExitReason
}

// Account tracks a single open position, realized PnL, equity, and
// max drawdown, and accumulates closed trades.
type Account struct {
	startingCash float64
	realizedPnL  float64
	equity       float64
	peakEquity   float64
	maxDrawdown  float64

	pos    Position
	trades []Trade

	logger *zap.SugaredLogger
}

// New constructs an Account with the given starting cash.
func New(startingCash float64, logger *zap.SugaredLogger) *Account {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Account{
		startingCash: startingCash,
		equity:       startingCash,
		peakEquity:   startingCash,
		logger:       logger,
	}
}

// HasOpenPosition reports whether a position is currently open.
func (a *Account) HasOpenPosition() bool { return a.pos.Open }

// PositionState returns a copy of the current position.
func (a *Account) PositionState() Position { return a.pos }

// OpenLong opens a long position in symbol. A no-op (logged) if a
// position is already open.
func (a *Account) OpenLong(symbol string, qty int, pq float64, tsNs uint64) {
	if a.pos.Open {
		a.logger.Warnw("Account: position already open, ignoring open_long")
		return
	}
	a.pos = Position{
		Symbol:    symbol,
		Open:      true,
		Side:      Long,
		Qty:       qty,
		EntryPq:   pq,
		EntryTsNs: tsNs,
	}
	a.logger.Infow("Account: open LONG", "symbol", symbol, "qty", qty, "pq", pq)
}

// ClosePosition closes the open position at pq, recording a Trade and
// updating realized PnL. A no-op (logged) if no position is open.
func (a *Account) ClosePosition(pq float64, tsNs uint64, reason ExitReason) {
	if !a.pos.Open {
		a.logger.Warnw("Account: no open position, ignoring close_position")
		return
	}

	signedQty := float64(a.pos.Qty)
	if a.pos.Side == Short {
		signedQty = -signedQty
	}
	pnl := signedQty * (pq - a.pos.EntryPq)

	tr := Trade{
		Symbol:     a.pos.Symbol,
		Side:       a.pos.Side,
		Qty:        a.pos.Qty,
		EntryPrice: a.pos.EntryPq,
		ExitPrice:  pq,
		PnL:        pnl,
		EntryTsNs:  a.pos.EntryTsNs,
		ExitTsNs:   tsNs,
		ExitReason: reason,
	}
	a.realizedPnL += pnl
	a.trades = append(a.trades, tr)

	a.logger.Infow("Account: close position",
		"symbol", tr.Symbol, "side", tr.Side, "qty", tr.Qty,
		"entry_px", tr.EntryPrice, "exit_px", tr.ExitPrice, "pnl", tr.PnL, "reason", tr.ExitReason)

	a.pos = Position{}
}

// RealizedPnL returns cumulative realized profit/loss.
func (a *Account) RealizedPnL() float64 { return a.realizedPnL }

// UnrealizedPnL returns the open position's unrealized PnL at lastPq, or
// 0 if flat.
func (a *Account) UnrealizedPnL(lastPq float64) float64 {
	if !a.pos.Open {
		return 0
	}
	signedQty := float64(a.pos.Qty)
	if a.pos.Side == Short {
		signedQty = -signedQty
	}
	return (lastPq - a.pos.EntryPq) * signedQty
}

// UpdateEquity recomputes equity and max drawdown from lastPq. As recorded
// in DESIGN.md (resolving spec.md §9's Open Question): drawdown
// bookkeeping is updated only here, so a closed position at a new
// unrealized extremum leaves max drawdown stale until the next
// UpdateEquity call — callers that need fresh drawdown after closing a
// position must call UpdateEquity explicitly.
func (a *Account) UpdateEquity(lastPq float64) {
	u := a.UnrealizedPnL(lastPq)
	a.equity = a.startingCash + a.realizedPnL + u
	if a.equity > a.peakEquity {
		a.peakEquity = a.equity
		return
	}
	if dd := a.peakEquity - a.equity; dd > a.maxDrawdown {
		a.maxDrawdown = dd
	}
}

// Equity returns the last value computed by UpdateEquity.
func (a *Account) Equity() float64 { return a.equity }

// MaxDrawdown returns the largest peak-to-trough equity decline observed
// across all UpdateEquity calls so far.
func (a *Account) MaxDrawdown() float64 { return a.maxDrawdown }

// Trades returns the accumulated closed-trade ledger.
func (a *Account) Trades() []Trade {
	out := make([]Trade, len(a.trades))
	copy(out, a.trades)
	return out
}

// PrintSummary writes a human-readable account summary to stdout.
func (a *Account) PrintSummary() {
	fmt.Println()
	fmt.Println("==== Account Summary ====")
	fmt.Printf("  starting_cash    = %v\n", a.startingCash)
	fmt.Printf("  realized_pnl     = %v\n", a.realizedPnL)
	fmt.Printf("  equity           = %v\n", a.equity)
	fmt.Printf("  max_drawdown     = %v\n", a.maxDrawdown)
	fmt.Printf("  trades           = %d\n", len(a.trades))

	if len(a.trades) > 0 {
		var wins, losses int
		var sumWin, sumLoss float64
		best := a.trades[0].PnL
		worst := a.trades[0].PnL
		for _, tr := range a.trades {
			switch {
			case tr.PnL > 0:
				wins++
				sumWin += tr.PnL
			case tr.PnL < 0:
				losses++
				sumLoss += tr.PnL
			}
			if tr.PnL > best {
				best = tr.PnL
			}
			if tr.PnL < worst {
				worst = tr.PnL
			}
		}
		n := len(a.trades)
		winRate := float64(wins) / float64(n) * 100.0
		var avgWin, avgLoss float64
		if wins > 0 {
			avgWin = sumWin / float64(wins)
		}
		if losses > 0 {
			avgLoss = sumLoss / float64(losses)
		}
		fmt.Printf("  wins             = %d (%.2f%%)\n", wins, winRate)
		fmt.Printf("  losses           = %d\n", losses)
		fmt.Printf("  avg_win          = %v\n", avgWin)
		fmt.Printf("  avg_loss         = %v\n", avgLoss)
		fmt.Printf("  best_trade       = %v\n", best)
		fmt.Printf("  worst_trade      = %v\n", worst)
	}
	fmt.Println("=========================")
}

// DumpTradesCSV writes the trade ledger to path as CSV. A failed open is
// logged; no partial file is left dangling.
func (a *Account) DumpTradesCSV(path string) {
	f, err := os.Create(path)
	if err != nil {
		a.logger.Errorw("Account: failed to open trades CSV", "path", path, "error", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"symbol", "side", "qty", "entry_price", "exit_price", "entry_ts_ns", "exit_ts_ns", "pnl", "exit_reason"})
	for _, tr := range a.trades {
		w.Write([]string{
			tr.Symbol,
			tr.Side.String(),
			strconv.Itoa(tr.Qty),
			strconv.FormatFloat(tr.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(tr.ExitPrice, 'f', -1, 64),
			strconv.FormatUint(tr.EntryTsNs, 10),
			strconv.FormatUint(tr.ExitTsNs, 10),
			strconv.FormatFloat(tr.PnL, 'f', -1, 64),
			tr.ExitReason.String(),
		})
	}

	a.logger.Infow("Account: dumped trades", "count", len(a.trades), "path", path)
}
