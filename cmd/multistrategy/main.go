// Command multistrategy runs two independent tick-driven strategies
// side by side via strategy.Multi, each with its own ledger, against a
// single filtered replay. Grounded on
// original_source/md-bus/engine/examples/multi_strategy.cpp.
package main

import (
	"flag"
	"fmt"
	"time"

	"mdbus/internal/accounting"
	"mdbus/internal/bus"
	"mdbus/internal/replay"
	"mdbus/internal/strategy"
)

// thresholdStrategy enters long once price crosses threshold, exits on a
// stop-loss/take-profit band or a fallback-below-threshold reversal.
type thresholdStrategy struct {
	strategy.BaseStrategy
	acct      *accounting.Account
	threshold float64
	qty       int
	slOffset  float64
	tpOffset  float64

	slLevel float64
	tpLevel float64
	lastPq  float64
	lastTs  uint64
}

func (s *thresholdStrategy) OnTick(t bus.Tick, e bus.Event) {
	pq := t.Pq
	s.lastPq = pq
	s.lastTs = e.Header.TsNs
	s.acct.UpdateEquity(pq)

	if !s.acct.HasOpenPosition() {
		if pq > s.threshold {
			s.acct.OpenLong(t.Symbol, s.qty, pq, e.Header.TsNs)
			s.slLevel = pq + s.slOffset
			s.tpLevel = pq + s.tpOffset
			fmt.Printf("[STRAT] ENTER LONG seq=%d sym=%s pq=%v thr=%v SL=%v TP=%v\n",
				e.Header.Seq, t.Symbol, pq, s.threshold, s.slLevel, s.tpLevel)
		}
		return
	}

	switch {
	case pq <= s.slLevel:
		fmt.Printf("[STRAT] STOP LOSS EXIT seq=%d pq=%v SL=%v\n", e.Header.Seq, pq, s.slLevel)
		s.acct.ClosePosition(pq, e.Header.TsNs, accounting.ExitStopLoss)
	case pq >= s.tpLevel:
		fmt.Printf("[STRAT] TAKE PROFIT EXIT seq=%d pq=%v TP=%v\n", e.Header.Seq, pq, s.tpLevel)
		s.acct.ClosePosition(pq, e.Header.TsNs, accounting.ExitTakeProfit)
	case pq < s.threshold:
		fmt.Printf("[STRAT] THRESHOLD EXIT seq=%d pq=%v thr=%v\n", e.Header.Seq, pq, s.threshold)
		s.acct.ClosePosition(pq, e.Header.TsNs, accounting.ExitThreshold)
	}
}

func (s *thresholdStrategy) finalize() {
	if s.acct.HasOpenPosition() && s.lastPq > 0 {
		fmt.Printf("[STRAT] CLOSE OUT at last price pq=%v\n", s.lastPq)
		s.acct.ClosePosition(s.lastPq, s.lastTs, accounting.ExitCloseOut)
	}
	if s.lastPq > 0 {
		s.acct.UpdateEquity(s.lastPq)
	}
}

// meanReversionStrategy enters long when price dips band below a rolling
// mean, exits once it recovers to or above the mean.
type meanReversionStrategy struct {
	strategy.BaseStrategy
	acct   *accounting.Account
	window int
	band   float64
	qty    int
	prices []float64

	lastPq float64
	lastTs uint64
}

func (s *meanReversionStrategy) OnTick(t bus.Tick, e bus.Event) {
	pq := t.Pq
	s.lastPq = pq
	s.lastTs = e.Header.TsNs
	s.acct.UpdateEquity(pq)

	s.prices = append(s.prices, pq)
	if len(s.prices) > s.window {
		s.prices = s.prices[1:]
	}
	if len(s.prices) < s.window {
		return
	}

	var sum float64
	for _, p := range s.prices {
		sum += p
	}
	avg := sum / float64(len(s.prices))
	diff := pq - avg

	if !s.acct.HasOpenPosition() {
		if diff < -s.band {
			s.acct.OpenLong(t.Symbol, s.qty, pq, e.Header.TsNs)
			fmt.Printf("[STRAT2] ENTER LONG (MR) sym=%s pq=%v avg=%.2f diff=%.2f\n", t.Symbol, pq, avg, diff)
		}
		return
	}
	if diff >= 0 {
		fmt.Printf("[STRAT2] EXIT LONG (MR) pq=%v avg=%.2f diff=%.2f\n", pq, avg, diff)
		s.acct.ClosePosition(pq, e.Header.TsNs, accounting.ExitThreshold)
	}
}

func (s *meanReversionStrategy) finalize() {
	if s.acct.HasOpenPosition() && s.lastPq > 0 {
		fmt.Printf("[STRAT2] CLOSE OUT at last price pq=%v\n", s.lastPq)
		s.acct.ClosePosition(s.lastPq, s.lastTs, accounting.ExitCloseOut)
	}
	if s.lastPq > 0 {
		s.acct.UpdateEquity(s.lastPq)
	}
}

func main() {
	path := flag.String("file", "md_events.log", "event log to replay")
	symbol := flag.String("symbol", "NIFTY", "symbol to filter ticks by")
	flag.Parse()

	b := bus.New(bus.WithIngressCapacity(1024), bus.WithPerSubCapacity(1024))

	acct1 := accounting.New(0.0, nil)
	strat1 := &thresholdStrategy{acct: acct1, threshold: 22502.0, qty: 1, slOffset: -20.0, tpOffset: 40.0}

	acct2 := accounting.New(0.0, nil)
	strat2 := &meanReversionStrategy{acct: acct2, window: 5, band: 2.0, qty: 1}

	multi := strategy.NewMulti()
	multi.Add(strat1, strategy.TickOnly)
	multi.Add(strat2, strategy.TickOnly)

	runner := strategy.New(b, multi, strategy.RunnerTickOnly, nil)

	eng := replay.New(*path)
	eng.SetFilter(replay.Filter{TopicSet: true, Topic: bus.TopicMDTick, SymbolSet: true, Symbol: *symbol})
	eng.ReplayRealtime(b)

	time.Sleep(200 * time.Millisecond)
	runner.Close()

	strat1.finalize()
	strat2.finalize()

	fmt.Println("\n=== Strategy 1 (Threshold) ===")
	acct1.PrintSummary()
	acct1.DumpTradesCSV("trades_strat1.csv")

	fmt.Println("\n=== Strategy 2 (Mean Reversion) ===")
	acct2.PrintSummary()
	acct2.DumpTradesCSV("trades_strat2.csv")

	b.Stop()
	fmt.Printf("stats: %+v\n", b.Stats())
}
