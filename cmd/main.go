package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mdbus/internal/accounting"
	"mdbus/internal/bar"
	"mdbus/internal/bus"
	"mdbus/internal/config"
	"mdbus/internal/indicators"
	"mdbus/internal/livefeed"
	"mdbus/internal/logging"
	"mdbus/internal/recorder"
	"mdbus/internal/replay"
	"mdbus/internal/strategy"
	"mdbus/internal/strategy/adaptive"
)

func main() {
	base, err := logging.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer base.Sync()
	log := logging.Component(base, "main")

	configPath := "config"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Warnw("no config/ directory found, using defaults", "path", configPath)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Warnw("falling back to default configuration", "error", err)
		cfg = config.Default()
	}

	b := bus.New(
		bus.WithIngressCapacity(cfg.Bus.IngressCapacity),
		bus.WithPerSubCapacity(cfg.Bus.PerSubCapacity),
		bus.WithLogger(logging.Component(base, "bus")),
	)
	defer b.Stop()

	barBuilder := bar.New(b, cfg.Bar.BucketNs, logging.Component(base, "bar"))
	defer barBuilder.Close()

	calc := indicators.New(b, logging.Component(base, "indicators"))
	defer calc.Close()

	acct := accounting.New(cfg.Strategy.StartingCash, logging.Component(base, "accounting"))
	strat := adaptive.New(calc, acct, cfg.Strategy.PositionQty, logging.Component(base, "strategy"))
	runner := strategy.New(b, strat, strategy.RunnerMixed, logging.Component(base, "runner"))
	defer runner.Close()

	var rec *recorder.Recorder
	if cfg.Recorder.Path != "" {
		rec = recorder.New(b, cfg.Recorder.Path, logging.Component(base, "recorder"))
		defer rec.Close()
	}

	switch {
	case cfg.Replay.Path != "":
		runReplay(b, cfg, log)
	case cfg.Livefeed.WSURL != "":
		runLivefeed(b, cfg, base, log)
	default:
		log.Warnw("no Replay.Path or Livefeed.WSURL configured, nothing to do")
	}

	barBuilder.FlushAll()
	acct.PrintSummary()
	if cfg.Recorder.Path != "" {
		acct.DumpTradesCSV(cfg.Recorder.Path + ".trades.csv")
	}
}

func runReplay(b *bus.EventBus, cfg config.Config, log *zap.SugaredLogger) {
	log.Infow("starting replay", "path", cfg.Replay.Path, "speed", cfg.Replay.Speed, "step_mode", cfg.Replay.StepMode)

	eng := replay.New(cfg.Replay.Path, replay.WithLogger(log))
	if cfg.Replay.LimitEvents {
		eng.SetMaxEvents(cfg.Replay.MaxEvents)
	}
	eng.EnableStepMode(cfg.Replay.StepMode)

	switch {
	case cfg.Replay.Speed <= 0:
		eng.ReplayFast(b)
	case cfg.Replay.Speed == 1.0:
		eng.ReplayRealtime(b)
	default:
		eng.ReplaySpeed(b, cfg.Replay.Speed)
	}
}

func runLivefeed(b *bus.EventBus, cfg config.Config, base *zap.Logger, log *zap.SugaredLogger) {
	log.Infow("starting live feed", "url", cfg.Livefeed.WSURL, "symbols", cfg.Livefeed.Symbols)

	conn := livefeed.New(b, cfg.Livefeed.WSURL, cfg.Livefeed.Symbols, logging.Component(base, "livefeed"))

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		conn.Run(stop)
		close(done)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	close(stop)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warnw("live feed did not shut down within timeout")
	}
}
