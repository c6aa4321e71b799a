package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"deriv_bot/internal/modules/config"
	"deriv_bot/internal/modules/deriv_websocket"
	derivws "deriv_bot/internal/modules/deriv_websocket/service"
	health "deriv_bot/internal/modules/health/service"
	"deriv_bot/internal/strategy"
	"deriv_bot/pkg/logger"
)

// derivctl — ручная проверка площадки без хранилища и чата.
//
//	derivctl symbols
//	derivctl -strategy supply_demand -count 200 eval R_100
const usage = "usage: derivctl [flags] symbols | eval SYMBOL"

const connectWait = 30 * time.Second

type options struct {
	cmd      string
	symbol   string
	strategy string
	policy   string
	count    int
	tf       int64
}

func main() {
	var o options
	flag.StringVar(&o.strategy, "strategy", strategy.NameSupplyDemand, "supply_demand | donchian | alternating")
	flag.StringVar(&o.policy, "policy", "", "breakout | inverted")
	flag.IntVar(&o.count, "count", 100, "свечей для eval")
	flag.Int64Var(&o.tf, "tf", 0, "таймфрейм, секунды (0 — по символу)")
	flag.Parse()

	switch args := flag.Args(); {
	case len(args) == 1 && args[0] == "symbols":
		o.cmd = args[0]
	case len(args) == 2 && args[0] == "eval":
		o.cmd, o.symbol = args[0], args[1]
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var exit int
	app := fx.New(
		fx.NopLogger,
		config.Module(),
		fx.Provide(health.NewState),
		deriv_websocket.Module(),
		fx.Invoke(func(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, c *derivws.Client) error {
			if err := logger.Init(cfg.LogLevel); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := run(ctx, c, o, cfg); err != nil {
							fmt.Fprintln(os.Stderr, err)
							exit = 1
						}
						_ = sd.Shutdown()
					}()
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
			return nil
		}),
	)
	app.Run()
	os.Exit(exit)
}

func run(ctx context.Context, c *derivws.Client, o options, cfg *config.Config) error {
	if err := waitConnected(ctx, c); err != nil {
		return err
	}
	switch o.cmd {
	case "symbols":
		return printSymbols(ctx, c)
	default:
		return evaluate(ctx, c, o, cfg)
	}
}

func waitConnected(ctx context.Context, c *derivws.Client) error {
	ctx, cancel := context.WithTimeout(ctx, connectWait)
	defer cancel()

	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()
	for !c.Connected() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("not connected to venue: %w", ctx.Err())
		case <-t.C:
		}
	}
	return nil
}

func printSymbols(ctx context.Context, c *derivws.Client) error {
	all, err := c.ActiveSymbols(ctx)
	if err != nil {
		return err
	}
	for _, s := range all {
		state := "closed"
		if s.IsOpen {
			state = "open"
		}
		fmt.Printf("%-12s %-8s %-14s %s\n", s.Symbol, state, s.Market, s.DisplayName)
	}
	return nil
}

func evaluate(ctx context.Context, c *derivws.Client, o options, cfg *config.Config) error {
	policyName := o.policy
	if policyName == "" {
		policyName = cfg.Bot.ZonePolicy
	}
	policy, err := strategy.ParseZonePolicy(policyName)
	if err != nil {
		return err
	}

	tf := derivws.ResolveTimeframe(o.symbol, o.tf)
	candles, err := c.Candles(ctx, o.symbol, tf, o.count)
	if err != nil {
		return err
	}

	engine := strategy.New(o.strategy, strategy.Options{
		BaseAmount: decimal.NewFromFloat(cfg.Bot.AmountPerTrade),
		Policy:     policy,
	})
	sig := engine.Evaluate(candles, o.symbol, tf)

	fmt.Printf("%s tf=%ds candles=%d strategy=%s\n", o.symbol, tf, len(candles), engine.Name())
	for _, z := range engine.ActiveZones() {
		fmt.Printf("  zone %-6s %.5f..%.5f strength=%d\n", z.Type, z.Bottom, z.Top, z.Strength)
	}
	if sig.IsHold() {
		fmt.Println("signal: HOLD")
		return nil
	}
	fmt.Printf("signal: %s %s amount=%s duration=%d%s confidence=%.2f\n",
		sig.Action, sig.ContractType, sig.Amount.StringFixed(2), sig.Duration, sig.DurationUnit, sig.Confidence)
	return nil
}
