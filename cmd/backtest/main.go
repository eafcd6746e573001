// Command backtest runs the deterministic bar-based backtesting engine
// from the command line: a single-symbol run, a multi-asset run sharing
// one book-wide exposure cap, or a step-mode demo driving the engine one
// bar at a time the way a reinforcement-learning agent would.
//
// Grounded in
// _examples/Inkedup1114-bitunixbot/cmd/backtest/main.go's flag-parse,
// load-config, load-data, run-engine, generate-report shape, rebuilt
// around cobra subcommands (per other_examples/manifests' cobra-based
// CLIs) instead of the teacher's flat stdlib flag.FlagSet, since this
// module's three run modes (single, multi, step) are naturally separate
// subcommands rather than one flag-driven branch.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"replaybt/internal/cfg"
	"replaybt/internal/databar"
	"replaybt/internal/execution"
	"replaybt/internal/indicators"
	"replaybt/internal/metrics"
	"replaybt/internal/multiasset"
	"replaybt/internal/portfolio"
	"replaybt/internal/processor"
	"replaybt/internal/reporter"
	"replaybt/internal/results"
	"replaybt/internal/riskguard"
	"replaybt/internal/runner"
	"replaybt/internal/sizing"
	"replaybt/internal/steprunner"
	"replaybt/internal/storage"
	"replaybt/internal/strategy"
	"replaybt/internal/strategy/breakout"
	"replaybt/internal/strategy/meanreversion"
	"replaybt/internal/types"
)

// strategyFlag is a pflag.Value that only accepts a registered strategy
// name, so an unknown --strategy fails at flag-parse time with a clear
// message instead of surfacing later as an "unknown strategy" RunE error.
type strategyFlag string

func (s *strategyFlag) String() string { return string(*s) }
func (s *strategyFlag) Type() string   { return "strategy" }
func (s *strategyFlag) Set(v string) error {
	switch v {
	case "meanreversion", "breakout":
		*s = strategyFlag(v)
		return nil
	default:
		return fmt.Errorf("must be one of: meanreversion, breakout")
	}
}

var _ pflag.Value = (*strategyFlag)(nil)

// cliFlags holds the flag values shared across subcommands. Cobra binds
// these once on the root command's PersistentFlags, the way the teacher's
// flag.String vars are declared once at the top of main.
var cliFlags struct {
	dataPath     string
	outputPath   string
	logLevel     string
	strategyName strategyFlag
	baselineEMA  int
	deviationPct float64
	channelBars  int
	takeProfit   float64
	stopLoss     float64
	trailingStop float64
	persistRun   bool
}

func main() {
	root := &cobra.Command{
		Use:   "backtest",
		Short: "Deterministic bar-based backtest engine",
	}

	root.PersistentFlags().StringVar(&cliFlags.dataPath, "data", "", "Path to OHLCV CSV data (overrides config)")
	root.PersistentFlags().StringVar(&cliFlags.outputPath, "output", "", "Output directory for reports (overrides config)")
	root.PersistentFlags().StringVar(&cliFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	cliFlags.strategyName = "meanreversion"
	root.PersistentFlags().Var(&cliFlags.strategyName, "strategy", "Strategy to run: meanreversion, breakout")
	root.PersistentFlags().IntVar(&cliFlags.baselineEMA, "baseline-period", 20, "meanreversion: baseline EMA period")
	root.PersistentFlags().Float64Var(&cliFlags.deviationPct, "deviation-pct", 0.02, "meanreversion: entry deviation from baseline")
	root.PersistentFlags().IntVar(&cliFlags.channelBars, "channel-bars", 20, "breakout: rolling high/low channel period")
	root.PersistentFlags().Float64Var(&cliFlags.takeProfit, "take-profit-pct", 0.03, "take-profit percentage")
	root.PersistentFlags().Float64Var(&cliFlags.stopLoss, "stop-loss-pct", 0.015, "stop-loss percentage")
	root.PersistentFlags().Float64Var(&cliFlags.trailingStop, "trailing-stop-pct", 0.01, "breakout: trailing-stop percentage")
	root.PersistentFlags().BoolVar(&cliFlags.persistRun, "persist", false, "archive fills/trades/equity to the BoltDB run store")

	root.AddCommand(newRunCmd())
	root.AddCommand(newMultiCmd())
	root.AddCommand(newStepDemoCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings loads cfg.Settings and applies any CLI overrides, then wires
// up a zerolog console logger at the resolved level.
func loadSettings() (cfg.Settings, zerolog.Logger, error) {
	settings, err := cfg.Load()
	if err != nil {
		return cfg.Settings{}, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}

	if cliFlags.dataPath != "" {
		settings.DataPath = cliFlags.dataPath
	}
	if cliFlags.outputPath != "" {
		settings.OutputPath = cliFlags.outputPath
	}
	if cliFlags.logLevel != "" {
		settings.LogLevel = cliFlags.logLevel
	}

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	log.Logger = logger

	return settings, logger, nil
}

// buildSizer dispatches on settings.SizerType to the matching sizing.Sizer
// constructor.
func buildSizer(settings cfg.Settings) (sizing.Sizer, error) {
	switch settings.SizerType {
	case "fixed":
		return sizing.NewFixed(settings.DefaultSizeUSD), nil
	case "equity_pct":
		return sizing.NewEquityPct(settings.SizerRiskPct, 0, settings.DefaultSizeUSD*10), nil
	case "risk_pct":
		return sizing.NewRiskPct(settings.SizerRiskPct, 0, settings.DefaultSizeUSD*10, cliFlags.stopLoss), nil
	default:
		return nil, fmt.Errorf("unknown sizer type %q", settings.SizerType)
	}
}

// buildStrategy constructs the selected strategy and its indicator
// configuration.
func buildStrategy(name strategyFlag) (strategy.Strategy, map[string]indicators.Config, error) {
	switch string(name) {
	case "meanreversion":
		ind := map[string]indicators.Config{
			"baseline": {Type: "ema", Timeframe: "1m", Period: cliFlags.baselineEMA, Source: "close"},
		}
		strat := meanreversion.New(meanreversion.Config{
			BaselineIndicator: "baseline",
			EntryDeviationPct: cliFlags.deviationPct,
			TakeProfitPct:     cliFlags.takeProfit,
			StopLossPct:       cliFlags.stopLoss,
			WarmupBars:        cliFlags.baselineEMA,
		})
		return strat, ind, nil
	case "breakout":
		ind := map[string]indicators.Config{
			"high_channel": {Type: "sma", Timeframe: "1m", Period: cliFlags.channelBars, Source: "high"},
			"low_channel":  {Type: "sma", Timeframe: "1m", Period: cliFlags.channelBars, Source: "low"},
		}
		strat := breakout.New(breakout.Config{
			HighIndicator:             "high_channel",
			LowIndicator:              "low_channel",
			StopLossPct:               cliFlags.stopLoss,
			TrailingStopPct:           cliFlags.trailingStop,
			TrailingStopActivationPct: cliFlags.takeProfit,
			WarmupBars:                cliFlags.channelBars,
		})
		return strat, ind, nil
	default:
		return nil, nil, fmt.Errorf("unknown strategy %q", string(name))
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a single-symbol backtest",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := loadSettings()
			if err != nil {
				return err
			}
			if len(settings.Symbols) == 0 {
				return fmt.Errorf("no symbols configured")
			}
			symbol := settings.Symbols[0]

			m := metrics.New()
			recorder := metrics.NewRecorder(m)
			recorder.RecordRunStart()

			strat, indCfg, err := buildStrategy(cliFlags.strategyName)
			if err != nil {
				return err
			}
			strat.Configure(strategy.Config{
				InitialEquity:     settings.InitialEquity,
				DefaultSizeUSD:    settings.DefaultSizeUSD,
				MaxPositions:      settings.MaxPositionsPerSymbol,
				SameDirectionOnly: settings.SameDirectionOnly,
			})

			ind, err := indicators.NewManager(indCfg, indicators.NewRegistry())
			if err != nil {
				return fmt.Errorf("build indicators: %w", err)
			}

			symCfg := settings.GetSymbolConfig(symbol)
			exec := execution.New(settings.SlippageBps/10000, settings.TakerFeeRate, settings.MakerFeeRate)
			sizer, err := buildSizer(settings)
			if err != nil {
				return err
			}
			pf := portfolio.New(symbol, settings.InitialEquity, symCfg.DefaultSizeUSD, symCfg.MaxPositionsPerSymbol, exec, sizer, symCfg.SameDirectionOnly)
			proc := processor.NewDefault(pf, ind, exec, strat)

			src, err := databar.LoadCSV(settings.DataPath, symbol)
			if err != nil {
				return fmt.Errorf("load data: %w", err)
			}

			guard := riskguard.New(riskguard.Config{
				MaxDrawdownPct:   settings.MaxDrawdownPct,
				MaxWindowLossPct: settings.MaxWindowLossPct,
				BarsPerWindow:    settings.BarsPerWindow,
			}, settings.InitialEquity, logger)

			r := runner.New(proc, logger)
			r.OnProgress = func(n int) {
				guard.OnBar(pf.Equity)
				m.Equity.Set(pf.Equity)
				m.OpenPositions.Set(float64(pf.PositionCount()))
				if guard.Tripped() {
					logger.Warn().Int("bars", n).Str("reason", guard.TrippedReason()).Msg("riskguard tripped")
				} else {
					logger.Info().Int("bars", n).Msg("progress")
				}
			}

			var res results.BacktestResults
			if settings.AsyncRatePerSec > 0 {
				asyncSrc := databar.NewPacedAsyncSource(symbol, src.Bars(), settings.AsyncRatePerSec)
				res, err = r.RunAsync(cmd.Context(), asyncSrc)
			} else {
				res, err = r.Run(src)
			}
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			recorder.RecordRunComplete()

			if cliFlags.persistRun {
				if err := persistRun(settings, symbol, pf); err != nil {
					logger.Warn().Err(err).Msg("failed to persist run")
				}
			}

			rep := reporter.New(res, settings.OutputPath, logger)
			if err := rep.GenerateReport(); err != nil {
				return fmt.Errorf("generate report: %w", err)
			}
			rep.PrintSummary()
			return nil
		},
	}
}

func newMultiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "multi",
		Short: "Run a multi-asset backtest sharing one book-wide exposure cap",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := loadSettings()
			if err != nil {
				return err
			}
			if len(settings.Symbols) == 0 {
				return fmt.Errorf("no symbols configured")
			}

			mr := &multiasset.Runner{MaxOpenPositions: settings.MaxOpenPositions}

			for _, symbol := range settings.Symbols {
				strat, indCfg, err := buildStrategy(cliFlags.strategyName)
				if err != nil {
					return err
				}
				strat.Configure(strategy.Config{
					InitialEquity:     settings.InitialEquity,
					DefaultSizeUSD:    settings.DefaultSizeUSD,
					MaxPositions:      settings.MaxPositionsPerSymbol,
					SameDirectionOnly: settings.SameDirectionOnly,
				})

				ind, err := indicators.NewManager(indCfg, indicators.NewRegistry())
				if err != nil {
					return fmt.Errorf("build indicators for %s: %w", symbol, err)
				}

				symCfg := settings.GetSymbolConfig(symbol)
				exec := execution.New(settings.SlippageBps/10000, settings.TakerFeeRate, settings.MakerFeeRate)
				sizer, err := buildSizer(settings)
				if err != nil {
					return err
				}

				src, err := databar.LoadCSV(settings.DataPath, symbol)
				if err != nil {
					return fmt.Errorf("load data for %s: %w", symbol, err)
				}

				mr.AddSymbol(symbol, src, settings.InitialEquity, symCfg.DefaultSizeUSD, symCfg.MaxPositionsPerSymbol, symCfg.SameDirectionOnly, exec, sizer, ind, strat)
			}

			res, err := mr.Run()
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			for _, symbol := range mr.Symbols() {
				rep := reporter.New(res.PerSymbol[symbol], settings.OutputPath+"/"+symbol, logger)
				if err := rep.GenerateReport(); err != nil {
					logger.Error().Err(err).Str("symbol", symbol).Msg("failed to generate report")
					continue
				}
			}
			logger.Info().
				Float64("combined_net_pnl_usd", res.CombinedNetPnL).
				Float64("initial_equity", res.InitialEquity).
				Float64("combined_max_drawdown_pct", res.CombinedMaxDrawdownPct).
				Msg("multi-asset backtest complete")
			return nil
		},
	}
}

func newStepDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step-demo",
		Short: "Drive the engine one bar at a time, demonstrating the Step Runner's RL-agent interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := loadSettings()
			if err != nil {
				return err
			}
			if len(settings.Symbols) == 0 {
				return fmt.Errorf("no symbols configured")
			}
			symbol := settings.Symbols[0]

			src, err := databar.LoadCSV(settings.DataPath, symbol)
			if err != nil {
				return fmt.Errorf("load data: %w", err)
			}

			ind, err := indicators.NewManager(nil, indicators.NewRegistry())
			if err != nil {
				return fmt.Errorf("build indicators: %w", err)
			}

			exec := execution.New(settings.SlippageBps/10000, settings.TakerFeeRate, settings.MakerFeeRate)
			sizer, err := buildSizer(settings)
			if err != nil {
				return err
			}
			pf := portfolio.New(symbol, settings.InitialEquity, settings.DefaultSizeUSD, settings.MaxPositionsPerSymbol, exec, sizer, settings.SameDirectionOnly)

			sr := steprunner.New(src, ind, pf, nil)
			obs := sr.Reset()

			steps := 0
			for !obs.Done {
				var action types.Order
				if steps == 0 && !pf.HasPosition() {
					action = &types.MarketOrder{OrderBase: types.OrderBase{
						Side: types.Long, Symbol: symbol,
						TakeProfitPct: cliFlags.takeProfit, StopLossPct: cliFlags.stopLoss,
					}}
				}
				result := sr.Step(action)
				obs = result.Observation
				steps++
			}

			logger.Info().
				Int("steps", steps).
				Float64("final_equity", obs.Equity).
				Msg("step-demo complete")
			return nil
		},
	}
}

// persistRun archives one run's fills, trades and equity curve under a
// fresh run ID.
func persistRun(settings cfg.Settings, symbol string, pf *portfolio.Portfolio) error {
	store, err := storage.New(settings.StoragePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	runID := uuid.NewString()
	for _, fill := range pf.Fills {
		if err := store.StoreFill(runID, fill); err != nil {
			return err
		}
	}
	for _, trade := range pf.Trades {
		if err := store.StoreTrade(runID, trade); err != nil {
			return err
		}
	}
	for _, pt := range pf.EquityCurve {
		if err := store.StoreEquityPoint(runID, symbol, pt); err != nil {
			return err
		}
	}
	return nil
}
