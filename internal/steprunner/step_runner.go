// Package steprunner implements the Step Runner: a Gym-like step interface
// for reinforcement-learning agents. It wraps a processor.Processor with a
// proxy strategy whose OnBar always returns nil, so the agent controls
// entries exclusively through Step's action parameter while exit management
// (SL/TP/breakeven/trailing/partial-TP) still runs as normal.
//
// Grounded in
// _examples/original_source/src/replaybt/engine/step.py's StepEngine/
// _ProxyStrategy, re-expressed without Python's StopIteration-as-control-flow:
// Reset and Step both return an explicit done bool instead of panicking or
// raising once the underlying source is exhausted.
package steprunner

import (
	"replaybt/internal/databar"
	"replaybt/internal/portfolio"
	"replaybt/internal/processor"
	"replaybt/internal/strategy"
	"replaybt/internal/types"
)

// proxyStrategy always returns nil from OnBar; Step's action parameter is
// the only way an entry gets queued. OnFill/OnExit/CheckExits delegate to
// an optional inner strategy so exit management can still run while the
// agent controls entries.
type proxyStrategy struct {
	inner strategy.Strategy
}

func (p *proxyStrategy) Configure(cfg strategy.Config) {
	if p.inner != nil {
		p.inner.Configure(cfg)
	}
}

func (p *proxyStrategy) OnBar(types.Bar, map[string]float64, []types.Position) []types.Order {
	return nil
}

func (p *proxyStrategy) OnFill(fill types.Fill) types.Order {
	if p.inner != nil {
		return p.inner.OnFill(fill)
	}
	return nil
}

func (p *proxyStrategy) OnExit(fill types.Fill, trade types.Trade) types.Order {
	if p.inner != nil {
		return p.inner.OnExit(fill, trade)
	}
	return nil
}

func (p *proxyStrategy) CheckExits(bar types.Bar, positions []types.Position) []strategy.ExitInstruction {
	if p.inner != nil {
		return p.inner.CheckExits(bar, positions)
	}
	return nil
}

func (p *proxyStrategy) WarmupPeriods() map[string]int {
	if p.inner != nil {
		return p.inner.WarmupPeriods()
	}
	return nil
}

// Observation is what the agent sees after Reset or Step.
type Observation struct {
	Bar        types.Bar
	Indicators map[string]float64
	Positions  []types.Position
	Equity     float64
	StepCount  int
	Done       bool
}

// StepResult is returned from Step: the new observation plus a reward
// signal (equity delta since the previous step) and the fills/trades that
// happened on this bar.
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	NewFills    []types.Fill
	NewTrades   []types.Trade
}

// StepRunner drives a processor.Processor one bar at a time under agent
// control. Not safe for concurrent use; one episode runs on one goroutine.
type StepRunner struct {
	source     databar.Source
	indicators processor.IndicatorManager
	proc       *processor.Processor
	proxy      *proxyStrategy

	stepCount   int
	done        bool
	prevEquity  float64
	currentBar  types.Bar
}

// New builds a StepRunner around pf (already wired to an Execution Model
// and Sizer). innerStrategy may be nil; if non-nil its OnFill/OnExit/
// CheckExits still run each bar (e.g. engine-managed stops) while OnBar is
// always suppressed.
func New(source databar.Source, ind processor.IndicatorManager, pf *portfolio.Portfolio, innerStrategy strategy.Strategy) *StepRunner {
	proxy := &proxyStrategy{inner: innerStrategy}
	proc := processor.NewDefault(pf, ind, pf.Execution, proxy)
	return &StepRunner{source: source, indicators: ind, proc: proc, proxy: proxy}
}

// Reset restores the portfolio and indicators to their initial state and
// advances to the first bar. Done is true if the source is empty.
func (s *StepRunner) Reset() Observation {
	s.proc.Portfolio.Reset()
	s.indicators.Reset()
	s.proc.Reset()
	s.source.Reset()
	s.stepCount = 0
	s.done = false
	s.prevEquity = s.proc.Portfolio.InitialEquity

	if !s.source.HasNext() {
		s.done = true
		return Observation{Done: true, Equity: s.proc.Portfolio.Equity}
	}

	bar := s.source.Next()
	s.currentBar = bar
	s.indicators.Update(bar)

	return Observation{
		Bar:        bar,
		Indicators: s.indicators.Snapshot(),
		Positions:  clonePositions(s.proc.Portfolio.Positions),
		Equity:     s.proc.Portfolio.Equity,
		StepCount:  0,
		Done:       false,
	}
}

// Step applies action (queued the same way a Strategy's follow-up order
// would be: a MarketOrder overwrites the pending one, a LimitOrder/
// StopOrder appends, nil is a no-op) and advances one bar. Calling Step
// after Done is true is a no-op that returns a Done StepResult; callers
// must call Reset to start a new episode.
func (s *StepRunner) Step(action types.Order) StepResult {
	if s.done {
		return StepResult{Observation: Observation{Bar: s.currentBar, Done: true, Equity: s.proc.Portfolio.Equity}, Done: true}
	}

	s.proc.QueueOrder(action)

	fillsBefore := len(s.proc.Portfolio.Fills)
	tradesBefore := len(s.proc.Portfolio.Trades)

	if !s.source.HasNext() {
		s.done = true
		equity := s.proc.Portfolio.Equity
		reward := equity - s.prevEquity
		s.prevEquity = equity
		s.stepCount++
		return StepResult{
			Observation: Observation{
				Bar: s.currentBar, Indicators: s.indicators.Snapshot(),
				Positions: clonePositions(s.proc.Portfolio.Positions),
				Equity:    equity, StepCount: s.stepCount, Done: true,
			},
			Reward: reward,
			Done:   true,
		}
	}

	bar := s.source.Next()
	s.currentBar = bar
	s.proc.ProcessBar(bar)

	newFills := append([]types.Fill(nil), s.proc.Portfolio.Fills[fillsBefore:]...)
	newTrades := append([]types.Trade(nil), s.proc.Portfolio.Trades[tradesBefore:]...)

	equity := s.proc.Portfolio.Equity
	reward := equity - s.prevEquity
	s.prevEquity = equity
	s.stepCount++

	return StepResult{
		Observation: Observation{
			Bar: bar, Indicators: s.indicators.Snapshot(),
			Positions: clonePositions(s.proc.Portfolio.Positions),
			Equity:    equity, StepCount: s.stepCount, Done: false,
		},
		Reward:    reward,
		Done:      false,
		NewFills:  newFills,
		NewTrades: newTrades,
	}
}

func clonePositions(positions []*types.Position) []types.Position {
	out := make([]types.Position, len(positions))
	for i, p := range positions {
		out[i] = *p
	}
	return out
}
