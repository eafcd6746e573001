// Package reporter renders a results.BacktestResults into the report
// formats a backtest run leaves on disk: a human-readable summary, a
// trade-by-trade CSV log, a full JSON dump, and a monthly metrics CSV.
//
// Grounded in _examples/Inkedup1114-bitunixbot/internal/backtest/reporter.go's
// Reporter/GenerateReport/generateSummary/generateTradeLog/
// generateJSONReport/generateMetricsReport/PrintSummary shape, re-keyed on
// results.BacktestResults and results.MonthStats instead of the teacher's
// tick-level Results/Trade/DailyMetrics.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"replaybt/internal/results"
)

// Reporter generates backtest reports from a results.BacktestResults.
type Reporter struct {
	results    results.BacktestResults
	outputPath string
	logger     zerolog.Logger
}

// New builds a Reporter that writes report files under outputPath.
func New(r results.BacktestResults, outputPath string, logger zerolog.Logger) *Reporter {
	return &Reporter{results: r, outputPath: outputPath, logger: logger}
}

// GenerateReport writes every report format to outputPath.
func (rp *Reporter) GenerateReport() error {
	if err := os.MkdirAll(rp.outputPath, 0o755); err != nil {
		return fmt.Errorf("reporter: create output directory: %w", err)
	}

	if err := rp.generateSummary(); err != nil {
		return err
	}
	if err := rp.generateTradeLog(); err != nil {
		return err
	}
	if err := rp.generateJSONReport(); err != nil {
		return err
	}
	if err := rp.generateMetricsReport(); err != nil {
		return err
	}
	return nil
}

func (rp *Reporter) generateSummary() error {
	path := filepath.Join(rp.outputPath, "summary.txt")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reporter: create summary file: %w", err)
	}
	defer file.Close()

	r := rp.results
	fmt.Fprintf(file, "BACKTEST RESULTS SUMMARY\n")
	fmt.Fprintf(file, "========================\n\n")
	fmt.Fprintf(file, "Symbol: %s\n", r.Symbol)
	fmt.Fprintf(file, "Period: %s to %s\n", r.StartTime.Format("2006-01-02 15:04:05"), r.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(file, "Duration: %s\n\n", r.EndTime.Sub(r.StartTime))

	fmt.Fprintf(file, "PERFORMANCE METRICS\n")
	fmt.Fprintf(file, "-------------------\n")
	fmt.Fprintf(file, "Initial Equity: $%.2f\n", r.InitialEquity)
	fmt.Fprintf(file, "Final Equity: $%.2f\n", r.FinalEquity)
	fmt.Fprintf(file, "Net PnL: $%.2f (%.2f%%)\n", r.NetPnLUSD, r.NetPnLPct)
	fmt.Fprintf(file, "Total Fees: $%.2f\n\n", r.TotalFees)

	fmt.Fprintf(file, "TRADING STATISTICS\n")
	fmt.Fprintf(file, "-------------------\n")
	fmt.Fprintf(file, "Total Trades: %d\n", r.TotalTrades)
	fmt.Fprintf(file, "Winning Trades: %d\n", r.WinningTrades)
	fmt.Fprintf(file, "Losing Trades: %d\n", r.LosingTrades)
	fmt.Fprintf(file, "Win Rate: %.2f%%\n", r.WinRate*100)
	fmt.Fprintf(file, "Profit Factor: %.2f\n", r.ProfitFactor)
	fmt.Fprintf(file, "Avg Win: $%.2f (%.2f%%)\n", r.AvgWinUSD, r.AvgWinPct)
	fmt.Fprintf(file, "Avg Loss: $%.2f (%.2f%%)\n\n", r.AvgLossUSD, r.AvgLossPct)

	fmt.Fprintf(file, "RISK METRICS\n")
	fmt.Fprintf(file, "-------------------\n")
	fmt.Fprintf(file, "Max Drawdown: %.2f%%\n\n", r.MaxDrawdownPct)

	if len(r.ExitReasonCounts) > 0 {
		fmt.Fprintf(file, "EXITS BY REASON\n")
		fmt.Fprintf(file, "-------------------\n")
		for reason, count := range r.ExitReasonCounts {
			fmt.Fprintf(file, "%s: %d\n", reason, count)
		}
	}

	rp.logger.Info().Str("file", path).Msg("summary report generated")
	return nil
}

func (rp *Reporter) generateTradeLog() error {
	path := filepath.Join(rp.outputPath, "trade_log.csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reporter: create trade log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Symbol", "Side", "Entry Time", "Exit Time", "Entry Price",
		"Exit Price", "Size USD", "PnL USD", "PnL %", "Fees", "Exit Reason", "Partial",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, trade := range rp.results.Trades {
		record := []string{
			trade.Symbol,
			trade.Side.String(),
			trade.EntryTime.Format("2006-01-02 15:04:05"),
			trade.ExitTime.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.8f", trade.EntryPrice),
			fmt.Sprintf("%.8f", trade.ExitPrice),
			fmt.Sprintf("%.2f", trade.SizeUSD),
			fmt.Sprintf("%.2f", trade.PnLUSD),
			fmt.Sprintf("%.2f", trade.PnLPct*100),
			fmt.Sprintf("%.2f", trade.Fees),
			string(trade.Reason),
			fmt.Sprintf("%t", trade.IsPartial),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	rp.logger.Info().Str("file", path).Msg("trade log generated")
	return nil
}

func (rp *Reporter) generateJSONReport() error {
	path := filepath.Join(rp.outputPath, "backtest_results.json")

	report := map[string]any{
		"summary":      rp.results,
		"monthly":      rp.results.MonthlyBreakdown(),
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("reporter: marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("reporter: write json report: %w", err)
	}

	rp.logger.Info().Str("file", path).Msg("json report generated")
	return nil
}

func (rp *Reporter) generateMetricsReport() error {
	path := filepath.Join(rp.outputPath, "metrics_report.csv")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("reporter: create metrics report: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Month", "Trades", "Net PnL USD", "Fees USD", "Win Rate", "Max Win USD", "Max Loss USD"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, m := range rp.results.MonthlyBreakdown() {
		record := []string{
			m.Month,
			fmt.Sprintf("%d", m.Trades),
			fmt.Sprintf("%.2f", m.NetPnLUSD),
			fmt.Sprintf("%.2f", m.TotalFeesUSD),
			fmt.Sprintf("%.2f", m.WinRate*100),
			fmt.Sprintf("%.2f", m.MaxWinUSD),
			fmt.Sprintf("%.2f", m.MaxLossUSD),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	rp.logger.Info().Str("file", path).Msg("metrics report generated")
	return nil
}

// PrintSummary prints a one-screen summary to stdout.
func (rp *Reporter) PrintSummary() {
	r := rp.results
	fmt.Println("\n=== BACKTEST RESULTS ===")
	fmt.Printf("Symbol: %s\n", r.Symbol)
	fmt.Printf("Period: %s to %s\n", r.StartTime.Format("2006-01-02"), r.EndTime.Format("2006-01-02"))
	fmt.Printf("Initial Equity: $%.2f\n", r.InitialEquity)
	fmt.Printf("Final Equity: $%.2f\n", r.FinalEquity)
	fmt.Printf("Net PnL: $%.2f (%.2f%%)\n", r.NetPnLUSD, r.NetPnLPct)
	fmt.Printf("Total Trades: %d\n", r.TotalTrades)
	fmt.Printf("Win Rate: %.2f%%\n", r.WinRate*100)
	fmt.Printf("Profit Factor: %.2f\n", r.ProfitFactor)
	fmt.Printf("Max Drawdown: %.2f%%\n", r.MaxDrawdownPct)
	fmt.Println("========================")
}
