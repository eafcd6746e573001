// Package cfg provides configuration management for the backtest engine.
// It supports loading configuration from both YAML files and environment
// variables, with environment variables taking precedence over YAML
// settings.
//
// The package handles validation of all configuration parameters and
// provides sensible defaults for optional settings.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"replaybt/internal/common"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings contains all configuration parameters for a backtest run.
type Settings struct {
	// Data and output locations
	DataPath    string // Directory containing per-symbol OHLCV CSV files
	OutputPath  string // Directory reports are written to
	StoragePath string // Directory the bbolt run archive lives in

	// Universe and sizing
	Symbols               []string // Symbols to backtest (single-asset: first element)
	InitialEquity         float64  // Starting portfolio equity in USD
	DefaultSizeUSD        float64  // Default notional size per position
	MaxPositionsPerSymbol int      // Max concurrent positions per symbol leg
	MaxOpenPositions      int      // Book-wide notional exposure cap in USD, summed across all legs (multi-asset)
	SameDirectionOnly     bool     // Disallow simultaneous long+short positions per symbol

	// Execution model
	TakerFeeRate float64 // Fee rate applied to market/stop fills
	MakerFeeRate float64 // Fee rate applied to resting limit fills
	SlippageBps  float64 // Slippage applied to market fills, in basis points

	// Position sizing strategy
	SizerType    string  // "fixed", "equity_pct", or "risk_pct"
	SizerRiskPct float64 // Risk fraction of equity per trade, for risk-based sizers

	// Risk guard (deterministic, bar-count-bounded circuit breaker)
	MaxDrawdownPct   float64 // Suspend entries once drawdown from peak equity exceeds this
	MaxWindowLossPct float64 // Suspend entries once loss within the current window exceeds this
	BarsPerWindow    int     // Number of bars per risk-guard loss-tracking window

	// System
	MetricsPort    int     // Prometheus metrics port; validated, but nothing in this module listens on it
	LogLevel       string  // zerolog level: debug, info, warn, error
	AsyncRatePerSec float64 // Bars/sec pacing for RunAsync (0 disables pacing)

	SymbolConfigs map[string]SymbolConfig // Per-symbol configuration overrides
}

// SymbolConfig contains per-symbol configuration overrides, applied on top
// of the global Settings when a multi-asset run adds that symbol's leg.
type SymbolConfig struct {
	DefaultSizeUSD        float64 `yaml:"defaultSizeUSD"`
	MaxPositionsPerSymbol int     `yaml:"maxPositionsPerSymbol"`
	SameDirectionOnly     bool    `yaml:"sameDirectionOnly"`
}

// ConfigFile represents the structure of the YAML configuration file.
type ConfigFile struct {
	Data struct {
		DataPath    string `yaml:"dataPath"`
		OutputPath  string `yaml:"outputPath"`
		StoragePath string `yaml:"storagePath"`
	} `yaml:"data"`

	Trading struct {
		Symbols               []string `yaml:"symbols"`
		InitialEquity         float64  `yaml:"initialEquity"`
		DefaultSizeUSD        float64  `yaml:"defaultSizeUSD"`
		MaxPositionsPerSymbol int      `yaml:"maxPositionsPerSymbol"`
		MaxOpenPositions      int      `yaml:"maxOpenPositions"`
		SameDirectionOnly     bool     `yaml:"sameDirectionOnly"`
	} `yaml:"trading"`

	SymbolConfig map[string]SymbolConfig `yaml:"symbolConfig"`

	Execution struct {
		TakerFeeRate float64 `yaml:"takerFeeRate"`
		MakerFeeRate float64 `yaml:"makerFeeRate"`
		SlippageBps  float64 `yaml:"slippageBps"`
	} `yaml:"execution"`

	Sizing struct {
		SizerType    string  `yaml:"sizerType"`
		SizerRiskPct float64 `yaml:"sizerRiskPct"`
	} `yaml:"sizing"`

	RiskGuard struct {
		MaxDrawdownPct   float64 `yaml:"maxDrawdownPct"`
		MaxWindowLossPct float64 `yaml:"maxWindowLossPct"`
		BarsPerWindow    int     `yaml:"barsPerWindow"`
	} `yaml:"riskGuard"`

	System struct {
		MetricsPort     int     `yaml:"metricsPort"`
		LogLevel        string  `yaml:"logLevel"`
		AsyncRatePerSec float64 `yaml:"asyncRatePerSec"`
	} `yaml:"system"`
}

// Load reads configuration from the file named by the CONFIG_FILE
// environment variable if set, otherwise assembles Settings entirely from
// environment variables and defaults.
func Load() (Settings, error) {
	_ = godotenv.Load()

	if path := os.Getenv(common.EnvConfigFile); path != "" {
		return loadFromYAML(path)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("cfg: read %s: %w", path, err)
	}

	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Settings{}, fmt.Errorf("cfg: parse %s: %w", path, err)
	}

	settings := Settings{
		DataPath:              getStringOrDefault(getEnvOrDefault(common.EnvDataPath, file.Data.DataPath), common.DefaultDataPath),
		OutputPath:            getStringOrDefault(getEnvOrDefault(common.EnvOutputPath, file.Data.OutputPath), common.DefaultOutputPath),
		StoragePath:           getStringOrDefault(getEnvOrDefault(common.EnvStoragePath, file.Data.StoragePath), common.DefaultStoragePath),
		Symbols:               getSymbolsFromEnvOrConfig(file.Trading.Symbols),
		InitialEquity:         getFloatFromEnvOrConfigWithDefault(common.EnvInitialEquity, file.Trading.InitialEquity, common.DefaultInitialEquity),
		DefaultSizeUSD:        getFloatFromEnvOrConfigWithDefault(common.EnvDefaultSizeUSD, file.Trading.DefaultSizeUSD, common.DefaultSizeUSD),
		MaxPositionsPerSymbol: getIntFromEnvOrConfig(common.EnvMaxPositions, file.Trading.MaxPositionsPerSymbol, common.DefaultMaxPositions),
		MaxOpenPositions:      getIntFromEnvOrConfig(common.EnvMaxOpenPositions, file.Trading.MaxOpenPositions, common.DefaultMaxOpenPositions),
		SameDirectionOnly:     getBoolFromEnvOrConfig(common.EnvSameDirectionOnly, file.Trading.SameDirectionOnly, common.DefaultSameDirectionOnly),
		SymbolConfigs:         file.SymbolConfig,
		TakerFeeRate:          getFloatFromEnvOrConfigWithDefault(common.EnvTakerFeeRate, file.Execution.TakerFeeRate, common.DefaultTakerFeeRate),
		MakerFeeRate:          getFloatFromEnvOrConfigWithDefault(common.EnvMakerFeeRate, file.Execution.MakerFeeRate, common.DefaultMakerFeeRate),
		SlippageBps:           getFloatFromEnvOrConfigWithDefault(common.EnvSlippageBps, file.Execution.SlippageBps, common.DefaultSlippageBps),
		SizerType:             getStringOrDefault(getEnvOrDefault(common.EnvSizerType, file.Sizing.SizerType), common.DefaultSizerType),
		SizerRiskPct:          getFloatFromEnvOrConfigWithDefault(common.EnvSizerRiskPct, file.Sizing.SizerRiskPct, common.DefaultSizerRiskPct),
		MaxDrawdownPct:        getFloatFromEnvOrConfigWithDefault(common.EnvMaxDrawdownPct, file.RiskGuard.MaxDrawdownPct, common.DefaultMaxDrawdownPct),
		MaxWindowLossPct:      getFloatFromEnvOrConfigWithDefault(common.EnvMaxWindowLossPct, file.RiskGuard.MaxWindowLossPct, common.DefaultMaxWindowLossPct),
		BarsPerWindow:         getIntFromEnvOrConfig(common.EnvBarsPerWindow, file.RiskGuard.BarsPerWindow, common.DefaultBarsPerWindow),
		MetricsPort:           getIntFromEnvOrConfig(common.EnvMetricsPort, file.System.MetricsPort, common.DefaultMetricsPort),
		LogLevel:              getStringOrDefault(getEnvOrDefault(common.EnvLogLevel, file.System.LogLevel), common.DefaultLogLevel),
		AsyncRatePerSec:       getFloatFromEnvOrConfigWithDefault(common.EnvAsyncRatePerSec, file.System.AsyncRatePerSec, common.DefaultAsyncRatePerSec),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath:              getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		OutputPath:            getEnvOrDefault(common.EnvOutputPath, common.DefaultOutputPath),
		StoragePath:           getEnvOrDefault(common.EnvStoragePath, common.DefaultStoragePath),
		Symbols:               splitOrDefault(os.Getenv(common.EnvSymbols), nil),
		InitialEquity:         getFloatOrDefault(common.EnvInitialEquity, common.DefaultInitialEquity),
		DefaultSizeUSD:        getFloatOrDefault(common.EnvDefaultSizeUSD, common.DefaultSizeUSD),
		MaxPositionsPerSymbol: getIntOrDefault(common.EnvMaxPositions, common.DefaultMaxPositions),
		MaxOpenPositions:      getIntOrDefault(common.EnvMaxOpenPositions, common.DefaultMaxOpenPositions),
		SameDirectionOnly:     getBoolOrDefault(common.EnvSameDirectionOnly, common.DefaultSameDirectionOnly),
		SymbolConfigs:         map[string]SymbolConfig{},
		TakerFeeRate:          getFloatOrDefault(common.EnvTakerFeeRate, common.DefaultTakerFeeRate),
		MakerFeeRate:          getFloatOrDefault(common.EnvMakerFeeRate, common.DefaultMakerFeeRate),
		SlippageBps:           getFloatOrDefault(common.EnvSlippageBps, common.DefaultSlippageBps),
		SizerType:             getEnvOrDefault(common.EnvSizerType, common.DefaultSizerType),
		SizerRiskPct:          getFloatOrDefault(common.EnvSizerRiskPct, common.DefaultSizerRiskPct),
		MaxDrawdownPct:        getFloatOrDefault(common.EnvMaxDrawdownPct, common.DefaultMaxDrawdownPct),
		MaxWindowLossPct:      getFloatOrDefault(common.EnvMaxWindowLossPct, common.DefaultMaxWindowLossPct),
		BarsPerWindow:         getIntOrDefault(common.EnvBarsPerWindow, common.DefaultBarsPerWindow),
		MetricsPort:           getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		LogLevel:              getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		AsyncRatePerSec:       getFloatOrDefault(common.EnvAsyncRatePerSec, common.DefaultAsyncRatePerSec),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// GetSymbolConfig returns the per-symbol override for symbol, or the global
// values when symbol has none. In an override, a non-positive DefaultSizeUSD
// or MaxPositionsPerSymbol falls back to the global value; SameDirectionOnly
// is taken from the override as is.
func (s Settings) GetSymbolConfig(symbol string) SymbolConfig {
	sc, ok := s.SymbolConfigs[symbol]
	if !ok {
		return SymbolConfig{
			DefaultSizeUSD:        s.DefaultSizeUSD,
			MaxPositionsPerSymbol: s.MaxPositionsPerSymbol,
			SameDirectionOnly:     s.SameDirectionOnly,
		}
	}
	if sc.DefaultSizeUSD <= 0 {
		sc.DefaultSizeUSD = s.DefaultSizeUSD
	}
	if sc.MaxPositionsPerSymbol <= 0 {
		sc.MaxPositionsPerSymbol = s.MaxPositionsPerSymbol
	}
	return sc
}

func getEnvRequired(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("cfg: required environment variable %s is not set", key)
	}
	return v, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getStringOrDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func getIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getBoolOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitOrDefault(v string, fallback []string) []string {
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getSymbolsFromEnvOrConfig(configValue []string) []string {
	if v := os.Getenv(common.EnvSymbols); v != "" {
		return splitOrDefault(v, configValue)
	}
	return configValue
}

func getIntFromEnvOrConfig(key string, configValue, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if configValue != 0 {
		return configValue
	}
	return fallback
}

func getBoolFromEnvOrConfig(key string, configValue, _ bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return configValue
}

func getFloatFromEnvOrConfigWithDefault(key string, configValue, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if configValue != 0 {
		return configValue
	}
	return fallback
}

func validateSettings(s *Settings) error {
	if err := validateDataSettings(s); err != nil {
		return err
	}
	if err := validateTradingParameters(s); err != nil {
		return err
	}
	if err := validateExecutionSettings(s); err != nil {
		return err
	}
	if err := validateSizingParameters(s); err != nil {
		return err
	}
	if err := validateRiskGuardSettings(s); err != nil {
		return err
	}
	if err := validateSymbolConfigs(s); err != nil {
		return err
	}
	if err := validateSystemParameters(s); err != nil {
		return err
	}
	return nil
}

// validateDataSettings validates data/output path configuration.
func validateDataSettings(s *Settings) error {
	if s.DataPath == "" {
		return fmt.Errorf(common.ErrMsgDataPathRequired)
	}
	return nil
}

// validateTradingParameters validates core trading parameters.
func validateTradingParameters(s *Settings) error {
	if len(s.Symbols) == 0 {
		return fmt.Errorf(common.ErrMsgSymbolRequired)
	}
	if s.InitialEquity <= 0 {
		return fmt.Errorf("initialEquity must be positive")
	}
	if s.DefaultSizeUSD <= 0 || s.DefaultSizeUSD > common.MaxSizeUSDLimit {
		return fmt.Errorf("defaultSizeUSD must be between 0 and %g", common.MaxSizeUSDLimit)
	}
	if s.MaxPositionsPerSymbol < 1 {
		return fmt.Errorf("maxPositionsPerSymbol must be at least 1")
	}
	if s.MaxOpenPositions <= 0 || float64(s.MaxOpenPositions) < s.DefaultSizeUSD {
		return fmt.Errorf("maxOpenPositions must be at least defaultSizeUSD")
	}
	return nil
}

// validateExecutionSettings validates fee and slippage parameters.
func validateExecutionSettings(s *Settings) error {
	if s.TakerFeeRate < 0 || s.TakerFeeRate > common.MaxFeeRate {
		return fmt.Errorf("takerFeeRate must be between 0 and %g", common.MaxFeeRate)
	}
	if s.MakerFeeRate < 0 || s.MakerFeeRate > common.MaxFeeRate {
		return fmt.Errorf("makerFeeRate must be between 0 and %g", common.MaxFeeRate)
	}
	if s.SlippageBps < 0 || s.SlippageBps > common.MaxSlippageBps {
		return fmt.Errorf("slippageBps must be between 0 and %g", common.MaxSlippageBps)
	}
	return nil
}

// validateSizingParameters validates position-sizing configuration.
func validateSizingParameters(s *Settings) error {
	switch s.SizerType {
	case "fixed", "equity_pct", "risk_pct":
	default:
		return fmt.Errorf(common.ErrMsgInvalidSizerType)
	}
	if s.SizerRiskPct <= 0 || s.SizerRiskPct > common.MaxSizerRiskPct {
		return fmt.Errorf("sizerRiskPct must be between 0 and %g", common.MaxSizerRiskPct)
	}
	return nil
}

// validateRiskGuardSettings validates the deterministic circuit-breaker
// configuration.
func validateRiskGuardSettings(s *Settings) error {
	if s.MaxDrawdownPct < 0 || s.MaxDrawdownPct > common.MaxDrawdownPctLimit {
		return fmt.Errorf("maxDrawdownPct must be between 0 and %g", common.MaxDrawdownPctLimit)
	}
	if s.MaxWindowLossPct < 0 || s.MaxWindowLossPct > common.MaxWindowLossPctLimit {
		return fmt.Errorf("maxWindowLossPct must be between 0 and %g", common.MaxWindowLossPctLimit)
	}
	if s.BarsPerWindow < common.MinBarsPerWindow || s.BarsPerWindow > common.MaxBarsPerWindow {
		return fmt.Errorf("barsPerWindow must be between %d and %d", common.MinBarsPerWindow, common.MaxBarsPerWindow)
	}
	return nil
}

// validateSymbolConfigs validates per-symbol configuration overrides.
func validateSymbolConfigs(s *Settings) error {
	for symbol, sc := range s.SymbolConfigs {
		if sc.DefaultSizeUSD < 0 || sc.DefaultSizeUSD > common.MaxSizeUSDLimit {
			return fmt.Errorf("symbol %s: defaultSizeUSD must be between 0 and %g", symbol, common.MaxSizeUSDLimit)
		}
		if sc.MaxPositionsPerSymbol < 0 {
			return fmt.Errorf("symbol %s: maxPositionsPerSymbol must not be negative", symbol)
		}
	}
	return nil
}

// validateSystemParameters validates system-level parameters.
func validateSystemParameters(s *Settings) error {
	if s.MetricsPort < common.MinMetricsPort || s.MetricsPort > common.MaxMetricsPort {
		return fmt.Errorf("metricsPort must be between %d and %d", common.MinMetricsPort, common.MaxMetricsPort)
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf(common.ErrMsgInvalidLogLevel)
	}
	if s.AsyncRatePerSec < 0 {
		return fmt.Errorf("asyncRatePerSec must not be negative")
	}
	return nil
}
