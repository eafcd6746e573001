package common

// Environment variable keys
const (
	EnvConfigFile        = "CONFIG_FILE"
	EnvSymbols           = "SYMBOLS"
	EnvDataPath          = "DATA_PATH"
	EnvOutputPath        = "OUTPUT_PATH"
	EnvStoragePath       = "STORAGE_PATH"
	EnvInitialEquity     = "INITIAL_EQUITY"
	EnvDefaultSizeUSD    = "DEFAULT_SIZE_USD"
	EnvMaxPositions      = "MAX_POSITIONS"
	EnvMaxOpenPositions  = "MAX_OPEN_POSITIONS"
	EnvSameDirectionOnly = "SAME_DIRECTION_ONLY"
	EnvTakerFeeRate      = "TAKER_FEE_RATE"
	EnvMakerFeeRate      = "MAKER_FEE_RATE"
	EnvSlippageBps       = "SLIPPAGE_BPS"
	EnvSizerType         = "SIZER_TYPE"
	EnvSizerRiskPct      = "SIZER_RISK_PCT"
	EnvMaxDrawdownPct    = "MAX_DRAWDOWN_PCT"
	EnvMaxWindowLossPct  = "MAX_WINDOW_LOSS_PCT"
	EnvBarsPerWindow     = "BARS_PER_WINDOW"
	EnvMetricsPort       = "METRICS_PORT"
	EnvLogLevel          = "LOG_LEVEL"
	EnvAsyncRatePerSec   = "ASYNC_RATE_PER_SEC"
)

// Configuration defaults
const (
	DefaultDataPath          = "data"
	DefaultOutputPath        = "reports"
	DefaultStoragePath       = "var"
	DefaultInitialEquity     = 10000.0
	DefaultSizeUSD           = 1000.0
	DefaultMaxPositions      = 1
	DefaultMaxOpenPositions  = 5000
	DefaultSameDirectionOnly = false
	DefaultTakerFeeRate      = 0.0006
	DefaultMakerFeeRate      = 0.0002
	DefaultSlippageBps       = 2.0
	DefaultSizerType         = "fixed"
	DefaultSizerRiskPct      = 0.01
	DefaultMaxDrawdownPct    = 0.25
	DefaultMaxWindowLossPct  = 0.1
	DefaultBarsPerWindow     = 96
	DefaultMetricsPort       = 9090
	DefaultLogLevel          = "info"
	DefaultAsyncRatePerSec   = 0.0
)

// Common error messages
const (
	ErrMsgSymbolRequired    = "at least one symbol is required"
	ErrMsgDataPathRequired  = "dataPath is required"
	ErrMsgInvalidSizerType  = "sizerType must be one of: fixed, equity_pct, risk_pct"
	ErrMsgInvalidLogLevel   = "logLevel must be one of: debug, info, warn, error"
)

// Validation constants
const (
	MaxSizeUSDLimit       = 1_000_000.0
	MaxFeeRate            = 0.05
	MaxSlippageBps        = 1000.0
	MaxSizerRiskPct       = 1.0
	MaxDrawdownPctLimit   = 1.0
	MaxWindowLossPctLimit = 1.0
	MinMetricsPort        = 1024
	MaxMetricsPort        = 65535
	MinBarsPerWindow      = 1
	MaxBarsPerWindow      = 1_000_000
)
