package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// validSettings builds a Settings that passes validateSettings, for tests
// to mutate one field at a time.
func validSettings() *Settings {
	return &Settings{
		DataPath:              "data",
		OutputPath:            "reports",
		StoragePath:           "var",
		Symbols:               []string{"BTCUSDT", "ETHUSDT"},
		InitialEquity:         10000,
		DefaultSizeUSD:        1000,
		MaxPositionsPerSymbol: 1,
		MaxOpenPositions:      5000,
		TakerFeeRate:          0.0006,
		MakerFeeRate:          0.0002,
		SlippageBps:           2,
		SizerType:             "fixed",
		SizerRiskPct:          0.01,
		MaxDrawdownPct:        0.25,
		MaxWindowLossPct:      0.1,
		BarsPerWindow:         96,
		MetricsPort:           9090,
		LogLevel:              "info",
		SymbolConfigs:         map[string]SymbolConfig{},
	}
}

func TestValidateSettingsAcceptsValidConfig(t *testing.T) {
	assert.NoError(t, validateSettings(validSettings()))
}

func TestValidateSettingsRejectsMissingDataPath(t *testing.T) {
	s := validSettings()
	s.DataPath = ""
	assert.Error(t, validateSettings(s))
}

func TestValidateSettingsRejectsEmptySymbols(t *testing.T) {
	s := validSettings()
	s.Symbols = nil
	assert.Error(t, validateSettings(s))
}

func TestValidateSettingsRejectsNonPositiveInitialEquity(t *testing.T) {
	s := validSettings()
	s.InitialEquity = 0
	assert.Error(t, validateSettings(s))
}

func TestValidateSettingsRejectsOpenPositionsCapBelowDefaultSizeUSD(t *testing.T) {
	s := validSettings()
	s.DefaultSizeUSD = 1000
	s.MaxOpenPositions = 500
	assert.Error(t, validateSettings(s))
}

func TestValidateSettingsDefaultSizeUSDRange(t *testing.T) {
	cases := []struct {
		name    string
		size    float64
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -1, true},
		{"normal", 1000, false},
		{"at limit", 1_000_000, false},
		{"over limit", 1_000_001, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			s.DefaultSizeUSD = tc.size
			s.MaxOpenPositions = 2_000_000 // clear of any DefaultSizeUSD under test
			err := validateSettings(s)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSettingsFeeRateRange(t *testing.T) {
	cases := []struct {
		name    string
		rate    float64
		wantErr bool
	}{
		{"negative", -0.001, true},
		{"zero", 0, false},
		{"normal", 0.001, false},
		{"at limit", 0.05, false},
		{"over limit", 0.051, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			s.TakerFeeRate = tc.rate
			err := validateSettings(s)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSettingsRejectsUnknownSizerType(t *testing.T) {
	s := validSettings()
	s.SizerType = "martingale"
	assert.Error(t, validateSettings(s))
}

func TestValidateSettingsAcceptsKnownSizerTypes(t *testing.T) {
	for _, st := range []string{"fixed", "equity_pct", "risk_pct"} {
		s := validSettings()
		s.SizerType = st
		assert.NoError(t, validateSettings(s))
	}
}

func TestValidateSettingsSizerRiskPctRange(t *testing.T) {
	cases := []struct {
		name    string
		pct     float64
		wantErr bool
	}{
		{"zero", 0, true},
		{"negative", -0.1, true},
		{"normal", 0.02, false},
		{"at limit", 1.0, false},
		{"over limit", 1.01, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			s.SizerRiskPct = tc.pct
			err := validateSettings(s)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSettingsRiskGuardRanges(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr bool
	}{
		{"drawdown too high", func(s *Settings) { s.MaxDrawdownPct = 1.1 }, true},
		{"drawdown negative", func(s *Settings) { s.MaxDrawdownPct = -0.1 }, true},
		{"window loss too high", func(s *Settings) { s.MaxWindowLossPct = 1.1 }, true},
		{"bars per window zero", func(s *Settings) { s.BarsPerWindow = 0 }, true},
		{"bars per window huge", func(s *Settings) { s.BarsPerWindow = 2_000_000 }, true},
		{"all defaults", func(s *Settings) {}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			tc.mutate(s)
			err := validateSettings(s)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSettingsMetricsPortRange(t *testing.T) {
	cases := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{"too low", 1023, true},
		{"minimum valid", 1024, false},
		{"normal", 9090, false},
		{"maximum valid", 65535, false},
		{"too high", 65536, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			s.MetricsPort = tc.port
			err := validateSettings(s)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSettingsRejectsUnknownLogLevel(t *testing.T) {
	s := validSettings()
	s.LogLevel = "verbose"
	assert.Error(t, validateSettings(s))
}

func TestValidateSettingsSymbolConfigs(t *testing.T) {
	s := validSettings()
	s.SymbolConfigs = map[string]SymbolConfig{
		"BTCUSDT": {DefaultSizeUSD: -1},
	}
	assert.Error(t, validateSettings(s))

	s2 := validSettings()
	s2.SymbolConfigs = map[string]SymbolConfig{
		"BTCUSDT": {DefaultSizeUSD: 2000, MaxPositionsPerSymbol: 2},
		"ETHUSDT": {DefaultSizeUSD: 500, MaxPositionsPerSymbol: 1},
	}
	assert.NoError(t, validateSettings(s2))
}
