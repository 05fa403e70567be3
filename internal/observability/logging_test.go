package observability

import (
	"testing"

	"github.com/helpline/support-desk/internal/config"
)

func TestNewLoggerFollowsConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LoggerConfig
		encoding string
		debug    bool
	}{
		{"production json", config.LoggerConfig{Level: "info", Format: config.LogFormatJSON}, config.LogFormatJSON, false},
		{"development console", config.LoggerConfig{Level: "debug", Format: config.LogFormatConsole, Development: true}, config.LogFormatConsole, true},
		{"unknown level falls back to info", config.LoggerConfig{Level: "chatty"}, config.LogFormatJSON, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := encoding(tc.cfg); got != tc.encoding {
				t.Fatalf("encoding = %q, want %q", got, tc.encoding)
			}
			logger, err := NewLogger(tc.cfg)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if enabled := logger.Core().Enabled(-1); enabled != tc.debug {
				t.Fatalf("debug enabled = %v, want %v", enabled, tc.debug)
			}
		})
	}
}
