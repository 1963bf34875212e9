package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerFor(t *testing.T) {
	tests := []struct {
		env         string
		infoEnabled bool
	}{
		{"production", false},
		{"development", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			logger, err := NewLoggerFor(tt.env)
			if err != nil {
				t.Fatalf("NewLoggerFor() error = %v", err)
			}

			if got := logger.Core().Enabled(zap.InfoLevel); got != tt.infoEnabled {
				t.Errorf("Info enabled = %v, want %v", got, tt.infoEnabled)
			}
			if !logger.Core().Enabled(zap.WarnLevel) {
				t.Error("Warnings must always be enabled")
			}
		})
	}
}
