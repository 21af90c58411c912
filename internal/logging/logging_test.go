package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "debug", want: zap.DebugLevel},
		{in: "info", want: zap.InfoLevel},
		{in: "", want: zap.InfoLevel},
		{in: "warn", want: zap.WarnLevel},
		{in: "error", want: zap.ErrorLevel},
		{in: "loud", want: zap.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	for _, format := range []Format{JSON, Console} {
		t.Run(string(format), func(t *testing.T) {
			logger, err := New("warn", format)
			require.NoError(t, err)
			defer logger.Sync()

			assert.False(t, logger.Core().Enabled(zap.InfoLevel))
			assert.True(t, logger.Core().Enabled(zap.WarnLevel))
		})
	}

	t.Run("invalid level", func(t *testing.T) {
		_, err := New("loud", JSON)
		assert.Error(t, err)
	})
}
