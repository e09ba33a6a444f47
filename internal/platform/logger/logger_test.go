package logger_test

import (
	"testing"

	"github.com/srgjo27/puja_booking/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := logger.New("warn", "json")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	_, err = logger.New("debug", "console")
	assert.NoError(t, err)

	_, err = logger.New("loud", "json")
	assert.Error(t, err)
}
