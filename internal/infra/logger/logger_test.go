package logger

import (
	"os"
	"path/filepath"
	"testing"

	"sacco_backoffice/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesJSONToLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "sacco.log")
	Init(&config.AppConfig{
		LogLevel:      "debug",
		Environment:   "production",
		LogFile:       logFile,
		LogMaxSizeMB:  1,
		LogMaxBackups: 1,
		LogMaxAgeDays: 1,
	})
	t.Cleanup(func() { Log.SetOutput(os.Stdout) })

	Component("status_engine").WithField("member_id", "MEM-0001").Info("Member status updated")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"component":"status_engine"`)
	assert.Contains(t, out, `"member_id":"MEM-0001"`)
	assert.Contains(t, out, `"msg":"Member status updated"`)
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
}

func TestInit_InvalidLevelFallsBackToInfo(t *testing.T) {
	Init(&config.AppConfig{LogLevel: "loud", Environment: "development"})
	assert.Equal(t, logrus.InfoLevel, Log.GetLevel())
	_, isText := Log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}
