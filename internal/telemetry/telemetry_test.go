package telemetry

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerConsoleAndFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "app.log")

	closer, err := InitLogger(true, logFile, &console)
	require.NoError(t, err)

	slog.Debug("controller command", "op", "insert")
	require.NoError(t, closer.Close())

	assert.Contains(t, console.String(), `"op":"insert"`)
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "controller command"))
}

func TestInitLoggerLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var console bytes.Buffer
	_, err := InitLogger(false, "", &console)
	require.NoError(t, err)

	slog.Debug("hidden")
	slog.Info("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestInitLoggerBadFile(t *testing.T) {
	_, err := InitLogger(false, filepath.Join(t.TempDir(), "missing", "dir", "app.log"), nil)
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.ObserveCommand("insert", nil, time.Millisecond)
	m.ObserveCommand("insert", errors.New("boom"), time.Millisecond)
	m.ObserveCommand("delete", errors.New("boom"), time.Millisecond)
	m.IncNotifications()
	m.SetRecords(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("insert", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("delete", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Records))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommand("load", nil, 0)
		m.IncNotifications()
		m.SetRecords(1)
	})
}
