package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesRotatedJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swap.log")
	buffer := NewLogBuffer(10)

	log, err := New(Config{LogFile: path, MaxSize: 1, Buffer: buffer})
	require.NoError(t, err)

	log.Info("Swap confirmed", zap.String("signature", "abc"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Swap confirmed"`)
	assert.Contains(t, string(data), `"timestamp"`)

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, "abc", logs[0].Fields["signature"])
}

func TestDebugLevel(t *testing.T) {
	buffer := NewLogBuffer(10)
	log, err := New(Config{Buffer: buffer})
	require.NoError(t, err)
	log.Debug("hidden")
	assert.Empty(t, buffer.GetRecentLogs(0))

	log, err = New(Config{Buffer: buffer, Debug: true})
	require.NoError(t, err)
	log.Debug("shown")
	assert.Len(t, buffer.GetRecentLogs(0), 1)
}

func TestWithOperationAddsCorrelationID(t *testing.T) {
	buffer := NewLogBuffer(10)
	log, err := New(Config{Buffer: buffer, Debug: true})
	require.NoError(t, err)

	opLog, id := WithOperation(log, "swap")
	require.NotEmpty(t, id)
	opLog.Info("Phase changed")

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, id, logs[0].Fields["correlation_id"])
	assert.Equal(t, "swap", logs[0].Fields["operation"])

	_, other := WithOperation(log, "swap")
	assert.NotEqual(t, id, other)
}

func TestWithTransactionAndTrackPerformance(t *testing.T) {
	buffer := NewLogBuffer(10)
	log, err := New(Config{Buffer: buffer, Debug: true})
	require.NoError(t, err)

	WithTransaction(log, "sig123").Info("Transaction sent")
	end := TrackPerformance(log, "swap")
	end()

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "sig123", logs[0].Fields["signature"])
	assert.Contains(t, logs[0].Fields, "tx_time")
	assert.Equal(t, "Operation completed", logs[2].Message)
	assert.Contains(t, logs[2].Fields, "duration")
}

func TestFormatMessage(t *testing.T) {
	msg := FormatMessage("Swap submitted", []zapcore.Field{
		zap.String("amount", "1.5"),
		zap.String("from", "SOL"),
		zap.String("to", "USDC"),
	})
	assert.Contains(t, msg, "1.5 SOL → USDC")

	msg = FormatMessage("Transaction sent", []zapcore.Field{
		zap.String("signature", strings.Repeat("a", 40)),
	})
	assert.Contains(t, msg, "aaaaaaaa...aaaaaaaa")

	assert.Equal(t, "plain", FormatMessage("plain", nil))
}

func TestFieldFilterCoreInlinesContext(t *testing.T) {
	sink := &recordingSink{}
	core := &FieldFilterCore{core: zapcore.NewCore(PrettyEncoder(), sink, zap.DebugLevel)}
	log := zap.New(core).With(zap.String("url", "http://localhost:8899"))

	log.Info("Connected to RPC", zap.String("network", "localnet"))
	assert.Contains(t, sink.String(), "http://localhost:8899 (localnet)")
	assert.NotContains(t, sink.String(), `"network"`)
}

type recordingSink struct {
	strings.Builder
}

func (s *recordingSink) Sync() error { return nil }
