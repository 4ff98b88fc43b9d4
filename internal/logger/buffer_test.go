package logger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogBufferConcurrentAccess(t *testing.T) {
	buffer := NewLogBuffer(100)

	var wg sync.WaitGroup
	numGoroutines := 10
	logsPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				buffer.Add("info", fmt.Sprintf("goroutine %d, iteration %d", id, j), nil)
				_ = buffer.GetRecentLogs(10)
			}
		}(i)
	}
	wg.Wait()

	total, dropped := buffer.GetStats()
	assert.Equal(t, uint64(numGoroutines*logsPerGoroutine), total)
	assert.Equal(t, total-100, dropped)
	assert.Len(t, buffer.GetRecentLogs(0), 100)
}

func TestLogBufferOrderAfterWrap(t *testing.T) {
	buffer := NewLogBuffer(3)
	for i := 1; i <= 5; i++ {
		buffer.Add("info", fmt.Sprintf("m%d", i), nil)
	}

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, "m3", logs[0].Message)
	assert.Equal(t, "m5", logs[2].Message)

	logs = buffer.GetRecentLogs(2)
	require.Len(t, logs, 2)
	assert.Equal(t, "m4", logs[0].Message)
	assert.Equal(t, "m5", logs[1].Message)
}

func TestLogBufferBeforeWrap(t *testing.T) {
	buffer := NewLogBuffer(10)
	buffer.Add("info", "a", nil)
	buffer.Add("warn", "b", nil)

	logs := buffer.GetRecentLogs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, "b", logs[0].Message)
}

func TestLogBufferAsZapSink(t *testing.T) {
	buffer := NewLogBuffer(10)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), buffer, zap.DebugLevel)
	log := zap.New(core)

	log.Info("Swap confirmed", zap.String("signature", "abc"))
	log.Warn("Rate limited")

	logs := buffer.GetRecentLogs(0)
	require.Len(t, logs, 2)
	assert.Equal(t, "info", logs[0].Level)
	assert.Equal(t, "Swap confirmed", logs[0].Message)
	assert.Equal(t, "abc", logs[0].Fields["signature"])
	assert.Equal(t, "warn", logs[1].Level)
}
