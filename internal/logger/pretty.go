// internal/logger/pretty.go
package logger

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

// PrettyEncoder creates a user-friendly console encoder
func PrettyEncoder() zapcore.Encoder {
	config := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		CallerKey:      "",
		StacktraceKey:  "",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    customLevelEncoder,
		EncodeTime:     customTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   customCallerEncoder,
	}
	return zapcore.NewConsoleEncoder(config)
}

// customLevelEncoder formats log levels with colors
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(fmt.Sprintf("%s[DEBUG]%s", ColorCyan, ColorReset))
	case zapcore.InfoLevel:
		enc.AppendString(fmt.Sprintf("%s[INFO]%s", ColorGreen, ColorReset))
	case zapcore.WarnLevel:
		enc.AppendString(fmt.Sprintf("%s[WARN]%s", ColorYellow, ColorReset))
	case zapcore.ErrorLevel:
		enc.AppendString(fmt.Sprintf("%s[ERROR]%s", ColorRed, ColorReset))
	case zapcore.FatalLevel:
		enc.AppendString(fmt.Sprintf("%s[FATAL]%s", ColorRed+ColorBold, ColorReset))
	default:
		enc.AppendString(fmt.Sprintf("[%s]", level.CapitalString()))
	}
}

// customTimeEncoder formats time in a readable way
func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// customCallerEncoder hides caller information for cleaner logs
func customCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	// Don't show caller for cleaner output
}

func levelFor(debug bool) zapcore.Level {
	if debug {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

func prettyCore(out zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	return &FieldFilterCore{core: zapcore.NewCore(PrettyEncoder(), out, level)}
}

// FormatMessage creates user-friendly log messages
func FormatMessage(msg string, fields []zapcore.Field) string {
	switch {
	case strings.Contains(msg, "Connected to RPC"):
		return fmt.Sprintf("%s🔌 Connected to %s (%s)%s", ColorGreen, extractField(fields, "url"), extractField(fields, "network"), ColorReset)

	case strings.Contains(msg, "Running in demo mode"):
		return fmt.Sprintf("%s🧪 No healthy endpoint or signer, running in demo mode%s", ColorYellow, ColorReset)

	case strings.Contains(msg, "Swap submitted"):
		return fmt.Sprintf("%s⚡ Swapping %s %s → %s%s", ColorCyan,
			extractField(fields, "amount"), extractField(fields, "from"), extractField(fields, "to"), ColorReset)

	case strings.Contains(msg, "Phase changed"):
		return fmt.Sprintf("%s   … %s%s", ColorBlue, extractField(fields, "phase"), ColorReset)

	case strings.Contains(msg, "Transaction sent"):
		sig := extractField(fields, "signature")
		return fmt.Sprintf("%s📤 Transaction sent: %s%s", ColorYellow, shortenSignature(sig), ColorReset)

	case strings.Contains(msg, "Swap confirmed"):
		sig := extractField(fields, "signature")
		return fmt.Sprintf("%s✅ Swap confirmed: %s%s", ColorGreen+ColorBold, shortenSignature(sig), ColorReset)

	case strings.Contains(msg, "Swap failed"):
		return fmt.Sprintf("%s❌ Swap failed: %s%s", ColorRed, extractField(fields, "message"), ColorReset)

	case strings.Contains(msg, "Airdrop confirmed"):
		return fmt.Sprintf("%s💰 Airdrop of %s SOL to %s confirmed%s", ColorGreen,
			extractField(fields, "sol"), shortenAddress(extractField(fields, "address")), ColorReset)

	case strings.Contains(msg, "Request failed, retrying"):
		return fmt.Sprintf("%s↻ %s retry in %s%s", ColorYellow, extractField(fields, "method"), extractField(fields, "delay"), ColorReset)

	default:
		return msg
	}
}

// Helper functions
func extractField(fields []zapcore.Field, key string) string {
	for _, field := range fields {
		if field.Key != key {
			continue
		}
		switch field.Type {
		case zapcore.StringType:
			return field.String
		case zapcore.DurationType:
			return time.Duration(field.Integer).String()
		case zapcore.Int64Type, zapcore.Int32Type:
			return fmt.Sprintf("%d", field.Integer)
		case zapcore.Float64Type:
			return fmt.Sprintf("%g", math.Float64frombits(uint64(field.Integer)))
		case zapcore.BoolType:
			return fmt.Sprintf("%t", field.Integer == 1)
		default:
			if field.Interface != nil {
				return fmt.Sprintf("%v", field.Interface)
			}
			return field.String
		}
	}
	return ""
}

func shortenAddress(addr string) string {
	if len(addr) > 8 {
		return addr[:4] + "..." + addr[len(addr)-4:]
	}
	return addr
}

func shortenSignature(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "..." + sig[len(sig)-8:]
	}
	return sig
}

// FieldFilterCore renders known messages with their fields inlined and
// drops the raw fields from console output.
type FieldFilterCore struct {
	core   zapcore.Core
	fields []zapcore.Field
}

func (c *FieldFilterCore) Enabled(level zapcore.Level) bool {
	return c.core.Enabled(level)
}

func (c *FieldFilterCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &FieldFilterCore{core: c.core, fields: merged}
}

func (c *FieldFilterCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *FieldFilterCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := append(append([]zapcore.Field{}, c.fields...), fields...)
	cleanEntry := entry
	cleanEntry.Message = FormatMessage(entry.Message, all)
	return c.core.Write(cleanEntry, nil)
}

func (c *FieldFilterCore) Sync() error {
	return c.core.Sync()
}
