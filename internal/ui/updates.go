package ui

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/events"
)

const statsInterval = 30 * time.Second

// UpdateSender feeds the console from other goroutines. Sends never block:
// when the UI falls behind, messages are dropped and counted.
type UpdateSender struct {
	msgChan chan tea.Msg
	logger  *zap.Logger

	sent    atomic.Uint64
	dropped atomic.Uint64

	stop      chan struct{}
	closeOnce sync.Once
}

// NewUpdateSender wraps msgChan and starts the periodic drop report.
func NewUpdateSender(msgChan chan tea.Msg, logger *zap.Logger) *UpdateSender {
	us := &UpdateSender{
		msgChan: msgChan,
		logger:  logger.Named("ui-updates"),
		stop:    make(chan struct{}),
	}
	go us.reportDrops(statsInterval)
	return us
}

// SendUpdate offers msg to the UI.
func (us *UpdateSender) SendUpdate(msg tea.Msg) {
	select {
	case us.msgChan <- msg:
		us.sent.Add(1)
	default:
		us.dropped.Add(1)
	}
}

// Messages returns the channel the UI reads from.
func (us *UpdateSender) Messages() <-chan tea.Msg {
	return us.msgChan
}

// Forward relays bus events of the given types as EventMsg.
func (us *UpdateSender) Forward(bus *events.Bus, types ...events.EventType) events.Subscription {
	subs := make([]events.Subscription, 0, len(types))
	for _, t := range types {
		subs = append(subs, bus.SubscribeFunc(t, func(_ context.Context, e events.Event) error {
			us.SendUpdate(EventMsg{Event: e})
			return nil
		}))
	}
	return events.Group(subs...)
}

// GetStats returns how many messages were delivered and dropped.
func (us *UpdateSender) GetStats() (sent, dropped uint64) {
	return us.sent.Load(), us.dropped.Load()
}

func (us *UpdateSender) reportDrops(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var lastDropped uint64
	for {
		select {
		case <-ticker.C:
			sent, dropped := us.GetStats()
			if dropped == lastDropped {
				continue
			}
			lastDropped = dropped
			us.logger.Warn("UI is dropping updates",
				zap.Uint64("sent", sent),
				zap.Uint64("dropped", dropped),
				zap.Float64("drop_rate", float64(dropped)/float64(sent+dropped)*100))
		case <-us.stop:
			return
		}
	}
}

// Close stops the drop report. It is safe to call more than once.
func (us *UpdateSender) Close() {
	us.closeOnce.Do(func() { close(us.stop) })
}
