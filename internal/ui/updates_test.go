package ui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/events"
)

func TestUpdateSenderNonBlocking(t *testing.T) {
	logger := zap.NewNop()
	msgChan := make(chan tea.Msg, 10) // Small buffer to test blocking
	sender := NewUpdateSender(msgChan, logger)
	defer sender.Close()

	// Fill the channel
	for i := 0; i < 10; i++ {
		sender.SendUpdate(TickMsg{})
	}

	// These should be dropped without blocking
	start := time.Now()
	for i := 0; i < 100; i++ {
		sender.SendUpdate(TickMsg{})
	}
	elapsed := time.Since(start)

	if elapsed > 100*time.Millisecond {
		t.Errorf("SendUpdate blocked for %v, expected non-blocking", elapsed)
	}

	sent, dropped := sender.GetStats()
	if sent != 10 {
		t.Errorf("Expected 10 sent, got %d", sent)
	}
	if dropped != 100 {
		t.Errorf("Expected 100 dropped, got %d", dropped)
	}
}

func TestUpdateSenderConcurrent(t *testing.T) {
	logger := zap.NewNop()
	msgChan := make(chan tea.Msg, 100)
	sender := NewUpdateSender(msgChan, logger)
	defer sender.Close()

	var wg sync.WaitGroup
	numGoroutines := 10
	messagesPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				sender.SendUpdate(TickMsg{})
			}
		}()
	}

	wg.Wait()

	sent, dropped := sender.GetStats()
	total := sent + dropped
	expected := uint64(numGoroutines * messagesPerGoroutine)

	if total != expected {
		t.Errorf("Expected %d total messages, got %d (sent: %d, dropped: %d)",
			expected, total, sent, dropped)
	}
}

func TestUpdateSenderForwardsBusEvents(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 16)
	defer bus.Shutdown(context.Background())

	sender := NewUpdateSender(make(chan tea.Msg, 16), zap.NewNop())
	defer sender.Close()
	sub := sender.Forward(bus, events.PhaseChanged)

	if err := bus.Publish(events.PhaseChangedEvent{
		BaseEvent: events.NewBase(events.PhaseChanged),
		To:        "preparing",
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-sender.Messages():
		em, ok := msg.(EventMsg)
		if !ok {
			t.Fatalf("Expected EventMsg, got %T", msg)
		}
		if em.Event.Type() != events.PhaseChanged {
			t.Errorf("Unexpected event type %s", em.Event.Type())
		}
	case <-time.After(time.Second):
		t.Fatal("Event was not forwarded")
	}

	sub.Unsubscribe()
	_ = bus.Publish(events.PhaseChangedEvent{BaseEvent: events.NewBase(events.PhaseChanged)})
	select {
	case msg := <-sender.Messages():
		t.Errorf("Unexpected message after unsubscribe: %#v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUpdateSenderCloseTwice(t *testing.T) {
	sender := NewUpdateSender(make(chan tea.Msg, 1), zap.NewNop())
	sender.Close()
	sender.Close()
}
