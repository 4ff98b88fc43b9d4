// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
)

// EventType represents the type of event.
type EventType string

const (
	// Operation events
	OperationStarted   EventType = "operation.started"
	PhaseChanged       EventType = "operation.phase"
	OperationCompleted EventType = "operation.completed"
	OperationFailed    EventType = "operation.failed"

	// Connection events
	ConnectionChanged EventType = "connection.changed"

	// Balance events
	BalanceChanged EventType = "balance.changed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// OperationStartedEvent is emitted when a swap or airdrop is accepted.
type OperationStartedEvent struct {
	BaseEvent
	OperationID string
	Kind        ledger.Kind
	From        string
	To          string
	Amount      string
	Compressed  bool
}

// PhaseChangedEvent is emitted on every orchestration phase transition.
type PhaseChangedEvent struct {
	BaseEvent
	OperationID string
	From        string
	To          string
	Elapsed     time.Duration
}

// OperationCompletedEvent is emitted after a successful record is stored.
type OperationCompletedEvent struct {
	BaseEvent
	OperationID string
	Record      ledger.Record
}

// OperationFailedEvent is emitted after a failed operation is recorded.
type OperationFailedEvent struct {
	BaseEvent
	OperationID string
	Record      ledger.Record
	Kind        string
	Message     string
	Error       error
}

// ConnectionChangedEvent reports the outcome of an endpoint probe.
type ConnectionChangedEvent struct {
	BaseEvent
	Connected bool
	Network   string
	Endpoint  string
	IsLocal   bool
	Healthy   []string
}

// BalanceChangedEvent is emitted when a wallet balance is observed to change.
type BalanceChangedEvent struct {
	BaseEvent
	WalletAddress string
	OldBalance    uint64
	NewBalance    uint64
}
