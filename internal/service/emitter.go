package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from whoever renders blocks
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to a front end (an editor
// view, an agent session, a log). Services receive this interface, which
// makes them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

const (
	EventBlockCreated    = "block:created"
	EventBlockUpdated    = "block:updated"
	EventBlockSynced     = "block:synced"
	EventBlockDeleted    = "block:deleted"
	EventBlockSaved      = "block:saved"
	EventBlockSaveFailed = "block:save-failed"
)

// BlockEventData is the payload of every block:* event.
type BlockEventData struct {
	BlockID string           `json:"blockId"`
	Type    domain.BlockType `json:"type"`
	Data    domain.Payload   `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded emissions of one event, in order.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// LogEmitter writes events to a zap logger. It is the emitter for headless
// runs (CLI, MCP) where no view is attached.
type LogEmitter struct {
	Logger *zap.Logger
}

func (l LogEmitter) Emit(_ context.Context, event string, data any) {
	if l.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("event", event)}
	if d, ok := data.(BlockEventData); ok {
		fields = append(fields, zap.String("block_id", d.BlockID), zap.String("block_type", string(d.Type)))
		if d.Error != "" {
			fields = append(fields, zap.String("error", d.Error))
		}
	} else {
		fields = append(fields, zap.Any("data", data))
	}
	l.Logger.Debug("event", fields...)
}

// emitterObserver forwards block change events to an EventEmitter.
type emitterObserver struct {
	emitter EventEmitter
}

func (o emitterObserver) OnBlockEvent(e block.Event) error {
	name := EventBlockUpdated
	if e.Kind == block.EventBlockSynced {
		name = EventBlockSynced
	}
	o.emitter.Emit(context.Background(), name, BlockEventData{
		BlockID: e.BlockID,
		Type:    e.Type,
		Data:    e.NewData,
	})
	return nil
}
