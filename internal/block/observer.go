package block

import (
	"fmt"
	"reflect"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blocknotes/internal/domain"
)

type EventKind string

const (
	// EventBlockUpdated fires after SetData or Patch commits.
	EventBlockUpdated EventKind = "block-updated"
	// EventBlockSynced fires when a save response changed the payload.
	EventBlockSynced EventKind = "block-synced"
)

// Event describes a committed payload change.
type Event struct {
	Kind    EventKind
	BlockID string
	Type    domain.BlockType
	OldData domain.Payload
	NewData domain.Payload
}

// Observer reacts to block changes. A returned error is logged and does not
// stop other observers or undo the change.
type Observer interface {
	OnBlockEvent(Event) error
}

// ObserverFunc adapts a function to Observer. Functions are not comparable, so
// an ObserverFunc can only be removed with the func returned by Subscribe.
type ObserverFunc func(Event) error

func (f ObserverFunc) OnBlockEvent(e Event) error { return f(e) }

type registration struct {
	token    uint64
	observer Observer
}

// Subscribe registers o and returns a func that removes this registration.
// Subscribing the same observer twice registers it twice.
func (b *Block) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	b.nextReg++
	token := b.nextReg
	b.observers = append(b.observers, registration{token: token, observer: o})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, r := range b.observers {
			if r.token == token {
				b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

// Unsubscribe removes every registration of o, compared by identity.
func (b *Block) Unsubscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.observers[:0:0]
	for _, r := range b.observers {
		if !sameObserver(r.observer, o) {
			kept = append(kept, r)
		}
	}
	b.observers = kept
}

// Observers returns the number of registrations.
func (b *Block) Observers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

func sameObserver(a, b Observer) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func (b *Block) snapshotLocked() []Observer {
	out := make([]Observer, len(b.observers))
	for i, r := range b.observers {
		out[i] = r.observer
	}
	return out
}

// notify calls each observer in subscription order. Failures are isolated
// per observer.
func (b *Block) notify(observers []Observer, e Event) {
	var errs error
	for _, o := range observers {
		errs = multierr.Append(errs, b.deliver(o, e))
	}
	if errs != nil {
		b.logger.Warn("block observers failed",
			zap.String("event", string(e.Kind)),
			zap.Int("failures", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
	}
}

func (b *Block) deliver(o Observer, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return o.OnBlockEvent(e)
}
