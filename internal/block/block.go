// Package block implements the editable document unit: an identity, a fixed
// type tag and a validated payload, with change notification and a save
// handshake against a domain.UnitStore.
package block

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"blocknotes/internal/domain"
	"blocknotes/internal/log"
)

// Block is one unit of document content. The zero value is not usable; build
// blocks with New or a Factory.
//
// Block is safe for concurrent use, but the editing model assumes a single
// writer: SetData calls are not expected to race each other. Save may run
// concurrently with edits.
type Block struct {
	id  string
	typ domain.BlockType

	mu        sync.Mutex
	data      domain.Payload
	observers []registration
	nextReg   uint64

	logger *zap.Logger
}

// Option configures a Block.
type Option func(*Block)

// WithLogger sets the logger used to report observer failures.
func WithLogger(l *zap.Logger) Option {
	return func(b *Block) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a block with the given id. The block's type is taken from the
// payload and can never change. The payload is validated before the block
// exists.
func New(id string, data domain.Payload, opts ...Option) (*Block, error) {
	if data == nil {
		return nil, &domain.ValidationError{Reason: "payload is required"}
	}
	if id == "" {
		return nil, &domain.ValidationError{Type: data.BlockType(), Field: "id", Reason: "required"}
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	b := &Block{
		id:     id,
		typ:    data.BlockType(),
		data:   data.Clone(),
		logger: log.Get(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With(zap.String("block_id", id), zap.String("block_type", string(b.typ)))
	return b, nil
}

// ID returns the block's immutable identifier.
func (b *Block) ID() string { return b.id }

// Type returns the block's immutable type tag.
func (b *Block) Type() domain.BlockType { return b.typ }

// GetData returns a copy of the current payload.
func (b *Block) GetData() domain.Payload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Clone()
}

// SetData replaces the payload wholesale. The new payload must be of the
// block's type and pass validation, otherwise the block is left unchanged and
// a *domain.ValidationError is returned. On success every observer is
// notified before SetData returns.
func (b *Block) SetData(data domain.Payload) (domain.Payload, error) {
	return b.commit(EventBlockUpdated, data)
}

// Patch overlays partial fields on the current payload and commits the result
// through SetData. Fields absent from partial keep their current values.
func (b *Block) Patch(partial map[string]any) (domain.Payload, error) {
	current, err := domain.PayloadFields(b.GetData())
	if err != nil {
		return nil, err
	}
	for k, v := range partial {
		current[k] = v
	}
	next, err := domain.DecodePayload(b.typ, current)
	if err != nil {
		return nil, err
	}
	return b.SetData(next)
}

// Unit returns a snapshot of the block in its persisted shape.
func (b *Block) Unit() domain.Unit {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unitLocked()
}

func (b *Block) unitLocked() domain.Unit {
	return domain.Unit{ID: b.id, Type: b.typ, Data: b.data.Clone()}
}

func (b *Block) String() string {
	return fmt.Sprintf("%s(%s)", b.typ, b.id)
}

// commit validates, swaps the payload and notifies observers.
func (b *Block) commit(kind EventKind, data domain.Payload) (domain.Payload, error) {
	if err := b.check(data); err != nil {
		return nil, err
	}

	b.mu.Lock()
	old := b.data
	b.data = data.Clone()
	observers := b.snapshotLocked()
	b.mu.Unlock()

	b.notify(observers, Event{
		Kind:    kind,
		BlockID: b.id,
		Type:    b.typ,
		OldData: old.Clone(),
		NewData: data.Clone(),
	})
	return data.Clone(), nil
}

func (b *Block) check(data domain.Payload) error {
	if data == nil {
		return &domain.ValidationError{Type: b.typ, Reason: "payload is required"}
	}
	if data.BlockType() != b.typ {
		return &domain.ValidationError{
			Type:   b.typ,
			Reason: fmt.Sprintf("cannot hold a %s payload", data.BlockType()),
		}
	}
	return data.Validate()
}

// DataAs returns the block's payload as the concrete variant T.
func DataAs[T domain.Payload](b *Block) (T, bool) {
	v, ok := b.GetData().(T)
	return v, ok
}
