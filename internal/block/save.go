package block

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"blocknotes/internal/domain"
)

// Save sends the block's current {id, type, data} to store and merges the
// response back.
//
// The unit is captured when Save is called; edits committed while the store
// call is in flight are not sent, and they are not overwritten by the merge
// unless the backend changed that same field. Errors are returned as
// *domain.PersistenceError and leave the payload as it was. Save never
// retries.
func (b *Block) Save(ctx context.Context, store domain.UnitStore) error {
	if store == nil {
		return b.persistenceErr("save", errors.New("no store configured"))
	}
	sent := b.Unit()

	resp, err := store.Put(ctx, sent.Clone())
	if err != nil {
		return b.persistenceErr("save", err)
	}
	if resp.ID != "" && resp.ID != b.id {
		return b.persistenceErr("save", fmt.Errorf("store answered for block %s", resp.ID))
	}
	if resp.Type != "" && resp.Type != b.typ {
		return b.persistenceErr("save", fmt.Errorf("store answered with type %s", resp.Type))
	}
	if resp.Data == nil {
		b.logger.Debug("block saved")
		return nil
	}

	b.mu.Lock()
	current := b.data
	merged, changed, err := mergeFields(b.typ, sent.Data, resp.Data, current)
	if err != nil {
		b.mu.Unlock()
		return b.persistenceErr("merge", err)
	}
	if !changed {
		b.mu.Unlock()
		b.logger.Debug("block saved")
		return nil
	}
	b.data = merged.Clone()
	observers := b.snapshotLocked()
	b.mu.Unlock()

	b.logger.Debug("block saved, merged backend fields")
	b.notify(observers, Event{
		Kind:    EventBlockSynced,
		BlockID: b.id,
		Type:    b.typ,
		OldData: current.Clone(),
		NewData: merged.Clone(),
	})
	return nil
}

// SaveAsync runs Save in its own goroutine. The returned channel receives
// exactly one value and is buffered, so callers may ignore it.
func (b *Block) SaveAsync(ctx context.Context, store domain.UnitStore) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- b.Save(ctx, store)
	}()
	return done
}

func (b *Block) persistenceErr(op string, err error) error {
	b.logger.Debug("block save failed", zap.String("op", op), zap.Error(err))
	return &domain.PersistenceError{BlockID: b.id, Op: op, Err: err}
}

// mergeFields applies the fields the backend changed relative to what was
// sent onto the current payload. Fields the backend echoed back unchanged
// keep their current value, so edits made during the save survive.
func mergeFields(t domain.BlockType, sent, resp, current domain.Payload) (domain.Payload, bool, error) {
	sentFields, err := domain.PayloadFields(sent)
	if err != nil {
		return nil, false, err
	}
	respFields, err := domain.PayloadFields(resp)
	if err != nil {
		return nil, false, err
	}
	merged, err := domain.PayloadFields(current)
	if err != nil {
		return nil, false, err
	}
	changed := false
	for k, v := range respFields {
		if reflect.DeepEqual(v, sentFields[k]) || reflect.DeepEqual(v, merged[k]) {
			continue
		}
		merged[k] = v
		changed = true
	}
	if !changed {
		return current, false, nil
	}
	p, err := domain.DecodePayload(t, merged)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}
