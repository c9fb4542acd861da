package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"

	"blocknotes/internal/block"
	"blocknotes/internal/domain"
	"blocknotes/internal/log"
	"blocknotes/internal/upload"
)

// ─────────────────────────────────────────────────────────────
// Block Service: live blocks over a repository
// ─────────────────────────────────────────────────────────────

// BlockService keeps the live blocks of a session, indexed by id, and ties
// them to a repository, an uploader, lifecycle hooks and an event emitter.
//
// Edits are persisted by the autosaver when one is configured, otherwise
// synchronously before the edit call returns.
type BlockService struct {
	repo      domain.UnitRepository
	emitter   EventEmitter
	factory   *block.Factory
	uploader  upload.Uploader
	hooks     *HookRegistry
	autosaver *Autosaver
	logger    *zap.Logger

	mu   sync.RWMutex
	live map[string]*liveBlock
}

type liveBlock struct {
	b           *block.Block
	unsubscribe []func()
}

type Option func(*BlockService)

func WithFactory(f *block.Factory) Option {
	return func(s *BlockService) {
		if f != nil {
			s.factory = f
		}
	}
}

func WithUploader(u upload.Uploader) Option {
	return func(s *BlockService) { s.uploader = u }
}

func WithHooks(h *HookRegistry) Option {
	return func(s *BlockService) { s.hooks = h }
}

// WithAutosaver hands persistence of edits to a. The autosaver should save
// into the same repository.
func WithAutosaver(a *Autosaver) Option {
	return func(s *BlockService) { s.autosaver = a }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *BlockService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewBlockService creates a BlockService. A nil emitter drops events.
func NewBlockService(repo domain.UnitRepository, emitter EventEmitter, opts ...Option) *BlockService {
	s := &BlockService{
		repo:    repo,
		emitter: emitter,
		logger:  log.Get(),
		live:    make(map[string]*liveBlock),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.emitter == nil {
		s.emitter = LogEmitter{Logger: s.logger}
	}
	if s.factory == nil {
		s.factory = block.NewFactory(block.WithFactoryLogger(s.logger))
	}
	return s
}

// Types lists the block types Create accepts.
func (s *BlockService) Types() []domain.BlockType {
	return s.factory.Types()
}

// Hooks returns the hook registry, which may be nil.
func (s *BlockService) Hooks() *HookRegistry {
	return s.hooks
}

// ── Live registry ─────────────────────────────────────────

func (s *BlockService) register(b *block.Block) *block.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.live[b.ID()]; ok {
		return existing.b
	}
	lb := &liveBlock{b: b}
	lb.unsubscribe = append(lb.unsubscribe, b.Subscribe(emitterObserver{emitter: s.emitter}))
	if s.autosaver != nil {
		lb.unsubscribe = append(lb.unsubscribe, s.autosaver.Track(b))
	}
	s.live[b.ID()] = lb
	return b
}

func (s *BlockService) unregister(id string) {
	s.mu.Lock()
	lb, ok := s.live[id]
	delete(s.live, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	for _, fn := range lb.unsubscribe {
		fn()
	}
}

func (s *BlockService) lookup(id string) (*block.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lb, ok := s.live[id]
	if !ok {
		return nil, false
	}
	return lb.b, true
}

// Live returns the ids of blocks currently held in memory, sorted.
func (s *BlockService) Live() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ── CRUD ──────────────────────────────────────────────────

// Create builds a block from a type tag and raw fields, runs the type's
// create hook, stores it and registers it as live.
func (s *BlockService) Create(ctx context.Context, typ string, raw map[string]any) (*block.Block, error) {
	b, err := s.factory.CreateBlock(typ, raw)
	if err != nil {
		return nil, err
	}
	if err := s.hooks.OnCreate(ctx, b); err != nil {
		return nil, fmt.Errorf("create %s block: %w", typ, err)
	}
	if err := b.Save(ctx, s.repo); err != nil {
		return nil, err
	}
	s.register(b)
	s.emitter.Emit(ctx, EventBlockCreated, BlockEventData{BlockID: b.ID(), Type: b.Type(), Data: b.GetData()})
	return b, nil
}

// Get returns the live block with id, loading it from the repository if it
// is not in memory.
func (s *BlockService) Get(ctx context.Context, id string) (*block.Block, error) {
	if b, ok := s.lookup(id); ok {
		return b, nil
	}
	return s.Load(ctx, id)
}

// Load restores a block from the repository, keeping its id, and registers
// it. A block already live is returned as is.
func (s *BlockService) Load(ctx context.Context, id string) (*block.Block, error) {
	if b, ok := s.lookup(id); ok {
		return b, nil
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load block: %w", err)
	}
	b, err := s.factory.Restore(u)
	if err != nil {
		return nil, fmt.Errorf("load block %s: %w", id, err)
	}
	return s.register(b), nil
}

// Import stores a unit under its own id, for copying blocks between
// repositories. The create hook runs for new blocks; a live block of the
// same id and type takes the imported payload instead.
func (s *BlockService) Import(ctx context.Context, u domain.Unit) (*block.Block, error) {
	if live, ok := s.lookup(u.ID); ok && live.Type() == u.Type {
		if _, err := live.SetData(u.Data); err != nil {
			return nil, err
		}
		return live, live.Save(ctx, s.repo)
	}

	b, err := s.factory.Restore(u)
	if err != nil {
		return nil, fmt.Errorf("import block: %w", err)
	}
	if err := s.hooks.OnCreate(ctx, b); err != nil {
		return nil, fmt.Errorf("import %s block: %w", u.Type, err)
	}
	if err := b.Save(ctx, s.repo); err != nil {
		return nil, err
	}
	s.unregister(u.ID)
	s.register(b)
	s.emitter.Emit(ctx, EventBlockCreated, BlockEventData{BlockID: b.ID(), Type: b.Type(), Data: b.GetData()})
	return b, nil
}

// Reload replaces a live block's payload with the stored one, e.g. after the
// repository was changed by another process. Equal payloads are left alone
// so a reload never triggers another save.
func (s *BlockService) Reload(ctx context.Context, id string) error {
	b, ok := s.lookup(id)
	if !ok {
		return nil
	}
	u, err := s.repo.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		s.unregister(id)
		s.emitter.Emit(ctx, EventBlockDeleted, BlockEventData{BlockID: id, Type: b.Type()})
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload block: %w", err)
	}
	if u.Type != b.Type() || reflect.DeepEqual(u.Data, b.GetData()) {
		return nil
	}
	_, err = b.SetData(u.Data)
	return err
}

// List returns every stored unit.
func (s *BlockService) List(ctx context.Context) ([]domain.Unit, error) {
	units, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	return units, nil
}

// Replace sets the whole payload of a block from raw fields.
func (s *BlockService) Replace(ctx context.Context, id string, raw map[string]any) (domain.Payload, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := domain.DecodePayload(b.Type(), raw)
	if err != nil {
		return nil, err
	}
	committed, err := b.SetData(data)
	if err != nil {
		return nil, err
	}
	return committed, s.persist(ctx, b)
}

// Update overlays partial fields on a block's payload.
func (s *BlockService) Update(ctx context.Context, id string, partial map[string]any) (domain.Payload, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	committed, err := b.Patch(partial)
	if err != nil {
		return nil, err
	}
	return committed, s.persist(ctx, b)
}

// Save writes a block to the repository now.
func (s *BlockService) Save(ctx context.Context, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return b.Save(ctx, s.repo)
}

// Delete drops a block from memory and the repository, then runs the type's
// delete hook. Hook failures are logged, not returned: the block is
// gone either way.
func (s *BlockService) Delete(ctx context.Context, id string) error {
	var u domain.Unit
	if b, ok := s.lookup(id); ok {
		u = b.Unit()
	} else {
		stored, err := s.repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("delete block: %w", err)
		}
		u = stored
	}
	s.unregister(id)
	if s.autosaver != nil {
		s.autosaver.WaitIdle(ctx, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if err := s.hooks.OnDelete(ctx, u); err != nil {
		s.logger.Warn("delete hook failed", zap.String("block_id", id), zap.Error(err))
	}
	s.emitter.Emit(ctx, EventBlockDeleted, BlockEventData{BlockID: id, Type: u.Type})
	return nil
}

// persist saves b unless the autosaver will.
func (s *BlockService) persist(ctx context.Context, b *block.Block) error {
	if s.autosaver != nil {
		return nil
	}
	return b.Save(ctx, s.repo)
}

// ── Images ────────────────────────────────────────────────

func (s *BlockService) uploadImage(ctx context.Context, data []byte) (upload.Result, error) {
	if _, err := upload.DetectImage(data); err != nil {
		return upload.Result{}, err
	}
	if s.uploader == nil {
		return upload.Result{}, errors.New("no uploader configured")
	}
	res, err := s.uploader.Upload(ctx, data)
	if err != nil {
		return upload.Result{}, fmt.Errorf("upload image: %w", err)
	}
	return res, nil
}

// AttachImage uploads image bytes and points an image block at the result.
// Bytes that are not an image are refused with *domain.ValidationError
// before anything is uploaded. The previous upload is deleted when the
// uploader owns it.
func (s *BlockService) AttachImage(ctx context.Context, id string, data []byte) (domain.Payload, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Type() != domain.BlockTypeImage {
		return nil, &domain.ValidationError{Type: b.Type(), Reason: "only image blocks accept uploads"}
	}
	previous, _ := block.DataAs[domain.Image](b)

	res, err := s.uploadImage(ctx, data)
	if err != nil {
		return nil, err
	}
	committed, err := b.Patch(map[string]any{"src": res.Src})
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, b); err != nil {
		return committed, err
	}
	if previous.Src != "" && previous.Src != res.Src {
		s.dropUpload(ctx, previous.Src)
	}
	return committed, nil
}

// CreateImage uploads image bytes and creates an image block pointing at
// them.
func (s *BlockService) CreateImage(ctx context.Context, data []byte, alt, caption string) (*block.Block, error) {
	res, err := s.uploadImage(ctx, data)
	if err != nil {
		return nil, err
	}
	b, err := s.Create(ctx, string(domain.BlockTypeImage), map[string]any{
		"src":     res.Src,
		"alt":     alt,
		"caption": caption,
	})
	if err != nil {
		s.dropUpload(ctx, res.Src)
		return nil, err
	}
	return b, nil
}

func (s *BlockService) dropUpload(ctx context.Context, src string) {
	d, ok := s.uploader.(upload.Deleter)
	if !ok || !d.Owns(src) {
		return
	}
	if err := d.Delete(ctx, src); err != nil {
		s.logger.Warn("delete upload failed", zap.String("src", src), zap.Error(err))
	}
}

// ── Links ─────────────────────────────────────────────────

// CommitLink applies a link draft. It reports false when the draft is still
// incomplete, in which case nothing changes.
func (s *BlockService) CommitLink(ctx context.Context, id string, draft block.LinkDraft) (bool, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	ok, err := draft.Commit(b)
	if err != nil || !ok {
		return false, err
	}
	return true, s.persist(ctx, b)
}

// Close flushes and stops the autosaver, if any, and releases live blocks.
func (s *BlockService) Close(ctx context.Context) error {
	var err error
	if s.autosaver != nil {
		err = s.autosaver.Close(ctx)
	}
	for _, id := range s.Live() {
		s.unregister(id)
	}
	return err
}
