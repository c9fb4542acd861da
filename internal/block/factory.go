package block

import (
	"go.uber.org/zap"

	"blocknotes/internal/domain"
	"blocknotes/internal/ident"
	"blocknotes/internal/log"
)

// Factory builds blocks of the right variant from a type tag and an untyped
// payload.
type Factory struct {
	ids    ident.Generator
	logger *zap.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithIDGenerator replaces the default UUID id source.
func WithIDGenerator(g ident.Generator) FactoryOption {
	return func(f *Factory) {
		if g != nil {
			f.ids = g
		}
	}
}

// WithFactoryLogger sets the logger handed to every block the factory builds.
func WithFactoryLogger(l *zap.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{ids: ident.UUID, logger: log.Get()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Types lists the tags CreateBlock accepts.
func (f *Factory) Types() []domain.BlockType {
	return domain.AllBlockTypes()
}

// CreateBlock returns a new block of the variant named by typ with a freshly
// generated id. It fails with *domain.UnsupportedTypeError for unknown tags,
// *domain.MissingFieldError when raw lacks a required field and
// *domain.ValidationError when a field breaks the variant's rules. Nothing is
// built unless every check passes.
func (f *Factory) CreateBlock(typ string, raw map[string]any) (*Block, error) {
	t := domain.BlockType(typ)
	if !t.Known() {
		return nil, &domain.UnsupportedTypeError{Tag: typ}
	}
	data, err := domain.DecodePayload(t, raw)
	if err != nil {
		return nil, err
	}
	b, err := New(f.ids(), data, WithLogger(f.logger))
	if err != nil {
		return nil, err
	}
	f.logger.Debug("block created", zap.String("block_id", b.ID()), zap.String("block_type", typ))
	return b, nil
}

// Restore rebuilds a block from a persisted unit, keeping its id.
func (f *Factory) Restore(u domain.Unit) (*Block, error) {
	if !u.Type.Known() {
		return nil, &domain.UnsupportedTypeError{Tag: string(u.Type)}
	}
	if u.Data == nil {
		return nil, &domain.MissingFieldError{Type: u.Type, Field: "data"}
	}
	if u.Data.BlockType() != u.Type {
		return nil, &domain.ValidationError{Type: u.Type, Field: "data", Reason: "does not match type"}
	}
	id := u.ID
	if id == "" {
		id = f.ids()
	}
	return New(id, u.Data, WithLogger(f.logger))
}
