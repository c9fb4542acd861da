// Package app assembles repositories, uploaders and services from the
// configuration. Commands get a ready BlockService from here.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blocknotes/internal/block"
	"blocknotes/internal/config"
	"blocknotes/internal/domain"
	"blocknotes/internal/etl"
	_ "blocknotes/internal/etl/sources"
	"blocknotes/internal/ident"
	"blocknotes/internal/log"
	"blocknotes/internal/plugins"
	"blocknotes/internal/secret"
	"blocknotes/internal/service"
	"blocknotes/internal/storage"
	"blocknotes/internal/upload"
)

// App owns everything opened for one run.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	emitter service.EventEmitter

	repo      domain.UnitRepository
	files     *storage.FileStore
	uploader  upload.Uploader
	autosaver *service.Autosaver
	blocks    *service.BlockService
	watcher   *watcher

	closers []func(context.Context) error
}

type options struct {
	autosave bool
	emitter  service.EventEmitter
	repo     domain.UnitRepository
	secrets  secret.Store
}

type Option func(*options)

// WithAutosave saves edits in the background instead of on every call.
// Long-running commands use it; one-shot commands do not.
func WithAutosave() Option {
	return func(o *options) { o.autosave = true }
}

func WithEmitter(e service.EventEmitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithRepository skips opening the configured storage.
func WithRepository(r domain.UnitRepository) Option {
	return func(o *options) { o.repo = r }
}

// WithSecrets sets where "keychain:" references in the config are looked
// up. Without it the macOS keychain is used.
func WithSecrets(s secret.Store) Option {
	return func(o *options) { o.secrets = s }
}

// New opens storage and builds the block service described by cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.secrets == nil {
		o.secrets = secret.NewKeychainStore()
	}
	cfg, err := resolveSecrets(cfg, o.secrets)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: log.Get(), emitter: o.emitter}
	if a.emitter == nil {
		a.emitter = service.LogEmitter{Logger: a.logger}
	}

	a.repo = o.repo
	if a.repo == nil {
		if err := a.openRepository(ctx); err != nil {
			return nil, err
		}
	}

	ids, err := ident.ByName(cfg.IDs.Kind)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	if err := a.openUploader(ctx, ids); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	hooks := service.NewHookRegistry()
	plugins.Register(hooks, a.uploader)

	svcOpts := []service.Option{
		service.WithFactory(block.NewFactory(block.WithIDGenerator(ids), block.WithFactoryLogger(a.logger))),
		service.WithHooks(hooks),
		service.WithLogger(a.logger),
	}
	if a.uploader != nil {
		svcOpts = append(svcOpts, service.WithUploader(a.uploader))
	}
	if o.autosave && cfg.Autosave.Delay > 0 {
		a.autosaver = service.NewAutosaver(a.repo,
			service.WithDelay(cfg.Autosave.Delay),
			service.WithAutosaveLogger(a.logger),
			service.WithAutosaveEmitter(a.emitter),
		)
		if cfg.Autosave.FlushSchedule != "" {
			if err := a.autosaver.StartSchedule(cfg.Autosave.FlushSchedule); err != nil {
				_ = a.Close(ctx)
				return nil, err
			}
		}
		svcOpts = append(svcOpts, service.WithAutosaver(a.autosaver))
	}
	a.blocks = service.NewBlockService(a.repo, a.emitter, svcOpts...)

	a.logger.Debug("app ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("upload", cfg.Upload.Kind),
		zap.Bool("autosave", a.autosaver != nil),
	)
	return a, nil
}

func (a *App) Blocks() *service.BlockService     { return a.blocks }
func (a *App) Repository() domain.UnitRepository { return a.repo }
func (a *App) Emitter() service.EventEmitter     { return a.emitter }
func (a *App) Logger() *zap.Logger               { return a.logger }

// Importer returns an import engine that writes through the block service.
func (a *App) Importer() *etl.Engine {
	return &etl.Engine{Dest: &etl.BlockWriter{Blocks: a.blocks}, Logger: a.logger}
}

// Close stops watching, flushes pending saves and releases storage.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.blocks != nil {
		err = multierr.Append(err, a.blocks.Close(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i](ctx))
	}
	a.closers = nil
	return err
}

// ── Storage ────────────────────────────────────────────────

func (a *App) openRepository(ctx context.Context) error {
	sc := a.cfg.Storage
	switch sc.Driver {
	case "memory":
		a.repo = storage.NewMemoryStore()

	case "file":
		fs, err := storage.NewFileStore(sc.Dir)
		if err != nil {
			return err
		}
		a.files = fs
		a.repo = fs

	case "sqlite", "postgres", "mysql":
		db, err := openSQL(sc)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		a.repo = storage.NewSQLStore(db)

	case "mongo":
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		ms, err := storage.OpenMongo(openCtx, sc.MongoURI, sc.MongoDatabase)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, ms.Close)
		a.repo = ms

	case "remote":
		var opts []storage.RemoteOption
		if sc.RemoteToken != "" {
			opts = append(opts, storage.WithHeader("Authorization", "Bearer "+sc.RemoteToken))
		}
		rs, err := storage.NewRemoteStore(sc.RemoteURL, opts...)
		if err != nil {
			return err
		}
		a.repo = rs

	default:
		return fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
	return nil
}

func openSQL(sc config.StorageConfig) (*storage.DB, error) {
	if sc.Driver == "sqlite" && sc.DSN == "" {
		return storage.OpenSQLite(filepath.Join(filepath.Dir(sc.Dir), "blocks.db"))
	}
	return storage.Open(sc.Driver, sc.DSN)
}

// ── Uploads ────────────────────────────────────────────────

func (a *App) openUploader(ctx context.Context, ids ident.Generator) error {
	uc := a.cfg.Upload
	switch uc.Kind {
	case "none", "":
		return nil

	case "local":
		u, err := upload.NewLocalUploader(uc.Dir, uc.BaseURL, ids)
		if err != nil {
			return err
		}
		a.uploader = u

	case "http":
		u := upload.NewHTTPUploader(uc.Endpoint, &http.Client{Timeout: 60 * time.Second})
		if uc.Token != "" {
			u.SetHeader("Authorization", "Bearer "+uc.Token)
		}
		a.uploader = u

	case "s3":
		s3cfg := upload.S3Config{
			Bucket:    uc.Bucket,
			Region:    uc.Region,
			Endpoint:  uc.EndpointURL,
			AccessKey: uc.AccessKey,
			SecretKey: uc.SecretKey,
			PublicURL: uc.PublicURL,
			Prefix:    uc.Prefix,
		}
		client, err := upload.NewS3Client(ctx, s3cfg)
		if err != nil {
			return err
		}
		u, err := upload.NewS3Uploader(client, s3cfg, ids)
		if err != nil {
			return err
		}
		a.uploader = u

	default:
		return fmt.Errorf("unknown upload kind %q", uc.Kind)
	}
	return nil
}
