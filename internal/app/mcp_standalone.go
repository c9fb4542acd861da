package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"blocknotes/internal/config"
	mcpserver "blocknotes/internal/mcp"
)

// ServeMCP runs blocknotes as an MCP server on stdin/stdout until the client
// disconnects or ctx is done. Edits are autosaved and flushed on exit.
func ServeMCP(ctx context.Context, cfg *config.Config, version string) (err error) {
	a, err := New(ctx, cfg, WithAutosave())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			a.logger.Error("close app", zap.Error(cerr))
			if err == nil {
				err = cerr
			}
		}
	}()

	a.StartWatching(ctx)

	srv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter: a.emitter,
		Blocks:  a.blocks,
		Logger:  a.logger,
		Version: version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
