package etl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ── Job ────────────────────────────────────────────────────
// Orchestrates: source.Read → filter → destination.Write.

// Job holds the configuration for a single import run.
type Job struct {
	SourceType string       `json:"sourceType" yaml:"source"`
	SourceCfg  SourceConfig `json:"sourceConfig" yaml:"config"`
	Mode       ImportMode   `json:"mode,omitempty" yaml:"mode"`
	// Types restricts the import to these block types when non-empty.
	Types []string `json:"types,omitempty" yaml:"types"`
	Limit int      `json:"limit,omitempty" yaml:"limit"`
}

func (j *Job) keep(rec Record) bool {
	if len(j.Types) == 0 {
		return true
	}
	for _, t := range j.Types {
		if t == rec.Type {
			return true
		}
	}
	return false
}

// Failure is a record that could not be written.
type Failure struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Result is the outcome of running a job.
type Result struct {
	Status   string        `json:"status"` // "success" | "partial" | "error"
	Read     int           `json:"read"`
	Skipped  int           `json:"skipped"`
	Written  int           `json:"written"`
	IDs      []string      `json:"ids"`
	Failures []Failure     `json:"failures,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs import jobs using the registered sources and a destination.
type Engine struct {
	Dest   Destination
	Logger *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Run executes a job end-to-end. Records that fail to write do not stop
// the run; they are reported in Result.Failures and combined into the
// returned error.
func (e *Engine) Run(ctx context.Context, job *Job) (*Result, error) {
	start := time.Now()
	result := &Result{IDs: []string{}}
	finish := func(err error) (*Result, error) {
		result.Duration = time.Since(start)
		switch {
		case err != nil && result.Written == 0:
			result.Status = "error"
		case err != nil:
			result.Status = "partial"
		default:
			result.Status = "success"
		}
		e.logger().Info("import finished",
			zap.String("source", job.SourceType),
			zap.String("status", result.Status),
			zap.Int("read", result.Read),
			zap.Int("written", result.Written),
			zap.Duration("duration", result.Duration))
		return result, err
	}

	mode := job.Mode
	if mode == "" {
		mode = ImportUpsert
	}
	source, err := GetSource(job.SourceType)
	if err != nil {
		return finish(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	recCh, errCh := source.Read(ctx, job.SourceCfg)

	var writeErr error
	for rec := range recCh {
		index := result.Read
		result.Read++
		if !job.keep(rec) || (job.Limit > 0 && result.Written+len(result.Failures) >= job.Limit) {
			result.Skipped++
			continue
		}
		id, err := e.Dest.Write(ctx, rec, mode)
		if err != nil {
			e.logger().Warn("import record failed", zap.Int("index", index), zap.String("block_type", rec.Type), zap.Error(err))
			result.Failures = append(result.Failures, Failure{Index: index, ID: rec.ID, Type: rec.Type, Error: err.Error()})
			writeErr = multierr.Append(writeErr, fmt.Errorf("record %d: %w", index, err))
			continue
		}
		result.Written++
		result.IDs = append(result.IDs, id)
	}

	if err := <-errCh; err != nil {
		return finish(multierr.Append(fmt.Errorf("read %s: %w", job.SourceType, err), writeErr))
	}
	return finish(writeErr)
}

// Preview reads up to maxRows records without writing anything.
func (e *Engine) Preview(ctx context.Context, sourceType string, cfg SourceConfig, maxRows int) ([]Record, error) {
	source, err := GetSource(sourceType)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	recCh, errCh := source.Read(ctx, cfg)

	records := []Record{}
	for rec := range recCh {
		if maxRows > 0 && len(records) >= maxRows {
			// Stop the source and drain what it already queued.
			cancel()
			for range recCh {
			}
			break
		}
		records = append(records, rec)
	}
	if err := <-errCh; err != nil && ctx.Err() == nil {
		return records, fmt.Errorf("read %s: %w", sourceType, err)
	}
	return records, nil
}
