package sources

import (
	"context"
	"fmt"

	"blocknotes/internal/domain"
	"blocknotes/internal/etl"
	"blocknotes/internal/storage"
)

// ── Blocks Source ──────────────────────────────────────────
// Copies blocks out of another block store: a SQL database
// (sqlite, postgres, mysql), MongoDB or a directory of block files.

type blocksSource struct{}

func init() { etl.RegisterSource(&blocksSource{}) }

func (s *blocksSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "blocks",
		Label: "Block Store",
		ConfigFields: []etl.ConfigField{
			{Key: "driver", Label: "Driver", Required: true, Help: "file, sqlite, postgres, mysql or mongo"},
			{Key: "dsn", Label: "DSN", Required: true, Help: "Connection string, or the directory for the file driver"},
			{Key: "database", Label: "Database", Default: "blocknotes", Help: "Database name for the mongo driver"},
		},
	}
}

func (s *blocksSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	return stream(ctx, func() ([]etl.Record, error) {
		units, err := listUnits(ctx, cfg)
		if err != nil {
			return nil, err
		}
		records := make([]etl.Record, 0, len(units))
		for _, u := range units {
			data, err := domain.PayloadFields(u.Data)
			if err != nil {
				return nil, err
			}
			records = append(records, etl.Record{ID: u.ID, Type: string(u.Type), Data: data})
		}
		return records, nil
	})
}

func listUnits(ctx context.Context, cfg etl.SourceConfig) ([]domain.Unit, error) {
	driver, dsn := str(cfg, "driver"), str(cfg, "dsn")
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	switch driver {
	case "file":
		fs, err := storage.NewFileStore(dsn)
		if err != nil {
			return nil, err
		}
		return fs.List(ctx)
	case "mongo":
		database := str(cfg, "database")
		if database == "" {
			database = "blocknotes"
		}
		ms, err := storage.OpenMongo(ctx, dsn, database)
		if err != nil {
			return nil, err
		}
		defer ms.Close(context.Background())
		return ms.List(ctx)
	}

	db, err := storage.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return storage.NewSQLStore(db).List(ctx)
}
