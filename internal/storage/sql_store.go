package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blocknotes/internal/domain"
)

// SQLStore implements domain.UnitRepository over a blocks table.
type SQLStore struct {
	db *DB
}

func NewSQLStore(db *DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) upsertQuery() string {
	switch s.db.dialect {
	case DialectMySQL:
		return `INSERT INTO blocks (id, type, data_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE type = VALUES(type), data_json = VALUES(data_json), updated_at = VALUES(updated_at)`
	default:
		return s.db.rebind(`INSERT INTO blocks (id, type, data_json, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET type = excluded.type, data_json = excluded.data_json, updated_at = excluded.updated_at`)
	}
}

// Put inserts or replaces the unit and returns what was stored.
func (s *SQLStore) Put(ctx context.Context, u domain.Unit) (domain.Unit, error) {
	if err := checkUnit(u); err != nil {
		return domain.Unit{}, err
	}
	data, err := u.DataJSON()
	if err != nil {
		return domain.Unit{}, err
	}
	now := time.Now().UTC()
	if _, err := s.db.Conn().ExecContext(ctx, s.upsertQuery(), u.ID, string(u.Type), data, now, now); err != nil {
		return domain.Unit{}, fmt.Errorf("put block %s: %w", u.ID, err)
	}
	return u.Clone(), nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (domain.Unit, error) {
	var typ, data string
	err := s.db.Conn().QueryRowContext(ctx,
		s.db.rebind(`SELECT type, data_json FROM blocks WHERE id = ?`), id,
	).Scan(&typ, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Unit{}, notFound(id)
	}
	if err != nil {
		return domain.Unit{}, fmt.Errorf("get block: %w", err)
	}
	return domain.UnitFromFields(id, domain.BlockType(typ), data)
}

// List returns every stored unit, oldest first.
func (s *SQLStore) List(ctx context.Context) ([]domain.Unit, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, type, data_json FROM blocks ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var units []domain.Unit
	for rows.Next() {
		var id, typ, data string
		if err := rows.Scan(&id, &typ, &data); err != nil {
			return nil, err
		}
		u, err := domain.UnitFromFields(id, domain.BlockType(typ), data)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, s.db.rebind(`DELETE FROM blocks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete block: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}
