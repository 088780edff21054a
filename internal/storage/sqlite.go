//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"geosem/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.WithHint(errors.New("sqlite path is required"), "set [store] db_path or pass --db-path")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", s.path)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "ping %s", s.path)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveWeights(ctx context.Context, record model.WeightRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeWeights(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO weights (id, feature_name, dim, created_at, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			feature_name = excluded.feature_name,
			dim = excluded.dim,
			created_at = excluded.created_at,
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, record.ID, record.Features.Name, record.Features.Dim, formatTime(record.CreatedAt),
		record.SchemaVersion, record.CodecVersion, payload)
	return errors.Wrapf(err, "save weights %s", record.ID)
}

func (s *SQLiteStore) GetWeights(ctx context.Context, id string) (model.WeightRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.WeightRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM weights WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.WeightRecord{}, false, nil
		}
		return model.WeightRecord{}, false, errors.Wrapf(err, "get weights %s", id)
	}

	record, err := DecodeWeights(payload)
	if err != nil {
		return model.WeightRecord{}, false, errors.Wrapf(err, "decode weights %s", id)
	}
	return record, true, nil
}

func (s *SQLiteStore) ListWeights(ctx context.Context) ([]model.WeightSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, feature_name, dim, created_at FROM weights ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list weights")
	}
	defer rows.Close()

	var out []model.WeightSummary
	for rows.Next() {
		var (
			summary model.WeightSummary
			created string
		)
		if err := rows.Scan(&summary.ID, &summary.Features, &summary.Dim, &created); err != nil {
			return nil, errors.Wrap(err, "scan weights")
		}
		summary.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, errors.Wrapf(err, "parse created_at of %s", summary.ID)
		}
		out = append(out, summary)
	}
	return out, errors.Wrap(rows.Err(), "list weights")
}

func (s *SQLiteStore) DeleteWeights(ctx context.Context, id string) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM weights WHERE id = ?`, id)
	if err != nil {
		return false, errors.Wrapf(err, "delete weights %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "delete weights %s", id)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// formatTime uses a fixed-width UTC layout so that created_at sorts as text.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS weights (
			id TEXT PRIMARY KEY,
			feature_name TEXT NOT NULL,
			dim INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS weights_created_at ON weights (created_at);
	`)
	return err
}
