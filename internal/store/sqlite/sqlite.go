package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/vision-grader/internal/store"
	"github.com/nulzo/vision-grader/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Calls() store.CallRepository {
	return &callRepo{db: r.executor}
}

type callRepo struct {
	db DB
}

func (r *callRepo) Log(ctx context.Context, log *model.CallLog) error {
	query := `
	INSERT INTO call_logs (
		id, slot, provider, url, model_id, cached, has_image, image_format,
		status_code, success, error_kind, error_message,
		answer_length, attempts, latency_ms, created_at
	) VALUES (
		:id, :slot, :provider, :url, :model_id, :cached, :has_image, :image_format,
		:status_code, :success, :error_kind, :error_message,
		:answer_length, :attempts, :latency_ms, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}

func (r *callRepo) GetByID(ctx context.Context, id string) (*model.CallLog, error) {
	var log model.CallLog
	if err := r.db.GetContext(ctx, &log, `SELECT * FROM call_logs WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *callRepo) GetRecent(ctx context.Context, slot string, limit int) ([]model.CallLog, error) {
	logs := []model.CallLog{}
	if slot == "" {
		err := r.db.SelectContext(ctx, &logs, `SELECT * FROM call_logs ORDER BY created_at DESC LIMIT ?`, limit)
		return logs, err
	}
	err := r.db.SelectContext(ctx, &logs, `SELECT * FROM call_logs WHERE slot = ? ORDER BY created_at DESC LIMIT ?`, slot, limit)
	return logs, err
}

func (r *callRepo) GetStats(ctx context.Context, days int) ([]model.SlotStats, error) {
	stats := []model.SlotStats{}
	query := `
		SELECT
			slot,
			provider,
			COUNT(*) as total_calls,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as successes,
			SUM(CASE WHEN cached THEN 1 ELSE 0 END) as cached_calls,
			AVG(latency_ms) as avg_latency
		FROM call_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY slot, provider
		ORDER BY slot, provider
	`
	// SQLite date offset format is '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, err
}
