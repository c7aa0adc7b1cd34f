package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	_ "github.com/lib/pq"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
)

type DBInterface interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PostgresStore reads execution logs from the execution_logs table. The full log is kept in
// the jsonb document column; filterable top-level fields are also promoted to columns.
type PostgresStore struct {
	db DBInterface
}

type executionLogRow struct {
	ID       string         `db:"id"`
	Document types.JSONText `db:"document"`
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an open connection or transaction.
func NewPostgresStoreFromDB(db DBInterface) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Begin(ctx context.Context) (*PostgresStore, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, errors.New("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return errors.New("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close(ctx context.Context) error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.PingContext(ctx)
	}
	_, err := s.db.ExecContext(ctx, "SELECT 1")
	return err
}

// Collection is the name of the backing table.
func (s *PostgresStore) Collection() string {
	return executionLogsTable
}

func (s *PostgresStore) FindOne(ctx context.Context, p query.Predicate) (models.ExecutionLog, error) {
	w := &pgWhere{}
	where, err := w.render(p)
	if err != nil {
		return models.ExecutionLog{}, err
	}
	var row executionLogRow
	q := fmt.Sprintf("SELECT id, document FROM %s WHERE %s ORDER BY id LIMIT 1", executionLogsTable, where)
	err = s.db.GetContext(ctx, &row, q, w.args...)
	if err == sql.ErrNoRows {
		return models.ExecutionLog{}, storage.ErrNotFound
	}
	if err != nil {
		return models.ExecutionLog{}, errors.Wrap(err, "find execution log")
	}
	return row.log()
}

func (s *PostgresStore) Find(ctx context.Context, p query.Predicate, opts storage.FindOptions) ([]models.ExecutionLog, error) {
	w := &pgWhere{}
	where, err := w.render(p)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT id, document FROM %s WHERE %s ORDER BY %s", executionLogsTable, where, pgOrderBy(opts))
	if opts.Limit > 0 {
		q += " LIMIT " + w.arg(opts.Limit)
	}
	if opts.Skip > 0 {
		q += " OFFSET " + w.arg(opts.Skip)
	}
	rows := []executionLogRow{}
	if err := s.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "find execution logs")
	}
	logs := make([]models.ExecutionLog, 0, len(rows))
	for _, r := range rows {
		log, err := r.log()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

func (s *PostgresStore) Count(ctx context.Context, p query.Predicate) (int64, error) {
	w := &pgWhere{}
	where, err := w.render(p)
	if err != nil {
		return 0, err
	}
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", executionLogsTable, where)
	if err := s.db.GetContext(ctx, &n, q, w.args...); err != nil {
		return 0, errors.Wrap(err, "count execution logs")
	}
	return n, nil
}

func (s *PostgresStore) Aggregate(ctx context.Context, spec storage.AggregateSpec) ([]storage.Group, error) {
	q, args, err := pgAggregate(spec)
	if err != nil {
		return nil, err
	}
	groups := []storage.Group{}
	if err := s.db.SelectContext(ctx, &groups, q, args...); err != nil {
		return nil, errors.Wrap(err, "aggregate execution logs")
	}
	return groups, nil
}

// Insert writes a log and returns its ID, generating one when empty. It exists for fixtures
// and imports; the service never writes.
func (s *PostgresStore) Insert(ctx context.Context, log models.ExecutionLog) (string, error) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Steps == nil {
		log.Steps = []models.ExecutionStep{}
	}
	doc, err := json.Marshal(log)
	if err != nil {
		return "", errors.Wrap(err, "encode execution log")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO execution_logs (id, execution_id, conversation_id, business_id, context, status,
			start_time, end_time, total_duration_ms, original_message, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		log.ID, log.ExecutionID, log.ConversationID, log.BusinessID, log.Context, log.Status,
		log.StartTime, log.EndTime, log.TotalDurationMs, log.OriginalMessage, types.JSONText(doc),
		log.CreatedAt, log.UpdatedAt)
	if err != nil {
		return "", errors.Wrapf(err, "insert execution log %s", log.ID)
	}
	return log.ID, nil
}

func (r executionLogRow) log() (models.ExecutionLog, error) {
	var log models.ExecutionLog
	if err := r.Document.Unmarshal(&log); err != nil {
		return models.ExecutionLog{}, errors.Wrapf(err, "decode execution log %s", r.ID)
	}
	log.ID = r.ID
	if log.Steps == nil {
		log.Steps = []models.ExecutionStep{}
	}
	return log, nil
}

var _ storage.TraceStore = (*PostgresStore)(nil)
