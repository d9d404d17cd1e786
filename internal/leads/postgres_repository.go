package leads

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool rowQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func newPostgresRepositoryWithExec(exec rowQuerier) *PostgresRepository {
	if exec == nil {
		panic("leads: exec required")
	}
	return &PostgresRepository{pool: exec}
}

// Insert appends a row; id and created_at come from the table defaults.
func (r *PostgresRepository) Insert(ctx context.Context, c Candidate) (*Lead, error) {
	query := `
		INSERT INTO leads (name, email, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	var (
		id        int64
		createdAt time.Time
	)
	if err := r.pool.QueryRow(ctx, query, c.Name, c.Email, nullableString(c.Message)).Scan(&id, &createdAt); err != nil {
		return nil, storageError("insert", err)
	}

	return &Lead{
		ID:        id,
		Name:      c.Name,
		Email:     c.Email,
		Message:   cloneString(c.Message),
		CreatedAt: createdAt,
	}, nil
}

// Clear deletes every row. The identity sequence is left untouched so ids
// are never handed out twice.
func (r *PostgresRepository) Clear(ctx context.Context) (int64, error) {
	ct, err := r.pool.Exec(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, storageError("clear", err)
	}
	return ct.RowsAffected(), nil
}

// Count returns the number of rows in the table.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, storageError("count", err)
	}
	return n, nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
