package leads

import (
	"context"
	"database/sql"
	"time"
)

// SQLiteRepository stores leads in a SQLite file through database/sql.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository wraps an open database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	if db == nil {
		panic("leads: sql db required")
	}
	return &SQLiteRepository{db: db, now: time.Now}
}

// Insert appends a row. The AUTOINCREMENT key keeps ids unique even after
// the table is cleared.
func (r *SQLiteRepository) Insert(ctx context.Context, c Candidate) (*Lead, error) {
	createdAt := r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO leads (name, email, message, created_at) VALUES (?, ?, ?, ?)`,
		c.Name, c.Email, nullableString(c.Message), createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, storageError("insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
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

// Clear deletes every row.
func (r *SQLiteRepository) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leads`)
	if err != nil {
		return 0, storageError("clear", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError("clear", err)
	}
	return n, nil
}

// Count returns the number of rows in the table.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, storageError("count", err)
	}
	return n, nil
}
