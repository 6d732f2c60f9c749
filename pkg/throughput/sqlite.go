package throughput

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/flowstat/pkg/models"
	"github.com/pario-ai/flowstat/pkg/timeline"
)

// SQLiteAggregator implements Aggregator as a GROUP BY over an in-memory
// SQLite table. Nothing is written to disk.
type SQLiteAggregator struct {
	db          *sql.DB
	granularity timeline.Granularity
	tx          *sql.Tx
	insert      *sql.Stmt
}

const createSamplesTable = `
CREATE TABLE IF NOT EXISTS samples (
	bucket INTEGER NOT NULL,
	rate REAL NOT NULL
);
`

// NewSQLite opens an in-memory database and creates the samples table.
func NewSQLite(g timeline.Granularity) (*SQLiteAggregator, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open aggregation db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSamplesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate aggregation db: %w", err)
	}
	return &SQLiteAggregator{db: db, granularity: g}, nil
}

// Add inserts s under its bucket key. Inserts are batched in a single
// transaction until Buckets is called.
func (a *SQLiteAggregator) Add(s models.Sample) error {
	if a.tx == nil {
		tx, err := a.db.Begin()
		if err != nil {
			return fmt.Errorf("begin sample batch: %w", err)
		}
		stmt, err := tx.Prepare(`INSERT INTO samples (bucket, rate) VALUES (?, ?)`)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("prepare sample insert: %w", err)
		}
		a.tx, a.insert = tx, stmt
	}
	if _, err := a.insert.Exec(timeline.Floor(s.At, a.granularity).Unix(), s.Rate); err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (a *SQLiteAggregator) flush() error {
	if a.tx == nil {
		return nil
	}
	_ = a.insert.Close()
	err := a.tx.Commit()
	a.tx, a.insert = nil, nil
	if err != nil {
		return fmt.Errorf("commit sample batch: %w", err)
	}
	return nil
}

// Buckets commits pending samples and returns per-bucket sums ordered by
// bucket start.
func (a *SQLiteAggregator) Buckets(ctx context.Context) ([]models.Bucket, error) {
	if err := a.flush(); err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT bucket, SUM(rate) FROM samples GROUP BY bucket ORDER BY bucket ASC`)
	if err != nil {
		return nil, fmt.Errorf("aggregate samples: %w", err)
	}
	defer rows.Close()

	var buckets []models.Bucket
	for rows.Next() {
		var start int64
		var total float64
		if err := rows.Scan(&start, &total); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, models.Bucket{Start: time.Unix(start, 0).UTC(), Tokens: total})
	}
	return buckets, rows.Err()
}

// SampleCount returns the number of samples stored so far.
func (a *SQLiteAggregator) SampleCount(ctx context.Context) (int64, error) {
	if err := a.flush(); err != nil {
		return 0, err
	}
	var n int64
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (a *SQLiteAggregator) Close() error {
	if a.tx != nil {
		_ = a.insert.Close()
		_ = a.tx.Rollback()
	}
	return a.db.Close()
}
