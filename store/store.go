// Package store keeps solved positions in a sqlite database so that they
// survive the process.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var schemaStmts = []string{
	`PRAGMA journal_mode=WAL;`,
	`CREATE TABLE IF NOT EXISTS evals (
		position_key INTEGER PRIMARY KEY,
		moves TEXT NOT NULL,
		score INTEGER NOT NULL,
		best_column INTEGER NOT NULL,
		pv TEXT NOT NULL DEFAULT '',
		depth INTEGER NOT NULL DEFAULT 0,
		solved_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_evals_depth ON evals(depth);`,
}

// Eval is one solved position. Depth is the search depth in plies, or
// board.Size when the score is exact.
type Eval struct {
	Key        uint64 `db:"position_key"`
	Moves      string `db:"moves"`
	Score      int    `db:"score"`
	BestColumn int    `db:"best_column"`
	PV         string `db:"pv"`
	Depth      int    `db:"depth"`
}

type Store struct {
	db *sqlx.DB
}

func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	for _, stmt := range schemaStmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EvalByKey finds a position by its key. It returns sql.ErrNoRows when the
// position was never stored.
func (s *Store) EvalByKey(ctx context.Context, key uint64) (Eval, error) {
	var e Eval
	err := s.db.GetContext(ctx, &e, `
		SELECT position_key, moves, score, best_column, pv, depth
		FROM evals
		WHERE position_key = ?
	`, key)
	return e, err
}

// UpsertEval stores e unless the position is already stored with a deeper
// search.
func (s *Store) UpsertEval(ctx context.Context, e Eval) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO evals (position_key, moves, score, best_column, pv, depth)
		VALUES (:position_key, :moves, :score, :best_column, :pv, :depth)
		ON CONFLICT(position_key) DO UPDATE SET
			moves = excluded.moves,
			score = excluded.score,
			best_column = excluded.best_column,
			pv = excluded.pv,
			depth = excluded.depth,
			solved_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')
		WHERE excluded.depth >= evals.depth
	`, e)
	return err
}

// Count returns the number of stored positions with at least minDepth.
func (s *Store) Count(ctx context.Context, minDepth int) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM evals WHERE depth >= ?`, minDepth)
	return n, err
}
