// Package history keeps a local record of pipeline runs in SQLite.
//
// Each run stores the request, the pattern hash, the macro tier's bias
// before and after correction, whether artifacts came from the cache and how
// long the run took. The CLI's history command lists and inspects entries;
// nothing in the generation path reads them back.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	bderrors "github.com/matzehuels/backdrop/pkg/errors"
)

// DefaultLimit caps List when the filter sets no limit.
const DefaultLimit = 50

// Entry is one recorded run.
type Entry struct {
	ID          string        `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	Level       string        `json:"level,omitempty"`
	Primary     string        `json:"primary"`
	Secondary   string        `json:"secondary,omitempty"`
	Density     string        `json:"density"`
	MacroCount  int           `json:"macro_count"`
	MesoCount   int           `json:"meso_count"`
	MicroCount  int           `json:"micro_count"`
	Seed        uint64        `json:"seed"`
	PatternHash string        `json:"pattern_hash"`
	BiasBefore  float64       `json:"bias_before"`
	BiasAfter   float64       `json:"bias_after"`
	Iterations  int           `json:"iterations"`
	Converged   bool          `json:"converged"`
	CacheHit    bool          `json:"cache_hit"`
	Duration    time.Duration `json:"duration"`
	Bytes       int64         `json:"bytes"`
}

// row mirrors the table. Seeds are stored as the signed bit pattern because
// SQLite integers are signed 64-bit.
type row struct {
	ID          string  `db:"id"`
	CreatedAt   int64   `db:"created_at"`
	Level       string  `db:"level"`
	Primary     string  `db:"primary_family"`
	Secondary   string  `db:"secondary_family"`
	Density     string  `db:"density"`
	MacroCount  int     `db:"macro_count"`
	MesoCount   int     `db:"meso_count"`
	MicroCount  int     `db:"micro_count"`
	Seed        int64   `db:"seed"`
	PatternHash string  `db:"pattern_hash"`
	BiasBefore  float64 `db:"bias_before"`
	BiasAfter   float64 `db:"bias_after"`
	Iterations  int     `db:"iterations"`
	Converged   bool    `db:"converged"`
	CacheHit    bool    `db:"cache_hit"`
	DurationNS  int64   `db:"duration_ns"`
	Bytes       int64   `db:"bytes"`
}

func toRow(e Entry) row {
	return row{
		ID:          e.ID,
		CreatedAt:   e.CreatedAt.UnixNano(),
		Level:       e.Level,
		Primary:     e.Primary,
		Secondary:   e.Secondary,
		Density:     e.Density,
		MacroCount:  e.MacroCount,
		MesoCount:   e.MesoCount,
		MicroCount:  e.MicroCount,
		Seed:        int64(e.Seed),
		PatternHash: e.PatternHash,
		BiasBefore:  e.BiasBefore,
		BiasAfter:   e.BiasAfter,
		Iterations:  e.Iterations,
		Converged:   e.Converged,
		CacheHit:    e.CacheHit,
		DurationNS:  int64(e.Duration),
		Bytes:       e.Bytes,
	}
}

func (r row) entry() Entry {
	return Entry{
		ID:          r.ID,
		CreatedAt:   time.Unix(0, r.CreatedAt).UTC(),
		Level:       r.Level,
		Primary:     r.Primary,
		Secondary:   r.Secondary,
		Density:     r.Density,
		MacroCount:  r.MacroCount,
		MesoCount:   r.MesoCount,
		MicroCount:  r.MicroCount,
		Seed:        uint64(r.Seed),
		PatternHash: r.PatternHash,
		BiasBefore:  r.BiasBefore,
		BiasAfter:   r.BiasAfter,
		Iterations:  r.Iterations,
		Converged:   r.Converged,
		CacheHit:    r.CacheHit,
		Duration:    time.Duration(r.DurationNS),
		Bytes:       r.Bytes,
	}
}

// Store is a SQLite-backed run history. It is safe for concurrent use.
type Store struct {
	conn *sqlx.DB
	now  func() time.Time
}

// DefaultPath returns the history database location:
// $XDG_DATA_HOME/backdrop/history.db, falling back to ~/.local/share.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "backdrop", "history.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "backdrop", "history.db"), nil
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		level TEXT NOT NULL DEFAULT '',
		primary_family TEXT NOT NULL,
		secondary_family TEXT NOT NULL DEFAULT '',
		density TEXT NOT NULL,
		macro_count INTEGER NOT NULL,
		meso_count INTEGER NOT NULL,
		micro_count INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		pattern_hash TEXT NOT NULL,
		bias_before REAL NOT NULL,
		bias_after REAL NOT NULL,
		iterations INTEGER NOT NULL,
		converged INTEGER NOT NULL,
		cache_hit INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		bytes INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_level ON runs(level);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Record inserts e. An empty ID gets a fresh UUID and a zero CreatedAt the
// current time; the stored entry is returned.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := s.conn.NamedExecContext(ctx, `INSERT INTO runs
		(id, created_at, level, primary_family, secondary_family, density,
		 macro_count, meso_count, micro_count, seed, pattern_hash,
		 bias_before, bias_after, iterations, converged, cache_hit, duration_ns, bytes)
		VALUES (:id, :created_at, :level, :primary_family, :secondary_family, :density,
		 :macro_count, :meso_count, :micro_count, :seed, :pattern_hash,
		 :bias_before, :bias_after, :iterations, :converged, :cache_hit, :duration_ns, :bytes)`,
		toRow(e))
	if err != nil {
		return Entry{}, fmt.Errorf("record run: %w", err)
	}
	return e, nil
}

// Filter narrows List.
type Filter struct {
	Level   string // exact level name
	Primary string // exact primary family name
	Limit   int    // zero means DefaultLimit
}

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := "SELECT * FROM runs WHERE 1=1"
	var args []any
	if f.Level != "" {
		query += " AND level = ?"
		args = append(args, f.Level)
	}
	if f.Primary != "" {
		query += " AND primary_family = ?"
		args = append(args, f.Primary)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	var rows []row
	if err := s.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out, nil
}

// Get returns the entry with the given ID or a NOT_FOUND error. A unique
// prefix of at least eight characters also matches.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	var rows []row
	var err error
	if len(id) >= 8 && len(id) < 36 {
		err = s.conn.SelectContext(ctx, &rows, "SELECT * FROM runs WHERE id LIKE ? LIMIT 2", id+"%")
	} else {
		err = s.conn.SelectContext(ctx, &rows, "SELECT * FROM runs WHERE id = ?", id)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("get run: %w", err)
	}
	switch len(rows) {
	case 0:
		return Entry{}, bderrors.New(bderrors.ErrCodeNotFound, "no run %q", id)
	case 1:
		return rows[0].entry(), nil
	default:
		return Entry{}, bderrors.New(bderrors.ErrCodeInvalidInput, "run id prefix %q is ambiguous", id)
	}
}

// Prune deletes all but the newest keep entries and reports how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.conn.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN
		(SELECT id FROM runs ORDER BY created_at DESC, id LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
