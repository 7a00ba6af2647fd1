package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists the audit trail to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id               TEXT PRIMARY KEY,
			timestamp        INTEGER NOT NULL,
			block            TEXT,
			trigger_kind     TEXT,
			status           TEXT,
			symbols          INTEGER,
			quotes           INTEGER,
			histories        INTEGER,
			history_failures INTEGER,
			row_count        INTEGER,
			top_code         TEXT,
			elapsed_ms       INTEGER,
			error            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS annotation_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			code      TEXT,
			action    TEXT,
			text      TEXT,
			pinned    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_annotation_code ON annotation_events(code)`,

		`CREATE TABLE IF NOT EXISTS control_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			action    TEXT,
			source    TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(evt *CycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO cycles
		(id, timestamp, block, trigger_kind, status, symbols, quotes, histories,
		 history_failures, row_count, top_code, elapsed_ms, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		evt.ID, evt.StartedAt.Unix(), evt.Block, evt.Trigger, evt.Status,
		evt.Symbols, evt.Quotes, evt.Histories, evt.HistoryFailures, evt.Rows,
		evt.TopCode, evt.Elapsed.Milliseconds(), evt.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordAnnotation(evt *AnnotationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO annotation_events
		(timestamp, code, action, text, pinned)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Code, evt.Action, evt.Text, evt.Pinned,
	)
	return err
}

func (r *SQLiteRecorder) RecordControl(evt *ControlEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO control_events (timestamp, action, source) VALUES (?,?,?)`,
		time.Now().Unix(), evt.Action, evt.Source,
	)
	return err
}

// RecentCycles returns the newest cycles first.
func (r *SQLiteRecorder) RecentCycles(limit int) ([]CycleEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id, timestamp, block, trigger_kind, status, symbols, quotes,
		histories, history_failures, row_count, top_code, elapsed_ms, error
		FROM cycles ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleEvent
	for rows.Next() {
		var (
			evt       CycleEvent
			ts        int64
			elapsedMS int64
		)
		if err := rows.Scan(&evt.ID, &ts, &evt.Block, &evt.Trigger, &evt.Status,
			&evt.Symbols, &evt.Quotes, &evt.Histories, &evt.HistoryFailures, &evt.Rows,
			&evt.TopCode, &elapsedMS, &evt.Error); err != nil {
			return nil, err
		}
		evt.StartedAt = time.Unix(ts, 0)
		evt.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
