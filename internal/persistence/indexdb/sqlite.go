package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"blockmaze.ai/internal/sim/catalogs"
	"blockmaze.ai/internal/sim/encoding"
	"blockmaze.ai/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed    atomic.Bool
	dropSolve atomic.Uint64
	written   atomic.Uint64
	failed    atomic.Uint64
}

type reqKind int

const (
	reqSolve reqKind = iota + 1
	reqSync
)

type req struct {
	kind reqKind

	solve SolveRow
	done  chan struct{}
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	DropSolveTotal uint64
	WrittenTotal   uint64
	FailedTotal    uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer connection plus readers for LookupByDigest under WAL.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS solutions (
			digest TEXT PRIMARY KEY,
			level_id TEXT NOT NULL,
			found INTEGER NOT NULL,
			block_count INTEGER NOT NULL CHECK (block_count >= 0),
			action_count INTEGER NOT NULL,
			actions_rle TEXT NOT NULL,
			structured_json TEXT NOT NULL,
			program_json TEXT NOT NULL,
			cost REAL NOT NULL,
			expanded INTEGER NOT NULL,
			visited INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			tuning_digest TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_solutions_level ON solutions(level_id);`,
		`CREATE TABLE IF NOT EXISTS solves (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			digest TEXT NOT NULL,
			source TEXT NOT NULL,
			found INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_solves_digest ON solves(digest);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSolve queues row for the writer goroutine. Rows are dropped when the
// queue is full; the JSONL logs remain the source of truth.
func (s *SQLiteIndex) RecordSolve(row SolveRow) {
	if s == nil || s.closed.Load() || row.Digest == "" {
		return
	}
	select {
	case s.ch <- req{kind: reqSolve, solve: row}:
	default:
		s.dropSolve.Add(1)
	}
}

// Sync blocks until every row queued before the call is committed.
func (s *SQLiteIndex) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqSync, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropSolveTotal: s.dropSolve.Load(),
		WrittenTotal:   s.written.Load(),
		FailedTotal:    s.failed.Load(),
	}
}

// LookupByDigest returns the stored solve for a level digest.
func (s *SQLiteIndex) LookupByDigest(ctx context.Context, digest string) (SolveRow, bool, error) {
	var (
		row                          SolveRow
		found                        int
		rle, structured, program, at string
	)
	err := s.db.QueryRowContext(ctx, `SELECT level_id, found, block_count, actions_rle, structured_json,
		program_json, cost, expanded, visited, elapsed_ms, recorded_at, tuning_digest
		FROM solutions WHERE digest = ?`, digest).Scan(
		&row.LevelID, &found, &row.BlockCount, &rle, &structured,
		&program, &row.Cost, &row.Expanded, &row.Visited, &row.ElapsedMs, &at, &row.TuningDigest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return SolveRow{}, false, nil
	}
	if err != nil {
		return SolveRow{}, false, err
	}

	row.Digest = digest
	row.Found = found != 0
	if row.Actions, err = encoding.DecodeActions(rle); err != nil {
		return SolveRow{}, false, fmt.Errorf("solutions %s: actions: %w", digest, err)
	}
	if err := json.Unmarshal([]byte(structured), &row.Structured); err != nil {
		return SolveRow{}, false, fmt.Errorf("solutions %s: structured: %w", digest, err)
	}
	if err := json.Unmarshal([]byte(program), &row.Program); err != nil {
		return SolveRow{}, false, fmt.Errorf("solutions %s: program: %w", digest, err)
	}
	row.RecordedAt, _ = time.Parse(time.RFC3339Nano, at)
	return row, true, nil
}

// UpsertCatalogs stores the catalogs and tuning a run was configured with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "terrain.json")); err == nil {
			rows = append(rows, kv{name: "terrain_defs", digest: cats.Terrain.Digest, json: b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "toolbox_presets.json")); err == nil {
			rows = append(rows, kv{name: "toolbox_presets", digest: cats.Toolbox.Digest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Terrain.Defs); len(b) > 0 {
		rows = append(rows, kv{name: "terrain", digest: cats.Terrain.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSolution, _ := s.db.Prepare(`INSERT OR REPLACE INTO solutions(digest,level_id,found,block_count,action_count,
		actions_rle,structured_json,program_json,cost,expanded,visited,elapsed_ms,recorded_at,tuning_digest)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertSolve, _ := s.db.Prepare(`INSERT INTO solves(digest,source,found,elapsed_ms,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertSolution != nil {
			_ = insertSolution.Close()
		}
		if insertSolve != nil {
			_ = insertSolve.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		pending       uint64
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 500 * time.Millisecond
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.failed.Add(pending)
		} else {
			s.written.Add(pending)
		}
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		var r req
		select {
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
			continue
		}

		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}

		begin()
		if tx == nil {
			s.failed.Add(1)
			continue
		}
		// Each row gets its own savepoint so a bad row leaves the rest of
		// the open transaction intact.
		if err := writeRow(tx, insertSolution, insertSolve, r.solve); err != nil {
			s.failed.Add(1)
			continue
		}
		pending++
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
}

func writeRow(tx *sql.Tx, insertSolution, insertSolve *sql.Stmt, row SolveRow) error {
	if _, err := tx.Exec(`SAVEPOINT solve_row`); err != nil {
		return err
	}
	if err := writeSolve(tx, insertSolution, insertSolve, row); err != nil {
		_, _ = tx.Exec(`ROLLBACK TO solve_row`)
		_, _ = tx.Exec(`RELEASE solve_row`)
		return err
	}
	_, err := tx.Exec(`RELEASE solve_row`)
	return err
}

func writeSolve(tx *sql.Tx, insertSolution, insertSolve *sql.Stmt, row SolveRow) error {
	if insertSolution == nil || insertSolve == nil {
		return fmt.Errorf("statements not prepared")
	}
	structured, err := json.Marshal(row.Structured)
	if err != nil {
		return err
	}
	program, err := json.Marshal(row.Program)
	if err != nil {
		return err
	}
	at := row.RecordedAt.UTC().Format(time.RFC3339Nano)
	found := 0
	if row.Found {
		found = 1
	}
	if _, err := tx.Stmt(insertSolution).Exec(
		row.Digest,
		row.LevelID,
		found,
		row.BlockCount,
		len(row.Actions),
		encoding.EncodeActions(row.Actions),
		string(structured),
		string(program),
		row.Cost,
		row.Expanded,
		row.Visited,
		row.ElapsedMs,
		at,
		row.TuningDigest,
	); err != nil {
		return err
	}
	_, err = tx.Stmt(insertSolve).Exec(row.Digest, row.Source, found, row.ElapsedMs, at)
	return err
}
