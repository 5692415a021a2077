package trace

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/finchley/marionette/internal/choreo"
	"github.com/finchley/marionette/internal/engine"
)

//go:embed schema.sql
var schemaSQL string

// Store persists emitted commands to SQLite. It implements
// engine.CommandSink; writes happen synchronously inside the tick loop,
// which SQLite in WAL mode handles comfortably at choreography rates.
//
// Sink methods cannot return errors, so the first write failure is
// retained and exposed via Err; subsequent writes are still attempted.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	writeErr error
}

// Open creates or opens a trace database at the given path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect trace db: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under the tick loop's steady write load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply trace schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Err returns the first write error encountered, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeErr
}

func (s *Store) insert(kind engine.CommandKind, action choreo.Action, entity string, progress float64, perfID, stepID string, params map[string]any) {
	paramsJSON := ""
	if len(params) > 0 {
		b, err := choreo.MarshalCanonical(params)
		if err != nil {
			// Params came from decoded JSON/CUE; non-canonical values
			// indicate a bug upstream. Keep the row, drop the params.
			slog.Warn("trace: params not serializable", "error", err)
		} else {
			paramsJSON = string(b)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO commands (kind, action, entity, progress, performance_id, step_id, params_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(kind), string(action), entity, progress, perfID, stepID, paramsJSON,
	)
	if err != nil {
		s.mu.Lock()
		if s.writeErr == nil {
			s.writeErr = err
		}
		s.mu.Unlock()
		slog.Error("trace: insert failed", "kind", string(kind), "error", err)
	}
}

// OnActionStart implements engine.CommandSink.
func (s *Store) OnActionStart(cmd engine.StartCommand) {
	s.insert(engine.KindStart, cmd.Action, cmd.EntityRef, 0, cmd.PerformanceID, cmd.StepID, cmd.Params)
}

// OnActionUpdate implements engine.CommandSink.
func (s *Store) OnActionUpdate(cmd engine.UpdateCommand) {
	s.insert(engine.KindUpdate, cmd.Action, cmd.EntityRef, cmd.Progress, cmd.PerformanceID, cmd.StepID, nil)
}

// OnActionComplete implements engine.CommandSink.
func (s *Store) OnActionComplete(cmd engine.CompleteCommand) {
	s.insert(engine.KindComplete, cmd.Action, cmd.EntityRef, 0, cmd.PerformanceID, cmd.StepID, nil)
}

// OnActionExecute implements engine.CommandSink.
func (s *Store) OnActionExecute(cmd engine.ExecuteCommand) {
	s.insert(engine.KindExecute, cmd.Action, cmd.EntityRef, 0, cmd.PerformanceID, cmd.StepID, cmd.Params)
}

// OnInterrupt implements engine.CommandSink.
func (s *Store) OnInterrupt(cmd engine.InterruptCommand) {
	s.insert(engine.KindInterrupt, "", cmd.EntityRef, 0, cmd.PerformanceID, "", nil)
}

// Row is one persisted command with its emission sequence number.
type Row struct {
	Seq     int64
	Command engine.Recorded
}

// ReadAll returns every persisted command in emission order.
func (s *Store) ReadAll() ([]Row, error) {
	return s.read(`SELECT seq, kind, action, entity, progress, performance_id, step_id, params_json
		FROM commands ORDER BY seq ASC`)
}

// ReadPerformance returns the commands of one performance in emission
// order.
func (s *Store) ReadPerformance(perfID string) ([]Row, error) {
	return s.read(`SELECT seq, kind, action, entity, progress, performance_id, step_id, params_json
		FROM commands WHERE performance_id = ? ORDER BY seq ASC`, perfID)
}

func (s *Store) read(query string, args ...any) ([]Row, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r          Row
			kind       string
			action     string
			paramsJSON string
		)
		if err := rows.Scan(&r.Seq, &kind, &action, &r.Command.EntityRef, &r.Command.Progress,
			&r.Command.PerformanceID, &r.Command.StepID, &paramsJSON); err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}
		r.Command.Kind = engine.CommandKind(kind)
		r.Command.Action = choreo.Action(action)
		if paramsJSON != "" {
			if err := json.Unmarshal([]byte(paramsJSON), &r.Command.Params); err != nil {
				return nil, fmt.Errorf("decode trace params (seq %d): %w", r.Seq, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of persisted commands.
func (s *Store) Count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM commands`).Scan(&n)
	return n, err
}
