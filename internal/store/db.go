package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dhaslem/armada/pkg/models"
)

// DB is the SQLite-backed record store.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens the record store at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Records},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Records = `
CREATE TABLE IF NOT EXISTS agent_records (
	task_id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	status TEXT NOT NULL,
	pid INTEGER,
	record TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_agent_records_status ON agent_records(status);
`

// Get returns the record for the task id, or ErrNotFound.
func (db *DB) Get(taskID string) (*models.AgentRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var raw string
	row := db.conn.QueryRow("SELECT record FROM agent_records WHERE task_id = ?", models.NormalizeID(taskID))
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record %s: %w", taskID, err)
	}

	var record models.AgentRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", taskID, err)
	}
	return &record, nil
}

// Put inserts or replaces the record for its task id.
func (db *DB) Put(record *models.AgentRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.TaskID, err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO agent_records (task_id, agent_id, status, pid, record, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(task_id) DO UPDATE SET
			agent_id = excluded.agent_id,
			status = excluded.status,
			pid = excluded.pid,
			record = excluded.record,
			updated_at = CURRENT_TIMESTAMP
	`, models.NormalizeID(record.TaskID), record.AgentID, string(record.Status), record.PID, string(raw))
	if err != nil {
		return fmt.Errorf("put record %s: %w", record.TaskID, err)
	}
	return nil
}

// Delete removes the record for the task id.
func (db *DB) Delete(taskID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec("DELETE FROM agent_records WHERE task_id = ?", models.NormalizeID(taskID)); err != nil {
		return fmt.Errorf("delete record %s: %w", taskID, err)
	}
	return nil
}

// List returns every stored record.
func (db *DB) List() ([]*models.AgentRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query("SELECT record FROM agent_records ORDER BY task_id")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*models.AgentRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var record models.AgentRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
