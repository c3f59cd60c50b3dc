// internal/database/db.go
package database

import (
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

// Database wraps the SQLite database connection
type Database struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path
func Open(path string) (*Database, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.init(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

// init creates the database schema
func (d *Database) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_name TEXT NOT NULL,
		prompt TEXT NOT NULL,
		checkpoint_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_agent_runs_checkpoint ON agent_runs(checkpoint_id);
	`

	_, err := d.db.Exec(schema)
	return err
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// RecordRunStart logs the start of an agent invocation and returns the row id
func (d *Database) RecordRunStart(agentName, prompt, checkpointID string) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO agent_runs (agent_name, prompt, checkpoint_id, status, created_at)
		VALUES (?, ?, ?, 'running', ?)`,
		agentName, prompt, checkpointID, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecordRunEnd closes a run log entry with its final status
func (d *Database) RecordRunEnd(id int64, status string) error {
	_, err := d.db.Exec(`
		UPDATE agent_runs SET status = ?, completed_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	return err
}

// ListRecentRuns returns the most recent runs, newest first
func (d *Database) ListRecentRuns(limit int) ([]AgentRun, error) {
	rows, err := d.db.Query(`
		SELECT id, agent_name, prompt, checkpoint_id, status, created_at, completed_at
		FROM agent_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []AgentRun
	for rows.Next() {
		var run AgentRun
		var completedAt sql.NullInt64
		if err := rows.Scan(&run.ID, &run.AgentName, &run.Prompt, &run.CheckpointID,
			&run.Status, &run.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			run.CompletedAt = completedAt.Int64
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
