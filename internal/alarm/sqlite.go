package alarm

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const journalSchemaSQL = `
CREATE TABLE IF NOT EXISTS alarms (
	name           TEXT PRIMARY KEY,
	scheduled_at   INTEGER NOT NULL,
	period_minutes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_alarms_scheduled ON alarms(scheduled_at);
`

// SQLiteJournal persists alarms in a SQLite table.
type SQLiteJournal struct {
	conn *sql.DB
}

// OpenSQLiteJournal opens (or creates) the journal database.
func OpenSQLiteJournal(dsn string) (*SQLiteJournal, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("alarm: open journal: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("alarm: ping journal: %w", err)
	}
	if _, err := conn.Exec(journalSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("alarm: apply journal schema: %w", err)
	}
	return &SQLiteJournal{conn: conn}, nil
}

// Load returns every journaled alarm.
func (j *SQLiteJournal) Load(ctx context.Context) ([]Alarm, error) {
	rows, err := j.conn.QueryContext(ctx, `SELECT name, scheduled_at, period_minutes FROM alarms ORDER BY scheduled_at`)
	if err != nil {
		return nil, fmt.Errorf("alarm: load: %w", err)
	}
	defer rows.Close()

	var out []Alarm
	for rows.Next() {
		var (
			a  Alarm
			ms int64
		)
		if err := rows.Scan(&a.Name, &ms, &a.PeriodMinutes); err != nil {
			return nil, fmt.Errorf("alarm: scan: %w", err)
		}
		a.ScheduledTime = time.UnixMilli(ms)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Upsert inserts or replaces an alarm.
func (j *SQLiteJournal) Upsert(ctx context.Context, a Alarm) error {
	_, err := j.conn.ExecContext(ctx, `
		INSERT INTO alarms (name, scheduled_at, period_minutes)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			scheduled_at   = excluded.scheduled_at,
			period_minutes = excluded.period_minutes
	`, a.Name, a.ScheduledTime.UnixMilli(), a.PeriodMinutes)
	if err != nil {
		return fmt.Errorf("alarm: upsert %s: %w", a.Name, err)
	}
	return nil
}

// Delete removes an alarm. Deleting a missing alarm is not an error.
func (j *SQLiteJournal) Delete(ctx context.Context, name string) error {
	if _, err := j.conn.ExecContext(ctx, `DELETE FROM alarms WHERE name = ?`, name); err != nil {
		return fmt.Errorf("alarm: delete %s: %w", name, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.conn.Close()
}
