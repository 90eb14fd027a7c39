package repository

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db    *sql.DB
	clock clockwork.Clock
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db:    db,
		clock: clockwork.NewRealClock(),
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS reports (
			feed TEXT NOT NULL,
			source TEXT NOT NULL,
			id TEXT NOT NULL,
			text TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			disaster_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			confidence REAL NOT NULL,
			source_count INTEGER,
			timestamp INTEGER NOT NULL,
			platform TEXT,
			urgency TEXT,
			transcription TEXT,
			reporter_type TEXT,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (feed, source, id)
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			severity TEXT NOT NULL,
			district TEXT,
			expires_at TEXT,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON reports(timestamp);
		CREATE INDEX IF NOT EXISTS idx_reports_severity ON reports(severity);
		CREATE INDEX IF NOT EXISTS idx_reports_source ON reports(source);
		CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
