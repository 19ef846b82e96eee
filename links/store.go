// Package links persists the discovered profile-URL set between passes
// and runs, so an interrupted or repeated harvest resumes with everything
// already found instead of starting over.
package links

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store manages discovered links using SQLite.
type Store struct {
	db *sql.DB
}

// Link is one discovered profile URL and the run that first saw it.
type Link struct {
	URL          string    `json:"url"`
	RunID        uuid.UUID `json:"run_id"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// NewStore creates a link store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		started_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS links (
		url TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		discovered_at TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records a new harvest run and returns its identifier.
func (s *Store) BeginRun(startURL string) (uuid.UUID, error) {
	runID := uuid.New()
	query := "INSERT INTO runs (run_id, start_url, started_at) VALUES (?, ?, ?)"

	_, err := s.db.Exec(query, runID.String(), startURL, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record run: %w", err)
	}
	return runID, nil
}

// AddLinks inserts URLs, ignoring ones already present, and returns how
// many were new. Already-known links keep the run that first found them.
func (s *Store) AddLinks(runID uuid.UUID, urls []string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO links (url, run_id, discovered_at) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	added := 0
	for _, u := range urls {
		res, err := stmt.Exec(u, runID.String(), now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert link %s: %w", u, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit links: %w", err)
	}
	return added, nil
}

// ListURLs returns every known URL in sorted order.
func (s *Store) ListURLs() ([]string, error) {
	rows, err := s.db.Query("SELECT url FROM links ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// ListLinks returns every link with its discovery metadata.
func (s *Store) ListLinks() ([]Link, error) {
	rows, err := s.db.Query("SELECT url, run_id, discovered_at FROM links ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		var runID, discovered string
		if err := rows.Scan(&l.URL, &runID, &discovered); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		if id, err := uuid.Parse(runID); err == nil {
			l.RunID = id
		}
		if ts, err := time.Parse(time.RFC3339, discovered); err == nil {
			l.DiscoveredAt = ts
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// Count returns the number of known links.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM links").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return n, nil
}
