// Package history keeps a record of every daily image that was fetched
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one fetched image. Market is empty for the local location.
type Entry struct {
	DateKey       string
	Market        string
	Title         string
	Copyright     string
	CopyrightLink string
	QuizLink      string
	ImageURL      string
	SavedPath     string
	FetchedAt     time.Time
}

type Database struct {
	db *sql.DB
}

func Open(dbPath string) (*Database, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// The refresher and the interactive console share this handle
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	d := &Database{db: db}
	if err := d.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}
	return d, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS images (
		date_key       TEXT NOT NULL,
		market         TEXT NOT NULL,
		title          TEXT NOT NULL,
		copyright      TEXT NOT NULL,
		copyright_link TEXT NOT NULL,
		quiz_link      TEXT NOT NULL,
		image_url      TEXT NOT NULL,
		saved_path     TEXT NOT NULL DEFAULT '',
		fetched_at     INTEGER NOT NULL,
		PRIMARY KEY (date_key, market)
	);
	CREATE INDEX IF NOT EXISTS idx_images_fetched_at ON images(fetched_at);
	`
	_, err := d.db.Exec(query)
	return err
}

// Record inserts e or refreshes the row for the same date and market. A saved
// path that is already known is kept when e has none.
func (d *Database) Record(e Entry) error {
	if e.FetchedAt.IsZero() {
		e.FetchedAt = time.Now()
	}

	const stmt = `
		INSERT INTO images (
			date_key,
			market,
			title,
			copyright,
			copyright_link,
			quiz_link,
			image_url,
			saved_path,
			fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date_key, market) DO UPDATE SET
			title          = excluded.title,
			copyright      = excluded.copyright,
			copyright_link = excluded.copyright_link,
			quiz_link      = excluded.quiz_link,
			image_url      = excluded.image_url,
			saved_path     = CASE WHEN excluded.saved_path = '' THEN images.saved_path ELSE excluded.saved_path END,
			fetched_at     = excluded.fetched_at
	`

	_, err := d.db.Exec(
		stmt,
		e.DateKey,
		e.Market,
		e.Title,
		e.Copyright,
		e.CopyrightLink,
		e.QuizLink,
		e.ImageURL,
		e.SavedPath,
		e.FetchedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record image: %w", err)
	}
	return nil
}

// MarkSaved remembers where the image for dateKey and market was written.
func (d *Database) MarkSaved(dateKey, market, path string) error {
	_, err := d.db.Exec(
		`UPDATE images SET saved_path = ? WHERE date_key = ? AND market = ?`,
		path, dateKey, market)
	if err != nil {
		return fmt.Errorf("failed to mark image saved: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (d *Database) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT date_key, market, title, copyright, copyright_link,
		       quiz_link, image_url, saved_path, fetched_at
		FROM images
		ORDER BY fetched_at DESC, date_key DESC
		LIMIT ?
	`
	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fetched int64
		if err := rows.Scan(
			&e.DateKey,
			&e.Market,
			&e.Title,
			&e.Copyright,
			&e.CopyrightLink,
			&e.QuizLink,
			&e.ImageURL,
			&e.SavedPath,
			&fetched,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.FetchedAt = time.Unix(fetched, 0)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}
