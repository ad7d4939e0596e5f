package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/matheuskafuri/alccalc/internal/catalog"
	_ "modernc.org/sqlite"
)

// ErrStorage wraps every failure reading or writing persisted state.
var ErrStorage = errors.New("storage error")

// Store persists a parsed catalog in SQLite. Rows keep the feed position so
// reloading yields the original order. RankMetric is derived and not stored.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %v: %w", err, ErrStorage)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening catalog db: %v: %w", err, ErrStorage)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS articles (
			position     INTEGER PRIMARY KEY,
			article_id   TEXT NOT NULL,
			stock_number TEXT NOT NULL,
			name         TEXT NOT NULL,
			sub_name     TEXT NOT NULL DEFAULT '',
			price        REAL NOT NULL,
			volume_ml    REAL NOT NULL,
			alcohol      REAL NOT NULL,
			category     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %v: %w", err, ErrStorage)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveCatalog replaces the stored catalog with articles and records the
// modification time of the raw feed they were parsed from.
func (s *Store) SaveCatalog(articles catalog.Catalog, sourceModTime time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning catalog write: %v: %w", err, ErrStorage)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM articles`); err != nil {
		return fmt.Errorf("clearing catalog: %v: %w", err, ErrStorage)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO articles (position, article_id, stock_number, name, sub_name, price, volume_ml, alcohol, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %v: %w", err, ErrStorage)
	}
	defer stmt.Close()

	for i, a := range articles {
		_, err := stmt.Exec(i, a.ArticleID, a.StockNumber, a.Name, a.SubName, a.PriceIncludingTax, a.VolumeMilliliters, a.AlcoholPercent, a.CategoryCode)
		if err != nil {
			return fmt.Errorf("inserting article %s: %v: %w", a.ArticleID, err, ErrStorage)
		}
	}

	if err := setMeta(tx, "source_mtime", strconv.FormatInt(sourceModTime.UnixNano(), 10)); err != nil {
		return err
	}
	if err := setMeta(tx, "parsed_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog: %v: %w", err, ErrStorage)
	}
	return nil
}

func setMeta(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("writing meta %s: %v: %w", key, err, ErrStorage)
	}
	return nil
}

// LoadCatalog returns the stored catalog in feed order.
func (s *Store) LoadCatalog() (catalog.Catalog, error) {
	rows, err := s.db.Query(`
		SELECT article_id, stock_number, name, sub_name, price, volume_ml, alcohol, category
		FROM articles ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %v: %w", err, ErrStorage)
	}
	defer rows.Close()

	out := catalog.Catalog{}
	for rows.Next() {
		var a catalog.Article
		if err := rows.Scan(&a.ArticleID, &a.StockNumber, &a.Name, &a.SubName, &a.PriceIncludingTax, &a.VolumeMilliliters, &a.AlcoholPercent, &a.CategoryCode); err != nil {
			return nil, fmt.Errorf("scanning article: %v: %w", err, ErrStorage)
		}
		out = append(out, a.WithRank())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %v: %w", err, ErrStorage)
	}
	return out, nil
}

// SourceModTime reports the raw feed mtime the stored catalog was built
// from. ok is false when no catalog has been saved yet.
func (s *Store) SourceModTime() (t time.Time, ok bool, err error) {
	var value string
	err = s.db.QueryRow(`SELECT value FROM meta WHERE key = 'source_mtime'`).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading source mtime: %v: %w", err, ErrStorage)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// A corrupt marker means the catalog cannot be trusted; treat as absent.
		return time.Time{}, false, nil
	}
	return time.Unix(0, n), true, nil
}

// Stats returns the stored article count and the database file size.
func (s *Store) Stats(dbPath string) (count int, size int64, err error) {
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("counting articles: %v: %w", err, ErrStorage)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return count, 0, fmt.Errorf("stat %s: %v: %w", dbPath, err, ErrStorage)
	}
	return count, info.Size(), nil
}
