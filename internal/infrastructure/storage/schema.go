package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Dialect selects SQL details that differ between the supported engines.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Fixed width so that lexicographic order matches chronological order in SQLite TEXT columns.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

func (d Dialect) timestampType() string {
	if d == DialectPostgres {
		return "TIMESTAMPTZ"
	}
	return "TEXT"
}

func (d Dialect) schema() []string {
	ts := d.timestampType()
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS articles (
			id           TEXT PRIMARY KEY,
			topic        TEXT NOT NULL,
			title        TEXT NOT NULL,
			link         TEXT NOT NULL,
			source       TEXT NOT NULL DEFAULT '',
			image_url    TEXT NOT NULL DEFAULT '',
			content      TEXT NOT NULL DEFAULT '',
			published_at %[1]s NOT NULL,
			status       TEXT NOT NULL,
			summary      TEXT,
			error_reason TEXT,
			fetched_at   %[1]s NOT NULL,
			updated_at   %[1]s NOT NULL
		)`, ts),
		`CREATE INDEX IF NOT EXISTS idx_articles_status ON articles(status)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC)`,
		`CREATE TABLE IF NOT EXISTS topic_articles (
			topic      TEXT NOT NULL,
			article_id TEXT NOT NULL,
			PRIMARY KEY (topic, article_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_topic_articles_article ON topic_articles(article_id)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS topic_fetches (
			topic           TEXT PRIMARY KEY,
			last_fetched_at %s NOT NULL
		)`, ts),
	}
}

// Migrate creates the tables and indexes if they do not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storeErr("migrate", err)
		}
	}
	return nil
}

// timestamp scans the timestamp representations produced by both drivers.
type timestamp struct {
	time.Time
}

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(value string) error {
	layouts := []string{
		sqliteTimeLayout,
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparsable timestamp %q", value)
}

var _ sql.Scanner = (*timestamp)(nil)
