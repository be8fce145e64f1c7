package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
)

const articleColumns = "id, topic, title, link, source, image_url, content, published_at, status, summary, fetched_at, updated_at"

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLStore persists articles, summaries and topic fetch records in SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ArticleStore = (*SQLStore)(nil)

// NewSQLStore wires an already opened sql.DB implementation.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	sb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == DialectPostgres {
		sb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SQLStore{db: db, dialect: dialect, sb: sb, now: time.Now}
}

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)

	switch Dialect(driver) {
	case DialectSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		db, err = sql.Open("sqlite", withPragmas(dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One connection serializes every status transition.
		db.SetMaxOpenConns(1)
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storeErr("ping", err)
	}

	store := NewSQLStore(db, Dialect(driver))
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertArticles inserts unseen drafts as pending and links every draft to the topic.
func (s *SQLStore) UpsertArticles(ctx context.Context, topic string, drafts []domain.ArticleDraft) ([]string, error) {
	var inserted []string
	err := s.inTx(ctx, "upsert articles", func(tx *sql.Tx) error {
		var err error
		inserted, err = s.upsertTx(ctx, tx, topic, drafts)
		return err
	})
	return inserted, err
}

// SaveFetch stores the drafts and marks the topic fetched within one transaction.
func (s *SQLStore) SaveFetch(ctx context.Context, topic string, drafts []domain.ArticleDraft, at time.Time) ([]string, error) {
	var inserted []string
	err := s.inTx(ctx, "save fetch", func(tx *sql.Tx) error {
		var err error
		inserted, err = s.upsertTx(ctx, tx, topic, drafts)
		if err != nil {
			return err
		}
		return s.markFetched(ctx, tx, topic, at)
	})
	return inserted, err
}

func (s *SQLStore) upsertTx(ctx context.Context, tx *sql.Tx, topic string, drafts []domain.ArticleDraft) ([]string, error) {
	now := s.now()
	inserted := make([]string, 0, len(drafts))

	for _, draft := range drafts {
		id := draft.Identity()

		query, args, err := s.sb.Insert("articles").
			Columns("id", "topic", "title", "link", "source", "image_url", "content",
				"published_at", "status", "fetched_at", "updated_at").
			Values(id, topic, draft.Title, draft.Link, draft.Source, draft.ImageURL, draft.Snippet,
				s.ts(draft.PublishedAt), string(domain.StatusPending), s.ts(now), s.ts(now)).
			Suffix("ON CONFLICT (id) DO NOTHING").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert article: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("insert article %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted = append(inserted, id)
		}

		query, args, err = s.sb.Insert("topic_articles").
			Columns("topic", "article_id").
			Values(topic, id).
			Suffix("ON CONFLICT (topic, article_id) DO NOTHING").
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build link article: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("link article %s: %w", id, err)
		}
	}

	return inserted, nil
}

// ArticlesByTopic returns the topic's articles, most recently published first.
func (s *SQLStore) ArticlesByTopic(ctx context.Context, topic string, limit int) ([]domain.Article, error) {
	q := s.sb.Select(prefixed("a", articleColumns)).
		From("articles a").
		Join("topic_articles ta ON ta.article_id = a.id").
		Where(sq.Eq{"ta.topic": topic}).
		OrderBy("a.published_at DESC", "a.id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build articles by topic: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("query articles by topic", err)
	}

	articles := make([]domain.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			_ = rows.Close()
			return nil, storeErr("scan article", err)
		}
		articles = append(articles, article)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, storeErr("rows iteration", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, storeErr("close rows", closeErr)
	}

	return articles, nil
}

// ArticleByID loads a single article.
func (s *SQLStore) ArticleByID(ctx context.Context, id string) (domain.Article, error) {
	query, args, err := s.sb.Select(articleColumns).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Article{}, fmt.Errorf("build article by id: %w", err)
	}

	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("article %s: %w", id, domain.ErrArticleNotFound)
	}
	if err != nil {
		return domain.Article{}, storeErr("query article", err)
	}
	return article, nil
}

// ClaimNextPending moves one pending article to in_progress and returns it.
func (s *SQLStore) ClaimNextPending(ctx context.Context) (domain.Article, bool, error) {
	query, args, err := s.claimNextPendingSQL(s.now())
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("build claim: %w", err)
	}

	return s.claim(ctx, "claim next pending", query, args)
}

// claimNextPendingSQL selects the newest pending row and flips it in one statement.
// Postgres skips rows another transaction already locked.
func (s *SQLStore) claimNextPendingSQL(at time.Time) (string, []any, error) {
	sub := "SELECT id FROM articles WHERE status = ? ORDER BY published_at DESC, id LIMIT 1"
	if s.dialect == DialectPostgres {
		sub += " FOR UPDATE SKIP LOCKED"
	}

	return s.sb.Update("articles").
		Set("status", string(domain.StatusInProgress)).
		Set("updated_at", s.ts(at)).
		Where("id = ("+sub+")", string(domain.StatusPending)).
		Where(sq.Eq{"status": string(domain.StatusPending)}).
		Suffix("RETURNING " + articleColumns).
		ToSql()
}

// ClaimArticle claims a specific article if it is still pending.
func (s *SQLStore) ClaimArticle(ctx context.Context, id string) (domain.Article, bool, error) {
	query, args, err := s.sb.Update("articles").
		Set("status", string(domain.StatusInProgress)).
		Set("updated_at", s.ts(s.now())).
		Where(sq.Eq{"id": id, "status": string(domain.StatusPending)}).
		Suffix("RETURNING " + articleColumns).
		ToSql()
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("build claim: %w", err)
	}

	return s.claim(ctx, "claim article", query, args)
}

func (s *SQLStore) claim(ctx context.Context, op, query string, args []any) (domain.Article, bool, error) {
	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, false, nil
	}
	if err != nil {
		return domain.Article{}, false, storeErr(op, err)
	}
	return article, true, nil
}

// CompleteArticle stores the summary of an in-progress article and marks it done.
func (s *SQLStore) CompleteArticle(ctx context.Context, id, summary string) error {
	return s.transition(ctx, "complete article", id, domain.StatusInProgress, map[string]any{
		"status":       string(domain.StatusDone),
		"summary":      summary,
		"error_reason": nil,
	})
}

// FailArticle marks an in-progress article as failed.
func (s *SQLStore) FailArticle(ctx context.Context, id, reason string) error {
	return s.transition(ctx, "fail article", id, domain.StatusInProgress, map[string]any{
		"status":       string(domain.StatusError),
		"summary":      nil,
		"error_reason": reason,
	})
}

// RetryArticle moves a failed article back to pending.
func (s *SQLStore) RetryArticle(ctx context.Context, id string) error {
	return s.transition(ctx, "retry article", id, domain.StatusError, map[string]any{
		"status":       string(domain.StatusPending),
		"error_reason": nil,
	})
}

func (s *SQLStore) transition(ctx context.Context, op, id string, from domain.Status, set map[string]any) error {
	set["updated_at"] = s.ts(s.now())

	query, args, err := s.sb.Update("articles").
		SetMap(set).
		Where(sq.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n > 0 {
		return nil
	}

	current, err := s.ArticleByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%s %s: status is %s, want %s: %w", op, id, current.Status, from, domain.ErrInvalidTransition)
}

// ResetStuckInProgress returns every in_progress article to pending.
func (s *SQLStore) ResetStuckInProgress(ctx context.Context) (int64, error) {
	return s.bulkStatus(ctx, "reset in progress", domain.StatusInProgress, domain.StatusPending)
}

// RetryAllFailed returns every failed article to pending.
func (s *SQLStore) RetryAllFailed(ctx context.Context) (int64, error) {
	return s.bulkStatus(ctx, "retry failed", domain.StatusError, domain.StatusPending)
}

func (s *SQLStore) bulkStatus(ctx context.Context, op string, from, to domain.Status) (int64, error) {
	query, args, err := s.sb.Update("articles").
		Set("status", string(to)).
		Set("error_reason", nil).
		Set("updated_at", s.ts(s.now())).
		Where(sq.Eq{"status": string(from)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(op, err)
	}
	return n, nil
}

// LastFetched reports when the topic was last fetched successfully.
func (s *SQLStore) LastFetched(ctx context.Context, topic string) (time.Time, bool, error) {
	query, args, err := s.sb.Select("last_fetched_at").From("topic_fetches").Where(sq.Eq{"topic": topic}).ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build last fetched: %w", err)
	}

	var at timestamp
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, storeErr("query last fetched", err)
	}
	return at.Time, true, nil
}

// MarkFetched records a successful fetch of the topic.
func (s *SQLStore) MarkFetched(ctx context.Context, topic string, at time.Time) error {
	if err := s.markFetched(ctx, s.db, topic, at); err != nil {
		return storeErr("mark fetched", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) markFetched(ctx context.Context, db execer, topic string, at time.Time) error {
	query, args, err := s.sb.Insert("topic_fetches").
		Columns("topic", "last_fetched_at").
		Values(topic, s.ts(at)).
		Suffix("ON CONFLICT (topic) DO UPDATE SET last_fetched_at = excluded.last_fetched_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark fetched: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark fetched %s: %w", topic, err)
	}
	return nil
}

// CountByStatus returns the number of articles per status.
func (s *SQLStore) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	counts := map[domain.Status]int{}
	err := s.groupCount(ctx, "count by status",
		s.sb.Select("status", "COUNT(*)").From("articles").GroupBy("status"),
		func(key string, n int) { counts[domain.Status(key)] = n })
	return counts, err
}

// CountByTopic returns the number of articles linked to each topic.
func (s *SQLStore) CountByTopic(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{}
	err := s.groupCount(ctx, "count by topic",
		s.sb.Select("topic", "COUNT(*)").From("topic_articles").GroupBy("topic"),
		func(key string, n int) { counts[key] = n })
	return counts, err
}

func (s *SQLStore) groupCount(ctx context.Context, op string, q sq.SelectBuilder, add func(string, int)) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return storeErr(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return storeErr(op, err)
		}
		add(key, n)
	}
	if err := rows.Err(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// Prune deletes articles published before olderThan. In-flight articles are kept.
func (s *SQLStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	links, articles, err := s.pruneSQL(olderThan)
	if err != nil {
		return 0, err
	}

	var deleted int64
	err = s.inTx(ctx, "prune", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, links.query, links.args...); err != nil {
			return fmt.Errorf("prune links: %w", err)
		}
		res, err := tx.ExecContext(ctx, articles.query, articles.args...)
		if err != nil {
			return fmt.Errorf("prune articles: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

type statement struct {
	query string
	args  []any
}

// pruneSQL builds the topic link cleanup and the article delete for one cutoff.
func (s *SQLStore) pruneSQL(olderThan time.Time) (links, articles statement, err error) {
	old := sq.And{
		sq.Lt{"published_at": s.ts(olderThan)},
		sq.NotEq{"status": string(domain.StatusInProgress)},
	}

	// Built with '?' placeholders; the outer statement renumbers them.
	sub, subArgs, err := sq.Select("id").From("articles").Where(old).ToSql()
	if err != nil {
		return links, articles, fmt.Errorf("build prune select: %w", err)
	}
	links.query, links.args, err = s.sb.Delete("topic_articles").
		Where("article_id IN ("+sub+")", subArgs...).
		ToSql()
	if err != nil {
		return links, articles, fmt.Errorf("build prune links: %w", err)
	}

	articles.query, articles.args, err = s.sb.Delete("articles").Where(old).ToSql()
	if err != nil {
		return links, articles, fmt.Errorf("build prune articles: %w", err)
	}
	return links, articles, nil
}

func (s *SQLStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return storeErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// ts converts a time into the representation stored by the dialect.
func (s *SQLStore) ts(t time.Time) any {
	if s.dialect == DialectPostgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a         domain.Article
		status    string
		summary   sql.NullString
		published timestamp
		fetched   timestamp
		updated   timestamp
	)
	err := row.Scan(&a.ID, &a.Topic, &a.Title, &a.Link, &a.Source, &a.ImageURL, &a.Content,
		&published, &status, &summary, &fetched, &updated)
	if err != nil {
		return domain.Article{}, err
	}

	a.Status = domain.Status(status)
	if !a.Status.Valid() {
		return domain.Article{}, fmt.Errorf("article %s has unknown status %q", a.ID, status)
	}
	a.Summary = summary.String
	a.PublishedAt = published.Time
	a.FetchedAt = fetched.Time
	a.UpdatedAt = updated.Time
	return a, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

func withPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating database dir: %w", err)
	}
	return nil
}
