package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"digestbot/content"
	"digestbot/migrations"
	"digestbot/types"
)

// Fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const table = "library_items"

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var metaColumns = []string{
	"id", "user_id", "title", "slug", "original_url", "item_type", "state", "folder",
	"labels", "author", "description", "site_name",
}

var contentColumns = []string{
	"readable_content", "original_content", "text_content", "markdown",
}

var trailingColumns = []string{
	"word_count", "reading_progress", "published_at", "saved_at", "created_at", "updated_at", "archived_at",
}

// SQLite implements Store backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Search returns the user's items matching opts.Query.
func (s *SQLite) Search(ctx context.Context, userID string, opts types.SearchOptions) ([]types.LibraryItem, error) {
	q, err := ParseQuery(opts.Query, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	b := builder.Select(selectColumns(opts.IncludeContent)...).
		From(table).
		Where(sq.Eq{"user_id": userID})

	if !opts.IncludePending {
		b = b.Where(sq.NotEq{"state": string(types.StateProcessing)})
	}
	if !opts.IncludeDeleted {
		b = b.Where(sq.NotEq{"state": string(types.StateDeleted)})
	}

	switch q.In {
	case "inbox":
		b = b.Where(sq.Eq{"archived_at": nil})
		if opts.UseFolders {
			b = b.Where(sq.Eq{"folder": types.FolderInbox})
		}
	case "archive":
		b = b.Where(sq.NotEq{"archived_at": nil})
	case "following":
		b = b.Where(sq.Eq{"folder": types.FolderFollowing})
	case "all":
	default:
		if opts.UseFolders {
			b = b.Where(sq.Eq{"folder": types.FolderInbox})
		}
	}

	switch q.Read {
	case "read":
		b = b.Where(sq.GtOrEq{"reading_progress": readThreshold})
	case "unread":
		b = b.Where(sq.Lt{"reading_progress": readThreshold})
	}

	for _, label := range q.Labels {
		b = b.Where(likeEscaped("labels", "%,"+escapeLike(normalizeLabel(label))+",%"))
	}
	if len(q.Types) > 0 {
		b = b.Where(sq.Eq{"item_type": q.Types})
	}
	if q.SavedFrom != nil {
		b = b.Where(sq.GtOrEq{"saved_at": formatTime(*q.SavedFrom)})
	}
	if q.SavedTo != nil {
		b = b.Where(sq.Lt{"saved_at": formatTime(*q.SavedTo)})
	}

	for _, term := range q.Terms {
		pattern := "%" + escapeLike(term) + "%"
		b = b.Where(sq.Or{
			likeEscaped("title", pattern),
			likeEscaped("author", pattern),
			likeEscaped("description", pattern),
			likeEscaped("text_content", pattern),
		})
	}

	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	b = b.OrderBy(q.SortField+" "+dir, "rowid ASC")

	if opts.Limit > 0 {
		b = b.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			b = b.Limit(1<<63 - 1)
		}
		b = b.Offset(uint64(opts.Offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query library items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []types.LibraryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Upsert inserts item, or updates the existing row with the same user and
// original URL. The stored row is returned; its ID is the existing one on
// conflict.
func (s *SQLite) Upsert(ctx context.Context, item *types.LibraryItem) (*types.LibraryItem, error) {
	if item == nil {
		return nil, errors.New("nil library item")
	}
	if item.UserID == "" || item.OriginalURL == "" {
		return nil, errors.New("library item needs user id and original url")
	}

	stored := *item
	now := s.now().UTC()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.SavedAt.IsZero() {
		stored.SavedAt = now
	}
	if stored.ItemType == "" {
		stored.ItemType = types.PageTypeArticle
	}
	if stored.State == "" {
		stored.State = types.StateSucceeded
	}
	if stored.Folder == "" {
		stored.Folder = types.FolderInbox
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if stored.Slug != "" {
		slug, err := s.uniqueSlug(ctx, stored.UserID, stored.OriginalURL, stored.Slug)
		if err != nil {
			return nil, err
		}
		stored.Slug = slug
	}

	updates := []string{
		"title", "slug", "item_type", "state", "folder", "labels", "author", "description",
		"site_name", "readable_content", "original_content", "text_content", "markdown",
		"word_count", "published_at", "updated_at",
	}
	set := make([]string, len(updates))
	for i, col := range updates {
		set[i] = col + " = excluded." + col
	}

	query, args, err := builder.Insert(table).
		Columns(allColumns()...).
		Values(
			stored.ID, stored.UserID, stored.Title, stored.Slug, stored.OriginalURL,
			string(stored.ItemType), string(stored.State), stored.Folder,
			encodeLabels(stored.Labels), stored.Author, stored.Description, stored.SiteName,
			stored.ReadableContent, stored.OriginalContent, stored.TextContent, stored.Markdown,
			stored.WordCount, stored.ReadingProgress, formatTimePtr(stored.PublishedAt),
			formatTime(stored.SavedAt), formatTime(stored.CreatedAt), formatTime(stored.UpdatedAt),
			formatTimePtr(stored.ArchivedAt),
		).
		Suffix("ON CONFLICT (user_id, original_url) DO UPDATE SET " + strings.Join(set, ", ") + " RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert: %w", err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return nil, fmt.Errorf("upsert library item: %w", err)
	}

	return s.Get(ctx, stored.UserID, id)
}

// uniqueSlug returns slug, or slug with a "-N" suffix when another item of
// the same user already uses it. Re-saving an original URL keeps its slug.
func (s *SQLite) uniqueSlug(ctx context.Context, userID, originalURL, slug string) (string, error) {
	candidate := slug
	for n := 2; ; n++ {
		taken, err := s.slugTaken(ctx, userID, originalURL, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = withSuffix(slug, "-"+strconv.Itoa(n))
	}
}

func (s *SQLite) slugTaken(ctx context.Context, userID, originalURL, slug string) (bool, error) {
	query, args, err := builder.Select("1").
		From(table).
		Where(sq.Eq{"user_id": userID, "slug": slug}).
		Where(sq.NotEq{"original_url": originalURL}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build slug query: %w", err)
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check slug %q: %w", slug, err)
	}
	return true, nil
}

// withSuffix appends suffix, shortening slug so the result stays within
// content.MaxSlugLength.
func withSuffix(slug, suffix string) string {
	if len(slug)+len(suffix) > content.MaxSlugLength {
		slug = slug[:max(content.MaxSlugLength-len(suffix), 0)]
		for !utf8.ValidString(slug) {
			slug = slug[:len(slug)-1]
		}
		slug = strings.TrimRight(slug, "-")
	}
	return slug + suffix
}

// escapeLike makes LIKE treat %, _ and the escape character literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func likeEscaped(column, pattern string) sq.Sqlizer {
	return sq.Expr(column+` LIKE ? ESCAPE '\'`, pattern)
}

// Get returns a single item owned by userID.
func (s *SQLite) Get(ctx context.Context, userID, id string) (*types.LibraryItem, error) {
	query, args, err := builder.Select(allColumns()...).
		From(table).
		Where(sq.Eq{"user_id": userID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

func allColumns() []string {
	cols := append([]string{}, metaColumns...)
	cols = append(cols, contentColumns...)
	return append(cols, trailingColumns...)
}

func selectColumns(includeContent bool) []string {
	if includeContent {
		return allColumns()
	}
	cols := append([]string{}, metaColumns...)
	for _, c := range contentColumns {
		cols = append(cols, "'' AS "+c)
	}
	return append(cols, trailingColumns...)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*types.LibraryItem, error) {
	var (
		item                         types.LibraryItem
		itemType, state, labels      string
		savedAt, createdAt, updateAt string
		publishedAt, archivedAt      sql.NullString
	)
	err := row.Scan(
		&item.ID, &item.UserID, &item.Title, &item.Slug, &item.OriginalURL, &itemType, &state, &item.Folder,
		&labels, &item.Author, &item.Description, &item.SiteName,
		&item.ReadableContent, &item.OriginalContent, &item.TextContent, &item.Markdown,
		&item.WordCount, &item.ReadingProgress, &publishedAt, &savedAt, &createdAt, &updateAt, &archivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan library item: %w", err)
	}

	item.ItemType = types.PageType(itemType)
	item.State = types.ItemState(state)
	item.Labels = decodeLabels(labels)
	item.SavedAt, _ = time.Parse(timeLayout, savedAt)
	item.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	item.UpdatedAt, _ = time.Parse(timeLayout, updateAt)
	item.PublishedAt = parseTimePtr(publishedAt)
	item.ArchivedAt = parseTimePtr(archivedAt)
	return &item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func parseTimePtr(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}

// Labels are stored as ",a,b," so a single LIKE matches one whole label.
func encodeLabels(labels []string) string {
	var parts []string
	for _, l := range labels {
		if n := normalizeLabel(l); n != "" {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "," + strings.Join(parts, ",") + ","
}

func decodeLabels(raw string) []string {
	raw = strings.Trim(raw, ",")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func normalizeLabel(l string) string {
	return strings.TrimSpace(strings.ReplaceAll(l, ",", " "))
}
