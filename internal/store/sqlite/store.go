// Package sqlite stores wiki documents as JSON rows in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mwiki/internal/content"
	"mwiki/internal/store"
)

type Options struct {
	BusyTimeout time.Duration
	LockTimeout time.Duration
}

type Store struct {
	db          *sql.DB
	lockTimeout time.Duration
}

var _ store.Store = (*Store)(nil)

func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	dsn := path
	if opts.BusyTimeout > 0 {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, opts.BusyTimeout.Milliseconds())
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, lockTimeout: opts.LockTimeout}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite store: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.execContext(ctx, schemaSQL); err != nil {
		return err
	}
	version, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != schemaVersion {
		return s.setSchemaVersion(ctx, schemaVersion)
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.queryRowScan(ctx, []any{&v}, "SELECT version FROM schema_version LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, v int) error {
	if _, err := s.execContext(ctx, "DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := s.execContext(ctx, "INSERT INTO schema_version(version) VALUES(?)", v)
	return err
}

func (s *Store) Count(ctx context.Context, filter store.Filter) (int64, error) {
	where, args := compileFilter(filter)
	var n int64
	if err := s.queryRowScan(ctx, []any{&n}, "SELECT COUNT(*) FROM pages"+where, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) FindOne(ctx context.Context, filter store.Filter) (*store.Document, error) {
	where, args := compileFilter(filter)
	var id, raw string
	err := s.queryRowScan(ctx, []any{&id, &raw}, "SELECT id, doc FROM pages"+where+" ORDER BY rowid LIMIT 1", args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	doc, err := decodeDocument(id, raw)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Store) Find(ctx context.Context, filter store.Filter) ([]store.Document, error) {
	where, args := compileFilter(filter)
	rows, err := s.queryContext(ctx, "SELECT id, doc FROM pages"+where+" ORDER BY rowid", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

const upsertSQL = `INSERT INTO pages(id, url, doc) VALUES(?, ?, ?)
ON CONFLICT(url) DO UPDATE SET doc = json_set(excluded.doc,
	'$.id', pages.id,
	'$.created_at', json_extract(pages.doc, '$.created_at'))`

func (s *Store) Upsert(ctx context.Context, doc store.Document) error {
	if doc.URL == "" {
		return errors.New("upsert: empty url")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Meta == nil {
		doc.Meta = content.NewMeta()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.URL, err)
	}
	_, err = s.execContext(ctx, upsertSQL, doc.ID, doc.URL, string(raw))
	return err
}

func (s *Store) SetURL(ctx context.Context, oldURL, newURL string) (int64, error) {
	res, err := s.execContext(ctx,
		"UPDATE pages SET url = ?, doc = json_set(doc, '$.url', ?) WHERE url = ?",
		newURL, newURL, oldURL)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("set url %s: %q already taken: %w", oldURL, newURL, err)
		}
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) DeleteOne(ctx context.Context, filter store.Filter) (int64, error) {
	where, args := compileFilter(filter)
	res, err := s.execContext(ctx,
		"DELETE FROM pages WHERE rowid = (SELECT rowid FROM pages"+where+" ORDER BY rowid LIMIT 1)",
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func decodeDocument(id, raw string) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return store.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	doc.ID = id
	if doc.Meta == nil {
		doc.Meta = content.NewMeta()
	}
	return doc, nil
}

// compileFilter returns a WHERE clause (with leading space) and its arguments.
func compileFilter(filter store.Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter)*2)
	for _, cond := range filter {
		expr, exprArgs := fieldExpr(cond)
		switch cond.Op {
		case store.Regex:
			pattern := cond.Value
			if cond.IgnoreCase {
				pattern = "(?i)" + pattern
			}
			clauses = append(clauses, "regexp(?, "+expr+")")
			args = append(args, pattern)
			args = append(args, exprArgs...)
		default:
			clauses = append(clauses, expr+" = ?")
			args = append(args, exprArgs...)
			args = append(args, cond.Value)
		}
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func fieldExpr(cond store.Cond) (string, []any) {
	switch cond.Field {
	case "url", "id":
		return cond.Field, nil
	}
	return "json_extract(doc, ?)", []any{jsonPath(cond.Path())}
}

func jsonPath(segments []string) string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range segments {
		b.WriteString(`."`)
		b.WriteString(strings.ReplaceAll(seg, `"`, ""))
		b.WriteByte('"')
	}
	return b.String()
}
