package mediastore

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/audioquery/internal/shared"
)

// ContentStore is the queryable media index.
//
// Selections and sort orders are SQL fragments over the collection's columns; args bind
// positionally to the '?' placeholders of the selection.
type ContentStore interface {
	Query(ctx context.Context, uri string, projection []string, selection string, args []any, sortOrder string) (*Cursor, error)
	Insert(ctx context.Context, uri string, values Values) (string, error)
	Update(ctx context.Context, uri string, values Values, selection string, args []any) (int64, error)
	Delete(ctx context.Context, uri string, selection string, args []any) (int64, error)
	MoveMember(ctx context.Context, playlistID string, from, to int) (bool, error)
	NotifyChange(uri string)
}

// ThumbnailResolver produces artwork for a track URI scaled to fit size.
type ThumbnailResolver interface {
	LoadThumbnail(ctx context.Context, uri string, size image.Point) (image.Image, error)
}

// Store is a [ContentStore] that can also resolve thumbnails.
type Store interface {
	ContentStore
	ThumbnailResolver
}

// Values maps column names to values for inserts and updates.
type Values map[string]any

// Observer is told the URI of every change notification.
type Observer func(uri string)

// SQLiteStore implements [Store] on the media schema created by the migrations in package shared.
type SQLiteStore struct {
	db *sql.DB

	mu        sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewSQLiteStore wraps an open, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, observers: make(map[int]Observer)}
}

// Open opens the configured database, runs migrations and returns a store over it.
func Open(c shared.DatabaseConfig) (*SQLiteStore, error) {
	db, err := shared.OpenDatabase(c)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// DB exposes the underlying connection pool.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

var (
	identPattern      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	projectionPattern = regexp.MustCompile(`^(?i:distinct\s+)?[A-Za-z_][A-Za-z0-9_]*$|^(?i:count)\(\*\)$`)
)

func projectionSQL(projection []string) (string, error) {
	if len(projection) == 0 {
		return "*", nil
	}
	for _, col := range projection {
		if !projectionPattern.MatchString(col) {
			return "", fmt.Errorf("%w: %q", ErrInvalidColumn, col)
		}
	}
	return strings.Join(projection, ", "), nil
}

// whereClause joins the URI's implicit predicate with the caller's selection.
func whereClause(t target, selection string, args []any) (string, []any) {
	where, all := t.where()
	if selection = strings.TrimSpace(selection); selection != "" {
		if where != "" {
			where += " AND (" + selection + ")"
		} else {
			where = selection
		}
		all = append(all, args...)
	}
	return where, all
}

// Query runs a SELECT against the collection addressed by uri.
func (s *SQLiteStore) Query(ctx context.Context, uri string, projection []string, selection string, args []any, sortOrder string) (*Cursor, error) {
	t, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	cols, err := projectionSQL(projection)
	if err != nil {
		return nil, err
	}

	where, all := whereClause(t, selection, args)
	query := "SELECT " + cols + " FROM " + tables[t.coll].read
	if where != "" {
		query += " WHERE " + where
	}
	if sortOrder == "" && t.coll == collMembers {
		sortOrder = "play_order"
	}
	if sortOrder != "" {
		query += " ORDER BY " + sortOrder
	}

	rows, err := s.db.QueryContext(ctx, query, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", uri, err)
	}
	return newCursor(rows)
}

func writeTable(t target) (string, error) {
	table := tables[t.coll].write
	if table == "" {
		return "", fmt.Errorf("%w: %s", ErrReadOnly, t.uri())
	}
	return table, nil
}

func sortedColumns(values Values) ([]string, error) {
	cols := make([]string, 0, len(values))
	for col := range values {
		if !identPattern.MatchString(col) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols, nil
}

// Insert adds one row to the collection addressed by uri and returns the new item's URI.
func (s *SQLiteStore) Insert(ctx context.Context, uri string, values Values) (string, error) {
	t, err := parseURI(uri)
	if err != nil {
		return "", err
	}
	if t.id != "" {
		return "", fmt.Errorf("%w: cannot insert into item %s", ErrUnknownURI, uri)
	}
	table, err := writeTable(t)
	if err != nil {
		return "", err
	}

	row := make(Values, len(values)+1)
	for k, v := range values {
		row[k] = v
	}
	if t.coll == collMembers {
		row["playlist_id"] = t.playlistID
	}

	cols, err := sortedColumns(row)
	if err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("%w: no values to insert", shared.ErrInvalidInput)
	}

	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = row[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders(len(cols)))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", uri, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read inserted id: %w", err)
	}

	t.id = strconv.FormatInt(id, 10)
	return t.uri(), nil
}

// Update sets values on every row matched by uri and selection and returns the number of rows changed.
func (s *SQLiteStore) Update(ctx context.Context, uri string, values Values, selection string, args []any) (int64, error) {
	t, err := parseURI(uri)
	if err != nil {
		return 0, err
	}
	table, err := writeTable(t)
	if err != nil {
		return 0, err
	}
	cols, err := sortedColumns(values)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, nil
	}

	sets := make([]string, len(cols))
	setArgs := make([]any, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
		setArgs[i] = values[col]
	}

	where, whereArgs := whereClause(t, selection, args)
	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ")
	if where != "" {
		query += " WHERE " + where
	}

	res, err := s.db.ExecContext(ctx, query, append(setArgs, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", uri, err)
	}
	return res.RowsAffected()
}

// Delete removes every row matched by uri and selection and returns the number of rows removed.
//
// Deleting playlists removes their members; deleting members renumbers the remaining play_order values.
func (s *SQLiteStore) Delete(ctx context.Context, uri string, selection string, args []any) (int64, error) {
	t, err := parseURI(uri)
	if err != nil {
		return 0, err
	}
	table, err := writeTable(t)
	if err != nil {
		return 0, err
	}
	where, all := whereClause(t, selection, args)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	if t.coll == collPlaylists {
		members := "DELETE FROM playlist_members WHERE playlist_id IN (SELECT _id FROM playlists"
		if where != "" {
			members += " WHERE " + where
		}
		if _, err := tx.ExecContext(ctx, members+")", all...); err != nil {
			return 0, fmt.Errorf("failed to delete playlist members: %w", err)
		}
	}

	query := "DELETE FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	res, err := tx.ExecContext(ctx, query, all...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", uri, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if t.coll == collMembers && n > 0 {
		if err := renumber(ctx, tx, t.playlistID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit delete: %w", err)
	}
	return n, nil
}

// MoveMember moves the member at position from to position to, both zero-based in play order.
//
// It reports false when either position is outside the playlist.
func (s *SQLiteStore) MoveMember(ctx context.Context, playlistID string, from, to int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin move: %w", err)
	}
	defer tx.Rollback()

	ids, err := memberIDs(ctx, tx, playlistID)
	if err != nil {
		return false, err
	}
	if from < 0 || to < 0 || from >= len(ids) || to >= len(ids) {
		return false, nil
	}

	moved := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]int64{moved}, ids[to:]...)...)

	if err := writeOrder(ctx, tx, ids); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit move: %w", err)
	}
	return true, nil
}

func memberIDs(ctx context.Context, tx *sql.Tx, playlistID string) ([]int64, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT _id FROM playlist_members WHERE playlist_id = ? ORDER BY play_order, _id", playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist members: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func writeOrder(ctx context.Context, tx *sql.Tx, ids []int64) error {
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, "UPDATE playlist_members SET play_order = ? WHERE _id = ?", i+1, id); err != nil {
			return fmt.Errorf("failed to update play order: %w", err)
		}
	}
	return nil
}

func renumber(ctx context.Context, tx *sql.Tx, playlistID string) error {
	ids, err := memberIDs(ctx, tx, playlistID)
	if err != nil {
		return err
	}
	return writeOrder(ctx, tx, ids)
}

// RegisterObserver adds fn to the change observers and returns a function removing it.
func (s *SQLiteStore) RegisterObserver(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// NotifyChange calls every registered observer with uri.
func (s *SQLiteStore) NotifyChange(uri string) {
	s.mu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(uri)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
