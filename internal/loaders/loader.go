package loaders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/desertthunder/audioquery/internal/tasks"
)

// Loaders groups one loader per entity over a shared store and executor.
type Loaders struct {
	Artists   *ArtistLoader
	Albums    *AlbumLoader
	Songs     *SongLoader
	Genres    *GenreLoader
	Playlists *PlaylistLoader
	Images    *ImageLoader
}

// New builds every loader. ctx bounds all store calls made by the loaders.
func New(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger) *Loaders {
	return &Loaders{
		Artists:   NewArtistLoader(ctx, store, ex, logger),
		Albums:    NewAlbumLoader(ctx, store, ex, logger),
		Songs:     NewSongLoader(ctx, store, ex, logger),
		Genres:    NewGenreLoader(ctx, store, ex, logger),
		Playlists: NewPlaylistLoader(ctx, store, ex, logger),
		Images:    NewImageLoader(ctx, store, ex, logger),
	}
}

// base holds what every loader needs.
type base struct {
	ctx    context.Context
	store  mediastore.Store
	exec   tasks.Executor
	logger *log.Logger
}

func newBase(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger, name string) base {
	return base{ctx: ctx, store: store, exec: ex, logger: shared.WithLogger(logger, "loader", name)}
}

type listResult struct {
	records []models.Record
	err     error
}

// runList executes spec through load on the executor and replies with the records,
// or with code when load fails.
func (b *base) runList(reply models.Reply, code string, spec models.QuerySpec, load func(models.QuerySpec) ([]models.Record, error)) {
	tasks.NewLoadTask(spec, func(s models.QuerySpec) listResult {
		records, err := load(s)
		return listResult{records: records, err: err}
	}, func(r listResult) {
		if r.err != nil {
			b.logger.Error("query failed", "error", r.err)
			reply.Error(code, r.err.Error(), nil)
			return
		}
		reply.Success(r.records)
	}).Execute(b.exec)
}

// readRows converts every row of cur with read. Rows that fail are logged and skipped.
func (b *base) readRows(cur *mediastore.Cursor, read func(*mediastore.Cursor) (models.Record, error)) []models.Record {
	defer cur.Close()

	records := make([]models.Record, 0, cur.Count())
	for cur.Next() {
		rec, err := read(cur)
		if err != nil {
			b.logger.Error("skipping unreadable row", "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// distinct collects the non-null values of column over the audio rows matching selection.
func (b *base) distinct(column, selection string, args ...any) ([]string, error) {
	cur, err := b.store.Query(b.ctx, mediastore.AudioURI, []string{"DISTINCT " + column}, selection, args, "")
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var values []string
	for cur.Next() {
		v, err := cur.ValueAt(0)
		if err != nil {
			b.logger.Error("skipping unreadable row", "column", column, "error", err)
			continue
		}
		if v != nil {
			values = append(values, v.(string))
		}
	}
	return values, nil
}

// columns copies the named columns of the current row into a record.
func columns(cur *mediastore.Cursor, names []string) (models.Record, error) {
	rec := make(models.Record, len(names))
	for _, name := range names {
		v, err := cur.Value(name)
		if err != nil {
			return nil, err
		}
		rec[name] = v
	}
	return rec, nil
}

// idsSortOrder ranks rows in the order of ids, ties broken by ascending id.
//
// Integer ids are emitted as literals; anything else is quoted with embedded quotes doubled.
func idsSortOrder(ids []string) string {
	var b strings.Builder
	b.WriteString("CASE _id")
	for i, id := range ids {
		fmt.Fprintf(&b, " WHEN %s THEN %d", sqlLiteral(id), i)
	}
	b.WriteString(" END, _id ASC")
	return b.String()
}

func sqlLiteral(s string) string {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// inSelection builds "column IN(?,?,…)" for n values.
func inSelection(column string, n int) string {
	return column + " IN(" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}

// prefix turns a search query into a starts-with LIKE pattern.
func prefix(query string) string {
	return query + "%"
}

func anyArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// idsSpec selects the rows whose _id is in ids.
//
// One id uses equality and sortOrder. Several ids use an IN selection, ordered by the ids
// themselves when keepOrder is set and by sortOrder otherwise.
func idsSpec(ids []string, keepOrder bool, sortOrder string) models.QuerySpec {
	if len(ids) == 1 {
		return models.QuerySpec{Selection: "_id = ?", Args: []any{ids[0]}, SortOrder: sortOrder}
	}
	if keepOrder {
		sortOrder = idsSortOrder(ids)
	}
	return models.QuerySpec{Selection: inSelection("_id", len(ids)), Args: anyArgs(ids), SortOrder: sortOrder}
}

// resolveIDs replaces a two-phase spec's selection with an IN selection over ids.
// It reports false when there is nothing to select.
func resolveIDs(spec models.QuerySpec, ids []string) (models.QuerySpec, bool) {
	if len(ids) == 0 {
		return spec, false
	}
	if len(ids) == 1 {
		return models.QuerySpec{Selection: "_id = ?", Args: []any{ids[0]}, SortOrder: spec.SortOrder}, true
	}
	return models.QuerySpec{Selection: inSelection("_id", len(ids)), Args: anyArgs(ids), SortOrder: spec.SortOrder}, true
}
