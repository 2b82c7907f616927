package loaders

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/tasks"
)

// GenreLoader lists genre names.
type GenreLoader struct {
	base
}

func NewGenreLoader(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger) *GenreLoader {
	return &GenreLoader{base: newBase(ctx, store, ex, logger, "genre")}
}

func genreSortOrder(models.GenreSortType) string {
	return "name ASC"
}

func (l *GenreLoader) GetGenres(reply models.Reply, sort models.GenreSortType) {
	l.run(reply, models.QuerySpec{SortOrder: genreSortOrder(sort)})
}

// SearchGenres replies with the genres whose name starts with query.
func (l *GenreLoader) SearchGenres(reply models.Reply, query string, sort models.GenreSortType) {
	l.run(reply, models.QuerySpec{Selection: "name LIKE ?", Args: []any{prefix(query)}, SortOrder: genreSortOrder(sort)})
}

func (l *GenreLoader) run(reply models.Reply, spec models.QuerySpec) {
	l.runList(reply, models.CodeGenreReadError, spec, l.load)
}

func (l *GenreLoader) load(spec models.QuerySpec) ([]models.Record, error) {
	cur, err := l.store.Query(l.ctx, mediastore.GenresURI, []string{"DISTINCT name"}, spec.Selection, spec.Args, spec.SortOrder)
	if err != nil {
		return nil, err
	}
	return l.readRows(cur, func(cur *mediastore.Cursor) (models.Record, error) {
		return columns(cur, []string{"name"})
	}), nil
}
