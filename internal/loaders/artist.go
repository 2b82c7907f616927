package loaders

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/tasks"
)

var artistProjection = []string{"_id", "artist", "number_of_tracks", "number_of_albums"}

// ArtistLoader queries artists.
type ArtistLoader struct {
	base
}

func NewArtistLoader(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger) *ArtistLoader {
	return &ArtistLoader{base: newBase(ctx, store, ex, logger, "artist")}
}

func artistSortOrder(t models.ArtistSortType) string {
	switch t {
	case models.ArtistSortMoreAlbumsFirst:
		return "number_of_albums DESC"
	case models.ArtistSortLessAlbumsFirst:
		return "number_of_albums ASC"
	case models.ArtistSortMoreTracksFirst:
		return "number_of_tracks DESC"
	case models.ArtistSortLessTracksFirst:
		return "number_of_tracks ASC"
	default:
		return "artist_key"
	}
}

// GetArtists replies with every artist.
func (l *ArtistLoader) GetArtists(reply models.Reply, sort models.ArtistSortType) {
	l.run(reply, models.QuerySpec{SortOrder: artistSortOrder(sort)})
}

// GetArtistsByID replies with the artists whose ids are listed.
func (l *ArtistLoader) GetArtistsByID(reply models.Reply, ids []string, sort models.ArtistSortType) {
	if len(ids) == 0 {
		reply.Error(models.CodeNoArtistIDs, "No Ids was provided", nil)
		return
	}
	l.run(reply, idsSpec(ids, sort == models.ArtistSortCurrentIDsOrder, artistSortOrder(sort)))
}

// SearchArtistsByName replies with the artists whose name starts with query.
func (l *ArtistLoader) SearchArtistsByName(reply models.Reply, query string, sort models.ArtistSortType) {
	l.run(reply, models.QuerySpec{Selection: "artist LIKE ?", Args: []any{prefix(query)}, SortOrder: artistSortOrder(sort)})
}

// GetArtistsFromGenre replies with the artists having at least one track in genre.
func (l *ArtistLoader) GetArtistsFromGenre(reply models.Reply, genre string, sort models.ArtistSortType) {
	l.run(reply, models.QuerySpec{Args: []any{genre}, SortOrder: artistSortOrder(sort), Type: models.QueryByGenre})
}

func (l *ArtistLoader) run(reply models.Reply, spec models.QuerySpec) {
	l.runList(reply, models.CodeArtistReadError, spec, l.load)
}

func (l *ArtistLoader) load(spec models.QuerySpec) ([]models.Record, error) {
	if spec.Type == models.QueryByGenre {
		ids, err := l.distinct("artist_id", "genre_name = ?", spec.Args...)
		if err != nil {
			return nil, err
		}
		var ok bool
		if spec, ok = resolveIDs(spec, ids); !ok {
			return []models.Record{}, nil
		}
	}

	cur, err := l.store.Query(l.ctx, mediastore.ArtistsURI, artistProjection, spec.Selection, spec.Args, spec.SortOrder)
	if err != nil {
		return nil, err
	}
	return l.readRows(cur, func(cur *mediastore.Cursor) (models.Record, error) {
		rec, err := columns(cur, artistProjection)
		if err != nil {
			return nil, err
		}
		name, _ := rec["artist"].(string)
		rec[models.FieldArtistCover] = l.cover(name)
		return rec, nil
	}), nil
}

// cover returns the first artwork path among the artist's albums, or nil.
func (l *ArtistLoader) cover(artist string) any {
	cur, err := l.store.Query(l.ctx, mediastore.AlbumsURI, []string{"album_art"}, "artist = ?", []any{artist}, "")
	if err != nil {
		l.logger.Error("failed to look up artist cover", "artist", artist, "error", err)
		return nil
	}
	defer cur.Close()

	for cur.Next() {
		if v, err := cur.ValueAt(0); err == nil && v != nil {
			return v
		}
	}
	return nil
}
