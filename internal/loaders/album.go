package loaders

import (
	"context"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/tasks"
)

var albumProjection = []string{"_id", "album", "album_art", "artist", "minyear", "maxyear", "numsongs"}

// AlbumLoader queries albums.
type AlbumLoader struct {
	base
}

func NewAlbumLoader(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger) *AlbumLoader {
	return &AlbumLoader{base: newBase(ctx, store, ex, logger, "album")}
}

func albumSortOrder(t models.AlbumSortType) string {
	switch t {
	case models.AlbumSortAlphabeticArtistName:
		return "artist"
	case models.AlbumSortMoreSongsFirst:
		return "numsongs DESC"
	case models.AlbumSortLessSongsFirst:
		return "numsongs ASC"
	case models.AlbumSortMostRecentYear:
		return "maxyear DESC"
	case models.AlbumSortOldestYear:
		return "maxyear ASC"
	default:
		return "album_key"
	}
}

func (l *AlbumLoader) GetAlbums(reply models.Reply, sort models.AlbumSortType) {
	l.run(reply, models.QuerySpec{SortOrder: albumSortOrder(sort)})
}

func (l *AlbumLoader) GetAlbumsByID(reply models.Reply, ids []string, sort models.AlbumSortType) {
	if len(ids) == 0 {
		reply.Error(models.CodeNoAlbumIDs, "No Ids was provided", nil)
		return
	}
	l.run(reply, idsSpec(ids, sort == models.AlbumSortCurrentIDsOrder, albumSortOrder(sort)))
}

// SearchAlbums replies with the albums whose title starts with query.
func (l *AlbumLoader) SearchAlbums(reply models.Reply, query string, sort models.AlbumSortType) {
	l.run(reply, models.QuerySpec{Selection: "album LIKE ?", Args: []any{prefix(query)}, SortOrder: albumSortOrder(sort)})
}

func (l *AlbumLoader) GetAlbumsFromGenre(reply models.Reply, genre string, sort models.AlbumSortType) {
	l.run(reply, models.QuerySpec{Args: []any{genre}, SortOrder: albumSortOrder(sort), Type: models.QueryByGenre})
}

// GetAlbumsFromArtist replies with the albums holding music by artist. Each record's artist is
// the requested name and numsongs counts only that artist's tracks.
func (l *AlbumLoader) GetAlbumsFromArtist(reply models.Reply, artist string, sort models.AlbumSortType) {
	l.run(reply, models.QuerySpec{Args: []any{artist}, SortOrder: albumSortOrder(sort), Type: models.QueryByArtist})
}

func (l *AlbumLoader) run(reply models.Reply, spec models.QuerySpec) {
	l.runList(reply, models.CodeAlbumReadError, spec, l.load)
}

func (l *AlbumLoader) load(spec models.QuerySpec) ([]models.Record, error) {
	var artist string
	switch spec.Type {
	case models.QueryByGenre, models.QueryByArtist:
		selection := "genre_name = ?"
		if spec.Type == models.QueryByArtist {
			selection = "artist = ? AND is_music = 1"
			artist, _ = spec.Args[0].(string)
		}
		ids, err := l.distinct("album_id", selection, spec.Args...)
		if err != nil {
			return nil, err
		}
		var ok bool
		if spec, ok = resolveIDs(spec, ids); !ok {
			return []models.Record{}, nil
		}
	}

	cur, err := l.store.Query(l.ctx, mediastore.AlbumsURI, albumProjection, spec.Selection, spec.Args, spec.SortOrder)
	if err != nil {
		return nil, err
	}
	return l.readRows(cur, func(cur *mediastore.Cursor) (models.Record, error) {
		rec, err := columns(cur, albumProjection)
		if err != nil || artist == "" {
			return rec, err
		}
		id, _ := rec["_id"].(string)
		rec["artist"] = artist
		rec["numsongs"] = strconv.FormatInt(l.artistSongCount(artist, id), 10)
		return rec, nil
	}), nil
}

// artistSongCount counts artist's music tracks on an album, or -1 when the count fails.
func (l *AlbumLoader) artistSongCount(artist, albumID string) int64 {
	cur, err := l.store.Query(l.ctx, mediastore.AudioURI, []string{"count(*)"},
		"artist = ? AND album_id = ? AND is_music = 1", []any{artist, albumID}, "")
	if err != nil {
		l.logger.Error("failed to count album songs", "artist", artist, "album_id", albumID, "error", err)
		return -1
	}
	defer cur.Close()

	if !cur.Next() {
		return -1
	}
	n, err := cur.IntAt(0)
	if err != nil {
		return -1
	}
	return n
}
