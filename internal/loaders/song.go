package loaders

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/tasks"
)

var songProjection = []string{
	"_id", "album_id", "artist_id", "artist", "album",
	"is_music", "is_podcast", "is_ringtone", "is_alarm", "is_notification",
	"title", "_display_name", "composer", "year", "track", "duration", "bookmark", "_data", "_size",
}

var flagColumns = map[string]bool{
	"is_music":        true,
	"is_podcast":      true,
	"is_ringtone":     true,
	"is_alarm":        true,
	"is_notification": true,
}

// SongLoader queries tracks.
type SongLoader struct {
	base
}

func NewSongLoader(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger) *SongLoader {
	return &SongLoader{base: newBase(ctx, store, ex, logger, "song")}
}

func songSortOrder(t models.SongSortType) string {
	switch t {
	case models.SongSortAlphabeticComposer:
		return "composer ASC"
	case models.SongSortGreaterDuration:
		return "duration DESC"
	case models.SongSortSmallerDuration:
		return "duration ASC"
	case models.SongSortRecentYear:
		return "year DESC"
	case models.SongSortOldestYear:
		return "year ASC"
	case models.SongSortAlphabeticArtist:
		return "artist_key"
	case models.SongSortAlphabeticAlbum:
		return "album_key"
	case models.SongSortGreaterTrackNumber:
		return "track DESC"
	case models.SongSortSmallerTrackNumber:
		return "track ASC"
	case models.SongSortDisplayName:
		return "_display_name"
	default:
		return "title_key"
	}
}

func (l *SongLoader) GetSongs(reply models.Reply, sort models.SongSortType) {
	l.run(reply, models.QuerySpec{SortOrder: songSortOrder(sort)})
}

func (l *SongLoader) GetSongsByID(reply models.Reply, ids []string, sort models.SongSortType) {
	if len(ids) == 0 {
		reply.Error(models.CodeNoSongIDs, "No Ids was provided", nil)
		return
	}
	l.run(reply, idsSpec(ids, sort == models.SongSortCurrentIDsOrder, songSortOrder(sort)))
}

// SearchSongs replies with the tracks whose title starts with query.
func (l *SongLoader) SearchSongs(reply models.Reply, query string, sort models.SongSortType) {
	l.run(reply, models.QuerySpec{Selection: "title LIKE ?", Args: []any{prefix(query)}, SortOrder: songSortOrder(sort)})
}

func (l *SongLoader) GetSongsFromAlbum(reply models.Reply, albumID string, sort models.SongSortType) {
	l.run(reply, models.QuerySpec{
		Selection: "album_id = ?",
		Args:      []any{albumID},
		SortOrder: songSortOrder(sort),
		Type:      models.QueryAlbumSongs,
	})
}

func (l *SongLoader) GetSongsFromArtist(reply models.Reply, artistID string, sort models.SongSortType) {
	l.run(reply, models.QuerySpec{Selection: "artist_id = ?", Args: []any{artistID}, SortOrder: songSortOrder(sort)})
}

// GetSongsFromArtistAlbum replies with the tracks of one album credited to artist.
func (l *SongLoader) GetSongsFromArtistAlbum(reply models.Reply, albumID, artist string, sort models.SongSortType) {
	l.run(reply, models.QuerySpec{
		Selection: "album_id = ? AND artist = ?",
		Args:      []any{albumID, artist},
		SortOrder: songSortOrder(sort),
		Type:      models.QueryAlbumSongs,
	})
}

func (l *SongLoader) GetSongsFromGenre(reply models.Reply, genre string, sort models.SongSortType) {
	l.run(reply, models.QuerySpec{Args: []any{genre}, SortOrder: songSortOrder(sort), Type: models.QueryByGenre})
}

// GetSongsFromPlaylist replies with the tracks listed in memberIDs, in that order.
// An empty list replies an empty result without querying.
func (l *SongLoader) GetSongsFromPlaylist(reply models.Reply, memberIDs []string) {
	if len(memberIDs) == 0 {
		reply.Success([]models.Record{})
		return
	}
	l.run(reply, idsSpec(memberIDs, true, ""))
}

func (l *SongLoader) run(reply models.Reply, spec models.QuerySpec) {
	l.runList(reply, models.CodeSongReadError, spec, l.load)
}

func (l *SongLoader) load(spec models.QuerySpec) ([]models.Record, error) {
	if spec.Type == models.QueryByGenre {
		ids, err := l.distinct("_id", "genre_name = ?", spec.Args...)
		if err != nil {
			return nil, err
		}
		var ok bool
		if spec, ok = resolveIDs(spec, ids); !ok {
			return []models.Record{}, nil
		}
	}

	cur, err := l.store.Query(l.ctx, mediastore.AudioURI, songProjection, spec.Selection, spec.Args, spec.SortOrder)
	if err != nil {
		return nil, err
	}

	artwork := map[string]any{}
	return l.readRows(cur, func(cur *mediastore.Cursor) (models.Record, error) {
		rec := make(models.Record, len(songProjection)+2)
		for _, col := range songProjection {
			if flagColumns[col] {
				n, err := cur.Int(col)
				if err != nil {
					return nil, err
				}
				rec[col] = n != 0
				continue
			}
			v, err := cur.Value(col)
			if err != nil {
				return nil, err
			}
			rec[col] = v
		}

		id, _ := rec["_id"].(string)
		rec[models.FieldURI] = mediastore.ItemURI(mediastore.AudioURI, id)

		albumID, _ := rec["album_id"].(string)
		art, ok := artwork[albumID]
		if !ok {
			art = l.albumArt(albumID)
			artwork[albumID] = art
		}
		rec[models.FieldAlbumArtwork] = art
		return rec, nil
	}), nil
}

func (l *SongLoader) albumArt(albumID string) any {
	if albumID == "" {
		return nil
	}
	cur, err := l.store.Query(l.ctx, mediastore.AlbumsURI, []string{"album_art"}, "_id = ?", []any{albumID}, "")
	if err != nil {
		l.logger.Error("failed to look up album artwork", "album_id", albumID, "error", err)
		return nil
	}
	defer cur.Close()

	if !cur.Next() {
		return nil
	}
	v, _ := cur.ValueAt(0)
	return v
}
