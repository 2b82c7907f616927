package loaders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/desertthunder/audioquery/internal/tasks"
)

var (
	playlistProjection = []string{"_id", "name", "_data", "date_added"}
	memberProjection   = []string{"audio_id", "play_order"}
)

// PlaylistLoader reads and edits playlists. Writes run one at a time.
type PlaylistLoader struct {
	base
	writeMu sync.Mutex
}

func NewPlaylistLoader(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger) *PlaylistLoader {
	return &PlaylistLoader{base: newBase(ctx, store, ex, logger, "playlist")}
}

func playlistSortOrder(t models.PlaylistSortType) string {
	switch t {
	case models.PlaylistSortNewestFirst:
		return "date_added DESC"
	case models.PlaylistSortOldestFirst:
		return "date_added ASC"
	default:
		return "name"
	}
}

func (l *PlaylistLoader) GetPlaylists(reply models.Reply, sort models.PlaylistSortType) {
	l.run(reply, models.QuerySpec{SortOrder: playlistSortOrder(sort)})
}

func (l *PlaylistLoader) GetPlaylistsByID(reply models.Reply, ids []string, sort models.PlaylistSortType) {
	if len(ids) == 0 {
		reply.Error(models.CodeNoPlaylistIDs, "No Ids was provided", nil)
		return
	}
	l.run(reply, idsSpec(ids, sort == models.PlaylistSortCurrentIDsOrder, playlistSortOrder(sort)))
}

// SearchPlaylists replies with the playlists whose name starts with query.
func (l *PlaylistLoader) SearchPlaylists(reply models.Reply, query string, sort models.PlaylistSortType) {
	l.run(reply, models.QuerySpec{Selection: "name LIKE ?", Args: []any{prefix(query)}, SortOrder: playlistSortOrder(sort)})
}

func (l *PlaylistLoader) run(reply models.Reply, spec models.QuerySpec) {
	l.runList(reply, models.CodePlaylistReadError, spec, l.load)
}

func (l *PlaylistLoader) load(spec models.QuerySpec) ([]models.Record, error) {
	cur, err := l.store.Query(l.ctx, mediastore.PlaylistsURI, playlistProjection, spec.Selection, spec.Args, spec.SortOrder)
	if err != nil {
		return nil, err
	}
	return l.readRows(cur, l.readPlaylist), nil
}

// readPlaylist reads the current playlist row and attaches its member ids.
func (l *PlaylistLoader) readPlaylist(cur *mediastore.Cursor) (models.Record, error) {
	rec, err := columns(cur, playlistProjection)
	if err != nil {
		return nil, err
	}
	id, _ := rec["_id"].(string)
	members, err := l.memberIDs(id)
	if err != nil {
		return nil, err
	}
	rec[models.FieldMemberIDs] = members
	return rec, nil
}

func (l *PlaylistLoader) memberIDs(playlistID string) ([]string, error) {
	cur, err := l.store.Query(l.ctx, mediastore.MembersURI(playlistID), memberProjection, "", nil, "play_order")
	if err != nil {
		return nil, fmt.Errorf("failed to read members of playlist %s: %w", playlistID, err)
	}
	defer cur.Close()

	ids := make([]string, 0, cur.Count())
	for cur.Next() {
		id, err := cur.String("audio_id")
		if err != nil {
			l.logger.Error("skipping unreadable member", "playlist_id", playlistID, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// byID reads one playlist with its members.
func (l *PlaylistLoader) byID(id string) (models.Record, error) {
	cur, err := l.store.Query(l.ctx, mediastore.PlaylistsURI, playlistProjection, "_id = ?", []any{id}, "")
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	if !cur.Next() {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return l.readPlaylist(cur)
}

func (l *PlaylistLoader) exists(selection string, args ...any) (bool, error) {
	cur, err := l.store.Query(l.ctx, mediastore.PlaylistsURI, []string{"_id"}, selection, args, "")
	if err != nil {
		return false, err
	}
	defer cur.Close()
	return cur.Count() > 0, nil
}

// outcome is what a playlist write replies.
type outcome struct {
	value   any
	code    string
	message string
}

func failed(code, message string) outcome {
	return outcome{code: code, message: message}
}

func (o outcome) deliver(reply models.Reply) {
	if o.code != "" {
		reply.Error(o.code, o.message, nil)
		return
	}
	reply.Success(o.value)
}

// write runs fn off-thread under the write lock and replies with its outcome.
func (l *PlaylistLoader) write(reply models.Reply, fn func() outcome) {
	tasks.Run(l.exec, func() outcome {
		l.writeMu.Lock()
		defer l.writeMu.Unlock()
		return fn()
	}, func(o outcome) {
		if o.code != "" {
			l.logger.Warn("playlist write failed", "code", o.code, "message", o.message)
		}
		o.deliver(reply)
	})
}

// refreshed notifies observers and re-reads the playlist for the reply.
func (l *PlaylistLoader) refreshed(id string) outcome {
	l.store.NotifyChange(mediastore.ChangeURI)

	rec, err := l.byID(id)
	if err != nil {
		return failed(models.CodePlaylistReadingFail, err.Error())
	}
	return outcome{value: rec}
}

// CreatePlaylist adds an empty playlist called name and replies with its record.
//
// The name check and the insert are separate statements, so a concurrent external writer can
// still slip in a duplicate.
func (l *PlaylistLoader) CreatePlaylist(reply models.Reply, name string) {
	if name == "" {
		reply.Error(models.CodeInvalidPlaylistName, "Invalid name", nil)
		return
	}

	l.write(reply, func() outcome {
		taken, err := l.exists("name = ?", name)
		if err != nil {
			return failed(models.CodeNameNotAccepted, err.Error())
		}
		if taken {
			return failed(models.CodePlaylistNameExists, fmt.Sprintf("Playlist %s already exists", name))
		}

		uri, err := l.store.Insert(l.ctx, mediastore.PlaylistsURI, mediastore.Values{
			"name":       name,
			"date_added": time.Now().Unix(),
		})
		if err != nil {
			return failed(models.CodeNameNotAccepted, err.Error())
		}
		l.store.NotifyChange(mediastore.ChangeURI)

		cur, err := l.store.Query(l.ctx, uri, playlistProjection, "", nil, "")
		if err != nil {
			return failed(models.CodePlaylistReadingFail, err.Error())
		}
		defer cur.Close()
		if !cur.Next() {
			return failed(models.CodePlaylistReadingFail, "created playlist could not be read back")
		}
		rec, err := columns(cur, playlistProjection)
		if err != nil {
			return failed(models.CodePlaylistReadingFail, err.Error())
		}
		rec[models.FieldMemberIDs] = []string{}
		return outcome{value: rec}
	})
}

// RemovePlaylist deletes a playlist. It succeeds with "" whether or not the playlist existed.
func (l *PlaylistLoader) RemovePlaylist(reply models.Reply, playlistID string) {
	l.write(reply, func() outcome {
		if _, err := l.store.Delete(l.ctx, mediastore.PlaylistsURI, "_id = ?", []any{playlistID}); err != nil {
			l.logger.Error("failed to remove playlist", "playlist_id", playlistID, "error", err)
			return failed(models.CodePlaylistDeleteFail, "Was not possible remove playlist")
		}
		l.store.NotifyChange(mediastore.ChangeURI)
		return outcome{value: ""}
	})
}

// AddSongToPlaylist appends songID to the playlist and replies with the refreshed playlist.
func (l *PlaylistLoader) AddSongToPlaylist(reply models.Reply, playlistID, songID string) {
	l.write(reply, func() outcome {
		base := l.nextPosition(playlistID)
		if base == -1 {
			return failed(models.CodeAddSongFail, fmt.Sprintf("base value %d", base))
		}

		_, err := l.store.Insert(l.ctx, mediastore.MembersURI(playlistID), mediastore.Values{
			"audio_id":   songID,
			"play_order": base,
		})
		if err != nil {
			return failed(models.CodeAddSongFail, err.Error())
		}
		return l.refreshed(playlistID)
	})
}

// nextPosition is one past the playlist's member count, or -1 when the count fails.
func (l *PlaylistLoader) nextPosition(playlistID string) int64 {
	cur, err := l.store.Query(l.ctx, mediastore.MembersURI(playlistID), []string{"count(*)"}, "", nil, "")
	if err != nil {
		l.logger.Error("failed to count playlist members", "playlist_id", playlistID, "error", err)
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
	return n + 1
}

// RemoveSongFromPlaylist drops the latest occurrence of songID from the playlist and replies
// with the refreshed playlist.
func (l *PlaylistLoader) RemoveSongFromPlaylist(reply models.Reply, playlistID, songID string) {
	if playlistID == "" || songID == "" {
		reply.Error(models.CodeRemoveSongFail, "Error removing song from playlist", nil)
		return
	}

	l.write(reply, func() outcome {
		found, err := l.exists("_id = ?", playlistID)
		if err != nil || !found {
			return failed(models.CodeUnavailablePlaylist, fmt.Sprintf("playlist %s is unavailable", playlistID))
		}

		n, err := l.store.Delete(l.ctx, mediastore.MembersURI(playlistID),
			`_id = (SELECT _id FROM playlist_members WHERE playlist_id = ? AND audio_id = ?
				ORDER BY play_order DESC, _id DESC LIMIT 1)`,
			[]any{playlistID, songID})
		if err != nil || n == 0 {
			if err == nil {
				err = errors.New("song is not in this playlist")
			}
			return failed(models.CodeSongDeleteFail, fmt.Sprintf("Was not possible delete song data from this playlist: %v", err))
		}
		return l.refreshed(playlistID)
	})
}

// MoveSong moves the member at position from to position to (both zero-based) and replies with
// the refreshed playlist.
func (l *PlaylistLoader) MoveSong(reply models.Reply, playlistID string, from, to int) {
	if from < 0 || to < 0 {
		reply.Error(models.CodeSongSwapNullID, "Some song is null", nil)
		return
	}

	l.write(reply, func() outcome {
		ok, err := l.store.MoveMember(l.ctx, playlistID, from, to)
		if err != nil || !ok {
			return failed(models.CodeSongSwapNoSuccess, "Song swap operation was not success")
		}
		return l.refreshed(playlistID)
	})
}
