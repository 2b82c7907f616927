package mediastore

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	baseURI      = "content://media/external/audio"
	AudioURI     = baseURI + "/media"
	AlbumsURI    = baseURI + "/albums"
	ArtistsURI   = baseURI + "/artists"
	GenresURI    = baseURI + "/genres"
	PlaylistsURI = baseURI + "/playlists"

	// ChangeURI is the root notified after library writes.
	ChangeURI = "content://media"
)

// ItemURI addresses a single item of a collection.
func ItemURI(collection, id string) string {
	return collection + "/" + id
}

// MembersURI addresses the members of one playlist.
func MembersURI(playlistID string) string {
	return PlaylistsURI + "/" + playlistID + "/members"
}

type collection int

const (
	collAudio collection = iota
	collAlbums
	collArtists
	collGenres
	collPlaylists
	collMembers
)

// table names the relation read and written for each collection. Genres have no write table.
var tables = map[collection]struct{ read, write string }{
	collAudio:     {read: "audio", write: "audio"},
	collAlbums:    {read: "album_info", write: "albums"},
	collArtists:   {read: "artist_info", write: "artists"},
	collGenres:    {read: "genre_info"},
	collPlaylists: {read: "playlists", write: "playlists"},
	collMembers:   {read: "playlist_members", write: "playlist_members"},
}

var collectionNames = map[string]collection{
	"media":     collAudio,
	"albums":    collAlbums,
	"artists":   collArtists,
	"genres":    collGenres,
	"playlists": collPlaylists,
}

// target is a parsed content URI.
type target struct {
	coll       collection
	id         string // item id, empty for whole collections
	playlistID string // set for member URIs
}

func (t target) uri() string {
	var base string
	switch t.coll {
	case collMembers:
		base = MembersURI(t.playlistID)
	default:
		for name, c := range collectionNames {
			if c == t.coll {
				base = baseURI + "/" + name
			}
		}
	}
	if t.id != "" {
		return ItemURI(base, t.id)
	}
	return base
}

// where returns the implicit predicate and arguments a URI carries.
func (t target) where() (string, []any) {
	var preds []string
	var args []any
	if t.coll == collMembers {
		preds = append(preds, "playlist_id = ?")
		args = append(args, t.playlistID)
	}
	if t.id != "" {
		preds = append(preds, "_id = ?")
		args = append(args, t.id)
	}
	return strings.Join(preds, " AND "), args
}

func parseURI(uri string) (target, error) {
	rest, ok := strings.CutPrefix(uri, baseURI+"/")
	if !ok {
		return target{}, fmt.Errorf("%w: %s", ErrUnknownURI, uri)
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	coll, ok := collectionNames[parts[0]]
	if !ok {
		return target{}, fmt.Errorf("%w: %s", ErrUnknownURI, uri)
	}

	switch {
	case len(parts) == 1:
		return target{coll: coll}, nil
	case len(parts) == 2 && isID(parts[1]):
		return target{coll: coll, id: parts[1]}, nil
	case coll == collPlaylists && len(parts) >= 3 && parts[2] == "members" && isID(parts[1]):
		t := target{coll: collMembers, playlistID: parts[1]}
		if len(parts) == 4 && isID(parts[3]) {
			t.id = parts[3]
			return t, nil
		}
		if len(parts) == 3 {
			return t, nil
		}
	}
	return target{}, fmt.Errorf("%w: %s", ErrUnknownURI, uri)
}

func isID(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
