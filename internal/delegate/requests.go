package delegate

import (
	"fmt"
	"image"

	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/shared"
)

// Read method names.
const (
	MethodGetArtists              = "getArtists"
	MethodGetArtistsByID          = "getArtistsById"
	MethodGetArtistsFromGenre     = "getArtistsFromGenre"
	MethodSearchArtistsByName     = "searchArtistsByName"
	MethodGetAlbums               = "getAlbums"
	MethodGetAlbumsByID           = "getAlbumsById"
	MethodGetAlbumsFromArtist     = "getAlbumsFromArtist"
	MethodGetAlbumsFromGenre      = "getAlbumsFromGenre"
	MethodSearchAlbums            = "searchAlbums"
	MethodGetSongs                = "getSongs"
	MethodGetSongsByID            = "getSongsById"
	MethodGetSongsFromArtist      = "getSongsFromArtist"
	MethodGetSongsFromAlbum       = "getSongsFromAlbum"
	MethodGetSongsFromArtistAlbum = "getSongsFromArtistAlbum"
	MethodGetSongsFromGenre       = "getSongsFromGenre"
	MethodGetSongsFromPlaylist    = "getSongsFromPlaylist"
	MethodSearchSongs             = "searchSongs"
	MethodGetGenres               = "getGenres"
	MethodSearchGenres            = "searchGenres"
	MethodGetPlaylists            = "getPlaylists"
	MethodGetPlaylistsByID        = "getPlaylistsById"
	MethodSearchPlaylists         = "searchPlaylists"
	MethodGetArtwork              = "getArtwork"
)

// Write method names.
const (
	MethodCreatePlaylist         = "createPlaylist"
	MethodAddSongToPlaylist      = "addSongToPlaylist"
	MethodRemoveSongFromPlaylist = "removeSongFromPlaylist"
	MethodRemovePlaylist         = "removePlaylist"
	MethodMoveSong               = "moveSong"
)

// ReadRequest is a parsed read call. The set of implementations is closed.
type ReadRequest interface{ readRequest() }

// WriteRequest is a parsed playlist mutation. The set of implementations is closed.
type WriteRequest interface{ writeRequest() }

type (
	GetArtists struct{ Sort models.ArtistSortType }

	GetArtistsByID struct {
		IDs  []string
		Sort models.ArtistSortType
	}

	GetArtistsFromGenre struct {
		Genre string
		Sort  models.ArtistSortType
	}

	SearchArtistsByName struct {
		Query string
		Sort  models.ArtistSortType
	}

	GetAlbums struct{ Sort models.AlbumSortType }

	GetAlbumsByID struct {
		IDs  []string
		Sort models.AlbumSortType
	}

	GetAlbumsFromArtist struct {
		Artist string
		Sort   models.AlbumSortType
	}

	GetAlbumsFromGenre struct {
		Genre string
		Sort  models.AlbumSortType
	}

	SearchAlbums struct {
		Query string
		Sort  models.AlbumSortType
	}

	GetSongs struct{ Sort models.SongSortType }

	GetSongsByID struct {
		IDs  []string
		Sort models.SongSortType
	}

	GetSongsFromArtist struct {
		ArtistID string
		Sort     models.SongSortType
	}

	GetSongsFromAlbum struct {
		AlbumID string
		Sort    models.SongSortType
	}

	GetSongsFromArtistAlbum struct {
		AlbumID string
		Artist  string
		Sort    models.SongSortType
	}

	GetSongsFromGenre struct {
		Genre string
		Sort  models.SongSortType
	}

	GetSongsFromPlaylist struct{ MemberIDs []string }

	SearchSongs struct {
		Query string
		Sort  models.SongSortType
	}

	GetGenres struct{ Sort models.GenreSortType }

	SearchGenres struct {
		Query string
		Sort  models.GenreSortType
	}

	GetPlaylists struct{ Sort models.PlaylistSortType }

	GetPlaylistsByID struct {
		IDs  []string
		Sort models.PlaylistSortType
	}

	SearchPlaylists struct {
		Query string
		Sort  models.PlaylistSortType
	}

	// GetArtwork asks for a thumbnail. A zero Size means the configured default.
	GetArtwork struct {
		Resource models.ResourceType
		ID       string
		Size     image.Point
	}
)

func (GetArtists) readRequest()              {}
func (GetArtistsByID) readRequest()          {}
func (GetArtistsFromGenre) readRequest()     {}
func (SearchArtistsByName) readRequest()     {}
func (GetAlbums) readRequest()               {}
func (GetAlbumsByID) readRequest()           {}
func (GetAlbumsFromArtist) readRequest()     {}
func (GetAlbumsFromGenre) readRequest()      {}
func (SearchAlbums) readRequest()            {}
func (GetSongs) readRequest()                {}
func (GetSongsByID) readRequest()            {}
func (GetSongsFromArtist) readRequest()      {}
func (GetSongsFromAlbum) readRequest()       {}
func (GetSongsFromArtistAlbum) readRequest() {}
func (GetSongsFromGenre) readRequest()       {}
func (GetSongsFromPlaylist) readRequest()    {}
func (SearchSongs) readRequest()             {}
func (GetGenres) readRequest()               {}
func (SearchGenres) readRequest()            {}
func (GetPlaylists) readRequest()            {}
func (GetPlaylistsByID) readRequest()        {}
func (SearchPlaylists) readRequest()         {}
func (GetArtwork) readRequest()              {}

type (
	CreatePlaylist struct{ Name string }

	AddSongToPlaylist struct{ PlaylistID, SongID string }

	// RemoveSongFromPlaylist leaves empty ids for the loader to reject.
	RemoveSongFromPlaylist struct{ PlaylistID, SongID string }

	RemovePlaylist struct{ PlaylistID string }

	// MoveSong positions are -1 when the caller left them out.
	MoveSong struct {
		PlaylistID string
		From, To   int
	}
)

func (CreatePlaylist) writeRequest()         {}
func (AddSongToPlaylist) writeRequest()      {}
func (RemoveSongFromPlaylist) writeRequest() {}
func (RemovePlaylist) writeRequest()         {}
func (MoveSong) writeRequest()               {}

// ParseRead validates a read call. Unknown methods return [shared.ErrUnknownMethod]; bad
// arguments return [shared.ErrMissingArgument] or [shared.ErrInvalidArgument].
func ParseRead(call models.Call) (ReadRequest, error) {
	a := args{call: call}

	var req ReadRequest
	switch call.Method {
	case MethodGetArtists:
		req = GetArtists{Sort: call.ArtistSort()}
	case MethodGetArtistsByID:
		req = GetArtistsByID{IDs: a.ids(models.ArgArtistIDs), Sort: call.ArtistSort()}
	case MethodGetArtistsFromGenre:
		req = GetArtistsFromGenre{Genre: a.required(models.ArgGenreName), Sort: call.ArtistSort()}
	case MethodSearchArtistsByName:
		req = SearchArtistsByName{Query: a.optional(models.ArgQuery), Sort: call.ArtistSort()}
	case MethodGetAlbums:
		req = GetAlbums{Sort: call.AlbumSort()}
	case MethodGetAlbumsByID:
		req = GetAlbumsByID{IDs: a.ids(models.ArgAlbumIDs), Sort: call.AlbumSort()}
	case MethodGetAlbumsFromArtist:
		req = GetAlbumsFromArtist{Artist: a.required(models.ArgArtist), Sort: call.AlbumSort()}
	case MethodGetAlbumsFromGenre:
		req = GetAlbumsFromGenre{Genre: a.required(models.ArgGenreName), Sort: call.AlbumSort()}
	case MethodSearchAlbums:
		req = SearchAlbums{Query: a.optional(models.ArgQuery), Sort: call.AlbumSort()}
	case MethodGetSongs:
		req = GetSongs{Sort: call.SongSort()}
	case MethodGetSongsByID:
		req = GetSongsByID{IDs: a.ids(models.ArgSongIDs), Sort: call.SongSort()}
	case MethodGetSongsFromArtist:
		// The artist's id travels under the "artist" key.
		req = GetSongsFromArtist{ArtistID: a.required(models.ArgArtist), Sort: call.SongSort()}
	case MethodGetSongsFromAlbum:
		req = GetSongsFromAlbum{AlbumID: a.required(models.ArgAlbumID), Sort: call.SongSort()}
	case MethodGetSongsFromArtistAlbum:
		req = GetSongsFromArtistAlbum{
			AlbumID: a.required(models.ArgAlbumID),
			Artist:  a.required(models.ArgArtist),
			Sort:    call.SongSort(),
		}
	case MethodGetSongsFromGenre:
		req = GetSongsFromGenre{Genre: a.required(models.ArgGenreName), Sort: call.SongSort()}
	case MethodGetSongsFromPlaylist:
		req = GetSongsFromPlaylist{MemberIDs: a.ids(models.ArgMemberIDs)}
	case MethodSearchSongs:
		req = SearchSongs{Query: a.optional(models.ArgQuery), Sort: call.SongSort()}
	case MethodGetGenres:
		req = GetGenres{Sort: call.GenreSort()}
	case MethodSearchGenres:
		req = SearchGenres{Query: a.optional(models.ArgQuery), Sort: call.GenreSort()}
	case MethodGetPlaylists:
		req = GetPlaylists{Sort: call.PlaylistSort()}
	case MethodGetPlaylistsByID:
		req = GetPlaylistsByID{IDs: a.ids(models.ArgPlaylistIDs), Sort: call.PlaylistSort()}
	case MethodSearchPlaylists:
		req = SearchPlaylists{Query: a.optional(models.ArgQuery), Sort: call.PlaylistSort()}
	case MethodGetArtwork:
		req = GetArtwork{
			Resource: models.ResourceType(a.requiredInt(models.ArgResource)),
			ID:       a.optional(models.ArgID),
			Size:     image.Pt(a.optionalInt(models.ArgWidth, 0), a.optionalInt(models.ArgHeight, 0)),
		}
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownMethod, call.Method)
	}

	if a.err != nil {
		return nil, a.err
	}
	return req, nil
}

// ParseWrite validates a playlist mutation call.
func ParseWrite(call models.Call) (WriteRequest, error) {
	a := args{call: call}

	var req WriteRequest
	switch call.Method {
	case MethodCreatePlaylist:
		req = CreatePlaylist{Name: a.optional(models.ArgPlaylistName)}
	case MethodAddSongToPlaylist:
		req = AddSongToPlaylist{PlaylistID: a.required(models.ArgPlaylistID), SongID: a.required(models.ArgSongID)}
	case MethodRemoveSongFromPlaylist:
		req = RemoveSongFromPlaylist{PlaylistID: a.optional(models.ArgPlaylistID), SongID: a.optional(models.ArgSongID)}
	case MethodRemovePlaylist:
		req = RemovePlaylist{PlaylistID: a.required(models.ArgPlaylistID)}
	case MethodMoveSong:
		req = MoveSong{
			PlaylistID: a.required(models.ArgPlaylistID),
			From:       a.optionalInt(models.ArgFrom, -1),
			To:         a.optionalInt(models.ArgTo, -1),
		}
	default:
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownMethod, call.Method)
	}

	if a.err != nil {
		return nil, a.err
	}
	return req, nil
}

// args reads call arguments and keeps the first problem found.
type args struct {
	call models.Call
	err  error
}

func (a *args) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *args) required(key string) string {
	if !a.call.Has(key) {
		a.fail(fmt.Errorf("%w: %s", shared.ErrMissingArgument, key))
		return ""
	}
	return a.optional(key)
}

// optional reads a string argument; a missing one reads as "".
func (a *args) optional(key string) string {
	if !a.call.Has(key) {
		return ""
	}
	s, ok := a.call.String(key)
	if !ok {
		a.fail(fmt.Errorf("%w: %s must be a string", shared.ErrInvalidArgument, key))
	}
	return s
}

// ids reads a list of ids; a missing list reads as nil.
func (a *args) ids(key string) []string {
	if !a.call.Has(key) {
		return nil
	}
	list, ok := a.call.StringList(key)
	if !ok {
		a.fail(fmt.Errorf("%w: %s must be a list of ids", shared.ErrInvalidArgument, key))
	}
	return list
}

func (a *args) requiredInt(key string) int {
	if !a.call.Has(key) {
		a.fail(fmt.Errorf("%w: %s", shared.ErrMissingArgument, key))
		return 0
	}
	return a.optionalInt(key, 0)
}

func (a *args) optionalInt(key string, fallback int) int {
	if !a.call.Has(key) {
		return fallback
	}
	n, ok := a.call.Int(key)
	if !ok {
		a.fail(fmt.Errorf("%w: %s must be an integer", shared.ErrInvalidArgument, key))
		return fallback
	}
	return n
}
