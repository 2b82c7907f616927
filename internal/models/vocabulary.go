package models

// Argument keys.
const (
	ArgSource       = "source"
	ArgMethodType   = "method_type"
	ArgQuery        = "query"
	ArgGenreName    = "genre_name"
	ArgArtist       = "artist"
	ArgAlbumID      = "album_id"
	ArgArtistIDs    = "artist_ids"
	ArgAlbumIDs     = "album_ids"
	ArgSongIDs      = "song_ids"
	ArgPlaylistIDs  = "playlist_ids"
	ArgMemberIDs    = "memberIds"
	ArgPlaylistName = "playlist_name"
	ArgPlaylistID   = "playlist_id"
	ArgSongID       = "song_id"
	ArgFrom         = "from"
	ArgTo           = "to"
	ArgResource     = "resource"
	ArgID           = "id"
	ArgWidth        = "width"
	ArgHeight       = "height"
)

// Sources routed by the plugin.
const (
	SourceArtist   = "artist"
	SourceAlbum    = "album"
	SourceSong     = "song"
	SourceGenre    = "genre"
	SourcePlaylist = "playlist"
	SourceArtwork  = "artwork"
)

// Derived record fields.
const (
	FieldArtistCover  = "artist_cover"
	FieldURI          = "uri"
	FieldAlbumArtwork = "album_artwork"
	FieldMemberIDs    = "memberIds"
	FieldImage        = "image"
)

// Error codes delivered through [Reply.Error].
const (
	CodeAlreadyActive       = "ALREADY_ACTIVE"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeNoSource            = "NO_SOURCE"
	CodeUnknownSource       = "UNKNOWN_SOURCE"
	CodePluginDetached      = "PLUGIN_DETACHED"
	CodeNoArtistIDs         = "NO_ARTIST_IDS"
	CodeNoAlbumIDs          = "NO_ALBUM_IDS"
	CodeNoSongIDs           = "NO_SONG_IDS"
	CodeNoPlaylistIDs       = "NO_PLAYLIST_IDS"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeArtistReadError     = "ARTIST_READ_ERROR"
	CodeAlbumReadError      = "ALBUM_READ_ERROR"
	CodeSongReadError       = "SONG_READ_ERROR"
	CodeGenreReadError      = "GENRE_READ_ERROR"
	CodePlaylistReadError   = "PLAYLIST_READ_ERROR"
	CodeInvalidPlaylistName = "INVALID_PLAYLIST_NAME"
	CodePlaylistNameExists  = "PLAYLIST_NAME_EXISTS"
	CodeNameNotAccepted     = "NAME_NOT_ACCEPTED"
	CodePlaylistReadingFail = "PLAYLIST_READING_FAIL"
	CodePlaylistDeleteFail  = "PLAYLIST_DELETE_FAIL"
	CodeAddSongFail         = "ADD_SONG_FAIL"
	CodeRemoveSongFail      = "REMOVE_SONG_FAIL"
	CodeUnavailablePlaylist = "UNAVAILABLE_PLAYLIST"
	CodeSongDeleteFail      = "SONG_DELETE_FAIL"
	CodeSongSwapNullID      = "SONG_SWAP_NULL_ID"
	CodeSongSwapNoSuccess   = "SONG_SWAP_NO_SUCCESS"
	CodeNoID                = "NO_ID"
	CodeNotImplemented      = "NOT_IMPLEMENTED"
)

// PlaylistMethodType separates playlist reads from writes.
type PlaylistMethodType int

const (
	PlaylistRead PlaylistMethodType = iota
	PlaylistWrite
)

// ResourceType selects what an artwork lookup is keyed on.
type ResourceType int

const (
	ResourceArtist ResourceType = iota
	ResourceAlbum
	ResourceSong
)

func (r ResourceType) String() string {
	switch r {
	case ResourceArtist:
		return "artist"
	case ResourceAlbum:
		return "album"
	case ResourceSong:
		return "song"
	default:
		return "unknown"
	}
}
