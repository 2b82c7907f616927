package delegate

import (
	"errors"
	"fmt"
	"image"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/loaders"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/shared"
)

// Capabilities describes what the host supports.
type Capabilities struct {
	Thumbnails  bool        // on-demand thumbnail generation
	DefaultSize image.Point // thumbnail size used when a call gives none
}

type class int

const (
	classRead class = iota
	classWrite
)

func (c class) permission() (string, int) {
	if c == classWrite {
		return permissions.WriteExternalStorage, permissions.WriteRequestCode
	}
	return permissions.ReadExternalStorage, permissions.ReadRequestCode
}

// Delegate admits one call at a time, checks its storage permission and dispatches it to the
// loaders.
//
// Handlers and [Delegate.OnPermissionResult] are expected to run on one goroutine; the gate
// is locked anyway so misuse cannot corrupt it.
type Delegate struct {
	loaders *loaders.Loaders
	perms   permissions.Service
	caps    Capabilities
	logger  *log.Logger
	gate    Gate

	requested int // request code the held call waits on
}

func New(l *loaders.Loaders, perms permissions.Service, caps Capabilities, logger *log.Logger) *Delegate {
	return &Delegate{
		loaders: l,
		perms:   perms,
		caps:    caps,
		logger:  shared.WithLogger(logger, "component", "delegate"),
	}
}

func (d *Delegate) ArtistSourceHandler(call models.Call, reply models.Reply) {
	d.handle(call, reply, classRead)
}

func (d *Delegate) AlbumSourceHandler(call models.Call, reply models.Reply) {
	d.handle(call, reply, classRead)
}

func (d *Delegate) SongSourceHandler(call models.Call, reply models.Reply) {
	d.handle(call, reply, classRead)
}

func (d *Delegate) GenreSourceHandler(call models.Call, reply models.Reply) {
	d.handle(call, reply, classRead)
}

func (d *Delegate) ArtworkSourceHandler(call models.Call, reply models.Reply) {
	d.handle(call, reply, classRead)
}

// PlaylistSourceHandler routes on method_type: reads need the read permission, writes the
// write permission. Any other method type is not implemented.
func (d *Delegate) PlaylistSourceHandler(call models.Call, reply models.Reply) {
	mt, ok := call.Int(models.ArgMethodType)
	switch {
	case ok && models.PlaylistMethodType(mt) == models.PlaylistRead:
		d.handle(call, reply, classRead)
	case ok && models.PlaylistMethodType(mt) == models.PlaylistWrite:
		d.handle(call, reply, classWrite)
	default:
		d.logger.Debug("unsupported playlist method type", "method", call.Method, "method_type", call.Arguments[models.ArgMethodType])
		reply.NotImplemented()
	}
}

func (d *Delegate) handle(call models.Call, reply models.Reply, c class) {
	if !d.gate.TryAdmit(call, reply) {
		d.logger.Debug("rejected call, another is pending", "id", call.ID, "method", call.Method)
		reply.Error(models.CodeAlreadyActive, "Plugin is already handling a request", nil)
		return
	}

	permission, code := c.permission()
	if d.perms.IsGranted(permission) {
		d.gate.Clear()
		d.dispatch(c, call, reply)
		return
	}

	d.logger.Info("requesting permission", "id", call.ID, "method", call.Method, "permission", permission)
	d.requested = code
	d.perms.Request(permission, code)
}

// OnPermissionResult resumes or fails the pending call. It reports false for request codes it
// does not own.
func (d *Delegate) OnPermissionResult(code int, granted bool) bool {
	var c class
	switch code {
	case permissions.ReadRequestCode:
		c = classRead
	case permissions.WriteRequestCode:
		c = classWrite
	default:
		return false
	}

	p, ok := d.gate.Take()
	if !ok {
		d.logger.Warn("permission result without a pending call", "request_code", code, "granted", granted)
		return true
	}

	if !granted {
		d.logger.Info("permission denied", "id", p.Call.ID, "method", p.Call.Method)
		p.Reply.Error(models.CodePermissionDenied, "Permission denied by user", nil)
		return true
	}
	d.dispatch(c, p.Call, p.Reply)
	return true
}

// Drop fails the held call with PLUGIN_DETACHED and returns the request code it was waiting on.
func (d *Delegate) Drop() (int, bool) {
	p, ok := d.gate.Take()
	if !ok {
		return 0, false
	}
	d.logger.Info("dropping pending call", "id", p.Call.ID, "method", p.Call.Method)
	p.Reply.Error(models.CodePluginDetached, shared.ErrPluginDetached.Error(), nil)
	return d.requested, true
}

// Pending returns the call waiting on a permission result, if any.
func (d *Delegate) Pending() (Pending, bool) {
	return d.gate.Pending()
}

func (d *Delegate) dispatch(c class, call models.Call, reply models.Reply) {
	var err error
	if c == classWrite {
		var req WriteRequest
		if req, err = ParseWrite(call); err == nil {
			d.dispatchWrite(req, reply)
			return
		}
	} else {
		var req ReadRequest
		if req, err = ParseRead(call); err == nil {
			d.dispatchRead(req, reply)
			return
		}
	}

	if errors.Is(err, shared.ErrUnknownMethod) {
		d.logger.Debug("unknown method", "id", call.ID, "method", call.Method)
		reply.NotImplemented()
		return
	}
	d.logger.Warn("invalid call", "id", call.ID, "method", call.Method, "error", err)
	reply.Error(models.CodeInvalidArgument, err.Error(), nil)
}

func (d *Delegate) dispatchRead(req ReadRequest, reply models.Reply) {
	l := d.loaders
	switch r := req.(type) {
	case GetArtists:
		l.Artists.GetArtists(reply, r.Sort)
	case GetArtistsByID:
		l.Artists.GetArtistsByID(reply, r.IDs, r.Sort)
	case GetArtistsFromGenre:
		l.Artists.GetArtistsFromGenre(reply, r.Genre, r.Sort)
	case SearchArtistsByName:
		l.Artists.SearchArtistsByName(reply, r.Query, r.Sort)
	case GetAlbums:
		l.Albums.GetAlbums(reply, r.Sort)
	case GetAlbumsByID:
		l.Albums.GetAlbumsByID(reply, r.IDs, r.Sort)
	case GetAlbumsFromArtist:
		l.Albums.GetAlbumsFromArtist(reply, r.Artist, r.Sort)
	case GetAlbumsFromGenre:
		l.Albums.GetAlbumsFromGenre(reply, r.Genre, r.Sort)
	case SearchAlbums:
		l.Albums.SearchAlbums(reply, r.Query, r.Sort)
	case GetSongs:
		l.Songs.GetSongs(reply, r.Sort)
	case GetSongsByID:
		l.Songs.GetSongsByID(reply, r.IDs, r.Sort)
	case GetSongsFromArtist:
		l.Songs.GetSongsFromArtist(reply, r.ArtistID, r.Sort)
	case GetSongsFromAlbum:
		l.Songs.GetSongsFromAlbum(reply, r.AlbumID, r.Sort)
	case GetSongsFromArtistAlbum:
		l.Songs.GetSongsFromArtistAlbum(reply, r.AlbumID, r.Artist, r.Sort)
	case GetSongsFromGenre:
		l.Songs.GetSongsFromGenre(reply, r.Genre, r.Sort)
	case GetSongsFromPlaylist:
		l.Songs.GetSongsFromPlaylist(reply, r.MemberIDs)
	case SearchSongs:
		l.Songs.SearchSongs(reply, r.Query, r.Sort)
	case GetGenres:
		l.Genres.GetGenres(reply, r.Sort)
	case SearchGenres:
		l.Genres.SearchGenres(reply, r.Query, r.Sort)
	case GetPlaylists:
		l.Playlists.GetPlaylists(reply, r.Sort)
	case GetPlaylistsByID:
		l.Playlists.GetPlaylistsByID(reply, r.IDs, r.Sort)
	case SearchPlaylists:
		l.Playlists.SearchPlaylists(reply, r.Query, r.Sort)
	case GetArtwork:
		if !d.caps.Thumbnails {
			reply.NotImplemented()
			return
		}
		size := r.Size
		if size.X <= 0 || size.Y <= 0 {
			size = d.caps.DefaultSize
		}
		l.Images.SearchArtworkBytes(reply, r.Resource, r.ID, size)
	default:
		panic(fmt.Sprintf("delegate: unhandled read request %T", req))
	}
}

func (d *Delegate) dispatchWrite(req WriteRequest, reply models.Reply) {
	l := d.loaders.Playlists
	switch r := req.(type) {
	case CreatePlaylist:
		l.CreatePlaylist(reply, r.Name)
	case AddSongToPlaylist:
		l.AddSongToPlaylist(reply, r.PlaylistID, r.SongID)
	case RemoveSongFromPlaylist:
		l.RemoveSongFromPlaylist(reply, r.PlaylistID, r.SongID)
	case RemovePlaylist:
		l.RemovePlaylist(reply, r.PlaylistID)
	case MoveSong:
		l.MoveSong(reply, r.PlaylistID, r.From, r.To)
	default:
		panic(fmt.Sprintf("delegate: unhandled write request %T", req))
	}
}
