// Package plugin is the entry point of the media query core: it owns the main looper, the
// worker pool and the delegate for as long as it is attached, and routes calls by source.
package plugin

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/delegate"
	"github.com/desertthunder/audioquery/internal/loaders"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/desertthunder/audioquery/internal/tasks"
)

// PermissionHost is a permission service that reports results to a listener.
type PermissionHost interface {
	permissions.Service
	SetListener(fn permissions.ResultListener)
	Cancel(code int) bool
}

// Plugin routes method calls to a [delegate.Delegate] built on Attach and dropped on Detach.
type Plugin struct {
	store  mediastore.Store
	perms  PermissionHost
	config *shared.Config
	logger *log.Logger

	mu      sync.RWMutex
	session *session
}

// session is everything that lives between Attach and Detach.
type session struct {
	cancel   context.CancelFunc
	looper   *tasks.Looper
	pool     *tasks.Pool
	delegate *delegate.Delegate
}

// New creates a detached plugin.
func New(store mediastore.Store, perms PermissionHost, config *shared.Config, logger *log.Logger) *Plugin {
	if config == nil {
		config = shared.DefaultConfig()
	}
	return &Plugin{
		store:  store,
		perms:  perms,
		config: config,
		logger: shared.WithLogger(logger, "component", "plugin"),
	}
}

// Attach starts the looper and worker pool and builds the delegate. ctx bounds every store
// query made while attached. Attaching twice is an error.
func (p *Plugin) Attach(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		return fmt.Errorf("plugin is already attached")
	}

	ctx, cancel := context.WithCancel(ctx)
	looper := tasks.NewLooper(p.logger)
	pool := tasks.NewPool(p.config.Tasks.Workers, p.config.Tasks.QueueSize, p.logger)
	ex := tasks.NewDispatcher(pool, looper, p.logger)

	caps := delegate.Capabilities{
		Thumbnails:  p.config.Artwork.Thumbnails,
		DefaultSize: image.Pt(p.config.Artwork.DefaultWidth, p.config.Artwork.DefaultHeight),
	}
	d := delegate.New(loaders.New(ctx, p.store, ex, p.logger), p.perms, caps, p.logger)

	p.perms.SetListener(func(code int, granted bool) bool {
		handled := make(chan bool, 1)
		if !looper.Post(func() { handled <- d.OnPermissionResult(code, granted) }) {
			return false
		}
		return <-handled
	})

	p.session = &session{cancel: cancel, looper: looper, pool: pool, delegate: d}
	p.logger.Info("attached", "workers", p.config.Tasks.Workers, "thumbnails", caps.Thumbnails)
	return nil
}

// Detach stops accepting calls, lets queued calls and running queries finish, then drops the
// delegate. A call still waiting on a permission result replies PLUGIN_DETACHED and its
// request is withdrawn. Detaching a detached plugin does nothing. Detach must not be called from a reply.
func (p *Plugin) Detach() {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()

	if s == nil {
		return
	}
	p.perms.SetListener(nil)

	// Let already posted calls reach the pool before closing it.
	flushed := make(chan struct{})
	if s.looper.Post(func() {
		if code, ok := s.delegate.Drop(); ok {
			p.perms.Cancel(code)
		}
		close(flushed)
	}) {
		<-flushed
	}
	s.pool.Close()
	s.looper.Stop()
	s.cancel()
	p.logger.Info("detached")
}

// Attached reports whether calls are accepted.
func (p *Plugin) Attached() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session != nil
}

// OnMethodCall routes call on its source argument. The reply is delivered exactly once, on the
// looper goroutine or synchronously for a detached plugin.
func (p *Plugin) OnMethodCall(call models.Call, reply models.Reply) {
	if call.ID == "" {
		call.ID = shared.GenerateID()
	}

	p.mu.RLock()
	s := p.session
	p.mu.RUnlock()

	if s == nil || !s.looper.Post(func() { s.route(p.logger, call, reply) }) {
		p.logger.Warn("call on detached plugin", "id", call.ID, "method", call.Method)
		reply.Error(models.CodePluginDetached, shared.ErrPluginDetached.Error(), nil)
	}
}

// Call runs call and waits for its response or for ctx to end.
func (p *Plugin) Call(ctx context.Context, call models.Call) (Response, error) {
	reply := NewChannelReply()
	p.OnMethodCall(call, reply)

	select {
	case resp := <-reply.Done():
		return resp, nil
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%w: %s: %v", shared.ErrTimeout, call.Method, ctx.Err())
	}
}

func (s *session) route(logger *log.Logger, call models.Call, reply models.Reply) {
	source, ok := call.String(models.ArgSource)
	if !ok {
		reply.Error(models.CodeNoSource, "method call without a source", nil)
		return
	}
	logger.Debug("call", "id", call.ID, "source", source, "method", call.Method)

	d := s.delegate
	switch source {
	case models.SourceArtist:
		d.ArtistSourceHandler(call, reply)
	case models.SourceAlbum:
		d.AlbumSourceHandler(call, reply)
	case models.SourceSong:
		d.SongSourceHandler(call, reply)
	case models.SourceGenre:
		d.GenreSourceHandler(call, reply)
	case models.SourcePlaylist:
		d.PlaylistSourceHandler(call, reply)
	case models.SourceArtwork:
		d.ArtworkSourceHandler(call, reply)
	default:
		reply.Error(models.CodeUnknownSource, fmt.Sprintf("unknown source %q", source), nil)
	}
}
