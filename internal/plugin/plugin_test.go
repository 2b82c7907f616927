package plugin

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/permissions"
	"github.com/desertthunder/audioquery/internal/shared"
	tu "github.com/desertthunder/audioquery/internal/testing"
)

func setupPlugin(t *testing.T, pc shared.PermissionsConfig) (*Plugin, *permissions.Manager, tu.Library) {
	t.Helper()
	s := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, s)

	logger := shared.NewLogger(io.Discard)
	config := shared.DefaultConfig()
	config.Permissions = pc
	perms := permissions.NewManager(pc, logger)

	p := New(s, perms, config, logger)
	if err := p.Attach(context.Background()); err != nil {
		t.Fatalf("failed to attach: %v", err)
	}
	t.Cleanup(p.Detach)
	return p, perms, lib
}

func call(source, method string, args map[string]any) models.Call {
	c := models.NewCall(method, args)
	if source != "" {
		c.Arguments[models.ArgSource] = source
	}
	return c
}

func mustCall(t *testing.T, p *Plugin, c models.Call) Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := p.Call(ctx, c)
	if err != nil {
		t.Fatalf("call %s failed: %v", c.Method, err)
	}
	return resp
}

func TestPluginRouting(t *testing.T) {
	p, _, _ := setupPlugin(t, shared.PermissionsConfig{Read: true, Write: true, OnRequest: shared.PolicyDeny})

	tests := []struct {
		name     string
		call     models.Call
		wantCode string
	}{
		{name: "artist", call: call(models.SourceArtist, "getArtists", nil)},
		{name: "album", call: call(models.SourceAlbum, "getAlbums", nil)},
		{name: "song", call: call(models.SourceSong, "getSongs", nil)},
		{name: "genre", call: call(models.SourceGenre, "getGenres", nil)},
		{name: "playlist", call: call(models.SourcePlaylist, "getPlaylists", map[string]any{models.ArgMethodType: 0})},
		{name: "missing source", call: call("", "getSongs", nil), wantCode: models.CodeNoSource},
		{name: "unknown source", call: call("video", "getVideos", nil), wantCode: models.CodeUnknownSource},
		{name: "unknown method", call: call(models.SourceSong, "getLyrics", nil), wantCode: models.CodeNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := mustCall(t, p, tt.call)
			if resp.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q (%s)", resp.Code, tt.wantCode, resp.Message)
			}
			if tt.wantCode == "" {
				if _, ok := resp.Value.([]models.Record); !ok {
					t.Errorf("value is %T, want records", resp.Value)
				}
			}
		})
	}
}

func TestPluginPermissionPolicies(t *testing.T) {
	t.Run("grant policy resumes the call", func(t *testing.T) {
		p, perms, _ := setupPlugin(t, shared.PermissionsConfig{OnRequest: shared.PolicyGrant})

		resp := mustCall(t, p, call(models.SourceGenre, "getGenres", nil))
		if resp.Failed() {
			t.Fatalf("call failed: %v", resp.Err())
		}
		if !perms.IsGranted(permissions.ReadExternalStorage) {
			t.Error("grant should be remembered")
		}
	})

	t.Run("deny policy fails the call", func(t *testing.T) {
		p, _, _ := setupPlugin(t, shared.PermissionsConfig{OnRequest: shared.PolicyDeny})

		resp := mustCall(t, p, call(models.SourceGenre, "getGenres", nil))
		if resp.Code != models.CodePermissionDenied {
			t.Errorf("code = %q, want %q", resp.Code, models.CodePermissionDenied)
		}
	})

	t.Run("prompt holds the call until resolved", func(t *testing.T) {
		p, perms, lib := setupPlugin(t, shared.PermissionsConfig{Read: true, OnRequest: shared.PolicyPrompt})

		first := NewChannelReply()
		p.OnMethodCall(call(models.SourcePlaylist, "createPlaylist", map[string]any{
			models.ArgMethodType:   1,
			models.ArgPlaylistName: "Held",
		}), first)

		deadline := time.Now().Add(2 * time.Second)
		for len(perms.Pending()) == 0 {
			if time.Now().After(deadline) {
				t.Fatal("permission was never requested")
			}
			time.Sleep(5 * time.Millisecond)
		}

		busy := mustCall(t, p, call(models.SourceSong, "getSongsById", map[string]any{models.ArgSongIDs: []any{lib.Songs["Echo"]}}))
		if busy.Code != models.CodeAlreadyActive {
			t.Errorf("code = %q, want %q", busy.Code, models.CodeAlreadyActive)
		}

		handled, err := perms.Resolve(permissions.WriteRequestCode, true)
		if err != nil || !handled {
			t.Fatalf("Resolve() = %v, %v", handled, err)
		}

		select {
		case resp := <-first.Done():
			rec, ok := resp.Value.(models.Record)
			if !ok || rec["name"] != "Held" {
				t.Errorf("create replied %+v", resp)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("held call never replied")
		}
	})
}

func TestPluginLifecycle(t *testing.T) {
	s := tu.SetupStore(t)
	logger := shared.NewLogger(io.Discard)
	perms := permissions.NewManager(shared.PermissionsConfig{Read: true}, logger)
	p := New(s, perms, nil, logger)

	resp := mustCall(t, p, call(models.SourceGenre, "getGenres", nil))
	if resp.Code != models.CodePluginDetached {
		t.Errorf("code before attach = %q, want %q", resp.Code, models.CodePluginDetached)
	}

	if err := p.Attach(context.Background()); err != nil {
		t.Fatalf("failed to attach: %v", err)
	}
	if err := p.Attach(context.Background()); err == nil {
		t.Error("expected a second attach to fail")
	}

	resp = mustCall(t, p, call(models.SourceGenre, "getGenres", nil))
	if resp.Failed() {
		t.Fatalf("call failed: %v", resp.Err())
	}

	p.Detach()
	p.Detach()
	if p.Attached() {
		t.Error("expected plugin to be detached")
	}

	resp = mustCall(t, p, call(models.SourceGenre, "getGenres", nil))
	if resp.Code != models.CodePluginDetached {
		t.Errorf("code after detach = %q, want %q", resp.Code, models.CodePluginDetached)
	}
}

func TestDetachFailsHeldCall(t *testing.T) {
	s := tu.SetupStore(t)
	logger := shared.NewLogger(io.Discard)
	pc := shared.PermissionsConfig{Read: true, OnRequest: shared.PolicyPrompt}
	perms := permissions.NewManager(pc, logger)
	p := New(s, perms, nil, logger)
	if err := p.Attach(context.Background()); err != nil {
		t.Fatalf("failed to attach: %v", err)
	}

	held := NewChannelReply()
	p.OnMethodCall(call(models.SourcePlaylist, "createPlaylist", map[string]any{
		models.ArgMethodType:   1,
		models.ArgPlaylistName: "Held",
	}), held)

	deadline := time.Now().Add(2 * time.Second)
	for len(perms.Pending()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("permission was never requested")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.Detach()

	select {
	case resp := <-held.Done():
		if resp.Code != models.CodePluginDetached {
			t.Errorf("held call replied %+v, want %q", resp, models.CodePluginDetached)
		}
	case <-time.After(time.Second):
		t.Fatal("held call never replied after Detach")
	}

	if pending := perms.Pending(); len(pending) != 0 {
		t.Errorf("manager still holds %+v", pending)
	}
}

func TestChannelReply(t *testing.T) {
	r := NewChannelReply()
	r.Error(models.CodeNoID, "id is required", nil)
	r.Success("late")
	r.NotImplemented()

	resp := <-r.Done()
	if resp.Code != models.CodeNoID || resp.Value != nil {
		t.Errorf("response = %+v, want the first delivery only", resp)
	}
	select {
	case extra := <-r.Done():
		t.Errorf("unexpected second response %+v", extra)
	default:
	}

	if err := resp.Err(); err == nil {
		t.Error("expected an error")
	}
}

func TestCallTimeout(t *testing.T) {
	p, _, _ := setupPlugin(t, shared.PermissionsConfig{OnRequest: shared.PolicyPrompt})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Call(ctx, call(models.SourceGenre, "getGenres", nil))
	if !errors.Is(err, shared.ErrTimeout) {
		t.Errorf("error = %v, want %v", err, shared.ErrTimeout)
	}
}
