package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/desertthunder/audioquery/internal/client"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/shared"
	tu "github.com/desertthunder/audioquery/internal/testing"
	"github.com/urfave/cli/v3"
)

func run(r *Runner, args ...string) error {
	app := &cli.Command{Name: "audioquery", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"audioquery"}, args...))
}

func seededRunner(t *testing.T) (*Runner, *bytes.Buffer, *mediastore.SQLiteStore, tu.Library) {
	t.Helper()
	store := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, store)
	output := &bytes.Buffer{}

	r := NewRunner(RunnerOpts{
		Store:  store,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
	})
	return r, output, store, lib
}

func TestBuildCall(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		json    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{
			name:   "pairs",
			source: "song",
			pairs:  []string{"sort_type=2", "query=au"},
			want:   map[string]any{"source": "song", "sort_type": "2", "query": "au"},
		},
		{
			name:  "id lists",
			pairs: []string{"song_ids=3, 1,,2", "memberIds="},
			want:  map[string]any{"song_ids": []string{"3", "1", "2"}, "memberIds": []string{}},
		},
		{
			name:   "json then pairs",
			source: "playlist",
			json:   `{"method_type": 1, "playlist_name": "A"}`,
			pairs:  []string{"playlist_name=B"},
			want:   map[string]any{"source": "playlist", "method_type": float64(1), "playlist_name": "B"},
		},
		{name: "missing equals", pairs: []string{"query"}, wantErr: true},
		{name: "empty key", pairs: []string{"=x"}, wantErr: true},
		{name: "bad json", json: `[1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, err := buildCall("m", tt.source, tt.json, tt.pairs)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if call.Method != "m" || !reflect.DeepEqual(call.Arguments, tt.want) {
				t.Errorf("buildCall() = %+v, want %v", call, tt.want)
			}
		})
	}
}

func TestCallCommand(t *testing.T) {
	t.Run("json output", func(t *testing.T) {
		r, output, _, _ := seededRunner(t)
		if err := run(r, "call", "-m", "getGenres", "-s", "genre"); err != nil {
			t.Fatalf("call failed: %v", err)
		}

		var genres []map[string]any
		if err := json.Unmarshal(output.Bytes(), &genres); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, output.String())
		}
		if len(genres) != 4 {
			t.Errorf("expected 4 genres, got %d", len(genres))
		}
	})

	t.Run("csv output", func(t *testing.T) {
		r, output, _, lib := seededRunner(t)
		err := run(r, "call", "-m", "getSongsById", "-s", "song", "-f", "csv",
			"-a", "song_ids="+lib.Songs["Echo"]+","+lib.Songs["Aurora"])
		if err != nil {
			t.Fatalf("call failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(output.String()), "\n")
		if len(lines) != 3 || !strings.HasPrefix(lines[0], "_id,title,artist,album") {
			t.Fatalf("unexpected CSV:\n%s", output.String())
		}
		if !strings.Contains(output.String(), "Echo") || !strings.Contains(output.String(), "Aurora") {
			t.Errorf("expected both songs, got:\n%s", output.String())
		}
	})

	t.Run("error reply", func(t *testing.T) {
		r, _, _, _ := seededRunner(t)
		err := run(r, "call", "-m", "getSongsFromAlbum", "-s", "song")
		if err == nil || !strings.Contains(err.Error(), models.CodeInvalidArgument) {
			t.Errorf("expected %s, got %v", models.CodeInvalidArgument, err)
		}
	})

	t.Run("not implemented", func(t *testing.T) {
		r, _, _, _ := seededRunner(t)
		if err := run(r, "call", "-m", "getLyrics", "-s", "song"); !errors.Is(err, shared.ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	})

	t.Run("prompt is denied locally", func(t *testing.T) {
		r, _, _, _ := seededRunner(t)
		r.config.Permissions.Write = false
		r.config.Permissions.OnRequest = shared.PolicyPrompt

		err := run(r, "call", "-m", "createPlaylist", "-s", "playlist", "-a", "method_type=1", "-a", "playlist_name=Mix")
		if err == nil || !strings.Contains(err.Error(), models.CodePermissionDenied) {
			t.Errorf("expected %s, got %v", models.CodePermissionDenied, err)
		}
	})

	t.Run("granted write", func(t *testing.T) {
		r, output, _, _ := seededRunner(t)
		r.config.Permissions.Write = true

		err := run(r, "call", "-m", "createPlaylist", "-s", "playlist", "-f", "text",
			"-a", "method_type=1", "-a", "playlist_name=Mix")
		if err != nil {
			t.Fatalf("call failed: %v", err)
		}
		if !strings.Contains(output.String(), "Results: 1") || !strings.Contains(output.String(), "Mix") {
			t.Errorf("unexpected output:\n%s", output.String())
		}
	})

	t.Run("artwork to file", func(t *testing.T) {
		r, output, store, lib := seededRunner(t)
		dir := t.TempDir()
		art := filepath.Join(dir, "cover.png")
		tu.WritePNG(t, art, 40, 40)
		tu.SetAlbumArt(t, store, lib.Albums["Night Drive"], art)

		out := filepath.Join(dir, "thumb.png")
		err := run(r, "call", "-m", "getArtwork", "-s", "artwork", "-o", out,
			"-a", "resource=1", "-a", "id="+lib.Albums["Night Drive"], "-a", "width=10", "-a", "height=10")
		if err != nil {
			t.Fatalf("call failed: %v", err)
		}
		tu.AssertFileExists(t, out)
		if !strings.Contains(output.String(), "Artwork written to") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("bad format", func(t *testing.T) {
		r, _, _, _ := seededRunner(t)
		if err := run(r, "call", "-m", "getGenres", "-s", "genre", "-f", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestScanCommand(t *testing.T) {
	store := tu.SetupStore(t)
	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{Store: store, Logger: shared.NewLogger(io.Discard), Output: output})
	r.config.Scanner.ArtworkDir = ""

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "track.flac"), []byte("untagged"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := run(r, "scan", "--root", root); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(output.String(), "Indexed 1 of 1 files") {
		t.Errorf("unexpected output:\n%s", output.String())
	}
	if n, _ := store.Count(context.Background()); n != 1 {
		t.Errorf("expected 1 indexed track, got %d", n)
	}

	t.Run("missing root", func(t *testing.T) {
		if err := run(r, "scan", "--root", filepath.Join(root, "missing")); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestSetupCommands(t *testing.T) {
	dir := t.TempDir()
	output := &bytes.Buffer{}
	r := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})

	configPath := filepath.Join(dir, "config.toml")
	if err := run(r, "setup", "config", "-o", configPath); err != nil {
		t.Fatalf("setup config failed: %v", err)
	}
	tu.AssertFileExists(t, configPath)

	if err := run(r, "setup", "config", "-o", configPath); err == nil {
		t.Error("expected an error when the config already exists")
	}

	content := strings.Replace(tu.MustReadFile(t, configPath), `path = "./audioquery.db"`,
		`path = "`+filepath.Join(dir, "media.db")+`"`, 1)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	if err := run(r, "setup", "database", "-c", configPath); err != nil {
		t.Fatalf("setup database failed: %v", err)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "media.db"))
	if !strings.Contains(output.String(), "Database ready") {
		t.Errorf("unexpected output:\n%s", output.String())
	}
}

func TestPermissionCommands(t *testing.T) {
	var resolved map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/permission":
			w.Write([]byte(`{"pending":[{"request_code":2,"permission":"WRITE_EXTERNAL_STORAGE"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/permission":
			json.NewDecoder(r.Body).Decode(&resolved)
			w.Write([]byte(`{"handled":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"NOT_FOUND"}}`))
		}
	}))
	defer srv.Close()

	newRunner := func() (*Runner, *bytes.Buffer) {
		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{
			Client: client.New(srv.URL, nil),
			Logger: shared.NewLogger(io.Discard),
			Output: output,
		}), output
	}

	t.Run("pending", func(t *testing.T) {
		r, output := newRunner()
		if err := run(r, "permission", "pending"); err != nil {
			t.Fatalf("pending failed: %v", err)
		}
		if !strings.Contains(output.String(), "2  WRITE_EXTERNAL_STORAGE") {
			t.Errorf("unexpected output:\n%s", output.String())
		}
	})

	t.Run("resolve deny", func(t *testing.T) {
		r, output := newRunner()
		if err := run(r, "permission", "resolve", "--code", "2", "--deny"); err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if resolved["request_code"] != float64(2) || resolved["granted"] != false {
			t.Errorf("unexpected request body %v", resolved)
		}
		if !strings.Contains(output.String(), "Denied request 2") {
			t.Errorf("unexpected output:\n%s", output.String())
		}
	})

	t.Run("api get", func(t *testing.T) {
		r, output := newRunner()
		if err := run(r, "api", "get", "/permission"); err != nil {
			t.Fatalf("api get failed: %v", err)
		}
		if !strings.Contains(output.String(), `"pending"`) {
			t.Errorf("unexpected output:\n%s", output.String())
		}

		if err := run(r, "api", "get", "/missing"); !errors.Is(err, shared.ErrUnexpectedResponse) {
			t.Errorf("expected ErrUnexpectedResponse, got %v", err)
		}
	})

	t.Run("api post invalid json", func(t *testing.T) {
		r, _ := newRunner()
		if err := run(r, "api", "post", "/call", "--data", "{"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
