package mediastore_test

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/desertthunder/audioquery/internal/mediastore"
	tu "github.com/desertthunder/audioquery/internal/testing"
)

func members(t *testing.T, s *mediastore.SQLiteStore, playlistID string) []string {
	t.Helper()
	cur, err := s.Query(context.Background(), mediastore.MembersURI(playlistID), []string{"audio_id", "play_order"}, "", nil, "")
	if err != nil {
		t.Fatalf("failed to query members: %v", err)
	}
	var ids []string
	for i := 1; cur.Next(); i++ {
		id, _ := cur.String("audio_id")
		order, _ := cur.Int("play_order")
		if order != int64(i) {
			t.Errorf("play_order not dense: member %d has order %d", i, order)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestSQLiteStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, s)

	t.Run("selection and sort", func(t *testing.T) {
		cur, err := s.Query(ctx, mediastore.AudioURI, []string{"_id", "title"}, "artist = ?", []any{"Beta"}, "title_key")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		var titles []string
		for cur.Next() {
			title, err := cur.String("title")
			if err != nil {
				t.Fatalf("failed to read title: %v", err)
			}
			titles = append(titles, title)
		}
		if want := []string{"Abcde", "Dusk", "Echo"}; !reflect.DeepEqual(titles, want) {
			t.Errorf("titles = %v, want %v", titles, want)
		}
	})

	t.Run("item uri", func(t *testing.T) {
		cur, err := s.Query(ctx, mediastore.ItemURI(mediastore.AudioURI, lib.Songs["Echo"]), []string{"title", "is_music"}, "", nil, "")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if cur.Count() != 1 || !cur.Next() {
			t.Fatalf("expected exactly one row, got %d", cur.Count())
		}
		if flag, _ := cur.Int("is_music"); flag != 1 {
			t.Errorf("is_music = %d, want 1", flag)
		}
	})

	t.Run("views", func(t *testing.T) {
		cur, err := s.Query(ctx, mediastore.ArtistsURI, []string{"artist", "number_of_tracks", "number_of_albums"}, "artist = ?", []any{"Alpha"}, "")
		if err != nil || !cur.Next() {
			t.Fatalf("artist query failed: %v", err)
		}
		tracks, _ := cur.Int("number_of_tracks")
		albums, _ := cur.Int("number_of_albums")
		if tracks != 3 || albums != 2 {
			t.Errorf("Alpha tracks=%d albums=%d, want 3 and 2", tracks, albums)
		}

		cur, err = s.Query(ctx, mediastore.GenresURI, []string{"DISTINCT name"}, "", nil, "name ASC")
		if err != nil {
			t.Fatalf("genre query failed: %v", err)
		}
		var genres []string
		for cur.Next() {
			g, _ := cur.String("name")
			genres = append(genres, g)
		}
		if want := []string{"Jazz", "Podcast", "Pop", "Rock"}; !reflect.DeepEqual(genres, want) {
			t.Errorf("genres = %v, want %v", genres, want)
		}
	})

	t.Run("count projection", func(t *testing.T) {
		cur, err := s.Query(ctx, mediastore.AudioURI, []string{"count(*)"}, "", nil, "")
		if err != nil || !cur.Next() {
			t.Fatalf("count query failed: %v", err)
		}
		if n, _ := cur.IntAt(0); n != int64(len(tu.SeedTracks)) {
			t.Errorf("count = %d, want %d", n, len(tu.SeedTracks))
		}
	})

	t.Run("bad sql surfaces an error", func(t *testing.T) {
		if _, err := s.Query(ctx, mediastore.AudioURI, nil, "no_such_column = ?", []any{1}, ""); err == nil {
			t.Error("expected error for unknown column")
		}
	})

	t.Run("cursor errors", func(t *testing.T) {
		cur, _ := s.Query(ctx, mediastore.AudioURI, []string{"title"}, "", nil, "")
		if _, err := cur.Value("title"); !errors.Is(err, mediastore.ErrNoRow) {
			t.Errorf("reading before Next should fail with ErrNoRow, got %v", err)
		}
		cur.Next()
		if _, err := cur.Value("missing"); !errors.Is(err, mediastore.ErrColumnNotFound) {
			t.Errorf("expected ErrColumnNotFound, got %v", err)
		}
		if _, err := cur.Int("title"); err == nil {
			t.Error("non numeric column should not read as int")
		}
		cur.Close()
		if cur.Next() {
			t.Error("closed cursor should be empty")
		}
	})
}

func TestSQLiteStoreWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("genres are read only", func(t *testing.T) {
		s := tu.SetupStore(t)
		if _, err := s.Insert(ctx, mediastore.GenresURI, mediastore.Values{"name": "Ska"}); !errors.Is(err, mediastore.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", err)
		}
	})

	t.Run("insert returns item uri", func(t *testing.T) {
		s := tu.SetupStore(t)
		uri, err := s.Insert(ctx, mediastore.PlaylistsURI, mediastore.Values{"name": "Mix", "date_added": 10})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if uri != mediastore.ItemURI(mediastore.PlaylistsURI, "1") {
			t.Errorf("uri = %q", uri)
		}
		if _, err := s.Insert(ctx, mediastore.PlaylistsURI, mediastore.Values{"bad column": 1}); !errors.Is(err, mediastore.ErrInvalidColumn) {
			t.Errorf("expected ErrInvalidColumn, got %v", err)
		}
	})

	t.Run("update", func(t *testing.T) {
		s := tu.SetupStore(t)
		id := tu.CreatePlaylist(t, s, "Old", 1)
		n, err := s.Update(ctx, mediastore.ItemURI(mediastore.PlaylistsURI, id), mediastore.Values{"name": "New"}, "", nil)
		if err != nil || n != 1 {
			t.Fatalf("update = %d, %v", n, err)
		}
		cur, _ := s.Query(ctx, mediastore.PlaylistsURI, []string{"name"}, "_id = ?", []any{id}, "")
		cur.Next()
		if name, _ := cur.String("name"); name != "New" {
			t.Errorf("name = %q, want New", name)
		}
	})

	t.Run("member delete renumbers", func(t *testing.T) {
		s := tu.SetupStore(t)
		lib := tu.SeedLibrary(t, s)
		id := tu.CreatePlaylist(t, s, "Mix", 1, lib.Songs["Aurora"], lib.Songs["Dusk"], lib.Songs["Echo"])

		n, err := s.Delete(ctx, mediastore.MembersURI(id), "audio_id = ?", []any{lib.Songs["Aurora"]})
		if err != nil || n != 1 {
			t.Fatalf("delete = %d, %v", n, err)
		}
		if got, want := members(t, s, id), []string{lib.Songs["Dusk"], lib.Songs["Echo"]}; !reflect.DeepEqual(got, want) {
			t.Errorf("members = %v, want %v", got, want)
		}
	})

	t.Run("playlist delete removes members", func(t *testing.T) {
		s := tu.SetupStore(t)
		lib := tu.SeedLibrary(t, s)
		id := tu.CreatePlaylist(t, s, "Mix", 1, lib.Songs["Aurora"])

		n, err := s.Delete(ctx, mediastore.PlaylistsURI, "_id = ?", []any{id})
		if err != nil || n != 1 {
			t.Fatalf("delete = %d, %v", n, err)
		}
		if got := members(t, s, id); len(got) != 0 {
			t.Errorf("members should be gone, got %v", got)
		}

		n, err = s.Delete(ctx, mediastore.PlaylistsURI, "_id = ?", []any{id})
		if err != nil || n != 0 {
			t.Errorf("second delete = %d, %v; want 0, nil", n, err)
		}
	})
}

func TestMoveMember(t *testing.T) {
	ctx := context.Background()
	s := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, s)
	a, b, c, d := lib.Songs["Aurora"], lib.Songs["Borealis"], lib.Songs["Cyclone"], lib.Songs["Dusk"]

	tc := []struct {
		name     string
		from, to int
		ok       bool
		want     []string
	}{
		{name: "forward", from: 0, to: 2, ok: true, want: []string{b, c, a, d}},
		{name: "backward", from: 3, to: 0, ok: true, want: []string{d, a, b, c}},
		{name: "same position", from: 1, to: 1, ok: true, want: []string{a, b, c, d}},
		{name: "out of range", from: 0, to: 4, ok: false, want: []string{a, b, c, d}},
		{name: "negative", from: -1, to: 0, ok: false, want: []string{a, b, c, d}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			id := tu.CreatePlaylist(t, s, tt.name, 1, a, b, c, d)
			ok, err := s.MoveMember(ctx, id, tt.from, tt.to)
			if err != nil {
				t.Fatalf("move failed: %v", err)
			}
			if ok != tt.ok {
				t.Errorf("MoveMember() = %v, want %v", ok, tt.ok)
			}
			if got := members(t, s, id); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("members = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNotifyChange(t *testing.T) {
	s := tu.SetupStore(t)

	var seen []string
	unregister := s.RegisterObserver(func(uri string) { seen = append(seen, uri) })
	s.NotifyChange(mediastore.ChangeURI)
	unregister()
	s.NotifyChange(mediastore.ChangeURI)

	if len(seen) != 1 || seen[0] != mediastore.ChangeURI {
		t.Errorf("observer saw %v, want one notification", seen)
	}
}

func TestIndexAndPrune(t *testing.T) {
	ctx := context.Background()
	s := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, s)

	t.Run("reindex keeps id", func(t *testing.T) {
		f := tu.SeedTracks[0]
		f.Title = "Aurora (Remaster)"
		id, err := s.IndexAudio(ctx, f)
		if err != nil {
			t.Fatalf("reindex failed: %v", err)
		}
		if got := lib.Songs["Aurora"]; got != itoa(id) {
			t.Errorf("reindex changed id from %s to %d", got, id)
		}
	})

	t.Run("unknown tags", func(t *testing.T) {
		id, err := s.IndexAudio(ctx, mediastore.AudioFile{Path: "/music/loose/track07.ogg"})
		if err != nil {
			t.Fatalf("index failed: %v", err)
		}
		cur, _ := s.Query(ctx, mediastore.ItemURI(mediastore.AudioURI, itoa(id)), []string{"title", "artist", "album", "_display_name"}, "", nil, "")
		cur.Next()
		title, _ := cur.String("title")
		artist, _ := cur.String("artist")
		name, _ := cur.String("_display_name")
		if title != "track07" || artist != mediastore.UnknownName || name != "track07.ogg" {
			t.Errorf("got title=%q artist=%q display=%q", title, artist, name)
		}
	})

	t.Run("prune removes orphans", func(t *testing.T) {
		id := tu.CreatePlaylist(t, s, "Mix", 1, lib.Songs["Cyclone"], lib.Songs["Dusk"])

		n, err := s.RemovePaths(ctx, []string{"/music/alpha/second/cyclone.mp3"})
		if err != nil || n != 1 {
			t.Fatalf("RemovePaths = %d, %v", n, err)
		}
		if got := members(t, s, id); !reflect.DeepEqual(got, []string{lib.Songs["Dusk"]}) {
			t.Errorf("members = %v, want only Dusk", got)
		}
		cur, _ := s.Query(ctx, mediastore.AlbumsURI, []string{"_id"}, "album = ?", []any{"Second Wind"}, "")
		if cur.Count() != 0 {
			t.Error("album without tracks should be removed")
		}
		cur, _ = s.Query(ctx, mediastore.ArtistsURI, []string{"_id"}, "artist = ?", []any{"Alpha"}, "")
		if cur.Count() != 1 {
			t.Error("artist with remaining tracks should stay")
		}
	})
}

func TestLoadThumbnail(t *testing.T) {
	ctx := context.Background()
	s := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, s)

	art := filepath.Join(t.TempDir(), "cover.png")
	tu.WritePNG(t, art, 300, 300)
	tu.SetAlbumArt(t, s, lib.Albums["First Light"], art)

	t.Run("falls back to album art", func(t *testing.T) {
		img, err := s.LoadThumbnail(ctx, mediastore.ItemURI(mediastore.AudioURI, lib.Songs["Aurora"]), image.Pt(100, 100))
		if err != nil {
			t.Fatalf("LoadThumbnail failed: %v", err)
		}
		if got := img.Bounds().Size(); got != image.Pt(100, 100) {
			t.Errorf("size = %v, want 100x100", got)
		}
	})

	t.Run("no artwork is recoverable", func(t *testing.T) {
		_, err := s.LoadThumbnail(ctx, mediastore.ItemURI(mediastore.AudioURI, lib.Songs["Dusk"]), image.Pt(100, 100))
		if !errors.Is(err, mediastore.ErrThumbnailIO) {
			t.Errorf("expected ErrThumbnailIO, got %v", err)
		}
	})

	t.Run("unknown track", func(t *testing.T) {
		_, err := s.LoadThumbnail(ctx, mediastore.ItemURI(mediastore.AudioURI, "999"), image.Pt(10, 10))
		if !errors.Is(err, mediastore.ErrThumbnailIO) {
			t.Errorf("expected ErrThumbnailIO, got %v", err)
		}
	})

	t.Run("non track uri", func(t *testing.T) {
		_, err := s.LoadThumbnail(ctx, mediastore.AlbumsURI, image.Pt(10, 10))
		if !errors.Is(err, mediastore.ErrThumbnailIO) {
			t.Errorf("expected ErrThumbnailIO, got %v", err)
		}
	})
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestLibraryHelpers(t *testing.T) {
	ctx := context.Background()
	s := tu.SetupStore(t)
	lib := tu.SeedLibrary(t, s)

	n, err := s.Count(ctx)
	if err != nil || n != int64(len(tu.SeedTracks)) {
		t.Fatalf("Count() = %d, %v", n, err)
	}

	paths, err := s.Paths(ctx)
	if err != nil {
		t.Fatalf("Paths() failed: %v", err)
	}
	if len(paths) != len(tu.SeedTracks) || paths[0] != "/music/alpha/first/aurora.mp3" {
		t.Errorf("Paths() = %v", paths)
	}

	songID, _ := strconv.ParseInt(lib.Songs["Dusk"], 10, 64)
	albumID, err := s.AlbumOf(ctx, songID)
	if err != nil || itoa(albumID) != lib.Albums["Night Drive"] {
		t.Fatalf("AlbumOf() = %d, %v", albumID, err)
	}

	if art, err := s.AlbumArt(ctx, albumID); err != nil || art != "" {
		t.Errorf("AlbumArt() before set = %q, %v", art, err)
	}
	if err := s.SetAlbumArt(ctx, albumID, "/art/night.png"); err != nil {
		t.Fatalf("SetAlbumArt() failed: %v", err)
	}
	if art, _ := s.AlbumArt(ctx, albumID); art != "/art/night.png" {
		t.Errorf("AlbumArt() = %q", art)
	}
}
