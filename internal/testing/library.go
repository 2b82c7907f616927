package testing

import (
	"context"
	"strconv"
	"testing"

	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/shared"
)

// SetupStore creates an in-memory media store with migrations applied
func SetupStore(t *testing.T) *mediastore.SQLiteStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return mediastore.NewSQLiteStore(db)
}

// Library holds the ids of the seeded rows, keyed by name or title.
type Library struct {
	Artists map[string]string
	Albums  map[string]string
	Songs   map[string]string
}

// SeedTracks is the fixture written by [SeedLibrary].
//
//	Alpha: First Light (2001) Aurora, Borealis; Second Wind (2005) Cyclone
//	Beta:  Night Drive (2010) Dusk, Echo, Abcde
//	Gamma: Talks (2015) Episode One (podcast)
var SeedTracks = []mediastore.AudioFile{
	{Path: "/music/alpha/first/aurora.mp3", Title: "Aurora", Album: "First Light", Artist: "Alpha", Composer: "Zed", Genre: "Rock", Year: 2001, Track: 1, DurationMS: 200000, Size: 4000},
	{Path: "/music/alpha/first/borealis.mp3", Title: "Borealis", Album: "First Light", Artist: "Alpha", Composer: "Amy", Genre: "Rock", Year: 2001, Track: 2, DurationMS: 180000, Size: 3600},
	{Path: "/music/alpha/second/cyclone.mp3", Title: "Cyclone", Album: "Second Wind", Artist: "Alpha", Genre: "Jazz", Year: 2005, Track: 1, DurationMS: 240000, Size: 4800},
	{Path: "/music/beta/night/dusk.flac", Title: "Dusk", Album: "Night Drive", Artist: "Beta", Composer: "Kim", Genre: "Jazz", Year: 2010, Track: 1, DurationMS: 150000, Size: 9000},
	{Path: "/music/beta/night/echo.flac", Title: "Echo", Album: "Night Drive", Artist: "Beta", Composer: "Lee", Genre: "Rock", Year: 2010, Track: 2, DurationMS: 300000, Size: 12000},
	{Path: "/music/beta/night/abcde.flac", Title: "Abcde", Album: "Night Drive", Artist: "Beta", Composer: "Bo", Genre: "Pop", Year: 2010, Track: 3, DurationMS: 120000, Size: 7000},
	{Path: "/podcasts/gamma/episode1.mp3", Title: "Episode One", Album: "Talks", Artist: "Gamma", Genre: "Podcast", Year: 2015, Track: 1, DurationMS: 1800000, Size: 30000, IsPodcast: true},
}

// SeedLibrary indexes [SeedTracks] into s.
func SeedLibrary(t *testing.T, s *mediastore.SQLiteStore) Library {
	t.Helper()
	ctx := context.Background()

	lib := Library{Artists: map[string]string{}, Albums: map[string]string{}, Songs: map[string]string{}}
	for _, f := range SeedTracks {
		id, err := s.IndexAudio(ctx, f)
		if err != nil {
			t.Fatalf("failed to index %s: %v", f.Path, err)
		}
		lib.Songs[f.Title] = strconv.FormatInt(id, 10)
	}

	cur, err := s.Query(ctx, mediastore.AlbumsURI, []string{"_id", "album"}, "", nil, "")
	if err != nil {
		t.Fatalf("failed to read albums: %v", err)
	}
	for cur.Next() {
		id, _ := cur.String("_id")
		name, _ := cur.String("album")
		lib.Albums[name] = id
	}

	cur, err = s.Query(ctx, mediastore.ArtistsURI, []string{"_id", "artist"}, "", nil, "")
	if err != nil {
		t.Fatalf("failed to read artists: %v", err)
	}
	for cur.Next() {
		id, _ := cur.String("_id")
		name, _ := cur.String("artist")
		lib.Artists[name] = id
	}

	return lib
}

// SetAlbumArt points the album's artwork at path.
func SetAlbumArt(t *testing.T, s *mediastore.SQLiteStore, albumID, path string) {
	t.Helper()
	n, err := s.Update(context.Background(), mediastore.ItemURI(mediastore.AlbumsURI, albumID),
		mediastore.Values{"album_art": path}, "", nil)
	if err != nil || n != 1 {
		t.Fatalf("failed to set album art (rows=%d): %v", n, err)
	}
}

// CreatePlaylist inserts a playlist with the given members and returns its id.
func CreatePlaylist(t *testing.T, s *mediastore.SQLiteStore, name string, dateAdded int64, songIDs ...string) string {
	t.Helper()
	ctx := context.Background()

	uri, err := s.Insert(ctx, mediastore.PlaylistsURI, mediastore.Values{"name": name, "date_added": dateAdded})
	if err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}
	id := uri[len(mediastore.PlaylistsURI)+1:]

	for i, songID := range songIDs {
		if _, err := s.Insert(ctx, mediastore.MembersURI(id), mediastore.Values{"audio_id": songID, "play_order": i + 1}); err != nil {
			t.Fatalf("failed to add member: %v", err)
		}
	}
	return id
}
