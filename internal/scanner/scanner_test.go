package scanner

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/desertthunder/audioquery/internal/tasks"
	tu "github.com/desertthunder/audioquery/internal/testing"
)

// textFrame encodes an ID3v2.3 text frame in ISO-8859-1.
func textFrame(id, text string) []byte {
	data := append([]byte{0}, text...)
	b := []byte(id)
	b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
	b = append(b, 0, 0)
	return append(b, data...)
}

// pictureFrame encodes an ID3v2.3 APIC frame holding a front cover.
func pictureFrame(mime string, pic []byte) []byte {
	data := []byte{0}
	data = append(data, mime...)
	data = append(data, 0, 3, 0)
	data = append(data, pic...)

	b := []byte("APIC")
	b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
	b = append(b, 0, 0)
	return append(b, data...)
}

// writeMP3 writes an ID3v2.3 tag with frames followed by a few bytes of silence.
func writeMP3(t *testing.T, path string, frames ...[]byte) {
	t.Helper()
	var body []byte
	for _, f := range frames {
		body = append(body, f...)
	}
	size := len(body)
	header := []byte{'I', 'D', '3', 3, 0, 0,
		byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)}

	content := append(header, body...)
	content = append(content, 0xFF, 0xFB, 0x90, 0x00)
	content = append(content, make([]byte, 128)...)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{R: 10, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func tagged(title, artist, album, genre, track string) [][]byte {
	return [][]byte{
		textFrame("TIT2", title),
		textFrame("TPE1", artist),
		textFrame("TALB", album),
		textFrame("TCON", genre),
		textFrame("TRCK", track),
		textFrame("TYER", "1999"),
		textFrame("TCOM", "Writer"),
	}
}

func TestIsAudio(t *testing.T) {
	dir := t.TempDir()
	writeMP3(t, filepath.Join(dir, "song.mp3"))
	writeMP3(t, filepath.Join(dir, "sniffed.bin"))
	writeFile(t, filepath.Join(dir, "notes.bin"), "just some text that is long enough to sniff")
	writeFile(t, filepath.Join(dir, "cover.jpg"), "not really a jpeg")
	writeFile(t, filepath.Join(dir, "upper.FLAC"), "")

	tests := []struct {
		name string
		want bool
	}{
		{"song.mp3", true},
		{"sniffed.bin", true},
		{"notes.bin", false},
		{"cover.jpg", false},
		{"upper.FLAC", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsAudio(filepath.Join(dir, tt.name))
			if err != nil {
				t.Fatalf("IsAudio failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsAudio(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := IsAudio(filepath.Join(dir, "missing.bin")); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writeMP3(t, filepath.Join(root, "b", "two.mp3"))
	writeMP3(t, filepath.Join(root, "a", "one.mp3"))
	writeMP3(t, filepath.Join(root, ".cache", "hidden.mp3"))
	writeFile(t, filepath.Join(root, "a", "cover.png"), "x")

	got, err := Walk(context.Background(), root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	want := []string{filepath.Join(root, "a", "one.mp3"), filepath.Join(root, "b", "two.mp3")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Walk() = %v, want %v", got, want)
	}

	t.Run("missing root", func(t *testing.T) {
		if _, err := Walk(context.Background(), filepath.Join(root, "nope")); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("file root", func(t *testing.T) {
		if _, err := Walk(context.Background(), want[0]); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("tagged", func(t *testing.T) {
		path := filepath.Join(dir, "tagged.mp3")
		writeMP3(t, path, tagged("Song", "Band", "Record", "Rock", "3/10")...)

		f, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if f.Title != "Song" || f.Artist != "Band" || f.Album != "Record" || f.Genre != "Rock" {
			t.Errorf("unexpected tags %+v", f)
		}
		if f.Track != 3 || f.Year != 1999 || f.Composer != "Writer" {
			t.Errorf("unexpected numbers %+v", f)
		}
		if f.Size == 0 || f.IsPodcast {
			t.Errorf("unexpected file info %+v", f)
		}
	})

	t.Run("podcast", func(t *testing.T) {
		path := filepath.Join(dir, "show.mp3")
		writeMP3(t, path, tagged("Ep", "Host", "Show", "Podcast", "1")...)

		f, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if !f.IsPodcast {
			t.Error("expected a podcast")
		}
	})

	t.Run("untagged", func(t *testing.T) {
		path := filepath.Join(dir, "raw.flac")
		writeFile(t, path, "no tags here")

		f, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if f.Title != "" || f.Artist != "" || f.Path != path {
			t.Errorf("unexpected entry %+v", f)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := ReadFile(filepath.Join(dir, "missing.mp3")); err == nil {
			t.Error("expected an error")
		}
	})
}

func trackID(t *testing.T, s *mediastore.SQLiteStore, path string) int64 {
	t.Helper()
	cur, err := s.Query(context.Background(), mediastore.AudioURI, []string{"_id"}, "_data = ?", []any{path}, "")
	if err != nil {
		t.Fatalf("failed to query track: %v", err)
	}
	if !cur.Next() {
		t.Fatalf("track %s was not indexed", path)
	}
	id, _ := cur.String("_id")
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		t.Fatalf("bad id %q: %v", id, err)
	}
	return n
}

func TestScan(t *testing.T) {
	ctx := context.Background()
	s := tu.SetupStore(t)
	root := t.TempDir()
	artDir := filepath.Join(t.TempDir(), "art")
	cover := pngBytes(t)

	first := filepath.Join(root, "band", "record", "01.mp3")
	second := filepath.Join(root, "band", "record", "02.mp3")
	loose := filepath.Join(root, "loose.flac")

	writeMP3(t, first, append(tagged("One", "Band", "Record", "Rock", "1"), pictureFrame("image/png", cover))...)
	writeMP3(t, second, append(tagged("Two", "Band", "Record", "Rock", "2"), pictureFrame("image/png", cover))...)
	writeFile(t, loose, "untagged audio")

	changes := 0
	s.RegisterObserver(func(string) { changes++ })

	prog := make(chan tasks.ProgressUpdate, 64)
	sc := New(s, Options{Roots: []string{root}, ArtworkDir: artDir, Workers: 2}, shared.NewLogger(io.Discard))

	res, err := sc.Scan(ctx, prog)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Found != 3 || res.Indexed != 3 || len(res.Failed) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Artwork != 1 {
		t.Errorf("expected artwork extracted once, got %d", res.Artwork)
	}
	if changes != 1 {
		t.Errorf("expected one change notification, got %d", changes)
	}

	albumID, err := s.AlbumOf(ctx, trackID(t, s, first))
	if err != nil {
		t.Fatalf("AlbumOf failed: %v", err)
	}
	art, err := s.AlbumArt(ctx, albumID)
	if err != nil {
		t.Fatalf("AlbumArt failed: %v", err)
	}
	if filepath.Ext(art) != ".png" {
		t.Errorf("unexpected artwork path %q", art)
	}
	if got := tu.MustReadFile(t, art); got != string(cover) {
		t.Error("artwork file does not hold the embedded picture")
	}

	cur, err := s.Query(ctx, mediastore.AudioURI, []string{"title", "artist"}, "_data = ?", []any{loose}, "")
	if err != nil || !cur.Next() {
		t.Fatalf("untagged file not indexed: %v", err)
	}
	if title, _ := cur.String("title"); title != "loose" {
		t.Errorf("expected title from file name, got %q", title)
	}
	if artist, _ := cur.String("artist"); artist != mediastore.UnknownName {
		t.Errorf("expected unknown artist, got %q", artist)
	}

	close(prog)
	phases := map[tasks.Phase]int{}
	for u := range prog {
		phases[u.Phase]++
	}
	if phases[tasks.ScanWalk] != 1 || phases[tasks.ScanIndex] != 3 || phases[tasks.ScanArtwork] != 1 {
		t.Errorf("unexpected progress %v", phases)
	}

	t.Run("rescan keeps artwork", func(t *testing.T) {
		res, err := sc.Scan(ctx, nil)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if res.Indexed != 3 || res.Artwork != 0 {
			t.Errorf("unexpected result %+v", res)
		}
		if n, _ := s.Count(ctx); n != 3 {
			t.Errorf("expected 3 tracks after rescan, got %d", n)
		}
	})

	t.Run("prune", func(t *testing.T) {
		if err := os.Remove(second); err != nil {
			t.Fatalf("failed to remove file: %v", err)
		}

		pruning := New(s, Options{Roots: []string{root}, Prune: true}, shared.NewLogger(io.Discard))
		res, err := pruning.Scan(ctx, nil)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if res.Pruned != 1 {
			t.Errorf("expected 1 pruned track, got %d", res.Pruned)
		}
		if n, _ := s.Count(ctx); n != 2 {
			t.Errorf("expected 2 tracks after prune, got %d", n)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := sc.Scan(cctx, nil); err == nil {
			t.Error("expected an error from a cancelled scan")
		}
	})
}

func TestOptionsFrom(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	opts := OptionsFrom(shared.ScannerConfig{Roots: []string{"~/Music", "/srv/audio"}, ArtworkDir: "./art", Workers: 3, RateLimit: 2})

	want := []string{filepath.Join(home, "Music"), "/srv/audio"}
	if !reflect.DeepEqual(opts.Roots, want) {
		t.Errorf("Roots = %v, want %v", opts.Roots, want)
	}
	if opts.ArtworkDir != "./art" || opts.Workers != 3 || opts.RateLimit != 2 || opts.Prune {
		t.Errorf("unexpected options %+v", opts)
	}
}
