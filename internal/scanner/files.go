package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/dhowden/tag"
	"github.com/h2non/filetype"
)

// headerSize is how much of a file filetype needs to recognise it.
const headerSize = 261

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".m4b":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".wav":  true,
	".aiff": true,
	".dsf":  true,
}

// ignoredExtensions are never sniffed.
var ignoredExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
	".txt": true, ".nfo": true, ".cue": true, ".log": true, ".m3u": true, ".m3u8": true,
}

// IsAudio reports whether the file at path should be indexed.
func IsAudio(path string) (bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if audioExtensions[ext] {
		return true, nil
	}
	if ignoredExtensions[ext] {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.IsAudio(head[:n]), nil
}

// Walk returns the audio files under root in lexical order. Hidden directories are skipped and
// unreadable entries are ignored.
func Walk(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ok, err := IsAudio(path); err == nil && ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// ReadFile builds the index entry for the audio file at path.
//
// Files without readable tags are still indexed; the store falls back to the file name for
// the title and to "<unknown>" for artist and album.
func ReadFile(path string) (mediastore.AudioFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return mediastore.AudioFile{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return mediastore.AudioFile{}, err
	}

	file := mediastore.AudioFile{
		Path:       path,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}

	m, err := tag.ReadFrom(f)
	if err != nil {
		return file, nil
	}

	file.Title = m.Title()
	file.Album = m.Album()
	file.Artist = m.Artist()
	if file.Artist == "" {
		file.Artist = m.AlbumArtist()
	}
	file.Composer = m.Composer()
	file.Genre = m.Genre()
	file.Year = m.Year()
	file.Track, _ = m.Track()
	file.IsPodcast = strings.EqualFold(strings.TrimSpace(file.Genre), "podcast")
	return file, nil
}

// pictureExtension picks the file extension for embedded artwork.
func pictureExtension(pic *tag.Picture) string {
	if kind, err := filetype.Image(pic.Data); err == nil && kind != filetype.Unknown {
		return kind.Extension
	}
	if ext := strings.TrimPrefix(strings.ToLower(pic.Ext), "."); ext != "" {
		return ext
	}
	return "jpg"
}
