package loaders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/models"
	"github.com/desertthunder/audioquery/internal/tasks"
)

// artworkMu serializes artwork loads across every ImageLoader.
var artworkMu sync.Mutex

// ImageLoader resolves artwork into PNG bytes.
type ImageLoader struct {
	base
}

func NewImageLoader(ctx context.Context, store mediastore.Store, ex tasks.Executor, logger *log.Logger) *ImageLoader {
	return &ImageLoader{base: newBase(ctx, store, ex, logger, "image")}
}

// SearchArtworkBytes replies with {"image": bytes} for the artwork of an artist, album or song,
// scaled to fit size. When no artwork is found the image is nil; lookups never reply an error
// once the id is present.
func (l *ImageLoader) SearchArtworkBytes(reply models.Reply, resource models.ResourceType, id string, size image.Point) {
	if id == "" {
		reply.Error(models.CodeNoID, "id is required", nil)
		return
	}

	tasks.Run(l.exec, func() []byte {
		artworkMu.Lock()
		defer artworkMu.Unlock()
		return l.artwork(resource, id, size)
	}, func(data []byte) {
		var v any
		if data != nil {
			v = data
		}
		reply.Success(models.Record{models.FieldImage: v})
	})
}

func (l *ImageLoader) artwork(resource models.ResourceType, id string, size image.Point) []byte {
	var tracks []string
	switch resource {
	case models.ResourceSong:
		tracks = []string{id}
	case models.ResourceArtist:
		tracks = l.tracks("artist_id = ?", id)
	case models.ResourceAlbum:
		tracks = l.tracks("album_id = ?", id)
	default:
		l.logger.Warn("unknown artwork resource", "resource", int(resource))
		return nil
	}

	for _, track := range tracks {
		img, err := l.store.LoadThumbnail(l.ctx, mediastore.ItemURI(mediastore.AudioURI, track), size)
		if err != nil {
			if errors.Is(err, mediastore.ErrThumbnailIO) {
				l.logger.Debug("no artwork for track", "track", track, "error", err)
				continue
			}
			l.logger.Error("failed to load artwork", "track", track, "error", err)
			return nil
		}

		data, err := encodePNG(img)
		if err != nil {
			l.logger.Error("failed to encode artwork", "track", track, "error", err)
			return nil
		}
		return data
	}
	return nil
}

// tracks lists the ids of the tracks matching selection.
func (l *ImageLoader) tracks(selection string, arg string) []string {
	cur, err := l.store.Query(l.ctx, mediastore.AudioURI, []string{"_id"}, selection, []any{arg}, "_id")
	if err != nil {
		l.logger.Error("failed to list tracks for artwork", "selection", selection, "error", err)
		return nil
	}
	defer cur.Close()

	ids := make([]string, 0, cur.Count())
	for cur.Next() {
		if id, err := cur.String("_id"); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
