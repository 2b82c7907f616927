package mediastore

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/dhowden/tag"
	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp"
)

// LoadThumbnail returns the artwork of the track at uri scaled to fit size.
//
// The track's embedded picture wins over its album's artwork file. Every failure to find or
// decode artwork wraps [ErrThumbnailIO].
func (s *SQLiteStore) LoadThumbnail(ctx context.Context, uri string, size image.Point) (image.Image, error) {
	t, err := parseURI(uri)
	if err != nil || t.coll != collAudio || t.id == "" {
		return nil, fmt.Errorf("%w: %s is not a track", ErrThumbnailIO, uri)
	}

	cur, err := s.db.QueryContext(ctx, `
		SELECT a._data, al.album_art
		FROM audio a LEFT JOIN albums al ON al._id = a.album_id
		WHERE a._id = ?`, t.id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailIO, err)
	}
	rows, err := newCursor(cur)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailIO, err)
	}
	if !rows.Next() {
		return nil, fmt.Errorf("%w: no track %s", ErrThumbnailIO, t.id)
	}
	path, _ := rows.String("_data")
	albumArt, _ := rows.String("album_art")

	img, err := embeddedPicture(path)
	if err != nil && albumArt != "" {
		img, err = decodeFile(albumArt)
	}
	if err != nil {
		return nil, err
	}
	return ScaleToFit(img, size), nil
}

// EmbeddedPicture returns the raw picture stored in the tags of the audio file at path, if any.
func EmbeddedPicture(path string) (*tag.Picture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailIO, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailIO, err)
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, fmt.Errorf("%w: %s has no embedded picture", ErrThumbnailIO, path)
	}
	return pic, nil
}

func embeddedPicture(path string) (image.Image, error) {
	pic, err := EmbeddedPicture(path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(pic.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailIO, err)
	}
	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailIO, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailIO, err)
	}
	return img, nil
}

// ScaleToFit shrinks img to fit inside size, keeping its aspect ratio. Images already small
// enough, and non-positive sizes, return img unchanged.
func ScaleToFit(img image.Image, size image.Point) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if size.X <= 0 || size.Y <= 0 || w == 0 || h == 0 {
		return img
	}

	scale := math.Min(float64(size.X)/float64(w), float64(size.Y)/float64(h))
	if scale >= 1 {
		return img
	}

	dw := max(1, int(math.Round(float64(w)*scale)))
	dh := max(1, int(math.Round(float64(h)*scale)))

	dc := gg.NewContext(dw, dh)
	dc.Scale(float64(dw)/float64(w), float64(dh)/float64(h))
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	return dc.Image()
}
