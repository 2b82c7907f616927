package mediastore

import "fmt"

var (
	ErrUnknownURI     = fmt.Errorf("unknown content uri")
	ErrReadOnly       = fmt.Errorf("collection is read only")
	ErrInvalidColumn  = fmt.Errorf("invalid column")
	ErrColumnNotFound = fmt.Errorf("column not found")
	ErrNoRow          = fmt.Errorf("cursor is not on a row")

	// ErrThumbnailIO is the recoverable failure of [ThumbnailResolver.LoadThumbnail]:
	// the item has no readable or decodable artwork.
	ErrThumbnailIO = fmt.Errorf("thumbnail unavailable")
)
