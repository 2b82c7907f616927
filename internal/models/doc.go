// Package models defines the request, reply and query types shared by the media query pipeline.
//
// The package contains three groups of types:
//
// 1. Transport contract: the shapes exchanged with callers
//   - [Call] : a named method plus its argument map, with typed accessors
//   - [Reply] : the single-use reply channel (success, error or not implemented)
//   - [Record] : one result row, serialisable as a JSON object
//
// 2. Query inputs
//   - [QuerySpec] : selection, positional arguments and sort order for one store query
//   - the per-entity sort enumerations ([ArtistSortType], [AlbumSortType], [SongSortType],
//     [GenreSortType], [PlaylistSortType]) whose ordinals are part of the wire contract
//
// 3. Vocabulary
//   - argument keys, error codes, [PlaylistMethodType] and [ResourceType]
//
// Sort enumerations are ordinal-stable: new variants are only ever appended.
// Ordinals outside an enumeration parse to its DEFAULT variant.
package models
