// Package mediastore is the media index the query loaders read from and the playlist loader writes to.
//
// # Collections
//
// Content is addressed by URI, one collection per entity:
//
//	content://media/external/audio/media           tracks (table audio)
//	content://media/external/audio/albums          albums (view album_info for reads)
//	content://media/external/audio/artists         artists (view artist_info for reads)
//	content://media/external/audio/genres          genres (view genre_info, read only)
//	content://media/external/audio/playlists       playlists
//	content://media/external/audio/playlists/N/members
//
// Appending /ID to a collection URI addresses one item.
//
// # Queries
//
// [ContentStore.Query] takes a projection, a selection with positional arguments and a sort order,
// all written against the collection's column names. Results come back as a fully read [Cursor],
// so a caller may issue nested queries while iterating without holding a connection.
//
// # Writes
//
// Playlist and member writes keep play_order dense: deleting members renumbers the rest and
// [ContentStore.MoveMember] rewrites the order in one transaction. Observers registered with
// [SQLiteStore.RegisterObserver] are told about every [ContentStore.NotifyChange].
//
// # Thumbnails
//
// [ThumbnailResolver.LoadThumbnail] reads the embedded picture of a track, falling back to its album's
// artwork file, and scales it to fit the requested size. Failures wrap [ErrThumbnailIO].
package mediastore
