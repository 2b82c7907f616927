// Package loaders turns parsed calls into media store queries.
//
// There is one loader per entity: [ArtistLoader], [AlbumLoader], [SongLoader], [GenreLoader],
// [PlaylistLoader] and [ImageLoader]. Every operation builds a [models.QuerySpec] from its
// arguments, hands it to a [tasks.LoadTask] and returns at once; the reply is delivered when the
// task completes on the main looper.
//
// # Query Specs
//
// Selections are hand-built per entity. Lookups by a list of ids use "_id IN(?,…)", and when the
// caller asks for the ids' own order the sort order is a rank expression:
//
//	CASE _id WHEN 7 THEN 0 WHEN 3 THEN 1 WHEN 9 THEN 2 END, _id ASC
//
// Genre-scoped queries, and albums of an artist, run in two phases: the matching ids are first
// collected with a DISTINCT query over the flat audio table and then fetched with an IN selection.
//
// # Failures
//
// A row that cannot be read is logged and left out of the result. A query that fails outright
// replies with the loader's read error code. Playlist writes reply with the specific failure
// codes in [models]; a write followed by a failed refresh replies PLAYLIST_READING_FAIL even
// though the write itself committed.
package loaders
