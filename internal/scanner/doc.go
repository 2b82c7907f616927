// Package scanner populates the media index from audio files on disk.
//
// A scan walks the configured roots, keeps files that look like audio (by extension, or by
// sniffing the first bytes when the extension is unfamiliar), reads their tags with
// github.com/dhowden/tag and writes them through [Indexer]. The first embedded picture found
// for an album without artwork is extracted into the artwork directory.
package scanner
