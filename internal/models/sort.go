package models

// ArgSortType is the argument key carrying a sort enumeration ordinal.
const ArgSortType = "sort_type"

// ArtistSortType orders artist queries.
type ArtistSortType int

const (
	ArtistSortDefault ArtistSortType = iota
	ArtistSortMoreAlbumsFirst
	ArtistSortLessAlbumsFirst
	ArtistSortMoreTracksFirst
	ArtistSortLessTracksFirst
	ArtistSortCurrentIDsOrder
	artistSortCount
)

// AlbumSortType orders album queries.
type AlbumSortType int

const (
	AlbumSortDefault AlbumSortType = iota
	AlbumSortAlphabeticArtistName
	AlbumSortMoreSongsFirst
	AlbumSortLessSongsFirst
	AlbumSortMostRecentYear
	AlbumSortOldestYear
	AlbumSortCurrentIDsOrder
	albumSortCount
)

// SongSortType orders song queries.
type SongSortType int

const (
	SongSortDefault SongSortType = iota
	SongSortAlphabeticComposer
	SongSortGreaterDuration
	SongSortSmallerDuration
	SongSortRecentYear
	SongSortOldestYear
	SongSortAlphabeticArtist
	SongSortAlphabeticAlbum
	SongSortGreaterTrackNumber
	SongSortSmallerTrackNumber
	SongSortDisplayName
	SongSortCurrentIDsOrder
	songSortCount
)

// GenreSortType orders genre queries.
type GenreSortType int

const (
	GenreSortDefault GenreSortType = iota
	genreSortCount
)

// PlaylistSortType orders playlist queries.
type PlaylistSortType int

const (
	PlaylistSortDefault PlaylistSortType = iota
	PlaylistSortNewestFirst
	PlaylistSortOldestFirst
	PlaylistSortCurrentIDsOrder
	playlistSortCount
)

// sortOrdinal reads the sort_type argument, mapping missing or out-of-range values to 0.
func sortOrdinal(c Call, count int) int {
	n, ok := c.Int(ArgSortType)
	if !ok || n < 0 || n >= count {
		return 0
	}
	return n
}

func (c Call) ArtistSort() ArtistSortType {
	return ArtistSortType(sortOrdinal(c, int(artistSortCount)))
}

func (c Call) AlbumSort() AlbumSortType {
	return AlbumSortType(sortOrdinal(c, int(albumSortCount)))
}

func (c Call) SongSort() SongSortType {
	return SongSortType(sortOrdinal(c, int(songSortCount)))
}

func (c Call) GenreSort() GenreSortType {
	return GenreSortType(sortOrdinal(c, int(genreSortCount)))
}

func (c Call) PlaylistSort() PlaylistSortType {
	return PlaylistSortType(sortOrdinal(c, int(playlistSortCount)))
}
