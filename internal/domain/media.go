package domain

import "time"

// MediaKind discriminates what the user is currently watching. The set is
// closed: anything the upstream reports outside of it is rejected at parse
// time instead of falling through.
type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindEpisode MediaKind = "episode"
)

// IDs carries the external identifiers Trakt attaches to movies, shows and
// episodes. Absent identifiers are zero values.
type IDs struct {
	Trakt int64  `json:"trakt"`
	Slug  string `json:"slug"`
	TVDB  int64  `json:"tvdb"`
	IMDB  string `json:"imdb"`
	TMDB  int64  `json:"tmdb"`
}

type Movie struct {
	Title   string `json:"title"`
	Year    int64  `json:"year"`
	IDs     IDs    `json:"ids"`
	Runtime int64  `json:"runtime"`
}

type Show struct {
	Title   string `json:"title"`
	Year    int64  `json:"year"`
	IDs     IDs    `json:"ids"`
	Runtime int64  `json:"runtime"`
}

type Episode struct {
	Season  int64  `json:"season"`
	Number  int64  `json:"number"`
	Title   string `json:"title"`
	IDs     IDs    `json:"ids"`
	Runtime int64  `json:"runtime"`
}

// WatchingStatus is one check-in snapshot from the watching endpoint.
// A nil *WatchingStatus means nothing is playing, which is not an error.
// It is recomputed on every poll and never persisted.
type WatchingStatus struct {
	Kind      MediaKind
	Action    string
	StartedAt time.Time
	ExpiresAt time.Time
	Movie     *Movie
	Show      *Show
	Episode   *Episode
}

// TMDBID returns the TMDB identifier relevant for artwork and title lookups:
// the movie id for movies, the show id for episodes.
func (w *WatchingStatus) TMDBID() int64 {
	switch w.Kind {
	case KindMovie:
		if w.Movie != nil {
			return w.Movie.IDs.TMDB
		}
	case KindEpisode:
		if w.Show != nil {
			return w.Show.IDs.TMDB
		}
	}
	return 0
}
