package presence

import (
	"fmt"

	"github.com/afonsojramos/discrakt/internal/domain"
)

const (
	imdbTitleURL   = "https://www.imdb.com/title/"
	traktMoviesURL = "https://trakt.tv/movies/"
	traktShowsURL  = "https://trakt.tv/shows/"
)

// Describe formats the two display lines for the playing media.
func Describe(status *domain.WatchingStatus) (details, state string) {
	switch status.Kind {
	case domain.KindMovie:
		details = status.Movie.Title
		if status.Movie.Year > 0 {
			details = fmt.Sprintf("%s (%d)", status.Movie.Title, status.Movie.Year)
		}
		state = "Movie"
	case domain.KindEpisode:
		details = status.Show.Title
		state = fmt.Sprintf("S%02dE%02d", status.Episode.Season, status.Episode.Number)
		if status.Episode.Title != "" {
			state = fmt.Sprintf("%s - %s", state, status.Episode.Title)
		}
	}
	return details, state
}

// Build assembles the full presence record from the watching status and
// its enrichment data. The rating replaces the generic movie state line
// when known; localizedTitle and artwork override their lookups when the
// caches had answers, and may be empty.
func (s Stats) Build(status *domain.WatchingStatus, localizedTitle, artwork string, rating float64) *domain.Presence {
	details, state := Describe(status)

	if localizedTitle != "" {
		switch status.Kind {
		case domain.KindMovie:
			details = localizedTitle
			if status.Movie.Year > 0 {
				details = fmt.Sprintf("%s (%d)", localizedTitle, status.Movie.Year)
			}
		case domain.KindEpisode:
			state = fmt.Sprintf("S%02dE%02d - %s", status.Episode.Season, status.Episode.Number, localizedTitle)
		}
	}

	if status.Kind == domain.KindMovie && rating > 0 {
		state = fmt.Sprintf("⭐ %.1f/10", rating)
	}

	p := &domain.Presence{
		Details:   details,
		State:     state,
		ImageURL:  artwork,
		StartedAt: s.StartedAt,
		ExpiresAt: s.ExpiresAt,
	}

	switch status.Kind {
	case domain.KindMovie:
		if status.Movie.IDs.IMDB != "" {
			p.IMDBLink = imdbTitleURL + status.Movie.IDs.IMDB
		}
		if status.Movie.IDs.Slug != "" {
			p.TraktLink = traktMoviesURL + status.Movie.IDs.Slug
		}
	case domain.KindEpisode:
		if status.Show.IDs.IMDB != "" {
			p.IMDBLink = imdbTitleURL + status.Show.IDs.IMDB
		}
		if status.Show.IDs.Slug != "" {
			p.TraktLink = traktShowsURL + status.Show.IDs.Slug
		}
	}

	return p
}
