package service

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/afonsojramos/discrakt/internal/clients"
	"github.com/afonsojramos/discrakt/internal/domain"
)

// cacheCapacity bounds each of the three lookup caches. Inserting past it
// evicts the least-recently-used entry.
const cacheCapacity = 500

// MediaService answers the three presence queries. Ratings, artwork and
// titles are cached; the watching status never is, since it changes
// between polls. A failed enrichment lookup returns a default value so a
// single bad upstream answer never halts the presence pipeline.
//
// The service is owned by a single polling worker and does no internal
// locking.
type MediaService struct {
	trakt    *clients.TraktClient
	tmdb     *clients.TMDBClient
	language string
	ratings  *lru.Cache[string, float64]
	artwork  *lru.Cache[string, string]
	titles   *lru.Cache[string, string]
}

func NewMediaService(trakt *clients.TraktClient, tmdb *clients.TMDBClient, language string) *MediaService {
	return newMediaService(trakt, tmdb, language, cacheCapacity)
}

func newMediaService(trakt *clients.TraktClient, tmdb *clients.TMDBClient, language string, capacity int) *MediaService {
	// lru.New only fails on a non-positive capacity.
	ratings, _ := lru.New[string, float64](capacity)
	artwork, _ := lru.New[string, string](capacity)
	titles, _ := lru.New[string, string](capacity)

	return &MediaService{
		trakt:    trakt,
		tmdb:     tmdb,
		language: language,
		ratings:  ratings,
		artwork:  artwork,
		titles:   titles,
	}
}

// GetWatching returns the current watching status, or nil when nothing is
// playing. Authentication failures are logged apart from generic errors;
// neither propagates, both read as "nothing watching".
func (s *MediaService) GetWatching(ctx context.Context) *domain.WatchingStatus {
	status, err := s.trakt.GetWatching(ctx)
	if err != nil {
		if clients.IsAuthError(err) {
			log.WithField("error", err).Warn("trakt rejected credentials, check the configured token")
		} else {
			log.WithField("error", err).Error("failed to fetch watching status")
		}
		return nil
	}
	return status
}

// GetRating returns the community rating for a movie slug, 0.0 when the
// lookup fails. Successful lookups are cached.
func (s *MediaService) GetRating(ctx context.Context, slug string) float64 {
	if rating, ok := s.ratings.Get(slug); ok {
		return rating
	}

	rating, err := s.trakt.GetMovieRating(ctx, slug)
	if err != nil {
		log.WithFields(log.Fields{
			"slug":  slug,
			"error": err,
		}).Error("failed to fetch rating")
		return 0
	}

	s.ratings.Add(slug, rating)
	return rating
}

// GetArtwork returns the poster URL for the playing media, "" when there
// is none. Season is only consulted for episodes. A successful "no poster"
// answer is cached like any other.
func (s *MediaService) GetArtwork(ctx context.Context, kind domain.MediaKind, tmdbID, season int64) string {
	key := artworkKey(kind, tmdbID, season)
	if url, ok := s.artwork.Get(key); ok {
		return url
	}

	var (
		url string
		err error
	)
	switch kind {
	case domain.KindMovie:
		url, err = s.tmdb.GetMovieImage(ctx, tmdbID)
	case domain.KindEpisode:
		url, err = s.tmdb.GetShowImage(ctx, tmdbID, season)
	default:
		return ""
	}
	if err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"error": err,
		}).Error("failed to fetch artwork")
		return ""
	}

	s.artwork.Add(key, url)
	return url
}

// GetTitle returns the localized title for the playing media. Season and
// episode select the episode endpoint when both are set. Lookups that come
// back empty or fail are cached as "" so known-untranslated content is not
// queried again; the key carries the active language, so entries never
// leak across a language switch.
func (s *MediaService) GetTitle(ctx context.Context, kind domain.MediaKind, tmdbID, season, episode int64) string {
	key := titleKey(s.language, kind, tmdbID, season, episode)
	if title, ok := s.titles.Get(key); ok {
		return title
	}

	var (
		title string
		err   error
	)
	switch {
	case kind == domain.KindMovie:
		title, err = s.tmdb.GetMovieTitle(ctx, tmdbID, s.language)
	case season > 0 && episode > 0:
		title, err = s.tmdb.GetEpisodeTitle(ctx, tmdbID, season, episode, s.language)
	default:
		title, err = s.tmdb.GetShowTitle(ctx, tmdbID, s.language)
	}
	if err != nil {
		log.WithFields(log.Fields{
			"key":   key,
			"error": err,
		}).Error("failed to fetch localized title")
		title = ""
	}

	s.titles.Add(key, title)
	return title
}

// SetLanguage switches the localization language and drops every cached
// title. Ratings and artwork are language-independent and survive.
func (s *MediaService) SetLanguage(language string) {
	if language == s.language {
		return
	}
	log.WithFields(log.Fields{
		"from": s.language,
		"to":   language,
	}).Info("switching title language")
	s.language = language
	s.titles.Purge()
}

// Language returns the active localization language.
func (s *MediaService) Language() string {
	return s.language
}

func artworkKey(kind domain.MediaKind, tmdbID, season int64) string {
	if kind == domain.KindEpisode {
		return fmt.Sprintf("show:%d:s%d", tmdbID, season)
	}
	return fmt.Sprintf("movie:%d", tmdbID)
}

func titleKey(language string, kind domain.MediaKind, tmdbID, season, episode int64) string {
	if kind == domain.KindEpisode {
		if season > 0 && episode > 0 {
			return fmt.Sprintf("%s:show:%d:s%d:e%d", language, tmdbID, season, episode)
		}
		return fmt.Sprintf("%s:show:%d", language, tmdbID)
	}
	return fmt.Sprintf("%s:movie:%d", language, tmdbID)
}
