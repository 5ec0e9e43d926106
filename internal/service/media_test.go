package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afonsojramos/discrakt/internal/clients"
	"github.com/afonsojramos/discrakt/internal/domain"
	"github.com/afonsojramos/discrakt/internal/retry"
)

// mediaFixture fakes both upstreams behind one server and counts requests
// per path so cache behavior is observable.
type mediaFixture struct {
	server *httptest.Server
	calls  map[string]*atomic.Int64
	status map[string]int
}

func newMediaFixture(t *testing.T, payloads map[string]any) *mediaFixture {
	t.Helper()
	f := &mediaFixture{
		calls:  make(map[string]*atomic.Int64),
		status: make(map[string]int),
	}
	for path := range payloads {
		f.calls[path] = &atomic.Int64{}
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloads[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		f.calls[r.URL.Path].Add(1)
		if status := f.status[r.URL.Path]; status != 0 {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *mediaFixture) count(path string) int64 {
	return f.calls[path].Load()
}

func newTestMediaService(f *mediaFixture, language string, capacity int) *MediaService {
	policy := retry.Policy{MaxRetries: 0, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	trakt := clients.NewTraktClient(clients.TraktConfig{
		BaseURL:    f.server.URL,
		ClientID:   "client-id",
		Username:   "marvin",
		Policy:     &policy,
		HTTPClient: f.server.Client(),
	})
	tmdb := clients.NewTMDBClient(clients.TMDBConfig{
		BaseURL:    f.server.URL,
		APIKey:     "tmdb-key",
		Policy:     &policy,
		HTTPClient: f.server.Client(),
	})
	return newMediaService(trakt, tmdb, language, capacity)
}

func ratingPayload(rating float64) map[string]any {
	return map[string]any{"rating": rating, "votes": 1000}
}

func TestGetRatingCachesSuccess(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/movies/inception-2010/ratings": ratingPayload(8.7),
	})
	svc := newTestMediaService(f, "en-US", 10)

	for i := 0; i < 3; i++ {
		rating := svc.GetRating(context.Background(), "inception-2010")
		assert.InDelta(t, 8.7, rating, 0.001)
	}
	assert.Equal(t, int64(1), f.count("/movies/inception-2010/ratings"))
}

func TestGetRatingErrorNotCached(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/movies/missing/ratings": ratingPayload(0),
	})
	f.status["/movies/missing/ratings"] = http.StatusNotFound
	svc := newTestMediaService(f, "en-US", 10)

	assert.Zero(t, svc.GetRating(context.Background(), "missing"))
	assert.Zero(t, svc.GetRating(context.Background(), "missing"))

	// Failures are retried on the next request instead of being pinned.
	assert.Equal(t, int64(2), f.count("/movies/missing/ratings"))
}

func TestGetRatingEviction(t *testing.T) {
	payloads := make(map[string]any)
	for i := 0; i < 3; i++ {
		payloads[fmt.Sprintf("/movies/slug-%d/ratings", i)] = ratingPayload(float64(i))
	}
	f := newMediaFixture(t, payloads)
	svc := newTestMediaService(f, "en-US", 2)

	ctx := context.Background()
	svc.GetRating(ctx, "slug-0")
	svc.GetRating(ctx, "slug-1")
	svc.GetRating(ctx, "slug-2") // evicts slug-0
	svc.GetRating(ctx, "slug-0") // refetch

	assert.Equal(t, int64(2), f.count("/movies/slug-0/ratings"))
	assert.Equal(t, int64(1), f.count("/movies/slug-1/ratings"))
	assert.Equal(t, int64(1), f.count("/movies/slug-2/ratings"))
}

func TestGetArtworkCachesEmptyAnswer(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/3/movie/27205/images": map[string]any{"id": 27205, "posters": []any{}},
	})
	svc := newTestMediaService(f, "en-US", 10)

	ctx := context.Background()
	assert.Empty(t, svc.GetArtwork(ctx, domain.KindMovie, 27205, 0))
	assert.Empty(t, svc.GetArtwork(ctx, domain.KindMovie, 27205, 0))

	// "No poster" is a valid answer worth caching.
	assert.Equal(t, int64(1), f.count("/3/movie/27205/images"))
}

func TestGetArtworkSeasonKeys(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/3/tv/1396/season/1/images": map[string]any{
			"id": 1396, "posters": []any{map[string]any{"file_path": "/s1.jpg"}},
		},
		"/3/tv/1396/season/2/images": map[string]any{
			"id": 1396, "posters": []any{map[string]any{"file_path": "/s2.jpg"}},
		},
	})
	svc := newTestMediaService(f, "en-US", 10)

	ctx := context.Background()
	assert.Equal(t, "https://image.tmdb.org/t/p/w600_and_h600_bestv2/s1.jpg",
		svc.GetArtwork(ctx, domain.KindEpisode, 1396, 1))
	assert.Equal(t, "https://image.tmdb.org/t/p/w600_and_h600_bestv2/s2.jpg",
		svc.GetArtwork(ctx, domain.KindEpisode, 1396, 2))
	assert.Equal(t, int64(1), f.count("/3/tv/1396/season/1/images"))
	assert.Equal(t, int64(1), f.count("/3/tv/1396/season/2/images"))
}

func TestGetArtworkErrorNotCached(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/3/movie/27205/images": map[string]any{"id": 27205},
	})
	f.status["/3/movie/27205/images"] = http.StatusNotFound
	svc := newTestMediaService(f, "en-US", 10)

	ctx := context.Background()
	assert.Empty(t, svc.GetArtwork(ctx, domain.KindMovie, 27205, 0))
	assert.Empty(t, svc.GetArtwork(ctx, domain.KindMovie, 27205, 0))
	assert.Equal(t, int64(2), f.count("/3/movie/27205/images"))
}

func TestGetTitleCachesPerLanguage(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/3/movie/27205": map[string]any{"id": 27205, "title": "Inception"},
	})
	svc := newTestMediaService(f, "en-US", 10)

	ctx := context.Background()
	assert.Equal(t, "Inception", svc.GetTitle(ctx, domain.KindMovie, 27205, 0, 0))
	assert.Equal(t, "Inception", svc.GetTitle(ctx, domain.KindMovie, 27205, 0, 0))
	assert.Equal(t, int64(1), f.count("/3/movie/27205"))

	// A language switch drops cached titles, so the same id is fetched
	// again under the new language key.
	svc.SetLanguage("fr-FR")
	svc.GetTitle(ctx, domain.KindMovie, 27205, 0, 0)
	assert.Equal(t, int64(2), f.count("/3/movie/27205"))
}

func TestGetTitleCachesFailure(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/3/movie/404": map[string]any{},
	})
	f.status["/3/movie/404"] = http.StatusNotFound
	svc := newTestMediaService(f, "en-US", 10)

	ctx := context.Background()
	assert.Empty(t, svc.GetTitle(ctx, domain.KindMovie, 404, 0, 0))
	assert.Empty(t, svc.GetTitle(ctx, domain.KindMovie, 404, 0, 0))

	// Untranslatable content is remembered so it is not queried every poll.
	assert.Equal(t, int64(1), f.count("/3/movie/404"))
}

func TestGetTitleEpisodeEndpoint(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/3/tv/1396/season/2/episode/5": map[string]any{"id": 62092, "name": "Breakage"},
	})
	svc := newTestMediaService(f, "en-US", 10)

	title := svc.GetTitle(context.Background(), domain.KindEpisode, 1396, 2, 5)
	assert.Equal(t, "Breakage", title)
}

func TestSetLanguageKeepsRatings(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/movies/inception-2010/ratings": ratingPayload(8.7),
	})
	svc := newTestMediaService(f, "en-US", 10)

	ctx := context.Background()
	svc.GetRating(ctx, "inception-2010")
	svc.SetLanguage("de-DE")
	svc.GetRating(ctx, "inception-2010")

	assert.Equal(t, int64(1), f.count("/movies/inception-2010/ratings"))
	assert.Equal(t, "de-DE", svc.Language())
}

func TestGetWatchingNothingPlaying(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/users/marvin/watching": map[string]any{},
	})
	f.status["/users/marvin/watching"] = http.StatusNoContent
	svc := newTestMediaService(f, "en-US", 10)

	assert.Nil(t, svc.GetWatching(context.Background()))
}

func TestGetWatchingMovie(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	f := newMediaFixture(t, map[string]any{
		"/users/marvin/watching": map[string]any{
			"expires_at": expires.Format(time.RFC3339),
			"started_at": started.Format(time.RFC3339),
			"action":     "checkin",
			"type":       "movie",
			"movie": map[string]any{
				"title": "Inception",
				"year":  2010,
				"ids": map[string]any{
					"trakt": 16662, "slug": "inception-2010",
					"imdb": "tt1375666", "tmdb": 27205,
				},
				"runtime": 148,
			},
		},
	})
	svc := newTestMediaService(f, "en-US", 10)

	status := svc.GetWatching(context.Background())
	require.NotNil(t, status)
	assert.Equal(t, domain.KindMovie, status.Kind)
	require.NotNil(t, status.Movie)
	assert.Equal(t, "Inception", status.Movie.Title)
	assert.True(t, status.StartedAt.Equal(started))
	assert.True(t, status.ExpiresAt.Equal(expires))
}

func TestGetWatchingSwallowsAuthError(t *testing.T) {
	f := newMediaFixture(t, map[string]any{
		"/users/marvin/watching": map[string]any{},
	})
	f.status["/users/marvin/watching"] = http.StatusUnauthorized
	svc := newTestMediaService(f, "en-US", 10)

	assert.Nil(t, svc.GetWatching(context.Background()))
}
