package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/afonsojramos/discrakt/internal/domain"
)

func movieStatus(started, expires time.Time, runtime int64) *domain.WatchingStatus {
	return &domain.WatchingStatus{
		Kind:      domain.KindMovie,
		Action:    "checkin",
		StartedAt: started,
		ExpiresAt: expires,
		Movie: &domain.Movie{
			Title:   "Inception",
			Year:    2010,
			Runtime: runtime,
			IDs: domain.IDs{
				Trakt: 16662,
				Slug:  "inception-2010",
				IMDB:  "tt1375666",
				TMDB:  27205,
			},
		},
	}
}

func episodeStatus() *domain.WatchingStatus {
	return &domain.WatchingStatus{
		Kind:      domain.KindEpisode,
		Action:    "scrobble",
		StartedAt: time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC),
		ExpiresAt: time.Date(2024, 5, 1, 11, 2, 0, 0, time.UTC),
		Show: &domain.Show{
			Title: "Breaking Bad",
			Year:  2008,
			IDs:   domain.IDs{Slug: "breaking-bad", TMDB: 1396},
		},
		Episode: &domain.Episode{
			Season:  2,
			Number:  5,
			Title:   "Breakage",
			Runtime: 47,
		},
	}
}

func TestWatchStatsPercentage(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := started.Add(2 * time.Hour)
	status := movieStatus(started, expires, 120)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"at start", started, "0.00%"},
		{"before start", started.Add(-time.Minute), "0.00%"},
		{"midpoint", started.Add(time.Hour), "50.00%"},
		{"quarter", started.Add(30 * time.Minute), "25.00%"},
		{"at end", expires, "100.00%"},
		{"past end", expires.Add(time.Hour), "100.00%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := WatchStats(status, tt.now)
			assert.Equal(t, tt.want, stats.Percentage)
			assert.True(t, stats.StartedAt.Equal(started))
			assert.True(t, stats.ExpiresAt.Equal(expires))
		})
	}
}

func TestWatchStatsStaleStartCorrection(t *testing.T) {
	// Reported window is 150 minutes but the movie runs 148: the start is
	// rebuilt from the expiry so pauses do not skew the progress.
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	status := movieStatus(started, expires, 148)

	stats := WatchStats(status, expires.Add(-74*time.Minute))

	wantStart := expires.Add(-148 * time.Minute)
	assert.True(t, stats.StartedAt.Equal(wantStart))
	assert.Equal(t, "50.00%", stats.Percentage)
}

func TestWatchStatsZeroRuntime(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := started.Add(90 * time.Minute)
	status := movieStatus(started, expires, 0)

	stats := WatchStats(status, started.Add(45*time.Minute))
	assert.True(t, stats.StartedAt.Equal(started), "no runtime, no correction")
	assert.Equal(t, "50.00%", stats.Percentage)
}

func TestWatchStatsDegenerateWindow(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	status := movieStatus(at, at, 0)

	stats := WatchStats(status, at)
	assert.Equal(t, "100.00%", stats.Percentage)
}

func TestDescribeMovie(t *testing.T) {
	status := movieStatus(time.Now(), time.Now().Add(time.Hour), 120)

	details, state := Describe(status)
	assert.Equal(t, "Inception (2010)", details)
	assert.Equal(t, "Movie", state)

	status.Movie.Year = 0
	details, _ = Describe(status)
	assert.Equal(t, "Inception", details)
}

func TestDescribeEpisode(t *testing.T) {
	status := episodeStatus()

	details, state := Describe(status)
	assert.Equal(t, "Breaking Bad", details)
	assert.Equal(t, "S02E05 - Breakage", state)

	status.Episode.Title = ""
	_, state = Describe(status)
	assert.Equal(t, "S02E05", state)
}

func TestBuildMovie(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := started.Add(148 * time.Minute)
	status := movieStatus(started, expires, 148)

	stats := WatchStats(status, started.Add(time.Hour))
	p := stats.Build(status, "", "https://image.tmdb.org/t/p/w600_and_h600_bestv2/first.jpg", 8.7)

	assert.Equal(t, "Inception (2010)", p.Details)
	assert.Equal(t, "⭐ 8.7/10", p.State)
	assert.Equal(t, "https://image.tmdb.org/t/p/w600_and_h600_bestv2/first.jpg", p.ImageURL)
	assert.Equal(t, "https://www.imdb.com/title/tt1375666", p.IMDBLink)
	assert.Equal(t, "https://trakt.tv/movies/inception-2010", p.TraktLink)
	assert.True(t, p.StartedAt.Equal(started))
	assert.True(t, p.ExpiresAt.Equal(expires))
}

func TestBuildLocalizedTitles(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	status := movieStatus(started, started.Add(time.Hour), 60)
	stats := WatchStats(status, started)

	p := stats.Build(status, "Origen", "", 0)
	assert.Equal(t, "Origen (2010)", p.Details)

	episode := episodeStatus()
	epStats := WatchStats(episode, episode.StartedAt)
	p = epStats.Build(episode, "Bruch", "", 0)
	assert.Equal(t, "Breaking Bad", p.Details)
	assert.Equal(t, "S02E05 - Bruch", p.State)
	assert.Equal(t, "https://trakt.tv/shows/breaking-bad", p.TraktLink)
	assert.Empty(t, p.IMDBLink)
}
