package presence

import (
	"fmt"
	"time"

	"github.com/afonsojramos/discrakt/internal/domain"
)

// Stats describes how far into the current playback the user is. StartedAt
// may differ from the reported start time: see WatchStats.
type Stats struct {
	StartedAt  time.Time
	ExpiresAt  time.Time
	Percentage string
}

// WatchStats computes playback progress at the given instant.
//
// Paused-and-resumed playback keeps its original started_at while the
// expiry moves forward, so the reported window can be longer than the
// media itself. When that happens the start is rebuilt from the expiry
// and the runtime, which keeps the percentage honest.
func WatchStats(status *domain.WatchingStatus, now time.Time) Stats {
	started := status.StartedAt
	expires := status.ExpiresAt

	if runtime := mediaRuntime(status); runtime > 0 && expires.Sub(started) > runtime {
		started = expires.Add(-runtime)
	}

	return Stats{
		StartedAt:  started,
		ExpiresAt:  expires,
		Percentage: fmt.Sprintf("%.2f%%", percentage(started, expires, now)),
	}
}

func mediaRuntime(status *domain.WatchingStatus) time.Duration {
	var minutes int64
	switch status.Kind {
	case domain.KindMovie:
		if status.Movie != nil {
			minutes = status.Movie.Runtime
		}
	case domain.KindEpisode:
		if status.Episode != nil {
			minutes = status.Episode.Runtime
		}
	}
	return time.Duration(minutes) * time.Minute
}

func percentage(started, expires, now time.Time) float64 {
	total := expires.Sub(started)
	if total <= 0 {
		return 100
	}
	elapsed := now.Sub(started)
	switch {
	case elapsed <= 0:
		return 0
	case elapsed >= total:
		return 100
	}
	return float64(elapsed) / float64(total) * 100
}
