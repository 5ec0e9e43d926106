package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/afonsojramos/discrakt/internal/domain"
	"github.com/afonsojramos/discrakt/internal/presence"
)

// pollInterval is how often the watching status is refreshed. Trakt caches
// the watching endpoint, so polling faster buys nothing.
const pollInterval = 15 * time.Second

// runPresenceLoop polls the watching status on every tick and pushes the
// enriched result to the presenter. Lookup failures degrade inside the
// media service; the loop itself never stops on an upstream error.
func (a *App) runPresenceLoop(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	log.WithField("interval", pollInterval).Info("presence loop started")

	a.updatePresence(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("presence loop stopping")
			if err := a.presenter.Clear(); err != nil {
				log.WithField("error", err).Error("failed to clear presence")
			}
			return nil
		case <-ticker.C:
			a.updatePresence(ctx)
		}
	}
}

func (a *App) updatePresence(ctx context.Context) {
	status := a.mediaSvc.GetWatching(ctx)
	if status == nil {
		if err := a.presenter.Clear(); err != nil {
			log.WithField("error", err).Error("failed to clear presence")
		}
		return
	}

	p := a.buildPresence(ctx, status)
	if err := a.presenter.SetActivity(p); err != nil {
		log.WithField("error", err).Error("failed to update presence")
	}

	log.WithFields(log.Fields{
		"details":  p.Details,
		"state":    p.State,
		"progress": presence.WatchStats(status, time.Now()).Percentage,
	}).Debug("presence updated")
}

func (a *App) buildPresence(ctx context.Context, status *domain.WatchingStatus) *domain.Presence {
	stats := presence.WatchStats(status, time.Now())

	artwork := a.mediaSvc.GetArtwork(ctx, status.Kind, status.TMDBID(), seasonOf(status))
	title := a.localizedTitle(ctx, status)

	var rating float64
	if status.Kind == domain.KindMovie && status.Movie.IDs.Slug != "" {
		rating = a.mediaSvc.GetRating(ctx, status.Movie.IDs.Slug)
	}

	return stats.Build(status, title, artwork, rating)
}

// localizedTitle asks TMDB only when a non-default language is active; the
// upstream already reports titles in English.
func (a *App) localizedTitle(ctx context.Context, status *domain.WatchingStatus) string {
	if a.mediaSvc.Language() == "" || a.mediaSvc.Language() == "en-US" {
		return ""
	}
	switch status.Kind {
	case domain.KindMovie:
		return a.mediaSvc.GetTitle(ctx, status.Kind, status.TMDBID(), 0, 0)
	case domain.KindEpisode:
		return a.mediaSvc.GetTitle(ctx, status.Kind, status.TMDBID(), status.Episode.Season, status.Episode.Number)
	}
	return ""
}

func seasonOf(status *domain.WatchingStatus) int64 {
	if status.Kind == domain.KindEpisode && status.Episode != nil {
		return status.Episode.Season
	}
	return 0
}
