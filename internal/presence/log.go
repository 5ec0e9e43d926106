package presence

import (
	log "github.com/sirupsen/logrus"

	"github.com/afonsojramos/discrakt/internal/domain"
)

// LogPresenter is the fallback Presenter used when no rich-presence client
// is attached: it mirrors every activity change to the log.
type LogPresenter struct {
	active bool
}

func NewLogPresenter() *LogPresenter {
	return &LogPresenter{}
}

func (p *LogPresenter) SetActivity(presence *domain.Presence) error {
	log.WithFields(log.Fields{
		"details": presence.Details,
		"state":   presence.State,
	}).Info("now watching")
	p.active = true
	return nil
}

func (p *LogPresenter) Clear() error {
	if p.active {
		log.Info("nothing watching")
		p.active = false
	}
	return nil
}
