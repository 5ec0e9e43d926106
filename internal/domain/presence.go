package domain

import "time"

// Presence is the enriched record handed to the presence-broadcasting
// collaborator on every poll.
type Presence struct {
	Details   string
	State     string
	ImageURL  string
	IMDBLink  string
	TraktLink string
	StartedAt time.Time
	ExpiresAt time.Time
}

// Presenter is implemented by the external presence client. Clear is called
// whenever nothing is playing.
type Presenter interface {
	SetActivity(presence *Presence) error
	Clear() error
}
