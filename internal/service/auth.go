package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/afonsojramos/discrakt/internal/clients"
	"github.com/afonsojramos/discrakt/internal/config"
	"github.com/afonsojramos/discrakt/internal/domain"
)

const (
	// pollIntervalCeiling caps the token-poll interval after protocol
	// slow-down signals and network-error backoff.
	pollIntervalCeiling = 30 * time.Second

	// maxConsecutiveErrors is how many failed polls in a row are tolerated
	// before giving up on a dead network.
	maxConsecutiveErrors = 10

	// successGracePeriod keeps the authorizer reporting "not yet complete"
	// after a success, long enough for one external status poll to observe
	// the terminal state before teardown.
	successGracePeriod = 8 * time.Second

	defaultPollInterval = 5 * time.Second
	waitTick            = 500 * time.Millisecond
)

// Authorizer owns the OAuth Device Authorization Grant: it requests device
// codes, polls the token endpoint on a background worker, persists token
// sets, and exposes the flow state to concurrent readers.
type Authorizer struct {
	oauth *clients.OAuthClient
	store *config.Store

	// intervalUnit scales the interval and expiry values of the grant,
	// which the wire carries in whole seconds. Tests shrink it.
	intervalUnit    time.Duration
	intervalCeiling time.Duration
	maxErrors       int

	mu      sync.Mutex
	state   domain.AuthState
	polling bool
}

func NewAuthorizer(oauth *clients.OAuthClient, store *config.Store) *Authorizer {
	return &Authorizer{
		oauth:           oauth,
		store:           store,
		intervalUnit:    time.Second,
		intervalCeiling: pollIntervalCeiling,
		maxErrors:       maxConsecutiveErrors,
		state:           domain.AuthState{Phase: domain.AuthIdle},
	}
}

// State returns a snapshot of the flow state. Snapshots are copied under
// the lock, so a reader can never observe a half-written transition.
func (a *Authorizer) State() domain.AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Authorizer) setState(state domain.AuthState) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

// SetupComplete reports whether authorization succeeded and the grace
// period has elapsed, meaning an external driver may stop serving status
// requests.
func (a *Authorizer) SetupComplete() bool {
	state := a.State()
	return state.Phase == domain.AuthSuccess && time.Since(state.AuthorizedAt) >= successGracePeriod
}

// Begin requests a device code and starts the background polling worker.
// A failed device-code request leaves the state untouched; the caller
// retries the whole flow. Begin does not block on user interaction.
func (a *Authorizer) Begin(ctx context.Context) (*domain.DeviceAuthorization, error) {
	a.mu.Lock()
	if a.polling {
		a.mu.Unlock()
		return nil, domain.ErrFlowInProgress
	}
	a.polling = true
	a.mu.Unlock()

	auth, err := a.oauth.RequestDeviceCode(ctx)
	if err != nil {
		a.mu.Lock()
		a.polling = false
		a.mu.Unlock()
		return nil, fmt.Errorf("starting device flow: %w", err)
	}

	log.WithFields(log.Fields{
		"user_code":        auth.UserCode,
		"verification_url": auth.VerificationURL,
		"expires_in":       auth.ExpiresIn,
	}).Info("device code obtained, waiting for user authorization")

	a.setState(domain.AuthState{Phase: domain.AuthPending})
	go a.poll(ctx, auth)

	return auth, nil
}

// poll drives the device flow to a terminal state. It runs on its own
// goroutine so the caller that initiated authorization never blocks.
func (a *Authorizer) poll(ctx context.Context, auth *domain.DeviceAuthorization) {
	defer func() {
		a.mu.Lock()
		a.polling = false
		a.mu.Unlock()
	}()

	issued := time.Now()
	deadline := issued.Add(time.Duration(auth.ExpiresIn) * a.intervalUnit)
	interval := time.Duration(auth.Interval) * a.intervalUnit
	if interval <= 0 {
		interval = defaultPollInterval
	}
	consecutiveErrors := 0

	for {
		// The declared lifetime of the device code wins over whatever the
		// upstream keeps answering.
		if !time.Now().Before(deadline) {
			log.Error("device authorization timed out")
			a.setState(domain.AuthState{Phase: domain.AuthExpired})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		result := a.oauth.PollDeviceToken(ctx, auth.DeviceCode)
		switch result.Outcome {
		case clients.PollSuccess:
			// Persist before publishing: no reader may observe Success
			// while the stored credentials are still stale.
			if err := a.store.SaveTokens(result.Tokens, time.Now()); err != nil {
				log.WithField("error", err).Error("failed to persist tokens")
				a.setState(domain.AuthState{Phase: domain.AuthError, Message: "failed to persist tokens"})
				return
			}
			log.Info("device flow authorized")
			a.setState(domain.AuthState{Phase: domain.AuthSuccess, AuthorizedAt: time.Now()})
			return

		case clients.PollPending:
			log.Debug("authorization pending, continuing to poll")
			consecutiveErrors = 0

		case clients.PollSlowDown:
			// A protocol-level instruction from the authorization server,
			// honored by the loop itself rather than by retrying.
			interval = a.capInterval(interval * 2)
			consecutiveErrors = 0
			log.WithField("interval", interval).Warn("rate limited, slowing down polling")

		case clients.PollDenied:
			log.Error("user denied authorization")
			a.setState(domain.AuthState{Phase: domain.AuthDenied})
			return

		case clients.PollExpired:
			log.Error("device code expired")
			a.setState(domain.AuthState{Phase: domain.AuthExpired})
			return

		case clients.PollAlreadyUsed:
			log.Error("device code already used")
			a.setState(domain.AuthState{Phase: domain.AuthError, Message: "device code already used"})
			return

		case clients.PollInvalidCode:
			log.Error("invalid device code")
			a.setState(domain.AuthState{Phase: domain.AuthError, Message: "invalid device code"})
			return

		case clients.PollFailure:
			consecutiveErrors++
			log.WithFields(log.Fields{
				"errors": consecutiveErrors,
				"max":    a.maxErrors,
				"error":  result.Err,
			}).Error("token poll failed")
			if consecutiveErrors >= a.maxErrors {
				log.Error("too many consecutive poll failures, giving up")
				a.setState(domain.AuthState{Phase: domain.AuthError, Message: "network connectivity issues"})
				return
			}
			interval = a.capInterval(interval * 2)
		}
	}
}

func (a *Authorizer) capInterval(interval time.Duration) time.Duration {
	if interval > a.intervalCeiling {
		return a.intervalCeiling
	}
	return interval
}

// Wait blocks until the flow reaches a terminal state or ctx is done,
// checking in small increments so shutdown stays responsive.
func (a *Authorizer) Wait(ctx context.Context) (domain.AuthState, error) {
	for {
		state := a.State()
		if state.Terminal() {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(waitTick):
		}
	}
}

// EnsureAuthorized makes sure valid credentials exist at startup. With a
// live refresh token it exchanges silently; when the exchange is rejected
// as invalid — or no usable refresh token exists — it falls back to a full
// device flow and blocks until that finishes. The returned access token is
// "" when OAuth is disabled.
func (a *Authorizer) EnsureAuthorized(ctx context.Context) (string, error) {
	if !a.store.OAuthEnabled() {
		return "", nil
	}

	refreshToken := a.store.RefreshToken()
	if refreshToken != "" && a.store.RefreshTokenExpiry().After(time.Now()) {
		tokens, err := a.oauth.RefreshToken(ctx, refreshToken)
		if err == nil {
			if saveErr := a.store.SaveTokens(tokens, time.Now()); saveErr != nil {
				return "", fmt.Errorf("persisting refreshed tokens: %w", saveErr)
			}
			log.Info("refreshed trakt tokens")
			return tokens.AccessToken, nil
		}
		if !errors.Is(err, domain.ErrInvalidRefreshToken) {
			return "", fmt.Errorf("refreshing tokens: %w", err)
		}
		log.WithField("error", err).Warn("refresh token rejected, starting device flow")
	}

	auth, err := a.Begin(ctx)
	if err != nil {
		return "", err
	}

	fmt.Printf("Please go to %s and enter the code: %s\n", auth.VerificationURL, auth.UserCode)

	state, err := a.Wait(ctx)
	if err != nil {
		return "", err
	}
	if state.Phase != domain.AuthSuccess {
		return "", fmt.Errorf("device authorization ended in %s: %w", state.Phase, domain.ErrNotAuthorized)
	}

	return a.store.AccessToken(), nil
}
