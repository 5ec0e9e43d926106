package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/afonsojramos/discrakt/internal/domain"
	"github.com/afonsojramos/discrakt/internal/retry"
)

const (
	// DefaultTraktBaseURL is the production Trakt API host.
	DefaultTraktBaseURL = "https://api.trakt.tv"

	traktAPIVersion    = "2"
	defaultHTTPTimeout = 30 * time.Second
)

// TraktConfig configures a TraktClient. Zero-value BaseURL, Policy and
// HTTPClient fall back to production defaults; tests override them.
type TraktConfig struct {
	BaseURL     string
	ClientID    string
	Username    string
	AccessToken string
	Policy      *retry.Policy
	HTTPClient  *http.Client
}

// TraktClient issues watching and rating queries against the Trakt API.
type TraktClient struct {
	httpClient  *http.Client
	baseURL     string
	clientID    string
	username    string
	accessToken string
	policy      retry.Policy
}

func NewTraktClient(cfg TraktConfig) *TraktClient {
	client := &TraktClient{
		httpClient:  cfg.HTTPClient,
		baseURL:     cfg.BaseURL,
		clientID:    cfg.ClientID,
		username:    cfg.Username,
		accessToken: cfg.AccessToken,
		policy:      retry.DefaultPolicy(),
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = DefaultTraktBaseURL
	}
	if cfg.Policy != nil {
		client.policy = *cfg.Policy
	}
	return client
}

// SetAccessToken swaps the bearer token used on subsequent calls, after a
// refresh or a completed device flow.
func (c *TraktClient) SetAccessToken(token string) {
	c.accessToken = token
}

// watchingPayload is the wire shape of the watching endpoint. The media
// kind arrives as a free-form string and is narrowed to domain.MediaKind
// during conversion.
type watchingPayload struct {
	ExpiresAt time.Time       `json:"expires_at"`
	StartedAt time.Time       `json:"started_at"`
	Action    string          `json:"action"`
	Type      string          `json:"type"`
	Movie     *domain.Movie   `json:"movie"`
	Show      *domain.Show    `json:"show"`
	Episode   *domain.Episode `json:"episode"`
}

type ratingsPayload struct {
	Rating       float64          `json:"rating"`
	Votes        int64            `json:"votes"`
	Distribution map[string]int64 `json:"distribution"`
}

// GetWatching queries what the user is watching right now. It returns
// (nil, nil) when nothing is playing (HTTP 204 or an empty body), which is
// distinct from an error.
func (c *TraktClient) GetWatching(ctx context.Context) (*domain.WatchingStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/users/%s/watching", c.baseURL, url.PathEscape(c.username))

	payload, err := retry.Do[watchingPayload](c.policy, func() (*http.Response, error) {
		return c.get(endpoint)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoContent) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching watching status: %w", err)
	}

	return convertWatching(payload)
}

func convertWatching(payload *watchingPayload) (*domain.WatchingStatus, error) {
	kind := domain.MediaKind(payload.Type)
	switch kind {
	case domain.KindMovie:
		if payload.Movie == nil {
			return nil, fmt.Errorf("watching response of type movie without movie body")
		}
	case domain.KindEpisode:
		if payload.Show == nil || payload.Episode == nil {
			return nil, fmt.Errorf("watching response of type episode without show or episode body")
		}
	default:
		return nil, fmt.Errorf("unknown media type %q", payload.Type)
	}

	return &domain.WatchingStatus{
		Kind:      kind,
		Action:    payload.Action,
		StartedAt: payload.StartedAt,
		ExpiresAt: payload.ExpiresAt,
		Movie:     payload.Movie,
		Show:      payload.Show,
		Episode:   payload.Episode,
	}, nil
}

// GetMovieRating fetches the community rating for a movie slug.
func (c *TraktClient) GetMovieRating(ctx context.Context, slug string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/movies/%s/ratings", c.baseURL, url.PathEscape(slug))

	payload, err := retry.Do[ratingsPayload](c.policy, func() (*http.Response, error) {
		return c.get(endpoint)
	})
	if err != nil {
		return 0, fmt.Errorf("fetching rating for %s: %w", slug, err)
	}

	return payload.Rating, nil
}

func (c *TraktClient) get(endpoint string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", traktAPIVersion)
	req.Header.Set("trakt-api-key", c.clientID)
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	return c.httpClient.Do(req)
}

// IsAuthError reports whether err is an upstream 401 or 403, which degrade
// to "nothing watching" instead of failing the poll cycle.
func IsAuthError(err error) bool {
	var status *retry.StatusError
	if !errors.As(err, &status) {
		return false
	}
	return status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden
}
