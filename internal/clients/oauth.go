package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/afonsojramos/discrakt/internal/domain"
)

// PollOutcome classifies one token-endpoint poll. Every outcome other than
// PollSuccess, PollPending and PollSlowDown is terminal for the current
// device code.
type PollOutcome int

const (
	PollSuccess PollOutcome = iota
	PollPending
	PollDenied
	PollExpired
	PollAlreadyUsed
	PollInvalidCode
	PollSlowDown
	PollFailure
)

func (o PollOutcome) String() string {
	switch o {
	case PollSuccess:
		return "success"
	case PollPending:
		return "pending"
	case PollDenied:
		return "denied"
	case PollExpired:
		return "expired"
	case PollAlreadyUsed:
		return "already used"
	case PollInvalidCode:
		return "invalid code"
	case PollSlowDown:
		return "slow down"
	case PollFailure:
		return "failure"
	}
	return "unknown"
}

// PollResult is the outcome of one poll. Tokens is set only on PollSuccess;
// Err only on PollFailure.
type PollResult struct {
	Outcome PollOutcome
	Tokens  *domain.TokenSet
	Err     error
}

// OAuthClient talks to Trakt's OAuth endpoints. The device-flow polling
// loop owns its own pacing (interval, slow-down, expiry), so these calls
// are single attempts with no retry executor underneath.
type OAuthClient struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
}

func NewOAuthClient(baseURL, clientID string, httpClient *http.Client) *OAuthClient {
	if baseURL == "" {
		baseURL = DefaultTraktBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &OAuthClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		clientID:   clientID,
	}
}

// RequestDeviceCode begins a device authorization: the returned user code
// and verification URL are shown to the user while the device code is
// polled against the token endpoint.
func (c *OAuthClient) RequestDeviceCode(ctx context.Context) (*domain.DeviceAuthorization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.post("/oauth/device/code", map[string]string{
		"client_id": c.clientID,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("requesting device code: HTTP %d", resp.StatusCode)
	}

	var auth domain.DeviceAuthorization
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("decoding device code response: %w", err)
	}
	return &auth, nil
}

// PollDeviceToken performs one poll of the token endpoint for the given
// device code. Trakt encodes the outcome in the status code: 200 success,
// 400 pending, 404 invalid, 409 already used, 410 expired, 418 denied,
// 429 slow down.
func (c *OAuthClient) PollDeviceToken(ctx context.Context, deviceCode string) PollResult {
	if err := ctx.Err(); err != nil {
		return PollResult{Outcome: PollFailure, Err: err}
	}

	resp, err := c.post("/oauth/device/token", map[string]string{
		"code":      deviceCode,
		"client_id": c.clientID,
	})
	if err != nil {
		return PollResult{Outcome: PollFailure, Err: fmt.Errorf("polling token endpoint: %w", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var tokens domain.TokenSet
		if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
			return PollResult{Outcome: PollFailure, Err: fmt.Errorf("decoding token response: %w", err)}
		}
		return PollResult{Outcome: PollSuccess, Tokens: &tokens}
	case http.StatusBadRequest:
		return PollResult{Outcome: PollPending}
	case http.StatusNotFound:
		return PollResult{Outcome: PollInvalidCode}
	case http.StatusConflict:
		return PollResult{Outcome: PollAlreadyUsed}
	case http.StatusGone:
		return PollResult{Outcome: PollExpired}
	case http.StatusTeapot:
		return PollResult{Outcome: PollDenied}
	case http.StatusTooManyRequests:
		return PollResult{Outcome: PollSlowDown}
	default:
		return PollResult{Outcome: PollFailure, Err: fmt.Errorf("polling token endpoint: HTTP %d", resp.StatusCode)}
	}
}

// RefreshToken exchanges a refresh token for a new token set. An upstream
// rejection of the token surfaces as domain.ErrInvalidRefreshToken so the
// caller can fall back to a full device flow.
func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := c.post("/oauth/token", map[string]string{
		"refresh_token": refreshToken,
		"client_id":     c.clientID,
		"grant_type":    "refresh_token",
	})
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var tokens domain.TokenSet
		if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
			return nil, fmt.Errorf("decoding refreshed token: %w", err)
		}
		return &tokens, nil
	case http.StatusBadRequest, http.StatusUnauthorized:
		return nil, fmt.Errorf("refreshing token: HTTP %d: %w", resp.StatusCode, domain.ErrInvalidRefreshToken)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("refreshing token: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
}

func (c *OAuthClient) post(path string, payload map[string]string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
