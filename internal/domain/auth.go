package domain

import "time"

// RefreshTokenLifetime is how long a refresh token is trusted after an
// exchange. Trakt does not declare a refresh lifetime of its own, so the
// 90-day window is a policy constant computed at exchange time.
const RefreshTokenLifetime = 90 * 24 * time.Hour

// DeviceAuthorization is the response of the device code endpoint. The
// device code is a secret only ever sent back to the token endpoint; the
// user code is the short string shown to the user.
type DeviceAuthorization struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int64  `json:"expires_in"`
	Interval        int64  `json:"interval"`
}

// TokenSet is a full OAuth token response from Trakt.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
}

// RefreshExpiry computes when the refresh token stops being trusted,
// relative to the moment the token set was obtained.
func (t *TokenSet) RefreshExpiry(now time.Time) time.Time {
	return now.Add(RefreshTokenLifetime)
}

// AuthPhase enumerates the device-flow state machine phases.
type AuthPhase int

const (
	AuthIdle AuthPhase = iota
	AuthPending
	AuthSuccess
	AuthDenied
	AuthExpired
	AuthError
)

func (p AuthPhase) String() string {
	switch p {
	case AuthIdle:
		return "idle"
	case AuthPending:
		return "pending"
	case AuthSuccess:
		return "success"
	case AuthDenied:
		return "denied"
	case AuthExpired:
		return "expired"
	case AuthError:
		return "error"
	}
	return "unknown"
}

// AuthState is an immutable snapshot of the device-flow state machine.
// AuthorizedAt is set only on AuthSuccess; Message only on AuthError.
// Snapshots are passed by value so readers never observe a partial write.
type AuthState struct {
	Phase        AuthPhase
	AuthorizedAt time.Time
	Message      string
}

// Terminal reports whether no further transitions are possible without a
// fresh device-code request.
func (s AuthState) Terminal() bool {
	switch s.Phase {
	case AuthSuccess, AuthDenied, AuthExpired, AuthError:
		return true
	}
	return false
}
