package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/afonsojramos/discrakt/internal/domain"
)

const (
	// DefaultTraktClientID is the shared application client id used when the
	// user has not registered their own Trakt application.
	DefaultTraktClientID = "0183a05ad97098d87287fe46da4ae286f434f32e8e951caad4cc147c947d79a3"

	// DefaultTMDBToken is the shared TMDB API key used for artwork and
	// localized-title lookups when the user supplies none.
	DefaultTMDBToken = "9b6a569a8f592345f2e6a4e44cdc29a5"

	// Default Discord application ids. The movie application is the overall
	// default; the show application is selected by the presence collaborator
	// when an episode is playing.
	DefaultDiscordAppIDMovie = "826189107046121572"
	DefaultDiscordAppIDShow  = "826189689487310878"
	DefaultDiscordAppID      = DefaultDiscordAppIDMovie

	// DefaultLanguage is the TMDB language tag used until the user picks one.
	DefaultLanguage = "en-US"

	defaultFileName = "credentials.yaml"
	filePermissions = 0o600
)

// Credentials mirrors the persisted file. Every field the core reads or
// writes is named here; the file may carry more, which is preserved on save.
type Credentials struct {
	Trakt   TraktCredentials   `mapstructure:"trakt"`
	TMDB    TMDBCredentials    `mapstructure:"tmdb"`
	Discord DiscordCredentials `mapstructure:"discord"`
	General GeneralSettings    `mapstructure:"general"`
}

type TraktCredentials struct {
	Username              string `mapstructure:"username"`
	ClientID              string `mapstructure:"client_id"`
	OAuthEnabled          bool   `mapstructure:"oauth_enabled"`
	AccessToken           string `mapstructure:"access_token"`
	RefreshToken          string `mapstructure:"refresh_token"`
	RefreshTokenExpiresAt int64  `mapstructure:"refresh_token_expires_at"`
}

type TMDBCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

type DiscordCredentials struct {
	AppID string `mapstructure:"app_id"`
}

type GeneralSettings struct {
	Language string `mapstructure:"language"`
}

// Store reads and writes the credentials file. It is owned by the startup
// path and the device-flow authorizer; query paths only read from it.
type Store struct {
	v    *viper.Viper
	path string
}

// Open loads the credentials file at path, creating the parent directory
// when missing. A missing file is not an error: the setup flow writes it.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading credentials file: %w", err)
			}
		}
	}

	return &Store{v: v, path: path}, nil
}

func defaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "discrakt", defaultFileName)
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Credentials decodes the current file contents.
func (s *Store) Credentials() (*Credentials, error) {
	var creds Credentials
	if err := s.v.Unmarshal(&creds); err != nil {
		return nil, fmt.Errorf("decoding credentials: %w", err)
	}
	return &creds, nil
}

func (s *Store) Username() string {
	return s.v.GetString("trakt.username")
}

// ClientID returns the configured Trakt client id, falling back to the
// shared application id.
func (s *Store) ClientID() string {
	if id := s.v.GetString("trakt.client_id"); id != "" {
		return id
	}
	return DefaultTraktClientID
}

func (s *Store) OAuthEnabled() bool {
	return s.v.GetBool("trakt.oauth_enabled")
}

func (s *Store) AccessToken() string {
	return s.v.GetString("trakt.access_token")
}

func (s *Store) RefreshToken() string {
	return s.v.GetString("trakt.refresh_token")
}

// RefreshTokenExpiry returns the persisted refresh expiry, or the zero time
// when none is stored.
func (s *Store) RefreshTokenExpiry() time.Time {
	raw := s.v.GetString("trakt.refresh_token_expires_at")
	if raw == "" {
		return time.Time{}
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0)
}

// TMDBToken returns the configured TMDB key, falling back to the shared one.
func (s *Store) TMDBToken() string {
	if key := s.v.GetString("tmdb.api_key"); key != "" {
		return key
	}
	return DefaultTMDBToken
}

// DiscordAppID returns the configured Discord application id, falling back
// to the default movie application.
func (s *Store) DiscordAppID() string {
	if id := s.v.GetString("discord.app_id"); id != "" {
		return id
	}
	return DefaultDiscordAppID
}

// Language returns the active TMDB language tag.
func (s *Store) Language() string {
	if lang := s.v.GetString("general.language"); lang != "" {
		return lang
	}
	return DefaultLanguage
}

// SetCredentials persists the user-submitted identity fields. OAuth is
// enabled so the device flow starts right after setup completes.
func (s *Store) SetCredentials(username, clientID string) error {
	s.v.Set("trakt.username", username)
	s.v.Set("trakt.client_id", clientID)
	s.v.Set("trakt.oauth_enabled", true)
	return s.write()
}

// SetLanguage persists the active language.
func (s *Store) SetLanguage(language string) error {
	s.v.Set("general.language", language)
	return s.write()
}

// SaveTokens writes the access token, refresh token and the computed
// refresh expiry together. Callers must not publish an authorized state
// until this returns.
func (s *Store) SaveTokens(tokens *domain.TokenSet, now time.Time) error {
	s.v.Set("trakt.access_token", tokens.AccessToken)
	s.v.Set("trakt.refresh_token", tokens.RefreshToken)
	s.v.Set("trakt.refresh_token_expires_at", strconv.FormatInt(tokens.RefreshExpiry(now).Unix(), 10))
	return s.write()
}

func (s *Store) write() error {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	// Tokens live in this file; keep it out of reach of other users.
	if err := os.Chmod(s.path, filePermissions); err != nil {
		return fmt.Errorf("restricting credentials file permissions: %w", err)
	}
	return nil
}
