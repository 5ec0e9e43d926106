package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/afonsojramos/discrakt/internal/retry"
)

const (
	// DefaultTMDBBaseURL is the production TMDB API host.
	DefaultTMDBBaseURL = "https://api.themoviedb.org"

	// tmdbImageBaseURL is prepended to poster file paths to form the
	// absolute artwork URL handed to the presence collaborator.
	tmdbImageBaseURL = "https://image.tmdb.org/t/p/w600_and_h600_bestv2"
)

// TMDBConfig configures a TMDBClient; zero values fall back to production
// defaults.
type TMDBConfig struct {
	BaseURL    string
	APIKey     string
	Policy     *retry.Policy
	HTTPClient *http.Client
}

// TMDBClient answers artwork and localized-title queries.
type TMDBClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	policy     retry.Policy
}

func NewTMDBClient(cfg TMDBConfig) *TMDBClient {
	client := &TMDBClient{
		httpClient: cfg.HTTPClient,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		policy:     retry.DefaultPolicy(),
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if client.baseURL == "" {
		client.baseURL = DefaultTMDBBaseURL
	}
	if cfg.Policy != nil {
		client.policy = *cfg.Policy
	}
	return client
}

type imagesPayload struct {
	ID      int64 `json:"id"`
	Posters []struct {
		FilePath string `json:"file_path"`
	} `json:"posters"`
}

type movieDetailsPayload struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type tvDetailsPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetMovieImage returns the absolute poster URL for a movie, or "" when
// TMDB has no poster.
func (c *TMDBClient) GetMovieImage(ctx context.Context, tmdbID int64) (string, error) {
	endpoint := fmt.Sprintf("%s/3/movie/%d/images", c.baseURL, tmdbID)
	return c.fetchImage(ctx, endpoint)
}

// GetShowImage returns the absolute poster URL for a show season, or ""
// when TMDB has no poster for it.
func (c *TMDBClient) GetShowImage(ctx context.Context, tmdbID, season int64) (string, error) {
	endpoint := fmt.Sprintf("%s/3/tv/%d/season/%d/images", c.baseURL, tmdbID, season)
	return c.fetchImage(ctx, endpoint)
}

func (c *TMDBClient) fetchImage(ctx context.Context, endpoint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("api_key", c.apiKey)

	payload, err := retry.Do[imagesPayload](c.policy, func() (*http.Response, error) {
		return c.httpClient.Get(endpoint + "?" + query.Encode())
	})
	if err != nil {
		return "", fmt.Errorf("fetching images: %w", err)
	}

	if len(payload.Posters) == 0 {
		return "", nil
	}
	return tmdbImageBaseURL + payload.Posters[0].FilePath, nil
}

// GetMovieTitle returns the movie title localized for the given language.
func (c *TMDBClient) GetMovieTitle(ctx context.Context, tmdbID int64, language string) (string, error) {
	endpoint := fmt.Sprintf("%s/3/movie/%d", c.baseURL, tmdbID)

	payload, err := fetchDetails[movieDetailsPayload](ctx, c, endpoint, language)
	if err != nil {
		return "", err
	}
	return payload.Title, nil
}

// GetShowTitle returns the show name localized for the given language.
func (c *TMDBClient) GetShowTitle(ctx context.Context, tmdbID int64, language string) (string, error) {
	endpoint := fmt.Sprintf("%s/3/tv/%d", c.baseURL, tmdbID)

	payload, err := fetchDetails[tvDetailsPayload](ctx, c, endpoint, language)
	if err != nil {
		return "", err
	}
	return payload.Name, nil
}

// GetEpisodeTitle returns the episode name localized for the given language.
func (c *TMDBClient) GetEpisodeTitle(ctx context.Context, tmdbID, season, episode int64, language string) (string, error) {
	endpoint := fmt.Sprintf("%s/3/tv/%d/season/%d/episode/%d", c.baseURL, tmdbID, season, episode)

	payload, err := fetchDetails[tvDetailsPayload](ctx, c, endpoint, language)
	if err != nil {
		return "", err
	}
	return payload.Name, nil
}

func fetchDetails[T any](ctx context.Context, c *TMDBClient, endpoint, language string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("api_key", c.apiKey)
	query.Set("language", language)

	payload, err := retry.Do[T](c.policy, func() (*http.Response, error) {
		return c.httpClient.Get(endpoint + "?" + query.Encode())
	})
	if err != nil {
		return nil, fmt.Errorf("fetching details: %w", err)
	}
	return payload, nil
}
