package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"identarr/internal/config"
	"identarr/internal/models"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultTimeout  = 15 * time.Second
	maxRetries      = 3
	cacheSweepRatio = 2
)

// Provider is the metadata catalog surface consumed by the resolution
// pipeline. Search calls may fail; callers are expected to treat search
// failures as empty results, detail failures as fatal.
type Provider interface {
	SearchMovie(ctx context.Context, query string, year int) ([]models.SearchCandidate, error)
	SearchTV(ctx context.Context, query string, year int) ([]models.SearchCandidate, error)
	SearchCollection(ctx context.Context, query string) ([]models.SearchCandidate, error)
	MovieDetail(ctx context.Context, id int64) (*MovieDetails, error)
	SeasonDetail(ctx context.Context, tvID int64, season int) (*models.SeasonInfo, error)
	CollectionDetail(ctx context.Context, id int64) (*CollectionDetails, error)
}

// Client talks to the TMDB v3 API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	cache      *gocache.Cache
	logger     *logrus.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a TMDB client.
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TMDBAPIKey == "" {
		return nil, fmt.Errorf("TMDB API key is required")
	}

	baseURL := cfg.TMDBBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	ttl := cfg.TMDBCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Client{
		apiKey:     cfg.TMDBAPIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   cfg.TMDBLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
		cache:      gocache.New(ttl, ttl*cacheSweepRatio),
		logger:     logger,
	}, nil
}

// searchResult models one entry of a TMDB paginated search response.
type searchResult struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// MovieDetails carries the movie detail payload fields the pipeline uses.
type MovieDetails struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type seasonResponse struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	Episodes     []struct {
		EpisodeNumber int    `json:"episode_number"`
		Name          string `json:"name"`
	} `json:"episodes"`
}

// CollectionDetails carries a collection and its member movie IDs.
type CollectionDetails struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Parts []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"parts"`
}

// SearchMovie searches movie candidates, optionally pinned to a year.
func (c *Client) SearchMovie(ctx context.Context, query string, year int) ([]models.SearchCandidate, error) {
	params := url.Values{}
	params.Set("query", query)
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	var resp searchResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, &models.ProviderError{Op: "search movie", Err: err}
	}
	return toCandidates(resp.Results, models.MediaKindMovie), nil
}

// SearchTV searches TV candidates, optionally pinned to a first-air year.
func (c *Client) SearchTV(ctx context.Context, query string, year int) ([]models.SearchCandidate, error) {
	params := url.Values{}
	params.Set("query", query)
	if year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(year))
	}

	var resp searchResponse
	if err := c.get(ctx, "/search/tv", params, &resp); err != nil {
		return nil, &models.ProviderError{Op: "search tv", Err: err}
	}
	return toCandidates(resp.Results, models.MediaKindTV), nil
}

// SearchCollection searches collection candidates.
func (c *Client) SearchCollection(ctx context.Context, query string) ([]models.SearchCandidate, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp searchResponse
	if err := c.get(ctx, "/search/collection", params, &resp); err != nil {
		return nil, &models.ProviderError{Op: "search collection", Err: err}
	}
	return toCandidates(resp.Results, models.MediaKindCollection), nil
}

// MovieDetail fetches the movie detail payload.
func (c *Client) MovieDetail(ctx context.Context, id int64) (*MovieDetails, error) {
	var details MovieDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), nil, &details); err != nil {
		return nil, &models.ProviderError{Op: "movie detail", Err: err}
	}
	return &details, nil
}

// SeasonDetail fetches one season of a show, episode list included.
func (c *Client) SeasonDetail(ctx context.Context, tvID int64, season int) (*models.SeasonInfo, error) {
	var resp seasonResponse
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", tvID, season), nil, &resp); err != nil {
		return nil, &models.ProviderError{Op: "season detail", Err: err}
	}

	info := &models.SeasonInfo{
		Number: resp.SeasonNumber,
		Name:   resp.Name,
	}
	for _, ep := range resp.Episodes {
		info.Episodes = append(info.Episodes, models.EpisodeInfo{
			Number: ep.EpisodeNumber,
			Name:   ep.Name,
		})
	}
	return info, nil
}

// CollectionDetail fetches a collection and its member movies.
func (c *Client) CollectionDetail(ctx context.Context, id int64) (*CollectionDetails, error) {
	var details CollectionDetails
	if err := c.get(ctx, fmt.Sprintf("/collection/%d", id), nil, &details); err != nil {
		return nil, &models.ProviderError{Op: "collection detail", Err: err}
	}
	return &details, nil
}

// get performs a cached GET against the TMDB API with bounded retries on
// transient failures.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}

	fullURL := c.baseURL + path + "?" + params.Encode()

	if cached, found := c.cache.Get(fullURL); found {
		return json.Unmarshal(cached.([]byte), out)
	}

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body = data
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("tmdb returned status %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("tmdb returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data))))
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return err
	}

	c.cache.SetDefault(fullURL, body)
	return json.Unmarshal(body, out)
}

func toCandidates(results []searchResult, kind models.MediaKind) []models.SearchCandidate {
	candidates := make([]models.SearchCandidate, 0, len(results))
	for _, r := range results {
		name := r.Title
		if name == "" {
			name = r.Name
		}
		candidates = append(candidates, models.SearchCandidate{
			ExternalID:  r.ID,
			DisplayName: name,
			ReleaseYear: releaseYear(r),
			Kind:        kind,
		})
	}
	return candidates
}

func releaseYear(r searchResult) int {
	date := r.ReleaseDate
	if date == "" {
		date = r.FirstAirDate
	}
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
