package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/metrics"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"
	breakerName         = "tmdb-api"
)

type Config struct {
	APIKey            string
	BaseURL           string
	ImageBaseURL      string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// HTTPError is a non-200 answer from TMDB.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

type TMDBClient struct {
	apiKey    string
	baseURL   string
	imageBase string
	client    *http.Client
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[[]byte]
	log       zerolog.Logger
}

func NewTMDBClient(cfg Config) *TMDBClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultImageBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	log := logging.Component("tmdb")
	metrics.SetBreakerState(breakerName, 0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Client errors say nothing about TMDB's health.
		IsSuccessful: func(err error) bool {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.SetBreakerState(name, int(to))
		},
	})

	return &TMDBClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		imageBase: cfg.ImageBaseURL,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cb:        cb,
		log:       log,
	}
}

// get fetches endpoint with the api key and params and decodes the body into out.
// name labels the request in metrics.
func (c *TMDBClient) get(ctx context.Context, name, endpoint string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("tmdb.%s: %w", name, err)
	}

	u, err := url.Parse(c.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("tmdb.%s: %w", name, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.fetch(ctx, name, u.String())
	})
	if err != nil {
		return fmt.Errorf("tmdb.%s: %w", name, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb.%s: decode: %w", name, err)
	}
	return nil
}

func (c *TMDBClient) fetch(ctx context.Context, name, rawURL string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordCatalogRequest(name, 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordCatalogRequest(name, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			StatusMessage string `json:"status_message"`
		}
		msg := string(body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.StatusMessage != "" {
			msg = apiErr.StatusMessage
		}
		c.log.Debug().Str("endpoint", name).Int("status", resp.StatusCode).Msg("tmdb request failed")
		return nil, &HTTPError{StatusCode: resp.StatusCode, Message: msg}
	}
	return body, nil
}
