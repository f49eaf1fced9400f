package profileapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/jcline/jcline/src/internal/domain"
)

// Client implements ports.ProfileStore against a remote profile Server.
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewClient builds a client. tokens may be nil for unauthenticated deployments.
func NewClient(baseURL string, tokens oauth2.TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func profilePath(userID string) string {
	return "/api/v1/profiles/" + url.PathEscape(userID)
}

func (c *Client) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.doRequest(ctx, http.MethodGet, profilePath(userID), nil, &p); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("profileapi.Get: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (c *Client) Create(ctx context.Context, userID string, profile *domain.Profile) error {
	if err := c.doRequest(ctx, http.MethodPut, profilePath(userID), profile, nil); err != nil {
		return fmt.Errorf("profileapi.Create: %w", err)
	}
	return nil
}

func (c *Client) UpdateFields(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	if err := c.doRequest(ctx, http.MethodPatch, profilePath(userID), update, nil); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return domain.ErrProfileNotFound
		}
		return fmt.Errorf("profileapi.UpdateFields: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("access token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
