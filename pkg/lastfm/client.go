// Package lastfm is a minimal client for the Last.fm web service covering the
// weekly chart and user info methods.
package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
)

// DefaultBaseURL is the public Last.fm web service endpoint.
const DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// ErrMissingAPIKey is returned when the client is built without an API key.
var ErrMissingAPIKey = errors.New("last.fm api key is required")

// ErrEmptyUser is returned when a call is made without a username.
var ErrEmptyUser = errors.New("username is required")

// APIError is an error reported by the Last.fm service.
type APIError struct {
	Status  int    // HTTP status.
	Code    int    // Last.fm error code, 0 if absent.
	Message string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("last.fm error %d: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("last.fm http %d: %s", e.Status, e.Message)
}

// Config holds client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the Last.fm web service.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient validates cfg and creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{apiKey: cfg.APIKey, baseURL: baseURL, http: httpClient}, nil
}

// UserInfo describes a Last.fm user.
type UserInfo struct {
	Name         string    `json:"name"`
	RealName     string    `json:"real_name,omitempty"`
	URL          string    `json:"url,omitempty"`
	Country      string    `json:"country,omitempty"`
	PlayCount    int64     `json:"play_count"`
	RegisteredAt time.Time `json:"registered_at"`
}

// WeeklyChart returns the chart entries for user between from and to, in the
// order the service ranks them.
func (c *Client) WeeklyChart(ctx context.Context, user string, kind ChartKind, from, to time.Time) ([]rolling.Entry, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	user, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}

	body, err := c.call(ctx, kind.method(), url.Values{
		"user": {user},
		"from": {strconv.FormatInt(from.Unix(), 10)},
		"to":   {strconv.FormatInt(to.Unix(), 10)},
	})
	if err != nil {
		return nil, err
	}

	return decodeWeeklyChart(body, kind)
}

// FetchSnapshot implements fetch.Fetcher.
func (c *Client) FetchSnapshot(ctx context.Context, req fetch.Request) (rolling.Snapshot, error) {
	kind, err := ParseKind(req.Kind)
	if err != nil {
		return rolling.Snapshot{}, err
	}

	entries, err := c.WeeklyChart(ctx, req.Subject, kind, req.Span.Start, req.Span.End)
	if err != nil {
		return rolling.Snapshot{}, err
	}

	return rolling.NewSnapshot(req.Span.End, entries...), nil
}

// UserInfo returns profile information for user.
func (c *Client) UserInfo(ctx context.Context, user string) (UserInfo, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return UserInfo{}, err
	}

	body, err := c.call(ctx, "user.getinfo", url.Values{"user": {user}})
	if err != nil {
		return UserInfo{}, err
	}

	return decodeUserInfo(body)
}

// RegisteredAt returns when user signed up.
func (c *Client) RegisteredAt(ctx context.Context, user string) (time.Time, error) {
	info, err := c.UserInfo(ctx, user)
	if err != nil {
		return time.Time{}, err
	}

	return info.RegisteredAt, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values) ([]byte, error) {
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}

	var apiErr struct {
		Error   int    `json:"error"`
		Message string `json:"message"`
	}

	// Last.fm reports failures in the body, sometimes with a 200 status.
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != 0 {
		return nil, &APIError{Status: resp.StatusCode, Code: apiErr.Error, Message: apiErr.Message}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return body, nil
}

func normalizeUser(user string) (string, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return "", ErrEmptyUser
	}

	return user, nil
}
