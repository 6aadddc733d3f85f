package backend

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/chartfang/pkg/fetch"
	"github.com/Sumatoshi-tech/chartfang/pkg/rolling"
	"github.com/Sumatoshi-tech/chartfang/pkg/safeconv"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 60 * time.Second

const maxResponseBytes = 8 << 20

// ErrMissingBaseURL is returned when the client is built without a base URL.
var ErrMissingBaseURL = errors.New("backend base url is required")

// ServerError is a non-2xx reply from the backend.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("backend http %d: %s", e.Status, e.Message)
}

// Config holds client settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to a chartfang backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// WeeklyChart fetches the raw chart for one period.
func (c *Client) WeeklyChart(ctx context.Context, user, kind string, from, to time.Time) (*WeeklyChartResponse, error) {
	var resp WeeklyChartResponse

	err := c.get(ctx, PathWeeklyChart, url.Values{
		ParamUsername:  {user},
		ParamChartType: {kind},
		ParamFromDate:  {strconv.FormatInt(from.Unix(), 10)},
		ParamToDate:    {strconv.FormatInt(to.Unix(), 10)},
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// FetchSnapshot implements fetch.Fetcher.
func (c *Client) FetchSnapshot(ctx context.Context, req fetch.Request) (rolling.Snapshot, error) {
	resp, err := c.WeeklyChart(ctx, req.Subject, req.Kind, req.Span.Start, req.Span.End)
	if err != nil {
		return rolling.Snapshot{}, err
	}

	entries, err := resp.ToEntries()
	if err != nil {
		return rolling.Snapshot{}, err
	}

	return rolling.NewSnapshot(req.Span.End, entries...), nil
}

// UserInfo fetches the profile of user.
func (c *Client) UserInfo(ctx context.Context, user string) (*UserInfoResponse, error) {
	var resp UserInfoResponse

	err := c.get(ctx, PathInfo, url.Values{ParamUsername: {user}}, &resp)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// RegisteredAt returns when user signed up.
func (c *Client) RegisteredAt(ctx context.Context, user string) (time.Time, error) {
	info, err := c.UserInfo(ctx, user)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(info.RegisteredAt, 0).UTC(), nil
}

// ToEntries converts the response to snapshot entries. Entries is used when
// present; otherwise Chart is ordered by count, then name.
func (r *WeeklyChartResponse) ToEntries() ([]rolling.Entry, error) {
	list := r.Entries
	if len(list) == 0 && len(r.Chart) > 0 {
		list = make([]ChartEntry, 0, len(r.Chart))
		for name, count := range r.Chart {
			list = append(list, ChartEntry{Name: name, PlayCount: count})
		}

		slices.SortFunc(list, func(a, b ChartEntry) int {
			if c := cmp.Compare(b.PlayCount, a.PlayCount); c != 0 {
				return c
			}

			return strings.Compare(a.Name, b.Name)
		})
	}

	entries := make([]rolling.Entry, 0, len(list))

	for _, item := range list {
		e, err := rolling.NewEntry(item.Name, item.PlayCount)
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// NewWeeklyChartResponse builds a response from entries in chart order.
func NewWeeklyChartResponse(entries []rolling.Entry, to time.Time) WeeklyChartResponse {
	resp := WeeklyChartResponse{
		Chart:   make(map[string]int64, len(entries)),
		Entries: make([]ChartEntry, 0, len(entries)),
		ToDate:  to.Unix(),
	}

	for _, e := range entries {
		n := safeconv.ClampToInt64(uint64(e.Count))
		resp.Chart[string(e.Item)] = n
		resp.Entries = append(resp.Entries, ChartEntry{Name: string(e.Item), PlayCount: n})
	}

	return resp
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var errResp ErrorResponse

		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}

		return &ServerError{Status: resp.StatusCode, Message: msg}
	}

	err = validateResponse(path, body)
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}
