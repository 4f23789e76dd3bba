package train

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/nickdesi/BusTrainGerzat-sub000/timeutil"
)

// Freshness variants of the departures endpoint.
const (
	FreshnessBase     = "base_schedule"
	FreshnessRealtime = "realtime"
)

// ErrRateLimited is returned when the API answers 429; the upstream
// enforces a daily request quota.
var ErrRateLimited = errors.New("sncf api rate limited")

const (
	retryAttempts  = 3
	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 10 * time.Second
)

// Client queries the SNCF departures API for one station.
type Client struct {
	httpClient *http.Client
	baseURL    string
	stationID  string
	count      int
	apiKey     string
}

// NewClient creates a train API client. An empty apiKey produces a
// client that reports missing credentials instead of issuing requests.
func NewClient(baseURL, stationID, apiKey string, count int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if count <= 0 {
		count = 10
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		stationID:  stationID,
		count:      count,
		apiKey:     apiKey,
	}
}

// Authenticated reports whether an API key is configured.
func (c *Client) Authenticated() bool { return c.apiKey != "" }

// Departures fetches one freshness variant of the station's departures.
// 5xx and network failures are retried with backoff; 429 surfaces as
// ErrRateLimited so the caller can fall back to its cache.
func (c *Client) Departures(ctx context.Context, freshness string) ([]Departure, error) {
	endpoint := fmt.Sprintf("%s/coverage/sncf/stop_areas/%s/departures?%s",
		c.baseURL,
		url.PathEscape(c.stationID),
		url.Values{
			"data_freshness": {freshness},
			"count":          {fmt.Sprint(c.count)},
		}.Encode(),
	)

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDelay(attempt)):
			}
		}
		deps, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			return deps, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryableError(err) {
			break
		}
	}
	return nil, lastErr
}

type httpStatusError struct{ code int }

func (e *httpStatusError) Error() string { return fmt.Sprintf("sncf api HTTP %d", e.code) }

func retryableError(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return false // quota exhausted; retrying burns more of it
	}
	var se *httpStatusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]Departure, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sncf api fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &httpStatusError{code: resp.StatusCode}
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("sncf api decode: %w", err)
	}
	if body.Departures == nil {
		return nil, errors.New("sncf api response missing departures")
	}

	out := make([]Departure, 0, len(body.Departures))
	for _, d := range body.Departures {
		out = append(out, Departure{
			JourneyID:   d.journeyID(),
			Number:      d.DisplayInfo.TripShortName,
			Network:     d.DisplayInfo.Network,
			Destination: d.DisplayInfo.Direction,
			Platform:    d.StopPoint.PlatformCode,
			Arrival:     timeutil.ParseLocalTime(d.StopDateTime.ArrivalDateTime),
			Departure:   timeutil.ParseLocalTime(d.StopDateTime.DepartureDateTime),
			Cancelled:   d.cancelled(),
		})
	}
	return out, nil
}

func backoffDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	d += time.Duration(rand.Int63n(int64(d) / 2))
	if d > retryMaxDelay {
		d = retryMaxDelay
	}
	return d
}
