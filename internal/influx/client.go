package influx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	backfill "energy-import/internal/backfill/domain"
	"energy-import/internal/observability/metrics"
)

const (
	defaultSeries      = "autogen.http"
	defaultTimeout     = 10 * time.Second
	defaultHistorySize = 50
)

// Client is a minimal InfluxDB 1.8 query client. It keeps a bounded
// history of issued queries for diagnostics.
type Client struct {
	baseURL  string
	database string
	username string
	password string
	series   string
	client   *http.Client

	mu      sync.Mutex
	history []string
	histCap int
}

// Option configures the client.
type Option func(*Client)

// WithCredentials sets basic auth credentials.
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithSeries overrides the default retention policy and measurement.
func WithSeries(series string) Option {
	return func(c *Client) {
		if series != "" {
			c.series = series
		}
	}
}

// WithTimeout overrides the default HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// NewClient constructs a client for the given base URL and database.
func NewClient(baseURL, database string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("influx: empty base url")
	}
	if database == "" {
		return nil, errors.New("influx: empty database")
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		database: database,
		series:   defaultSeries,
		client:   &http.Client{Timeout: defaultTimeout},
		histCap:  defaultHistorySize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HourlyEnergy returns energy accrued in each local hour of the date,
// in kWh. The local day boundary is converted to UTC before querying;
// returned buckets are re-homed into local-hour slots and rows falling
// outside the requested date are dropped. Missing buckets stay 0.
func (c *Client) HourlyEnergy(ctx context.Context, field string, date time.Time, loc *time.Location) (backfill.DaySamples, error) {
	var samples backfill.DaySamples

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE time >= '%s' AND time < '%s' GROUP BY time(1h) fill(0)",
		energyExpr(field, "energy"),
		c.series,
		formatInstant(dayStart),
		formatInstant(dayEnd),
	)

	values, err := c.queryValues(ctx, q)
	if err != nil {
		return backfill.DaySamples{}, err
	}
	for _, row := range values {
		ts, energy, ok := parseRow(row)
		if !ok || energy <= 0 {
			continue
		}
		local := ts.In(loc)
		if !backfill.DateOf(local).Equal(dayStart) {
			continue
		}
		samples[local.Hour()] += energy
	}
	return samples, nil
}

// CumulativeBefore returns the cumulative energy integral of the field
// from the earliest record up to the cutoff instant, in kWh.
func (c *Client) CumulativeBefore(ctx context.Context, field string, cutoff time.Time) (float64, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM %s WHERE time < '%s'",
		energyExpr(field, "cumulative"),
		c.series,
		formatInstant(cutoff),
	)
	values, err := c.queryValues(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	_, total, ok := parseRow(values[0])
	if !ok {
		return 0, nil
	}
	return total, nil
}

// EarliestTimestamp returns the instant of the first recorded sample for
// the field, or ok=false when the series holds no data.
func (c *Client) EarliestTimestamp(ctx context.Context, field string) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT FIRST(%s) FROM %s", field, c.series)
	values, err := c.queryValues(ctx, q)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}
	ts, _, ok := parseRow(values[0])
	if !ok {
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// History returns recently issued queries, most recent last.
func (c *Client) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Client) recordQuery(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, q)
	if len(c.history) > c.histCap {
		c.history = c.history[len(c.history)-c.histCap:]
	}
}

type queryResponse struct {
	Results []struct {
		Series []struct {
			Columns []string            `json:"columns"`
			Values  [][]json.RawMessage `json:"values"`
		} `json:"series"`
		Error string `json:"error"`
	} `json:"results"`
	Error string `json:"error"`
}

func (c *Client) queryValues(ctx context.Context, q string) (values [][]json.RawMessage, err error) {
	c.recordQuery(q)

	started := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveSourceQuery(result, time.Since(started))
	}()

	params := url.Values{}
	params.Set("db", c.database)
	params.Set("q", q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("influx: http %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("influx: %s", decoded.Error)
	}
	if len(decoded.Results) == 0 {
		return nil, nil
	}
	result := decoded.Results[0]
	if result.Error != "" {
		return nil, fmt.Errorf("influx: %s", result.Error)
	}
	if len(result.Series) == 0 {
		return nil, nil
	}
	return result.Series[0].Values, nil
}

// energyExpr builds the kWh integral expression for a raw power field.
// The home field is derived from the four measured flows.
func energyExpr(field, alias string) string {
	if field == "home" {
		return "integral(from_grid)/1000/3600 + integral(from_pw)/1000/3600 + integral(solar)/1000/3600" +
			" - integral(to_grid)/1000/3600 - integral(to_pw)/1000/3600 AS " + alias
	}
	return fmt.Sprintf("integral(%s)/1000/3600 AS %s", field, alias)
}

func formatInstant(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func parseRow(row []json.RawMessage) (time.Time, float64, bool) {
	if len(row) < 2 {
		return time.Time{}, 0, false
	}
	var tsRaw string
	if err := json.Unmarshal(row[0], &tsRaw); err != nil {
		return time.Time{}, 0, false
	}
	ts, err := time.Parse(time.RFC3339, tsRaw)
	if err != nil {
		return time.Time{}, 0, false
	}
	var value *float64
	if err := json.Unmarshal(row[1], &value); err != nil || value == nil {
		return ts, 0, false
	}
	return ts, *value, true
}
