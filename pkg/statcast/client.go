package statcast

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the Baseball Savant host serving statcast search.
const DefaultBaseURL = "https://baseballsavant.mlb.com"

const searchPath = "/statcast_search/csv"

// Prometheus metrics for statcast search operations.
var (
	searchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statcast_requests_total",
		Help: "Total statcast search requests by query kind and status",
	}, []string{"query", "status"})

	searchRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statcast_request_duration_seconds",
		Help:    "Statcast search request duration in seconds by query kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"query"})

	searchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statcast_errors_total",
		Help: "Total statcast search errors by failure kind",
	}, []string{"failure_kind"})

	searchRowsFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statcast_rows_fetched_total",
		Help: "Total pitch rows fetched by event category",
	}, []string{"category"})
)

// Client executes statcast searches against Baseball Savant.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the search client configuration.
type Config struct {
	// BaseURL of the Baseball Savant host.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// RowCap is the per-request row ceiling. Must not exceed the
	// provider's hard limit of 25,000.
	RowCap int

	// Timeout per HTTP request.
	Timeout time.Duration

	// Retry policy for transient failures.
	Retry RetryPolicy
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: "statcast-harvester/1.0",
		RowCap:    MaxSearchRows,
		Timeout:   60 * time.Second,
		Retry:     DefaultRetryPolicy(),
	}
}

// New creates a new statcast search client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.RowCap <= 0 || cfg.RowCap > MaxSearchRows {
		return nil, fmt.Errorf("row cap must be in 1..%d (got %d)", MaxSearchRows, cfg.RowCap)
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	logger := log.With().Str("component", "statcast-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// RowCap returns the configured per-request row ceiling.
func (c *Client) RowCap() int {
	return c.config.RowCap
}

// Search executes one bounded pitch-detail search. The returned dataset
// holds only rows of the requested category; for NonBBE the wire
// response carries all pitches and batted balls are filtered out here.
//
// When the response hits rowCap the data cannot be trusted to be
// complete and a truncated SearchError is returned instead.
func (c *Client) Search(ctx context.Context, r DateRange, category EventCategory, gt GameType, rowCap int) (*Dataset, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if rowCap <= 0 || rowCap > c.config.RowCap {
		rowCap = c.config.RowCap
	}

	params := detailParams(r, gt, category == CategoryBBE)

	body, err := c.doSearch(ctx, "details", params)
	if err != nil {
		return nil, err
	}

	ds, err := DecodeDataset(bytes.NewReader(body))
	if err != nil {
		searchErrorsTotal.WithLabelValues(string(FailureMalformed)).Inc()
		return nil, &SearchError{
			Kind:    FailureMalformed,
			Message: fmt.Sprintf("decode search results for %s..%s", r.Start, r.End),
			Err:     err,
		}
	}

	if ds.Len() >= rowCap {
		searchErrorsTotal.WithLabelValues(string(FailureTruncated)).Inc()
		c.logger.Warn().
			Str("start", r.Start.String()).
			Str("end", r.End.String()).
			Int("rows", ds.Len()).
			Int("row_cap", rowCap).
			Msg("Search response truncated at row cap")
		return nil, &SearchError{
			Kind:    FailureTruncated,
			Message: fmt.Sprintf("%d rows returned for %s..%s, row cap %d", ds.Len(), r.Start, r.End, rowCap),
		}
	}

	if category == CategoryNonBBE {
		ds = ds.Filter(func(rec PitchRecord) bool { return !rec.IsBBE() })
	}

	searchRowsFetchedTotal.WithLabelValues(string(category)).Add(float64(ds.Len()))
	c.logger.Debug().
		Str("start", r.Start.String()).
		Str("end", r.End.String()).
		Str("category", string(category)).
		Int("rows", ds.Len()).
		Msg("Search complete")

	return ds, nil
}

// CountsByDate runs the grouped pitch-count searches for a range and
// returns total and batted-ball event counts per game date. Dates
// without games do not appear in the result.
func (c *Client) CountsByDate(ctx context.Context, r DateRange, gt GameType) (map[Date]DayCounts, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	counts := make(map[Date]DayCounts)

	allBody, err := c.doSearch(ctx, "counts", countParams(r, gt, false))
	if err != nil {
		return nil, err
	}
	allCounts, err := parseCounts(allBody)
	if err != nil {
		return nil, err
	}
	for date, n := range allCounts {
		counts[date] = DayCounts{Pitches: n}
	}

	bbeBody, err := c.doSearch(ctx, "counts", countParams(r, gt, true))
	if err != nil {
		return nil, err
	}
	bbeCounts, err := parseCounts(bbeBody)
	if err != nil {
		return nil, err
	}
	for date, n := range bbeCounts {
		dc := counts[date]
		dc.BBE = n
		counts[date] = dc
	}

	return counts, nil
}

// doSearch performs the HTTP request with retry and classification.
func (c *Client) doSearch(ctx context.Context, query string, params SearchParams) ([]byte, error) {
	url := c.config.BaseURL + searchPath + "?" + params.Values().Encode()

	startTime := time.Now()
	defer func() {
		searchRequestDuration.WithLabelValues(query).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte

	retryErr := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &SearchError{Kind: FailureMalformed, Message: "create request", Err: err}
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("query", query).Msg("HTTP request failed")
			searchErrorsTotal.WithLabelValues(string(FailureNetwork)).Inc()
			searchRequestsTotal.WithLabelValues(query, "network_error").Inc()
			return &SearchError{Kind: FailureNetwork, Message: "http request", Err: err}
		}
		defer resp.Body.Close()

		searchRequestsTotal.WithLabelValues(query, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			kind := classifyStatus(resp.StatusCode)
			searchErrorsTotal.WithLabelValues(string(kind)).Inc()
			c.logger.Warn().
				Str("query", query).
				Int("status", resp.StatusCode).
				Str("failure_kind", string(kind)).
				Msg("Statcast request error")
			return &SearchError{
				Kind:       kind,
				StatusCode: resp.StatusCode,
				Message:    resp.Status,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			searchErrorsTotal.WithLabelValues(string(FailureNetwork)).Inc()
			return &SearchError{Kind: FailureNetwork, Message: "read response body", Err: err}
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return body, nil
}

// classifyStatus maps an HTTP status to a failure kind. 524 is the
// provider's gateway-timeout-under-load status and is treated as rate
// limiting, as is 429. Other 4xx statuses are hard failures.
func classifyStatus(status int) FailureKind {
	switch {
	case status == http.StatusTooManyRequests || status == 524:
		return FailureRateLimited
	case status >= 500:
		return FailureNetwork
	default:
		return FailureMalformed
	}
}

// parseCounts reads grouped count-search CSV into per-date totals.
func parseCounts(body []byte) (map[Date]int, error) {
	cr := csv.NewReader(bytes.NewReader(body))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, &SearchError{Kind: FailureMalformed, Message: "read count header", Err: err}
	}
	idx, err := columnIndex(header, colGameDate, "pitches")
	if err != nil {
		return nil, &SearchError{Kind: FailureMalformed, Message: "count columns", Err: err}
	}

	counts := make(map[Date]int)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SearchError{Kind: FailureMalformed, Message: "read count row", Err: err}
		}
		date, err := ParseDate(row[idx[colGameDate]])
		if err != nil {
			return nil, &SearchError{Kind: FailureMalformed, Message: "count game_date", Err: err}
		}
		n, err := strconv.Atoi(row[idx["pitches"]])
		if err != nil {
			return nil, &SearchError{Kind: FailureMalformed, Message: "count pitches", Err: err}
		}
		counts[date] += n
	}
	return counts, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
