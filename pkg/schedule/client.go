package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statforge/statcast-harvester/pkg/cache"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// DefaultBaseURL is the public MLB statsapi host.
const DefaultBaseURL = "https://statsapi.mlb.com"

const schedulePath = "/api/v1/schedule"

// closedSeasonTTL is how long fully-final season schedules stay cached.
// They no longer change; the long TTL just bounds staleness if a
// correction ever lands upstream.
const closedSeasonTTL = 7 * 24 * time.Hour

// Config holds the schedule client configuration.
type Config struct {
	// BaseURL of the statsapi host.
	BaseURL string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Cache is the optional response cache. Nil disables caching.
	Cache *cache.Manager

	// CacheTTL applies to schedules of seasons still in progress.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		Timeout:  30 * time.Second,
		CacheTTL: 6 * time.Hour,
	}
}

// Client retrieves season schedules from the statsapi.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewClient creates a new schedule client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.With().Str("component", "schedule-client").Logger(),
	}
}

// scheduleResponse mirrors the statsapi schedule payload shape.
type scheduleResponse struct {
	Dates []struct {
		Date  string `json:"date"`
		Games []struct {
			Status struct {
				AbstractGameState string `json:"abstractGameState"`
			} `json:"status"`
		} `json:"games"`
	} `json:"dates"`
}

// SeasonSchedule retrieves the schedule for a season and game type.
func (c *Client) SeasonSchedule(ctx context.Context, year int, gt statcast.GameType) (*Season, error) {
	if !statcast.IsValidSeason(year) {
		return nil, fmt.Errorf("%d is not a valid MLB season", year)
	}
	if _, err := statcast.ParseGameType(string(gt)); err != nil {
		return nil, err
	}

	params := url.Values{
		"sportId":  {"1"},
		"season":   {fmt.Sprintf("%d", year)},
		"gameType": {string(gt)},
	}
	key := cache.Key{Endpoint: "schedule", Params: params}

	body, cached, err := c.fetch(ctx, key, params)
	if err != nil {
		return nil, err
	}

	season, err := parseSeason(body, year, gt)
	if err != nil {
		return nil, err
	}

	if !cached && c.config.Cache != nil {
		ttl := c.config.CacheTTL
		if allFinal(season) {
			ttl = closedSeasonTTL
		}
		if err := c.config.Cache.Set(ctx, key, cache.NewEntry(body, ttl)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache schedule response")
		}
	}

	return season, nil
}

// fetch returns the schedule payload, preferring the cache.
func (c *Client) fetch(ctx context.Context, key cache.Key, params url.Values) (body []byte, fromCache bool, err error) {
	if entry, err := c.config.Cache.Get(ctx, key); err == nil {
		c.logger.Debug().Str("key", key.String()).Msg("Schedule cache hit")
		return entry.Data, true, nil
	} else if err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Schedule cache get error")
	}

	reqURL := c.config.BaseURL + schedulePath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("schedule request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("schedule request: unexpected status %s", resp.Status)
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read schedule response: %w", err)
	}
	return body, false, nil
}

// parseSeason decodes the statsapi payload into a Season.
func parseSeason(body []byte, year int, gt statcast.GameType) (*Season, error) {
	var payload scheduleResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode schedule response: %w", err)
	}

	season := &Season{Year: year, GameType: gt}
	for _, entry := range payload.Dates {
		date, err := statcast.ParseDate(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("schedule date: %w", err)
		}
		day := GameDay{Date: date, TotalGames: len(entry.Games)}
		for _, game := range entry.Games {
			if game.Status.AbstractGameState == "Final" {
				day.FinalGames++
			}
		}
		season.Days = append(season.Days, day)
	}
	season.sortDays()
	return season, nil
}

func allFinal(s *Season) bool {
	if len(s.Days) == 0 {
		return false
	}
	for _, day := range s.Days {
		if !day.Final() {
			return false
		}
	}
	return true
}
