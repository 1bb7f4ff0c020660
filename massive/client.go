// Package massive is the client for the Massive market-data API: grouped
// daily bars and paginated ticker reference data.
package massive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	requestTimeout = 10 * time.Second
	pageLimit      = "1000"

	// defaultMaxPages bounds the reference-ticker pagination walk so a
	// misbehaving next_url chain cannot loop forever.
	defaultMaxPages = 100

	// defaultPageDelay paces pagination to stay under upstream rate limits.
	defaultPageDelay = 250 * time.Millisecond
)

// ErrUpstream marks transport failures and non-200 upstream responses.
var ErrUpstream = errors.New("upstream request failed")

// ErrDecode marks responses that arrived but could not be interpreted.
var ErrDecode = errors.New("upstream response decode failed")

// BarResult is one ticker's aggregate in a grouped daily response.
type BarResult struct {
	Ticker       string   `json:"T"`
	Open         float64  `json:"o"`
	High         float64  `json:"h"`
	Low          float64  `json:"l"`
	Close        float64  `json:"c"`
	Volume       float64  `json:"v"`
	VWAP         *float64 `json:"vw"`
	Transactions *int64   `json:"n"`
	Timestamp    int64    `json:"t"`
}

type groupedDailyResponse struct {
	Status       string      `json:"status"`
	QueryCount   int         `json:"queryCount"`
	ResultsCount int         `json:"resultsCount"`
	Results      []BarResult `json:"results"`
}

// TickerResult is one entry of the reference tickers listing.
type TickerResult struct {
	Ticker   string `json:"ticker"`
	Type     string `json:"type"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
}

type tickersResponse struct {
	Status  string         `json:"status"`
	Results []TickerResult `json:"results"`
	NextURL string         `json:"next_url"`
}

// equityTypes are the instrument types kept by the reference sync: common
// stock and the ADR variants.
var equityTypes = map[string]bool{
	"CS":   true,
	"ADRC": true,
	"ADRP": true,
	"ADRS": true,
}

// IsEquityType reports whether a reference entry is a common stock or ADR.
func IsEquityType(t string) bool {
	return equityTypes[t]
}

// Client calls the Massive API.
type Client struct {
	http      *resty.Client
	base      string
	apiKey    string
	maxPages  int
	pageDelay time.Duration
	logger    *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		http:      resty.New().SetTimeout(requestTimeout),
		base:      baseURL,
		apiKey:    apiKey,
		maxPages:  defaultMaxPages,
		pageDelay: defaultPageDelay,
		logger:    logger,
	}
}

func (c *Client) get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return nil, errors.Join(ErrUpstream, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}
	return resp.Body(), nil
}

// GroupedDailyBars fetches every ticker's aggregate bar for one trading day.
// A zero-result day returns an empty slice and no error.
func (c *Client) GroupedDailyBars(ctx context.Context, day time.Time) ([]BarResult, error) {
	url := fmt.Sprintf("%s/v2/aggs/grouped/locale/us/market/stocks/%s",
		c.base, day.UTC().Format("2006-01-02"))

	body, err := c.get(ctx, url, map[string]string{
		"adjusted": "true",
		"apiKey":   c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var parsed groupedDailyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Join(ErrDecode, err)
	}
	for i, bar := range parsed.Results {
		if bar.Ticker == "" || bar.Timestamp == 0 {
			return nil, fmt.Errorf("%w: result %d missing ticker or timestamp", ErrDecode, i)
		}
	}

	c.logger.Info("fetched grouped daily bars",
		zap.String("day", day.UTC().Format("2006-01-02")),
		zap.Int("results", len(parsed.Results)))
	return parsed.Results, nil
}

// ReferenceTickers walks the paginated active-stocks listing. Pagination
// follows next_url carrying only the api key, pauses between pages, and stops
// after maxPages, returning whatever was gathered.
func (c *Client) ReferenceTickers(ctx context.Context) ([]TickerResult, error) {
	url := c.base + "/v3/reference/tickers"
	params := map[string]string{
		"market": "stocks",
		"active": "true",
		"limit":  pageLimit,
		"apiKey": c.apiKey,
	}

	var all []TickerResult
	for page := 0; page < c.maxPages; page++ {
		body, err := c.get(ctx, url, params)
		if err != nil {
			return nil, err
		}

		var parsed tickersResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, errors.Join(ErrDecode, err)
		}
		all = append(all, parsed.Results...)

		c.logger.Debug("fetched ticker page",
			zap.Int("page", page),
			zap.Int("results", len(parsed.Results)),
			zap.Int("total", len(all)))

		if parsed.NextURL == "" {
			return all, nil
		}
		url = parsed.NextURL
		params = map[string]string{"apiKey": c.apiKey}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}

	c.logger.Warn("reference ticker pagination hit page cap",
		zap.Int("max_pages", c.maxPages),
		zap.Int("total", len(all)))
	return all, nil
}
