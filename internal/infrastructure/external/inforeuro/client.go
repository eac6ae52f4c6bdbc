package inforeuro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/garyjia/travel-reimbursement/internal/application/port"
)

// DefaultBaseURL is the public monthly accounting rates endpoint of the EU Commission
const DefaultBaseURL = "https://ec.europa.eu/budg/inforeuro/api/public/monthly-rates"

// Config holds InforEuro client configuration
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
}

// rate is one entry of the monthly rates response
type rate struct {
	Country   string  `json:"country"`
	Currency  string  `json:"currency"`
	IsoA3Code string  `json:"isoA3Code"`
	Value     float64 `json:"value"`
}

// Client fetches the monthly rates, quoted as units per euro
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	logger  *zap.Logger
}

// NewClient creates a new InforEuro client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.HTTPClient.Timeout = cfg.Timeout
	hc.Logger = nil

	return &Client{
		http:    hc,
		baseURL: cfg.BaseURL,
		logger:  logger,
	}
}

// MonthlyRates returns currency -> units per euro for the month of month
func (c *Client) MonthlyRates(ctx context.Context, month time.Time) (map[string]float64, error) {
	url := fmt.Sprintf("%s?year=%d&month=%d&lang=EN", c.baseURL, month.Year(), int(month.Month()))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Failed to fetch monthly rates", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch monthly rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("monthly rates: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rates []rate
	if err := json.NewDecoder(resp.Body).Decode(&rates); err != nil {
		return nil, fmt.Errorf("failed to decode monthly rates: %w", err)
	}

	out := make(map[string]float64, len(rates))
	for _, r := range rates {
		code := strings.ToUpper(strings.TrimSpace(r.IsoA3Code))
		if len(code) != 3 || r.Value <= 0 {
			continue
		}
		out[code] = r.Value
	}

	c.logger.Info("Fetched monthly rates",
		zap.String("month", month.Format("2006-01")),
		zap.Int("count", len(out)))
	return out, nil
}

// Verify interface compliance
var _ port.RateSource = (*Client)(nil)
