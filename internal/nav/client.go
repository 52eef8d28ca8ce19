package nav

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/pkg/circuitbreaker"
)

const (
	// DefaultBaseURL points at the public mutual fund data API.
	DefaultBaseURL = "https://api.mfapi.in"

	defaultTimeout = 30 * time.Second
)

// Scheme is one catalog entry of the external fund data source.
type Scheme struct {
	SchemeCode string
	SchemeName string
}

// Point is a single NAV observation.
type Point struct {
	Date  time.Time
	Value float64
}

// ClientConfig configures the external NAV data source client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the external scheme catalog / NAV history API. The source
// is best effort; callers are expected to treat failures as missing data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a NAV data source client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: circuitbreaker.New("NavAPI", circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

// catalogEntry tolerates the upstream habit of sending scheme codes as
// either numbers or strings.
type catalogEntry struct {
	SchemeCode json.Number `json:"schemeCode"`
	SchemeName string      `json:"schemeName"`
}

// GetSchemeCatalog fetches the full list of schemes.
func (c *Client) GetSchemeCatalog(ctx context.Context) ([]Scheme, error) {
	var entries []catalogEntry
	if err := c.getJSON(ctx, c.baseURL+"/mf", &entries); err != nil {
		return nil, fmt.Errorf("failed to fetch scheme catalog: %w", err)
	}

	schemes := make([]Scheme, 0, len(entries))
	for _, e := range entries {
		schemes = append(schemes, Scheme{
			SchemeCode: e.SchemeCode.String(),
			SchemeName: e.SchemeName,
		})
	}

	c.logger.Info("fetched scheme catalog", zap.Int("schemes", len(schemes)))
	return schemes, nil
}

type navHistoryResponse struct {
	Data []struct {
		Date string `json:"date"`
		Nav  string `json:"nav"`
	} `json:"data"`
}

// GetNavHistory fetches the NAV series for a scheme, newest first.
// Malformed entries are dropped rather than failing the whole series.
func (c *Client) GetNavHistory(ctx context.Context, schemeCode string) ([]Point, error) {
	var resp navHistoryResponse
	url := fmt.Sprintf("%s/mf/%s", c.baseURL, schemeCode)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch NAV history for scheme %s: %w", schemeCode, err)
	}

	points := make([]Point, 0, len(resp.Data))
	for _, d := range resp.Data {
		value, err := strconv.ParseFloat(d.Nav, 64)
		if err != nil {
			continue
		}
		date, err := time.Parse("02-01-2006", d.Date)
		if err != nil {
			continue
		}
		points = append(points, Point{Date: date, Value: value})
	}

	return points, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("malformed payload from %s: %w", url, err)
		}
		return nil, nil
	})
	return err
}
