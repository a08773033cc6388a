// Package teamfeed talks to the aggregated team feed, which exposes both
// upstream providers' team lists in one canonical JSON shape.
package teamfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/matchscope/team-identity/internal/domain/record"
	"github.com/matchscope/team-identity/internal/platform/logging"
	"github.com/matchscope/team-identity/internal/platform/resilience"
	"github.com/matchscope/team-identity/internal/usecase"
)

const (
	defaultTimeout  = 20 * time.Second
	maxResponseSize = 6 << 20
)

var errTransient = crerr.New("team feed transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	Logger     *logging.Logger
	Breaker    resilience.BreakerConfig
}

// Client fetches team records from the feed. It implements the record
// provider interface consumed by the sync orchestrator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
	logger     *logging.Logger
	breaker    *resilience.Breaker
	flight     resilience.SingleFlight
	validate   *validator.Validate
}

func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("team feed base url is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}
	// Feed requests show up as children of whichever sync span issued them.
	if _, ok := httpClient.Transport.(*otelhttp.Transport); !ok {
		httpClient.Transport = otelhttp.NewTransport(httpClient.Transport)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger,
		breaker:    resilience.NewBreaker(cfg.Breaker),
		validate:   validator.New(),
	}, nil
}

type teamRow struct {
	Source   string `json:"source" validate:"required,oneof=allsports apifootball"`
	SourceID string `json:"source_id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Country  string `json:"country"`
	League   string `json:"league"`
}

type countriesEnvelope struct {
	Countries []string `json:"countries"`
}

type teamsEnvelope struct {
	Teams []teamRow `json:"teams"`
}

// Countries lists every country either provider has teams in.
func (c *Client) Countries(ctx context.Context) ([]string, error) {
	var envelope countriesEnvelope
	if err := c.doJSON(ctx, "/v1/countries", nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch countries: %w", err)
	}

	out := make([]string, 0, len(envelope.Countries))
	for _, country := range envelope.Countries {
		if country = strings.TrimSpace(country); country != "" {
			out = append(out, country)
		}
	}
	return out, nil
}

// TeamsByCountry lists one provider's teams for a country. Rows failing
// validation are dropped with a warning rather than failing the partition.
func (c *Client) TeamsByCountry(ctx context.Context, src record.Source, country string) ([]record.TeamRecord, error) {
	if !src.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", usecase.ErrInvalidInput, src)
	}
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, fmt.Errorf("%w: country is required", usecase.ErrInvalidInput)
	}

	query := map[string]string{
		"source":  string(src),
		"country": country,
	}
	var envelope teamsEnvelope
	if err := c.doJSON(ctx, "/v1/teams", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch %s teams for %s: %w", src, country, err)
	}

	out := make([]record.TeamRecord, 0, len(envelope.Teams))
	for _, row := range envelope.Teams {
		if err := c.validate.Struct(row); err != nil {
			c.logger.WarnContext(ctx, "dropping malformed team row",
				"source", row.Source, "source_id", row.SourceID, "error", err)
			continue
		}
		out = append(out, record.TeamRecord{
			Source:   record.Source(row.Source),
			SourceID: row.SourceID,
			RawName:  row.Name,
			Country:  row.Country,
			League:   row.League,
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "team feed circuit breaker rejected request",
			"state", c.breaker.State())
		return fmt.Errorf("%w: team feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		c.breaker.Report(reqErr != nil && crerr.Is(reqErr, errTransient))
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode feed payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Mark(fmt.Errorf("send request: %v", err), errTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(fmt.Errorf("read response body: %v", readErr), errTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(fmt.Errorf("feed status=%d", resp.StatusCode), errTransient)
			default:
				return nil, fmt.Errorf("feed status=%d", resp.StatusCode)
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("feed request failed")
	}
	c.logger.WarnContext(ctx, "team feed request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
