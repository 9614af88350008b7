package epc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ppd-pricemap/internal/config"
	"github.com/ppd-pricemap/internal/postcode"
)

const defaultBaseURL = "https://epc.opendatacommunities.org"

// Client fetches certificate lists per postcode through the cache. Network
// calls are strictly sequential with a minimum delay between outbound
// requests; cache hits cost nothing and are never throttled.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authHeader string
	cache      *Cache
	logger     *slog.Logger

	requestDelay time.Duration
	baseBackoff  time.Duration
	maxRetries   int
	lastRequest  time.Time
}

// NewClient builds a client from the EPC_EMAIL and EPC_API_KEY environment
// variables; the credential pair is never hard-coded.
func NewClient(cache *Cache, logger *slog.Logger) (*Client, error) {
	email := os.Getenv("EPC_EMAIL")
	apiKey := os.Getenv("EPC_API_KEY")
	if email == "" || apiKey == "" {
		return nil, fmt.Errorf("missing EPC credentials: set EPC_EMAIL and EPC_API_KEY (register at https://epc.opendatacommunities.org/)")
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(email + ":" + apiKey))

	return &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      config.GetEnv("EPC_BASE_URL", defaultBaseURL),
		authHeader:   "Basic " + credentials,
		cache:        cache,
		logger:       logger,
		requestDelay: time.Duration(config.GetEnvInt("EPC_REQUEST_DELAY_MS", 250)) * time.Millisecond,
		baseBackoff:  time.Duration(config.GetEnvInt("EPC_BACKOFF_MS", 2000)) * time.Millisecond,
		maxRetries:   config.GetEnvInt("EPC_MAX_RETRIES", 5),
	}, nil
}

// Records returns all certificates for a postcode, from cache when
// available. On a miss the result is cached before returning, including the
// empty list a failed lookup degrades to, so failures are not retried on
// later runs. The boolean reports whether the cache was hit.
func (c *Client) Records(ctx context.Context, pc string) ([]Record, bool, error) {
	normalized := postcode.Normalize(pc)

	if records, ok, err := c.cache.Get(normalized); err != nil {
		return nil, false, err
	} else if ok {
		return records, true, nil
	}

	records, err := c.fetch(ctx, normalized)
	if err != nil {
		return nil, false, err
	}

	if err := c.cache.Put(normalized, records); err != nil {
		return nil, false, err
	}

	return records, false, nil
}

// fetch performs one authenticated lookup. A 429 is retried with capped
// exponential backoff up to maxRetries and becomes an error after
// exhaustion; any other non-2xx status degrades to an empty record list.
func (c *Client) fetch(ctx context.Context, pc string) ([]Record, error) {
	endpoint := fmt.Sprintf("%s/api/v1/domestic/search?postcode=%s&size=5000",
		c.baseURL, url.QueryEscape(pc))

	backoff := c.baseBackoff
	for attempt := 0; ; attempt++ {
		c.throttle()

		body, status, err := c.do(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("EPC request for %s failed: %w", pc, err)
		}

		if status == http.StatusTooManyRequests {
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("EPC rate limit persisted after %d retries for %s", c.maxRetries, pc)
			}
			c.logger.Warn("EPC rate limited, backing off", "postcode", pc, "attempt", attempt+1, "backoff", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		if status < 200 || status > 299 {
			// Missing enrichment is acceptable; the lookup degrades to
			// zero records rather than blocking the run.
			c.logger.Debug("EPC lookup unsuccessful, treating as empty", "postcode", pc, "status", status)
			return []Record{}, nil
		}

		var response apiResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to decode EPC response for %s: %w", pc, err)
		}

		records := make([]Record, 0, len(response.Rows))
		for _, row := range response.Rows {
			records = append(records, row.toRecord())
		}
		return records, nil
	}
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// throttle enforces the minimum gap between outbound requests. Only cache
// misses reach this point.
func (c *Client) throttle() {
	if !c.lastRequest.IsZero() {
		if wait := c.requestDelay - time.Since(c.lastRequest); wait > 0 {
			time.Sleep(wait)
		}
	}
	c.lastRequest = time.Now()
}
