// Package exchange provides a client for a public exchange-rate HTTP API,
// used to convert panel-currency recharge amounts into the gateway's
// settlement currency.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultAPIURL is the public exchange-rate service queried by default.
const DefaultAPIURL = "https://api.exchangerate.host"

const (
	requestTimeout = 10 * time.Second
	cacheTTL       = 10 * time.Minute
)

// ErrUpstream is returned when the exchange-rate service cannot be reached or
// answers with an unexpected response.
var ErrUpstream = fmt.Errorf("exchange rate service unavailable")

// Client queries an exchangerate.host compatible API. Rates are cached for a
// short period since recharge conversions don't need tick-level precision.
type Client struct {
	apiURL     string
	httpClient *http.Client

	mtx   sync.Mutex
	cache map[string]cachedRate
}

type cachedRate struct {
	rate    float64
	fetched time.Time
}

// New creates a new exchange-rate client. If apiURL is empty, DefaultAPIURL
// is used.
func New(apiURL string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		cache: make(map[string]cachedRate),
	}
}

// Rate returns how many units of quote currency one unit of base currency is
// worth. Currency codes are case-insensitive.
func (c *Client) Rate(ctx context.Context, base, quote string) (float64, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)
	if base == quote {
		return 1, nil
	}

	cacheKey := base + "/" + quote
	c.mtx.Lock()
	if cached, ok := c.cache[cacheKey]; ok && time.Since(cached.fetched) < cacheTTL {
		c.mtx.Unlock()
		return cached.rate, nil
	}
	c.mtx.Unlock()

	rate, err := c.fetchRate(ctx, base, quote)
	if err != nil {
		return 0, err
	}

	c.mtx.Lock()
	c.cache[cacheKey] = cachedRate{rate: rate, fetched: time.Now()}
	c.mtx.Unlock()
	return rate, nil
}

func (c *Client) fetchRate(ctx context.Context, base, quote string) (float64, error) {
	query := url.Values{}
	query.Set("base", base)
	query.Set("symbols", quote)
	reqURL := fmt.Sprintf("%s/latest?%s", c.apiURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: unexpected status %d", ErrUpstream, resp.StatusCode)
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	rate, ok := body.Rates[quote]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: no %s rate for base %s", ErrUpstream, quote, base)
	}
	return rate, nil
}
