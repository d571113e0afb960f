package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

// FX table keys
const (
	FxUSD  = "USD"
	FxEUR  = "EUR"
	FxGold = "GOLD"
)

// FxTable maps a currency or metal key to its unit price in the home
// currency.
type FxTable map[string]decimal.Decimal

// FxSource provides the current FX table. Failures are per-call and
// non-fatal to callers.
type FxSource interface {
	FetchFxTable(ctx context.Context) (FxTable, error)
}

const fxCacheKey = "fx-table"

// HTTPFxSource polls a vendor market-data endpoint for currency and gold
// quotes. Responses are cached for a short TTL so one refresh cycle issues
// at most one table fetch.
type HTTPFxSource struct {
	client *http.Client
	url    string
	cache  *gocache.Cache
}

// NewHTTPFxSource creates an FX source polling the given endpoint.
func NewHTTPFxSource(url string, cacheTTL time.Duration) *HTTPFxSource {
	return &HTTPFxSource{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
	}
}

type fxResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// FetchFxTable returns the cached table when fresh, otherwise fetches it.
func (s *HTTPFxSource) FetchFxTable(ctx context.Context) (FxTable, error) {
	if cached, ok := s.cache.Get(fxCacheKey); ok {
		return cached.(FxTable), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fx request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fx table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fx endpoint returned status %d", resp.StatusCode)
	}

	var body fxResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode fx response: %w", err)
	}

	table := make(FxTable, len(body.Rates))
	for code, rate := range body.Rates {
		table[code] = decimal.NewFromFloat(rate)
	}
	s.cache.Set(fxCacheKey, table, gocache.DefaultExpiration)
	return table, nil
}
