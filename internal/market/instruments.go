package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// A valid browser User-Agent is required by both upstream sites.
const scrapeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// InstrumentSource fetches the current unit price for one symbol.
// One request per symbol; the caller controls the request cadence.
type InstrumentSource interface {
	FetchInstrumentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StockClient queries a vendor quote endpoint, one JSON request per symbol.
type StockClient struct {
	client  *http.Client
	baseURL string
}

// NewStockClient creates a quote client against the given base URL.
func NewStockClient(baseURL string) *StockClient {
	return &StockClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
	}
}

type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// FetchInstrumentPrice returns the symbol's last traded price.
func (c *StockClient) FetchInstrumentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("quote endpoint returned status %d for %s", resp.StatusCode, symbol)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode quote for %s: %w", symbol, err)
	}
	if body.Price <= 0 {
		return decimal.Zero, fmt.Errorf("quote endpoint returned non-positive price for %s", symbol)
	}
	return decimal.NewFromFloat(body.Price), nil
}

// fundPricePattern extracts the unit price embedded in the fund page's
// bootstrap script. The site has no API; the page structure is the contract.
var fundPricePattern = regexp.MustCompile(`"SonFiyat"\s*:\s*"?([0-9]+[.,][0-9]+)"?`)

// FundClient scrapes the government fund-price site, one HTML page per
// fund code.
type FundClient struct {
	client  *http.Client
	baseURL string
}

// NewFundClient creates a fund price scraper against the given base URL.
func NewFundClient(baseURL string) *FundClient {
	return &FundClient{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: baseURL,
	}
}

// FetchInstrumentPrice scrapes the fund's page and extracts its unit price.
func (c *FundClient) FetchInstrumentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build fund request: %w", err)
	}
	req.Header.Set("User-Agent", scrapeUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch fund page for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("fund site returned status %d for %s", resp.StatusCode, symbol)
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read fund page for %s: %w", symbol, err)
	}

	return parseFundPrice(page, symbol)
}

func parseFundPrice(page []byte, symbol string) (decimal.Decimal, error) {
	matches := fundPricePattern.FindSubmatch(page)
	if len(matches) < 2 {
		return decimal.Zero, fmt.Errorf("could not find price for %s; the page structure may have changed", symbol)
	}

	// The site formats prices with a comma decimal separator.
	raw := strings.Replace(string(matches[1]), ",", ".", 1)
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable price %q for %s: %w", raw, symbol, err)
	}
	if price <= 0 {
		return decimal.Zero, fmt.Errorf("non-positive price for %s", symbol)
	}
	return decimal.NewFromFloat(price), nil
}
