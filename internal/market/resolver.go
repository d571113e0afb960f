package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ktezcan/fintrack/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// ErrPriceUnavailable marks a per-instrument fetch failure. It never fails
// a batch; callers fall back to the last stored lot price.
var ErrPriceUnavailable = errors.New("price unavailable")

// Resolver maps an asset to a live unit price, polymorphic over asset type.
type Resolver struct {
	fx      FxSource
	stocks  InstrumentSource
	funds   InstrumentSource
	cache   QuoteCache
	limiter *rate.Limiter
}

// NewResolver wires the per-type price sources. limiter throttles
// per-symbol fetches across refresh cycles; pass nil for no throttling.
func NewResolver(fx FxSource, stocks, funds InstrumentSource, cache QuoteCache, limiter *rate.Limiter) *Resolver {
	return &Resolver{
		fx:      fx,
		stocks:  stocks,
		funds:   funds,
		cache:   cache,
		limiter: limiter,
	}
}

// Resolve produces the asset's current unit price.
func (r *Resolver) Resolve(ctx context.Context, a *models.Asset) (decimal.Decimal, error) {
	switch a.Type {
	case models.AssetTypeCurrency:
		return r.resolveCurrency(ctx, a.Name)
	case models.AssetTypeGold:
		return r.fxLookup(ctx, FxGold)
	case models.AssetTypeStock:
		return r.resolveInstrument(ctx, r.stocks, a.Name)
	case models.AssetTypeFund:
		return r.resolveInstrument(ctx, r.funds, a.Name)
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown asset type %q", ErrPriceUnavailable, a.Type)
	}
}

// resolveCurrency matches the asset name against the FX table by substring:
// users name currency holdings freely ("USD SAVINGS", "DOLAR HESABI").
func (r *Resolver) resolveCurrency(ctx context.Context, name string) (decimal.Decimal, error) {
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "USD") || strings.Contains(upper, "DOLAR"):
		return r.fxLookup(ctx, FxUSD)
	case strings.Contains(upper, "EUR") || strings.Contains(upper, "EURO"):
		return r.fxLookup(ctx, FxEUR)
	default:
		return decimal.Zero, fmt.Errorf("%w: unrecognized currency %q", ErrPriceUnavailable, name)
	}
}

func (r *Resolver) fxLookup(ctx context.Context, key string) (decimal.Decimal, error) {
	if r.fx == nil {
		return decimal.Zero, fmt.Errorf("%w: no fx source configured", ErrPriceUnavailable)
	}
	table, err := r.fx.FetchFxTable(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	price, ok := table[key]
	if !ok || price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s missing from fx table", ErrPriceUnavailable, key)
	}
	return price, nil
}

func (r *Resolver) resolveInstrument(ctx context.Context, source InstrumentSource, name string) (decimal.Decimal, error) {
	if source == nil {
		return decimal.Zero, fmt.Errorf("%w: no source configured", ErrPriceUnavailable)
	}
	symbol := strings.ToUpper(strings.TrimSpace(name))

	if r.cache != nil {
		if price, ok := r.cache.Get(ctx, symbol); ok {
			return price, nil
		}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
		}
	}

	price, err := source.FetchInstrumentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: non-positive price for %s", ErrPriceUnavailable, symbol)
	}

	if r.cache != nil {
		r.cache.Set(ctx, symbol, price)
	}
	return price, nil
}
