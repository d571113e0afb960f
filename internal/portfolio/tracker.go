package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ktezcan/fintrack/internal/models"
	"github.com/shopspring/decimal"
)

// Record kinds in the document store
const (
	KindAsset       = "asset"
	KindAccount     = "account"
	KindTransaction = "transaction"
)

// Store is the per-user document store the tracker persists to.
type Store interface {
	ListRecords(ctx context.Context, userID, kind string) ([][]byte, error)
	PutRecord(ctx context.Context, userID, kind, id string, doc []byte) error
	DeleteRecord(ctx context.Context, userID, kind, id string) error
}

// PriceResolver produces a live unit price for an asset. Implementations
// return market.ErrPriceUnavailable-style errors per instrument; the
// tracker degrades to the last stored lot price.
type PriceResolver interface {
	Resolve(ctx context.Context, a *models.Asset) (decimal.Decimal, error)
}

// Publisher notifies clients of persisted record changes. May be nil.
type Publisher interface {
	PublishRecordPut(ctx context.Context, userID, kind, id string) error
	PublishRecordDeleted(ctx context.Context, userID, kind, id string) error
}

// Tracker carries the per-request context for ledger operations: the store
// handle, the price source and the change publisher. It replaces the
// ambient globals of earlier designs.
type Tracker struct {
	store  Store
	prices PriceResolver
	events Publisher
	now    func() time.Time
}

// NewTracker creates a Tracker. events may be nil when no broker is
// configured; prices may be nil in contexts that never resolve live prices.
func NewTracker(store Store, prices PriceResolver, events Publisher) *Tracker {
	return &Tracker{
		store:  store,
		prices: prices,
		events: events,
		now:    time.Now,
	}
}

// AssetSummary pairs an asset with its computed valuation.
type AssetSummary struct {
	Asset   models.Asset `json:"asset"`
	Summary Summary      `json:"summary"`
}

// Assets lists the user's assets, upgraded to the current schema on read.
func (t *Tracker) Assets(ctx context.Context, userID string) ([]models.Asset, error) {
	docs, err := t.store.ListRecords(ctx, userID, KindAsset)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	assets := make([]models.Asset, 0, len(docs))
	for _, doc := range docs {
		var a models.Asset
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, fmt.Errorf("failed to decode asset record: %w", err)
		}
		assets = append(assets, Upgrade(a))
	}
	return assets, nil
}

// Asset returns one asset by id, upgraded to the current schema.
func (t *Tracker) Asset(ctx context.Context, userID, assetID string) (*models.Asset, error) {
	assets, err := t.Assets(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].ID == assetID {
			return &assets[i], nil
		}
	}
	return nil, ErrAssetNotFound
}

// CreateAsset creates an asset from its first purchase: one period holding
// one lot.
func (t *Tracker) CreateAsset(ctx context.Context, userID, name, assetType string, amount, cost, price decimal.Decimal, date time.Time) (*models.Asset, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	switch assetType {
	case models.AssetTypeStock, models.AssetTypeFund, models.AssetTypeGold, models.AssetTypeCurrency:
	default:
		return nil, &ValidationError{Field: "type", Reason: "unknown asset type"}
	}

	now := t.now()
	a := models.Asset{
		ID:            uuid.NewString(),
		Name:          name,
		Type:          assetType,
		SchemaVersion: models.SchemaVersionCurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := AddLot(&a, amount, cost, price, date); err != nil {
		return nil, err
	}
	if err := t.saveAsset(ctx, userID, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddLot records a purchase on an existing asset.
func (t *Tracker) AddLot(ctx context.Context, userID, assetID string, amount, cost, price decimal.Decimal, date time.Time) (*models.Asset, error) {
	return t.mutateAsset(ctx, userID, assetID, func(a *models.Asset) error {
		_, err := AddLot(a, amount, cost, price, date)
		return err
	})
}

// EditLot updates a lot in place.
func (t *Tracker) EditLot(ctx context.Context, userID, assetID, lotID string, amount, cost decimal.Decimal, date time.Time) (*models.Asset, error) {
	return t.mutateAsset(ctx, userID, assetID, func(a *models.Asset) error {
		return EditLot(a, lotID, amount, cost, date)
	})
}

// DeleteLot removes a lot; removing the asset's last lot deletes the asset.
func (t *Tracker) DeleteLot(ctx context.Context, userID, assetID, lotID string) (*models.Asset, error) {
	a, err := t.Asset(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}
	empty, err := DeleteLot(a, lotID)
	if err != nil {
		return nil, err
	}
	if empty {
		if err := t.DeleteAsset(ctx, userID, assetID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := t.saveAsset(ctx, userID, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RecordSale records a disposal on the asset's active period.
func (t *Tracker) RecordSale(ctx context.Context, userID, assetID string, amount, salePrice decimal.Decimal, date time.Time) (*models.Asset, error) {
	return t.mutateAsset(ctx, userID, assetID, func(a *models.Asset) error {
		_, err := RecordSale(a, amount, salePrice, date)
		return err
	})
}

// EditSale updates a sale's amount and realized price.
func (t *Tracker) EditSale(ctx context.Context, userID, assetID, saleID string, amount, salePrice decimal.Decimal) (*models.Asset, error) {
	return t.mutateAsset(ctx, userID, assetID, func(a *models.Asset) error {
		return EditSale(a, saleID, amount, salePrice)
	})
}

// DeleteSale removes a sale, reopening its period when quantity returns.
func (t *Tracker) DeleteSale(ctx context.Context, userID, assetID, saleID string) (*models.Asset, error) {
	return t.mutateAsset(ctx, userID, assetID, func(a *models.Asset) error {
		return DeleteSale(a, saleID)
	})
}

// DeleteAsset removes the asset record entirely.
func (t *Tracker) DeleteAsset(ctx context.Context, userID, assetID string) error {
	if err := t.store.DeleteRecord(ctx, userID, KindAsset, assetID); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	t.notifyDeleted(ctx, userID, KindAsset, assetID)
	return nil
}

// Summaries computes valuations for every asset, resolving live prices per
// instrument. An individual price failure degrades that asset to its last
// stored lot price and never fails the batch.
func (t *Tracker) Summaries(ctx context.Context, userID string) ([]AssetSummary, error) {
	assets, err := t.Assets(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]AssetSummary, 0, len(assets))
	for i := range assets {
		live := decimal.Zero
		if t.prices != nil {
			live, err = t.prices.Resolve(ctx, &assets[i])
			if err != nil {
				log.Printf("price unavailable for %s (%s): %v", assets[i].Name, assets[i].Type, err)
				live = decimal.Zero
			}
		}
		summaries = append(summaries, AssetSummary{
			Asset:   assets[i],
			Summary: Summarize(&assets[i], live),
		})
	}
	return summaries, nil
}

// RefreshPrices resolves a live price for each asset and stamps it onto the
// active period's lots as the new last-known price. Instruments whose
// source fails keep their stale price.
func (t *Tracker) RefreshPrices(ctx context.Context, userID string) error {
	if t.prices == nil {
		return nil
	}
	assets, err := t.Assets(ctx, userID)
	if err != nil {
		return err
	}
	for i := range assets {
		a := &assets[i]
		live, err := t.prices.Resolve(ctx, a)
		if err != nil || live.Sign() <= 0 {
			if err != nil {
				log.Printf("price refresh skipped for %s: %v", a.Name, err)
			}
			continue
		}
		p := ActivePeriod(a)
		if p == nil {
			continue
		}
		for li := range p.Lots {
			p.Lots[li].Price = live
		}
		syncLegacyMirror(a)
		if err := t.saveAsset(ctx, userID, a); err != nil {
			return err
		}
	}
	return nil
}

// mutateAsset loads, upgrades, mutates and persists one asset. Validation
// happens inside mutate before any state is touched; persistence failures
// leave the in-memory mutation applied (no rollback, at-most-once).
func (t *Tracker) mutateAsset(ctx context.Context, userID, assetID string, mutate func(*models.Asset) error) (*models.Asset, error) {
	a, err := t.Asset(ctx, userID, assetID)
	if err != nil {
		return nil, err
	}
	if err := mutate(a); err != nil {
		return nil, err
	}
	if err := t.saveAsset(ctx, userID, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (t *Tracker) saveAsset(ctx context.Context, userID string, a *models.Asset) error {
	a.UpdatedAt = t.now()
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode asset: %w", err)
	}
	if err := t.store.PutRecord(ctx, userID, KindAsset, a.ID, doc); err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	t.notifyPut(ctx, userID, KindAsset, a.ID)
	return nil
}

func (t *Tracker) notifyPut(ctx context.Context, userID, kind, id string) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishRecordPut(ctx, userID, kind, id); err != nil {
		log.Printf("failed to publish change event for %s/%s: %v", kind, id, err)
	}
}

func (t *Tracker) notifyDeleted(ctx context.Context, userID, kind, id string) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishRecordDeleted(ctx, userID, kind, id); err != nil {
		log.Printf("failed to publish delete event for %s/%s: %v", kind, id, err)
	}
}
