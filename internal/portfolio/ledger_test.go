package portfolio

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ktezcan/fintrack/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAsset(t *testing.T, name, assetType string) *models.Asset {
	t.Helper()
	now := time.Now()
	return &models.Asset{
		ID:            uuid.NewString(),
		Name:          name,
		Type:          assetType,
		SchemaVersion: models.SchemaVersionCurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func assertDecimalNear(t *testing.T, expected float64, actual decimal.Decimal) {
	t.Helper()
	diff := actual.Sub(d(expected)).Abs()
	assert.True(t, diff.LessThan(d(0.0001)),
		"expected %v, got %s (diff %s)", expected, actual.String(), diff.String())
}

func TestAddLot(t *testing.T) {
	t.Run("weighted average cost follows the lot history exactly", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)

		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = AddLot(a, d(5), d(120), d(120), time.Now())
		require.NoError(t, err)
		_, err = AddLot(a, d(20), d(90), d(90), time.Now())
		require.NoError(t, err)

		s := Summarize(a, decimal.Zero)
		// (10*100 + 5*120 + 20*90) / 35
		assertDecimalNear(t, 3400.0/35.0, s.AvgCost)
		assert.True(t, d(35).Equal(s.TotalAmount))
	})

	t.Run("rejects non-positive amount and cost without mutating", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)

		_, err := AddLot(a, d(0), d(100), d(100), time.Now())
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "amount", validationErr.Field)

		_, err = AddLot(a, d(10), d(-1), d(100), time.Now())
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "cost", validationErr.Field)

		assert.Empty(t, a.Periods)
		assert.Empty(t, a.Lots)
	})

	t.Run("keeps the legacy mirror in sync with the active period", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)

		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)

		require.Len(t, a.Periods, 1)
		require.Len(t, a.Lots, 1)
		assert.Equal(t, a.Periods[0].Lots[0].ID, a.Lots[0].ID)
		assert.Equal(t, a.Periods[0].ID, a.CurrentPeriodID)
	})
}

func TestEditLot(t *testing.T) {
	t.Run("mutates the lot in place keeping its id", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		lot, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		lotID := lot.ID

		err = EditLot(a, lotID, d(12), d(95), time.Now())
		require.NoError(t, err)

		require.Len(t, a.Periods[0].Lots, 1)
		assert.Equal(t, lotID, a.Periods[0].Lots[0].ID)
		assert.True(t, d(12).Equal(a.Periods[0].Lots[0].Amount))
		assert.True(t, d(95).Equal(a.Periods[0].Lots[0].Cost))
		// mirror updated too
		assert.True(t, d(12).Equal(a.Lots[0].Amount))
	})

	t.Run("rejects non-positive values", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		lot, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)

		err = EditLot(a, lot.ID, d(-5), d(100), time.Now())
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.True(t, d(10).Equal(a.Periods[0].Lots[0].Amount))
	})

	t.Run("unknown lot id", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)

		err = EditLot(a, "nope", d(5), d(100), time.Now())
		require.Error(t, err)
	})

	t.Run("rejects shrinking below the period's sold quantity", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		lot, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = RecordSale(a, d(5), d(150), time.Now())
		require.NoError(t, err)

		// sold 5 cannot be covered by a 4-unit lot
		err = EditLot(a, lot.ID, d(4), d(100), time.Now())
		var quantityErr *InsufficientQuantityError
		require.ErrorAs(t, err, &quantityErr)
		assert.True(t, d(5).Equal(quantityErr.Requested))
		assert.True(t, d(4).Equal(quantityErr.Available))

		assert.True(t, d(10).Equal(a.Periods[0].Lots[0].Amount))
		assert.True(t, d(5).Equal(Summarize(a, decimal.Zero).TotalAmount))
	})

	t.Run("shrinking to exactly the sold quantity closes the period", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		lot, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = RecordSale(a, d(5), d(150), time.Now())
		require.NoError(t, err)

		err = EditLot(a, lot.ID, d(5), d(100), time.Now())
		require.NoError(t, err)

		assert.Nil(t, ActivePeriod(a))
		require.NotNil(t, a.Periods[0].ClosedAt)
		assert.True(t, Summarize(a, decimal.Zero).TotalAmount.IsZero())
	})

	t.Run("growing a lot in a closed period reopens it", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		lot, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = RecordSale(a, d(10), d(150), time.Now())
		require.NoError(t, err)
		require.Nil(t, ActivePeriod(a))

		err = EditLot(a, lot.ID, d(12), d(100), time.Now())
		require.NoError(t, err)

		require.NotNil(t, ActivePeriod(a))
		assert.True(t, d(2).Equal(Summarize(a, decimal.Zero).TotalAmount))
	})
}

func TestDeleteLot(t *testing.T) {
	t.Run("retains remaining lots", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		lot1, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = AddLot(a, d(5), d(120), d(120), time.Now())
		require.NoError(t, err)

		empty, err := DeleteLot(a, lot1.ID)
		require.NoError(t, err)
		assert.False(t, empty)
		require.Len(t, a.Periods[0].Lots, 1)
		assert.True(t, d(5).Equal(a.Periods[0].Lots[0].Amount))
	})

	t.Run("deleting the last lot signals asset deletion", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		lot, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)

		empty, err := DeleteLot(a, lot.ID)
		require.NoError(t, err)
		assert.True(t, empty)
	})

	t.Run("rejects a delete that would leave sales uncovered", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		lot2, err := AddLot(a, d(5), d(120), d(120), time.Now())
		require.NoError(t, err)
		_, err = RecordSale(a, d(12), d(150), time.Now())
		require.NoError(t, err)

		// sold 12 cannot be covered by the remaining 10 units
		_, err = DeleteLot(a, lot2.ID)
		var quantityErr *InsufficientQuantityError
		require.ErrorAs(t, err, &quantityErr)
		assert.True(t, d(12).Equal(quantityErr.Requested))
		assert.True(t, d(10).Equal(quantityErr.Available))

		require.Len(t, a.Periods[0].Lots, 2)
		assert.True(t, d(3).Equal(Summarize(a, decimal.Zero).TotalAmount))
	})

	t.Run("deleting a lot that zeroes the net closes the period", func(t *testing.T) {
		a := newTestAsset(t, "THYAO", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		lot2, err := AddLot(a, d(5), d(120), d(120), time.Now())
		require.NoError(t, err)
		_, err = RecordSale(a, d(10), d(150), time.Now())
		require.NoError(t, err)

		empty, err := DeleteLot(a, lot2.ID)
		require.NoError(t, err)
		assert.False(t, empty)
		assert.Nil(t, ActivePeriod(a))
		require.NotNil(t, a.Periods[0].ClosedAt)
	})
}

func TestRecordSale(t *testing.T) {
	t.Run("full buy-sell-rebuy cycle isolates cost bases", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)

		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = AddLot(a, d(5), d(120), d(120), time.Now())
		require.NoError(t, err)

		s := Summarize(a, decimal.Zero)
		assert.True(t, d(15).Equal(s.TotalAmount))
		assertDecimalNear(t, 106.6667, s.AvgCost)

		sale, err := RecordSale(a, d(15), d(150), time.Now())
		require.NoError(t, err)
		assertDecimalNear(t, 106.6667, sale.AvgCost)
		assertDecimalNear(t, 650.0, sale.Profit)

		// net quantity hit zero: period closed, no active period left
		assert.Nil(t, ActivePeriod(a))
		require.NotNil(t, a.Periods[0].ClosedAt)
		assert.True(t, Summarize(a, decimal.Zero).TotalAmount.IsZero())

		// repurchase opens a fresh period with an independent cost basis
		_, err = AddLot(a, d(3), d(200), d(200), time.Now())
		require.NoError(t, err)

		require.Len(t, a.Periods, 2)
		s = Summarize(a, decimal.Zero)
		assert.True(t, d(200).Equal(s.AvgCost))
		assert.True(t, d(3).Equal(s.TotalAmount))
	})

	t.Run("rejects a sale exceeding current holdings with no state change", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = AddLot(a, d(5), d(120), d(120), time.Now())
		require.NoError(t, err)

		_, err = RecordSale(a, d(20), d(150), time.Now())
		var quantityErr *InsufficientQuantityError
		require.ErrorAs(t, err, &quantityErr)
		assert.True(t, d(20).Equal(quantityErr.Requested))
		assert.True(t, d(15).Equal(quantityErr.Available))

		assert.Empty(t, a.Periods[0].Sales)
		assert.True(t, d(15).Equal(Summarize(a, decimal.Zero).TotalAmount))
	})

	t.Run("rejects a sale on an asset with no active period", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = RecordSale(a, d(10), d(150), time.Now())
		require.NoError(t, err)

		_, err = RecordSale(a, d(1), d(150), time.Now())
		var quantityErr *InsufficientQuantityError
		require.ErrorAs(t, err, &quantityErr)
	})

	t.Run("partial sale keeps the period open", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)

		_, err = RecordSale(a, d(4), d(150), time.Now())
		require.NoError(t, err)

		require.NotNil(t, ActivePeriod(a))
		assert.True(t, d(6).Equal(Summarize(a, decimal.Zero).TotalAmount))
	})
}

func TestEditSale(t *testing.T) {
	t.Run("recomputes profit from the frozen average cost", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		sale, err := RecordSale(a, d(4), d(150), time.Now())
		require.NoError(t, err)
		saleID := sale.ID

		// Add another lot after the sale; the sale's avgCost must not move.
		_, err = AddLot(a, d(10), d(500), d(500), time.Now())
		require.NoError(t, err)

		err = EditSale(a, saleID, d(5), d(160))
		require.NoError(t, err)

		edited := a.Periods[0].Sales[0]
		assert.True(t, d(100).Equal(edited.AvgCost))
		// 5*160 - 5*100
		assert.True(t, d(300).Equal(edited.Profit))
	})

	t.Run("rejects an edit that would oversell the period", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		_, err = RecordSale(a, d(3), d(150), time.Now())
		require.NoError(t, err)
		sale, err := RecordSale(a, d(4), d(150), time.Now())
		require.NoError(t, err)

		// other sales hold 3, purchased 10: max edit is 7
		err = EditSale(a, sale.ID, d(8), d(150))
		var quantityErr *InsufficientQuantityError
		require.ErrorAs(t, err, &quantityErr)
		assert.True(t, d(4).Equal(a.Periods[0].Sales[1].Amount))
	})

	t.Run("growing the sale to the full quantity closes the period", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		sale, err := RecordSale(a, d(4), d(150), time.Now())
		require.NoError(t, err)

		err = EditSale(a, sale.ID, d(10), d(150))
		require.NoError(t, err)
		assert.Nil(t, ActivePeriod(a))
	})

	t.Run("shrinking the closing sale reopens the period", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		sale, err := RecordSale(a, d(10), d(150), time.Now())
		require.NoError(t, err)
		require.Nil(t, ActivePeriod(a))

		err = EditSale(a, sale.ID, d(6), d(150))
		require.NoError(t, err)
		require.NotNil(t, ActivePeriod(a))
		assert.True(t, d(4).Equal(Summarize(a, decimal.Zero).TotalAmount))
	})
}

func TestDeleteSale(t *testing.T) {
	t.Run("is the inverse of RecordSale for net quantity", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		before := Summarize(a, decimal.Zero).TotalAmount

		sale, err := RecordSale(a, d(4), d(150), time.Now())
		require.NoError(t, err)
		err = DeleteSale(a, sale.ID)
		require.NoError(t, err)

		assert.True(t, before.Equal(Summarize(a, decimal.Zero).TotalAmount))
		assert.Empty(t, a.Periods[0].Sales)
	})

	t.Run("reopens a closed period when quantity returns", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		sale, err := RecordSale(a, d(10), d(150), time.Now())
		require.NoError(t, err)
		require.Nil(t, ActivePeriod(a))

		err = DeleteSale(a, sale.ID)
		require.NoError(t, err)
		require.NotNil(t, ActivePeriod(a))
		assert.True(t, d(10).Equal(Summarize(a, decimal.Zero).TotalAmount))
	})

	t.Run("merges open periods when reopening violates the invariant", func(t *testing.T) {
		a := newTestAsset(t, "AAPL", models.AssetTypeStock)

		// First cycle: buy 10, sell all 10, period closes.
		_, err := AddLot(a, d(10), d(100), d(100), time.Now())
		require.NoError(t, err)
		sale, err := RecordSale(a, d(10), d(150), time.Now())
		require.NoError(t, err)

		// Second cycle opens a new period.
		_, err = AddLot(a, d(5), d(200), d(200), time.Now())
		require.NoError(t, err)
		require.Len(t, a.Periods, 2)

		// Deleting the closing sale would reopen period 1 alongside the
		// already-open period 2; the repair merges them.
		err = DeleteSale(a, sale.ID)
		require.NoError(t, err)

		require.Len(t, a.Periods, 1)
		p := ActivePeriod(a)
		require.NotNil(t, p)
		assert.Len(t, p.Lots, 2)
		assert.True(t, d(15).Equal(periodNet(p)))
		assert.Equal(t, p.ID, a.CurrentPeriodID)
	})
}
