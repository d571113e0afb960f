package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ktezcan/fintrack/internal/models"
	"github.com/shopspring/decimal"
)

// Cash accounts are plain ledger arithmetic on top of the same document
// store: a transaction adjusts its account's balance, deleting it reverses
// the adjustment.

// Accounts lists the user's cash accounts.
func (t *Tracker) Accounts(ctx context.Context, userID string) ([]models.Account, error) {
	docs, err := t.store.ListRecords(ctx, userID, KindAccount)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	accounts := make([]models.Account, 0, len(docs))
	for _, doc := range docs {
		var acc models.Account
		if err := json.Unmarshal(doc, &acc); err != nil {
			return nil, fmt.Errorf("failed to decode account record: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// Account returns one cash account by id.
func (t *Tracker) Account(ctx context.Context, userID, accountID string) (*models.Account, error) {
	accounts, err := t.Accounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].ID == accountID {
			return &accounts[i], nil
		}
	}
	return nil, ErrAccountNotFound
}

// CreateAccount creates a cash account with an opening balance.
func (t *Tracker) CreateAccount(ctx context.Context, userID, name, currency string, opening decimal.Decimal) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if currency == "" {
		currency = "TRY"
	}
	now := t.now()
	acc := models.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Currency:  strings.ToUpper(currency),
		Balance:   opening,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.saveAccount(ctx, userID, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// DeleteAccount removes an account and its transactions.
func (t *Tracker) DeleteAccount(ctx context.Context, userID, accountID string) error {
	if _, err := t.Account(ctx, userID, accountID); err != nil {
		return err
	}
	txs, err := t.Transactions(ctx, userID, accountID)
	if err != nil {
		return err
	}
	for i := range txs {
		if err := t.store.DeleteRecord(ctx, userID, KindTransaction, txs[i].ID); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
	}
	if err := t.store.DeleteRecord(ctx, userID, KindAccount, accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	t.notifyDeleted(ctx, userID, KindAccount, accountID)
	return nil
}

// Transactions lists an account's cash movements.
func (t *Tracker) Transactions(ctx context.Context, userID, accountID string) ([]models.Transaction, error) {
	docs, err := t.store.ListRecords(ctx, userID, KindTransaction)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs := make([]models.Transaction, 0, len(docs))
	for _, doc := range docs {
		var tx models.Transaction
		if err := json.Unmarshal(doc, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction record: %w", err)
		}
		if tx.AccountID == accountID {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// AddTransaction records a cash movement and adjusts the account balance.
func (t *Tracker) AddTransaction(ctx context.Context, userID, accountID string, amount decimal.Decimal, category, note string, date time.Time) (*models.Transaction, error) {
	if amount.Sign() == 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must not be zero"}
	}
	acc, err := t.Account(ctx, userID, accountID)
	if err != nil {
		return nil, err
	}

	tx := models.Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Category:  category,
		Note:      note,
		Date:      date,
		CreatedAt: t.now(),
	}
	doc, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	if err := t.store.PutRecord(ctx, userID, KindTransaction, tx.ID, doc); err != nil {
		return nil, fmt.Errorf("failed to save transaction: %w", err)
	}
	t.notifyPut(ctx, userID, KindTransaction, tx.ID)

	acc.Balance = acc.Balance.Add(amount)
	if err := t.saveAccount(ctx, userID, acc); err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction removes a cash movement and reverses its balance effect.
func (t *Tracker) DeleteTransaction(ctx context.Context, userID, accountID, txID string) error {
	txs, err := t.Transactions(ctx, userID, accountID)
	if err != nil {
		return err
	}
	for i := range txs {
		if txs[i].ID != txID {
			continue
		}
		if err := t.store.DeleteRecord(ctx, userID, KindTransaction, txID); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		t.notifyDeleted(ctx, userID, KindTransaction, txID)

		acc, err := t.Account(ctx, userID, accountID)
		if err != nil {
			return err
		}
		acc.Balance = acc.Balance.Sub(txs[i].Amount)
		return t.saveAccount(ctx, userID, acc)
	}
	return &ValidationError{Field: "transactionId", Reason: "transaction not found"}
}

func (t *Tracker) saveAccount(ctx context.Context, userID string, acc *models.Account) error {
	acc.UpdatedAt = t.now()
	doc, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	if err := t.store.PutRecord(ctx, userID, KindAccount, acc.ID, doc); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	t.notifyPut(ctx, userID, KindAccount, acc.ID)
	return nil
}
