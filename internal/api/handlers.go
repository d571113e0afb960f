package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ktezcan/fintrack/internal/auth"
	"github.com/ktezcan/fintrack/internal/portfolio"
	"github.com/ktezcan/fintrack/internal/store"
	"github.com/shopspring/decimal"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	tracker *portfolio.Tracker
	db      *store.DB
	auth    *auth.Service
}

// NewHandler creates a new Handler
func NewHandler(tracker *portfolio.Tracker, db *store.DB, authService *auth.Service) *Handler {
	return &Handler{
		tracker: tracker,
		db:      db,
		auth:    authService,
	}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		http.Error(w, "email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	user, err := h.db.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		http.Error(w, "could not create user", http.StatusConflict)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := h.auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.tracker.Summaries(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// RefreshPrices handles POST /portfolio/refresh
func (h *Handler) RefreshPrices(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.RefreshPrices(r.Context(), auth.UserID(r.Context())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAssets handles GET /assets
func (h *Handler) GetAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.tracker.Assets(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, assets)
}

// GetAsset handles GET /assets/{id}
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.tracker.Asset(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// CreateAsset handles POST /assets: an asset is created from its first
// purchase.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string          `json:"name"`
		Type   string          `json:"type"`
		Amount decimal.Decimal `json:"amount"`
		Cost   decimal.Decimal `json:"cost"`
		Price  decimal.Decimal `json:"price"`
		Date   *time.Time      `json:"date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	asset, err := h.tracker.CreateAsset(r.Context(), auth.UserID(r.Context()),
		req.Name, req.Type, req.Amount, req.Cost, req.Price, orNow(req.Date))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, asset)
}

// DeleteAsset handles DELETE /assets/{id}
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DeleteAsset(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLot handles POST /assets/{id}/lots
func (h *Handler) AddLot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Cost   decimal.Decimal `json:"cost"`
		Price  decimal.Decimal `json:"price"`
		Date   *time.Time      `json:"date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	asset, err := h.tracker.AddLot(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"],
		req.Amount, req.Cost, req.Price, orNow(req.Date))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, asset)
}

// EditLot handles PUT /assets/{id}/lots/{lotId}
func (h *Handler) EditLot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Cost   decimal.Decimal `json:"cost"`
		Date   *time.Time      `json:"date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	var date time.Time
	if req.Date != nil {
		date = *req.Date
	}
	asset, err := h.tracker.EditLot(r.Context(), auth.UserID(r.Context()), vars["id"], vars["lotId"],
		req.Amount, req.Cost, date)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// DeleteLot handles DELETE /assets/{id}/lots/{lotId}. Deleting the asset's
// last lot deletes the asset; the response is 204 with no body in that case.
func (h *Handler) DeleteLot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset, err := h.tracker.DeleteLot(r.Context(), auth.UserID(r.Context()), vars["id"], vars["lotId"])
	if err != nil {
		respondError(w, err)
		return
	}
	if asset == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// RecordSale handles POST /assets/{id}/sales
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    decimal.Decimal `json:"amount"`
		SalePrice decimal.Decimal `json:"salePrice"`
		Date      *time.Time      `json:"date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	asset, err := h.tracker.RecordSale(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"],
		req.Amount, req.SalePrice, orNow(req.Date))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, asset)
}

// EditSale handles PUT /assets/{id}/sales/{saleId}
func (h *Handler) EditSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount    decimal.Decimal `json:"amount"`
		SalePrice decimal.Decimal `json:"salePrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	asset, err := h.tracker.EditSale(r.Context(), auth.UserID(r.Context()), vars["id"], vars["saleId"],
		req.Amount, req.SalePrice)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// DeleteSale handles DELETE /assets/{id}/sales/{saleId}
func (h *Handler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset, err := h.tracker.DeleteSale(r.Context(), auth.UserID(r.Context()), vars["id"], vars["saleId"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// GetAccounts handles GET /accounts
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.tracker.Accounts(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// CreateAccount handles POST /accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		Currency string          `json:"currency"`
		Balance  decimal.Decimal `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.tracker.CreateAccount(r.Context(), auth.UserID(r.Context()), req.Name, req.Currency, req.Balance)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

// DeleteAccount handles DELETE /accounts/{id}
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DeleteAccount(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTransactions handles GET /accounts/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.tracker.Transactions(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txs)
}

// AddTransaction handles POST /accounts/{id}/transactions
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   decimal.Decimal `json:"amount"`
		Category string          `json:"category"`
		Note     string          `json:"note"`
		Date     *time.Time      `json:"date,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := h.tracker.AddTransaction(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"],
		req.Amount, req.Category, req.Note, orNow(req.Date))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /accounts/{id}/transactions/{txId}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.tracker.DeleteTransaction(r.Context(), auth.UserID(r.Context()), vars["id"], vars["txId"]); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	var validationErr *portfolio.ValidationError
	var quantityErr *portfolio.InsufficientQuantityError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &quantityErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, portfolio.ErrAssetNotFound), errors.Is(err, portfolio.ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func orNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now()
}
