package api

import (
	"github.com/gorilla/mux"
	"github.com/ktezcan/fintrack/internal/auth"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, authService *auth.Service) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Auth routes
	r.HandleFunc("/api/v1/auth/register", handler.Register).Methods("POST")
	r.HandleFunc("/api/v1/auth/login", handler.Login).Methods("POST")

	// Authenticated routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authService.Middleware)

	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/portfolio/refresh", handler.RefreshPrices).Methods("POST")

	api.HandleFunc("/assets", handler.GetAssets).Methods("GET")
	api.HandleFunc("/assets", handler.CreateAsset).Methods("POST")
	api.HandleFunc("/assets/{id}", handler.GetAsset).Methods("GET")
	api.HandleFunc("/assets/{id}", handler.DeleteAsset).Methods("DELETE")
	api.HandleFunc("/assets/{id}/lots", handler.AddLot).Methods("POST")
	api.HandleFunc("/assets/{id}/lots/{lotId}", handler.EditLot).Methods("PUT")
	api.HandleFunc("/assets/{id}/lots/{lotId}", handler.DeleteLot).Methods("DELETE")
	api.HandleFunc("/assets/{id}/sales", handler.RecordSale).Methods("POST")
	api.HandleFunc("/assets/{id}/sales/{saleId}", handler.EditSale).Methods("PUT")
	api.HandleFunc("/assets/{id}/sales/{saleId}", handler.DeleteSale).Methods("DELETE")

	api.HandleFunc("/accounts", handler.GetAccounts).Methods("GET")
	api.HandleFunc("/accounts", handler.CreateAccount).Methods("POST")
	api.HandleFunc("/accounts/{id}", handler.DeleteAccount).Methods("DELETE")
	api.HandleFunc("/accounts/{id}/transactions", handler.GetTransactions).Methods("GET")
	api.HandleFunc("/accounts/{id}/transactions", handler.AddTransaction).Methods("POST")
	api.HandleFunc("/accounts/{id}/transactions/{txId}", handler.DeleteTransaction).Methods("DELETE")

	return r
}
