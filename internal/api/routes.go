package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brokerage/internal/api/handlers"
	"brokerage/internal/api/middleware"
	"brokerage/internal/broker"
)

// Dependencies содержит зависимости для API handlers
type Dependencies struct {
	Ledger handlers.TradeLedger
	Hub    *broker.Hub
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── POST /trade       - открыть позицию
//	└── POST /trade/close - закрыть позицию вручную
//
// /ws       - WebSocket поток котировок (SUBSCRIBE/UNSUBSCRIBE)
// /metrics  - prometheus метрики
// /health   - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	if deps != nil && deps.Ledger != nil {
		tradeHandler := handlers.NewTradeHandler(deps.Ledger)

		api := router.PathPrefix("/api/v1").Subrouter()
		api.Use(middleware.RateLimit(10, 20))
		api.HandleFunc("/trade", tradeHandler.OpenTrade).Methods("POST")
		api.HandleFunc("/trade/close", tradeHandler.CloseTrade).Methods("POST")
	}

	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			broker.ServeWS(hub, w, r)
		})
	}

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
