package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"brokerage/internal/ledger"
	"brokerage/internal/models"
	"brokerage/pkg/fixedpoint"
)

// OpenTradeRequest - тело запроса открытия позиции
//
// margin в центах, take_profit и stop_loss - отображаемые цены
// (конвертируются в ценовую шкалу на входе)
type OpenTradeRequest struct {
	UserID     string  `json:"user_id"`
	Asset      string  `json:"asset"`
	Side       string  `json:"side"`
	Margin     int64   `json:"margin"`
	Leverage   int64   `json:"leverage"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
}

// CloseTradeRequest - тело запроса ручного закрытия позиции
type CloseTradeRequest struct {
	UserID  string `json:"user_id"`
	OrderID string `json:"order_id"`
}

// OpenTradeResponse - ответ открытия позиции
type OpenTradeResponse struct {
	OrderID          string `json:"order_id"`
	OpenPrice        int64  `json:"open_price"`
	LiquidationPrice int64  `json:"liquidation_price"`
	Balance          int64  `json:"balance"`
}

// CloseTradeResponse - ответ закрытия позиции
type CloseTradeResponse struct {
	OrderID    string `json:"order_id"`
	ClosePrice int64  `json:"close_price"`
	Pnl        int64  `json:"pnl"`
	Reason     string `json:"reason"`
	Balance    int64  `json:"balance"`
}

// TradeLedger - операции ledger, нужные торговым endpoints
type TradeLedger interface {
	Open(userID string, req ledger.OpenRequest) (*models.Position, error)
	Close(userID, positionID string, reason models.CloseReason) (*models.ClosedPosition, error)
	Balance(userID string) (int64, error)
}

// TradeHandler отвечает за ручное открытие и закрытие позиций
//
// Endpoints:
// - POST /api/v1/trade - открыть позицию
// - POST /api/v1/trade/close - закрыть позицию вручную
type TradeHandler struct {
	book TradeLedger
}

// NewTradeHandler создает новый TradeHandler
func NewTradeHandler(book TradeLedger) *TradeHandler {
	return &TradeHandler{book: book}
}

// OpenTrade открывает позицию
// POST /api/v1/trade
//
// Ответы:
// - 201 Created: позиция открыта
// - 400 Bad Request: некорректные параметры или недостаточно средств
// - 404 Not Found: пользователь не найден
func (h *TradeHandler) OpenTrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req OpenTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required", "")
		return
	}
	if req.Asset == "" {
		respondError(w, http.StatusBadRequest, "asset is required", "")
		return
	}

	pos, err := h.book.Open(req.UserID, ledger.OpenRequest{
		Asset:       req.Asset,
		Side:        models.Side(req.Side),
		MarginCents: req.Margin,
		Leverage:    req.Leverage,
		TakeProfit:  fixedpoint.PriceFromFloat(req.TakeProfit),
		StopLoss:    fixedpoint.PriceFromFloat(req.StopLoss),
	})
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}

	balance, _ := h.book.Balance(req.UserID)
	respondJSON(w, http.StatusCreated, OpenTradeResponse{
		OrderID:          pos.ID,
		OpenPrice:        pos.OpenPrice,
		LiquidationPrice: pos.LiquidationPrice,
		Balance:          balance,
	})
}

// CloseTrade закрывает позицию вручную
// POST /api/v1/trade/close
//
// Ответы:
// - 200 OK: позиция закрыта
// - 404 Not Found: позиция не найдена (уже закрыта или не существовала)
func (h *TradeHandler) CloseTrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req CloseTradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if req.UserID == "" || req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "user_id and order_id are required", "")
		return
	}

	closed, err := h.book.Close(req.UserID, req.OrderID, models.CloseManual)
	if err != nil {
		h.respondLedgerError(w, err)
		return
	}
	if closed == nil {
		respondError(w, http.StatusNotFound, "Order not found", "already closed or never existed")
		return
	}

	balance, _ := h.book.Balance(req.UserID)
	respondJSON(w, http.StatusOK, CloseTradeResponse{
		OrderID:    closed.ID,
		ClosePrice: closed.ClosePrice,
		Pnl:        closed.PnlCents,
		Reason:     string(closed.CloseReason),
		Balance:    balance,
	})
}

// respondLedgerError отображает ошибки ledger на HTTP коды
func (h *TradeHandler) respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "User not found", err.Error())
	case errors.Is(err, ledger.ErrInvalidAsset),
		errors.Is(err, ledger.ErrInvalidMargin),
		errors.Is(err, ledger.ErrInvalidLeverage),
		errors.Is(err, ledger.ErrInvalidSide),
		errors.Is(err, ledger.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "Invalid trade request", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}
