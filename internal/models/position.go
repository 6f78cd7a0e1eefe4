package models

import "time"

// Side - направление позиции
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Valid проверяет, что направление известно
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// CloseReason - причина закрытия позиции
//
// Потребляется внешними компонентами (отчётность, UI), значения фиксированы.
type CloseReason string

const (
	CloseManual      CloseReason = "manual"
	CloseTakeProfit  CloseReason = "take_profit"
	CloseStopLoss    CloseReason = "stop_loss"
	CloseLiquidation CloseReason = "liquidation"
)

// Position - открытая маржинальная позиция
//
// Цены в PRICE_SCALE (10000), маржа в центах (USD_SCALE = 100).
// LiquidationPrice вычисляется один раз при открытии и не пересчитывается.
// Мутация только через закрытие; владелец - запись пользователя в Ledger.
type Position struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Side             Side      `json:"side"`
	MarginCents      int64     `json:"margin_cents"`
	Leverage         int64     `json:"leverage"`
	Asset            string    `json:"asset"`
	OpenPrice        int64     `json:"open_price"`
	CreatedAt        time.Time `json:"created_at"`
	TakeProfit       int64     `json:"take_profit,omitempty"` // 0 = не установлен
	StopLoss         int64     `json:"stop_loss,omitempty"`   // 0 = не установлен
	LiquidationPrice int64     `json:"liquidation_price"`
}

// ClosedPosition - закрытая позиция (неизменяема после создания)
type ClosedPosition struct {
	Position
	ClosePrice  int64       `json:"close_price"`
	PnlCents    int64       `json:"pnl_cents"`
	ClosedAt    time.Time   `json:"closed_at"`
	CloseReason CloseReason `json:"close_reason"`
}
