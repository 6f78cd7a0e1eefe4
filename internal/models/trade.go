package models

import "time"

// Trade представляет одну сделку из внешнего потока
//
// Цена и объём хранятся в fixed-point представлении (PRICE_SCALE = 10000).
// Записи неизменяемы; дедупликация при персистенции выполняется по TradeID.
type Trade struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Price     int64     `json:"price" db:"price"`
	Quantity  int64     `json:"quantity" db:"quantity"`
	TradeID   int64     `json:"trade_id" db:"trade_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
