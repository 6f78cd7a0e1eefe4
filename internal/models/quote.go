package models

// Quote - синтезированная котировка bid/ask для базового актива
//
// Выводится из последней цены сделки с фиксированным спредом.
// Эфемерна: хранится только последнее значение по символу, истории нет.
type Quote struct {
	// Базовый актив (символ без суффикса котируемой валюты, например BTC)
	Symbol string `json:"symbol"`

	// Цены в fixed-point представлении (PRICE_SCALE = 10000)
	AskPrice int64 `json:"askPrice"`
	BidPrice int64 `json:"bidPrice"`

	// Количество знаков fixed-point шкалы (всегда 4)
	Decimals int `json:"decimals"`

	// Unix-время в секундах
	Time int64 `json:"time"`
}
