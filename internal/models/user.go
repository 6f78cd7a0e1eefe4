package models

// User - пользователь с балансом в центах (USD_SCALE = 100)
//
// Баланс мутируется только при открытии позиции (списание маржи)
// и при закрытии (возврат маржи + PnL).
type User struct {
	ID           string `json:"id"`
	BalanceCents int64  `json:"balance_cents"`
}
