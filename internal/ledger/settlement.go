package ledger

import (
	"math/big"

	"brokerage/internal/models"
	"brokerage/pkg/fixedpoint"
)

// CalculatePnlCents вычисляет PnL закрытия в центах целочисленно,
// без дрейфа округления:
//
//	marginOnPriceScale = marginCents * conversionFactor
//	totalPositionValue = marginOnPriceScale * leverage
//	pnlOnPriceScale    = (closePrice - openPrice) * totalPositionValue / openPrice
//	pnlCents           = pnlOnPriceScale / conversionFactor  (для short - со знаком минус)
//
// Промежуточное произведение margin * leverage * delta может не помещаться
// в int64, поэтому расчёт идёт через math/big. Деление усекается к нулю.
func CalculatePnlCents(side models.Side, openPrice, closePrice, marginCents, leverage int64) int64 {
	conv := big.NewInt(fixedpoint.ConversionFactor)

	total := new(big.Int).Mul(big.NewInt(marginCents), conv)
	total.Mul(total, big.NewInt(leverage))

	pnl := new(big.Int).Sub(big.NewInt(closePrice), big.NewInt(openPrice))
	pnl.Mul(pnl, total)
	pnl.Quo(pnl, big.NewInt(openPrice))

	if side == models.SideShort {
		pnl.Neg(pnl)
	}

	pnl.Quo(pnl, conv)
	return pnl.Int64()
}

// LiquidationPrice вычисляет цену ликвидации при открытии позиции.
//
// Ликвидация - цена закрытия, при которой нереализованный убыток равен
// 100% маржи: ((close - open)/open) * leverage = -1. Отсюда
// long: floor(open * (1 - 1/leverage)), short: floor(open * (1 + 1/leverage)).
// Считается один раз и никогда не пересчитывается.
func LiquidationPrice(side models.Side, openPrice, leverage int64) int64 {
	if side == models.SideLong {
		return openPrice * (leverage - 1) / leverage
	}
	return openPrice * (leverage + 1) / leverage
}
