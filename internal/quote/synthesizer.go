package quote

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"brokerage/internal/models"
	"brokerage/pkg/fixedpoint"
)

// knownQuotes - суффиксы котируемых валют, отсекаемые при выводе базового актива.
// Порядок имеет значение: берётся первое совпадение.
var knownQuotes = []string{
	"USDT", "USD", "FDUSD", "USDC", "BUSD", "TUSD",
	"EUR", "TRY", "BRL", "BTC", "ETH", "BNB",
}

// BaseAsset отсекает известный суффикс котируемой валюты от торгового символа.
//
// "BTCUSDT" -> "BTC", "ETHBTC" -> "ETH". Если суффикс не распознан или после
// отсечения ничего не остаётся, символ возвращается без изменений.
func BaseAsset(symbol string) string {
	upper := strings.ToUpper(symbol)
	for _, q := range knownQuotes {
		if strings.HasSuffix(upper, q) && len(upper) > len(q) {
			return upper[:len(upper)-len(q)]
		}
	}
	return upper
}

// Synthesizer выводит котировку bid/ask из последней цены сделки
//
// Спред фиксирован конфигурацией и симметричен относительно mid:
// ask = mid * (1 + spread/2), bid = mid * (1 - spread/2),
// оба значения округляются к ближайшему шагу ценовой шкалы.
// Synthesize детерминирован и не имеет побочных эффектов.
type Synthesizer struct {
	askFactor decimal.Decimal
	bidFactor decimal.Decimal
}

// NewSynthesizer создает синтезатор с заданным спредом (0.0002 = 0.02%)
func NewSynthesizer(spreadFactor float64) *Synthesizer {
	half := decimal.NewFromFloat(spreadFactor).Div(decimal.NewFromInt(2))
	one := decimal.NewFromInt(1)

	return &Synthesizer{
		askFactor: one.Add(half),
		bidFactor: one.Sub(half),
	}
}

// Synthesize строит котировку из цены последней сделки
func (s *Synthesizer) Synthesize(symbol string, price int64, ts time.Time) models.Quote {
	mid := fixedpoint.PriceToDecimal(price)

	return models.Quote{
		Symbol:   BaseAsset(symbol),
		AskPrice: fixedpoint.PriceFromDecimal(mid.Mul(s.askFactor)),
		BidPrice: fixedpoint.PriceFromDecimal(mid.Mul(s.bidFactor)),
		Decimals: fixedpoint.PriceDecimals,
		Time:     ts.Unix(),
	}
}
