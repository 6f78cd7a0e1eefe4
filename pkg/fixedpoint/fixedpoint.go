package fixedpoint

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fixed-point представление денежных величин.
//
// Цены хранятся как int64 на шкале PriceScale (4 знака),
// долларовые суммы - как int64 на шкале MoneyScale (центы).
// После конвертации вся арифметика целочисленная; float64 допустим
// только на внешней границе (отображение, ввод из API).
const (
	// PriceScale - множитель шкалы цен (10^PriceDecimals)
	PriceScale = 10000

	// PriceDecimals - число знаков ценовой шкалы
	PriceDecimals = 4

	// MoneyScale - множитель долларовой шкалы (центы)
	MoneyScale = 100

	// ConversionFactor - переход между шкалами (PriceScale / MoneyScale)
	ConversionFactor = PriceScale / MoneyScale
)

var priceScaleDec = decimal.New(1, PriceDecimals)

// ParsePrice конвертирует десятичную строку из внешнего потока
// во внутреннее представление с округлением к ближайшему.
//
// Парсинг идёт через decimal, без промежуточного float64:
// "45123.4567" -> 451234567.
func ParsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return d.Mul(priceScaleDec).Round(0).IntPart(), nil
}

// PriceFromDecimal кодирует decimal-цену во внутреннее представление
func PriceFromDecimal(d decimal.Decimal) int64 {
	return d.Mul(priceScaleDec).Round(0).IntPart()
}

// PriceToDecimal возвращает отображаемое значение внутренней цены
func PriceToDecimal(p int64) decimal.Decimal {
	return decimal.New(p, -PriceDecimals)
}

// DisplayPrice форматирует внутреннюю цену для внешнего отображения (2 знака)
func DisplayPrice(p int64) string {
	return PriceToDecimal(p).StringFixed(2)
}

// PriceFromFloat кодирует отображаемую цену (например TP/SL из API)
func PriceFromFloat(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(priceScaleDec).Round(0).IntPart()
}

// PriceToFloat декодирует внутреннюю цену в float64 (только для отображения)
func PriceToFloat(p int64) float64 {
	f, _ := PriceToDecimal(p).Float64()
	return f
}

// USDFromFloat кодирует долларовую сумму в центы
func USDFromFloat(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(decimal.New(1, 2)).Round(0).IntPart()
}

// USDToFloat декодирует центы в доллары (только для отображения)
func USDToFloat(c int64) float64 {
	f, _ := decimal.New(c, -2).Float64()
	return f
}
