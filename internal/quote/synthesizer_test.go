package quote

import (
	"testing"
	"time"
)

func TestBaseAsset(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"BTCUSDT", "BTC"},
		{"btcusdt", "BTC"},
		{"ETHUSDT", "ETH"},
		{"SOLUSD", "SOL"},
		{"ETHBTC", "ETH"},
		{"ADAFDUSD", "ADA"},
		{"XYZABC", "XYZABC"}, // неизвестный суффикс - без изменений
		{"USDT", "USDT"},     // символ целиком равен суффиксу - без изменений
	}

	for _, tt := range tests {
		if got := BaseAsset(tt.symbol); got != tt.want {
			t.Errorf("BaseAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestSynthesize(t *testing.T) {
	s := NewSynthesizer(0.0002)
	ts := time.Unix(1700000000, 0)

	// mid = 45000.0000; спред 0.02% симметричен: +-0.01%
	q := s.Synthesize("BTCUSDT", 450000000, ts)

	if q.Symbol != "BTC" {
		t.Errorf("symbol = %q, want BTC", q.Symbol)
	}
	if q.Decimals != 4 {
		t.Errorf("decimals = %d, want 4", q.Decimals)
	}
	if q.Time != 1700000000 {
		t.Errorf("time = %d, want 1700000000", q.Time)
	}

	// 45000 * 1.0001 = 45004.5 -> 450045000
	if q.AskPrice != 450045000 {
		t.Errorf("ask = %d, want 450045000", q.AskPrice)
	}
	// 45000 * 0.9999 = 44995.5 -> 449955000
	if q.BidPrice != 449955000 {
		t.Errorf("bid = %d, want 449955000", q.BidPrice)
	}

	if q.BidPrice >= q.AskPrice {
		t.Errorf("bid %d must be below ask %d", q.BidPrice, q.AskPrice)
	}
}

// TestSynthesizeDeterministic проверяет отсутствие состояния между вызовами
func TestSynthesizeDeterministic(t *testing.T) {
	s := NewSynthesizer(0.0002)
	ts := time.Unix(1700000000, 0)

	first := s.Synthesize("ETHUSDT", 31250000, ts)
	for i := 0; i < 10; i++ {
		got := s.Synthesize("ETHUSDT", 31250000, ts)
		if got != first {
			t.Fatalf("call %d returned %+v, want %+v", i, got, first)
		}
	}
}

func TestSynthesizeZeroSpread(t *testing.T) {
	s := NewSynthesizer(0)

	q := s.Synthesize("BTCUSDT", 450000000, time.Unix(0, 0))
	if q.AskPrice != 450000000 || q.BidPrice != 450000000 {
		t.Errorf("zero spread must keep mid price, got bid=%d ask=%d", q.BidPrice, q.AskPrice)
	}
}

func TestSynthesizeSmallPrice(t *testing.T) {
	s := NewSynthesizer(0.0002)

	// DOGE около 0.0042: котировка не должна схлопнуться в ноль
	q := s.Synthesize("DOGEUSDT", 42, time.Unix(0, 0))
	if q.BidPrice <= 0 || q.AskPrice <= 0 {
		t.Errorf("small price collapsed to zero: bid=%d ask=%d", q.BidPrice, q.AskPrice)
	}
}
