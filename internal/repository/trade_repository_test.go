package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"brokerage/internal/models"
)

func testTrade(id int64) models.Trade {
	return models.Trade{
		Symbol:    "BTCUSDT",
		Price:     450000000,
		Quantity:  5000,
		TradeID:   id,
		Timestamp: time.Unix(1672515782, 0),
	}
}

func TestSaveBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTradeRepository(db)
	trades := []models.Trade{testTrade(1), testTrade(2)}

	query := regexp.QuoteMeta(
		`INSERT INTO trades (symbol, price, quantity, trade_id, traded_at) VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $9, $10) ON CONFLICT (trade_id) DO NOTHING`)
	mock.ExpectExec(query).
		WithArgs(
			trades[0].Symbol, trades[0].Price, trades[0].Quantity, trades[0].TradeID, trades[0].Timestamp,
			trades[1].Symbol, trades[1].Price, trades[1].Quantity, trades[1].TradeID, trades[1].Timestamp,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := repo.SaveBatch(context.Background(), trades); err != nil {
		t.Errorf("SaveBatch() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveBatchEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTradeRepository(db)
	if err := repo.SaveBatch(context.Background(), nil); err != nil {
		t.Errorf("SaveBatch(nil) error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected query on empty batch: %v", err)
	}
}

func TestSaveBatchChunksLargeBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTradeRepository(db)

	trades := make([]models.Trade, maxBatchRows+1)
	for i := range trades {
		trades[i] = testTrade(int64(i))
	}

	mock.ExpectExec(`INSERT INTO trades`).WillReturnResult(sqlmock.NewResult(0, maxBatchRows))
	mock.ExpectExec(`INSERT INTO trades`).WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveBatch(context.Background(), trades); err != nil {
		t.Errorf("SaveBatch() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSaveBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTradeRepository(db)
	mock.ExpectExec(`INSERT INTO trades`).WillReturnError(errors.New("connection refused"))

	if err := repo.SaveBatch(context.Background(), []models.Trade{testTrade(1)}); err == nil {
		t.Error("SaveBatch() error = nil, want error")
	}
}

func TestRecentBySymbol(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	defer db.Close()

	repo := NewTradeRepository(db)

	rows := sqlmock.NewRows([]string{"symbol", "price", "quantity", "trade_id", "traded_at"}).
		AddRow("BTCUSDT", int64(450000000), int64(5000), int64(2), time.Unix(1672515783, 0)).
		AddRow("BTCUSDT", int64(449990000), int64(100), int64(1), time.Unix(1672515782, 0))

	mock.ExpectQuery(`SELECT symbol, price, quantity, trade_id, traded_at`).
		WithArgs("BTCUSDT", 2).
		WillReturnRows(rows)

	trades, err := repo.RecentBySymbol(context.Background(), "BTCUSDT", 2)
	if err != nil {
		t.Fatalf("RecentBySymbol() error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].TradeID != 2 || trades[1].TradeID != 1 {
		t.Errorf("trade ids = %d, %d", trades[0].TradeID, trades[1].TradeID)
	}
}
