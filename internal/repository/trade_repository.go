package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"brokerage/internal/models"
)

// Максимум строк в одном INSERT: 5 плейсхолдеров на строку,
// лимит протокола postgres - 65535 параметров
const maxBatchRows = 1000

// TradeRepository - работа с таблицей trades
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// SaveBatch записывает батч сделок одним multi-row INSERT.
// Дубликаты по trade_id молча пропускаются: после переподключения
// поток может прислать уже записанные сделки.
func (r *TradeRepository) SaveBatch(ctx context.Context, trades []models.Trade) error {
	for len(trades) > 0 {
		n := len(trades)
		if n > maxBatchRows {
			n = maxBatchRows
		}
		if err := r.insertChunk(ctx, trades[:n]); err != nil {
			return err
		}
		trades = trades[n:]
	}
	return nil
}

func (r *TradeRepository) insertChunk(ctx context.Context, trades []models.Trade) error {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO trades (symbol, price, quantity, trade_id, traded_at) VALUES `)

	args := make([]interface{}, 0, len(trades)*5)
	for i, trade := range trades {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5)
		args = append(args, trade.Symbol, trade.Price, trade.Quantity, trade.TradeID, trade.Timestamp)
	}
	sb.WriteString(` ON CONFLICT (trade_id) DO NOTHING`)

	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// RecentBySymbol возвращает последние сделки по символу
func (r *TradeRepository) RecentBySymbol(ctx context.Context, symbol string, limit int) ([]models.Trade, error) {
	query := `
		SELECT symbol, price, quantity, trade_id, traded_at
		FROM trades
		WHERE symbol = $1
		ORDER BY traded_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var trade models.Trade
		if err := rows.Scan(
			&trade.Symbol,
			&trade.Price,
			&trade.Quantity,
			&trade.TradeID,
			&trade.Timestamp,
		); err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	return trades, rows.Err()
}
