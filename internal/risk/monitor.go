package risk

import (
	"log"
	"sync"

	"brokerage/internal/models"
)

// PositionBook - операции ledger, нужные мониторингу
type PositionBook interface {
	SetQuote(q models.Quote)
	OpenByAsset(asset string) []*models.Position
	Close(userID, positionID string, reason models.CloseReason) (*models.ClosedPosition, error)
}

// Monitor закрывает позиции по take-profit, stop-loss и ликвидации
//
// Единственный потребитель внутренней очереди котировок. На каждую
// котировку сначала обновляет последнюю цену в ledger, затем проверяет
// открытые позиции по активу котировки. Для каждой позиции срабатывает
// первое выполненное условие в порядке: take-profit, stop-loss,
// ликвидация.
//
// Триггеры сравниваются с ценой закрытия стороны позиции:
// long закрывается по bid, short по ask.
type Monitor struct {
	book   PositionBook
	quotes <-chan models.Quote

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewMonitor создает мониторинг поверх очереди котировок
func NewMonitor(book PositionBook, quotes <-chan models.Quote) *Monitor {
	return &Monitor{
		book:   book,
		quotes: quotes,
		done:   make(chan struct{}),
	}
}

// Start запускает цикл обработки котировок
func (m *Monitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case q := <-m.quotes:
				m.handle(q)
			case <-m.done:
				return
			}
		}
	}()
}

// Stop останавливает цикл обработки
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

// handle обрабатывает одну котировку
func (m *Monitor) handle(q models.Quote) {
	m.book.SetQuote(q)

	for _, pos := range m.book.OpenByAsset(q.Symbol) {
		reason, hit := check(pos, q)
		if !hit {
			continue
		}
		if _, err := m.book.Close(pos.UserID, pos.ID, reason); err != nil {
			log.Printf("[risk] closing position %s (%s) failed: %v", pos.ID, reason, err)
		}
	}
}

// check возвращает первое сработавшее условие закрытия
func check(pos *models.Position, q models.Quote) (models.CloseReason, bool) {
	if pos.Side == models.SideLong {
		price := q.BidPrice
		if pos.TakeProfit > 0 && price >= pos.TakeProfit {
			return models.CloseTakeProfit, true
		}
		if pos.StopLoss > 0 && price <= pos.StopLoss {
			return models.CloseStopLoss, true
		}
		if price <= pos.LiquidationPrice {
			return models.CloseLiquidation, true
		}
		return "", false
	}

	price := q.AskPrice
	if pos.TakeProfit > 0 && price <= pos.TakeProfit {
		return models.CloseTakeProfit, true
	}
	if pos.StopLoss > 0 && price >= pos.StopLoss {
		return models.CloseStopLoss, true
	}
	if price >= pos.LiquidationPrice {
		return models.CloseLiquidation, true
	}
	return "", false
}
