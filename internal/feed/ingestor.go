package feed

import (
	"context"
	"log"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"brokerage/internal/metrics"
	"brokerage/internal/models"
	"brokerage/internal/quote"
	"brokerage/pkg/fixedpoint"
	"brokerage/pkg/retry"
)

// jsoniter в горячем пути: парсинг на каждый тик потока
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TradeStore - сток для батчей сделок
type TradeStore interface {
	SaveBatch(ctx context.Context, trades []models.Trade) error
}

// Publisher принимает синтезированные котировки
type Publisher interface {
	Publish(q models.Quote)
}

// aggTradeEvent - сообщение aggTrade внешнего потока.
// Цена и количество приходят десятичными строками.
type aggTradeEvent struct {
	Event     string `json:"e"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeID   int64  `json:"a"`
	TradeTime int64  `json:"T"`
}

// Ingestor превращает сырые сообщения потока в котировки и батчи сделок
//
// На каждый aggTrade:
//   - сделка конвертируется в целочисленную шкалу и попадает в батч
//   - из цены синтезируется котировка и публикуется в hub
//
// Батч сбрасывается в сток по таймеру. Запись best-effort: ошибка
// логируется и считается в метриках, но не останавливает приём.
// Остальные типы сообщений (ответы на подписку, прочие события)
// отбрасываются.
type Ingestor struct {
	synth *quote.Synthesizer
	pub   Publisher
	store TradeStore

	flushInterval time.Duration
	flushRetry    retry.Config

	mu    sync.Mutex
	batch []models.Trade

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewIngestor создает ingestor. store может быть nil, тогда сделки
// не сохраняются и конвейер работает только на котировки.
func NewIngestor(synth *quote.Synthesizer, pub Publisher, store TradeStore, flushInterval time.Duration) *Ingestor {
	cfg := retry.NetworkConfig()
	cfg.RetryIf = retry.RetryIfNotContext

	return &Ingestor{
		synth:         synth,
		pub:           pub,
		store:         store,
		flushInterval: flushInterval,
		flushRetry:    cfg,
		done:          make(chan struct{}),
	}
}

// HandleMessage обрабатывает одно сырое сообщение потока.
// Подходит как callback для WSClient.SetOnMessage.
func (in *Ingestor) HandleMessage(data []byte) {
	var ev aggTradeEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.Event != "aggTrade" {
		metrics.FeedMessagesDropped.Inc()
		return
	}

	price, err := fixedpoint.ParsePrice(ev.Price)
	if err != nil {
		metrics.FeedMessagesDropped.Inc()
		log.Printf("[feed] unparsable price %q for %s: %v", ev.Price, ev.Symbol, err)
		return
	}
	qty, err := fixedpoint.ParsePrice(ev.Quantity)
	if err != nil {
		metrics.FeedMessagesDropped.Inc()
		log.Printf("[feed] unparsable quantity %q for %s: %v", ev.Quantity, ev.Symbol, err)
		return
	}

	ts := time.UnixMilli(ev.TradeTime)
	metrics.RecordTrade(ev.Symbol)

	if in.store != nil {
		in.mu.Lock()
		in.batch = append(in.batch, models.Trade{
			Symbol:    ev.Symbol,
			Price:     price,
			Quantity:  qty,
			TradeID:   ev.TradeID,
			Timestamp: ts,
		})
		in.mu.Unlock()
	}

	in.pub.Publish(in.synth.Synthesize(ev.Symbol, price, ts))
}

// Start запускает периодический сброс батчей
func (in *Ingestor) Start() {
	if in.store == nil {
		return
	}

	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		ticker := time.NewTicker(in.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				in.flush()
			case <-in.done:
				return
			}
		}
	}()
}

// Stop останавливает сброс по таймеру и досбрасывает накопленный батч
func (in *Ingestor) Stop() {
	in.stopOnce.Do(func() {
		close(in.done)
	})
	in.wg.Wait()
	if in.store != nil {
		in.flush()
	}
}

// flush атомарно забирает накопленный батч и записывает его в сток
func (in *Ingestor) flush() {
	in.mu.Lock()
	batch := in.batch
	in.batch = nil
	in.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), in.flushInterval)
	defer cancel()

	err := retry.Do(ctx, func() error {
		return in.store.SaveBatch(ctx, batch)
	}, in.flushRetry)

	metrics.RecordFlush(len(batch), err)
	if err != nil {
		log.Printf("[feed] batch flush of %d trades failed: %v", len(batch), err)
		return
	}
	log.Printf("[feed] flushed %d trades", len(batch))
}
