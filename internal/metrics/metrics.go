package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Экспортируются через /metrics (promhttp) и покрывают весь поток данных:
// ingest -> котировки -> fan-out -> мониторинг позиций -> settlement.

// ============ Ingest ============

// TradesIngested - количество принятых сделок из внешнего потока
var TradesIngested = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "feed",
		Name:      "trades_ingested_total",
		Help:      "Total number of trades received from the upstream feed",
	},
	[]string{"symbol"},
)

// FeedReconnects - количество переподключений к потоку
var FeedReconnects = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "feed",
		Name:      "reconnects_total",
		Help:      "Number of upstream feed reconnections",
	},
)

// FeedMessagesDropped - отброшенные сообщения (не aggTrade или нечитаемые)
var FeedMessagesDropped = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "feed",
		Name:      "messages_dropped_total",
		Help:      "Number of upstream messages ignored as irrelevant or malformed",
	},
)

// BatchFlushSize - размер батчей, записанных в сток
var BatchFlushSize = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "brokerage",
		Subsystem: "feed",
		Name:      "batch_flush_size",
		Help:      "Number of trades per persistence batch flush",
		Buckets:   []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
	},
)

// BatchFlushErrors - ошибки записи батчей (best-effort, не блокируют ingest)
var BatchFlushErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "feed",
		Name:      "batch_flush_errors_total",
		Help:      "Number of failed persistence batch flushes",
	},
)

// ============ Fan-out ============

// QuotesPublished - опубликованные котировки по базовым активам
var QuotesPublished = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "broker",
		Name:      "quotes_published_total",
		Help:      "Total number of quotes published to the hub",
	},
	[]string{"symbol"},
)

// SubscribersConnected - текущее количество WebSocket подписчиков
var SubscribersConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "brokerage",
		Subsystem: "broker",
		Name:      "subscribers_connected",
		Help:      "Current number of connected WebSocket subscribers",
	},
)

// SubscriberDrops - подписчики, отключенные из-за медленной доставки
var SubscriberDrops = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "broker",
		Name:      "subscriber_drops_total",
		Help:      "Number of subscribers dropped due to undeliverable messages",
	},
)

// InternalQueueDrops - котировки, не поместившиеся во внутреннюю очередь
var InternalQueueDrops = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "broker",
		Name:      "internal_queue_drops_total",
		Help:      "Number of quotes dropped from the internal risk monitor queue",
	},
)

// ============ Позиции ============

// PositionsOpened - открытые позиции по активам
var PositionsOpened = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "ledger",
		Name:      "positions_opened_total",
		Help:      "Total number of opened positions",
	},
	[]string{"asset"},
)

// PositionsClosed - закрытые позиции по активам и причинам
var PositionsClosed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "brokerage",
		Subsystem: "ledger",
		Name:      "positions_closed_total",
		Help:      "Total number of closed positions by reason",
	},
	[]string{"asset", "reason"},
)

// RealizedPnlCents - накопленный реализованный PnL в центах.
// Gauge, потому что PnL бывает отрицательным.
var RealizedPnlCents = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "brokerage",
		Subsystem: "ledger",
		Name:      "realized_pnl_cents",
		Help:      "Cumulative realized PnL in cents across all closed positions",
	},
)

// ============ Вспомогательные функции ============

// RecordTrade записывает принятую сделку
func RecordTrade(symbol string) {
	TradesIngested.WithLabelValues(symbol).Inc()
}

// RecordFlush записывает результат сброса батча
func RecordFlush(size int, err error) {
	BatchFlushSize.Observe(float64(size))
	if err != nil {
		BatchFlushErrors.Inc()
	}
}

// RecordQuote записывает публикацию котировки
func RecordQuote(symbol string) {
	QuotesPublished.WithLabelValues(symbol).Inc()
}

// RecordClose записывает закрытие позиции
func RecordClose(asset, reason string, pnlCents int64) {
	PositionsClosed.WithLabelValues(asset, reason).Inc()
	RealizedPnlCents.Add(float64(pnlCents))
}
