package broker

import (
	"log"
	"sync"

	"brokerage/internal/metrics"
	"brokerage/internal/models"
)

const (
	// Размер буфера публикаций: сглаживает всплески тиков,
	// при переполнении котировки отбрасываются (latest-value-wins)
	publishBufferSize = 256

	// Размер внутренней очереди для мониторинга позиций
	internalQueueSize = 1024
)

// Hub управляет всеми активными WebSocket подписчиками
//
// Центральный fan-out котировок: принимает синтезированные котировки от
// ingest-конвейера и рассылает их клиентам, подписанным на соответствующий
// базовый актив. Подписки управляются самими клиентами через
// SUBSCRIBE/UNSUBSCRIBE сообщения.
//
// Доставка fire-and-forget: медленный клиент не тормозит остальных,
// при переполнении его буфера соединение отключается.
//
// Использование:
//  1. hub := NewHub()
//  2. go hub.Run()
//  3. hub.Publish(quote) из конвейера котировок
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Канал входящих котировок на рассылку
	publish chan models.Quote

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	// Внутренняя очередь котировок для мониторинга позиций.
	// Не блокирует рассылку: при переполнении котировка отбрасывается,
	// следующий тик принесёт свежую цену.
	internal chan models.Quote

	// Остановка цикла Run
	done chan struct{}

	stopOnce sync.Once

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		publish:    make(chan models.Quote, publishBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		internal:   make(chan models.Quote, internalQueueSize),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Обрабатывает регистрацию, отмену регистрации и рассылку котировок.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.SubscribersConnected.Inc()
			log.Printf("[broker] client connected, total: %d", total)

		case client := <-h.unregister:
			h.removeClient(client)

		case quote := <-h.publish:
			h.fanOut(quote)

		case <-h.done:
			// Закрываем всех клиентов и выходим
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				metrics.SubscribersConnected.Dec()
			}
			h.mu.Unlock()
			return
		}
	}
}

// fanOut сериализует котировку один раз и рассылает подписанным клиентам.
// Копируем список под коротким RLock, отправляем без блокировки,
// медленных клиентов удаляем под Write Lock.
func (h *Hub) fanOut(quote models.Quote) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var payload []byte
	var toRemove []*Client
	for _, client := range clients {
		if !client.subscribed(quote.Symbol) {
			continue
		}
		if payload == nil {
			var err error
			payload, err = EncodeQuote(quote)
			if err != nil {
				log.Printf("[broker] error marshaling quote: %v", err)
				return
			}
		}
		select {
		case client.send <- payload:
		default:
			// Клиент не успевает обрабатывать сообщения
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		metrics.SubscriberDrops.Inc()
		h.removeClient(client)
	}
	if len(toRemove) > 0 {
		log.Printf("[broker] removed %d slow clients", len(toRemove))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.SubscribersConnected.Dec()
	}
}

// Publish отправляет котировку на рассылку, не блокируя вызывающего.
// Котировка также дублируется во внутреннюю очередь мониторинга позиций.
func (h *Hub) Publish(quote models.Quote) {
	metrics.RecordQuote(quote.Symbol)

	select {
	case h.publish <- quote:
	default:
		// Буфер рассылки переполнен, следующий тик принесёт свежую цену
	}

	select {
	case h.internal <- quote:
	default:
		metrics.InternalQueueDrops.Inc()
	}
}

// Quotes возвращает внутреннюю очередь котировок.
// Единственный потребитель - мониторинг позиций.
func (h *Hub) Quotes() <-chan models.Quote {
	return h.internal
}

// Stop останавливает цикл Run и отключает всех клиентов
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
