package feed

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"brokerage/internal/metrics"
)

// ConnState состояние соединения с внешним потоком
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// subscribeRequest - запрос подписки на потоки aggTrade
type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// WSClient управляет WebSocket соединением с внешним потоком сделок
//
// Подключается к upstream, подписывается на aggTrade потоки перечисленных
// символов и передаёт сырые сообщения в callback. При разрыве соединения
// переподключается с фиксированной задержкой неограниченное число раз:
// внешний поток - единственный источник цен, без него сервис бесполезен.
//
// Использование:
//  1. client := NewWSClient(url, symbols, connectTimeout, pingInterval, reconnectDelay)
//  2. client.SetOnMessage(handler)
//  3. client.Connect()
//  4. client.Close()
type WSClient struct {
	wsURL   string
	streams []string

	connectTimeout time.Duration
	pingInterval   time.Duration
	reconnectDelay time.Duration

	conn   *websocket.Conn
	connMu sync.RWMutex

	// atomic ConnState
	state int32

	closeChan chan struct{}
	closeOnce sync.Once

	onMessage  func([]byte)
	callbackMu sync.RWMutex
}

// NewWSClient создаёт клиента внешнего потока для заданных торговых символов
func NewWSClient(wsURL string, symbols []string, connectTimeout, pingInterval, reconnectDelay time.Duration) *WSClient {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@aggTrade")
	}

	return &WSClient{
		wsURL:          wsURL,
		streams:        streams,
		connectTimeout: connectTimeout,
		pingInterval:   pingInterval,
		reconnectDelay: reconnectDelay,
		closeChan:      make(chan struct{}),
	}
}

// SetOnMessage устанавливает callback для входящих сообщений.
// Вызывается до Connect.
func (c *WSClient) SetOnMessage(handler func([]byte)) {
	c.callbackMu.Lock()
	c.onMessage = handler
	c.callbackMu.Unlock()
}

// State возвращает текущее состояние соединения
func (c *WSClient) State() ConnState {
	return ConnState(atomic.LoadInt32(&c.state))
}

// IsConnected проверяет, установлено ли соединение
func (c *WSClient) IsConnected() bool {
	return c.State() == StateConnected
}

// Connect устанавливает соединение и запускает горутины чтения и ping
func (c *WSClient) Connect() error {
	select {
	case <-c.closeChan:
		return fmt.Errorf("client is closed")
	default:
	}

	atomic.StoreInt32(&c.state, int32(StateConnecting))

	if err := c.dial(); err != nil {
		atomic.StoreInt32(&c.state, int32(StateDisconnected))
		return err
	}

	atomic.StoreInt32(&c.state, int32(StateConnected))

	go c.readPump()
	go c.pingPump()

	log.Printf("[feed] connected to %s, %d streams", c.wsURL, len(c.streams))
	return nil
}

// dial подключается и восстанавливает подписки
func (c *WSClient) dial() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.connectTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: c.connectTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial error: %w", err)
	}

	if err := conn.WriteJSON(subscribeRequest{
		Method: "SUBSCRIBE",
		Params: c.streams,
		ID:     1,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe error: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	return nil
}

// readPump читает сообщения из потока и передаёт их в callback
func (c *WSClient) readPump() {
	for {
		select {
		case <-c.closeChan:
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(err)
			return
		}

		c.callbackMu.RLock()
		onMessage := c.onMessage
		c.callbackMu.RUnlock()

		if onMessage != nil {
			onMessage(message)
		}
	}
}

// pingPump отправляет ping для проверки соединения
func (c *WSClient) pingPump() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()

			if conn == nil || c.State() != StateConnected {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[feed] ping error: %v", err)
				c.handleDisconnect(err)
				return
			}
		}
	}
}

// handleDisconnect обрабатывает разрыв соединения и запускает переподключение
func (c *WSClient) handleDisconnect(err error) {
	select {
	case <-c.closeChan:
		return
	default:
	}

	// Избегаем повторной обработки
	state := c.State()
	if state == StateReconnecting || state == StateClosed {
		return
	}

	atomic.StoreInt32(&c.state, int32(StateReconnecting))

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	if err != nil {
		log.Printf("[feed] disconnected: %v", err)
	}

	go c.reconnectLoop()
}

// reconnectLoop переподключается с фиксированной задержкой до успеха.
// Попытки не ограничены: поток обязан восстановиться.
func (c *WSClient) reconnectLoop() {
	for {
		select {
		case <-c.closeChan:
			return
		case <-time.After(c.reconnectDelay):
		}

		metrics.FeedReconnects.Inc()
		log.Printf("[feed] reconnecting to %s...", c.wsURL)

		if err := c.dial(); err != nil {
			log.Printf("[feed] reconnect failed: %v", err)
			continue
		}

		atomic.StoreInt32(&c.state, int32(StateConnected))

		go c.readPump()
		go c.pingPump()

		log.Printf("[feed] reconnected")
		return
	}
}

// Close закрывает соединение и останавливает переподключение
func (c *WSClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeChan)
		atomic.StoreInt32(&c.state, int32(StateClosed))

		c.connMu.Lock()
		defer c.connMu.Unlock()
		if c.conn != nil {
			err = c.conn.Close()
			c.conn = nil
		}
	})
	return err
}
