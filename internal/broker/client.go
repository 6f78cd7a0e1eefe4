package broker

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи сообщения
	writeWait = 10 * time.Second

	// Время ожидания между pong сообщениями
	pongWait = 60 * time.Second

	// Интервал отправки ping сообщений (должен быть меньше pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения.
	// От клиента приходят только управляющие сообщения подписки.
	maxMessageSize = 512

	// Размер буфера отправки клиента
	clientSendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Поток котировок - публичные рыночные данные, origin не ограничиваем
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	EnableCompression: true,
}

// Client представляет одно WebSocket соединение подписчика
//
// Каждый клиент имеет две горутины:
//  1. readPump - читает управляющие сообщения подписки
//  2. writePump - пишет котировки клиенту
//
// Клиент получает только котировки активов, на которые подписан.
// Новое соединение начинает без подписок.
type Client struct {
	// WebSocket соединение
	conn *websocket.Conn

	// Hub которому принадлежит клиент
	hub *Hub

	// Буферизованный канал исходящих сообщений
	send chan []byte

	// Активные подписки по базовым активам.
	// Мутирует readPump, читает цикл рассылки Hub.
	mu      sync.RWMutex
	symbols map[string]struct{}
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		conn:    conn,
		hub:     hub,
		send:    make(chan []byte, clientSendBufferSize),
		symbols: make(map[string]struct{}),
	}
}

func (c *Client) subscribed(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.symbols[symbol]
	return ok
}

func (c *Client) apply(msg ControlMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Type {
	case MsgSubscribe:
		c.symbols[msg.Symbol] = struct{}{}
	case MsgUnsubscribe:
		delete(c.symbols, msg.Symbol)
	}
}

// readPump читает управляющие сообщения от клиента
//
// Запускается в отдельной горутине для каждого клиента.
// Нечитаемые и неизвестные сообщения молча игнорируются,
// соединение при этом не рвётся.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[broker] websocket error: %v", err)
			}
			break
		}

		if msg, ok := ParseControl(message); ok {
			c.apply(msg)
		}
	}
}

// writePump отправляет котировки клиенту
//
// Запускается в отдельной горутине для каждого клиента.
// Читает из канала send и отправляет через WebSocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS обрабатывает WebSocket запросы подписчиков
//
// HTTP handler для WebSocket endpoint: апгрейдит соединение,
// регистрирует клиента в Hub и запускает его горутины.
//
// Использование в routes:
//
//	router.HandleFunc("/ws", func(w, r) { broker.ServeWS(hub, w, r) })
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[broker] websocket upgrade error: %v", err)
		return
	}

	client := newClient(hub, conn)
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
