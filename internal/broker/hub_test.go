package broker

import (
	"testing"
	"time"

	"brokerage/internal/models"
)

func testQuote(symbol string) models.Quote {
	return models.Quote{
		Symbol:   symbol,
		AskPrice: 450045000,
		BidPrice: 449955000,
		Decimals: 4,
		Time:     1700000000,
	}
}

func recvPayload(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func assertNoPayload(t *testing.T, ch chan []byte) {
	t.Helper()
	select {
	case payload := <-ch:
		t.Fatalf("unexpected payload: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ControlMessage
		ok    bool
	}{
		{
			name:  "subscribe",
			input: `{"type":"SUBSCRIBE","symbol":"BTC"}`,
			want:  ControlMessage{Type: MsgSubscribe, Symbol: "BTC"},
			ok:    true,
		},
		{
			name:  "unsubscribe",
			input: `{"type":"UNSUBSCRIBE","symbol":"ETH"}`,
			want:  ControlMessage{Type: MsgUnsubscribe, Symbol: "ETH"},
			ok:    true,
		},
		{
			name:  "case insensitive",
			input: `{"type":"subscribe","symbol":"btc"}`,
			want:  ControlMessage{Type: MsgSubscribe, Symbol: "BTC"},
			ok:    true,
		},
		{
			name:  "unknown type",
			input: `{"type":"PING","symbol":"BTC"}`,
			ok:    false,
		},
		{
			name:  "missing symbol",
			input: `{"type":"SUBSCRIBE"}`,
			ok:    false,
		},
		{
			name:  "malformed json",
			input: `{"type":`,
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseControl([]byte(tt.input))
			if ok != tt.ok {
				t.Fatalf("ParseControl() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseControl() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEncodeQuoteWireFormat(t *testing.T) {
	payload, err := EncodeQuote(testQuote("BTC"))
	if err != nil {
		t.Fatalf("EncodeQuote() error: %v", err)
	}

	var decoded models.Quote
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if decoded != testQuote("BTC") {
		t.Errorf("decoded quote = %+v", decoded)
	}
}

func TestHubRoutesBySubscription(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	btc := newClient(hub, nil)
	eth := newClient(hub, nil)
	idle := newClient(hub, nil)
	for _, c := range []*Client{btc, eth, idle} {
		hub.register <- c
	}
	btc.apply(ControlMessage{Type: MsgSubscribe, Symbol: "BTC"})
	eth.apply(ControlMessage{Type: MsgSubscribe, Symbol: "ETH"})

	hub.Publish(testQuote("BTC"))

	payload := recvPayload(t, btc.send)
	var q models.Quote
	if err := json.Unmarshal(payload, &q); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if q.Symbol != "BTC" {
		t.Errorf("routed quote symbol = %q, want BTC", q.Symbol)
	}

	assertNoPayload(t, eth.send)
	assertNoPayload(t, idle.send)
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := newClient(hub, nil)
	hub.register <- client
	client.apply(ControlMessage{Type: MsgSubscribe, Symbol: "BTC"})

	hub.Publish(testQuote("BTC"))
	recvPayload(t, client.send)

	client.apply(ControlMessage{Type: MsgUnsubscribe, Symbol: "BTC"})
	hub.Publish(testQuote("BTC"))
	assertNoPayload(t, client.send)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	slow := newClient(hub, nil)
	hub.register <- slow
	slow.apply(ControlMessage{Type: MsgSubscribe, Symbol: "BTC"})

	// Никто не читает send: буфер заполняется и очередная котировка
	// приводит к отключению клиента
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("slow client not dropped, clients: %d", hub.ClientCount())
		}
		hub.Publish(testQuote("BTC"))
		time.Sleep(time.Millisecond)
	}

	// Канал отключенного клиента закрыт
	for {
		if _, ok := <-slow.send; !ok {
			return
		}
	}
}

func TestHubInternalQueue(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	hub.Publish(testQuote("SOL"))

	select {
	case q := <-hub.Quotes():
		if q.Symbol != "SOL" {
			t.Errorf("internal queue quote symbol = %q, want SOL", q.Symbol)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for internal queue quote")
	}
}

func TestHubInternalQueueOverflowDoesNotBlock(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < internalQueueSize*2; i++ {
			hub.Publish(testQuote("BTC"))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on full internal queue")
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newClient(hub, nil)
	hub.register <- client

	hub.Stop()
	// Повторный Stop безопасен
	hub.Stop()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed after Stop")
	}
}

func BenchmarkEncodeQuote(b *testing.B) {
	q := testQuote("BTC")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeQuote(q); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFanOut(b *testing.B) {
	hub := NewHub()
	clients := make([]*Client, 50)
	for i := range clients {
		c := newClient(hub, nil)
		c.apply(ControlMessage{Type: MsgSubscribe, Symbol: "BTC"})
		hub.clients[c] = true
		clients[i] = c
	}

	q := testQuote("BTC")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.fanOut(q)
		for _, c := range clients {
			for len(c.send) > 0 {
				<-c.send
			}
		}
	}
}
