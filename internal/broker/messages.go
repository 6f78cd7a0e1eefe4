package broker

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"brokerage/internal/models"
)

// jsoniter в горячем пути: котировки сериализуются на каждый тик потока
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Типы управляющих сообщений от клиента
const (
	MsgSubscribe   = "SUBSCRIBE"
	MsgUnsubscribe = "UNSUBSCRIBE"
)

// ControlMessage - управляющее сообщение подписки от клиента
//
// Формат: {"type": "SUBSCRIBE", "symbol": "BTC"}
type ControlMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

// ParseControl разбирает управляющее сообщение клиента.
// Тип и символ нормализуются в верхний регистр.
func ParseControl(data []byte) (ControlMessage, bool) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, false
	}

	msg.Type = strings.ToUpper(strings.TrimSpace(msg.Type))
	msg.Symbol = strings.ToUpper(strings.TrimSpace(msg.Symbol))
	if msg.Symbol == "" {
		return ControlMessage{}, false
	}

	switch msg.Type {
	case MsgSubscribe, MsgUnsubscribe:
		return msg, true
	}
	return ControlMessage{}, false
}

// EncodeQuote сериализует котировку в wire-формат
func EncodeQuote(q models.Quote) ([]byte, error) {
	return json.Marshal(q)
}
