// Package hub fans messages out to websocket clients. One goroutine owns
// the client set; producers never block on slow readers.
package hub

import (
	"encoding/json"

	"github.com/gofiber/websocket/v2"
)

// Message is one websocket frame queued for every client.
type Message struct {
	Binary bool
	Data   []byte
}

// Text wraps pre-encoded JSON.
func Text(data []byte) Message {
	return Message{Data: data}
}

// Blob wraps binary data such as a PNG.
func Blob(data []byte) Message {
	return Message{Binary: true, Data: data}
}

// EncodeJSON marshals v into a text message.
func EncodeJSON(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Message{}, err
	}
	return Text(data), nil
}

// opcode is the websocket frame type for m.
func (m Message) opcode() int {
	if m.Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
