// Package hub fans guidance snapshots out to websocket clients.
//
// One goroutine owns the client set; each connection has its own writer.
// Snapshots supersede each other, so a client that falls behind skips stale
// frames instead of being disconnected.
package hub

import "encoding/json"

// Message is one pre-encoded websocket text frame.
type Message []byte

// Encode marshals v as a JSON text frame.
func Encode(v any) (Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Message(data), nil
}
