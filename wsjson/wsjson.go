// Package wsjson provides helpers for JSON messages.
package wsjson

import (
	"fmt"

	"github.com/sugawarayuuta/sonnet"
)

// Conn is the sending half the helpers need; *wsloop.Client
// implements it.
type Conn interface {
	Send(data []byte) error
}

// Send marshals v and sends it to c as a single text message.
func Send(c Conn, v interface{}) error {
	b, err := sonnet.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	if err := c.Send(b); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

// Decode unmarshals a received message payload into v.
func Decode(payload []byte, v interface{}) error {
	if err := sonnet.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return nil
}
