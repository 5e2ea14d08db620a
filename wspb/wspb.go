// Package wspb provides helpers for protobuf messages.
package wspb

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// Conn is the sending half the helpers need; *wsloop.Client
// implements it.
type Conn interface {
	SendBinary(data []byte) error
}

// Send marshals m and sends it to c as a single binary message.
func Send(c Conn, m proto.Message) error {
	b, err := proto.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal protobuf: %w", err)
	}
	if err := c.SendBinary(b); err != nil {
		return fmt.Errorf("failed to write protobuf: %w", err)
	}
	return nil
}

// Decode unmarshals a received message payload into m.
func Decode(payload []byte, m proto.Message) error {
	if err := proto.Unmarshal(payload, m); err != nil {
		return fmt.Errorf("failed to unmarshal protobuf: %w", err)
	}
	return nil
}
