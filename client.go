package wsloop

import (
	"net"

	"github.com/wsloop/wsloop/wswire"
)

// ConnID identifies a registered connection. IDs are assigned
// monotonically by the server and never reused within its lifetime;
// they deliberately carry no relation to the descriptor number of the
// underlying socket.
type ConnID uint64

// Client describes one connected peer. It is created during a
// successful handshake and owned by the server's registry until the
// connection is dropped, at which point the socket is closed and the
// descriptor must not be used to send.
type Client struct {
	// ID is the opaque registry identity of this connection.
	ID ConnID

	// Headers holds the handshake request headers with lower-cased
	// names. Insertion order is not preserved.
	Headers map[string]string

	// Resource is the path from the handshake request line.
	Resource string

	// Cookies holds the parsed cookie header, if one was sent.
	Cookies map[string]string

	conn net.Conn
	fd   int

	transport *wswire.Transport
}

// Conn exposes the underlying connection.
func (c *Client) Conn() net.Conn { return c.conn }

// Send writes data to the peer as a text message, fragmented by the
// server's fragment size. Server-originated frames are unmasked.
//
// A failed send only reports the error; it does not remove the client
// from the server. Treat a failed send as a cue to let the next read
// drop the connection, or ignore it.
func (c *Client) Send(data []byte) error {
	return c.transport.Send(c.conn, data, wswire.OpText, false)
}

// SendBinary is Send with a binary opcode.
func (c *Client) SendBinary(data []byte) error {
	return c.transport.Send(c.conn, data, wswire.OpBinary, false)
}
