package wswire

import (
	"io"
	"net"
	"time"

	"github.com/wsloop/wsloop/internal/errd"
)

// drainDelay is how long ReadRaw waits for further buffered bytes
// before concluding the peer has sent everything it is going to.
const drainDelay = 5 * time.Millisecond

// WriteRaw writes b to w in a single write. Only used during the
// pre-upgrade HTTP exchange.
func WriteRaw(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

// ReadRaw drains the bytes currently buffered on conn: one blocking
// read, then repeated reads under a short deadline until the
// transport runs dry or the stream ends.
//
// A 1-byte first read is almost always a truncated request line, so
// one corrective blocking read is issued before draining.
func ReadRaw(conn net.Conn) (_ []byte, err error) {
	defer errd.Wrap(&err, "failed to read raw bytes")

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	b := append([]byte(nil), buf[:n]...)

	if len(b) == 1 {
		n, err = conn.Read(buf)
		if err != nil {
			return nil, err
		}
		b = append(b, buf[:n]...)
	}

	for {
		if err := conn.SetReadDeadline(time.Now().Add(drainDelay)); err != nil {
			return b, nil
		}
		n, err = conn.Read(buf)
		b = append(b, buf[:n]...)
		if err != nil {
			break
		}
	}
	conn.SetReadDeadline(time.Time{})

	return b, nil
}
