// Package wswire implements the WebSocket frame codec and the raw
// byte channel used before the upgrade handshake completes.
//
// The package has no knowledge of polling or connection bookkeeping;
// both the server and any dialing client compose a Transport to frame
// their traffic.
package wswire

import (
	"io"

	"github.com/wsloop/wsloop/internal/errd"
)

// DefaultFragmentSize is the chunk size Send splits messages into
// when the Transport does not specify one.
const DefaultFragmentSize = 4096

// Transport frames and deframes messages on a byte stream.
// The zero value is ready to use.
type Transport struct {
	// FragmentSize bounds Send's chunking and the per-read slice of
	// the payload accumulation loop. Zero means DefaultFragmentSize.
	FragmentSize int
}

func (t *Transport) fragmentSize() int {
	if t == nil || t.FragmentSize <= 0 {
		return DefaultFragmentSize
	}
	return t.FragmentSize
}

// Receive reads frames from r until one carries the fin bit,
// concatenating payloads in arrival order into a single message.
// A close frame or any decode failure short circuits with an error.
//
// Ping and pong frames are not answered or filtered; they terminate
// the accumulation like any other final frame. This mirrors the
// wire-permissive contract of ReadFrame.
func (t *Transport) Receive(r io.Reader) (_ []byte, err error) {
	defer errd.Wrap(&err, "failed to receive message")

	var msg []byte
	for {
		f, err := t.ReadFrame(r)
		if err != nil {
			return nil, err
		}
		msg = append(msg, f.Payload...)
		if f.Fin {
			return msg, nil
		}
	}
}

// Send fragments data into chunks of the fragment size and writes
// them to w. The first frame carries op, every later one
// OpContinuation, and only the last has fin set. Empty data still
// produces exactly one final frame carrying op.
//
// A failed chunk write aborts the send; already written chunks are
// not rolled back.
func (t *Transport) Send(w io.Writer, data []byte, op Opcode, masked bool) (err error) {
	defer errd.Wrap(&err, "failed to send message")

	frag := t.fragmentSize()
	for first := true; ; first = false {
		chunk := data
		if len(chunk) > frag {
			chunk = chunk[:frag]
		}
		data = data[len(chunk):]

		fop := op
		if !first {
			fop = OpContinuation
		}
		fin := len(data) == 0

		if _, err := w.Write(t.Encode(chunk, fop, masked, fin)); err != nil {
			return err
		}
		if fin {
			return nil
		}
	}
}
