package wswire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/wsloop/wsloop/internal/errd"
)

// Frame is one unit of the WebSocket wire format.
// See https://tools.ietf.org/html/rfc6455#section-5.2.
type Frame struct {
	Fin  bool
	Rsv1 bool
	Rsv2 bool
	Rsv3 bool

	Opcode Opcode

	Masked  bool
	MaskKey [4]byte

	// Length is an int64 because the RFC mandates the MSB bit of the
	// 64 bit extended length cannot be set.
	Length  int64
	Payload []byte
}

// ErrCloseReceived is returned by ReadFrame and Receive when the peer
// sent a close frame. Callers treat it as an end-of-connection signal.
var ErrCloseReceived = errors.New("received close frame")

const maxHeaderSize = 2 + 8 + 4

// Encode serializes one frame: base header, minimal extended length,
// mask key and the payload XORed with it when masked.
//
// Mask keys come from math/rand. RFC 6455 requires only enough
// unpredictability to defeat cache poisoning by intermediaries, not
// cryptographic strength.
func (t *Transport) Encode(payload []byte, op Opcode, masked, fin bool) []byte {
	b := make([]byte, 0, maxHeaderSize+len(payload))

	var b0 byte
	if fin {
		b0 |= 1 << 7
	}
	b0 |= byte(op) & 0xf
	b = append(b, b0)

	var b1 byte
	if masked {
		b1 |= 1 << 7
	}
	switch {
	case len(payload) > math.MaxUint16:
		b = append(b, b1|127)
		b = binary.BigEndian.AppendUint64(b, uint64(len(payload)))
	case len(payload) > 125:
		b = append(b, b1|126)
		b = binary.BigEndian.AppendUint16(b, uint16(len(payload)))
	default:
		b = append(b, b1|byte(len(payload)))
	}

	if !masked {
		return append(b, payload...)
	}

	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], rand.Uint32())
	b = append(b, key[:]...)

	start := len(b)
	b = append(b, payload...)
	maskBytes(key, 0, b[start:])
	return b
}

// ReadFrame decodes a single frame from r. Short reads are handled by
// accumulating payload bytes in a loop bounded by the fragment size
// per read; a stream that ends mid-frame is an error.
//
// Reserved bits and unrecognized opcodes are passed through without
// validation. A close frame yields ErrCloseReceived.
func (t *Transport) ReadFrame(r io.Reader) (_ Frame, err error) {
	defer errd.Wrap(&err, "failed to read frame")

	var h [2]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return Frame{}, err
	}

	var f Frame
	f.Fin = h[0]&(1<<7) != 0
	f.Rsv1 = h[0]&(1<<6) != 0
	f.Rsv2 = h[0]&(1<<5) != 0
	f.Rsv3 = h[0]&(1<<4) != 0
	f.Opcode = Opcode(h[0] & 0xf)
	f.Masked = h[1]&(1<<7) != 0

	switch code := h[1] &^ (1 << 7); {
	case code < 126:
		f.Length = int64(code)
	case code == 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, err
		}
		f.Length = int64(binary.BigEndian.Uint16(ext[:]))
	default:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return Frame{}, err
		}
		f.Length = int64(binary.BigEndian.Uint64(ext[:]))
	}

	if f.Masked {
		if _, err := io.ReadFull(r, f.MaskKey[:]); err != nil {
			return Frame{}, err
		}
	}

	f.Payload, err = t.readPayload(r, f.Length)
	if err != nil {
		return Frame{}, err
	}
	if f.Masked {
		maskBytes(f.MaskKey, 0, f.Payload)
	}

	if f.Opcode == OpClose {
		return Frame{}, ErrCloseReceived
	}
	return f, nil
}

// readPayload accumulates exactly n payload bytes, reading at most the
// fragment size per call so slow or chunked transports cannot force a
// single huge read.
func (t *Transport) readPayload(r io.Reader, n int64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if n < 0 {
		return nil, fmt.Errorf("invalid negative payload length %d", n)
	}

	p := make([]byte, 0, n)
	buf := make([]byte, t.fragmentSize())
	for {
		chunk := buf
		if rem := n - int64(len(p)); rem < int64(len(chunk)) {
			chunk = chunk[:rem]
		}
		nn, err := r.Read(chunk)
		p = append(p, chunk[:nn]...)
		if int64(len(p)) == n {
			return p, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// maskBytes XORs p in place with key cycling every 4 bytes, starting
// at offset pos, and returns the offset to continue from.
func maskBytes(key [4]byte, pos int, p []byte) int {
	for i := range p {
		p[i] ^= key[pos&3]
		pos++
	}
	return pos & 3
}
