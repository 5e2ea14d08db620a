package wswire

import (
	"bytes"
	"strconv"
	"testing"
	"testing/iotest"

	"github.com/gobwas/ws"

	"github.com/wsloop/wsloop/internal/assert"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	opcodes := []Opcode{OpContinuation, OpText, OpBinary, OpPing, OpPong}
	for _, op := range opcodes {
		op := op
		t.Run(op.String(), func(t *testing.T) {
			t.Parallel()

			for _, masked := range []bool{true, false} {
				tr := &Transport{}
				payload := []byte("the quick brown fox")

				b := tr.Encode(payload, op, masked, true)
				f, err := tr.ReadFrame(bytes.NewReader(b))
				assert.Success(t, err)

				assert.Equal(t, "opcode", op, f.Opcode)
				assert.Equal(t, "fin", true, f.Fin)
				assert.Equal(t, "masked", masked, f.Masked)
				assert.Equal(t, "payload", string(payload), string(f.Payload))
			}
		})
	}
}

func TestLengthBoundaries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n          int
		lengthCode byte
		headerSize int
	}{
		{0, 0, 2},
		{1, 1, 2},
		{125, 125, 2},
		{126, 126, 2 + 2},
		{127, 126, 2 + 2},
		{65535, 126, 2 + 2},
		{65536, 127, 2 + 8},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(strconv.Itoa(tc.n), func(t *testing.T) {
			t.Parallel()

			tr := &Transport{}
			payload := bytes.Repeat([]byte{0xa5}, tc.n)

			b := tr.Encode(payload, OpBinary, false, true)
			assert.Equal(t, "length code", tc.lengthCode, b[1]&0x7f)
			assert.Equal(t, "encoded size", tc.headerSize+tc.n, len(b))

			f, err := tr.ReadFrame(bytes.NewReader(b))
			assert.Success(t, err)
			assert.Equal(t, "length", int64(tc.n), f.Length)
			assert.Equal(t, "payload", string(payload), string(f.Payload))
		})
	}
}

func TestMasking(t *testing.T) {
	t.Parallel()

	t.Run("keyPresence", func(t *testing.T) {
		t.Parallel()

		tr := &Transport{}
		payload := []byte("hello")

		masked := tr.Encode(payload, OpText, true, true)
		assert.Equal(t, "mask bit", byte(1<<7), masked[1]&(1<<7))
		assert.Equal(t, "masked size", 2+4+len(payload), len(masked))

		clear := tr.Encode(payload, OpText, false, true)
		assert.Equal(t, "mask bit", byte(0), clear[1]&(1<<7))
		assert.Equal(t, "clear size", 2+len(payload), len(clear))
		assert.Equal(t, "clear payload", string(payload), string(clear[2:]))
	})

	t.Run("symmetry", func(t *testing.T) {
		t.Parallel()

		key := [4]byte{0xa, 0xb, 0xc, 0xff}
		p := []byte("masking is an involution")
		orig := append([]byte(nil), p...)

		maskBytes(key, 0, p)
		maskBytes(key, 0, p)
		assert.Equal(t, "payload", string(orig), string(p))
	})

	t.Run("chunkedOffset", func(t *testing.T) {
		t.Parallel()

		key := [4]byte{1, 2, 3, 4}
		whole := []byte("0123456789abcdef0")
		chunked := append([]byte(nil), whole...)

		maskBytes(key, 0, whole)
		pos := maskBytes(key, 0, chunked[:7])
		maskBytes(key, pos, chunked[7:])
		assert.Equal(t, "chunked masking", string(whole), string(chunked))
	})
}

func TestReadFrameClose(t *testing.T) {
	t.Parallel()

	tr := &Transport{}
	b := tr.Encode(nil, OpClose, false, true)
	_, err := tr.ReadFrame(bytes.NewReader(b))
	assert.ErrorIs(t, ErrCloseReceived, err)
}

func TestReadFrameShortReads(t *testing.T) {
	t.Parallel()

	tr := &Transport{}
	payload := bytes.Repeat([]byte("chunky"), 100)
	b := tr.Encode(payload, OpBinary, true, true)

	// One byte per read exercises every partial-read path.
	f, err := tr.ReadFrame(iotest.OneByteReader(bytes.NewReader(b)))
	assert.Success(t, err)
	assert.Equal(t, "payload", string(payload), string(f.Payload))
}

func TestReadFrameTruncated(t *testing.T) {
	t.Parallel()

	tr := &Transport{}
	b := tr.Encode([]byte("truncated payload"), OpText, false, true)

	for _, n := range []int{0, 1, 2, 5, len(b) - 1} {
		_, err := tr.ReadFrame(bytes.NewReader(b[:n]))
		assert.Error(t, err)
	}
}

func TestGobwasInterop(t *testing.T) {
	t.Parallel()

	t.Run("theirsReadsOurs", func(t *testing.T) {
		t.Parallel()

		tr := &Transport{}
		payload := []byte("cross checked against gobwas")

		for _, masked := range []bool{true, false} {
			b := tr.Encode(payload, OpText, masked, true)
			f, err := ws.ReadFrame(bytes.NewReader(b))
			assert.Success(t, err)

			if f.Header.Masked {
				f = ws.UnmaskFrame(f)
			}
			assert.Equal(t, "fin", true, f.Header.Fin)
			assert.Equal(t, "opcode", ws.OpText, f.Header.OpCode)
			assert.Equal(t, "payload", string(payload), string(f.Payload))
		}
	})

	t.Run("oursReadsTheirs", func(t *testing.T) {
		t.Parallel()

		payload := []byte("cross checked against gobwas")
		f := ws.MaskFrame(ws.NewFrame(ws.OpBinary, true, payload))

		var buf bytes.Buffer
		err := ws.WriteFrame(&buf, f)
		assert.Success(t, err)

		tr := &Transport{}
		got, err := tr.ReadFrame(&buf)
		assert.Success(t, err)
		assert.Equal(t, "masked", true, got.Masked)
		assert.Equal(t, "opcode", OpBinary, got.Opcode)
		assert.Equal(t, "payload", string(payload), string(got.Payload))
	})
}
