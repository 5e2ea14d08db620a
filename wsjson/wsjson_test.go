package wsjson_test

import (
	"errors"
	"testing"

	"github.com/wsloop/wsloop"
	"github.com/wsloop/wsloop/internal/assert"
	"github.com/wsloop/wsloop/wsjson"
)

var _ wsjson.Conn = (*wsloop.Client)(nil)

type captureConn struct {
	sent [][]byte
	err  error
}

func (c *captureConn) Send(b []byte) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, b)
	return nil
}

type chatMessage struct {
	From string `json:"from"`
	Body string `json:"body"`
}

func TestSend(t *testing.T) {
	t.Parallel()

	conn := &captureConn{}
	err := wsjson.Send(conn, chatMessage{From: "ada", Body: "hi"})
	assert.Success(t, err)
	assert.Equal(t, "messages sent", 1, len(conn.sent))
	assert.Equal(t, "wire form", `{"from":"ada","body":"hi"}`, string(conn.sent[0]))
}

func TestSendWriteFailure(t *testing.T) {
	t.Parallel()

	conn := &captureConn{err: errors.New("connection reset")}
	err := wsjson.Send(conn, chatMessage{})
	assert.Error(t, err)
	assert.Contains(t, err, "connection reset")
}

func TestSendMarshalFailure(t *testing.T) {
	t.Parallel()

	err := wsjson.Send(&captureConn{}, func() {})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	conn := &captureConn{}
	exp := chatMessage{From: "grace", Body: "compilers"}
	assert.Success(t, wsjson.Send(conn, exp))

	var got chatMessage
	assert.Success(t, wsjson.Decode(conn.sent[0], &got))
	assert.Equal(t, "message", exp, got)
}

func TestDecodeInvalid(t *testing.T) {
	t.Parallel()

	var v chatMessage
	err := wsjson.Decode([]byte(`{"from":`), &v)
	assert.Error(t, err)
}
