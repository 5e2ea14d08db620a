package wswire

import (
	"net"
	"testing"
	"time"

	"github.com/wsloop/wsloop/internal/assert"
)

func TestWriteRaw(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		WriteRaw(server, []byte("GET / HTTP/1.1\r\n\r\n"))
	}()

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	assert.Success(t, err)
	assert.Equal(t, "written bytes", "GET / HTTP/1.1\r\n\r\n", string(buf[:n]))
}

func TestReadRaw(t *testing.T) {
	t.Parallel()

	t.Run("singleWrite", func(t *testing.T) {
		t.Parallel()

		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		go client.Write([]byte("GET /chat HTTP/1.1\r\nHost: x\r\n\r\n"))

		b, err := ReadRaw(server)
		assert.Success(t, err)
		assert.Equal(t, "request", "GET /chat HTTP/1.1\r\nHost: x\r\n\r\n", string(b))
	})

	t.Run("oneByteGuard", func(t *testing.T) {
		t.Parallel()

		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		go func() {
			client.Write([]byte("G"))
			client.Write([]byte("ET / HTTP/1.1\r\n\r\n"))
		}()

		b, err := ReadRaw(server)
		assert.Success(t, err)
		assert.Equal(t, "request", "GET / HTTP/1.1\r\n\r\n", string(b))
	})

	t.Run("drainsBufferedChunks", func(t *testing.T) {
		t.Parallel()

		client, server := net.Pipe()
		defer client.Close()
		defer server.Close()

		go func() {
			client.Write([]byte("GET / HTTP/1.1\r\n"))
			client.Write([]byte("Host: example.com\r\n\r\n"))
		}()

		b, err := ReadRaw(server)
		assert.Success(t, err)
		assert.Equal(t, "request", "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n", string(b))
	})

	t.Run("endOfStream", func(t *testing.T) {
		t.Parallel()

		client, server := net.Pipe()
		defer server.Close()

		go func() {
			client.Write([]byte("abc"))
			client.Close()
		}()

		b, err := ReadRaw(server)
		assert.Success(t, err)
		assert.Equal(t, "bytes before close", "abc", string(b))
	})

	t.Run("closedBeforeData", func(t *testing.T) {
		t.Parallel()

		client, server := net.Pipe()
		defer server.Close()
		client.Close()

		_, err := ReadRaw(server)
		assert.Error(t, err)
	})
}

func TestReadRawClearsDeadline(t *testing.T) {
	t.Parallel()

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go client.Write([]byte("first"))
	_, err := ReadRaw(server)
	assert.Success(t, err)

	// A read well after the drain deadline must still succeed.
	go func() {
		time.Sleep(20 * time.Millisecond)
		client.Write([]byte("second"))
	}()
	buf := make([]byte, 16)
	n, err := server.Read(buf)
	assert.Success(t, err)
	assert.Equal(t, "later read", "second", string(buf[:n]))
}
