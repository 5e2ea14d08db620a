package wsloop

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/wsloop/wsloop/internal/errd"
	"github.com/wsloop/wsloop/wswire"
)

// keyGUID is the magic value Sec-WebSocket-Accept is derived from.
// See https://tools.ietf.org/html/rfc6455#section-1.3.
var keyGUID = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

// secWebSocketAccept computes the accept token for a handshake key.
func secWebSocketAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write(keyGUID)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// rejectError aborts a handshake with an HTTP error response.
type rejectError struct {
	status int
	reason string
}

func (e *rejectError) Error() string {
	return fmt.Sprintf("handshake rejected: %v %v", e.status, e.reason)
}

// upgrade drives the one-time HTTP upgrade exchange on a freshly
// accepted connection. On success the client is registered before
// returning. On failure an error response has been written when the
// request got far enough to deserve one, and the caller discards the
// socket; nothing is registered and no callback fires.
func (s *Server) upgrade(conn net.Conn) (_ *Client, err error) {
	defer errd.Wrap(&err, "failed to upgrade connection")

	cl, err := s.negotiate(conn)
	if err != nil {
		var re *rejectError
		if errors.As(err, &re) {
			resp := fmt.Sprintf("HTTP/1.1 %v %v\r\n\r\n", re.status, re.reason)
			wswire.WriteRaw(conn, []byte(resp))
		}
		return nil, err
	}

	var b strings.Builder
	b.WriteString("HTTP/1.1 101 WebSocket Protocol Handshake\r\n")
	b.WriteString("Upgrade: WebSocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Version: 13\r\n")
	b.WriteString("Sec-WebSocket-Location: " + s.cfg.Addr + "\r\n")
	b.WriteString("Sec-WebSocket-Accept: " + secWebSocketAccept(cl.Headers["sec-websocket-key"]) + "\r\n")
	if origin := cl.Headers["origin"]; origin != "" {
		b.WriteString("Sec-WebSocket-Origin: " + origin + "\r\n")
	}
	b.WriteString("\r\n")

	if err := wswire.WriteRaw(conn, []byte(b.String())); err != nil {
		return nil, err
	}

	s.registry.add(cl)
	return cl, nil
}

// negotiate reads and validates the upgrade request, returning an
// unregistered client descriptor. Validation failures carry the HTTP
// status the peer should see as a rejectError.
func (s *Server) negotiate(conn net.Conn) (*Client, error) {
	raw, err := wswire.ReadRaw(conn)
	if err != nil {
		return nil, err
	}
	lines := splitHeaderLines(raw)
	if len(lines) == 0 {
		return nil, errors.New("empty handshake request")
	}

	method, resource := parseRequestLine(lines[0])
	if !strings.EqualFold(method, "GET") {
		return nil, &rejectError{status: 405, reason: "Method Not Allowed"}
	}

	headers := parseHeaders(lines[1:])
	switch {
	case headers["sec-websocket-key"] == "",
		!strings.EqualFold(headers["upgrade"], "websocket"),
		// Substring match so comma separated lists like
		// "keep-alive, Upgrade" pass.
		!strings.Contains(strings.ToLower(headers["connection"]), "upgrade"):
		return nil, &rejectError{status: 400, reason: "Bad Request"}
	}

	fd, err := connFd(conn)
	if err != nil {
		return nil, err
	}

	cl := &Client{
		ID:        s.nextID(),
		Headers:   headers,
		Resource:  resource,
		Cookies:   parseCookies(headers["cookie"]),
		conn:      conn,
		fd:        fd,
		transport: s.transport,
	}

	if s.validate != nil && !s.validate(cl, s) {
		return nil, &rejectError{status: 400, reason: "Bad Request"}
	}
	return cl, nil
}

// splitHeaderLines normalizes line endings, cuts the request off at
// the blank line ending the header block and unfolds continuation
// lines onto their predecessor.
func splitHeaderLines(raw []byte) []string {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln == "" {
			break
		}
		if len(lines) > 0 && (ln[0] == ' ' || ln[0] == '\t') {
			lines[len(lines)-1] += " " + strings.TrimSpace(ln)
			continue
		}
		lines = append(lines, ln)
	}
	return lines
}

func parseRequestLine(line string) (method, resource string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ""
	}
	method = fields[0]
	resource = "/"
	if len(fields) > 1 {
		resource = fields[1]
	}
	return method, resource
}

// parseHeaders splits "name: value" lines on the first colon into a
// mapping with lower-cased names. Lines without a colon are dropped.
func parseHeaders(lines []string) map[string]string {
	headers := make(map[string]string, len(lines))
	for _, ln := range lines {
		name, value, ok := strings.Cut(ln, ":")
		if !ok {
			continue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}
	return headers
}

// parseCookies splits a cookie header on ";" and each entry on the
// first "=". Entries without an "=" are dropped.
func parseCookies(header string) map[string]string {
	cookies := make(map[string]string)
	if header == "" {
		return cookies
	}
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return cookies
}
