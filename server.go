package wsloop

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/wsloop/wsloop/wswire"
)

// loopThrottle bounds how fast the loop spins when a registered tick
// callback keeps the poll timeout at zero.
const loopThrottle = 5 * time.Millisecond

// Server is a single threaded WebSocket server. Construct it with
// NewServer and drive it with Run; every callback runs on the Run
// goroutine.
type Server struct {
	cfg       Config
	ln        net.Listener
	lnFd      int
	transport *wswire.Transport
	registry  *registry
	limiter   *rate.Limiter
	lastID    ConnID

	validate   func(*Client, *Server) bool
	connect    func(*Client, *Server)
	disconnect func(*Client, *Server)
	message    func(*Client, []byte, *Server)
	tick       func(*Server) bool
}

// NewServer parses cfg.Addr, binds the listener and prepares the
// transport. An unparseable address, unknown scheme, missing host or
// port, unloadable certificate or failed bind is fatal; there are no
// retries.
func NewServer(cfg Config) (*Server, error) {
	u, err := url.Parse(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid bind address %q: %w", cfg.Addr, err)
	}

	var secure bool
	switch u.Scheme {
	case "ws", "tcp":
	case "wss", "tls":
		secure = true
	default:
		return nil, fmt.Errorf("invalid bind address %q: scheme must be ws, tcp, wss or tls", cfg.Addr)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return nil, fmt.Errorf("invalid bind address %q: host and port are required", cfg.Addr)
	}

	tcpLn, err := net.Listen("tcp", net.JoinHostPort(u.Hostname(), u.Port()))
	if err != nil {
		return nil, fmt.Errorf("failed to bind %q: %w", cfg.Addr, err)
	}
	fd, err := listenerFd(tcpLn)
	if err != nil {
		tcpLn.Close()
		return nil, err
	}

	ln := tcpLn
	if secure {
		tlsCfg, err := loadTLSConfig(cfg.CertFile, cfg.Passphrase)
		if err != nil {
			tcpLn.Close()
			return nil, err
		}
		ln = tls.NewListener(tcpLn, tlsCfg)
	}

	if cfg.FragmentSize <= 0 {
		cfg.FragmentSize = wswire.DefaultFragmentSize
	}

	return &Server{
		cfg:       cfg,
		ln:        ln,
		lnFd:      fd,
		transport: &wswire.Transport{FragmentSize: cfg.FragmentSize},
		registry:  newRegistry(),
		limiter:   rate.NewLimiter(rate.Every(loopThrottle), 1),
	}, nil
}

// OnValidate registers the handshake validation hook, invoked with
// the prospective client before the upgrade response is written. A
// false return rejects the handshake with a 400.
//
// Each On hook holds a single callback; registering again replaces
// the previous one.
func (s *Server) OnValidate(fn func(*Client, *Server) bool) { s.validate = fn }

// OnConnect registers the hook fired after a successful handshake.
func (s *Server) OnConnect(fn func(*Client, *Server)) { s.connect = fn }

// OnDisconnect registers the hook fired when a connection drops. The
// descriptor passed is the one that was registered immediately before
// removal.
func (s *Server) OnDisconnect(fn func(*Client, *Server)) { s.disconnect = fn }

// OnMessage registers the hook fired once per received message.
func (s *Server) OnMessage(fn func(*Client, []byte, *Server)) { s.message = fn }

// OnTick registers the periodic hook. It fires at the top of every
// loop iteration, before the poll; returning false shuts the loop
// down gracefully. While a tick is registered the poll does not
// block, so the tick fires at the loop's natural cadence.
func (s *Server) OnTick(fn func(*Server) bool) { s.tick = fn }

// Clients returns a snapshot of the currently connected clients.
func (s *Server) Clients() []*Client { return s.registry.list() }

// Get looks up a connected client by id.
func (s *Server) Get(id ConnID) (*Client, bool) { return s.registry.get(id) }

// Listener returns the raw listening socket.
func (s *Server) Listener() net.Listener { return s.ln }

// Addr returns the configured bind address.
func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) nextID() ConnID {
	s.lastID++
	return s.lastID
}

// Run drives the event loop until the tick callback returns false or
// ctx is cancelled between iterations. Tick-false is the only in-band
// shutdown signal; ctx is the external one, and a blocking poll (no
// tick registered) is only interrupted by traffic. All remaining
// connections and the listener are closed when Run returns.
//
// Each iteration: tick, poll the listener plus every registered
// client for readability, accept and upgrade or read in the order the
// poll reported readiness, then fire the message callback once per
// buffered message in that same order.
func (s *Server) Run(ctx context.Context) error {
	defer s.close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if s.tick != nil && !s.tick(s) {
			return nil
		}

		timeout := -1
		if s.tick != nil {
			timeout = 0
		}

		fds, clients := s.pollSet()
		n, err := pollReady(fds, timeout)
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}

		if n > 0 {
			for _, m := range s.scanReady(fds, clients) {
				if s.message != nil {
					s.message(m.client, m.payload, s)
				}
			}
		}

		s.limiter.Wait(ctx)
	}
}

// pollSet builds the readiness set: the listener first, then every
// registered client in registration order.
func (s *Server) pollSet() ([]unix.PollFd, []*Client) {
	clients := s.registry.list()
	fds := make([]unix.PollFd, 0, len(clients)+1)
	fds = append(fds, unix.PollFd{Fd: int32(s.lnFd), Events: unix.POLLIN})
	for _, c := range clients {
		fds = append(fds, unix.PollFd{Fd: int32(c.fd), Events: unix.POLLIN})
	}
	return fds, clients
}

type inbound struct {
	client  *Client
	payload []byte
}

// scanReady services every readable handle in the order the poll
// reported them. Received messages are buffered and returned rather
// than dispatched so the whole ready set is scanned before any
// application code runs.
func (s *Server) scanReady(fds []unix.PollFd, clients []*Client) []inbound {
	const readyMask = unix.POLLIN | unix.POLLHUP | unix.POLLERR

	if fds[0].Revents&readyMask != 0 {
		s.acceptOne()
	}

	var pending []inbound
	for i, c := range clients {
		if fds[i+1].Revents&readyMask == 0 {
			continue
		}
		payload, err := s.transport.Receive(c.conn)
		if err != nil {
			s.drop(c)
			continue
		}
		pending = append(pending, inbound{client: c, payload: payload})
	}
	return pending
}

// acceptOne takes one pending connection off the listener and runs
// the handshake. A failed handshake discards the socket; nothing is
// registered and no callback fires.
func (s *Server) acceptOne() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	cl, err := s.upgrade(conn)
	if err != nil {
		conn.Close()
		return
	}
	if s.connect != nil {
		s.connect(cl, s)
	}
}

// drop removes c from the registry, closes its socket and fires the
// disconnect callback with the descriptor captured before removal.
func (s *Server) drop(c *Client) {
	s.registry.remove(c.ID)
	c.conn.Close()
	if s.disconnect != nil {
		s.disconnect(c, s)
	}
}

func (s *Server) close() {
	for _, c := range s.registry.list() {
		c.conn.Close()
	}
	s.ln.Close()
}
