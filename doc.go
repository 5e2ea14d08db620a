// Package wsloop implements a single threaded WebSocket server driven
// by a readiness polling event loop.
//
// The server owns every socket it accepts: the RFC 6455 upgrade
// handshake, message framing and the dispatch of connect, disconnect,
// message and tick callbacks all run on the goroutine that called
// Run. There are no per-connection goroutines and no locks; none of
// the Server methods are safe for use from other goroutines while
// Run is active.
//
// The frame codec lives in the wswire subpackage so a dialing client
// can share it. JSON and protobuf message helpers live in wsjson and
// wspb.
//
// The package requires a Unix-like platform for poll(2).
package wsloop // import "github.com/wsloop/wsloop"
