// Command wsloopd runs a broadcast echo server: every message a
// client sends is forwarded to all connected clients, the sender
// included.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/wsloop/wsloop"
)

func main() {
	log.SetFlags(0)

	err := run()
	if err != nil {
		log.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	addr := flag.String("addr", "ws://localhost:8080", "bind address, overridden by the config file")
	flag.Parse()

	cfg := wsloop.Config{Addr: *addr}
	if *configPath != "" {
		loaded, err := wsloop.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	srv, err := wsloop.NewServer(cfg)
	if err != nil {
		return err
	}
	log.Printf("listening on %v", srv.Listener().Addr())

	srv.OnConnect(func(c *wsloop.Client, s *wsloop.Server) {
		log.Printf("client %v connected on %v (%v total)", c.ID, c.Resource, len(s.Clients()))
	})
	srv.OnDisconnect(func(c *wsloop.Client, s *wsloop.Server) {
		log.Printf("client %v disconnected (%v total)", c.ID, len(s.Clients()))
	})
	srv.OnMessage(func(c *wsloop.Client, msg []byte, s *wsloop.Server) {
		for _, peer := range s.Clients() {
			if err := peer.Send(msg); err != nil {
				log.Printf("send to client %v: %v", peer.ID, err)
			}
		}
	})

	return srv.Run(context.Background())
}
