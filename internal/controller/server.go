// Package controller implements the Controller Front: the TCP listener and
// per-connection KCP session loop that sits in front of the Database
// Engine. Grounded on the teacher's internal/controller/server.go Run/
// Shutdown shape, adapted from net/http to a raw net.Listener since KCP is
// not HTTP.
package controller

import (
	"context"
	"log/slog"
	"net"
	"sync"
)

// Config configures one Server instance.
type Config struct {
	Addr   string
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":7500"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server accepts TCP connections and runs one Session per connection.
type Server struct {
	cfg      Config
	dispatch Dispatcher

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// New constructs a Server. dispatch is called once per parsed instruction.
func New(cfg Config, dispatch Dispatcher) *Server {
	cfg.setDefaults()

	return &Server{cfg: cfg, dispatch: dispatch}
}

// Run binds the listener and accepts connections until ctx is cancelled.
// It returns a bind error immediately (§6.4 exit code 4), or nil once every
// in-flight session has returned after a cancellation.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	s.cfg.Logger.Info("controller listening", "addr", s.cfg.Addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.wg.Wait()
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			session := newSession(conn, s.dispatch, s.cfg.Logger)
			session.run(ctx)
		}()
	}
}
