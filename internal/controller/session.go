package controller

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"

	"kairoi/internal/controller/kcp"
)

// session owns one client connection and enforces strict request/response
// alternation (§6.1): read exactly one line, write exactly one response,
// repeat until the client disconnects or the server is shutting down.
type session struct {
	conn     net.Conn
	dispatch Dispatcher
	logger   *slog.Logger
}

func newSession(conn net.Conn, dispatch Dispatcher, logger *slog.Logger) *session {
	return &session{conn: conn, dispatch: dispatch, logger: logger}
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	// Closing the connection on shutdown unblocks a read that is waiting
	// for the client's next line.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	reader := bufio.NewReader(s.conn)

	for {
		if ctx.Err() != nil {
			return
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("connection read error", "error", err)
			}

			return
		}

		response := s.handle(ctx, strings.TrimRight(line, "\n"))
		if _, err := s.conn.Write([]byte(response)); err != nil {
			s.logger.Debug("connection write error", "error", err)
			return
		}
	}
}

func (s *session) handle(ctx context.Context, line string) string {
	inst, reason, err := kcp.Parse(line)
	if err != nil {
		return kcp.Error(reason)
	}

	if reason, err := s.dispatch(ctx, inst); err != nil {
		return kcp.Error(reason)
	}

	return kcp.OK()
}
