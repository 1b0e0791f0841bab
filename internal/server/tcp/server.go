// Package tcp serves the line protocol over TCP: one goroutine per
// connection, each reading request lines, rate limited, and answering with
// the handler's response.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/logging"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
	"github.com/dmitrijs2005/realmchat/internal/server/metrics"
)

// Handler answers one request line.
type Handler interface {
	Process(ctx context.Context, line string) protocol.Response
}

type Config struct {
	Address       string
	MaxFrameBytes int
	RateLimit     float64 // requests per second per connection, 0 disables
	RateBurst     int
}

type Server struct {
	cfg     Config
	handler Handler
	logger  logging.Logger
	metrics metrics.Recorder

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(cfg Config, h Handler, l logging.Logger, rec metrics.Recorder) *Server {
	return &Server{
		cfg:     cfg,
		handler: h,
		logger:  l.With("module", "tcp_server"),
		metrics: rec,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then closes every open
// connection and waits for their workers.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping chat server...")
		_ = ln.Close()
		s.closeConns()
	}()

	s.logger.Info(ctx, "Starting chat server", "address", ln.Addr().String())

	var err error
	for {
		var conn net.Conn
		conn, err = ln.Accept()
		if err != nil {
			break
		}
		if !s.track(conn) {
			_ = conn.Close()
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.serveConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	remote := conn.RemoteAddr().String()
	s.logger.Debug(ctx, "connection opened", "remote", remote)
	defer s.logger.Debug(ctx, "connection closed", "remote", remote)

	var limiter *rate.Limiter
	if s.cfg.RateLimit > 0 {
		burst := s.cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	}

	r := bufio.NewReader(conn)
	for {
		line, err := protocol.ReadFrame(r, s.cfg.MaxFrameBytes)
		if err != nil {
			if errors.Is(err, common.ErrFrameTooLarge) {
				s.logger.Warn(ctx, "frame too large, closing connection", "remote", remote)
				_ = protocol.WriteResponse(conn, protocol.Error(common.PublicMessage(err)))
			} else if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug(ctx, "read failed", "remote", remote, "error", err)
			}
			return
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		resp := s.handler.Process(ctx, line)
		if err := protocol.WriteResponse(conn, resp); err != nil {
			s.logger.Debug(ctx, "write failed", "remote", remote, "error", err)
			return
		}
	}
}

// track registers conn unless the server is shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	if s.conns != nil {
		delete(s.conns, conn)
	}
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}
