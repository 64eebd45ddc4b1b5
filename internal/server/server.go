package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/client"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/handlers"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/pkg/resp"
)

type ServerConfig struct {
	MaxConnections int
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	CommandTimeout time.Duration
}

// Server speaks RESP on a TCP listener and dispatches FT.SUG* commands to
// the registry.
type Server struct {
	config   ServerConfig
	executor *CommandExecutor
	clients  *client.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	shutdown chan struct{}
	wg       sync.WaitGroup
}

func NewServer(registry *handlers.Registry, clients *client.Manager, m *metrics.Metrics, logger *slog.Logger, config ServerConfig) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if clients == nil {
		clients = client.NewManager()
	}
	return &Server{
		config:   config,
		executor: NewCommandExecutor(registry, m, logger, config.CommandTimeout),
		clients:  clients,
		metrics:  m,
		logger:   logger.With("component", "resp"),
		shutdown: make(chan struct{}),
	}
}

// Start listens on address and serves until Shutdown.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Shutdown. It returns nil after
// a clean shutdown, including when Shutdown ran first.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	select {
	case <-s.shutdown:
		s.mu.Unlock()
		listener.Close()
		return nil
	default:
	}
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("server listening", "addr", listener.Addr().String())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		if s.config.MaxConnections > 0 && s.clients.Len() >= s.config.MaxConnections {
			s.logger.Warn("connection limit reached", "remote", conn.RemoteAddr().String())
			w := resp.NewWriter(conn)
			_ = w.Write(models.Value{Type: "error", Str: "ERR max number of clients reached"})
			_ = w.Flush()
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	c := s.clients.AddClient(conn.RemoteAddr().String(), "resp", conn)
	defer s.clients.RemoveClient(c.ID)
	s.metrics.ConnectionOpened("resp")
	defer s.metrics.ConnectionClosed("resp")

	reader := resp.NewReader(conn)
	writer := resp.NewWriter(conn)

	for {
		if s.config.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))
		}
		value, err := reader.Read()
		if err != nil {
			return
		}
		if value.Type != "array" || len(value.Array) == 0 {
			continue
		}

		c.Touch()
		result := s.executor.Execute(context.Background(), value)

		if s.config.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if err := writer.Write(result); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

// Shutdown stops accepting connections, closes open ones and waits for
// their handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	s.clients.CloseAllClients()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
