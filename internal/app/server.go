// Package app assembles the suggestion server from its configuration: the
// store backend, the field-session engine, and the HTTP and RESP listeners.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/alias"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/cache"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/client"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/config"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/handlers"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/natskv"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/server"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/storage"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/suggest"
)

type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   ports.SuggestionAdmin
	closers []func() error
	clients *client.Manager
	engine  *suggest.Engine
	fields  *server.FieldsHandler
	http    *server.HTTPServer
	resp    *server.Server

	mu       sync.Mutex
	httpAddr net.Addr
	respAddr net.Addr
	ready    chan struct{}
}

// NewServer opens the configured store and builds every component. Nothing
// listens until Run.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		clients: client.NewManager(),
		ready:   make(chan struct{}),
	}

	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewMetrics()
		if err := m.Register(reg); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		gatherer = reg
	}

	if err := s.openStore(ctx); err != nil {
		return nil, err
	}

	resolver := alias.NewResolver(cfg.AliasTable())
	s.engine = suggest.NewEngine(s.store, resolver, cfg.SuggestConfig(),
		suggest.WithLogger(logger.With("component", "suggest")),
		suggest.WithMetrics(m))

	apiOpts := []handlers.HTTPOption{
		handlers.WithClients(s.clients),
		handlers.WithMetrics(m),
		handlers.WithLogger(logger.With("component", "api")),
	}
	if rl := cfg.Limits.SaveRate; rl.Enabled {
		apiOpts = append(apiOpts, handlers.WithSaveLimit(rl.RequestsPerSecond, rl.Burst))
	}
	api := handlers.NewHTTPHandlers(s.store, resolver, apiOpts...)
	s.fields = server.NewFieldsHandler(s.engine, s.clients, m, logger)

	s.http = server.NewHTTPServer(server.HTTPConfig{
		Addr:         cfg.Server.HTTP.Addr,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
		MetricsPath:  cfg.Metrics.Path,
	}, api, s.fields, gatherer, logger)

	if cfg.Server.RESP.Enabled {
		registry := handlers.NewRegistry(s.store, resolver, handlers.WithClientManager(s.clients))
		s.resp = server.NewServer(registry, s.clients, m, logger, server.ServerConfig{
			MaxConnections: cfg.Server.RESP.MaxConnections,
			WriteTimeout:   cfg.Server.RESP.WriteTimeout,
			IdleTimeout:    cfg.Server.RESP.IdleTimeout,
			CommandTimeout: cfg.Server.RESP.CommandTimeout,
		})
	}

	return s, nil
}

func (s *Server) openStore(ctx context.Context) error {
	cfg := s.cfg
	switch cfg.Store.Type {
	case config.StoreNATS:
		st, err := natskv.Dial(ctx, natskv.Config{
			URL:     cfg.Store.NATS.URL,
			Bucket:  cfg.Store.NATS.Bucket,
			Timeout: cfg.Store.NATS.Timeout,
		},
			natskv.WithRetry(cfg.RetryStrategy()),
			natskv.WithLogger(s.logger.With("component", "natskv")),
			natskv.WithFetchLimit(cfg.Store.FetchLimit))
		if err != nil {
			return err
		}
		s.store = st
		s.closers = append(s.closers, st.Close)
		s.logger.Info("using nats store", "url", cfg.Store.NATS.URL, "bucket", cfg.Store.NATS.Bucket)

	case config.StoreHTTP:
		s.store = client.NewHTTPStore(cfg.Store.HTTP.URL,
			client.WithHTTPClient(&http.Client{Timeout: cfg.Store.HTTP.Timeout}))
		s.logger.Info("using remote store", "url", cfg.Store.HTTP.URL)

	default:
		opts := []cache.StoreOption{cache.WithFetchLimit(cfg.Store.FetchLimit)}
		var journal *storage.AOF
		if cfg.Storage.Type == config.StorageAOF {
			if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
				return fmt.Errorf("create journal directory: %w", err)
			}
			aof, err := storage.NewAOF(cfg.Storage.Path, cfg.Storage.SyncInterval)
			if err != nil {
				return err
			}
			journal = aof
			opts = append(opts, cache.WithJournal(aof))
			s.closers = append(s.closers, aof.Close)
		}

		ms := cache.NewMemoryStore(opts...)
		if journal != nil {
			n, err := ms.Restore(journal)
			if err != nil {
				s.Close()
				return fmt.Errorf("replay journal %s: %w", journal.Path(), err)
			}
			s.logger.Info("journal replayed", "path", journal.Path(), "entries", n)
		}
		s.store = ms
	}
	return nil
}

// Ready is closed once the listeners are bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) HTTPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpAddr
}

// RESPAddr is nil when the RESP listener is disabled.
func (s *Server) RESPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.respAddr
}

// Run serves until ctx is cancelled or a listener fails, then shuts both
// listeners down and closes every open connection.
func (s *Server) Run(ctx context.Context) error {
	httpL, err := net.Listen("tcp", s.cfg.Server.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	var respL net.Listener
	if s.resp != nil {
		respL, err = net.Listen("tcp", s.cfg.Server.RESP.Addr)
		if err != nil {
			httpL.Close()
			return fmt.Errorf("listen resp: %w", err)
		}
	}

	s.mu.Lock()
	s.httpAddr = httpL.Addr()
	if respL != nil {
		s.respAddr = respL.Addr()
	}
	s.mu.Unlock()
	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.http.Serve(httpL)
	})
	if respL != nil {
		g.Go(func() error {
			return s.resp.Serve(respL)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if s.resp != nil {
			if err := s.resp.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("resp shutdown: %w", err))
			}
		}
		// hijacked websockets are not covered by http.Server.Shutdown
		s.clients.CloseAllClients()
		s.fields.CloseAll()
		if err := s.engine.Drain(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("drain saves: %w", err))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close releases the store. Call it after Run has returned.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
