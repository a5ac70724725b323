// Package server exposes the hook routes together with metrics and health endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	metricsPath = "/metrics"
	healthzPath = "/healthz"
	readyzPath  = "/readyz"

	defaultShutdownTimeout = 30 * time.Second
)

// Options configures the listener.
type Options struct {
	// BindAddress is the TCP address to listen on, e.g. ":8080".
	BindAddress string
	// ShutdownTimeout bounds how long in-flight hook calls may take to finish.
	ShutdownTimeout time.Duration
}

// Server serves the hook routes, /metrics, /healthz and /readyz.
type Server struct {
	opts    Options
	handler http.Handler
	ready   atomic.Bool
	addr    atomic.Value
}

// New mounts hooks at each of paths. Paths are expected to be validated already.
func New(opts Options, hooks http.Handler, paths []string) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	s := &Server{opts: opts}

	mux := http.NewServeMux()
	for _, path := range paths {
		mux.Handle(path, hooks)
	}
	mux.Handle(metricsPath, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	liveness := &healthz.Handler{Checks: map[string]healthz.Checker{"ping": healthz.Ping}}
	readiness := &healthz.Handler{Checks: map[string]healthz.Checker{"serving": s.servingCheck}}
	mountHealth(mux, healthzPath, liveness)
	mountHealth(mux, readyzPath, readiness)

	s.handler = mux
	return s
}

func mountHealth(mux *http.ServeMux, path string, h http.Handler) {
	mux.Handle(path, http.StripPrefix(path, h))
	mux.Handle(path+"/", http.StripPrefix(path, h))
}

func (s *Server) servingCheck(_ *http.Request) error {
	if !s.ready.Load() {
		return errors.New("not serving")
	}
	return nil
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound listener address once Start is listening, or "".
func (s *Server) Addr() string {
	addr, _ := s.addr.Load().(string)
	return addr
}

// Start serves until ctx is done, then drains in-flight requests within the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	logger := log.FromContext(ctx).WithName("server")

	listener, err := net.Listen("tcp", s.opts.BindAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.BindAddress, err)
	}
	s.addr.Store(listener.Addr().String())

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving sync hooks", "address", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()
	s.ready.Store(true)

	select {
	case err := <-errCh:
		s.ready.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.ready.Store(false)
	logger.Info("Shutting down", "timeout", s.opts.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Stopped")
	return nil
}
