// server.go: REST access adaptor for the Arbor configuration tree
//
// Tree paths map onto URLs with "/" in place of ".":
//
//	GET    /tree/                          export the whole tree
//	GET    /tree/config/running/port       read a leaf or subtree
//	PUT    /tree/config/running/port       {"value": 8080}
//	POST   /tree/config/running/sessions/a {"value": {...}}
//	DELETE /tree/config/running/sessions/a
//
// Lifecycle operations live under /snapshots and /staged.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package rest

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/agilira/arbor"
	"github.com/agilira/go-errors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scheme is the URL scheme handled by this package.
const Scheme = "http"

// Register adds the "http" scheme to registry.
func Register(registry *arbor.AccessRegistry) error {
	return registry.Register(Scheme, func(m *arbor.Manager, location string) (arbor.AccessAdaptor, error) {
		return New(m, location), nil
	})
}

// Server serves a Manager over HTTP.
type Server struct {
	manager *arbor.Manager
	addr    string
	router  *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a server for m listening on addr ("host:port").
func New(m *arbor.Manager, addr string) *Server {
	s := &Server{manager: m, addr: addr}
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.RegisterRoutes(s.router)
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// RegisterRoutes installs the API on router.
func (s *Server) RegisterRoutes(router gin.IRouter) {
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/tree/*path", s.handleRead)
	router.PUT("/tree/*path", s.handleWrite)
	router.POST("/tree/*path", s.handleCreate)
	router.DELETE("/tree/*path", s.handleRemove)

	router.GET("/snapshots", s.handleListSaved)
	router.POST("/snapshots", s.handleSaveRunning)
	router.POST("/snapshots/restore", s.handleRestoreRunning)
	router.POST("/snapshots/archive", s.handleArchive)

	router.POST("/staged/save", s.handleSaveStaged)
	router.POST("/staged/restore", s.handleRestoreStaged)
	router.POST("/staged/deploy", s.handleDeployStaged)
	router.POST("/staged/from", s.handleSaveToStaged)
}

// Start begins listening and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New(arbor.ErrCodeInvalidConfig, "server already started").
			WithContext("addr", s.addr)
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, arbor.ErrCodeInvalidConfig, "failed to listen").
			WithContext("addr", s.addr)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server := s.server
	go func() {
		_ = server.Serve(listener)
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// treePath converts "/config/running/port" to "config.running.port".
func treePath(c *gin.Context) string {
	raw := strings.Trim(c.Param("path"), "/")
	return strings.ReplaceAll(raw, "/", arbor.PathSeparator)
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	switch arbor.ErrorCode(err) {
	case arbor.ErrCodeLookupFailed, arbor.ErrCodeNoSuchChild:
		return http.StatusNotFound
	case arbor.ErrCodeReadDenied, arbor.ErrCodeWriteDenied:
		return http.StatusForbidden
	case arbor.ErrCodeDuplicateName:
		return http.StatusConflict
	case arbor.ErrCodeInvalidValue, arbor.ErrCodeNotContainer:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{
		"error": err.Error(),
		"code":  arbor.ErrorCode(err),
	})
}
