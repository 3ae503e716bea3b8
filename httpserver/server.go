package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/krisalay/sharecache/log"
)

// DefaultMaxUploadMemory bounds the multipart bytes kept in memory per request.
const DefaultMaxUploadMemory = 32 << 20

// Server owns the gin engine and the listening http.Server.
type Server struct {
	engine *gin.Engine
	srv    *http.Server

	// cancels every request context, which ends open event streams
	cancel context.CancelFunc
}

func NewServer(address string, h *Handlers) *Server {
	engine := gin.New()
	engine.MaxMultipartMemory = DefaultMaxUploadMemory
	engine.Use(gin.Recovery(), accessLog())
	h.RegisterRoutesTo(engine)

	base, cancel := context.WithCancel(context.Background())
	return &Server{
		engine: engine,
		srv: &http.Server{
			Addr:              address,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return base },
		},
		cancel: cancel,
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called. A clean stop returns nil.
func (s *Server) Start() error {
	log.Info("http server listening", zap.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Stop ends open event streams and waits for the other in-flight requests until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	return s.srv.Shutdown(ctx)
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
