package infra

import (
	"context"
	"net/http"
	"time"
)

// maxHeaderBytes keeps request headers small; the API only reads a handful.
const maxHeaderBytes = 32 << 10

// HTTPServer wraps http.Server with the API's timeouts.
type HTTPServer struct {
	server *http.Server
}

func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	headerTimeout := 5 * time.Second
	if cfg.HTTPReadTimeout > 0 {
		headerTimeout = min(headerTimeout, cfg.HTTPReadTimeout)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: headerTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	return &HTTPServer{server: srv}
}

// Addr is the listen address.
func (s *HTTPServer) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start blocks serving requests until Shutdown.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
// Generation runs are not requests; the caller stops them separately.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
