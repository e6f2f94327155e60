package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "metrics")

// Server serves a Registry's gatherer at /metrics and a trivial
// liveness probe at /healthz.
type Server struct {
	server *http.Server
}

// NewServer constructs a Server bound to addr (e.g. ":8000").
func NewServer(addr string, reg *Registry) *Server {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &Server{server: &http.Server{Addr: addr, Handler: router}}
}

// Start begins serving in the background. It never blocks; an
// already-bound port is detected up front and logged.
func (s *Server) Start() {
	go func() {
		addrParts := strings.Split(s.server.Addr, ":")
		if len(addrParts) == 2 {
			conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%s", addrParts[1]), time.Second)
			if err == nil {
				conn.Close()
				log.WithField("address", s.server.Addr).Warn("port already in use; cannot start metrics server")
				return
			}
		}
		log.WithField("address", s.server.Addr).Info("starting metrics server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server stopped unexpectedly")
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
