package prometheus

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "prometheus")

// HealthCheckFunc reports why the engine is unhealthy, or nil if it is fine.
type HealthCheckFunc func() error

// Service serves /metrics (everything registered on the default
// registerer, which is where metrics.* registers via promauto),
// /healthz, and /goroutinez on a single port.
type Service struct {
	server      *http.Server
	healthCheck HealthCheckFunc
	failStatus  error
}

// NewService sets up a new instance serving on addr (e.g. ":8080").
func NewService(addr string, healthCheck HealthCheckFunc) *Service {
	s := &Service{healthCheck: healthCheck}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Service) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	var err error
	if s.healthCheck != nil {
		err = s.healthCheck()
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.WithError(err).Warn("engine reported unhealthy")
		fmt.Fprintf(w, "ERROR %v\n", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK\n")
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	stack := debug.Stack()
	if _, err := w.Write(stack); err != nil {
		log.WithError(err).Error("failed to write goroutine stack")
	}
	if err := pprof.Lookup("goroutine").WriteTo(w, 2); err != nil {
		log.WithError(err).Error("failed to write pprof goroutines")
	}
}

// Start the metrics service in the background.
func (s *Service) Start() {
	go func() {
		addrParts := strings.Split(s.server.Addr, ":")
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%s", addrParts[len(addrParts)-1]), time.Second)
		if err == nil {
			conn.Close()
			log.WithField("address", s.server.Addr).Warn("port already in use; cannot start metrics service")
			return
		}
		log.WithField("address", s.server.Addr).Debug("starting metrics service")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics service stopped")
			s.failStatus = err
		}
	}()
}

// Stop the service gracefully.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status reports any service failure conditions.
func (s *Service) Status() error {
	return s.failStatus
}
