package presenter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethwatch/deposit-monitor/logging"
	"github.com/ethwatch/deposit-monitor/monitor"
)

// Presenter exposes the operational endpoints: a health probe with the
// current cursor position and the prometheus metrics handler.
type Presenter struct {
	logger  logging.Logger
	monitor *monitor.DepositMonitor
	root    chi.Router
}

func NewPresenter(logger logging.Logger, m *monitor.DepositMonitor) *Presenter {
	return &Presenter{
		logger:  logger,
		monitor: m,
		root:    chi.NewMux(),
	}
}

func (p *Presenter) Serve(addr string) error {
	p.logger.WithField("addr", addr).Info("starting ops endpoint")
	p.root.Use(middleware.RequestID)
	p.root.Use(p.requestLogger)
	p.root.Get("/health", p.handleHealth)
	p.root.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, p.root)
}

func (p *Presenter) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := p.logger.WithFields(logrus.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"http_method": r.Method,
			"http_path":   r.RequestURI,
		})
		ts := time.Now()
		next.ServeHTTP(w, r)
		logger.WithField("duration", time.Since(ts)).Debug("http request completed")
	})
}

func (p *Presenter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"last_block": p.monitor.LastBlock(),
	})
	if err != nil {
		p.logger.WithError(err).Error("failed to marshal JSON result")
		w.WriteHeader(http.StatusInternalServerError)
	}
}
