package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/photovault/photovault/pkg/logger"
)

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

// Check is one named readiness check, e.g. a database ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// ReadinessReport is the body of the readiness endpoint.
type ReadinessReport struct {
	Status string            `json:"status"`
	Failed map[string]string `json:"failed,omitempty"`
}

// LivenessHandler always answers 200 ALIVE.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}

// ReadinessHandler runs every check and answers 503 listing the failed ones.
func ReadinessHandler(log *slog.Logger, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		report := ReadinessReport{Status: "ready"}
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := c.Ping(ctx)
			cancel()
			if err == nil {
				continue
			}
			log.ErrorContext(r.Context(), "readiness check failed", logger.Component(c.Name), logger.Error(err))
			if report.Failed == nil {
				report.Failed = make(map[string]string)
			}
			report.Failed[c.Name] = err.Error()
		}

		code := http.StatusOK
		if len(report.Failed) > 0 {
			report.Status, code = "not_ready", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	}
}
