package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/util"
)

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports 200 when every check passes and 503 otherwise.
func HealthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			err := c.Check(ctx)
			cancel()
			if err != nil {
				status = http.StatusServiceUnavailable
				results[c.Name] = "error"
				util.Warn("Health check failed", zap.String("check", c.Name), zap.Error(err))
				continue
			}
			results[c.Name] = "ok"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		writeJSON(w, status, map[string]interface{}{
			"status":  overall,
			"service": "nurseconnect-registration",
			"checks":  results,
		})
	}
}
