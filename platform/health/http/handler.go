package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout ограничивает время одной проверки готовности
const probeTimeout = 2 * time.Second

// Check - именованная проверка зависимости (ping БД, кэша и т.д.)
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Response - тело ответа health endpoint
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler возвращает HTTP handler для health check endpoint.
// Без проверок всегда отвечает 200 {"status":"ok"}.
// Если хотя бы одна проверка вернула ошибку, отвечает 503 и перечисляет результаты по именам.
func Handler(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := Response{Status: "ok"}
		code := http.StatusOK

		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			err := c.Probe(ctx)
			cancel()
			if err != nil {
				resp.Checks[c.Name] = err.Error()
				resp.Status = "not ready"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
