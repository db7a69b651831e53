package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorMiddleware(t *testing.T) {
	t.Run("Should label requests by route pattern", func(t *testing.T) {
		c := NewCollector("test")
		r := chi.NewRouter()
		r.Use(c.Middleware("test"))
		r.Get("/workout/{date}/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		for _, path := range []string{"/workout/2025-11-04/a", "/workout/2025-11-05/b"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusNoContent, rec.Code)
		}

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/workout/{date}/{id}",status="204"} 2`)
	})

	t.Run("Should expose recorded counters", func(t *testing.T) {
		c := NewCollector("test")
		c.RecordRateLimit("standard", OutcomeDenied)
		c.RecordError("NOT_FOUND")
		c.RecordDemoReset("cooldown")

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		body := rec.Body.String()
		assert.Contains(t, body, `test_rate_limit_decisions_total{outcome="denied",tier="standard"} 1`)
		assert.Contains(t, body, `test_app_errors_total{type="NOT_FOUND"} 1`)
		assert.Contains(t, body, `test_demo_resets_total{result="cooldown"} 1`)
	})
}

func TestInitTracing(t *testing.T) {
	t.Run("Should be a no-op without an endpoint", func(t *testing.T) {
		shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "elbiefit"})
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})
}
