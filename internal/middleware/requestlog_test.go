package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/tinylink/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testOutput struct {
	Body string `json:"body"`
}

func setupTestAPI(t *testing.T) (*chi.Mux, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.InfoLevel)

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	api.UseMiddleware(middleware.RequestLogger(zap.New(core)))

	huma.Register(api, huma.Operation{
		OperationID: "ok",
		Method:      http.MethodGet,
		Path:        "/test",
	}, func(_ context.Context, _ *struct{}) (*testOutput, error) {
		return &testOutput{Body: "ok"}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "boom",
		Method:      http.MethodGet,
		Path:        "/boom",
	}, func(_ context.Context, _ *struct{}) (*testOutput, error) {
		return nil, huma.Error500InternalServerError("boom")
	})

	return router, logs
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestRequestLogger(t *testing.T) {
	t.Run("logs successful requests at info", func(t *testing.T) {
		router, logs := setupTestAPI(t)

		w := serve(router, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 1, logs.Len())

		entry := logs.All()[0]
		assert.Equal(t, zap.InfoLevel, entry.Level)

		fields := entry.ContextMap()
		assert.Equal(t, "GET", fields["method"])
		assert.Equal(t, "/test", fields["path"])
		assert.Equal(t, "ok", fields["operation"])
		assert.EqualValues(t, http.StatusOK, fields["status"])
	})

	t.Run("logs server errors at warn", func(t *testing.T) {
		router, logs := setupTestAPI(t)

		w := serve(router, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, 1, logs.FilterMessage("request failed").Len())
		assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"single forwarded ip", map[string]string{"X-Forwarded-For": "192.168.1.1"}, "192.168.1.1"},
		{"first of forwarded chain", map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1, 172.16.0.1"}, "192.168.1.1"},
		{"real ip header", map[string]string{"X-Real-IP": "10.0.0.1"}, "10.0.0.1"},
		{"remote address", nil, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, logs := setupTestAPI(t)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			serve(router, req)

			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.want, logs.All()[0].ContextMap()["client_ip"])
		})
	}
}
