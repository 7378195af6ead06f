package dispatch_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/marker/dispatch"
)

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := dispatch.Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serve(h, httptest.NewRequest(http.MethodPatch, "/resources/1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var pd dispatch.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pd))
	assert.Equal(t, http.StatusInternalServerError, pd.Status)

	out := buf.String()
	assert.Contains(t, out, "panic recovered")
	assert.Contains(t, out, "panic=boom")
	assert.Contains(t, out, "method=PATCH")
}

func TestRecovery_passthrough(t *testing.T) {
	t.Parallel()

	h := dispatch.Recovery(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		handlerStatus int
		wantSubstr    []string
	}{
		"request is logged": {
			handlerStatus: http.StatusOK,
			wantSubstr: []string{
				"msg=request",
				"method=PATCH",
				"path=/test-log",
				"status=200",
			},
		},
		"status code is captured": {
			handlerStatus: http.StatusCreated,
			wantSubstr:    []string{"status=201", "level=INFO"},
		},
		"client error logs at warn": {
			handlerStatus: http.StatusMethodNotAllowed,
			wantSubstr:    []string{"status=405", "level=WARN"},
		},
		"server error logs at error": {
			handlerStatus: http.StatusBadGateway,
			wantSubstr:    []string{"status=502", "level=ERROR"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			h := dispatch.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.handlerStatus)
			}))
			serve(h, httptest.NewRequest(http.MethodPatch, "/test-log", nil))

			for _, s := range tc.wantSubstr {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestLogger_route_and_request_id(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := dispatch.New()
	r.Use(
		dispatch.RequestID(dispatch.RequestIDConfig{Generator: func() string { return "req-1" }}),
		dispatch.Logger(logger),
	)
	require.NoError(t, r.Mount(crudRegistry(t), &resources{}))

	rec := serve(r, httptest.NewRequest(http.MethodPatch, "/resources/5", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out := buf.String()
	assert.Contains(t, out, `route="PATCH /resources/{id}"`)
	assert.Contains(t, out, "handler=dispatch_test.resources.UpdateResource")
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "size=")
}

func TestLogger_route_behind_timeout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := dispatch.New()
	r.Use(dispatch.Logger(logger), dispatch.Timeout(time.Second))
	require.NoError(t, r.Mount(crudRegistry(t), &resources{}))

	rec := serve(r, httptest.NewRequest(http.MethodDelete, "/resources/5", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Contains(t, buf.String(), `route="DELETE /resources/{id}"`)
	assert.Contains(t, buf.String(), "handler=dispatch_test.resources.DeleteResource")
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg      []dispatch.RequestIDConfig
		incoming map[string]string
		header   string
		expect   string
	}{
		"generated": {
			cfg:    []dispatch.RequestIDConfig{{Generator: func() string { return "gen" }}},
			header: "X-Request-ID",
			expect: "gen",
		},
		"propagated": {
			incoming: map[string]string{"X-Request-ID": "upstream"},
			header:   "X-Request-ID",
			expect:   "upstream",
		},
		"custom header": {
			cfg:      []dispatch.RequestIDConfig{{Header: "X-Correlation-ID"}},
			incoming: map[string]string{"X-Correlation-ID": "corr"},
			header:   "X-Correlation-ID",
			expect:   "corr",
		},
		"oversized replaced": {
			cfg:      []dispatch.RequestIDConfig{{Generator: func() string { return "gen" }}},
			incoming: map[string]string{"X-Request-ID": strings.Repeat("a", 129)},
			header:   "X-Request-ID",
			expect:   "gen",
		},
		"unprintable replaced": {
			cfg:      []dispatch.RequestIDConfig{{Generator: func() string { return "gen" }}},
			incoming: map[string]string{"X-Request-ID": "two words"},
			header:   "X-Request-ID",
			expect:   "gen",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var seen string
			h := dispatch.RequestID(tc.cfg...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = dispatch.GetRequestID(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.incoming {
				req.Header.Set(k, v)
			}
			rec := serve(h, req)

			assert.Equal(t, tc.expect, seen)
			assert.Equal(t, tc.expect, rec.Header().Get(tc.header))
		})
	}
}

func TestRequestID_default_generator(t *testing.T) {
	t.Parallel()

	var seen string
	h := dispatch.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = dispatch.RequestIDFrom(r.Context())
	}))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, seen, 32)
	assert.Empty(t, dispatch.RequestIDFrom(context.Background()))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		rate        float64
		burst       int
		numReqs     int
		wantOK      int
		wantLimited int
	}{
		"requests within rate succeed": {
			rate:    100,
			burst:   10,
			numReqs: 5,
			wantOK:  5,
		},
		"requests exceeding rate get 429": {
			rate:        1,
			burst:       1,
			numReqs:     5,
			wantOK:      1,
			wantLimited: 4,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := dispatch.RateLimit(dispatch.RateLimitConfig{
				Rate:  tc.rate,
				Burst: tc.burst,
			})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			okCount, limitedCount := 0, 0
			for range tc.numReqs {
				rec := serve(h, httptest.NewRequest(http.MethodPatch, "/", nil))
				switch rec.Code {
				case http.StatusOK:
					okCount++
				case http.StatusTooManyRequests:
					limitedCount++
					assert.Equal(t, "1", rec.Header().Get("Retry-After"))
					assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
				}
			}

			assert.Equal(t, tc.wantOK, okCount)
			assert.Equal(t, tc.wantLimited, limitedCount)
		})
	}
}

func TestRateLimit_custom_key_func(t *testing.T) {
	t.Parallel()

	var limited []string
	h := dispatch.RateLimit(dispatch.RateLimitConfig{
		Rate:    0.5,
		Burst:   1,
		MaxIdle: time.Hour,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-User-ID") },
		OnLimit: func(w http.ResponseWriter, r *http.Request) {
			limited = append(limited, r.Header.Get("X-User-ID"))
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", user)
		return serve(h, req)
	}

	assert.Equal(t, http.StatusOK, send("user-a").Code)
	rec := send("user-a")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, send("user-b").Code)
	assert.Equal(t, []string{"user-a"}, limited)
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err    error
		expect int
	}{
		"http error":     {err: dispatch.Error(http.StatusConflict, "conflict"), expect: http.StatusConflict},
		"formatted":      {err: dispatch.Errorf(http.StatusNotFound, "node %s", "n1"), expect: http.StatusNotFound},
		"problem detail": {err: &dispatch.ProblemDetail{Status: http.StatusGone}, expect: http.StatusGone},
		"plain error":    {err: context.Canceled, expect: http.StatusInternalServerError},
		"oversized body": {err: fmt.Errorf("decode: %w", &http.MaxBytesError{Limit: 8}), expect: http.StatusRequestEntityTooLarge},
		"deadline":       {err: fmt.Errorf("wait: %w", context.DeadlineExceeded), expect: http.StatusServiceUnavailable},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expect, dispatch.ErrorStatus(tc.err))
		})
	}
}

func TestProblemDetail_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "detail", (&dispatch.ProblemDetail{Title: "title", Detail: "detail"}).Error())
	assert.Equal(t, "title", (&dispatch.ProblemDetail{Title: "title"}).Error())
	assert.Equal(t, "node n1", dispatch.Errorf(http.StatusNotFound, "node %s", "n1").Error())
}

func TestRouter_ListenAndServe_shutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- dispatch.New().ListenAndServe(ctx, "127.0.0.1:0")
	}()

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
