package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/connections", nil), rec)
	return rec, h.Middleware()(handler)(c)
}

func TestMiddleware_RendersStructuredError(t *testing.T) {
	h := NewHandler(prometheus.NewRegistry())

	rec, err := serve(t, h, func(echo.Context) error {
		return NotFoundError("connection not found").WithField("platform", "reddit")
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "connection not found", body.Error)
	assert.Equal(t, TypeNotFound, body.Type)
	assert.Equal(t, "reddit", body.Context["platform"])
	assert.Equal(t, 1.0, counterValue(h.errorsTotal.WithLabelValues("not_found")))
}

func TestMiddleware_HidesPlainErrorCause(t *testing.T) {
	h := NewHandler(prometheus.NewRegistry())

	rec, err := serve(t, h, func(echo.Context) error {
		return errors.New("pq: password authentication failed")
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, 1.0, counterValue(h.errorsTotal.WithLabelValues("internal")))
}

func TestMiddleware_PassesThroughSuccess(t *testing.T) {
	h := NewHandler(prometheus.NewRegistry())

	rec, err := serve(t, h, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, testutil.CollectAndCount(h.errorsTotal))
}

func TestMiddleware_PassesThroughEchoHTTPError(t *testing.T) {
	h := NewHandler(prometheus.NewRegistry())

	_, err := serve(t, h, func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	})

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
	assert.Equal(t, 1.0, counterValue(h.errorsTotal.WithLabelValues("rate_limited")))
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		code    int
		message any
		typ     ErrorType
		msg     string
	}{
		{http.StatusBadRequest, "bad", TypeValidation, "bad"},
		{http.StatusForbidden, "invalid csrf token", TypeUnauthorized, "invalid csrf token"},
		{http.StatusNotFound, nil, TypeNotFound, "Not Found"},
		{http.StatusMethodNotAllowed, nil, TypeNotFound, "Method Not Allowed"},
		{http.StatusConflict, "dup", TypeConflict, "dup"},
		{http.StatusTooManyRequests, "slow", TypeRateLimited, "slow"},
		{http.StatusBadGateway, 42, TypeExternal, "Bad Gateway"},
		{http.StatusServiceUnavailable, "down", TypeUnavailable, "down"},
		{http.StatusTeapot, "tea", TypeInternal, "tea"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			got := WrapHTTPError(&echo.HTTPError{Code: tt.code, Message: tt.message})
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.msg, got.Message)
		})
	}

	cause := errors.New("inner")
	assert.ErrorIs(t, WrapHTTPError(&echo.HTTPError{Code: 500, Internal: cause}), cause)
}

func counterValue(counter prometheus.Counter) float64 {
	ch := make(chan prometheus.Metric, 1)
	counter.Collect(ch)
	close(ch)

	m := &dto.Metric{}
	_ = (<-ch).Write(m)
	return m.GetCounter().GetValue()
}
