package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/metrics"
)

const loggerKey = "logger"

// RequestLogger logs each request with a request id and counts it.
func RequestLogger(reg *metrics.Registry, base *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			logger := base.With(
				"request_id", rid,
				"method", req.Method,
				"path", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			c.Set(loggerKey, logger)

			err := next(c)
			if err != nil {
				// let echo write the error response so Status is final
				c.Error(err)
			}

			status := c.Response().Status
			labels := map[string]string{
				"method": req.Method,
				"route":  c.Path(),
				"status": statusClass(status),
			}
			reg.Inc(req.Context(), "http_requests_total", labels, 1)

			duration := time.Since(start)
			if status >= 500 || err != nil {
				reg.Inc(req.Context(), "http_requests_errors_total", labels, 1)
				logger.Errorw("http request failed", "status", status, "duration", duration, "error", err)
			} else {
				logger.Infow("http request served", "status", status, "duration", duration)
			}
			return nil
		}
	}
}

func requestLogger(c echo.Context) *zap.SugaredLogger {
	if l, ok := c.Get(loggerKey).(*zap.SugaredLogger); ok {
		return l
	}
	return zap.NewNop().Sugar()
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "0"
	}
}
