package httpserve

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bnema/tarpush/internal/server"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Kind    string `json:"kind,omitempty"`
}

func sendError(c echo.Context, code int, msg, details, kind string) error {
	return c.JSON(code, ErrorResponse{Error: msg, Details: details, Kind: kind})
}

// accessLogger logs one line per request through the application logger.
func accessLogger(a *server.App) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/api/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kv := []interface{}{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				a.Log.Error("request", append(kv, "error", v.Error)...)
				return nil
			}
			a.Log.Info("request", kv...)
			return nil
		},
	})
}

// jsonErrorHandler keeps the {error, details} shape for errors raised by echo
// itself (unknown routes, body limits, panics).
func jsonErrorHandler(a *server.App) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		details := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				details = msg
			}
		}
		if code >= http.StatusInternalServerError {
			a.Log.Error("Unhandled error", "path", c.Path(), "error", err)
		}
		if sendErr := sendError(c, code, http.StatusText(code), details, ""); sendErr != nil {
			a.Log.Error("Failed to send error response", "error", sendErr)
		}
	}
}
