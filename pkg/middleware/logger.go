package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
)

// quietPaths are probe and scrape endpoints left out of the access log
var quietPaths = []string{"/metrics", "/api/v1/health"}

// Logger writes one access line per request. Server errors log at error level,
// client errors at warn.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			if quiet(req.URL.Path) {
				return nil
			}

			ctx := req.Context()
			res := c.Response()
			entry := logger.WithContext(ctx).WithFields(map[string]any{
				"request_id":  fernctx.GetRequestID(ctx),
				"client":      fernctx.GetClient(ctx),
				"source":      fernctx.GetSource(ctx),
				"method":      req.Method,
				"route":       c.Path(),
				"status":      res.Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes_in":    req.ContentLength,
				"bytes_out":   res.Size,
			})

			switch {
			case res.Status >= http.StatusInternalServerError:
				entry.Error("Request failed")
			case res.Status >= http.StatusBadRequest:
				entry.Warn("Request rejected")
			default:
				entry.Info("Request")
			}
			return nil
		}
	}
}

func quiet(path string) bool {
	for _, prefix := range quietPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
