package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	fernctx "github.com/Ramsey-B/fern/pkg/context"
)

const (
	// HeaderClient names the customer the notification is processed for
	HeaderClient = "X-Client"

	SourceAPI = "api"
)

// Context copies request metadata into the request context and echoes the request id
func Context(defaultClient string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			client := req.Header.Get(HeaderClient)
			if client == "" {
				client = defaultClient
			}

			ctx := req.Context()
			ctx = fernctx.SetRequestID(ctx, requestID)
			ctx = fernctx.SetMethod(ctx, req.Method)
			ctx = fernctx.SetRoute(ctx, req.URL.Path)
			ctx = fernctx.SetRemoteIP(ctx, c.RealIP())
			ctx = fernctx.SetClient(ctx, client)
			ctx = fernctx.SetSource(ctx, SourceAPI)

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
