package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/nebengjek-dispatch/internal/pkg/logger"
)

// PanicRecoveryWithZapMiddleware recovers handler panics, logs them with the
// stack and reports them to the New Relic transaction when one is present
func PanicRecoveryWithZapMiddleware(zapLogger *logger.ZapLogger) echo.MiddlewareFunc {
	if zapLogger == nil {
		panic("PanicRecoveryWithZapMiddleware requires a logger")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					handlePanic(c, r, zapLogger)
				}
			}()
			return next(c)
		}
	}
}

func handlePanic(c echo.Context, r interface{}, zapLogger *logger.ZapLogger) {
	stackTrace := string(debug.Stack())
	req := c.Request()
	requestID := getRequestID(c)

	userID := "anonymous"
	if uid := c.Get(ContextUserID); uid != nil {
		userID = fmt.Sprintf("%v", uid)
	}

	log := zapLogger
	if txn := newrelic.FromContext(req.Context()); txn != nil {
		txn.NoticeError(newrelic.Error{
			Message: fmt.Sprintf("Panic recovered: %v", r),
			Class:   "PanicError",
			Attributes: map[string]interface{}{
				"panic.type":  fmt.Sprintf("%T", r),
				"http.method": req.Method,
				"http.path":   req.URL.Path,
				"user_id":     userID,
				"request_id":  requestID,
			},
		})
		txn.AddAttribute("panic.recovered", true)
		log = zapLogger.WithNewRelicContext(txn)
	}

	log.Error("Panic recovered during request processing",
		logger.Any("panic_value", r),
		logger.String("panic_type", fmt.Sprintf("%T", r)),
		logger.String("stack_trace", stackTrace),
		logger.String("method", req.Method),
		logger.String("path", req.URL.Path),
		logger.String("client_ip", c.RealIP()),
		logger.String("user_id", userID),
		logger.String("request_id", requestID),
	)

	if c.Response().Committed {
		return
	}
	response := map[string]interface{}{
		"success": false,
		"error":   "Internal Server Error",
	}
	if requestID != "" {
		response["request_id"] = requestID
	}
	if err := c.JSON(http.StatusInternalServerError, response); err != nil {
		_ = c.String(http.StatusInternalServerError, "Internal Server Error")
	}
}

func getRequestID(c echo.Context) string {
	if requestID := c.Response().Header().Get(echo.HeaderXRequestID); requestID != "" {
		return requestID
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
