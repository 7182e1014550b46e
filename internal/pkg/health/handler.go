package health

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

// BuildInfo contains information about the build
type BuildInfo struct {
	Version     string    `json:"version"`
	GitCommit   string    `json:"git_commit"`
	BuildTime   string    `json:"build_time"`
	ServiceName string    `json:"service_name"`
	GoVersion   string    `json:"go_version"`
	Hostname    string    `json:"hostname"`
	ServerTime  time.Time `json:"server_time"`
}

// DefaultBuildInfo contains default build information
var DefaultBuildInfo = BuildInfo{
	Version:   "development",
	GitCommit: "unknown",
	BuildTime: "unknown",
	GoVersion: runtime.Version(),
}

// Checker probes one dependency
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

// ReadinessResponse reports the state of every dependency
type ReadinessResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewPingHandler creates a handler for the ping endpoint
func NewPingHandler(serviceName string) echo.HandlerFunc {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	buildInfo := DefaultBuildInfo
	buildInfo.ServiceName = serviceName
	buildInfo.Hostname = hostname
	if version := os.Getenv("VERSION"); version != "" {
		buildInfo.Version = version
	}
	if gitCommit := os.Getenv("GIT_COMMIT"); gitCommit != "" {
		buildInfo.GitCommit = gitCommit
	}
	if buildTime := os.Getenv("BUILD_TIME"); buildTime != "" {
		buildInfo.BuildTime = buildTime
	}

	return func(c echo.Context) error {
		info := buildInfo
		info.ServerTime = time.Now()
		return c.JSON(http.StatusOK, info)
	}
}

// NewReadinessHandler runs every checker and answers 503 if any fails
func NewReadinessHandler(checkers map[string]Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		resp := ReadinessResponse{Status: "ok", Dependencies: make(map[string]string, len(checkers))}
		status := http.StatusOK
		for name, checker := range checkers {
			if err := checker.CheckHealth(ctx); err != nil {
				resp.Dependencies[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Dependencies[name] = "ok"
		}
		return c.JSON(status, resp)
	}
}

// RegisterHealthEndpoints registers the health check endpoints
func RegisterHealthEndpoints(e *echo.Echo, serviceName string, checkers map[string]Checker) {
	e.GET("/ping", NewPingHandler(serviceName))

	ok := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}
	e.GET("/health", ok)
	e.GET("/healthz", ok)
	e.GET("/ready", NewReadinessHandler(checkers))
}
