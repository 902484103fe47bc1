package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"kuberdash/internal/config"
)

// UserCounter reports the size of the credential store
type UserCounter interface {
	Count() (int, error)
}

// SessionCounter reports the number of live sessions
type SessionCounter interface {
	Count() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	buildID   string
	paths     *config.Paths
	users     UserCounter
	sessions  SessionCounter
	dashboard *DashboardService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string
	BuildTime string
	BuildID   string
}

// NewHealthService creates a new health service. Any dependency may be nil;
// its check then reports not_ready.
func NewHealthService(build BuildInfo, paths *config.Paths, users UserCounter, sessions SessionCounter, dashboard *DashboardService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if build.Version == "" {
		build.Version = config.AppVersion
	}

	logger.Info("HealthService initialized",
		slog.String("version", build.Version),
		slog.String("build_time", build.BuildTime),
		slog.String("build_id", build.BuildID))

	return &HealthService{
		version:   build.Version,
		buildTime: build.BuildTime,
		buildID:   build.BuildID,
		paths:     paths,
		users:     users,
		sessions:  sessions,
		dashboard: dashboard,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the credential store and data directories
// are usable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"users":    hs.checkUsersHealth(),
			"data":     hs.checkDataHealth(),
			"sessions": hs.checkSessionHealth(),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("check", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.sessions != nil {
		rt["sessions"] = hs.sessions.Count()
	}

	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"name":         config.AppName,
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	if hs.dashboard != nil {
		result["default_dataset"] = hs.dashboard.HasDefaultDataset()
	}

	return result
}

func (hs *HealthService) checkUsersHealth() ServiceHealth {
	if hs.users == nil {
		return ServiceHealth{Status: "not_ready", Message: "credential store not initialized"}
	}
	n, err := hs.users.Count()
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("credential store error: %v", err)}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d users registered", n)}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	for _, dir := range []string{hs.paths.DataDir, hs.paths.ExportsDir} {
		if dir == "" {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil {
			return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("directory not accessible: %s", dir)}
		}
		if !info.IsDir() {
			return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("not a directory: %s", dir)}
		}
	}
	return ServiceHealth{Status: "ready", Message: "data directories available"}
}

func (hs *HealthService) checkSessionHealth() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "not_ready", Message: "session manager not initialized"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d active sessions", hs.sessions.Count())}
}
