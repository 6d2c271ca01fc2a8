package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type CheckResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

type HealthReport struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Checks      map[string]CheckResult `json:"checks"`
}

func (r *HealthReport) Healthy() bool {
	return r.Status == StatusHealthy
}

// CheckHealth pings every configured dependency. Redis is skipped when it is
// not configured.
func (s *Server) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:      StatusHealthy,
		Timestamp:   time.Now().UTC(),
		Environment: s.Config.Primary.Env,
		Checks:      make(map[string]CheckResult),
	}

	timeout := s.Config.Observability.HealthChecks.Timeout
	for _, name := range s.Config.Observability.HealthChecks.Checks {
		var ping func(context.Context) error
		switch name {
		case "database":
			ping = s.DB.Ping
		case "redis":
			if s.Redis == nil {
				continue
			}
			ping = func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() }
		default:
			continue
		}

		result := s.runCheck(ctx, name, timeout, ping)
		report.Checks[name] = result
		if result.Status != StatusHealthy {
			report.Status = StatusUnhealthy
		}
	}

	return report
}

func (s *Server) runCheck(ctx context.Context, name string, timeout time.Duration, ping func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	elapsed := time.Since(start)
	s.Metrics.ObserveHealthCheck(name, err == nil, elapsed)

	if err != nil {
		s.Logger.Error().
			Err(err).
			Str("check", name).
			Dur("response_time", elapsed).
			Msg("health check failed")

		if app := s.LoggerService.GetApplication(); app != nil {
			app.RecordCustomEvent("HealthCheckError", map[string]any{
				"check_type":       name,
				"error_type":       name + "_unhealthy",
				"response_time_ms": elapsed.Milliseconds(),
				"error_message":    err.Error(),
			})
		}

		return CheckResult{
			Status:       StatusUnhealthy,
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return CheckResult{Status: StatusHealthy, ResponseTime: elapsed.String()}
}

// StartHealthMonitor runs CheckHealth on the configured interval until
// Shutdown. It does nothing once the server is shut down.
func (s *Server) StartHealthMonitor() {
	hc := s.Config.Observability.HealthChecks
	if !hc.Enabled {
		return
	}

	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()
	if s.monitor != nil || s.stopped {
		return
	}

	monitor := cron.New()
	_, err := monitor.AddFunc(fmt.Sprintf("@every %s", hc.Interval), func() {
		report := s.CheckHealth(context.Background())
		if !report.Healthy() {
			s.Logger.Warn().Interface("checks", report.Checks).Msg("dependencies unhealthy")
		}
	})
	if err != nil {
		s.Logger.Error().Err(err).Msg("failed to schedule health checks")
		return
	}

	monitor.Start()
	s.monitor = monitor
	s.Logger.Info().Dur("interval", hc.Interval).Strs("checks", hc.Checks).Msg("health monitor started")
}

func (s *Server) stopHealthMonitor() {
	s.monitorMu.Lock()
	monitor := s.monitor
	s.monitor = nil
	s.stopped = true
	s.monitorMu.Unlock()

	if monitor != nil {
		<-monitor.Stop().Done()
	}
}
