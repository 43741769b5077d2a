package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional collaborator is down.
	Degraded Status = "degraded"
	// Unhealthy indicates the search engine is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in the report.
const (
	ComponentEngine    = "engine"
	ComponentCache     = "cache"
	ComponentInference = "inference"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	engine    Pinger
	cache     Pinger
	inference InferenceChecker
}

// New creates a Service. cache and inference can be nil.
func New(engine Pinger, cache Pinger, inference InferenceChecker) *Service {
	return &Service{engine: engine, cache: cache, inference: inference}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		ComponentEngine: result(s.engine.Ping(ctx)),
	}
	if s.cache != nil {
		checks[ComponentCache] = result(s.cache.Ping(ctx))
	}
	if s.inference != nil {
		checks[ComponentInference] = result(s.inference.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentEngine] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
