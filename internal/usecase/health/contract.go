package health

import "context"

// Pinger checks search engine or cache availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// InferenceChecker checks inference service availability.
type InferenceChecker interface {
	HealthCheck(ctx context.Context) error
}
