package topicdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/topicdex/internal/domain"
	domquery "github.com/kailas-cloud/topicdex/internal/domain/query"
)

// QueryService runs the named query templates.
type QueryService struct {
	svc       queryUseCase
	inference domain.Inferencer
	obs       *observer
}

// Routes lists the names accepted by Run.
func (s *QueryService) Routes() []string {
	all := domquery.All()
	out := make([]string, len(all))
	for i, t := range all {
		out[i] = t.Route
	}
	return out
}

// Run executes the template named route (for example "getThetasDocById").
// Params outside the template's declared arguments are ignored; a missing
// required argument yields ErrInvalidArgument.
func (s *QueryService) Run(ctx context.Context, route string, params map[string]string) (_ QueryResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("query.run", start, err, "route", route) }()

	t, ok := domquery.Lookup(route)
	if !ok {
		return QueryResult{}, fmt.Errorf("query %s: %w: unknown query", route, domain.ErrInvalidArgument)
	}

	args := make(domquery.Args, len(t.Required)+len(t.Optional))
	for _, names := range [][]string{t.Required, t.Optional} {
		for _, name := range names {
			if v, ok := params[name]; ok {
				args[name] = v
			}
		}
	}

	ctx, stats := domain.NewContextWithStats(ctx)
	data, err := s.svc.Execute(ctx, t.Kind, args)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query %s: %w", route, err)
	}
	return fromStats(data, stats), nil
}

// Infer returns the topic distribution of text under model.
func (s *QueryService) Infer(ctx context.Context, model, text string) (_ Inference, err error) {
	start := time.Now()
	defer func() { s.obs.observe("query.infer", start, err, "model", model) }()

	if s.inference == nil {
		return Inference{}, fmt.Errorf("infer: %w: inference service not configured (use WithInferencer)",
			domain.ErrInferenceFailed)
	}
	if text == "" {
		return Inference{}, fmt.Errorf("infer: %w", &domain.MissingArgumentError{Name: "text_to_infer"})
	}
	if model == "" {
		return Inference{}, fmt.Errorf("infer: %w", &domain.MissingArgumentError{Name: "model_for_infer"})
	}

	inf, err := s.inference.Infer(ctx, model, text)
	if err != nil {
		return Inference{}, fmt.Errorf("infer: %w", err)
	}
	return fromInternalInference(inf), nil
}
