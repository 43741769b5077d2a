package chi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/domain"
	domquery "github.com/kailas-cloud/topicdex/internal/domain/query"
	"github.com/kailas-cloud/topicdex/internal/domain/region"
	logpkg "github.com/kailas-cloud/topicdex/internal/logger"
	healthuc "github.com/kailas-cloud/topicdex/internal/usecase/health"
	indexinguc "github.com/kailas-cloud/topicdex/internal/usecase/indexing"
)

// Response headers reporting the backend work of a query.
const (
	HeaderEngineCalls = "X-Engine-Calls"
	HeaderCacheHits   = "X-Cache-Hits"
	HeaderInferred    = "X-Inferred"
)

// Request parameter names outside the query templates.
const (
	paramCorpusPath    = "corpus_path"
	paramCorpusCol     = "corpus_col"
	paramModelPath     = "model_path"
	paramTextToInfer   = "text_to_infer"
	paramModelForInfer = "model_for_infer"
)

// Services are the use cases behind the HTTP API.
type Services struct {
	Queries  QueryService
	Indexing IndexingService
	Schema   Reconciler
	Health   HealthService
	// Inference is optional; without it POST /inference/inferDoc answers 502.
	Inference domain.Inferencer
	Regions   *region.Table
}

// Server is the HTTP API of topicdex.
type Server struct {
	svc    Services
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(svc Services, logger *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Routes mounts every endpoint on r. Paths are registered without a trailing
// slash; the router strips it from requests.
func (s *Server) Routes(r chi.Router) {
	r.Route("/queries", func(r chi.Router) {
		for _, t := range domquery.All() {
			r.Get("/"+t.Route, s.Query(t))
		}
	})
	r.Route("/corpora", func(r chi.Router) {
		r.Post("/indexCorpus", s.indexOp(paramCorpusPath, s.svc.Indexing.IndexCorpus))
		r.Post("/deleteCorpus", s.indexOp(paramCorpusPath, s.svc.Indexing.DeleteCorpus))
		r.Get("/listAllCorpus", s.ListAllCorpus)
		r.Get("/listCorpusModels", s.ListCorpusModels)
	})
	r.Route("/models", func(r chi.Router) {
		r.Post("/indexModel", s.indexOp(paramModelPath, s.svc.Indexing.IndexModel))
		r.Post("/deleteModel", s.indexOp(paramModelPath, s.svc.Indexing.DeleteModel))
		r.Get("/listAllModels", s.ListAllModels)
	})
	r.Get("/admin/reconcile", s.reconcile(false))
	r.Post("/admin/reconcile", s.reconcile(true))
	r.Post("/inference/inferDoc", s.InferDoc)
	r.Get("/regions", s.Regions)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Query handles GET /queries/<route> for template t.
func (s *Server) Query(t domquery.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args, err := bindArgs(r.URL.Query(), t)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}

		r = r.WithContext(logpkg.With(r.Context(), zap.String("query", t.Route)))
		ctx := r.Context()
		stats := domain.StatsFromContext(ctx)
		if stats == nil {
			ctx, stats = domain.NewContextWithStats(ctx)
		}
		res, err := s.svc.Queries.Execute(ctx, t.Kind, args)
		setStatsHeaders(w, stats)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// bindArgs reads the declared parameters of t. Derived arguments are never
// taken from the request.
func bindArgs(params url.Values, t domquery.Template) (domquery.Args, error) {
	args := make(domquery.Args, len(t.Required)+len(t.Optional))
	for _, name := range t.Required {
		v, err := requiredParam(params, name)
		if err != nil {
			return nil, err
		}
		args[name] = v
	}
	for _, name := range t.Optional {
		var v *string
		if err := runtime.BindQueryParameter("form", true, false, name, params, &v); err != nil {
			return nil, fmt.Errorf("invalid format for parameter %s: %w", name, err)
		}
		if v != nil {
			args[name] = *v
		}
	}
	return args, nil
}

func requiredParam(params url.Values, name string) (string, error) {
	var v string
	if err := runtime.BindQueryParameter("form", true, true, name, params, &v); err != nil {
		return "", fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return v, nil
}

func (s *Server) indexOp(
	param string,
	op func(ctx context.Context, path string) (indexinguc.Result, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := requiredParam(r.URL.Query(), param)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		r = r.WithContext(logpkg.With(r.Context(), zap.String(param, path)))
		res, err := op(r.Context(), path)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ListAllCorpus handles GET /corpora/listAllCorpus.
func (s *Server) ListAllCorpus(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Queries.ListCorpora(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// ListCorpusModels handles GET /corpora/listCorpusModels.
func (s *Server) ListCorpusModels(w http.ResponseWriter, r *http.Request) {
	corpus, err := requiredParam(r.URL.Query(), paramCorpusCol)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	models, err := s.svc.Queries.ListCorpusModels(r.Context(), corpus)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

// ListAllModels handles GET /models/listAllModels.
func (s *Server) ListAllModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.svc.Queries.ListModels(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

// reconcile handles GET (report only) and POST (repair) /admin/reconcile.
func (s *Server) reconcile(repair bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := s.svc.Schema.Reconcile(r.Context(), repair)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

type inferenceResponse struct {
	ID     string `json:"id"`
	Thetas string `json:"thetas"`
}

// InferDoc handles POST /inference/inferDoc.
func (s *Server) InferDoc(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	text, err := requiredParam(params, paramTextToInfer)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	model, err := requiredParam(params, paramModelForInfer)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if s.svc.Inference == nil {
		handleError(w, r, fmt.Errorf("inference service not configured: %w", domain.ErrInferenceFailed))
		return
	}

	inf, err := s.svc.Inference.Infer(r.Context(), model, text)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inferenceResponse{ID: inf.ID, Thetas: inf.Thetas})
}

// Regions handles GET /regions.
func (s *Server) Regions(w http.ResponseWriter, r *http.Request) {
	if s.svc.Regions == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "region table not loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Regions)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health. Only a down engine fails the check.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.svc.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setStatsHeaders(w http.ResponseWriter, stats *domain.RequestStats) {
	if stats == nil {
		return
	}
	w.Header().Set(HeaderEngineCalls, strconv.Itoa(stats.EngineCalls))
	if stats.CacheHits > 0 {
		w.Header().Set(HeaderCacheHits, strconv.Itoa(stats.CacheHits))
	}
	if stats.Inferred {
		w.Header().Set(HeaderInferred, "true")
	}
}
