package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/domain"
	logpkg "github.com/kailas-cloud/topicdex/internal/logger"
)

// ErrorCode is the stable machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeNotManaged        ErrorCode = "not_managed"
	CodeNotFound          ErrorCode = "not_found"
	CodeAlreadyExists     ErrorCode = "already_exists"
	CodeMalformedManifest ErrorCode = "malformed_manifest"
	CodeEngineError       ErrorCode = "engine_error"
	CodeInferenceFailed   ErrorCode = "inference_failed"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrNotManaged, http.StatusNotFound, CodeNotManaged),
	sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeInvalidArgument),
	sentinelHandler(domain.ErrMalformedManifest, http.StatusBadRequest, CodeMalformedManifest),
	sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(domain.ErrInferenceFailed, http.StatusBadGateway, CodeInferenceFailed),
	sentinelHandler(domain.ErrEngine, http.StatusBadGateway, CodeEngineError),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client message without exposing internals.
// Typed argument errors only carry what the caller sent.
func safeDomainMessage(err error) string {
	var nme *domain.NotManagedError
	if errors.As(err, &nme) {
		return nme.Error()
	}
	var mae *domain.MissingArgumentError
	if errors.As(err, &mae) {
		return mae.Error()
	}
	sentinels := []error{
		domain.ErrNotManaged,
		domain.ErrInvalidArgument,
		domain.ErrMalformedManifest,
		domain.ErrAlreadyExists,
		domain.ErrNotFound,
		domain.ErrInferenceFailed,
		domain.ErrEngine,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
