package topicdex

import "github.com/kailas-cloud/topicdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrAlreadyExists     = domain.ErrAlreadyExists
	ErrNotManaged        = domain.ErrNotManaged
	ErrInvalidArgument   = domain.ErrInvalidArgument
	ErrMalformedManifest = domain.ErrMalformedManifest
	ErrEngine            = domain.ErrEngine
	ErrInferenceFailed   = domain.ErrInferenceFailed
)
