package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotManaged signals a collection that is neither a registered corpus nor a model.
	ErrNotManaged = errors.New("not a managed collection")
	// ErrInvalidArgument signals a missing or malformed request argument.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMalformedManifest signals an unusable corpus or training manifest.
	ErrMalformedManifest = errors.New("malformed manifest")
	// ErrEngine signals a failed call to the search engine.
	ErrEngine = errors.New("search engine error")
	// ErrInferenceFailed signals a failed call to the inference service.
	ErrInferenceFailed = errors.New("inference service error")
)

// NotManagedError carries the collection name that failed the registry guard.
type NotManagedError struct {
	Collection string
	Want       string // "corpus", "model" or "corpus or model"
}

func (e *NotManagedError) Error() string {
	return fmt.Sprintf("%s: %q is not a %s collection", ErrNotManaged.Error(), e.Collection, e.Want)
}

func (e *NotManagedError) Unwrap() error { return ErrNotManaged }

// MissingArgumentError names a required argument the caller did not supply.
type MissingArgumentError struct {
	Name string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: %s is required", ErrInvalidArgument.Error(), e.Name)
}

func (e *MissingArgumentError) Unwrap() error { return ErrInvalidArgument }
