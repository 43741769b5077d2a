package db

import (
	"errors"
	"strconv"
)

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound        = errors.New("db: key not found")
	ErrCollectionExists   = errors.New("db: collection already exists")
	ErrCollectionNotFound = errors.New("db: collection not found")
	ErrUnexpectedStatus   = errors.New("db: unexpected status")
	ErrMalformedResponse  = errors.New("db: malformed response")
	ErrFieldExists        = errors.New("db: field already exists")
	ErrFieldNotFound      = errors.New("db: field not found")
)

// Op constants name engine endpoints and Redis commands for error context.
const (
	OpCreateCollection = "CREATE"
	OpDeleteCollection = "DELETE"
	OpListCollections  = "LIST"
	OpAddField         = "add-field"
	OpDeleteField      = "delete-field"
	OpListFields       = "fields"
	OpUpdate           = "update"
	OpSelect           = "select"
	OpPing             = "ping"

	OpGet  = "GET"
	OpSet  = "SET"
	OpDel  = "DEL"
	OpScan = "SCAN"
)

// Error wraps an underlying error with the operation name and, for HTTP
// backends, the response status.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return e.Op + ": status " + strconv.Itoa(e.Status) + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
