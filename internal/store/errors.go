package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/tandem/internal/shared"
)

// ErrNotFound is returned when a scoped update or lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies record store failures.
type ErrorKind int

const (
	// KindQuery is a malformed query, scan failure or other data error.
	KindQuery ErrorKind = iota
	// KindUnavailable means the database could not be reached or stayed locked.
	KindUnavailable
	// KindTimeout means the per-call deadline elapsed.
	KindTimeout
	// KindConflict means a uniqueness constraint rejected the write.
	KindConflict
	// KindNotFound means the target row does not exist for the caller.
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "query"
	}
}

// Error is the error type returned by every Repository method.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a store error, or KindQuery for foreign errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindQuery
}

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

// IsNotFound reports whether err means the target row is absent.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// wrapErr classifies err and tags it with op. A nil err stays nil.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, sql.ErrConnDone):
		return KindUnavailable
	case shared.IsUniqueConstraintError(err):
		return KindConflict
	case shared.IsSQLiteConflictError(err):
		return KindUnavailable
	case strings.Contains(err.Error(), "database is closed"):
		return KindUnavailable
	}
	return KindQuery
}
