package httperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a business error for recovery and presentation.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNetwork    Kind = "network"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func Validation(code, message string) error {
	return &BusinessError{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code, message string) error {
	return &BusinessError{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string) error {
	return &BusinessError{Kind: KindConflict, Code: code, Message: message}
}

// Network wraps a transport failure. The original error stays reachable
// through errors.Is / errors.As.
func Network(code string, err error) error {
	return &BusinessError{
		Kind:    KindNetwork,
		Code:    code,
		Message: "Could not reach the server, please try again.",
		Err:     err,
	}
}

func IsBusiness(err error, code string) bool {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// KindOf returns the kind of err, KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// MessageOf returns the human readable message carried by err.
func MessageOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if err == nil {
		return ""
	}
	return "Unexpected error."
}

// IsExclusionConflict reports whether err is a Postgres exclusion or unique
// violation, i.e. the store itself refused an overlapping booking.
func IsExclusionConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23P01" || pgErr.Code == "23505"
	}
	return false
}
