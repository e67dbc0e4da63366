// Package apierr defines the error taxonomy shared by the enrichment pipeline.
//
// Every failure that crosses a package boundary is an *Error carrying a Class
// (what kind of failure) and a numeric Code in the ranges used by the browser
// extension: 1xxx validation, 2xxx storage, 3xxx upstream API, 5xxx enrichment.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Class is the coarse classification used for retry and propagation decisions.
type Class string

const (
	// ClassValidation marks malformed caller input. Never retried.
	ClassValidation Class = "validation"

	// ClassProvider marks a single provider call failure (network, parse, non-2xx).
	ClassProvider Class = "provider"

	// ClassRateLimit marks a saturated sliding window or an upstream 429.
	ClassRateLimit Class = "rate_limit"

	// ClassTimeout marks an attempt that exceeded its time budget.
	ClassTimeout Class = "timeout"

	// ClassNoResult marks a category whose providers were all exhausted.
	ClassNoResult Class = "no_result"

	// ClassCacheUnavailable marks a storage backend failure.
	ClassCacheUnavailable Class = "cache_unavailable"
)

// Code is a stable numeric error code.
type Code int

// Validation errors (1xxx).
const (
	CodeInvalidWord       Code = 1001
	CodeWordTooShort      Code = 1002
	CodeWordTooLong       Code = 1003
	CodeInvalidCharacters Code = 1004
	CodeTooManyWords      Code = 1005
	CodeSentenceTooLong   Code = 1006
	CodeMissingField      Code = 1007
)

// Storage errors (2xxx).
const (
	CodeStorageInit     Code = 2001
	CodeItemNotFound    Code = 2002
	CodeStorageQuota    Code = 2003
	CodeDatabaseFailure Code = 2004
)

// Upstream API errors (3xxx).
const (
	CodeAPIKeyMissing      Code = 3001
	CodeAPIRequestFailed   Code = 3002
	CodeAPIRateLimit       Code = 3003
	CodeAPITimeout         Code = 3004
	CodeAPIInvalidResponse Code = 3005
	CodeNetworkError       Code = 3006
)

// Enrichment errors (5xxx).
const (
	CodeEnrichmentFailed  Code = 5001
	CodeNoDefinition      Code = 5002
	CodeNoAudio           Code = 5003
	CodeTranslationFailed Code = 5004
	CodeNoImage           Code = 5005
)

const (
	validationCodeMin Code = 1000
	validationCodeMax Code = 1999
)

// Sentinels for errors.Is matching by class.
var (
	ErrValidation       = &Error{Class: ClassValidation}
	ErrProvider         = &Error{Class: ClassProvider}
	ErrRateLimited      = &Error{Class: ClassRateLimit}
	ErrTimeout          = &Error{Class: ClassTimeout}
	ErrNoResult         = &Error{Class: ClassNoResult}
	ErrCacheUnavailable = &Error{Class: ClassCacheUnavailable}
)

// Error is the pipeline's error type.
type Error struct {
	Code     Code
	Class    Class
	Provider string
	// Status is the upstream HTTP status code, 0 when no response was received.
	Status  int
	Message string
	// RetryAfter is set for ClassRateLimit errors.
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Class)
	}
	if e.Provider != "" {
		msg = fmt.Sprintf("%s: %s", e.Provider, msg)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s [%d]: %v", msg, e.Code, e.Err)
	}
	return fmt.Sprintf("%s [%d]", msg, e.Code)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by class, or by code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != 0 {
		return t.Code == e.Code
	}
	return t.Class != "" && t.Class == e.Class
}

// Validation builds a validation error.
func Validation(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Class:   ClassValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Provider builds a provider failure. status may be 0 for transport errors.
func Provider(provider string, status int, message string, err error) *Error {
	code := CodeAPIRequestFailed
	if status == 0 && err != nil {
		code = CodeNetworkError
	}
	return &Error{
		Code:     code,
		Class:    ClassProvider,
		Provider: provider,
		Status:   status,
		Message:  message,
		Err:      err,
	}
}

// InvalidResponse builds a provider failure for an unparseable or empty payload.
func InvalidResponse(provider string, err error) *Error {
	return &Error{
		Code:     CodeAPIInvalidResponse,
		Class:    ClassProvider,
		Provider: provider,
		Message:  "invalid response",
		Err:      err,
	}
}

// MissingKey builds the error for a provider lacking credentials.
func MissingKey(provider string) *Error {
	return &Error{
		Code:     CodeAPIKeyMissing,
		Class:    ClassProvider,
		Provider: provider,
		Message:  "api key not configured",
	}
}

// RateLimited builds a rate limit error carrying the wait hint.
func RateLimited(key string, retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeAPIRateLimit,
		Class:      ClassRateLimit,
		Provider:   key,
		Status:     0,
		Message:    fmt.Sprintf("rate limit exceeded, retry after %s", retryAfter),
		RetryAfter: retryAfter,
	}
}

// Timeout builds an attempt timeout error.
func Timeout(provider string, after time.Duration, err error) *Error {
	return &Error{
		Code:     CodeAPITimeout,
		Class:    ClassTimeout,
		Provider: provider,
		Message:  fmt.Sprintf("attempt timed out after %s", after),
		Err:      err,
	}
}

// NoResult builds the error recorded when every provider of a category failed.
func NoResult(code Code, category string, err error) *Error {
	return &Error{
		Code:    code,
		Class:   ClassNoResult,
		Message: fmt.Sprintf("no %s result from any provider", category),
		Err:     err,
	}
}

// CacheUnavailable builds a storage failure.
func CacheUnavailable(op string, err error) *Error {
	return &Error{
		Code:    CodeDatabaseFailure,
		Class:   ClassCacheUnavailable,
		Message: "cache " + op + " failed",
		Err:     err,
	}
}

// ClassOf returns the class of the first *Error in err's chain, or "" if none.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// IsValidation reports whether err is a client-input error.
func IsValidation(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Class == ClassValidation {
		return true
	}
	return e.Code >= validationCodeMin && e.Code <= validationCodeMax
}

// IsRetryable reports whether another attempt could succeed.
// Validation errors, missing credentials and upstream "not found" answers are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidation(err) {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == CodeAPIKeyMissing {
			return false
		}
		if e.Class == ClassProvider && e.Status == http.StatusNotFound {
			return false
		}
	}
	return true
}

// RetryAfterOf returns the RetryAfter hint carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Class == ClassRateLimit {
		return e.RetryAfter, true
	}
	return 0, false
}
