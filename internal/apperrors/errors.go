// Package apperrors defines the typed failures returned by the rule and
// leaderboard engines. Engines never produce user-facing text; the
// presentation layer maps codes to replies.
package apperrors

import "errors"

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"
	CodeValidation           Code = "VALIDATION"
	CodeNameFormat           Code = "INVALID_NAME_FORMAT"
	CodeRoleResolution       Code = "ROLE_RESOLUTION"
	CodeRuleExists           Code = "RULE_EXISTS"
	CodeRuleNotFound         Code = "RULE_NOT_FOUND"
	CodeDuplicateLeaderboard Code = "DUPLICATE_LEADERBOARD"
	CodeLeaderboardNotFound  Code = "LEADERBOARD_NOT_FOUND"
	CodeWrongLeaderboardType Code = "WRONG_LEADERBOARD_TYPE"
)

// Kind refines a code. Role resolution uses it to single out a role that
// exists but may not be managed by a rule; missing roles are warnings,
// not errors.
type Kind string

const (
	KindNone       Kind = ""
	KindDisallowed Kind = "disallowed"
)

// Error is the engine error type.
type Error struct {
	Code     Code
	Kind     Kind
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code. A target with a
// non-empty Kind must also match the kind. Name format failures are also
// validation failures.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code == CodeNameFormat && t.Code == CodeValidation {
		return true
	}
	if e.Code != t.Code {
		return false
	}
	return t.Kind == KindNone || e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation           = &Error{Code: CodeValidation}
	ErrNameFormat           = &Error{Code: CodeNameFormat}
	ErrRoleResolution       = &Error{Code: CodeRoleResolution}
	ErrRoleDisallowed       = &Error{Code: CodeRoleResolution, Kind: KindDisallowed}
	ErrRuleExists           = &Error{Code: CodeRuleExists}
	ErrRuleNotFound         = &Error{Code: CodeRuleNotFound}
	ErrDuplicateLeaderboard = &Error{Code: CodeDuplicateLeaderboard}
	ErrLeaderboardNotFound  = &Error{Code: CodeLeaderboardNotFound}
	ErrWrongType            = &Error{Code: CodeWrongLeaderboardType}
)

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates an error carrying template values for presentation.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// WithKind creates an error with a refining kind.
func WithKind(code Code, kind Kind, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Kind: kind, Message: message, Metadata: metadata}
}

// CodeOf extracts the code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// MetadataOf extracts the metadata from err, if any.
func MetadataOf(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Metadata
	}
	return nil
}
