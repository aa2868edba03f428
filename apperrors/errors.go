// Package apperrors définit les erreurs métier typées et leur statut HTTP.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error est une erreur métier portant un code stable et un statut HTTP.
type Error struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

// Error implémente l'interface error
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap retourne l'erreur encapsulée
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is compare deux erreurs métier sur leur code
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil {
		return false
	}
	return e.Code == t.Code
}

// New crée une nouvelle erreur
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attache une cause à une erreur métier
func Wrap(err error, base *Error, message string) *Error {
	clone := Clone(base, message)
	clone.Err = err
	return clone
}

// Codes stables exposés aux clients
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeTooManyAttempts   = "TOO_MANY_ATTEMPTS"
	CodeUpstream          = "UPSTREAM_FAILURE"
)

var (
	ErrValidation   = New(CodeValidation, http.StatusBadRequest, "Validation failed")
	ErrUnauthorized = New(CodeUnauthorized, http.StatusUnauthorized, "Unauthorized")
	ErrForbidden    = New(CodeForbidden, http.StatusForbidden, "Forbidden")
	// Le client existant attend un 400 sur doublon
	ErrConflict          = New(CodeConflict, http.StatusBadRequest, "Registration already exists")
	ErrNotFound          = New(CodeNotFound, http.StatusNotFound, "Not found")
	ErrInvalidTransition = New(CodeInvalidTransition, http.StatusConflict, "Status can no longer be changed")
	ErrTooManyAttempts   = New(CodeTooManyAttempts, http.StatusTooManyRequests, "Too many login attempts. Try again in 5 minutes.")
	ErrUpstream          = New(CodeUpstream, http.StatusInternalServerError, "Internal server error")
)

// Validation construit une erreur de validation avec le détail par champ
func Validation(fields map[string]string) *Error {
	clone := Clone(ErrValidation, "")
	clone.Fields = fields
	return clone
}

// FromError normalise n'importe quelle erreur en *Error.
// Les erreurs inconnues deviennent UPSTREAM_FAILURE avec un message générique.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrUpstream, "")
}

// Clone retourne une copie de l'erreur avec un message éventuellement remplacé
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if err.Fields != nil {
		clone.Fields = make(map[string]string, len(err.Fields))
		for k, v := range err.Fields {
			clone.Fields[k] = v
		}
	}
	return &clone
}
