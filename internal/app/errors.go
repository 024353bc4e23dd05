package app

import (
	"fmt"
	"net/http"
)

// DomainError is an error the HTTP layer can show to the client as is. Status
// becomes the response code and Code, Message and Details fill the
// {code, error, details} envelope.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	errNoteNotFound          = domainError(http.StatusNotFound, "NOT_FOUND", "Note not found", nil)
	errNotShared             = domainError(http.StatusNotFound, "NOT_SHARED", "Note is not shared", nil)
	errNoOrganization        = domainError(http.StatusForbidden, "NO_ORGANIZATION", "Set up an organization first", nil)
	errAlreadyInOrganization = domainError(http.StatusConflict, "ALREADY_IN_ORGANIZATION", "You already belong to an organization", nil)
)

func forbidden(message string) *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", message, nil)
}

// validationError is the 422 used for request bodies that decode but break a
// rule. details is nil or a list of {field, rule} pairs.
func validationError(message string, details any) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}
