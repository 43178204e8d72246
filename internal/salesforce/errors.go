package salesforce

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/wesm/suitedash/internal/records"
)

// Error is a failure that carries an HTTP status, either from Salesforce
// itself or from local validation of the credentials. Detail is a string or
// the decoded JSON body returned upstream.
type Error struct {
	Status int
	Detail any
}

func (e *Error) Error() string {
	return fmt.Sprintf("salesforce (%d): %s", e.Status, records.Stringify(e.Detail))
}

func newError(status int, format string, args ...any) *Error {
	return &Error{Status: status, Detail: fmt.Sprintf(format, args...)}
}

// StatusOf returns the status carried by err, or 500 when err is not a
// *Error.
func StatusOf(err error) int {
	var sfErr *Error
	if errors.As(err, &sfErr) && sfErr.Status > 0 {
		return sfErr.Status
	}
	return http.StatusInternalServerError
}

// DetailOf returns the detail carried by err, or err.Error().
func DetailOf(err error) any {
	var sfErr *Error
	if errors.As(err, &sfErr) {
		return sfErr.Detail
	}
	return err.Error()
}
