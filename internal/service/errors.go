// internal/service/errors.go
package service

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by queries issued before a successful Connect
var ErrNotConnected = errors.New("passerelle non connectée")

// ValidationError reports the first invalid field of a config update
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func rangeError(field string, value, min, max int) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s doit être compris entre %d et %d (reçu: %d)", field, min, max, value),
	}
}
