package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration and reports every problem found.
func (c QwenAuthConfig) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.CredentialsPath) == "" {
		errs.Add("credentialsPath", "is required", c.CredentialsPath)
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs.Add("listen", "must be host:port", c.Listen)
	}

	validateNonNegative(&errs, "governor.minInterval", c.Governor.MinInterval)
	validateNonNegative(&errs, "governor.jitterMin", c.Governor.JitterMin)
	validateNonNegative(&errs, "governor.jitterMax", c.Governor.JitterMax)
	if c.Governor.JitterMax < c.Governor.JitterMin {
		errs.Add("governor.jitterMax", "must not be less than governor.jitterMin", c.Governor.JitterMax)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateNonNegative(errs *ValidationErrors, field string, d time.Duration) {
	if d < 0 {
		errs.Add(field, "must not be negative", d)
	}
}
