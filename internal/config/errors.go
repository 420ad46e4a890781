package config

import "fmt"

// ConfigurationError reports an invalid setup value. It is raised before any
// pipeline state is built, so a caller seeing one knows nothing partial was
// produced.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// Errorf builds a ConfigurationError with a formatted reason.
func Errorf(field, format string, v ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, v...)}
}
