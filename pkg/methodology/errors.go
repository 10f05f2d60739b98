package methodology

import "fmt"

// ConfigurationError indicates an unusable methodology configuration: an
// unknown methodology or strategy, zero strategies defined, or a malformed
// phase table. It is always fatal for the turn; the engine never substitutes
// a default strategy for a broken configuration.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("methodology configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("methodology configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
