package skeleton

import "fmt"

// ConfigurationError reports a malformed joint hierarchy. It is raised when
// a hierarchy is constructed, never during export.
type ConfigurationError struct {
	Profile string
	Joint   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Joint == "" {
		return fmt.Sprintf("skeleton %q: %s", e.Profile, e.Reason)
	}
	return fmt.Sprintf("skeleton %q: joint %q: %s", e.Profile, e.Joint, e.Reason)
}
