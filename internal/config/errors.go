package config

import "fmt"

// StartupConfigError reports a required setting that is missing. It is
// fatal: nothing is constructed when Load returns it.
type StartupConfigError struct {
	Key    string
	EnvVar string
}

func (e *StartupConfigError) Error() string {
	return fmt.Sprintf("missing required configuration %q (set %s)", e.Key, e.EnvVar)
}
