package evolution

import (
	"errors"
	"fmt"
)

// ErrNoGenome is returned when the home location holds no stored genome.
var ErrNoGenome = errors.New("no genome stored at home")

// ConfigurationError reports that an engine could not be built for a home.
type ConfigurationError struct {
	Home string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("evolution at %s: %v", e.Home, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
