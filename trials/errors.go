package trials

import (
	"fmt"
	"strings"
)

// ConfigurationError means the catalog or policy cannot support generation.
type ConfigurationError struct {
	Role     string
	Category string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("configuration: %s category %q: %s", e.Role, e.Category, e.Reason)
	}
	return fmt.Sprintf("configuration: no images found for %s: %s", e.Role, e.Category)
}

// MissingImageError is returned by Replay when a recorded name is not in the catalog.
type MissingImageError struct {
	Name      string
	Available []string
}

func (e *MissingImageError) Error() string {
	return fmt.Sprintf("no image by name %s found. Found images: %s", e.Name, strings.Join(e.Available, ","))
}

// ExhaustedSamplingError is returned when rejection sampling hits its attempt
// cap before a trial could be filled.
type ExhaustedSamplingError struct {
	Type     TrialType
	Have     int
	Attempts int
}

func (e *ExhaustedSamplingError) Error() string {
	return fmt.Sprintf("sampling exhausted for %s trial: %d/%d images after %d attempts",
		e.Type, e.Have, TrialSize, e.Attempts)
}
