package domain

import (
	"fmt"
	"strings"
)

// PlaceholderProject is the project id shipped in sample configuration.
const PlaceholderProject = "your-project-id-here"

// ValidateProject rejects an empty or placeholder cloud project id.
func ValidateProject(project string) error {
	project = strings.TrimSpace(project)
	if project == "" {
		return fmt.Errorf("%w: cloud project id is not set", ErrConfiguration)
	}
	if project == PlaceholderProject {
		return fmt.Errorf("%w: cloud project id is still the placeholder %q", ErrConfiguration, PlaceholderProject)
	}
	return nil
}
