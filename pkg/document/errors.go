package document

import (
	"fmt"
	"strings"
)

// MissingSectionsError reports required sections absent from a document.
type MissingSectionsError struct {
	Sections []string
}

func (e *MissingSectionsError) Error() string {
	return fmt.Sprintf("missing required sections: %s", strings.Join(e.Sections, ", "))
}

// MalformedSectionError reports a required section that is present but does
// not satisfy its minimal shape.
type MalformedSectionError struct {
	Section string
	Reason  string
}

func (e *MalformedSectionError) Error() string {
	return fmt.Sprintf("malformed section %q: %s", e.Section, e.Reason)
}
