package cli

import (
	"errors"
	"fmt"

	"github.com/jlrickert/sitedoc/pkg/store"
)

// renderUserError turns store errors into short messages with a hint of what
// to do next.
func renderUserError(err error) string {
	if err == nil {
		return ""
	}

	var cwe *store.ConcurrentWriteError
	if errors.As(err, &cwe) {
		return "another write is in progress; try again in a moment"
	}

	var nf *store.VersionNotFoundError
	if errors.As(err, &nf) {
		return fmt.Sprintf("version %q not found (run `sitedoc versions` to list them)", nf.Filename)
	}

	var iv *store.InvalidVersionError
	if errors.As(err, &iv) {
		return fmt.Sprintf("version %q cannot be restored: %v", iv.Filename, iv.Cause)
	}

	return err.Error()
}
