package internal

import "strings"

// FallbackEditor is used when neither VISUAL nor EDITOR is set.
const FallbackEditor = "vi"

// ResolveEditor picks the editor command: VISUAL, then EDITOR, then
// FallbackEditor. getenv is usually os.Getenv.
func ResolveEditor(getenv func(string) string) string {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
	}
	return FallbackEditor
}
