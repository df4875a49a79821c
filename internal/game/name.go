package game

import (
	"path/filepath"
	"strings"
	"unicode"
)

const safeNameLimit = 30

// SafeName turns a display name into a file name stem: letters, digits and
// underscores only, at most 30 runes. Empty results become "game".
func SafeName(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == safeNameLimit {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			n++
		}
	}
	if b.Len() == 0 {
		return "game"
	}
	return b.String()
}

// NameFromPath derives a display name from an executable path (its stem).
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
