package export

import (
	"regexp"
	"strings"
)

const maxFilenameRunes = 100

var (
	reservedFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	filenameWhitespace    = regexp.MustCompile(`\s+`)
)

// SanitizeFilename derives a download name from a note title: characters
// that are reserved on common filesystems are dropped, whitespace runs become
// underscores and the result is cut to 100 characters.
func SanitizeFilename(title string) string {
	name := reservedFilenameChars.ReplaceAllString(title, "")
	name = filenameWhitespace.ReplaceAllString(name, "_")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if runes := []rune(name); len(runes) > maxFilenameRunes {
		name = string(runes[:maxFilenameRunes])
	}
	if name == "" {
		return "untitled"
	}
	return name
}
