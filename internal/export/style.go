package export

import (
	"regexp"
	"strings"
)

const defaultHighlight = "#ffff00"

// colorRegexp accepts hex colours, rgb()/rgba()/hsl()/hsla() with numeric
// arguments and bare keywords such as "yellow" or "inherit".
var colorRegexp = regexp.MustCompile(`^(#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})` +
	`|rgba?\(\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*,\s*\d{1,3}%?\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%))?\s*\)` +
	`|hsla?\(\s*\d{1,3}(?:deg)?\s*,\s*\d{1,3}%\s*,\s*\d{1,3}%\s*(?:,\s*(?:0|1|0?\.\d+|\d{1,3}%))?\s*\)` +
	`|[a-zA-Z]{3,24})$`)

// highlightColor returns the colour to emit for a highlight mark. Anything
// that is not a plain CSS colour falls back to the default yellow.
func highlightColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" || !colorRegexp.MatchString(color) {
		return defaultHighlight
	}
	return color
}

var alignRegexp = regexp.MustCompile(`^(?i)(left|center|right|justify)$`)

// textAlign returns the alignment keyword to emit, or "" when the value is
// absent or not one of left, center, right and justify.
func textAlign(align string) string {
	align = strings.TrimSpace(align)
	if align == "" || !alignRegexp.MatchString(align) {
		return ""
	}
	return strings.ToLower(align)
}
