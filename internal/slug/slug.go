package slug

import (
	"regexp"
	"strings"
)

var reIcon = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,39}$`)

// DefaultIcon is used when a category is created without one.
const DefaultIcon = "fa-tag"

// IsIcon returns true if s matches ^[a-z0-9][a-z0-9_-]{1,39}$
func IsIcon(s string) bool {
	return reIcon.MatchString(s)
}

// Icon lowercases s and replaces anything outside [a-z0-9_-] with '-',
// collapsing repeats and trimming to 40. Empty input yields DefaultIcon.
func Icon(s string) string {
	out := make([]rune, 0, len(s))
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			if r == '-' && prevDash {
				continue
			}
			out = append(out, r)
			prevDash = r == '-'
		} else if !prevDash {
			out = append(out, '-')
			prevDash = true
		}
		if len(out) >= 40 {
			break
		}
	}
	res := strings.Trim(string(out), "-_")
	if !IsIcon(res) {
		return DefaultIcon
	}
	return res
}

// NameKey folds a display name for case-insensitive uniqueness checks:
// lowercased, inner whitespace collapsed.
func NameKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
