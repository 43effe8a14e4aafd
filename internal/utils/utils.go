package utils

import (
	"math/rand"
	"strings"
)

// PickRandomString returns a random element of list, or "" when list is empty.
func PickRandomString(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[rand.Intn(len(list))]
}

// RandomInRange returns a pseudo-random int in [lo, hi).
func RandomInRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.Intn(hi-lo)
}

// RandomUpperLetter returns a random letter between 'A' and 'Z'.
func RandomUpperLetter() string {
	return string(rune('A' + rand.Intn(26)))
}

// FirstNonEmpty returns the first value that is not empty, or "".
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// TrimSlashJoin joins a base URL and a path with exactly one slash between them.
func TrimSlashJoin(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
