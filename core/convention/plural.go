package convention

import "strings"

// Pluralize returns the plural form of a word, used to derive storage
// collection names from singular entity names.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}

	lower := strings.ToLower(word)

	if plural, ok := irregularPlurals[lower]; ok {
		return plural
	}

	// Words ending in 's', 'x', 'z', 'ch', 'sh' take 'es'
	if strings.HasSuffix(lower, "s") ||
		strings.HasSuffix(lower, "x") ||
		strings.HasSuffix(lower, "z") ||
		strings.HasSuffix(lower, "ch") ||
		strings.HasSuffix(lower, "sh") {
		return lower + "es"
	}

	// Consonant + 'y' becomes 'ies'
	if strings.HasSuffix(lower, "y") && len(lower) > 1 && !isVowel(rune(lower[len(lower)-2])) {
		return lower[:len(lower)-1] + "ies"
	}

	if strings.HasSuffix(lower, "fe") {
		return lower[:len(lower)-2] + "ves"
	}
	if strings.HasSuffix(lower, "f") {
		return lower[:len(lower)-1] + "ves"
	}

	return lower + "s"
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}

// Common irregular plurals.
var irregularPlurals = map[string]string{
	"person": "people",
	"man":    "men",
	"woman":  "women",
	"child":  "children",
	"mouse":  "mice",
	"index":  "indices",
	"schema": "schemas",
	"status": "statuses",
	"datum":  "data",
}
