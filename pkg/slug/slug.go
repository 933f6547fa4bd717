package slug

import (
	"strings"
	"unicode"
)

var replacements = map[rune]string{
	'á': "a", 'é': "e", 'í': "i", 'ó': "o", 'ú': "u", 'ü': "u", 'ñ': "n",
	'Á': "a", 'É': "e", 'Í': "i", 'Ó': "o", 'Ú': "u", 'Ü': "u", 'Ñ': "n",
}

// Make turns a display name into a lowercase URL slug. Accented characters
// common in Spanish product names are transliterated instead of dropped.
func Make(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.TrimSpace(name) {
		if repl, ok := replacements[r]; ok {
			b.WriteString(repl)
			lastDash = false
			continue
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
