package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// cyrillic maps lower-case Russian letters to their Latin spelling.
// Hard and soft signs map to nothing.
var cyrillic = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "e", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sch", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "ju", 'я': "ja",
}

// Transliterate rewrites Russian letters in Latin, keeping the case of the
// first letter of each replacement. Other characters pass through.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		latin, ok := cyrillic[unicode.ToLower(r)]
		if !ok {
			b.WriteRune(r)
			continue
		}
		if latin == "" {
			continue
		}
		if unicode.IsUpper(r) {
			first, size := utf8.DecodeRuneInString(latin)
			b.WriteRune(unicode.ToUpper(first))
			b.WriteString(latin[size:])
			continue
		}
		b.WriteString(latin)
	}

	return b.String()
}
