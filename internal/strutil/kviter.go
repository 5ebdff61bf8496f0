package strutil

import (
	"iter"
	"strings"
)

var (
	// tchar as defined by RFC 9110, section 5.6.2
	keyChars = charset("!#$%&'*+-.^_`|~")
	// boundaries are allowed to contain some of separators as well (RFC 2046, section 5.1.1)
	valueChars = charset("!#$%&'*+-.^_`|~()/:?,=<>[]{}@")
)

func charset(special string) (table [256]bool) {
	for c := '0'; c <= '9'; c++ {
		table[c] = true
	}

	for c := 'a'; c <= 'z'; c++ {
		table[c] = true
		table[c-'a'+'A'] = true
	}

	for i := 0; i < len(special); i++ {
		table[special[i]] = true
	}

	return table
}

// WalkKV iterates over semicolon-separated parameters, like ones following a header value.
// Values may be quoted, in which case they are unquoted. A key without value is yielded
// with an empty value. Once malformed input is encountered, a pair of empty strings is
// yielded and the iteration stops.
func WalkKV(data string) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for {
			eq := strings.IndexByte(data, '=')
			if eq == -1 {
				if !isValid(data, &keyChars) {
					yield("", "")
					return
				}

				yield(data, "")
				return
			}

			key := data[:eq]
			if !isValid(key, &keyChars) {
				yield("", "")
				return
			}

			value, rest, ok := cutValue(data[eq+1:])
			if !ok {
				yield("", "")
				return
			}

			if !yield(key, value) {
				return
			}

			if len(rest) == 0 {
				return
			}

			data = LStripWS(rest[1:])
		}
	}
}

// cutValue returns the value and the rest, which is either empty or starts with a semicolon.
func cutValue(data string) (value, rest string, ok bool) {
	if len(data) > 0 && data[0] == '"' {
		return cutQuoted(data)
	}

	sep := strings.IndexByte(data, ';')
	if sep == -1 {
		sep = len(data)
	}

	value = RStripWS(data[:sep])
	return value, data[sep:], isValid(value, &valueChars)
}

func cutQuoted(data string) (value, rest string, ok bool) {
	escaped := false

	for i := 1; i < len(data); i++ {
		switch data[i] {
		case '\\':
			escaped = true
			i++
		case '"':
			value, rest = data[1:i], LStripWS(data[i+1:])
			if len(rest) > 0 && rest[0] != ';' {
				return "", "", false
			}

			if escaped {
				value = unescape(value)
			}

			return value, rest, true
		case '\r', '\n':
			return "", "", false
		}
	}

	return "", "", false
}

func unescape(str string) string {
	var b strings.Builder
	b.Grow(len(str))

	for i := 0; i < len(str); i++ {
		if str[i] == '\\' && i+1 < len(str) {
			i++
		}

		b.WriteByte(str[i])
	}

	return b.String()
}

func isValid(str string, table *[256]bool) bool {
	if len(str) == 0 {
		return false
	}

	for i := 0; i < len(str); i++ {
		if !table[str[i]] {
			return false
		}
	}

	return true
}

// IsToken tells whether the string is a non-empty token, like a media type or a
// disposition type.
func IsToken(str string) bool {
	return isValid(str, &valueChars)
}
