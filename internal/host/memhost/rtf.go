package memhost

import (
	"strconv"
	"strings"
)

// StripRTF removes pseudo-RTF markup: groups, control words and control
// symbols. \par becomes a newline. \uN escapes become the rune they name
// and skip one fallback character when it is "?".
func StripRTF(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{', '}':
			continue
		case '\\':
			if i+1 >= len(s) {
				continue
			}
			next := s[i+1]
			if next == '\\' || next == '{' || next == '}' {
				b.WriteByte(next)
				i++
				continue
			}
			if !isLetter(next) {
				i++
				continue
			}
			j := i + 1
			for j < len(s) && isLetter(s[j]) {
				j++
			}
			word := s[i+1 : j]
			k := j
			if k < len(s) && s[k] == '-' {
				k++
			}
			for k < len(s) && s[k] >= '0' && s[k] <= '9' {
				k++
			}
			param := s[j:k]
			if word == "par" {
				b.WriteByte('\n')
			}
			if word == "u" && param != "" {
				if n, err := strconv.Atoi(param); err == nil {
					if n < 0 {
						n += 65536
					}
					b.WriteRune(rune(n))
				}
				if k < len(s) && s[k] == '?' {
					k++
				}
			} else if k < len(s) && s[k] == ' ' {
				k++
			}
			i = k - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
