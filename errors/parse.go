package errors

import (
	"strconv"
	"strings"
)

// parse strips the ${...} item marker from format and returns the cleaned
// format together with the marked item. A marker holding a verb such as
// ${%q} or ${%[2]d} resolves the item from args, anything else is taken
// literally.
func parse(format string, args ...any) (string, any) {
	start := strings.Index(format, "${")
	if start < 0 {
		return format, nil
	}
	end := strings.IndexByte(format[start:], '}')
	if end < 0 {
		return format, nil
	}
	end += start

	inner := format[start+2 : end]
	cleaned := format[:start] + inner + format[end+1:]

	if !strings.HasPrefix(inner, "%") {
		return cleaned, inner
	}

	n := verbIndex(format[:start])
	if open := strings.IndexByte(inner, '['); open >= 0 {
		if closing := strings.IndexByte(inner, ']'); closing > open {
			if pos, err := strconv.Atoi(inner[open+1 : closing]); err == nil && pos > 0 {
				n = pos - 1
			}
		}
	}
	if n < 0 || n >= len(args) {
		return cleaned, nil
	}
	return cleaned, args[n]
}

// verbIndex counts formatting verbs in s, ignoring escaped %%.
func verbIndex(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}
