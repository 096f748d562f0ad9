package diag

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const ellipsis = "..."

// Format renders e as one line:
//
//	[<node>] <event> key=value key=value
//
// The result is valid UTF-8, contains no control characters, and is at
// most maxBytes long when maxBytes is positive.
func Format(e Event, maxBytes int) string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(clean(e.Node))
	b.WriteString("] ")
	b.WriteString(clean(e.Name))
	for _, f := range e.Fields {
		b.WriteByte(' ')
		b.WriteString(clean(f.Key))
		b.WriteByte('=')
		b.WriteString(formatValue(f.Value))
	}
	return truncate(b.String(), maxBytes)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quoteIfNeeded(clean(x))
	case []byte:
		return quoteIfNeeded(clean(string(x)))
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	default:
		return quoteIfNeeded(clean(fmt.Sprint(x)))
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"") {
		return strconv.Quote(s)
	}
	return s
}

// clean replaces invalid UTF-8 and escapes control characters.
func clean(s string) string {
	if !utf8.ValidString(s) {
		fixed, _, err := transform.String(runes.ReplaceIllFormed(), s)
		if err != nil {
			fixed = strings.ToValidUTF8(s, string(utf8.RuneError))
		}
		s = fixed
	}

	if strings.IndexFunc(s, unicode.IsControl) < 0 {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) {
			b.WriteRune(r)
			continue
		}
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x100 {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		}
	}
	return b.String()
}

// truncate cuts s to at most limit bytes on a rune boundary.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return ellipsis[:limit]
	}
	cut := limit - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}
