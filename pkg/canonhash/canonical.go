package canonhash

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CanonicalBytes renders v as the kernel's canonical byte encoding:
// sorted object keys, no insignificant whitespace, and a minimal string
// escaper that leaves UTF-8 untouched (equivalent to ensure_ascii=False).
// Arrays preserve their element order; only object keys are sorted.
func CanonicalBytes(v Value) []byte {
	var buf strings.Builder
	writeCanonical(&buf, v)
	return []byte(buf.String())
}

func writeCanonical(buf *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindString:
		writeCanonicalString(buf, v.s)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, e)
		}
		buf.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, v.obj[k])
		}
		buf.WriteByte('}')
	default:
		panic(fmt.Sprintf("canonhash: unreachable Kind %d", v.kind))
	}
}

// writeCanonicalString escapes only the characters JSON requires --
// quote, backslash, and control characters below 0x20 -- leaving every
// other byte of a valid UTF-8 string untouched.
func writeCanonicalString(buf *strings.Builder, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}
