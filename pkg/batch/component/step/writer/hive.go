package writer

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// DefaultPartitionName is the directory value used for an empty partition value.
const DefaultPartitionName = "__HIVE_DEFAULT_PARTITION__"

// PartitionValue is one column=value segment of a partition path.
type PartitionValue struct {
	Column string
	Value  string
}

// Int formats an integer partition value.
func Int(column string, v int) PartitionValue {
	return PartitionValue{Column: column, Value: fmt.Sprintf("%d", v)}
}

// String formats a string partition value.
func String(column, v string) PartitionValue {
	return PartitionValue{Column: column, Value: v}
}

// PartitionPath renders values as a Hive-style path, e.g. "year=2018/artist_id=AR1".
func PartitionPath(values []PartitionValue) string {
	segments := make([]string, 0, len(values))
	for _, v := range values {
		segments = append(segments, EscapePathName(v.Column)+"="+escapeValue(v.Value))
	}
	return path.Join(segments...)
}

func escapeValue(v string) string {
	if v == "" {
		return DefaultPartitionName
	}
	return EscapePathName(v)
}

// EscapePathName percent-encodes the characters that cannot appear in a
// partition directory name.
func EscapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscaping(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapePathName reverses EscapePathName.
func UnescapePathName(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if c, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(c))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func needsEscaping(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}
