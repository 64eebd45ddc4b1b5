package utils

import (
	"sort"
	"strings"
)

// InfoSection is one "# Name" block of an INFO reply.
type InfoSection struct {
	Name   string
	Fields map[string]string
}

// FormatInfo renders sections in the given order with their fields sorted
// by name, one "name:value" per CRLF-terminated line. Sections are separated
// by a blank line.
func FormatInfo(sections ...InfoSection) string {
	var b strings.Builder
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\r\n")
		}
		if sec.Name != "" {
			b.WriteString("# ")
			b.WriteString(sec.Name)
			b.WriteString("\r\n")
		}

		keys := make([]string, 0, len(sec.Fields))
		for k := range sec.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteByte(':')
			b.WriteString(sec.Fields[k])
			b.WriteString("\r\n")
		}
	}
	return b.String()
}
