package script

import (
	"bytes"
	"strings"
)

// Minify does a conservative whitespace pass over JS source: trims
// trailing whitespace from each line, drops blank lines, and strips
// full-line "//" comments. It deliberately does not touch string/template
// literal contents or attempt statement-level minification, since Go has
// no JS parser in scope here and a naive one risks corrupting ASI-sensitive
// code.
func Minify(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		stripped := strings.TrimLeft(trimmed, " \t")
		if stripped == "" {
			continue
		}
		if strings.HasPrefix(stripped, "//") {
			continue
		}
		out = append(out, trimmed)
	}
	var buf bytes.Buffer
	buf.WriteString(strings.Join(out, "\n"))
	return buf.Bytes()
}
