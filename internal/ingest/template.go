package ingest

import (
	"fmt"
	"strings"
)

// ExpandTemplate substitutes {name} placeholders with values. "{{" and "}}"
// produce literal braces. A placeholder with no value is a ConfigError: the
// template names a capture the subject pattern never produced.
func ExpandTemplate(tmpl string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", &ConfigError{Detail: fmt.Sprintf("template %q has an unclosed placeholder", tmpl)}
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" {
				return "", &ConfigError{Detail: fmt.Sprintf("template %q has an empty placeholder", tmpl)}
			}
			value, ok := values[name]
			if !ok {
				return "", &ConfigError{Detail: fmt.Sprintf("template %q references undefined capture %q", tmpl, name)}
			}
			b.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", &ConfigError{Detail: fmt.Sprintf("template %q has a stray '}'", tmpl)}
		default:
			b.WriteByte(tmpl[i])
		}
	}
	return b.String(), nil
}
