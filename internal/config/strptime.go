package config

import "fmt"

// strptime directives mapped to Go reference-time fragments. %f assumes it
// follows "%S." in the format, which is where every feed so far puts it.
var strptimeToGo = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'f': "000000",
	'p': "PM",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'z': "-0700",
	'Z': "MST",
}

// strptimeLayout converts a strptime-style format string into a Go time
// layout. Directives with no Go equivalent are rejected so a bad format
// fails at startup instead of on the first matching email.
func strptimeLayout(format string) (string, error) {
	out := make([]byte, 0, len(format))
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '%' {
			out = append(out, ch)
			continue
		}
		i++
		if i >= len(format) {
			return "", fmt.Errorf("format %q ends with a bare %%", format)
		}
		d := format[i]
		if d == '%' {
			out = append(out, '%')
			continue
		}
		frag, ok := strptimeToGo[d]
		if !ok {
			return "", fmt.Errorf("format %q: unsupported directive %%%c", format, d)
		}
		out = append(out, frag...)
	}
	return string(out), nil
}
