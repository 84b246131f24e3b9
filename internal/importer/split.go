package importer

import "strings"

// SplitLine tokenizes one comma-separated row. A field starting with '"'
// runs to the next unescaped '"' (a backslash escapes a quote); anything
// between that quote and the next comma is dropped. Adjacent commas yield
// empty fields. Doubled quotes are not an escape.
func SplitLine(line string) []string {
	var fields []string
	i := 0
	for {
		if i < len(line) && line[i] == '"' {
			var sb strings.Builder
			j := i + 1
			for j < len(line) {
				if line[j] == '\\' && j+1 < len(line) && line[j+1] == '"' {
					sb.WriteByte('"')
					j += 2
					continue
				}
				if line[j] == '"' {
					break
				}
				sb.WriteByte(line[j])
				j++
			}
			fields = append(fields, sb.String())
			k := strings.IndexByte(line[j:], ',')
			if k < 0 {
				return fields
			}
			i = j + k + 1
			continue
		}

		k := strings.IndexByte(line[i:], ',')
		if k < 0 {
			return append(fields, line[i:])
		}
		fields = append(fields, line[i:i+k])
		i += k + 1
	}
}
