package reader

import "strings"

const fixedWidth = 72

// fixedToFree rewrites fixed-form lines into free form: comment markers in
// column 1 become "!", column 6 continuations become a trailing "&" on the
// previous code line, and the label field is kept in front of the statement.
func fixedToFree(lines []string, limit bool) []string {
	out := make([]string, len(lines))
	lastCode := -1
	for i, raw := range lines {
		line := strings.ReplaceAll(raw, "\t", "      ")
		if limit && len(line) > fixedWidth {
			line = line[:fixedWidth]
		}
		if line == "" {
			continue
		}
		switch line[0] {
		case 'c', 'C', '*', 'd', 'D', '!':
			out[i] = "!" + line[1:]
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) > 5 && line[5] != ' ' && line[5] != '0' && strings.TrimSpace(line[:5]) == "" {
			if lastCode >= 0 {
				code, comment, _ := splitComment(out[lastCode], 0)
				out[lastCode] = strings.TrimRight(code, " ") + "&" + comment
			}
			out[i] = "&" + line[6:]
			lastCode = i
			continue
		}
		label := line
		body := ""
		if len(line) > 6 {
			label, body = line[:5], line[6:]
		} else if len(line) > 5 {
			label = line[:5]
		}
		out[i] = strings.TrimSpace(label + " " + body)
		lastCode = i
	}
	return out
}
