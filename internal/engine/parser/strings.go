package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholderRE = regexp.MustCompile(`"(\d+)"`)

// maskStrings replaces every quoted literal with a "N" placeholder indexing
// the returned slice. Doubled quotes inside a literal are kept as part of it.
func maskStrings(line string) (string, []string) {
	if !strings.ContainsAny(line, `"'`) {
		return line, nil
	}
	var (
		b    strings.Builder
		lits []string
	)
	for i := 0; i < len(line); {
		c := line[i]
		if c != '"' && c != '\'' {
			b.WriteByte(c)
			i++
			continue
		}
		end := closingQuote(line, i)
		if end < 0 {
			b.WriteString(line[i:])
			break
		}
		lits = append(lits, line[i:end+1])
		fmt.Fprintf(&b, `"%d"`, len(lits)-1)
		i = end + 1
	}
	return b.String(), lits
}

func closingQuote(s string, start int) int {
	q := s[start]
	for i := start + 1; i < len(s); i++ {
		if s[i] != q {
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			i++
			continue
		}
		return i
	}
	return -1
}

// restoreStrings undoes maskStrings.
func restoreStrings(line string, lits []string) string {
	if len(lits) == 0 {
		return line
	}
	return placeholderRE.ReplaceAllStringFunc(line, func(m string) string {
		n, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || n >= len(lits) {
			return m
		}
		return lits[n]
	})
}

// parenSplit splits s at sep wherever sep is not nested in () or [].
func parenSplit(sep byte, s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// stripParen returns the text found at exactly the given parenthesis depth.
// Every group nested deeper is collapsed to "()", and each enclosing group
// at that depth yields its own segment. An empty result means nothing is
// nested that deep.
func stripParen(s string, level int) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
		have  bool
	)
	flush := func() {
		if have {
			out = append(out, cur.String())
		}
		cur.Reset()
		have = false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(':
			if depth == level {
				cur.WriteString("()")
				have = true
			}
			depth++
			if depth == level {
				flush()
				have = true
			}
		case c == ')':
			if depth == level {
				flush()
			}
			depth--
		case depth == level:
			cur.WriteByte(c)
			have = true
		}
	}
	if depth >= level {
		flush()
	}
	return out
}

// getParens returns the leading parenthesised group of s, or a "*N" length
// selector, stopping at the first letter, underscore, colon, comma or space
// outside any parentheses.
func getParens(s string) (string, error) {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case depth == 0 && (isLetter(c) || c == '_' || c == ':' || c == ',' || c == ' '):
			return s[:i], nil
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("unbalanced parentheses in %q", s)
	}
	return s, nil
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// splitNames splits a comma separated name list, dropping empty entries.
func splitNames(s string) []string {
	var out []string
	for _, part := range parenSplit(',', s) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
