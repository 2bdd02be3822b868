package parser

import (
	"regexp"
	"strings"
)

var metaRE = regexp.MustCompile(`^\s*(\w+)\s*:\s*(.*?)\s*$`)

var metaKeys = map[string]bool{
	"display":        true,
	"proc_internals": true,
	"summary":        true,
	"author":         true,
	"version":        true,
	"deprecated":     true,
	"date":           true,
	"license":        true,
	"category":       true,
}

// readMeta strips leading "key: value" lines with known keys from doc,
// plus one blank line after them.
func readMeta(doc []string) (map[string]string, []string) {
	var meta map[string]string
	i := 0
	for ; i < len(doc); i++ {
		m := metaRE.FindStringSubmatch(doc[i])
		if m == nil {
			break
		}
		key := strings.ToLower(m[1])
		if !metaKeys[key] {
			break
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[key] = m[2]
	}
	if i == 0 {
		return nil, doc
	}
	if i < len(doc) && strings.TrimSpace(doc[i]) == "" {
		i++
	}
	return meta, doc[i:]
}
