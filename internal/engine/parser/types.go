package parser

import (
	"fmt"
	"regexp"
	"strings"

	"fortdoc/internal/engine/model"
)

var spaceRE = regexp.MustCompile(`\s`)

// parsedType is the type specifier at the front of a declaration.
type parsedType struct {
	vartype string
	rest    string
	kind    string
	strlen  string
	proto   *model.Proto
}

// parseType splits the type specifier off a declaration. lits restores
// masked string literals in character kind selectors.
func (ps patternSet) parseType(s string, lits []string) (parsedType, error) {
	loc := ps.vartype.FindStringIndex(s)
	if loc == nil {
		return parsedType{}, fmt.Errorf("invalid variable declaration: %s", s)
	}
	vartype := strings.ToLower(s[:loc[1]])
	switch {
	case doublePrecRE.MatchString(vartype):
		vartype = "double precision"
	case doubleCmplxRE.MatchString(vartype):
		vartype = "double complex"
	}
	rest := strings.TrimSpace(s[loc[1]:])
	kindstr, err := getParens(rest)
	if err != nil {
		return parsedType{}, err
	}
	rest = strings.TrimSpace(rest[len(kindstr):])
	pt := parsedType{vartype: vartype, rest: rest}

	if len(kindstr) < 3 && !derivedOrChar(vartype) && !strings.HasPrefix(kindstr, "*") {
		return pt, nil
	}

	m := varKindRE.FindStringSubmatch(kindstr)
	if m == nil {
		if vartype == "character" {
			pt.strlen = "1"
			return pt, nil
		}
		return parsedType{}, fmt.Errorf("bad declaration of variable type %q: %s", vartype, s)
	}
	star := m[1] == "" && m[2] != ""
	args := strings.TrimSpace(m[1])
	if star {
		args = strings.TrimSpace(m[2])
		if strings.HasPrefix(args, "(") {
			args = strings.TrimSpace(args[1 : len(args)-1])
		}
	}
	args = spaceRE.ReplaceAllString(args, "")

	switch vartype {
	case "type", "class", "procedure":
		pm := protoRE.FindStringSubmatch(args)
		if pm == nil {
			return parsedType{}, fmt.Errorf("bad type, class or procedure prototype: %s", args)
		}
		pt.proto = &model.Proto{Name: pm[1], Args: pm[2]}
		return pt, nil
	case "character":
		if star {
			pt.strlen = args
			return pt, nil
		}
		return characterParams(pt, args, s, lits)
	}

	if km := kindRE.FindStringSubmatch(args); km != nil {
		pt.kind = km[1]
	} else {
		pt.kind = args
	}
	return pt, nil
}

func derivedOrChar(vartype string) bool {
	switch vartype {
	case "type", "class", "character":
		return true
	}
	return false
}

// characterParams reads len and kind, named in any order or positional
// with len first.
func characterParams(pt parsedType, args, decl string, lits []string) (parsedType, error) {
	parts := strings.Split(args, ",")
	if len(parts) > 2 {
		return parsedType{}, fmt.Errorf("bad declaration of character, too many parameters: %s", decl)
	}
	var length, kind string
	var haveLen, haveKind bool
	for _, arg := range parts {
		if !haveLen {
			if lm := lenRE.FindStringSubmatch(arg); lm != nil {
				length = lm[1]
				if length == "" {
					length = lm[2]
				}
				haveLen = true
				continue
			}
		}
		if !haveKind {
			if km := kindRE.FindStringSubmatch(arg); km != nil {
				kind = restoreStrings(km[1], lits)
				haveKind = true
				continue
			}
		}
		switch {
		case !haveLen:
			length, haveLen = arg, true
		case !haveKind:
			kind, haveKind = arg, true
		}
	}
	if !haveLen {
		length = "1"
	}
	pt.strlen = length
	pt.kind = kind
	return pt, nil
}

// removeKindSuffix strips the kind suffix of a numeric literal (1_int8).
func removeKindSuffix(lit string) string {
	if m := kindSuffixRE.FindStringSubmatch(lit); m != nil {
		return m[1]
	}
	return lit
}
