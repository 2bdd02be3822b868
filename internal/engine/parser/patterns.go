package parser

import (
	"regexp"
	"strings"
)

// Statement patterns, tried in the order the builder lists them. The first
// match wins, so block terminators are checked before declarations.
var (
	attribRE = regexp.MustCompile(`(?i)^(asynchronous|allocatable|bind\s*\(.*\)|data|dimension|external|intent\s*\(\s*\w+\s*\)|optional|parameter|` +
		`pointer|private|protected|public|save|target|value|volatile)(?:\s+|\s*::\s*)((/|\(|\w).*?)\s*$`)
	endRE       = regexp.MustCompile(`(?i)^end\s*(?:(module|submodule|subroutine|function|procedure|program|type|interface|enum|block\sdata|block|associate)(?:\s+(\w.*))?)?$`)
	blockRE     = regexp.MustCompile(`(?i)^(\w+\s*:)?\s*block\s*$`)
	blockDataRE = regexp.MustCompile(`(?i)^block\s*data\s*(\w+)?\s*$`)
	associateRE = regexp.MustCompile(`(?i)^(\w+\s*:)?\s*associate\s*\((.+)\)\s*$`)
	enumRE      = regexp.MustCompile(`(?i)^enum\s*,\s*bind\s*\(.*\)\s*$`)
	modprocRE   = regexp.MustCompile(`(?i)^(module\s+)?procedure\s*(?:::|\s)\s*(\w.*)$`)
	moduleRE    = regexp.MustCompile(`(?i)^module(?:\s+(\w+))?$`)
	submoduleRE = regexp.MustCompile(`(?i)^submodule\s*\(\s*(\w+)\s*(?::\s*(\w+))?\s*\)\s*(\w+)$`)
	programRE   = regexp.MustCompile(`(?i)^program(?:\s+(\w+))?$`)

	subroutineRE = regexp.MustCompile(`(?i)^\s*(?:(.+?)\s+)?subroutine\s+(\w+)\s*(\([^()]*\))?(?:\s*bind\s*\(\s*(.*)\s*\))?$`)
	functionRE   = regexp.MustCompile(`(?i)^(?:(.+?)\s*)?function\s+(\w+)\s*(\([^()]*\))?(.*)$`)
	resultRE     = regexp.MustCompile(`(?i)result\s*\(\s*(\w+)\s*\)`)
	bindRE       = regexp.MustCompile(`(?i)bind\s*\(\s*(.*)\s*\)`)

	typeRE      = regexp.MustCompile(`(?i)^type(?:\s+|\s*(,.*)?::\s*)(\w+)\s*(\([^()]*\))?\s*$`)
	interfaceRE = regexp.MustCompile(`(?i)^(abstract\s+)?interface(?:\s+(.+))?$`)
	boundprocRE = regexp.MustCompile(`(?i)^(generic|procedure)\s*(\([^()]*\))?\s*(?:,\s*(\w[^:]*))?(?:\s*::)?\s*(\w.*)$`)
	commonRE    = regexp.MustCompile(`(?i)^common(?:\s*/\s*(\w+)\s*/\s*|\s+)(\w+.*)`)
	commonSplit = regexp.MustCompile(`(?i)\s*(/\s*\w+\s*/)\s*`)
	finalRE     = regexp.MustCompile(`(?i)^final\s*::\s*(\w.*)`)
	useRE       = regexp.MustCompile(`(?i)^use(?:\s*(?:,\s*(?:non_)?intrinsic\s*)?::\s*|\s+)(\w+)\s*($|,.*)`)
	arithGotoRE = regexp.MustCompile(`(?i)go\s*to\s*\([0-9,\s]+\)`)
	callRE      = regexp.MustCompile(`(?i)((?:(?:\s*\w+\s*(?:\(\))?\s*%\s*)+)?(?:\w+\s*\(.*?\)))`)
	subcallRE   = regexp.MustCompile(`(?i)^(?:if\s*\(.*\)\s*)?call\s+((?:.*%\s*)?(?:\w+\s*(?:\(\))?))`)
	formatRE    = regexp.MustCompile(`(?i)^[0-9]+\s+format\s+\(.*\)`)
	namelistRE  = regexp.MustCompile(`(?i)^namelist\s*/(\w+)/\s*((?:\w+,?\s*)+)`)

	memberAccessRE = regexp.MustCompile(`(?i)^\w+(?:\(\))?(?:%\w+(?:\(\))?)+`)
	callCleanRE    = regexp.MustCompile(`\(\)|\s`)
	tokenSplitRE   = regexp.MustCompile(`[,\s]+`)
	commaSplitRE   = regexp.MustCompile(`\s*,\s*`)
	pointsToRE     = regexp.MustCompile(`\s*=>\s*`)

	varKindRE     = regexp.MustCompile(`\((.*)\)|\*\s*(\d+|\(.*\))`)
	kindRE        = regexp.MustCompile(`(?i)^kind\s*=\s*([^,\s]+)`)
	kindSuffixRE  = regexp.MustCompile(`(?i)^(.*)_([a-z]\w*)$`)
	lenRE         = regexp.MustCompile(`(?i)^(?:len\s*=\s*(\w+|\*|:|\d+)|(\d+))`)
	attribSplitRE = regexp.MustCompile(`^,\s*(\w.*?)::\s*(.*)\s*`)
	attribSplit2  = regexp.MustCompile(`^\s*(::)?\s*(.*)\s*`)
	extendsRE     = regexp.MustCompile(`(?i)extends\s*\(\s*([^()\s]+)\s*\)`)
	doublePrecRE  = regexp.MustCompile(`(?i)^double\s*precision`)
	doubleCmplxRE = regexp.MustCompile(`(?i)^double\s*complex`)
	dimRE         = regexp.MustCompile(`^\w+\s*(\(.*\))\s*$`)
	protoRE       = regexp.MustCompile(`^(\*|\w+)\s*(?:\((.*)\))?`)
	commaNoSpace  = regexp.MustCompile(`,(\S)`)
	onlyRE        = regexp.MustCompile(`(?i)^\s*,\s*only\s*:\s*`)
	renameRE      = regexp.MustCompile(`(?i)(\w+)\s*=>\s*(\w+)`)
)

var baseVartypes = []string{
	`integer`, `real`, `double\s*precision`, `character`, `complex`,
	`double\s*complex`, `logical`, `type`, `class`, `procedure`, `enumerator`,
}

// patternSet holds the patterns that depend on user-defined type keywords.
type patternSet struct {
	variable *regexp.Regexp
	vartype  *regexp.Regexp
}

func newPatternSet(extra []string) patternSet {
	kinds := append(append([]string(nil), baseVartypes...), extra...)
	alt := strings.Join(kinds, "|")
	return patternSet{
		variable: regexp.MustCompile(`(?i)^(` + alt + `)\s*((?:\(|\s\w|[:,*]).*)$`),
		vartype:  regexp.MustCompile(`(?i)^(?:` + alt + `)`),
	}
}

var (
	typeIsRE     = regexp.MustCompile(`(?i)^\s+is`)
	classGuardRE = regexp.MustCompile(`(?i)^\s+(?:is|default)`)
)

// matchVariable reports whether line is a declaration. "type is" and
// "class is/default" guards of select type are excluded.
func (ps patternSet) matchVariable(line string) bool {
	m := ps.variable.FindStringSubmatchIndex(line)
	if m == nil {
		return false
	}
	keyword := strings.ToLower(line[m[2]:m[3]])
	rest := line[m[3]:]
	switch keyword {
	case "type":
		return !typeIsRE.MatchString(rest)
	case "class":
		return !classGuardRE.MatchString(rest)
	}
	return true
}

// matchType matches a derived type definition, rejecting "type is (...)".
func matchType(line string) []string {
	m := typeRE.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	if strings.EqualFold(m[2], "is") && m[3] != "" {
		return nil
	}
	return m
}
