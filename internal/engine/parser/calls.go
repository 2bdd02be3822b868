package parser

import (
	"strings"

	"fortdoc/internal/engine/model"
)

// associations is the stack of open ASSOCIATE constructs, innermost last.
type associations []map[string][]string

func (a *associations) push(items []string) {
	batch := make(map[string][]string, len(items))
	for _, item := range items {
		parts := pointsToRE.Split(item, 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(parts[0]))
		if chain := a.substitute(callChain(parts[1])); len(chain) > 0 {
			batch[name] = chain
		}
	}
	*a = append(*a, batch)
}

func (a *associations) pop() {
	if n := len(*a); n > 0 {
		*a = (*a)[:n-1]
	}
}

// substitute replaces an associate name at the head of chain with the
// expression it stands for.
func (a associations) substitute(chain []string) []string {
	if len(chain) == 0 {
		return chain
	}
	for i := len(a) - 1; i >= 0; i-- {
		if target, ok := a[i][chain[0]]; ok {
			return append(append([]string(nil), target...), chain[1:]...)
		}
	}
	return chain
}

// callChain normalises a reference like "obj % part() % run" into its
// lower-case segments.
func callChain(ref string) []string {
	ref = strings.ToLower(callCleanRE.ReplaceAllString(ref, ""))
	if i := strings.IndexByte(ref, '('); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return nil
	}
	return strings.Split(ref, "%")
}

// addCalls records every procedure reference on an executable line, one
// parenthesis level at a time.
func (b *builder) addCalls(u *unit, line string, number int) {
	level := 0
	if top := stripParen(line, 0); len(top) > 0 {
		if m := subcallRE.FindStringSubmatch(top[0]); m != nil {
			b.recordCall(u, m[1], number)
			level = 1
		}
	}
	for ; ; level++ {
		segs := stripParen(line, level)
		if len(segs) == 0 {
			return
		}
		for _, seg := range segs {
			b.memberAccess(u, seg)
			for _, m := range callRE.FindAllStringSubmatch(seg, -1) {
				b.recordCall(u, m[1], number)
			}
		}
	}
}

func (b *builder) recordCall(u *unit, ref string, number int) {
	chain := u.assoc.substitute(callChain(ref))
	if len(chain) == 0 {
		return
	}
	for _, seg := range chain {
		if seg == "" {
			return
		}
	}
	last := chain[len(chain)-1]
	if isIntrinsic(last) || isKeyword(last) {
		return
	}
	for _, c := range u.exec.Calls {
		if c.Chain[len(c.Chain)-1] == last {
			return
		}
	}
	u.exec.Calls = append(u.exec.Calls, &model.Call{Chain: chain, Line: number})
}

// memberAccess notes derived type component references and the other
// names an executable statement touches.
func (b *builder) memberAccess(u *unit, stmt string) {
	for _, tok := range tokenSplitRE.Split(stmt, -1) {
		tok = strings.ReplaceAll(tok, "()", "")
		for _, part := range strings.Split(tok, "=") {
			part = strings.ToLower(strings.Trim(part, "()"))
			if part == "" {
				continue
			}
			if ref := memberAccessRE.FindString(part); ref != "" {
				if !u.members[ref] {
					u.members[ref] = true
					u.exec.MemberAccess = append(u.exec.MemberAccess, ref)
				}
				continue
			}
			if !isLetter(part[0]) || isKeyword(part) || u.others[part] {
				continue
			}
			u.others[part] = true
			u.exec.Other = append(u.exec.Other, part)
		}
	}
}
