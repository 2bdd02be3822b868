// # internal/engine/crosswalk/tree.go

// Package crosswalk maps the derived type component references made by
// executable code onto the correlated declarations, and builds the
// read-only lookup tables consumers use after correlation.
package crosswalk

import (
	"regexp"
	"sort"
	"strings"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/parser"
)

// Tree is a path tree of component references: a%b%c and a%d become
// {a: {b: {c: {}}, d: {}}}.
type Tree map[string]Tree

var numberRE = regexp.MustCompile(`(?i)^[+-]?(\d+\.?\d*|\.\d+)([ed][+-]?\d+)?(_\w+)?$`)

// Names that only occur as I/O control specifiers.
var ioSpecifiers = map[string]bool{
	"unit": true, "fmt": true, "file": true, "status": true, "iostat": true,
	"iomsg": true, "action": true, "form": true, "access": true, "recl": true,
	"position": true, "err": true, "advance": true, "newunit": true, "exist": true,
	"opened": true, "named": true, "size": true, "rec": true, "pos": true,
	"blank": true, "delim": true, "pad": true, "encoding": true, "sign": true,
	"decimal": true, "round": true, "asynchronous": true, "id": true, "nml": true,
}

// References returns the member-access chains of ex followed by the other
// names it touched that are not reserved words, numbers, I/O specifiers or
// variables declared locally in owner. Those remaining names refer to
// variables reached through host or USE association.
func References(owner model.Entity, ex *model.Exec) []string {
	local := make(map[string]bool)
	if body := model.BodyOf(owner); body != nil {
		for _, v := range body.Variables {
			local[v.Key()] = true
		}
	}
	out := append([]string(nil), ex.MemberAccess...)
	seen := make(map[string]bool, len(out))
	for _, r := range out {
		seen[r] = true
	}
	for _, item := range ex.Other {
		item = strings.ToLower(strings.Trim(strings.TrimSpace(item), `'"`))
		switch {
		case item == "", seen[item], local[item], ioSpecifiers[item]:
			continue
		case parser.Reserved(item), numberRE.MatchString(item):
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// BuildTree splits every reference on % into a nested path tree. Empty
// segments are skipped.
func BuildTree(refs []string) Tree {
	root := Tree{}
	for _, ref := range refs {
		cur := root
		for _, part := range strings.Split(ref, "%") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			next, ok := cur[part]
			if !ok {
				next = Tree{}
				cur[part] = next
			}
			cur = next
		}
	}
	return root
}

// Keys returns the tree's first-level names in order.
func (t Tree) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
