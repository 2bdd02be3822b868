package correlate

import (
	"slices"
	"sort"
	"strings"

	"fortdoc/internal/engine/model"
)

// prune hides the members of e that are not displayed. Entities are never
// removed from their owner; renderers skip Hidden ones.
func (c *correlator) prune(e model.Entity) {
	body := model.BodyOf(e)
	if body == nil {
		return
	}
	display := c.display(e)
	show := func(x model.Entity) bool { return c.shouldDisplay(x, display) }

	if p, ok := e.(*model.Procedure); ok && !c.procInternals(p) {
		never := func(model.Entity) bool { return false }
		hideOwned(e, never, body.Functions, body.Subroutines)
		hideOwned(e, never, body.Types)
		hideOwned(e, never, body.Interfaces, body.AbsInterfaces)
		hideOwned(e, never, body.Variables)
		return
	}

	if _, ok := e.(*model.BlockData); ok {
		hideOwned(e, show, body.Types)
		hideOwned(e, show, body.Variables)
		for _, t := range body.Types {
			c.pruneType(t)
		}
		return
	}

	hideOwned(e, show, body.Functions, body.Subroutines, body.ModProcedures)
	hideOwned(e, show, body.Types)
	hideOwned(e, show, body.Interfaces, body.AbsInterfaces)
	hideOwned(e, show, body.Variables)

	for _, r := range body.Routines() {
		c.prune(r)
	}
	for _, t := range body.Types {
		c.pruneType(t)
	}
}

func (c *correlator) pruneType(t *model.Type) {
	display := c.display(t)
	show := func(x model.Entity) bool { return c.shouldDisplay(x, display) }
	hideOwned(t, show, t.BoundProcs)
	hideOwned(t, show, t.Variables)
}

func hideOwned[T model.Entity](owner model.Entity, show func(model.Entity) bool, lists ...[]T) {
	for _, list := range lists {
		for _, x := range list {
			if x.Base().Parent == owner {
				x.Base().Hidden = !show(x)
			}
		}
	}
}

func (c *correlator) shouldDisplay(x model.Entity, display []string) bool {
	if c.opts.HideUndoc && !x.Base().Documented() {
		return false
	}
	return slices.Contains(display, x.Base().Permission)
}

// display returns the permissions shown inside e, taken from the nearest
// "display" metadata or the options.
func (c *correlator) display(e model.Entity) []string {
	v, ok := model.MetaValue(e, "display")
	if !ok {
		return c.opts.Display
	}
	return strings.FieldsFunc(strings.ToLower(v), func(r rune) bool { return r == ',' || r == ' ' })
}

func (c *correlator) procInternals(p *model.Procedure) bool {
	if v, ok := model.MetaValue(p, "proc_internals"); ok {
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return c.opts.ProcInternals
}

var permissionRank = map[string]string{"": "0", model.Public: "1", model.Protected: "2", model.Private: "3"}

// sortKey returns the key function of the configured order, nil for
// source order.
func (c *correlator) sortKey() func(model.Entity) string {
	switch strings.ToLower(c.opts.Sort) {
	case SortAlpha:
		return func(e model.Entity) string { return e.Base().Name }
	case SortPermission:
		return func(e model.Entity) string { return permissionRank[e.Base().Permission] }
	case SortPermissionAlpha:
		return func(e model.Entity) string { return permissionRank[e.Base().Permission] + "-" + e.Base().Name }
	case SortType:
		return typeName
	case SortTypeAlpha:
		return func(e model.Entity) string { return typeName(e) + "-" + e.Base().Name }
	}
	return nil
}

// typeName is the Fortran type an entity sorts under.
func typeName(e model.Entity) string {
	switch v := e.(type) {
	case *model.Variable:
		s := v.VarType
		if s == "class" {
			s = "type"
		}
		if v.KindParam != "" {
			s += "-" + v.KindParam
		}
		if v.StrLen != "" {
			s += "-" + v.StrLen
		}
		if v.Proto != nil {
			s += "-" + v.Proto.Name
		}
		return s
	case *model.Procedure:
		s := strings.ToLower(v.ProcKind.String())
		if v.ProcKind == model.Function && v.RetVar != nil {
			s += "-" + typeName(v.RetVar)
		}
		return s
	}
	return e.Kind().String()
}

func sortBy[T model.Entity](xs []T, key func(model.Entity) string) {
	if key == nil {
		return
	}
	sort.SliceStable(xs, func(i, j int) bool { return key(xs[i]) < key(xs[j]) })
}

func (c *correlator) sortBody(b *model.Body) {
	key := c.sortKey()
	sortBy(b.Variables, key)
	sortBy(b.Common, key)
	sortBy(b.Subroutines, key)
	sortBy(b.ModProcedures, key)
	sortBy(b.Functions, key)
	sortBy(b.Interfaces, key)
	sortBy(b.AbsInterfaces, key)
	sortBy(b.Types, key)
}

func (c *correlator) sortType(t *model.Type) {
	key := c.sortKey()
	sortBy(t.Variables, key)
	sortBy(t.BoundProcs, key)
	sortBy(t.FinalProcs, key)
}

func (c *correlator) sortInterface(i *model.Interface) {
	key := c.sortKey()
	sortBy(i.ProcPointers, key)
	sortBy(i.Subroutines, key)
	sortBy(i.Functions, key)
}

func (c *correlator) sortVariables(vs []*model.Variable) {
	sortBy(vs, c.sortKey())
}
