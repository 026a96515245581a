package pointer

import "github.com/BarrensZeppelin/cspta/ir"

// PointerLike reports whether values of type t may refer to objects.
// Variables without a declared type are assumed to.
func PointerLike(t ir.Type) bool {
	switch t.(type) {
	case ir.PrimitiveType:
		return false
	default:
		return true
	}
}

// projectContexts returns the distinct context-free objects of objs, in
// order of first occurrence.
func projectContexts(objs []*CSObj) []*Obj {
	seen := make(map[*Obj]bool, len(objs))
	var res []*Obj
	for _, o := range objs {
		if !seen[o.Obj] {
			seen[o.Obj] = true
			res = append(res, o.Obj)
		}
	}
	return res
}
