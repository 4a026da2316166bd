package metavalue

import "strings"

// VisitFunc receives a node after its children have been visited. key is the
// map key the node is stored under, or "" for list items and the root.
type VisitFunc func(key string, v Value) Value

// Walk rebuilds v bottom-up, passing every node to fn. The input is never
// mutated.
func Walk(v Value, fn VisitFunc) Value {
	return walk("", v, fn)
}

func walk(key string, v Value, fn VisitFunc) Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = walk("", item, fn)
		}
		v = Value{kind: KindList, list: items}
	case KindMap:
		fields := make([]Field, len(v.fields))
		for i, f := range v.fields {
			fields[i] = Field{Key: f.Key, Value: walk(f.Key, f.Value, fn)}
		}
		v = Value{kind: KindMap, fields: fields}
	}
	return fn(key, v)
}

// Rewrite applies fn to every String leaf of v, recursing through lists and
// maps. Keys are left untouched.
func Rewrite(v Value, fn func(string) string) Value {
	return Walk(v, func(_ string, node Value) Value {
		if node.kind == KindString {
			return String(fn(node.s))
		}
		return node
	})
}

// ReplaceAll substitutes old/new pairs in all string leaves in a single pass;
// at each position the first matching pair wins.
func ReplaceAll(v Value, pairs ...string) Value {
	if len(pairs) < 2 {
		return v
	}
	r := strings.NewReplacer(pairs...)
	return Rewrite(v, r.Replace)
}
