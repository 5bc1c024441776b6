package store

// deepMerge merges src into dst recursively. Map-valued keys merge; every
// other value type replaces wholesale. Unspecified keys at any depth are
// preserved, which is what lets independent callers mutate disjoint
// subtrees without knowing the whole tree shape.
func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		sv, svOK := v.(map[string]any)
		dv, dvOK := dst[k].(map[string]any)
		if svOK && dvOK {
			deepMerge(dv, sv)
			continue
		}
		if svOK {
			// Copy so later mutations of the caller's map don't leak in.
			dst[k] = deepCopyMap(sv)
			continue
		}
		dst[k] = v
	}
}

// deepCopy returns a defensive copy of a tree value. Maps and []any slices
// are copied recursively; all other values are returned as-is, so callers
// must treat non-tree values stored in the state as immutable.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopy(v)
	}
	return out
}
