package config

// mcpServersKey marks the table whose entries are server specs. The generic
// table recursion stops at this key: the table itself merges by server name,
// but each named spec is an atomic unit.
const mcpServersKey = "mcp_servers"

// Merge deep-merges the higher-precedence overlay onto base and returns a new
// tree; neither input is modified. The rules are:
//
//   - keys present only in one tree are carried over
//   - keys whose values are tables in both trees are merged recursively
//   - an mcp_servers table merges key-by-key at the server-name level, but
//     each named spec replaces wholesale — a redefinition drops every field
//     it does not restate, it never inherits args or env from a lower layer
//   - every other collision (scalar, array, or mixed kinds) is resolved by
//     replacing the base value wholesale with the overlay value — arrays are
//     never concatenated
//
// Applied strictly in precedence order the merge is deterministic and
// associative: resolving the same layer contents always yields the same tree.
func Merge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range overlay {
		bt, baseIsTable := out[k].(map[string]any)
		ot, overlayIsTable := v.(map[string]any)
		if baseIsTable && overlayIsTable {
			if k == mcpServersKey {
				out[k] = mergeServerTable(bt, ot)
			} else {
				out[k] = Merge(bt, ot)
			}
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// mergeServerTable unions two server tables by name. Overlay entries win and
// replace the whole base spec, never individual fields.
func mergeServerTable(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range overlay {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies tables and arrays so that merged trees never alias
// their inputs. Scalars are returned as-is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// lookup walks a dotted path through nested tables. The boolean result is
// false if any path element is missing or a non-table is traversed.
func lookup(tree map[string]any, path []string) (any, bool) {
	cur := any(tree)
	for _, key := range path {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = table[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
