package config

import (
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		base    map[string]any
		overlay map[string]any
		want    map[string]any
	}{
		{
			name:    "disjoint keys are unioned",
			base:    map[string]any{"a": int64(1), "b": int64(2)},
			overlay: map[string]any{"b": int64(3), "c": int64(4)},
			want:    map[string]any{"a": int64(1), "b": int64(3), "c": int64(4)},
		},
		{
			name: "tables recurse",
			base: map[string]any{
				"model": map[string]any{"name": "base", "provider": "openai"},
			},
			overlay: map[string]any{
				"model": map[string]any{"name": "override"},
			},
			want: map[string]any{
				"model": map[string]any{"name": "override", "provider": "openai"},
			},
		},
		{
			name:    "arrays replace wholesale",
			base:    map[string]any{"tags": []any{"a", "b"}},
			overlay: map[string]any{"tags": []any{"c"}},
			want:    map[string]any{"tags": []any{"c"}},
		},
		{
			name:    "scalar replaces table",
			base:    map[string]any{"x": map[string]any{"y": int64(1)}},
			overlay: map[string]any{"x": "flat"},
			want:    map[string]any{"x": "flat"},
		},
		{
			name:    "table replaces scalar",
			base:    map[string]any{"x": "flat"},
			overlay: map[string]any{"x": map[string]any{"y": int64(1)}},
			want:    map[string]any{"x": map[string]any{"y": int64(1)}},
		},
		{
			name: "same-name server entries replace at entry level but table is merged key by key",
			base: map[string]any{
				"mcp_servers": map[string]any{
					"x": map[string]any{"command": "a"},
				},
			},
			overlay: map[string]any{
				"mcp_servers": map[string]any{
					"x": map[string]any{"command": "b"},
					"y": map[string]any{"command": "c"},
				},
			},
			want: map[string]any{
				"mcp_servers": map[string]any{
					"x": map[string]any{"command": "b"},
					"y": map[string]any{"command": "c"},
				},
			},
		},
		{
			// A redefined server drops the fields it does not restate; args
			// and env never leak up from a lower layer.
			name: "server redefinition does not inherit fields",
			base: map[string]any{
				"mcp_servers": map[string]any{
					"x": map[string]any{
						"command": "a",
						"args":    []any{"--legacy"},
						"env":     map[string]any{"TOKEN": "old"},
					},
				},
			},
			overlay: map[string]any{
				"mcp_servers": map[string]any{
					"x": map[string]any{"command": "b"},
				},
			},
			want: map[string]any{
				"mcp_servers": map[string]any{
					"x": map[string]any{"command": "b"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.base, tt.overlay)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	base := map[string]any{
		"a": int64(1),
		"nested": map[string]any{
			"x": []any{"1", "2"},
			"y": map[string]any{"deep": true},
		},
	}
	overlay := map[string]any{
		"nested": map[string]any{
			"x": []any{"3"},
			"z": "new",
		},
	}

	first := Merge(base, overlay)
	second := Merge(base, overlay)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("merging the same inputs twice produced different trees:\n%#v\n%#v", first, second)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	base := map[string]any{"t": map[string]any{"k": "v"}}
	overlay := map[string]any{"list": []any{"a"}}

	out := Merge(base, overlay)
	out["t"].(map[string]any)["k"] = "mutated"
	out["list"].([]any)[0] = "mutated"

	if base["t"].(map[string]any)["k"] != "v" {
		t.Error("mutating the merge output changed the base tree")
	}
	if overlay["list"].([]any)[0] != "a" {
		t.Error("mutating the merge output changed the overlay tree")
	}
}

func TestMergeIsAssociativeOverLayers(t *testing.T) {
	global := map[string]any{"a": int64(1), "b": int64(2)}
	project := map[string]any{"b": int64(3), "c": int64(4)}
	cli := map[string]any{"c": int64(5)}

	leftFold := Merge(Merge(global, project), cli)
	rightFold := Merge(global, Merge(project, cli))
	if !reflect.DeepEqual(leftFold, rightFold) {
		t.Errorf("merge is not associative:\n%#v\n%#v", leftFold, rightFold)
	}
}
