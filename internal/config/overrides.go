package config

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	crewerrors "github.com/crewkit/crew/internal/errors"
)

// ParseOverrides turns -c style "dotted.path=value" arguments into a value
// tree suitable for use as the highest-precedence layer. The value side is
// parsed as a TOML value, so overrides can carry numbers, booleans, arrays,
// and inline tables; anything that fails to parse as TOML is taken as a bare
// string. Later overrides win over earlier ones at the same path.
func ParseOverrides(overrides []string) (map[string]any, error) {
	out := map[string]any{}
	for _, raw := range overrides {
		key, value, found := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, crewerrors.NewConfigError(
				fmt.Sprintf("override %q must take the form key=value", raw), nil).
				WithSection("cli overrides")
		}

		tree := map[string]any{}
		leaf := tree
		path := splitPath(key)
		for _, part := range path[:len(path)-1] {
			next := map[string]any{}
			leaf[part] = next
			leaf = next
		}
		leaf[path[len(path)-1]] = parseOverrideValue(value)

		out = Merge(out, tree)
	}
	return out, nil
}

// parseOverrideValue interprets the right-hand side of an override as a TOML
// value, falling back to the literal string when it is not valid TOML.
func parseOverrideValue(value string) any {
	var doc map[string]any
	if err := toml.Unmarshal([]byte("v = "+value), &doc); err == nil {
		if v, ok := doc["v"]; ok {
			return v
		}
	}
	return value
}

// splitPath splits a dotted config path into its elements.
func splitPath(path string) []string {
	return strings.Split(path, ".")
}
