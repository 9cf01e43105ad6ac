package config

import (
	"fmt"
	"regexp"

	crewerrors "github.com/crewkit/crew/internal/errors"
)

// serverNamePattern constrains MCP server names so they can be used as table
// keys and process identifiers without quoting.
var serverNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MCPServerSpec describes one tool-server process. Identity is the name it is
// keyed by; on merge, same-name specs are replaced wholesale, never merged
// field by field.
type MCPServerSpec struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// ValidServerName reports whether name matches the MCP server name pattern.
func ValidServerName(name string) bool {
	return serverNamePattern.MatchString(name)
}

// decodeMCPServers converts a raw [mcp_servers.<name>] table into typed specs,
// validating each server name and required field. file is included in errors
// when known.
func decodeMCPServers(table map[string]any, file string) (map[string]MCPServerSpec, error) {
	out := make(map[string]MCPServerSpec, len(table))
	for name, raw := range table {
		if !ValidServerName(name) {
			return nil, crewerrors.NewConfigError(
				fmt.Sprintf("server name %q must match %s", name, serverNamePattern.String()), nil).
				WithPath(file).WithSection("mcp_servers")
		}

		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, crewerrors.NewConfigError(
				fmt.Sprintf("mcp_servers.%s must be a table", name), nil).
				WithPath(file).WithSection("mcp_servers." + name)
		}

		spec, err := decodeMCPServer(entry)
		if err != nil {
			return nil, crewerrors.NewConfigError(err.Error(), nil).
				WithPath(file).WithSection("mcp_servers." + name)
		}
		out[name] = spec
	}
	return out, nil
}

// decodeMCPServer converts one server table into a spec.
func decodeMCPServer(entry map[string]any) (MCPServerSpec, error) {
	var spec MCPServerSpec

	command, ok := entry["command"].(string)
	if !ok || command == "" {
		return spec, fmt.Errorf("command is required and must be a string")
	}
	spec.Command = command

	if rawArgs, ok := entry["args"]; ok {
		list, ok := rawArgs.([]any)
		if !ok {
			return spec, fmt.Errorf("args must be an array of strings")
		}
		spec.Args = make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return spec, fmt.Errorf("args[%d] must be a string", i)
			}
			spec.Args[i] = s
		}
	}

	if rawEnv, ok := entry["env"]; ok {
		table, ok := rawEnv.(map[string]any)
		if !ok {
			return spec, fmt.Errorf("env must be a table of strings")
		}
		spec.Env = make(map[string]string, len(table))
		for k, item := range table {
			s, ok := item.(string)
			if !ok {
				return spec, fmt.Errorf("env.%s must be a string", k)
			}
			spec.Env[k] = s
		}
	}

	return spec, nil
}

// badMCPTable builds the error for a non-table mcp_servers value.
func badMCPTable(section string) error {
	return crewerrors.NewConfigError(section+" must be a table", nil).WithSection(section)
}
