package router

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Path is a candidate execution target the Router may choose: a model plus
// the tools it is allowed to use. In YAML and JSON a path is either a bare
// model-name string or a mapping with "model" and optional "tools".
type Path struct {
	Model string   `json:"model" yaml:"model"`
	Tools []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// Model returns a model-only Path.
func Model(name string) Path {
	return Path{Model: name}
}

// Models returns model-only Paths for each name, preserving order.
func Models(names ...string) []Path {
	paths := make([]Path, len(names))
	for i, n := range names {
		paths[i] = Path{Model: n}
	}
	return paths
}

// UnmarshalYAML accepts either a scalar model name or a mapping.
func (p *Path) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&p.Model)
	}
	type plain Path
	return node.Decode((*plain)(p))
}

// UnmarshalJSON accepts either a string model name or an object.
func (p *Path) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Model)
	}
	type plain Path
	return json.Unmarshal(data, (*plain)(p))
}

// MarshalJSON emits a bare string for model-only paths, mirroring how the
// path was most likely written.
func (p Path) MarshalJSON() ([]byte, error) {
	if len(p.Tools) == 0 {
		return json.Marshal(p.Model)
	}
	type plain Path
	return json.Marshal(plain(p))
}

// String renders the path for logs and identifying params.
func (p Path) String() string {
	if len(p.Tools) == 0 {
		return p.Model
	}
	return fmt.Sprintf("%s%v", p.Model, p.Tools)
}
