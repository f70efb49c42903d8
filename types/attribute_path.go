package types

import (
	"encoding/json"
	"strings"
)

// AttributePath is an ordered sequence of keys addressing a value within
// the package set, e.g. ["python3Packages", "versioneer"]. It is
// serialized on the wire as a dot-joined string. An empty path denotes
// the package-set root.
type AttributePath []string

// String renders the path as its dot-joined wire form.
func (p AttributePath) String() string {
	return strings.Join(p, ".")
}

// ParseAttributePath parses a dot-joined wire string back into a path.
// The empty string parses to the empty (root) path, not a one-element
// path containing "".
func ParseAttributePath(s string) AttributePath {
	if s == "" {
		return AttributePath{}
	}
	return AttributePath(strings.Split(s, "."))
}

// MarshalJSON serializes the path as its dot-joined string form.
func (p AttributePath) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses the path from its dot-joined string form.
func (p *AttributePath) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParseAttributePath(s)
	return nil
}
