package config

import "os"

// EnvironmentExpander expands ${VAR} and $VAR placeholders in configuration data.
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// LookupEnvironmentExpander expands placeholders through a LookupFunc.
// Unresolved placeholders become empty strings, matching os.ExpandEnv.
type LookupEnvironmentExpander struct {
	lookup LookupFunc
}

// NewLookupEnvironmentExpander creates an expander backed by lookup.
func NewLookupEnvironmentExpander(lookup LookupFunc) *LookupEnvironmentExpander {
	return &LookupEnvironmentExpander{lookup: lookup}
}

// Expand replaces placeholders in input. It never fails.
func (e *LookupEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	expanded := os.Expand(string(input), func(key string) string {
		v, _ := e.lookup(key)
		return v
	})
	return []byte(expanded), nil
}
