// Package config loads the hierarchical configuration document of spec.md
// §6: a root of application-wide attributes (including the logging
// configuration path) plus child sub-trees keyed by net name, each
// optionally carrying a "profiler" attribute.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Document wraps a parsed configuration tree. The concrete file format
// (JSON, YAML, TOML, ...) is not load-bearing — spec.md's "XML/BSON
// configuration parsing" is explicitly out of scope (§1 Non-goals); viper's
// generic readers stand in for "a hierarchical document".
type Document struct {
	v *viper.Viper
}

// Load reads and parses the configuration document at path.
func Load(path string) (*Document, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return &Document{v: v}, nil
}

// New wraps an already-populated viper instance, letting callers build a
// Document programmatically (used by cmd/flowrtctl's demo graph and by
// tests that would rather not round-trip through a file).
func New(v *viper.Viper) *Document {
	if v == nil {
		v = viper.New()
	}
	return &Document{v: v}
}

// LoggingPath returns the root "logging" attribute: the path to the logging
// configuration spec.md §6 says program_init extracts before initializing
// the log.
func (d *Document) LoggingPath() string {
	return d.v.GetString("logging")
}

// NetConfig returns the attribute sub-tree for the named net, or nil if the
// document has no "nets.<name>" entry. Keys are opaque to the runtime
// beyond the well-known "profiler" attribute; box code may read any
// additional key it expects.
func (d *Document) NetConfig(name string) map[string]any {
	raw := d.v.GetStringMap("nets." + name)
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// SetNetConfig installs (or replaces) the named net's attribute sub-tree.
// Used by cmd/flowrtctl to assemble a document in-process rather than from
// a file on disk.
func (d *Document) SetNetConfig(name string, attrs map[string]any) {
	d.v.Set("nets."+name, attrs)
}

// SetLoggingPath installs the root "logging" attribute.
func (d *Document) SetLoggingPath(path string) {
	d.v.Set("logging", path)
}
