// Package props holds the key/value property set that template placeholders
// are resolved against. A run owns exactly one PropertySet and rewrites its
// fluctuating keys before every stage.
package props

import (
	"sort"

	"github.com/phospodka/reindexer/internal/failure"
)

// Core property names. Their placeholder keys can be renamed through a
// KeyMap (replacement.core.<name>=<placeholder> in the properties file).
const (
	Type        = "type"
	Date        = "date"
	SourceIndex = "source_index"
	DestIndex   = "dest_index"
	SourceHost  = "source_host"
	DestHost    = "dest_host"
	Host        = "host"
	Index       = "index"
	Path        = "path"
)

// KeyMap maps core property names to the placeholder keys used in templates.
type KeyMap map[string]string

// Key returns the placeholder key for a core name, defaulting to the name itself.
func (m KeyMap) Key(name string) string {
	if k, ok := m[name]; ok && k != "" {
		return k
	}
	return name
}

// PropertySet is a mutable string map with helpers for the per-iteration
// rewrites. It is not safe for concurrent use.
type PropertySet struct {
	values map[string]string
	keys   KeyMap
}

// New creates a PropertySet seeded with stable values.
func New(values map[string]string, keys KeyMap) *PropertySet {
	p := &PropertySet{
		values: make(map[string]string, len(values)),
		keys:   KeyMap{},
	}
	for k, v := range values {
		p.values[k] = v
	}
	for k, v := range keys {
		p.keys[k] = v
	}
	return p
}

// Get returns the value stored under key.
func (p *PropertySet) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Set stores a value under key.
func (p *PropertySet) Set(key, value string) {
	p.values[key] = value
}

// Core returns the value of a core property through the key map.
func (p *PropertySet) Core(name string) (string, bool) {
	return p.Get(p.keys.Key(name))
}

// SetCore stores a core property through the key map.
func (p *PropertySet) SetCore(name, value string) {
	p.Set(p.keys.Key(name), value)
}

// Keys returns all keys in sorted order.
func (p *PropertySet) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the current values.
func (p *PropertySet) Snapshot() map[string]string {
	out := make(map[string]string, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// SetFlux rewrites the keys that change with every (date, type) iteration.
func (p *PropertySet) SetFlux(indexType, sourceIndex, destIndex, date string) {
	p.SetCore(Type, indexType)
	p.SetCore(SourceIndex, sourceIndex)
	p.SetCore(DestIndex, destIndex)
	p.SetCore(Date, date)
}

// UseSource points host and index at the source store.
func (p *PropertySet) UseSource() error {
	return p.point(SourceHost, SourceIndex)
}

// UseDest points host and index at the destination store.
func (p *PropertySet) UseDest() error {
	return p.point(DestHost, DestIndex)
}

func (p *PropertySet) point(hostName, indexName string) error {
	host, ok := p.Core(hostName)
	if !ok {
		return failure.New(failure.Configuration, "%s is not set", p.keys.Key(hostName))
	}
	index, ok := p.Core(indexName)
	if !ok {
		return failure.New(failure.Configuration, "%s is not set", p.keys.Key(indexName))
	}
	p.SetCore(Host, host)
	p.SetCore(Index, index)
	return nil
}
