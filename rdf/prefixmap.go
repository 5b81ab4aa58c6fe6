package rdf

import "strings"

// PrefixMap is an ordered mapping from prefix to namespace IRI.
// The zero value is an empty map ready to use.
type PrefixMap struct {
	prefixes []string
	iris     map[string]string
}

// NewPrefixMap builds a PrefixMap from alternating prefix, IRI arguments.
// A trailing odd argument is ignored.
func NewPrefixMap(pairs ...string) *PrefixMap {
	pm := &PrefixMap{}
	for i := 0; i+1 < len(pairs); i += 2 {
		pm.Set(pairs[i], pairs[i+1])
	}
	return pm
}

// Set binds prefix to iri. Rebinding an existing prefix keeps its position.
func (pm *PrefixMap) Set(prefix, iri string) {
	if pm.iris == nil {
		pm.iris = make(map[string]string)
	}
	if _, ok := pm.iris[prefix]; !ok {
		pm.prefixes = append(pm.prefixes, prefix)
	}
	pm.iris[prefix] = iri
}

// Get returns the IRI bound to prefix.
func (pm *PrefixMap) Get(prefix string) (string, bool) {
	if pm == nil {
		return "", false
	}
	iri, ok := pm.iris[prefix]
	return iri, ok
}

// Delete removes prefix from the map.
func (pm *PrefixMap) Delete(prefix string) {
	if pm == nil {
		return
	}
	if _, ok := pm.iris[prefix]; !ok {
		return
	}
	delete(pm.iris, prefix)
	for i, p := range pm.prefixes {
		if p == prefix {
			pm.prefixes = append(pm.prefixes[:i], pm.prefixes[i+1:]...)
			break
		}
	}
}

// Len returns the number of bindings. A nil map is empty.
func (pm *PrefixMap) Len() int {
	if pm == nil {
		return 0
	}
	return len(pm.prefixes)
}

// Range calls fn for each binding in insertion order until fn returns false.
func (pm *PrefixMap) Range(fn func(prefix, iri string) bool) {
	if pm == nil {
		return
	}
	for _, p := range pm.prefixes {
		if !fn(p, pm.iris[p]) {
			return
		}
	}
}

// Abbreviate returns iri in prefix:local form using the first matching
// binding, or iri unchanged.
func (pm *PrefixMap) Abbreviate(iri string) string {
	out := iri
	pm.Range(func(prefix, ns string) bool {
		if ns != "" && strings.HasPrefix(iri, ns) {
			out = prefix + ":" + iri[len(ns):]
			return false
		}
		return true
	})
	return out
}
