package ldwriter

import (
	"fmt"

	"bitbucket.org/creachadair/stringset"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/ldwriter/rdf"
)

// TermDefinition is an expanded context entry mapping a term to an IRI
// whose values are node references: {"@id": ID, "@type": "@id"}.
type TermDefinition struct {
	ID string
}

// MarshalJSONTo implements json.MarshalerTo for TermDefinition.
func (td TermDefinition) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("@id")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String(td.ID)); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("@type")); err != nil {
		return err
	}
	if err := enc.WriteToken(jsontext.String("@id")); err != nil {
		return err
	}
	return enc.WriteToken(jsontext.EndObject)
}

func (td TermDefinition) asMap() map[string]any {
	return map[string]any{"@id": td.ID, "@type": "@id"}
}

// Context is an insertion-ordered JSON-LD @context. Values are either an IRI
// string (prefix entries) or a TermDefinition (predicate local names).
type Context struct {
	keys  []string
	terms map[string]any
}

func newContext() *Context {
	return &Context{terms: make(map[string]any)}
}

// set inserts key unless it is already present and reports whether it did.
func (c *Context) set(key string, value any) bool {
	if _, ok := c.terms[key]; ok {
		return false
	}
	c.keys = append(c.keys, key)
	c.terms[key] = value
	return true
}

// Len returns the number of entries.
func (c *Context) Len() int { return len(c.keys) }

// Keys returns the entry names in insertion order.
func (c *Context) Keys() []string {
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	return keys
}

// Get returns the value stored for key: a string or a TermDefinition.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.terms[key]
	return v, ok
}

// Map returns the context in the generic form the JSON-LD engine consumes.
func (c *Context) Map() map[string]any {
	m := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		switch v := c.terms[k].(type) {
		case TermDefinition:
			m[k] = v.asMap()
		default:
			m[k] = v
		}
	}
	return m
}

// MarshalJSONTo implements json.MarshalerTo, writing entries in insertion
// order.
func (c *Context) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	for _, k := range c.keys {
		if err := enc.WriteToken(jsontext.String(k)); err != nil {
			return err
		}
		switch v := c.terms[k].(type) {
		case string:
			if err := enc.WriteToken(jsontext.String(v)); err != nil {
				return err
			}
		case TermDefinition:
			if err := v.MarshalJSONTo(enc); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected context value for %q: %T", k, v)
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

// BuildContext synthesizes a @context from the prefix mapping and the
// predicates of g.
//
// Prefixes are added first, in mapping order, as prefix -> IRI. Then every
// predicate other than rdf:type contributes localName -> {"@id": IRI,
// "@type": "@id"} unless the local name is empty or already claimed by a
// prefix or an earlier predicate. Collisions are dropped silently. Local
// names are registered even when a prefix already covers the predicate.
func BuildContext(prefixes *rdf.PrefixMap, g rdf.Graph) (*Context, error) {
	ctx := newContext()
	prefixes.Range(func(prefix, iri string) bool {
		ctx.set(prefix, iri)
		return true
	})
	if g == nil {
		return ctx, nil
	}

	acc := contextFold{ctx: ctx, seen: stringset.New()}
	if err := g.ForEach(func(t rdf.Triple) error {
		acc = acc.step(t)
		return nil
	}); err != nil {
		return nil, err
	}
	return acc.ctx, nil
}

// contextFold is the accumulator threaded through the triple scan.
type contextFold struct {
	ctx  *Context
	seen stringset.Set
}

func (f contextFold) step(t rdf.Triple) contextFold {
	if t.IsType() {
		return f
	}
	p, ok := t.P.(rdf.IRI)
	if !ok {
		return f
	}
	name := p.LocalName()
	if name == "" || f.seen.Contains(name) {
		return f
	}
	f.seen.Add(name)
	f.ctx.set(name, TermDefinition{ID: string(p)})
	return f
}
