package rdf

import (
	"errors"
	"sort"
)

// ErrStop can be returned from a ForEach callback to end iteration early.
// ForEach implementations return nil when they see it.
var ErrStop = errors.New("stop iteration")

// Graph is an enumerable set of triples.
type Graph interface {
	// ForEach calls fn for every triple. Iteration order is unspecified.
	ForEach(fn func(Triple) error) error
}

// Dataset is a default graph plus zero or more named graphs.
type Dataset interface {
	DefaultGraph() Graph
	// Graph returns the named graph. Unknown names yield an empty graph.
	Graph(name Term) Graph
	GraphNames() ([]Term, error)
}

// MemDataset is an in-memory Dataset that keeps insertion order and drops
// duplicate quads. It is not safe for concurrent mutation.
type MemDataset struct {
	graphs map[string]*memGraph
	names  []Term
	dflt   memGraph
	count  int
}

// NewMemDataset returns an empty dataset.
func NewMemDataset() *MemDataset {
	return &MemDataset{graphs: make(map[string]*memGraph)}
}

// Add inserts q and reports whether it was not already present.
func (d *MemDataset) Add(q Quad) bool {
	g := &d.dflt
	if q.G != nil {
		key := q.G.String()
		var ok bool
		if g, ok = d.graphs[key]; !ok {
			g = &memGraph{}
			d.graphs[key] = g
			d.names = append(d.names, q.G)
		}
	}
	if g.add(q.Triple()) {
		d.count++
		return true
	}
	return false
}

// AddTriple inserts t into the default graph.
func (d *MemDataset) AddTriple(t Triple) bool {
	return d.Add(Quad{S: t.S, P: t.P, O: t.O})
}

// Len returns the number of quads across all graphs.
func (d *MemDataset) Len() int { return d.count }

func (d *MemDataset) DefaultGraph() Graph { return &d.dflt }

func (d *MemDataset) Graph(name Term) Graph {
	if name == nil {
		return &d.dflt
	}
	if g, ok := d.graphs[name.String()]; ok {
		return g
	}
	return &memGraph{}
}

func (d *MemDataset) GraphNames() ([]Term, error) {
	names := make([]Term, len(d.names))
	copy(names, d.names)
	return names, nil
}

// Quads returns every quad, default graph first, then named graphs in
// insertion order.
func (d *MemDataset) Quads() []Quad {
	quads := make([]Quad, 0, d.count)
	for _, t := range d.dflt.triples {
		quads = append(quads, Quad{S: t.S, P: t.P, O: t.O})
	}
	for _, name := range d.names {
		for _, t := range d.graphs[name.String()].triples {
			quads = append(quads, Quad{S: t.S, P: t.P, O: t.O, G: name})
		}
	}
	return quads
}

type memGraph struct {
	triples []Triple
	seen    map[string]struct{}
}

func (g *memGraph) add(t Triple) bool {
	if g.seen == nil {
		g.seen = make(map[string]struct{})
	}
	key := t.String()
	if _, ok := g.seen[key]; ok {
		return false
	}
	g.seen[key] = struct{}{}
	g.triples = append(g.triples, t)
	return true
}

func (g *memGraph) ForEach(fn func(Triple) error) error {
	for _, t := range g.triples {
		if err := fn(t); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Collect copies any Dataset into a MemDataset.
func Collect(ds Dataset) (*MemDataset, error) {
	out := NewMemDataset()
	if err := ds.DefaultGraph().ForEach(func(t Triple) error {
		out.AddTriple(t)
		return nil
	}); err != nil {
		return nil, err
	}
	names, err := ds.GraphNames()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := ds.Graph(name).ForEach(func(t Triple) error {
			out.Add(Quad{S: t.S, P: t.P, O: t.O, G: name})
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SortTerms orders terms by their N-Triples form.
func SortTerms(terms []Term) {
	sort.Slice(terms, func(i, j int) bool { return terms[i].String() < terms[j].String() })
}
