package store

import (
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/ldwriter/rdf"
)

// defaultGraphKey is the stored graph key of default graph quads.
const defaultGraphKey = ""

// QuadStore is a persistent quad collection that can be written as a
// dataset. QuadStoreDB and BadgerQuadStore implement it.
type QuadStore interface {
	rdf.Dataset
	io.WriterTo
	io.ReaderFrom
	io.Closer

	// Add adds a quad and reports whether it was new.
	Add(q rdf.Quad) bool
	// Contains reports whether the quad is stored.
	Contains(q rdf.Quad) bool
	// Remove removes a quad and reports whether it was present.
	Remove(q rdf.Quad) bool
	// Find calls fn for each quad matching pattern.
	Find(pattern Pattern, fn func(rdf.Quad) error) error
	// EstimateQuadCount returns the number of stored quads.
	EstimateQuadCount() int
	// Merge copies every quad of ds into the store.
	Merge(ds rdf.Dataset) error
}

var (
	_ QuadStore = (*QuadStoreDB)(nil)
	_ QuadStore = (*BadgerQuadStore)(nil)
)

// Pattern selects quads for Find. Nil S, P or O match any term. G names
// the graph to search; nil selects the default graph unless AnyGraph is
// set, in which case every graph is searched.
type Pattern struct {
	S, P, O  rdf.Term
	G        rdf.Term
	AnyGraph bool
}

// storeGraph adapts one graph of a store to rdf.Graph.
type storeGraph struct {
	find func(Pattern, func(rdf.Quad) error) error
	name rdf.Term
}

func (g storeGraph) ForEach(fn func(rdf.Triple) error) error {
	return g.find(Pattern{G: g.name}, func(q rdf.Quad) error {
		return fn(q.Triple())
	})
}

// datasetQuads collects every quad of ds, default graph first.
func datasetQuads(ds rdf.Dataset) ([]rdf.Quad, error) {
	var quads []rdf.Quad
	collect := func(g rdf.Term) func(rdf.Triple) error {
		return func(t rdf.Triple) error {
			quads = append(quads, rdf.Quad{S: t.S, P: t.P, O: t.O, G: g})
			return nil
		}
	}

	if err := ds.DefaultGraph().ForEach(collect(nil)); err != nil {
		return nil, fmt.Errorf("failed to read default graph: %w", err)
	}
	names, err := ds.GraphNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list graph names: %w", err)
	}
	for _, name := range names {
		if err := ds.Graph(name).ForEach(collect(name)); err != nil {
			return nil, fmt.Errorf("failed to read graph %s: %w", name, err)
		}
	}
	return quads, nil
}

// dumpQuads streams every quad find yields to w as a JSON array of quad
// objects. Quads are written without intermediate buffering.
func dumpQuads(w io.Writer, find func(Pattern, func(rdf.Quad) error) error) (int64, error) {
	cw := &countingWriter{w: w}
	enc := jsontext.NewEncoder(cw)

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return cw.count, err
	}
	if err := find(Pattern{AnyGraph: true}, func(q rdf.Quad) error {
		return (quadJSON{q}).MarshalJSONTo(enc)
	}); err != nil {
		return cw.count, fmt.Errorf("failed to dump quads: %w", err)
	}
	if err := enc.WriteToken(jsontext.EndArray); err != nil {
		return cw.count, err
	}
	return cw.count, nil
}

// loadQuads decodes a JSON array written by dumpQuads and passes the
// quads to insert in batches.
func loadQuads(r io.Reader, insert func([]rdf.Quad) error) (int64, error) {
	cr := &countingReader{r: r}
	dec := jsontext.NewDecoder(cr)

	tok, err := dec.ReadToken()
	if err != nil {
		return cr.count, fmt.Errorf("failed to read opening token: %w", err)
	}
	if tok.Kind() != '[' {
		return cr.count, fmt.Errorf("expected JSON array start '[', got %c", tok.Kind())
	}

	const batchSize = 500
	var batch []rdf.Quad

	for dec.PeekKind() != ']' {
		var qj quadJSON
		if err := qj.UnmarshalJSONFrom(dec); err != nil {
			return cr.count, fmt.Errorf("failed to unmarshal quad from stream: %w", err)
		}
		batch = append(batch, qj.Quad)

		if len(batch) >= batchSize {
			if err := insert(batch); err != nil {
				return cr.count, fmt.Errorf("failed to insert batch: %w", err)
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := insert(batch); err != nil {
			return cr.count, fmt.Errorf("failed to insert final batch: %w", err)
		}
	}

	tok, err = dec.ReadToken()
	if err != nil {
		return cr.count, fmt.Errorf("failed to read closing token: %w", err)
	}
	if tok.Kind() != ']' {
		return cr.count, fmt.Errorf("expected JSON array end ']', got %c", tok.Kind())
	}
	return cr.count, nil
}

// countingWriter wraps an io.Writer and counts bytes written.
type countingWriter struct {
	w     io.Writer
	count int64
}

func (cw *countingWriter) Write(p []byte) (n int, err error) {
	n, err = cw.w.Write(p)
	cw.count += int64(n)
	return n, err
}

// countingReader wraps an io.Reader and counts bytes read.
type countingReader struct {
	r     io.Reader
	count int64
}

func (cr *countingReader) Read(p []byte) (n int, err error) {
	n, err = cr.r.Read(p)
	cr.count += int64(n)
	return n, err
}
