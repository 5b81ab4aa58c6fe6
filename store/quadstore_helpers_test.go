package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"bitbucket.org/creachadair/stringset"

	"github.com/twinfer/ldwriter/rdf"
)

const ex = "http://example.org/"

func iri(local string) rdf.IRI { return rdf.IRI(ex + local) }

func quad(s, p string, o rdf.Term) rdf.Quad {
	return rdf.Quad{S: iri(s), P: iri(p), O: o}
}

func inGraph(q rdf.Quad, g rdf.Term) rdf.Quad {
	q.G = g
	return q
}

// sampleQuads covers every term kind and both graph kinds.
func sampleQuads() []rdf.Quad {
	return []rdf.Quad{
		quad("alice", "knows", iri("bob")),
		quad("alice", "name", rdf.NewLiteral("Alice")),
		quad("alice", "age", rdf.NewTypedLiteral("42", rdf.XSDInteger)),
		quad("bob", "nick", rdf.NewLangLiteral("Bobby", "en")),
		quad("bob", "knows", rdf.BlankNode("c")),
		{S: rdf.BlankNode("c"), P: iri("name"), O: rdf.NewLiteral("line\nbreak \"quoted\"")},
		quad("bob", "note", rdf.NewLiteral("=$ unicode")),
		inGraph(quad("alice", "source", iri("registry")), iri("g1")),
		inGraph(quad("bob", "source", iri("registry")), rdf.BlankNode("g2")),
	}
}

func closeStore(t *testing.T, s QuadStore) {
	t.Helper()
	t.Cleanup(func() { s.Close() })
}

// runAddContainsTest tests add/contains operations.
func runAddContainsTest(t *testing.T, store QuadStore) {
	tests := sampleQuads()
	for _, q := range tests {
		t.Run(q.String(), func(t *testing.T) {
			if got := store.Add(q); !got {
				t.Errorf("Add(%v)=%v want %v", q, got, true)
			}
			if !store.Contains(q) {
				t.Errorf("Contains(%v)=false want true", q)
			}
			if got := store.Add(q); got {
				t.Errorf("Add(%v)=%v want %v (second add)", q, got, false)
			}
		})
	}

	if got, want := store.EstimateQuadCount(), len(tests); got != want {
		t.Errorf("EstimateQuadCount() = %d want %d", got, want)
	}

	// Same triple in a different graph is a different quad
	moved := inGraph(tests[0], iri("elsewhere"))
	if store.Contains(moved) {
		t.Errorf("Contains(%v) should be false", moved)
	}
}

// runCanonicalLiteralTest verifies that equivalent literal spellings are
// stored once.
func runCanonicalLiteralTest(t *testing.T, store QuadStore) {
	plain := quad("a", "label", rdf.NewLiteral("x"))
	typed := quad("a", "label", rdf.NewTypedLiteral("x", rdf.XSDString))

	if !store.Add(plain) {
		t.Fatalf("Add(%v) should return true", plain)
	}
	if store.Add(typed) {
		t.Errorf("Add(%v) should return false for equivalent literal", typed)
	}
	if !store.Contains(typed) {
		t.Errorf("Contains(%v) should be true", typed)
	}
	if count := store.EstimateQuadCount(); count != 1 {
		t.Errorf("EstimateQuadCount() = %d want 1", count)
	}
}

// runInvalidQuadsTest verifies that incomplete quads are rejected.
func runInvalidQuadsTest(t *testing.T, store QuadStore) {
	tests := []rdf.Quad{
		{S: iri("a"), P: iri("p")},
		{P: iri("p"), O: iri("o")},
	}
	for _, q := range tests {
		if store.Add(q) {
			t.Errorf("Add(%v) should return false", q)
		}
		if store.Contains(q) {
			t.Errorf("Contains(%v) should return false", q)
		}
	}
	if count := store.EstimateQuadCount(); count != 0 {
		t.Errorf("EstimateQuadCount() = %d want 0", count)
	}
}

// runFindPatternTest tests pattern matching with wildcards.
func runFindPatternTest(t *testing.T, store QuadStore) {
	for _, q := range sampleQuads() {
		store.Add(q)
	}

	tests := []struct {
		name    string
		pattern Pattern
		want    []string
	}{
		{
			name:    "by subject",
			pattern: Pattern{S: iri("alice")},
			want: []string{
				quad("alice", "knows", iri("bob")).String(),
				quad("alice", "name", rdf.NewLiteral("Alice")).String(),
				quad("alice", "age", rdf.NewTypedLiteral("42", rdf.XSDInteger)).String(),
			},
		},
		{
			name:    "by predicate",
			pattern: Pattern{P: iri("knows")},
			want: []string{
				quad("alice", "knows", iri("bob")).String(),
				quad("bob", "knows", rdf.BlankNode("c")).String(),
			},
		},
		{
			name:    "by object literal",
			pattern: Pattern{O: rdf.NewLangLiteral("Bobby", "en")},
			want:    []string{quad("bob", "nick", rdf.NewLangLiteral("Bobby", "en")).String()},
		},
		{
			name:    "language must match",
			pattern: Pattern{O: rdf.NewLangLiteral("Bobby", "fr")},
		},
		{
			name:    "named graph",
			pattern: Pattern{G: iri("g1")},
			want:    []string{quad("alice", "source", iri("registry")).String()},
		},
		{
			name:    "any graph",
			pattern: Pattern{P: iri("source"), AnyGraph: true},
			want: []string{
				inGraph(quad("alice", "source", iri("registry")), iri("g1")).String(),
				inGraph(quad("bob", "source", iri("registry")), rdf.BlankNode("g2")).String(),
			},
		},
		{
			name:    "default graph excludes named",
			pattern: Pattern{P: iri("source")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringset.New()
			err := store.Find(tt.pattern, func(q rdf.Quad) error {
				if tt.pattern.AnyGraph {
					got.Add(q.String())
				} else {
					got.Add(q.Triple().String())
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Find(%+v) failed: %v", tt.pattern, err)
			}

			if want := stringset.New(tt.want...); !got.Equals(want) {
				t.Errorf("Find(%+v) = %v want %v", tt.pattern, got, want)
			}
		})
	}
}

// runDatasetTest tests the rdf.Dataset view of the store.
func runDatasetTest(t *testing.T, store QuadStore) {
	quads := sampleQuads()
	for _, q := range quads {
		store.Add(q)
	}

	names, err := store.GraphNames()
	if err != nil {
		t.Fatalf("GraphNames failed: %v", err)
	}
	gotNames := stringset.New()
	for _, n := range names {
		gotNames.Add(n.String())
	}
	if want := stringset.New(iri("g1").String(), "_:g2"); !gotNames.Equals(want) {
		t.Errorf("GraphNames() = %v want %v", gotNames, want)
	}

	var dflt int
	if err := store.DefaultGraph().ForEach(func(rdf.Triple) error {
		dflt++
		return nil
	}); err != nil {
		t.Fatalf("DefaultGraph().ForEach failed: %v", err)
	}
	if want := len(quads) - 2; dflt != want {
		t.Errorf("default graph has %d triples want %d", dflt, want)
	}

	var seen int
	if err := store.DefaultGraph().ForEach(func(rdf.Triple) error {
		seen++
		return rdf.ErrStop
	}); err != nil {
		t.Errorf("ErrStop should end iteration without error, got %v", err)
	}
	if seen != 1 {
		t.Errorf("ForEach continued after ErrStop: %d calls", seen)
	}

	boom := errors.New("boom")
	if err := store.Graph(iri("g1")).ForEach(func(rdf.Triple) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("ForEach error = %v want %v", err, boom)
	}

	if err := store.Graph(iri("missing")).ForEach(func(t2 rdf.Triple) error {
		t.Errorf("unexpected triple %v in unknown graph", t2)
		return nil
	}); err != nil {
		t.Errorf("ForEach on unknown graph failed: %v", err)
	}

	mem := rdf.NewMemDataset()
	for _, q := range quads {
		mem.Add(q)
	}
	want, err := rdf.Canonical(mem)
	if err != nil {
		t.Fatalf("Canonical(mem) failed: %v", err)
	}
	got, err := rdf.Canonical(store)
	if err != nil {
		t.Fatalf("Canonical(store) failed: %v", err)
	}
	if got != want {
		t.Errorf("store dataset differs from source:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

// runMergeTest tests batched merging of a dataset.
func runMergeTest(t *testing.T, newStore func() (QuadStore, error)) {
	store, err := newStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	closeStore(t, store)

	existing := sampleQuads()[0]
	store.Add(existing)

	src := rdf.NewMemDataset()
	for _, q := range sampleQuads() {
		src.Add(q)
	}
	// Enough rows to span several batches
	for i := range 450 {
		src.Add(quad("bulk", "item", rdf.NewLiteral(fmt.Sprintf("item %d", i))))
	}

	if err := store.Merge(src); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if got, want := store.EstimateQuadCount(), src.Len(); got != want {
		t.Errorf("EstimateQuadCount() = %d want %d", got, want)
	}
	for _, q := range src.Quads() {
		if !store.Contains(q) {
			t.Errorf("store should contain %v after Merge", q)
		}
	}

	// Merging again is a no-op
	if err := store.Merge(src); err != nil {
		t.Fatalf("second Merge failed: %v", err)
	}
	if got, want := store.EstimateQuadCount(), src.Len(); got != want {
		t.Errorf("after second Merge EstimateQuadCount() = %d want %d", got, want)
	}

	if err := store.Merge(rdf.NewMemDataset()); err != nil {
		t.Errorf("Merge of empty dataset failed: %v", err)
	}
}

// runRemoveTest tests removal.
func runRemoveTest(t *testing.T, store QuadStore) {
	quads := sampleQuads()
	for _, q := range quads {
		store.Add(q)
	}

	for _, q := range quads {
		t.Run(q.String(), func(t *testing.T) {
			if !store.Remove(q) {
				t.Errorf("Remove(%v) should return true", q)
			}
			if store.Contains(q) {
				t.Errorf("Store should not contain %v after Remove", q)
			}
			if store.Remove(q) {
				t.Errorf("Remove(%v) should return false (quad already removed)", q)
			}
		})
	}
	if count := store.EstimateQuadCount(); count != 0 {
		t.Errorf("EstimateQuadCount() = %d want 0", count)
	}
}

// runReadWriteTest tests the ReadFrom and WriteTo methods for streaming JSON.
func runReadWriteTest(t *testing.T, newStore func() (QuadStore, error)) {
	store1, err := newStore()
	if err != nil {
		t.Fatalf("Failed to create store1: %v", err)
	}
	closeStore(t, store1)

	quads := sampleQuads()
	for _, q := range quads {
		store1.Add(q)
	}

	var buf strings.Builder
	n, err := store1.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}
	dump := buf.String()

	store2, err := newStore()
	if err != nil {
		t.Fatalf("Failed to create store2: %v", err)
	}
	closeStore(t, store2)

	bytesRead, err := store2.ReadFrom(strings.NewReader(dump))
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if bytesRead != int64(len(dump)) {
		t.Errorf("ReadFrom reported %d bytes read, but input was %d bytes", bytesRead, len(dump))
	}

	if count := store2.EstimateQuadCount(); count != len(quads) {
		t.Errorf("After import, expected %d quads, got %d", len(quads), count)
	}
	for _, q := range quads {
		if !store2.Contains(q) {
			t.Errorf("After import, store should contain %v", q)
		}
	}

	var again strings.Builder
	if _, err := store2.WriteTo(&again); err != nil {
		t.Fatalf("second WriteTo failed: %v", err)
	}
	if again.String() != dump {
		t.Errorf("dump is not stable:\n%s\n%s", dump, again.String())
	}

	if _, err := store2.ReadFrom(strings.NewReader(`{"s": ["i", "x"]}`)); err == nil {
		t.Error("ReadFrom should reject a non-array document")
	}
}

// runSuite runs all shared tests for a given store implementation.
func runSuite(t *testing.T, newStore func() (QuadStore, error)) {
	single := map[string]func(*testing.T, QuadStore){
		"AddContains":      runAddContainsTest,
		"CanonicalLiteral": runCanonicalLiteralTest,
		"InvalidQuads":     runInvalidQuadsTest,
		"FindPattern":      runFindPatternTest,
		"Dataset":          runDatasetTest,
		"Remove":           runRemoveTest,
	}
	for name, run := range single {
		t.Run(name, func(t *testing.T) {
			store, err := newStore()
			if err != nil {
				t.Fatalf("Failed to create store: %v", err)
			}
			closeStore(t, store)
			run(t, store)
		})
	}

	t.Run("Merge", func(t *testing.T) {
		runMergeTest(t, newStore)
	})
	t.Run("ReadWrite", func(t *testing.T) {
		runReadWriteTest(t, newStore)
	})
}
