package rdf

import (
	"errors"
	"strings"
	"testing"
)

const (
	exNS   = "http://example.org/"
	foafNS = "http://xmlns.com/foaf/0.1/"
)

func sampleDataset() *MemDataset {
	ds := NewMemDataset()
	alice := IRI(exNS + "alice")
	bob := IRI(exNS + "bob")
	ds.AddTriple(Triple{S: alice, P: IRI(RDFType), O: IRI(foafNS + "Person")})
	ds.AddTriple(Triple{S: alice, P: IRI(foafNS + "name"), O: NewLiteral("Alice")})
	ds.AddTriple(Triple{S: alice, P: IRI(foafNS + "knows"), O: bob})
	ds.AddTriple(Triple{S: alice, P: IRI(exNS + "age"), O: NewTypedLiteral("42", XSDInteger)})
	ds.AddTriple(Triple{S: bob, P: IRI(foafNS + "nick"), O: NewLangLiteral("bobby", "en")})
	ds.Add(Quad{S: BlankNode("n1"), P: IRI(exNS + "source"), O: alice, G: IRI(exNS + "g1")})
	return ds
}

func TestMemDatasetDeduplicates(t *testing.T) {
	ds := NewMemDataset()
	q := Triple{S: IRI(exNS + "a"), P: IRI(exNS + "p"), O: NewLiteral("x")}
	if !ds.AddTriple(q) {
		t.Fatal("first AddTriple should report insertion")
	}
	if ds.AddTriple(q) {
		t.Error("second AddTriple should report duplicate")
	}
	// same triple in a named graph is a different quad
	if !ds.Add(Quad{S: q.S, P: q.P, O: q.O, G: IRI(exNS + "g")}) {
		t.Error("quad in named graph should be new")
	}
	if ds.Len() != 2 {
		t.Errorf("Len() = %d want 2", ds.Len())
	}

	count := 0
	err := ds.Graph(IRI(exNS + "missing")).ForEach(func(Triple) error {
		count++
		return nil
	})
	if err != nil || count != 0 {
		t.Errorf("unknown graph should be empty, got %d triples err=%v", count, err)
	}
}

func TestForEachStop(t *testing.T) {
	ds := sampleDataset()
	seen := 0
	err := ds.DefaultGraph().ForEach(func(Triple) error {
		seen++
		return ErrStop
	})
	if err != nil {
		t.Fatalf("ForEach returned %v", err)
	}
	if seen != 1 {
		t.Errorf("callback ran %d times want 1", seen)
	}
}

func TestToLDFromLDRoundTrip(t *testing.T) {
	ds := sampleDataset()

	converted, err := ToLD(ds)
	if err != nil {
		t.Fatalf("ToLD failed: %v", err)
	}
	if got := len(converted.Graphs["@default"]); got != 5 {
		t.Errorf("default graph has %d quads want 5", got)
	}
	if got := len(converted.Graphs[exNS+"g1"]); got != 1 {
		t.Errorf("named graph has %d quads want 1", got)
	}

	back, err := FromLD(converted)
	if err != nil {
		t.Fatalf("FromLD failed: %v", err)
	}
	want := ds.Quads()
	got := back.Quads()
	if len(got) != len(want) {
		t.Fatalf("round trip produced %d quads want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].String() != want[i].String() {
			t.Errorf("quad %d = %s want %s", i, got[i], want[i])
		}
	}
}

func TestToLDRejectsUnsupportedTerms(t *testing.T) {
	tests := []struct {
		name string
		quad Quad
	}{
		{"literal subject", Quad{S: NewLiteral("x"), P: IRI(exNS + "p"), O: NewLiteral("y")}},
		{"blank predicate", Quad{S: IRI(exNS + "a"), P: BlankNode("p"), O: NewLiteral("y")}},
		{"nil object", Quad{S: IRI(exNS + "a"), P: IRI(exNS + "p")}},
		{"literal graph", Quad{S: IRI(exNS + "a"), P: IRI(exNS + "p"), O: NewLiteral("y"), G: NewLiteral("g")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := NewMemDataset()
			ds.Add(tt.quad)
			_, err := ToLD(ds)
			if !errors.Is(err, ErrUnsupportedTerm) {
				t.Errorf("ToLD error = %v want ErrUnsupportedTerm", err)
			}
		})
	}
}

func TestNQuadsRoundTrip(t *testing.T) {
	ds := sampleDataset()

	var sb strings.Builder
	if err := WriteNQuads(&sb, ds); err != nil {
		t.Fatalf("WriteNQuads failed: %v", err)
	}
	if !strings.Contains(sb.String(), `"bobby"@en`) {
		t.Errorf("N-Quads output missing language literal:\n%s", sb.String())
	}

	parsed, err := ParseNQuads(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ParseNQuads failed: %v", err)
	}
	if parsed.Len() != ds.Len() {
		t.Errorf("parsed %d quads want %d", parsed.Len(), ds.Len())
	}

	want, err := Canonical(ds)
	if err != nil {
		t.Fatalf("Canonical(original) failed: %v", err)
	}
	got, err := Canonical(parsed)
	if err != nil {
		t.Fatalf("Canonical(parsed) failed: %v", err)
	}
	if got != want {
		t.Errorf("canonical forms differ:\n got: %s\nwant: %s", got, want)
	}
}

func TestCanonicalIgnoresBlankNodeLabels(t *testing.T) {
	a := NewMemDataset()
	a.AddTriple(Triple{S: BlankNode("x"), P: IRI(exNS + "p"), O: NewLiteral("v")})
	b := NewMemDataset()
	b.AddTriple(Triple{S: BlankNode("y"), P: IRI(exNS + "p"), O: NewLiteral("v")})

	ca, err := Canonical(a)
	if err != nil {
		t.Fatalf("Canonical(a) failed: %v", err)
	}
	cb, err := Canonical(b)
	if err != nil {
		t.Fatalf("Canonical(b) failed: %v", err)
	}
	if ca != cb {
		t.Errorf("relabelled datasets should canonicalize equally:\n%s\n%s", ca, cb)
	}
}

func TestCanonical(t *testing.T) {
	empty, err := Canonical(NewMemDataset())
	if err != nil {
		t.Fatalf("Canonical(empty) failed: %v", err)
	}
	if empty != "" {
		t.Errorf("Canonical(empty) = %q want empty", empty)
	}

	ds := NewMemDataset()
	ds.AddTriple(Triple{S: IRI(exNS + "a"), P: IRI(exNS + "p"), O: NewTypedLiteral("007", XSDInteger)})
	got, err := Canonical(ds)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	want := "<" + exNS + "a> <" + exNS + "p> \"007\"^^<" + XSDInteger + "> .\n"
	if got != want {
		t.Errorf("Canonical = %q want %q", got, want)
	}
}

func TestCollect(t *testing.T) {
	ds := sampleDataset()
	copied, err := Collect(ds)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if copied.Len() != ds.Len() {
		t.Errorf("Collect copied %d quads want %d", copied.Len(), ds.Len())
	}
	names, _ := copied.GraphNames()
	if len(names) != 1 || names[0] != IRI(exNS+"g1") {
		t.Errorf("GraphNames() = %v", names)
	}
}
