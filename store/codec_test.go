package store

import (
	"strings"
	"testing"

	"github.com/go-json-experiment/json"

	"github.com/twinfer/ldwriter/rdf"
)

func TestEncodeTerm(t *testing.T) {
	tests := []struct {
		term rdf.Term
		want string
	}{
		{rdf.IRI(ex + "a"), `["i","http://example.org/a"]`},
		{rdf.BlankNode("b0"), `["b","b0"]`},
		{rdf.NewLiteral("x"), `["l","x"]`},
		{rdf.NewTypedLiteral("x", rdf.XSDString), `["l","x"]`},
		{rdf.NewTypedLiteral("1", rdf.XSDInteger), `["l","1","http://www.w3.org/2001/XMLSchema#integer"]`},
		{rdf.NewLangLiteral("chat", "fr"), `["l","chat","","fr"]`},
	}
	for _, tt := range tests {
		t.Run(tt.term.String(), func(t *testing.T) {
			got, err := encodeTerm(tt.term)
			if err != nil {
				t.Fatalf("encodeTerm failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("encodeTerm(%v) = %s want %s", tt.term, got, tt.want)
			}

			back, err := decodeTerm(got)
			if err != nil {
				t.Fatalf("decodeTerm(%s) failed: %v", got, err)
			}
			if back.String() != tt.term.String() {
				t.Errorf("decodeTerm(%s) = %v want %v", got, back, tt.term)
			}
		})
	}
}

func TestDecodeTermErrors(t *testing.T) {
	for _, in := range []string{
		`"i"`,
		`["i"]`,
		`["x","y"]`,
		`["i","a","b"]`,
		`["l",1]`,
	} {
		if _, err := decodeTerm(in); err == nil {
			t.Errorf("decodeTerm(%s) should fail", in)
		}
	}
}

func TestQuadJSON(t *testing.T) {
	q := inGraph(quad("a", "p", rdf.NewLangLiteral("v", "en")), rdf.BlankNode("g"))

	data, err := json.Marshal(quadJSON{q})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"s":["i","http://example.org/a"],"p":["i","http://example.org/p"],"o":["l","v","","en"],"g":["b","g"]}`
	if string(data) != want {
		t.Errorf("Marshal = %s want %s", data, want)
	}

	var back quadJSON
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Quad.String() != q.String() {
		t.Errorf("Unmarshal = %v want %v", back.Quad, q)
	}
}

func TestQuadJSONDefaultGraphAndUnknownFields(t *testing.T) {
	in := `{"extra": {"nested": [1, 2]}, "s": ["b", "x"], "p": ["i", "http://example.org/p"], "o": ["i", "http://example.org/o"]}`
	var qj quadJSON
	if err := json.Unmarshal([]byte(in), &qj); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !qj.InDefaultGraph() {
		t.Errorf("expected default graph quad, got %v", qj.Quad)
	}

	out, err := json.Marshal(qj)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(out), `"g"`) {
		t.Errorf("default graph quad should omit \"g\": %s", out)
	}

	if err := json.Unmarshal([]byte(`{"s": ["b", "x"]}`), &qj); err == nil {
		t.Error("Unmarshal should reject a quad without predicate and object")
	}
}
