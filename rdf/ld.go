package rdf

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/piprate/json-gold/ld"
)

const (
	defaultGraphName = "@default"
	nquadsFormat     = "application/n-quads"
)

// ToLD converts a dataset into json-gold's RDF dataset representation.
// Every graph is converted; the default graph is stored under "@default".
func ToLD(ds Dataset) (*ld.RDFDataset, error) {
	out := ld.NewRDFDataset()
	out.Graphs[defaultGraphName] = []*ld.Quad{}

	if err := appendGraph(out, defaultGraphName, ds.DefaultGraph()); err != nil {
		return nil, err
	}

	names, err := ds.GraphNames()
	if err != nil {
		return nil, fmt.Errorf("failed to list graph names: %w", err)
	}
	for _, name := range names {
		var graphName string
		switch g := name.(type) {
		case IRI:
			graphName = string(g)
		case BlankNode:
			graphName = g.String()
		default:
			return nil, fmt.Errorf("graph name %s: %w", termString(name), ErrUnsupportedTerm)
		}
		if err := appendGraph(out, graphName, ds.Graph(name)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendGraph(out *ld.RDFDataset, graphName string, g Graph) error {
	return g.ForEach(func(t Triple) error {
		s, err := subjectNode(t.S)
		if err != nil {
			return err
		}
		p, err := predicateNode(t.P)
		if err != nil {
			return err
		}
		o, err := objectNode(t.O)
		if err != nil {
			return err
		}
		out.Graphs[graphName] = append(out.Graphs[graphName], ld.NewQuad(s, p, o, graphName))
		return nil
	})
}

func subjectNode(t Term) (ld.Node, error) {
	switch v := t.(type) {
	case IRI:
		return ld.NewIRI(string(v)), nil
	case BlankNode:
		return ld.NewBlankNode(v.String()), nil
	}
	return nil, fmt.Errorf("subject %s: %w", termString(t), ErrUnsupportedTerm)
}

func predicateNode(t Term) (ld.Node, error) {
	if v, ok := t.(IRI); ok {
		return ld.NewIRI(string(v)), nil
	}
	return nil, fmt.Errorf("predicate %s: %w", termString(t), ErrUnsupportedTerm)
}

func objectNode(t Term) (ld.Node, error) {
	if v, ok := t.(Literal); ok {
		return ld.NewLiteral(v.Lexical, v.DatatypeIRI(), v.Lang), nil
	}
	if t == nil {
		return nil, fmt.Errorf("object <nil>: %w", ErrUnsupportedTerm)
	}
	return subjectNode(t)
}

// FromLD converts a json-gold RDF dataset back into a MemDataset. Named
// graphs are added in lexical order of their names.
func FromLD(in *ld.RDFDataset) (*MemDataset, error) {
	out := NewMemDataset()
	names := make([]string, 0, len(in.Graphs))
	for name := range in.Graphs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		// default graph first
		if names[i] == defaultGraphName || names[j] == defaultGraphName {
			return names[i] == defaultGraphName
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		var graph Term
		if name != defaultGraphName {
			graph = graphTerm(name)
		}
		for _, q := range in.Graphs[name] {
			s, err := termFromNode(q.Subject)
			if err != nil {
				return nil, fmt.Errorf("failed to convert subject: %w", err)
			}
			p, err := termFromNode(q.Predicate)
			if err != nil {
				return nil, fmt.Errorf("failed to convert predicate: %w", err)
			}
			o, err := termFromNode(q.Object)
			if err != nil {
				return nil, fmt.Errorf("failed to convert object: %w", err)
			}
			out.Add(Quad{S: s, P: p, O: o, G: graph})
		}
	}
	return out, nil
}

func graphTerm(name string) Term {
	if id, ok := strings.CutPrefix(name, "_:"); ok {
		return BlankNode(id)
	}
	return IRI(name)
}

func termFromNode(n ld.Node) (Term, error) {
	switch v := n.(type) {
	case ld.IRI:
		return IRI(v.Value), nil
	case *ld.IRI:
		return IRI(v.Value), nil
	case ld.BlankNode:
		return BlankNode(strings.TrimPrefix(v.Attribute, "_:")), nil
	case *ld.BlankNode:
		return BlankNode(strings.TrimPrefix(v.Attribute, "_:")), nil
	case ld.Literal:
		return literalFromLD(v), nil
	case *ld.Literal:
		return literalFromLD(*v), nil
	}
	return nil, fmt.Errorf("node %T: %w", n, ErrUnsupportedTerm)
}

func literalFromLD(l ld.Literal) Literal {
	lit := Literal{Lexical: l.Value, Lang: l.Language}
	if l.Language == "" && l.Datatype != XSDString {
		lit.Datatype = l.Datatype
	}
	return lit
}

// ParseNQuads reads an N-Quads document with json-gold's parser.
func ParseNQuads(r io.Reader) (*MemDataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read N-Quads: %w", err)
	}
	parsed, err := (&ld.NQuadRDFSerializer{}).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse N-Quads: %w", err)
	}
	return FromLD(parsed)
}

// WriteNQuads serializes ds as N-Quads.
func WriteNQuads(w io.Writer, ds Dataset) error {
	converted, err := ToLD(ds)
	if err != nil {
		return err
	}
	text, err := (&ld.NQuadRDFSerializer{}).Serialize(converted)
	if err != nil {
		return fmt.Errorf("failed to serialize N-Quads: %w", err)
	}
	s, ok := text.(string)
	if !ok {
		return fmt.Errorf("unexpected N-Quads serializer result: %T", text)
	}
	_, err = io.WriteString(w, s)
	return err
}

// Canonical returns the URDNA2015 canonical N-Quads form of ds. Two datasets
// are isomorphic when their canonical forms are equal.
func Canonical(ds Dataset) (string, error) {
	converted, err := ToLD(ds)
	if err != nil {
		return "", err
	}
	opts := ld.NewJsonLdOptions("")
	opts.Format = nquadsFormat
	opts.Algorithm = ld.AlgorithmURDNA2015
	normalized, err := ld.NewJsonLdApi().Normalize(converted, opts)
	if err != nil {
		return "", fmt.Errorf("failed to normalize dataset: %w", err)
	}
	s, ok := normalized.(string)
	if !ok {
		return "", fmt.Errorf("unexpected normalization result: %T", normalized)
	}
	return s, nil
}
