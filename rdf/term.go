// Package rdf holds the RDF data model the JSON-LD writer consumes: terms,
// triples, quads, ordered prefix mappings and the dataset source interfaces.
package rdf

import (
	"errors"
	"fmt"
	"strconv"
)

// Well-known vocabulary IRIs.
const (
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	RDFType       = RDFNamespace + "type"
	RDFLangString = RDFNamespace + "langString"
	XSDString     = XSDNamespace + "string"
	XSDInteger    = XSDNamespace + "integer"
	XSDDouble     = XSDNamespace + "double"
	XSDBoolean    = XSDNamespace + "boolean"
)

// ErrUnsupportedTerm is returned when a term cannot occupy a quad position.
var ErrUnsupportedTerm = errors.New("unsupported term")

// Kind identifies RDF term types.
type Kind uint8

const (
	KindIRI Kind = iota + 1
	KindBlank
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Term is a value that can appear in an RDF statement.
type Term interface {
	Kind() Kind
	// String returns the N-Triples form of the term.
	String() string
}

// IRI is an RDF IRI.
type IRI string

func (i IRI) Kind() Kind     { return KindIRI }
func (i IRI) String() string { return "<" + string(i) + ">" }

// LocalName returns the local part of the IRI. See LocalName.
func (i IRI) LocalName() string { return LocalName(string(i)) }

// BlankNode is an RDF blank node. The identifier carries no "_:" prefix.
type BlankNode string

func (b BlankNode) Kind() Kind     { return KindBlank }
func (b BlankNode) String() string { return "_:" + string(b) }

// Literal is an RDF literal. An empty Datatype means xsd:string, or
// rdf:langString when Lang is set.
type Literal struct {
	Lexical  string
	Datatype string
	Lang     string
}

// NewLiteral returns a plain xsd:string literal.
func NewLiteral(lexical string) Literal {
	return Literal{Lexical: lexical}
}

// NewTypedLiteral returns a literal with the given datatype IRI.
func NewTypedLiteral(lexical, datatype string) Literal {
	return Literal{Lexical: lexical, Datatype: datatype}
}

// NewLangLiteral returns a language-tagged string.
func NewLangLiteral(lexical, lang string) Literal {
	return Literal{Lexical: lexical, Lang: lang}
}

func (l Literal) Kind() Kind { return KindLiteral }

// DatatypeIRI returns the effective datatype of the literal.
func (l Literal) DatatypeIRI() string {
	switch {
	case l.Lang != "":
		return RDFLangString
	case l.Datatype == "":
		return XSDString
	default:
		return l.Datatype
	}
}

func (l Literal) String() string {
	q := strconv.Quote(l.Lexical)
	switch dt := l.DatatypeIRI(); {
	case l.Lang != "":
		return q + "@" + l.Lang
	case dt == XSDString:
		return q
	default:
		return q + "^^<" + dt + ">"
	}
}

// Triple is a subject, predicate, object statement. The predicate is a Term
// rather than an IRI so that generalized input can be represented and
// rejected at conversion time.
type Triple struct {
	S, P, O Term
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", termString(t.S), termString(t.P), termString(t.O))
}

// Quad is a triple plus a graph name. G is nil for the default graph.
type Quad struct {
	S, P, O Term
	G       Term
}

// Triple drops the graph name.
func (q Quad) Triple() Triple { return Triple{S: q.S, P: q.P, O: q.O} }

// InDefaultGraph reports whether the quad belongs to the default graph.
func (q Quad) InDefaultGraph() bool { return q.G == nil }

func (q Quad) String() string {
	if q.G == nil {
		return q.Triple().String()
	}
	return fmt.Sprintf("%s %s %s %s .", termString(q.S), termString(q.P), termString(q.O), termString(q.G))
}

// IsType reports whether the predicate is rdf:type.
func (t Triple) IsType() bool {
	iri, ok := t.P.(IRI)
	return ok && iri == RDFType
}

func termString(t Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
