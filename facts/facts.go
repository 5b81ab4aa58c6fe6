// Package facts maps Mangle Datalog facts to RDF and back, so a Mangle fact
// store can be serialized as JSON-LD.
//
// The mapping is arity based:
//
//	p()          _:bN rdf:type mg:p
//	p(a)         a rdf:type mg:p
//	p(a, b)      a mg:p b
//	p(a, b, c…)  a reified rdf:Statement with mg:arg2, mg:arg3, … for the rest
//
// Facts whose subject would be a literal are reified too; a unary one has
// no rdf:object.
//
// Names map to IRIs under the namespace ("/alice" becomes <ns>alice) and
// names under "/_/" map to blank nodes labelled "n_" plus the rest of the
// name ("/_/x" becomes _:n_x). Other blank nodes are minted, and a minted
// subject of rdf:type stands for a nullary fact. Blank node labels are not
// kept by a JSON-LD round trip, so named blank nodes only survive direct
// dataset conversion.
//
// Strings, numbers, floats and bytes become xsd typed literals; lists, maps,
// structs and pairs are written in Mangle syntax with the datatype
// <ns>Constant.
package facts

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/functional"
	"github.com/google/mangle/parse"
	"github.com/piprate/json-gold/ld"

	"github.com/twinfer/ldwriter/rdf"
)

// Namespace is the default namespace for Mangle predicates and names.
const Namespace = "http://mangle.datalog.org/"

// RDF reification vocabulary.
const (
	RDFStatement = rdf.RDFNamespace + "Statement"
	RDFSubject   = rdf.RDFNamespace + "subject"
	RDFPredicate = rdf.RDFNamespace + "predicate"
	RDFObject    = rdf.RDFNamespace + "object"

	XSDBase64Binary = rdf.XSDNamespace + "base64Binary"
)

// blankNamePrefix marks Mangle names that stand for blank nodes;
// blankLabelPrefix starts the labels of those nodes, which minted labels
// never do.
const (
	blankNamePrefix  = "/_/"
	blankLabelPrefix = "n_"
)

// ErrUnmappable is returned for RDF terms outside the namespace, which have
// no Mangle name.
var ErrUnmappable = errors.New("term has no Mangle equivalent")

type options struct {
	ns string
}

// Option configures the mapping.
type Option func(*options)

// WithNamespace sets the namespace predicates and names are minted in.
func WithNamespace(ns string) Option {
	return func(o *options) { o.ns = ns }
}

func newOptions(opts []Option) options {
	o := options{ns: Namespace}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Prefixes returns the prefix mapping to write mapped facts with: "mg" for
// ns and "rdf" for the RDF namespace.
func Prefixes(ns string) *rdf.PrefixMap {
	return rdf.NewPrefixMap("mg", ns, "rdf", rdf.RDFNamespace)
}

// Dataset converts every fact of store into a dataset. Predicates are
// visited in symbol and arity order so the result is reproducible.
func Dataset(store factstore.ReadOnlyFactStore, opts ...Option) (*rdf.MemDataset, error) {
	m := mapper{options: newOptions(opts), issuer: ld.NewIdentifierIssuer("_:b")}

	predicates := store.ListPredicates()
	sort.Slice(predicates, func(i, j int) bool {
		a, b := predicates[i], predicates[j]
		return a.Symbol < b.Symbol || (a.Symbol == b.Symbol && a.Arity < b.Arity)
	})

	ds := rdf.NewMemDataset()
	for _, pred := range predicates {
		if err := store.GetFacts(ast.NewQuery(pred), func(atom ast.Atom) error {
			triples, err := m.atomToTriples(atom)
			if err != nil {
				return fmt.Errorf("failed to convert atom %v to RDF: %w", atom, err)
			}
			for _, t := range triples {
				ds.AddTriple(t)
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Atoms reconstructs the facts encoded in g. It recognizes reified
// statements and rdf:type triples; every other triple becomes a binary
// atom.
func Atoms(g rdf.Graph, opts ...Option) ([]ast.Atom, error) {
	m := mapper{options: newOptions(opts)}

	// Group triples by subject, keeping first-seen order
	var order []string
	bySubject := make(map[string][]rdf.Triple)
	if err := g.ForEach(func(t rdf.Triple) error {
		key := t.S.String()
		if _, ok := bySubject[key]; !ok {
			order = append(order, key)
		}
		bySubject[key] = append(bySubject[key], t)
		return nil
	}); err != nil {
		return nil, err
	}

	var atoms []ast.Atom
	for _, key := range order {
		triples := bySubject[key]

		atom, ok, err := m.reifiedAtom(triples)
		if err != nil {
			return nil, err
		}
		if ok {
			atoms = append(atoms, atom)
			continue
		}

		for _, t := range triples {
			var atom ast.Atom
			var err error
			if t.IsType() {
				atom, err = m.typeAtom(t)
			} else {
				atom, err = m.binaryAtom(t)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to convert %v: %w", t, err)
			}
			atoms = append(atoms, atom)
		}
	}
	return atoms, nil
}

// Load adds the facts encoded in the default graph of ds to store and
// returns how many were new. Named graphs are not read.
func Load(ds rdf.Dataset, store factstore.FactStore, opts ...Option) (int, error) {
	atoms, err := Atoms(ds.DefaultGraph(), opts...)
	if err != nil {
		return 0, err
	}
	var added int
	for _, atom := range atoms {
		if store.Add(atom) {
			added++
		}
	}
	return added, nil
}

type mapper struct {
	options
	issuer *ld.IdentifierIssuer
}

func (m mapper) predicateIRI(symbol string) rdf.IRI {
	return rdf.IRI(m.ns + symbol)
}

// blank issues a blank node keyed by key; equal keys get equal nodes.
func (m mapper) blank(key string) rdf.BlankNode {
	return rdf.BlankNode(strings.TrimPrefix(m.issuer.GetId(key), "_:"))
}

func (m mapper) atomToTriples(atom ast.Atom) ([]rdf.Triple, error) {
	pred := m.predicateIRI(atom.Predicate.Symbol)
	args := make([]rdf.Term, len(atom.Args))
	for i, arg := range atom.Args {
		c, ok := arg.(ast.Constant)
		if !ok {
			return nil, fmt.Errorf("argument %d is not a constant: %v", i, arg)
		}
		term, err := m.constantToTerm(c)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = term
	}

	switch len(args) {
	case 0:
		return []rdf.Triple{{S: m.blank(atom.String()), P: rdf.IRI(rdf.RDFType), O: pred}}, nil
	case 1:
		if _, ok := args[0].(rdf.Literal); !ok {
			return []rdf.Triple{{S: args[0], P: rdf.IRI(rdf.RDFType), O: pred}}, nil
		}
	case 2:
		if _, ok := args[0].(rdf.Literal); !ok {
			return []rdf.Triple{{S: args[0], P: pred, O: args[1]}}, nil
		}
	}
	// A literal cannot be a subject; fall back to reification
	return m.reify(atom, pred, args), nil
}

// reify describes the atom as an rdf:Statement node:
//
//	_:stmt rdf:type rdf:Statement
//	_:stmt rdf:subject arg0
//	_:stmt rdf:predicate pred
//	_:stmt rdf:object arg1
//	_:stmt mg:arg2 arg2
//	...
//
// Unary atoms stop after rdf:predicate.
func (m mapper) reify(atom ast.Atom, pred rdf.IRI, args []rdf.Term) []rdf.Triple {
	stmt := m.blank("stmt " + atom.String())
	triples := []rdf.Triple{
		{S: stmt, P: rdf.IRI(rdf.RDFType), O: rdf.IRI(RDFStatement)},
		{S: stmt, P: rdf.IRI(RDFSubject), O: args[0]},
		{S: stmt, P: rdf.IRI(RDFPredicate), O: pred},
	}
	if len(args) > 1 {
		triples = append(triples, rdf.Triple{S: stmt, P: rdf.IRI(RDFObject), O: args[1]})
	}
	for i := 2; i < len(args); i++ {
		triples = append(triples, rdf.Triple{S: stmt, P: m.argIRI(i), O: args[i]})
	}
	return triples
}

func (m mapper) argIRI(i int) rdf.IRI {
	return rdf.IRI(m.ns + "arg" + strconv.Itoa(i))
}

func (m mapper) constantToTerm(c ast.Constant) (rdf.Term, error) {
	switch c.Type {
	case ast.NameType:
		sym, err := c.NameValue()
		if err != nil {
			return nil, fmt.Errorf("failed to get name value: %w", err)
		}
		if id, ok := strings.CutPrefix(sym, blankNamePrefix); ok {
			return rdf.BlankNode(blankLabelPrefix + id), nil
		}
		return rdf.IRI(m.ns + strings.TrimPrefix(sym, "/")), nil

	case ast.StringType:
		str, err := c.StringValue()
		if err != nil {
			return nil, fmt.Errorf("failed to get string value: %w", err)
		}
		return rdf.NewLiteral(str), nil

	case ast.NumberType:
		num, err := c.NumberValue()
		if err != nil {
			return nil, fmt.Errorf("failed to get number value: %w", err)
		}
		return rdf.NewTypedLiteral(strconv.FormatInt(num, 10), rdf.XSDInteger), nil

	case ast.Float64Type:
		flt, err := c.Float64Value()
		if err != nil {
			return nil, fmt.Errorf("failed to get float64 value: %w", err)
		}
		return rdf.NewTypedLiteral(strconv.FormatFloat(flt, 'g', -1, 64), rdf.XSDDouble), nil

	case ast.BytesType:
		// The raw bytes are stored in the Symbol field for BytesType.
		return rdf.NewTypedLiteral(base64.StdEncoding.EncodeToString([]byte(c.Symbol)), XSDBase64Binary), nil

	default:
		return rdf.NewTypedLiteral(c.String(), m.ns+"Constant"), nil
	}
}

func (m mapper) termToConstant(t rdf.Term) (ast.Constant, error) {
	switch v := t.(type) {
	case rdf.IRI:
		local, ok := strings.CutPrefix(string(v), m.ns)
		if !ok || local == "" {
			return ast.Constant{}, fmt.Errorf("IRI %s: %w", v, ErrUnmappable)
		}
		return ast.Name("/" + local)

	case rdf.BlankNode:
		return ast.Name(blankNamePrefix + strings.TrimPrefix(string(v), blankLabelPrefix))

	case rdf.Literal:
		switch v.DatatypeIRI() {
		case XSDBase64Binary:
			decoded, err := base64.StdEncoding.DecodeString(v.Lexical)
			if err != nil {
				return ast.Constant{}, fmt.Errorf("failed to decode base64Binary: %w", err)
			}
			return ast.Bytes(decoded), nil
		case rdf.XSDInteger:
			num, err := strconv.ParseInt(v.Lexical, 10, 64)
			if err != nil {
				return ast.Constant{}, fmt.Errorf("failed to parse integer: %w", err)
			}
			return ast.Number(num), nil
		case rdf.XSDDouble:
			flt, err := strconv.ParseFloat(v.Lexical, 64)
			if err != nil {
				return ast.Constant{}, fmt.Errorf("failed to parse float: %w", err)
			}
			return ast.Float64(flt), nil
		case m.ns + "Constant":
			return evalConstant(v.Lexical)
		default:
			return ast.String(v.Lexical), nil
		}
	}
	return ast.Constant{}, fmt.Errorf("term %v: %w", t, rdf.ErrUnsupportedTerm)
}

// evalConstant parses and evaluates a constant written in Mangle syntax.
func evalConstant(s string) (ast.Constant, error) {
	term, err := parse.Term(s)
	if err != nil {
		return ast.Constant{}, fmt.Errorf("failed to parse constant %q: %w", s, err)
	}
	baseTerm, ok := term.(ast.BaseTerm)
	if !ok {
		return ast.Constant{}, fmt.Errorf("expected a base term, got %T for %q", term, s)
	}
	eval, err := functional.EvalExpr(baseTerm, nil)
	if err != nil {
		return ast.Constant{}, fmt.Errorf("failed to evaluate constant %q: %w", s, err)
	}
	c, ok := eval.(ast.Constant)
	if !ok {
		return ast.Constant{}, fmt.Errorf("constant %q evaluated to %T", s, eval)
	}
	return c, nil
}

func (m mapper) symbol(p rdf.Term) (string, error) {
	iri, ok := p.(rdf.IRI)
	if !ok {
		return "", fmt.Errorf("predicate %v: %w", p, rdf.ErrUnsupportedTerm)
	}
	symbol, ok := strings.CutPrefix(string(iri), m.ns)
	if !ok || symbol == "" {
		return "", fmt.Errorf("predicate %s: %w", iri, ErrUnmappable)
	}
	return symbol, nil
}

// typeAtom converts an rdf:type triple: minted blank subjects give arity 0
// atoms, others arity 1.
func (m mapper) typeAtom(t rdf.Triple) (ast.Atom, error) {
	symbol, err := m.symbol(t.O)
	if err != nil {
		return ast.Atom{}, err
	}
	if b, ok := t.S.(rdf.BlankNode); ok && !strings.HasPrefix(string(b), blankLabelPrefix) {
		return ast.Atom{
			Predicate: ast.PredicateSym{Symbol: symbol, Arity: 0},
			Args:      []ast.BaseTerm{},
		}, nil
	}
	subject, err := m.termToConstant(t.S)
	if err != nil {
		return ast.Atom{}, err
	}
	return ast.Atom{
		Predicate: ast.PredicateSym{Symbol: symbol, Arity: 1},
		Args:      []ast.BaseTerm{subject},
	}, nil
}

func (m mapper) binaryAtom(t rdf.Triple) (ast.Atom, error) {
	symbol, err := m.symbol(t.P)
	if err != nil {
		return ast.Atom{}, err
	}
	subject, err := m.termToConstant(t.S)
	if err != nil {
		return ast.Atom{}, err
	}
	object, err := m.termToConstant(t.O)
	if err != nil {
		return ast.Atom{}, err
	}
	return ast.Atom{
		Predicate: ast.PredicateSym{Symbol: symbol, Arity: 2},
		Args:      []ast.BaseTerm{subject, object},
	}, nil
}

// reifiedAtom rebuilds an atom from the triples of a statement node. It
// reports false when the triples are not a complete reified statement.
func (m mapper) reifiedAtom(triples []rdf.Triple) (ast.Atom, bool, error) {
	var isStatement bool
	var subject, predicate, object rdf.Term
	extra := make(map[int]rdf.Term)

	for _, t := range triples {
		p, ok := t.P.(rdf.IRI)
		if !ok {
			continue
		}
		switch string(p) {
		case rdf.RDFType:
			if o, ok := t.O.(rdf.IRI); ok && string(o) == RDFStatement {
				isStatement = true
			}
		case RDFSubject:
			subject = t.O
		case RDFPredicate:
			predicate = t.O
		case RDFObject:
			object = t.O
		default:
			if after, ok := strings.CutPrefix(string(p), m.ns+"arg"); ok {
				if n, err := strconv.Atoi(after); err == nil {
					extra[n] = t.O
				}
			}
		}
	}
	if !isStatement || subject == nil || predicate == nil {
		return ast.Atom{}, false, nil
	}

	symbol, err := m.symbol(predicate)
	if err != nil {
		return ast.Atom{}, false, err
	}
	terms := []rdf.Term{subject}
	if object != nil {
		terms = append(terms, object)
	} else if len(extra) > 0 {
		return ast.Atom{}, false, fmt.Errorf("reified %s is missing rdf:object", symbol)
	}
	for i := 2; i < 2+len(extra); i++ {
		t, ok := extra[i]
		if !ok {
			return ast.Atom{}, false, fmt.Errorf("reified %s is missing argument %d", symbol, i)
		}
		terms = append(terms, t)
	}

	args := make([]ast.BaseTerm, len(terms))
	for i, t := range terms {
		c, err := m.termToConstant(t)
		if err != nil {
			return ast.Atom{}, false, fmt.Errorf("reified %s argument %d: %w", symbol, i, err)
		}
		args[i] = c
	}
	return ast.Atom{
		Predicate: ast.PredicateSym{Symbol: symbol, Arity: len(args)},
		Args:      args,
	}, true, nil
}
