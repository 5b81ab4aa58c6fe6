package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/twinfer/ldwriter/rdf"
)

// termJSON is a wrapper around rdf.Term that implements json.MarshalerTo
// and json.UnmarshalerFrom. Terms are encoded as compact tagged arrays:
//
//	["i", iri]
//	["b", id]
//	["l", lexical]               xsd:string
//	["l", lexical, datatype]     typed literal
//	["l", lexical, "", lang]     language-tagged string
//
// The encoding is canonical, so equal terms always encode to equal text.
type termJSON struct {
	rdf.Term
}

// quadJSON is a wrapper around rdf.Quad used by WriteTo and ReadFrom.
// Serializes as {"s": term, "p": term, "o": term, "g": term}; "g" is
// omitted for the default graph.
type quadJSON struct {
	rdf.Quad
}

// MarshalJSONTo implements json.MarshalerTo for termJSON.
func (tj termJSON) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return err
	}
	switch t := tj.Term.(type) {
	case rdf.IRI:
		if err := writeStrings(enc, "i", string(t)); err != nil {
			return err
		}
	case rdf.BlankNode:
		if err := writeStrings(enc, "b", string(t)); err != nil {
			return err
		}
	case rdf.Literal:
		var err error
		switch dt := t.DatatypeIRI(); {
		case t.Lang != "":
			err = writeStrings(enc, "l", t.Lexical, "", t.Lang)
		case dt == rdf.XSDString:
			err = writeStrings(enc, "l", t.Lexical)
		default:
			err = writeStrings(enc, "l", t.Lexical, dt)
		}
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot encode term %T: %w", tj.Term, rdf.ErrUnsupportedTerm)
	}
	return enc.WriteToken(jsontext.EndArray)
}

func writeStrings(enc *jsontext.Encoder, values ...string) error {
	for _, v := range values {
		if err := enc.WriteToken(jsontext.String(v)); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSONFrom implements json.UnmarshalerFrom for termJSON.
func (tj *termJSON) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if tok.Kind() != '[' {
		return fmt.Errorf("expected term array start '[', got %c", tok.Kind())
	}

	var parts []string
	for dec.PeekKind() != ']' {
		tok, err := dec.ReadToken()
		if err != nil {
			return fmt.Errorf("failed to read term element: %w", err)
		}
		if tok.Kind() != '"' {
			return fmt.Errorf("expected string term element, got %c", tok.Kind())
		}
		parts = append(parts, tok.String())
	}
	if _, err := dec.ReadToken(); err != nil {
		return fmt.Errorf("failed to read term array end: %w", err)
	}

	if len(parts) < 2 {
		return errors.New("term array needs a tag and a value")
	}
	switch tag := parts[0]; {
	case tag == "i" && len(parts) == 2:
		tj.Term = rdf.IRI(parts[1])
	case tag == "b" && len(parts) == 2:
		tj.Term = rdf.BlankNode(parts[1])
	case tag == "l" && len(parts) == 2:
		tj.Term = rdf.NewLiteral(parts[1])
	case tag == "l" && len(parts) == 3:
		tj.Term = rdf.NewTypedLiteral(parts[1], parts[2])
	case tag == "l" && len(parts) == 4:
		tj.Term = rdf.NewLangLiteral(parts[1], parts[3])
	default:
		return fmt.Errorf("unknown term encoding %q with %d elements", tag, len(parts))
	}
	return nil
}

// MarshalJSONTo implements json.MarshalerTo for quadJSON.
func (qj quadJSON) MarshalJSONTo(enc *jsontext.Encoder) error {
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return err
	}
	fields := []struct {
		key  string
		term rdf.Term
	}{
		{"s", qj.S}, {"p", qj.P}, {"o", qj.O}, {"g", qj.G},
	}
	for _, f := range fields {
		if f.term == nil && f.key == "g" {
			continue
		}
		if err := enc.WriteToken(jsontext.String(f.key)); err != nil {
			return err
		}
		if err := (termJSON{f.term}).MarshalJSONTo(enc); err != nil {
			return fmt.Errorf("failed to marshal %q: %w", f.key, err)
		}
	}
	return enc.WriteToken(jsontext.EndObject)
}

// UnmarshalJSONFrom implements json.UnmarshalerFrom for quadJSON.
func (qj *quadJSON) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return fmt.Errorf("failed to read quad start: %w", err)
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("expected quad object start '{', got %c", tok.Kind())
	}

	var q rdf.Quad
	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return fmt.Errorf("failed to read quad key: %w", err)
		}
		if tok.Kind() != '"' {
			return fmt.Errorf("expected string key for quad field, got %c", tok.Kind())
		}
		key := tok.String()

		var dst *rdf.Term
		switch key {
		case "s":
			dst = &q.S
		case "p":
			dst = &q.P
		case "o":
			dst = &q.O
		case "g":
			dst = &q.G
		default:
			// Skip unknown fields
			if err := dec.SkipValue(); err != nil {
				return fmt.Errorf("failed to skip unknown field %q: %w", key, err)
			}
			continue
		}
		var tj termJSON
		if err := tj.UnmarshalJSONFrom(dec); err != nil {
			return fmt.Errorf("failed to unmarshal %q: %w", key, err)
		}
		*dst = tj.Term
	}
	if _, err := dec.ReadToken(); err != nil {
		return fmt.Errorf("failed to read quad end: %w", err)
	}

	if q.S == nil || q.P == nil || q.O == nil {
		return errors.New("quad object needs \"s\", \"p\" and \"o\"")
	}
	qj.Quad = q
	return nil
}

// encodeTerm returns the canonical column text for t.
func encodeTerm(t rdf.Term) (string, error) {
	var buf strings.Builder
	enc := jsontext.NewEncoder(&buf)
	if err := (termJSON{t}).MarshalJSONTo(enc); err != nil {
		return "", err
	}
	// Trim trailing newline that jsontext.Encoder adds
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// decodeTerm parses column text written by encodeTerm.
func decodeTerm(s string) (rdf.Term, error) {
	var tj termJSON
	if err := tj.UnmarshalJSONFrom(jsontext.NewDecoder(strings.NewReader(s))); err != nil {
		return nil, err
	}
	return tj.Term, nil
}
