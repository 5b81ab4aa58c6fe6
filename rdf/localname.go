package rdf

import (
	"unicode"
	"unicode/utf8"
)

// LocalName splits an IRI into namespace and local part and returns the
// local part: the longest suffix of NCName characters, advanced to the
// first character that may start an NCName. The result may be empty, for
// example for "http://example.org/" or "urn:x:123".
func LocalName(iri string) string {
	start := len(iri)
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(iri[:start])
		if !isNCNameChar(r) {
			break
		}
		start -= size
	}
	for start < len(iri) {
		r, size := utf8.DecodeRuneInString(iri[start:])
		if isNCNameStart(r) {
			break
		}
		start += size
	}
	return iri[start:]
}

func isNCNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNCNameChar(r rune) bool {
	switch {
	case isNCNameStart(r), unicode.IsDigit(r):
		return true
	case r == '-', r == '.', r == '·':
		return true
	case unicode.Is(unicode.Mn, r), unicode.Is(unicode.Mc, r):
		return true
	}
	return false
}
