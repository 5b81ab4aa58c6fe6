package ldwriter

import (
	"fmt"
	"io"

	"github.com/go-json-experiment/json"
	"github.com/piprate/json-gold/ld"

	"github.com/twinfer/ldwriter/rdf"
)

// Read parses a JSON-LD document back into a dataset using the json-gold
// ToRDF algorithm. base resolves relative IRIs; pass the base the document
// was written with.
func Read(r io.Reader, base string) (*rdf.MemDataset, error) {
	var doc any
	if err := json.UnmarshalRead(r, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode JSON-LD: %w", err)
	}

	proc := ld.NewJsonLdProcessor()
	out, err := proc.ToRDF(doc, ld.NewJsonLdOptions(base))
	if err != nil {
		return nil, &ProcessingError{Op: "toRDF", Err: err}
	}
	dataset, ok := out.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("unexpected RDF dataset type: %T", out)
	}

	ds, err := rdf.FromLD(dataset)
	if err != nil {
		return nil, &ConversionError{Err: err}
	}
	return ds, nil
}
