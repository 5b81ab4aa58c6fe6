package ldwriter

import (
	"fmt"
	"math"
	"strconv"

	"github.com/piprate/json-gold/ld"
)

// Engine is the JSON-LD processor the writer delegates to. Expand turns an
// RDF dataset into expanded JSON-LD; Compact compacts a document against a
// context object.
type Engine interface {
	Expand(ds *ld.RDFDataset, opts *ld.JsonLdOptions) (any, error)
	Compact(doc any, context map[string]any, opts *ld.JsonLdOptions) (map[string]any, error)
}

// goldEngine is the json-gold backed Engine.
type goldEngine struct {
	api  *ld.JsonLdApi
	proc *ld.JsonLdProcessor
}

// NewGoldEngine returns an Engine backed by github.com/piprate/json-gold.
func NewGoldEngine() Engine {
	return goldEngine{api: ld.NewJsonLdApi(), proc: ld.NewJsonLdProcessor()}
}

// Expand runs the RDF to JSON-LD algorithm. With UseNativeTypes set, only
// literals whose lexical form survives the trip back to RDF unchanged become
// native JSON values; the rest keep their @type.
func (e goldEngine) Expand(ds *ld.RDFDataset, opts *ld.JsonLdOptions) (any, error) {
	native := opts.UseNativeTypes
	plain := *opts
	plain.UseNativeTypes = false

	doc, err := e.api.FromRDF(ds, &plain)
	if err != nil {
		return nil, fmt.Errorf("failed to convert RDF to JSON-LD: %w", err)
	}
	if native {
		for _, node := range doc {
			nativeValues(node)
		}
	}
	return doc, nil
}

func (e goldEngine) Compact(doc any, context map[string]any, opts *ld.JsonLdOptions) (map[string]any, error) {
	compacted, err := e.proc.Compact(doc, context, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to compact JSON-LD: %w", err)
	}
	return compacted, nil
}

// maxSafeInteger bounds integers that decode exactly as JSON numbers.
const maxSafeInteger = 1 << 53

// nativeValues replaces canonical boolean, integer and double value objects
// in v with native JSON values, in place.
func nativeValues(v any) {
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			nativeValues(item)
		}
	case map[string]any:
		if _, ok := x["@value"]; ok {
			nativeValue(x)
			return
		}
		for _, item := range x {
			nativeValues(item)
		}
	}
}

func nativeValue(obj map[string]any) {
	lexical, ok := obj["@value"].(string)
	if !ok {
		return
	}
	datatype, _ := obj["@type"].(string)

	switch datatype {
	case ld.XSDBoolean:
		if lexical == "true" || lexical == "false" {
			obj["@value"] = lexical == "true"
			delete(obj, "@type")
		}
	case ld.XSDInteger:
		i, err := strconv.ParseInt(lexical, 10, 64)
		if err != nil || strconv.FormatInt(i, 10) != lexical || i > maxSafeInteger || i < -maxSafeInteger {
			return
		}
		obj["@value"] = i
		delete(obj, "@type")
	case ld.XSDDouble:
		// integral doubles would read back as xsd:integer
		d, err := strconv.ParseFloat(lexical, 64)
		if err != nil || math.IsInf(d, 0) || math.IsNaN(d) || d == math.Trunc(d) {
			return
		}
		if ld.GetCanonicalDouble(d) != lexical {
			return
		}
		obj["@value"] = d
		delete(obj, "@type")
	}
}
