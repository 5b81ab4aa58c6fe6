// Package ldwriter writes RDF datasets as JSON-LD.
//
// The writer synthesizes a simple @context from the caller's prefix mapping
// and the local names of the default graph's predicates, then delegates
// RDF to JSON-LD conversion and compaction to a JSON-LD engine
// (github.com/piprate/json-gold by default) and encodes the result either
// compactly or indented.
package ldwriter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/piprate/json-gold/ld"

	"github.com/twinfer/ldwriter/rdf"
)

const (
	// MediaType is the IANA media type of JSON-LD documents.
	MediaType = "application/ld+json"
	// FileExtension is the conventional JSON-LD file extension.
	FileExtension = ".jsonld"
)

// Variant selects the output layout.
type Variant int

const (
	// Compact emits the most compact encoding, with no insignificant whitespace.
	Compact Variant = iota
	// Pretty emits indented, multi-line JSON.
	Pretty
)

func (v Variant) String() string {
	switch v {
	case Compact:
		return "compact"
	case Pretty:
		return "pretty"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant parses "compact" or "pretty", case-insensitively. The empty
// string selects Compact.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compact":
		return Compact, nil
	case "pretty":
		return Pretty, nil
	}
	return Compact, fmt.Errorf("unknown output variant %q", s)
}

type config struct {
	engine Engine
	loader ld.DocumentLoader
	indent string
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*config)

// WithEngine replaces the json-gold engine.
func WithEngine(e Engine) Option {
	return func(c *config) { c.engine = e }
}

// WithDocumentLoader sets the loader the engine uses for remote contexts.
func WithDocumentLoader(l ld.DocumentLoader) Option {
	return func(c *config) { c.loader = l }
}

// WithIndent sets the indentation used by the Pretty variant.
// The default is two spaces.
func WithIndent(indent string) Option {
	return func(c *config) { c.indent = indent }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Writer serializes datasets to JSON-LD. Its configuration is fixed at
// construction, so a Writer may be shared between goroutines.
type Writer struct {
	variant Variant
	cfg     config
}

// NewWriter returns a Writer producing the given variant.
func NewWriter(variant Variant, opts ...Option) *Writer {
	cfg := config{indent: "  "}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.engine == nil {
		cfg.engine = NewGoldEngine()
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Writer{variant: variant, cfg: cfg}
}

// Variant returns the output variant chosen at construction.
func (w *Writer) Variant() Variant { return w.variant }

// processorOptions returns the engine options: native literal types,
// rdf:type folded into @type, single-element arrays compacted to scalars.
func (w *Writer) processorOptions(base string) *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions(base)
	opts.UseNativeTypes = true
	opts.UseRdfType = false
	opts.CompactArrays = true
	if w.cfg.loader != nil {
		opts.DocumentLoader = w.cfg.loader
	}
	return opts
}

// Document converts ds into a compacted JSON-LD document. The context is
// synthesized from prefixes and the default graph; every graph of ds is
// serialized. base is used to resolve and relativize IRIs.
func (w *Writer) Document(ds rdf.Dataset, prefixes *rdf.PrefixMap, base string) (map[string]any, error) {
	doc, _, err := w.document(ds, prefixes, base)
	return doc, err
}

func (w *Writer) document(ds rdf.Dataset, prefixes *rdf.PrefixMap, base string) (map[string]any, *Context, error) {
	ctx, err := BuildContext(prefixes, ds.DefaultGraph())
	if err != nil {
		return nil, nil, &ConversionError{Err: fmt.Errorf("failed to scan default graph: %w", err)}
	}

	converted, err := rdf.ToLD(ds)
	if err != nil {
		return nil, nil, &ConversionError{Err: err}
	}

	opts := w.processorOptions(base)
	expanded, err := w.cfg.engine.Expand(converted, opts)
	if err != nil {
		return nil, nil, &ProcessingError{Op: "expand", Err: err}
	}

	compacted, err := w.cfg.engine.Compact(expanded, map[string]any{"@context": ctx.Map()}, opts)
	if err != nil {
		return nil, nil, &ProcessingError{Op: "compact", Err: err}
	}

	w.cfg.logger.Debug("compacted JSON-LD document",
		slog.Int("context_terms", ctx.Len()),
		slog.Int("graphs", len(converted.Graphs)),
		slog.String("base", base))
	return compacted, ctx, nil
}

// Write serializes ds to out as UTF-8 JSON-LD. Output is buffered and
// flushed once; an error means the output may be partial.
func (w *Writer) Write(out io.Writer, ds rdf.Dataset, prefixes *rdf.PrefixMap, base string) error {
	doc, ctx, err := w.document(ds, prefixes, base)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(out)
	if err := w.encode(bw, doc, ctx); err != nil {
		return &WriteError{Err: err}
	}
	if err := bw.Flush(); err != nil {
		return &WriteError{Err: fmt.Errorf("failed to flush output: %w", err)}
	}
	return nil
}

// Marshal returns the serialized JSON-LD document.
func (w *Writer) Marshal(ds rdf.Dataset, prefixes *rdf.PrefixMap, base string) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, ds, prefixes, base); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encode writes doc with the synthesized context in its insertion order.
// Other object keys are sorted so output is reproducible.
func (w *Writer) encode(out io.Writer, doc map[string]any, ctx *Context) error {
	if _, ok := doc["@context"]; ok {
		ordered := make(map[string]any, len(doc))
		for k, v := range doc {
			ordered[k] = v
		}
		ordered["@context"] = ctx
		doc = ordered
	}

	opts := []json.Options{json.Deterministic(true)}
	if w.variant == Pretty {
		opts = append(opts, jsontext.Multiline(true), jsontext.WithIndent(w.cfg.indent))
	}
	if err := json.MarshalWrite(out, doc, opts...); err != nil {
		return fmt.Errorf("failed to encode JSON-LD: %w", err)
	}
	return nil
}
