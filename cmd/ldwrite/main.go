// Package main provides the ldwrite binary entry point.
// ldwrite reads an RDF dataset from N-Quads, a quad store or Mangle facts
// and writes it as JSON-LD.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/mangle/factstore"
	"github.com/spf13/cobra"

	"github.com/twinfer/ldwriter"
	"github.com/twinfer/ldwriter/facts"
	"github.com/twinfer/ldwriter/internal/config"
	"github.com/twinfer/ldwriter/rdf"
	"github.com/twinfer/ldwriter/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	pretty     bool
	base       string
	prefixes   []string
	format     string
	output     string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "ldwrite [input]",
		Short: "Write RDF data as JSON-LD",
		Long: `ldwrite converts an RDF dataset to JSON-LD.

The input is read as N-Quads (a file, or stdin when no path is given),
from a SQLite, PostgreSQL or Badger quad store, or from Mangle source
facts.
A @context is synthesized from the configured prefixes and the local
names of the default graph's predicates.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd, args)
			if err != nil {
				return err
			}
			return run(cfg, f.output, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "Indent the output")
	cmd.Flags().StringVar(&f.base, "base", "", "Base IRI")
	cmd.Flags().StringArrayVarP(&f.prefixes, "prefix", "p", nil, "Prefix binding as prefix=iri (repeatable)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Input format (nquads, sqlite, postgres, badger, mangle)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

// resolve loads the config file, if any, and applies the flags set on the
// command line over it.
func (f *flags) resolve(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		loaded, err := config.LoadFromFile(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("pretty") {
		if f.pretty {
			cfg.Variant = ldwriter.Pretty.String()
		} else {
			cfg.Variant = ldwriter.Compact.String()
		}
	}
	if changed("base") {
		cfg.Base = f.base
	}
	if changed("format") {
		cfg.Input.Format = f.format
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	for _, binding := range f.prefixes {
		prefix, iri, ok := strings.Cut(binding, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --prefix %q: want prefix=iri", binding)
		}
		cfg.Prefixes.Set(prefix, iri)
	}
	if len(args) > 0 {
		cfg.Input.Path = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cfg *config.Config, output string, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	ds, prefixes, closeInput, err := openInput(cfg, stdin, logger)
	if err != nil {
		return err
	}
	defer closeInput()

	w := ldwriter.NewWriter(cfg.OutputVariant(),
		ldwriter.WithIndent(cfg.Indent),
		ldwriter.WithLogger(logger))

	if output == "" {
		return w.Write(stdout, ds, prefixes, cfg.Base)
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := w.Write(file, ds, prefixes, cfg.Base); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	logger.Info("wrote JSON-LD", slog.String("path", output), slog.String("variant", cfg.Variant))
	return nil
}

// openInput returns the dataset named by cfg.Input together with the
// prefixes to write it with.
func openInput(cfg *config.Config, stdin io.Reader, logger *slog.Logger) (rdf.Dataset, *rdf.PrefixMap, func(), error) {
	noop := func() {}
	prefixes := &cfg.Prefixes.PrefixMap

	switch cfg.Input.Format {
	case config.FormatSQLite, config.FormatPostgres, config.FormatBadger:
		qs, err := openStore(cfg.Input, logger)
		if err != nil {
			return nil, nil, noop, err
		}
		logger.Debug("opened quad store",
			slog.String("format", cfg.Input.Format),
			slog.Int("estimated_quads", qs.EstimateQuadCount()))
		return qs, prefixes, func() { qs.Close() }, nil

	case config.FormatMangle:
		r, closeFile, err := openReader(cfg.Input.Path, stdin)
		if err != nil {
			return nil, nil, noop, err
		}
		defer closeFile()

		fs := factstore.NewSimpleInMemoryStore()
		if _, err := facts.LoadSource(r, fs, logger); err != nil {
			return nil, nil, noop, err
		}
		ds, err := facts.Dataset(fs)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to map facts to RDF: %w", err)
		}
		merged := facts.Prefixes(facts.Namespace)
		prefixes.Range(func(prefix, iri string) bool {
			merged.Set(prefix, iri)
			return true
		})
		return ds, merged, noop, nil

	default:
		r, closeFile, err := openReader(cfg.Input.Path, stdin)
		if err != nil {
			return nil, nil, noop, err
		}
		defer closeFile()

		ds, err := rdf.ParseNQuads(r)
		if err != nil {
			return nil, nil, noop, err
		}
		logger.Debug("parsed N-Quads", slog.Int("quads", ds.Len()))
		return ds, prefixes, noop, nil
	}
}

func openStore(in config.InputConfig, logger *slog.Logger) (store.QuadStore, error) {
	var (
		qs  store.QuadStore
		err error
	)
	switch in.Format {
	case config.FormatSQLite:
		qs, err = store.NewQuadStoreSQLite(in.Path, store.WithLogger(logger))
	case config.FormatPostgres:
		qs, err = store.NewQuadStorePostgreSQL(in.Path, store.WithLogger(logger))
	default:
		qs, err = store.NewQuadStoreBadger(in.Path, store.WithLogger(logger))
	}
	if err != nil {
		return nil, err
	}
	return qs, nil
}

func openReader(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return file, func() { file.Close() }, nil
}
