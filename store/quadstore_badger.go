package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/twinfer/ldwriter/rdf"
)

// Key layout. Quad keys are
//
//	'q' graph 0x00 subject 0x00 predicate 0x00 object
//
// with every term in its canonical JSON encoding, which never contains a
// raw 0x00 byte. Graph name keys 'n' graph mark non-empty named graphs.
const (
	quadKeyPrefix  = 'q'
	graphKeyPrefix = 'n'
	keySep         = 0x00
)

var errMalformedKey = errors.New("malformed quad key")

// BadgerQuadStore stores quads as keys of a Badger database, ordered by
// graph, subject, predicate and object. It is safe for concurrent use.
type BadgerQuadStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewQuadStoreBadger opens a Badger-backed quad store in the directory
// path. An empty path or ":memory:" opens an in-memory store.
func NewQuadStoreBadger(path string, opts ...StoreOption) (*BadgerQuadStore, error) {
	cfg := buildConfig(opts)

	var bopts badger.Options
	if path == "" || path == ":memory:" {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(path)
	}
	bopts.Logger = badgerLogger{cfg.logger}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &BadgerQuadStore{db: db, logger: cfg.logger}, nil
}

// Add adds a quad to the store and returns true if it didn't exist before.
func (s *BadgerQuadStore) Add(q rdf.Quad) bool {
	r, err := quadToRow(q)
	if err != nil {
		s.logger.Error("failed to encode quad for Add", slog.String("quad", q.String()), slog.Any("error", err))
		return false
	}

	var added bool
	key := quadKey(r)
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, []byte{}); err != nil {
			return err
		}
		if r.graph != defaultGraphKey {
			if err := txn.Set(graphKey(r.graph), []byte{}); err != nil {
				return err
			}
		}
		added = true
		return nil
	})
	if err != nil {
		s.logger.Error("failed to add quad", slog.Any("error", err))
		return false
	}
	return added
}

// Contains returns true if the quad is present in the store.
func (s *BadgerQuadStore) Contains(q rdf.Quad) bool {
	r, err := quadToRow(q)
	if err != nil {
		s.logger.Error("failed to encode quad for Contains", slog.String("quad", q.String()), slog.Any("error", err))
		return false
	}

	var found bool
	err = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(quadKey(r))
		switch {
		case err == nil:
			found = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	if err != nil {
		s.logger.Error("failed to look up quad", slog.Any("error", err))
		return false
	}
	return found
}

// Remove removes a quad from the store and returns true if it was present.
// The graph name is dropped with the last quad of its graph.
func (s *BadgerQuadStore) Remove(q rdf.Quad) bool {
	r, err := quadToRow(q)
	if err != nil {
		s.logger.Error("failed to encode quad for Remove", slog.String("quad", q.String()), slog.Any("error", err))
		return false
	}

	var removed bool
	key := quadKey(r)
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		} else if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		removed = true

		if r.graph == defaultGraphKey {
			return nil
		}
		if keyWithPrefix(txn, graphQuadPrefix(r.graph)) {
			return nil
		}
		return txn.Delete(graphKey(r.graph))
	})
	if err != nil {
		s.logger.Error("failed to remove quad", slog.Any("error", err))
		return false
	}
	return removed
}

// Find calls fn for every quad matching pattern, ordered by graph,
// subject, predicate and object encoding. Returning rdf.ErrStop from fn
// ends the scan without error.
func (s *BadgerQuadStore) Find(pattern Pattern, fn func(rdf.Quad) error) error {
	var want row
	var err error
	encode := func(t rdf.Term) string {
		if t == nil || err != nil {
			return ""
		}
		var enc string
		enc, err = encodeTerm(t)
		return enc
	}
	want.graph = encode(pattern.G)
	want.subject = encode(pattern.S)
	want.predicate = encode(pattern.P)
	want.object = encode(pattern.O)
	if err != nil {
		return fmt.Errorf("failed to encode pattern: %w", err)
	}

	// The key prefix narrows the scan as far as the bound leading terms allow
	prefix := []byte{quadKeyPrefix}
	if !pattern.AnyGraph {
		prefix = graphQuadPrefix(want.graph)
		if want.subject != "" {
			prefix = append(append(prefix, want.subject...), keySep)
			if want.predicate != "" {
				prefix = append(append(prefix, want.predicate...), keySep)
			}
		}
	}

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			r, err := parseQuadKey(it.Item().KeyCopy(nil))
			if err != nil {
				return err
			}
			if (want.subject != "" && r.subject != want.subject) ||
				(want.predicate != "" && r.predicate != want.predicate) ||
				(want.object != "" && r.object != want.object) {
				continue
			}
			q, err := r.quad()
			if err != nil {
				return fmt.Errorf("failed to decode quad: %w", err)
			}
			if err := fn(q); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, rdf.ErrStop) {
		return nil
	}
	return err
}

// DefaultGraph returns the default graph as an rdf.Graph backed by Find.
func (s *BadgerQuadStore) DefaultGraph() rdf.Graph {
	return storeGraph{find: s.Find}
}

// Graph returns the named graph. A nil name selects the default graph.
func (s *BadgerQuadStore) Graph(name rdf.Term) rdf.Graph {
	return storeGraph{find: s.Find, name: name}
}

// GraphNames lists the names of the non-empty named graphs, ordered by
// their N-Triples form.
func (s *BadgerQuadStore) GraphNames() ([]rdf.Term, error) {
	var names []rdf.Term
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte{graphKeyPrefix}
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			encoded := string(it.Item().Key()[1:])
			name, err := decodeTerm(encoded)
			if err != nil {
				return fmt.Errorf("failed to decode graph name %q: %w", encoded, err)
			}
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rdf.SortTerms(names)
	return names, nil
}

// EstimateQuadCount counts the stored quads with a key-only scan.
func (s *BadgerQuadStore) EstimateQuadCount() int {
	var count int
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte{quadKeyPrefix}
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to count quads", slog.Any("error", err))
		return 0
	}
	return count
}

// Merge copies every quad of ds into the store with a write batch.
func (s *BadgerQuadStore) Merge(ds rdf.Dataset) error {
	quads, err := datasetQuads(ds)
	if err != nil {
		return err
	}
	if len(quads) == 0 {
		return nil
	}
	return s.insertBatch(quads)
}

func (s *BadgerQuadStore) insertBatch(quads []rdf.Quad) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	graphs := make(map[string]bool)
	for _, q := range quads {
		r, err := quadToRow(q)
		if err != nil {
			return fmt.Errorf("failed to encode quad %s: %w", q, err)
		}
		if err := wb.Set(quadKey(r), []byte{}); err != nil {
			return fmt.Errorf("failed to write quad: %w", err)
		}
		if r.graph != defaultGraphKey && !graphs[r.graph] {
			graphs[r.graph] = true
			if err := wb.Set(graphKey(r.graph), []byte{}); err != nil {
				return fmt.Errorf("failed to write graph name: %w", err)
			}
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush write batch: %w", err)
	}
	s.logger.Debug("inserted quad batch", slog.Int("quads", len(quads)))
	return nil
}

// WriteTo writes all quads to w as a JSON array of quad objects.
func (s *BadgerQuadStore) WriteTo(w io.Writer) (int64, error) {
	return dumpQuads(w, s.Find)
}

// ReadFrom reads quads in the format produced by WriteTo and inserts them.
func (s *BadgerQuadStore) ReadFrom(r io.Reader) (int64, error) {
	return loadQuads(r, s.insertBatch)
}

// Close closes the database.
func (s *BadgerQuadStore) Close() error {
	return s.db.Close()
}

func quadKey(r row) []byte {
	key := make([]byte, 0, 4+len(r.graph)+len(r.subject)+len(r.predicate)+len(r.object))
	key = append(key, quadKeyPrefix)
	key = append(append(key, r.graph...), keySep)
	key = append(append(key, r.subject...), keySep)
	key = append(append(key, r.predicate...), keySep)
	return append(key, r.object...)
}

func graphQuadPrefix(graph string) []byte {
	return append(append([]byte{quadKeyPrefix}, graph...), keySep)
}

func graphKey(graph string) []byte {
	return append([]byte{graphKeyPrefix}, graph...)
}

func parseQuadKey(key []byte) (row, error) {
	if len(key) == 0 || key[0] != quadKeyPrefix {
		return row{}, errMalformedKey
	}
	parts := bytes.SplitN(key[1:], []byte{keySep}, 4)
	if len(parts) != 4 {
		return row{}, fmt.Errorf("%w: %q", errMalformedKey, key)
	}
	return row{
		graph:     string(parts[0]),
		subject:   string(parts[1]),
		predicate: string(parts[2]),
		object:    string(parts[3]),
	}, nil
}

// keyWithPrefix reports whether any key in txn starts with prefix.
func keyWithPrefix(txn *badger.Txn, prefix []byte) bool {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	it.Seek(prefix)
	return it.ValidForPrefix(prefix)
}

// badgerLogger forwards Badger's log output to slog. Badger's info
// messages are routine, so they are logged at Debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(trimLogLine(format, args), slog.String("component", "badger"))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(trimLogLine(format, args), slog.String("component", "badger"))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(trimLogLine(format, args), slog.String("component", "badger"))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(trimLogLine(format, args), slog.String("component", "badger"))
}

func trimLogLine(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
