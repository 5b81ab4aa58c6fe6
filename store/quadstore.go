// Package store keeps RDF quads in a SQL database (SQLite or PostgreSQL)
// or a Badger key-value store and exposes them as an rdf.Dataset, so
// stored data can be written as JSON-LD without loading it into memory
// first.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/twinfer/ldwriter/rdf"
)

// Counter for generating unique in-memory database names
var inMemoryDBCounter atomic.Uint64

// QuadStoreDB stores quads in a single 'quads' table. Every term is kept
// in its canonical JSON encoding and each row is keyed by a hash of the
// four encoded terms, so inserts are idempotent. It is safe for
// concurrent use.
type QuadStoreDB struct {
	db *sql.DB
	// ownsDB is false when the connection was supplied by the caller.
	ownsDB bool
	// dialect handles SQL syntax differences between databases.
	dialect dialect
	logger  *slog.Logger
	// Prepared statements for performance
	addStmt      *sql.Stmt
	removeStmt   *sql.Stmt
	containsStmt *sql.Stmt
}

// Add adds a quad to the store and returns true if it didn't exist before.
func (s *QuadStoreDB) Add(q rdf.Quad) bool {
	r, err := quadToRow(q)
	if err != nil {
		s.logger.Error("failed to encode quad for Add", slog.String("quad", q.String()), slog.Any("error", err))
		return false
	}

	// The primary key on quad_hash handles deduplication
	res, err := s.addStmt.Exec(r.params()...)
	if err != nil {
		s.logger.Error("failed to execute add statement", slog.Any("error", err))
		return false
	}

	// rowsAffected=0 means already existed
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false
	}
	return rowsAffected > 0
}

// Contains returns true if the quad is present in the store.
func (s *QuadStoreDB) Contains(q rdf.Quad) bool {
	r, err := quadToRow(q)
	if err != nil {
		s.logger.Error("failed to encode quad for Contains", slog.String("quad", q.String()), slog.Any("error", err))
		return false
	}

	var count int
	if err := s.containsStmt.QueryRow(r.hash).Scan(&count); err != nil {
		s.logger.Error("failed to execute contains statement", slog.Any("error", err))
		return false
	}
	return count > 0
}

// Remove removes a quad from the store and returns true if it was present.
func (s *QuadStoreDB) Remove(q rdf.Quad) bool {
	r, err := quadToRow(q)
	if err != nil {
		s.logger.Error("failed to encode quad for Remove", slog.String("quad", q.String()), slog.Any("error", err))
		return false
	}

	result, err := s.removeStmt.Exec(r.hash)
	if err != nil {
		s.logger.Error("failed to execute remove statement", slog.Any("error", err))
		return false
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Error("failed to get rows affected after remove", slog.Any("error", err))
		return false
	}
	return rowsAffected > 0
}

// Find calls fn for every quad matching pattern, ordered by graph,
// subject, predicate and object encoding. Returning rdf.ErrStop from fn
// ends the scan without error.
func (s *QuadStoreDB) Find(pattern Pattern, fn func(rdf.Quad) error) error {
	var queryBuf strings.Builder
	var params []any

	queryBuf.WriteString(s.dialect.findBaseSQL())

	if !pattern.AnyGraph {
		g := defaultGraphKey
		if pattern.G != nil {
			var err error
			if g, err = encodeTerm(pattern.G); err != nil {
				return fmt.Errorf("failed to encode graph name: %w", err)
			}
		}
		queryBuf.WriteString(" AND graph = " + s.dialect.placeholder(params))
		params = append(params, g)
	}

	// Constant positions filter by exact encoding; nil positions are wildcards
	for _, f := range []struct {
		column string
		term   rdf.Term
	}{
		{"subject", pattern.S}, {"predicate", pattern.P}, {"object", pattern.O},
	} {
		if f.term == nil {
			continue
		}
		enc, err := encodeTerm(f.term)
		if err != nil {
			return fmt.Errorf("failed to encode pattern %s: %w", f.column, err)
		}
		queryBuf.WriteString(" AND " + f.column + " = " + s.dialect.placeholder(params))
		params = append(params, enc)
	}
	queryBuf.WriteString(" ORDER BY graph, subject, predicate, object")

	rows, err := s.db.Query(queryBuf.String(), params...)
	if err != nil {
		return fmt.Errorf("failed to query quads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r row
		if err := rows.Scan(&r.graph, &r.subject, &r.predicate, &r.object); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		q, err := r.quad()
		if err != nil {
			return fmt.Errorf("failed to decode quad: %w", err)
		}
		if err := fn(q); err != nil {
			if errors.Is(err, rdf.ErrStop) {
				return nil
			}
			return err
		}
	}
	return rows.Err()
}

// DefaultGraph returns the default graph as an rdf.Graph backed by Find.
func (s *QuadStoreDB) DefaultGraph() rdf.Graph {
	return storeGraph{find: s.Find}
}

// Graph returns the named graph. A nil name selects the default graph.
func (s *QuadStoreDB) Graph(name rdf.Term) rdf.Graph {
	return storeGraph{find: s.Find, name: name}
}

// GraphNames lists the names of the non-empty named graphs, ordered by
// their N-Triples form.
func (s *QuadStoreDB) GraphNames() ([]rdf.Term, error) {
	rows, err := s.db.Query(`SELECT DISTINCT graph FROM quads WHERE graph <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to query graph names: %w", err)
	}
	defer rows.Close()

	var names []rdf.Term
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("failed to scan graph name: %w", err)
		}
		name, err := decodeTerm(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode graph name %q: %w", encoded, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating graph names: %w", err)
	}
	rdf.SortTerms(names)
	return names, nil
}

// EstimateQuadCount returns the estimated number of quads in the store.
func (s *QuadStoreDB) EstimateQuadCount() int {
	const query = "SELECT COUNT(*) FROM quads"
	var count int
	if err := s.db.QueryRow(query).Scan(&count); err != nil {
		s.logger.Error("failed to estimate quad count", slog.Any("error", err))
		return 0
	}
	return count
}

// Merge copies every quad of ds into the store using batched multi-row
// INSERTs.
func (s *QuadStoreDB) Merge(ds rdf.Dataset) error {
	quads, err := datasetQuads(ds)
	if err != nil {
		return err
	}
	if len(quads) == 0 {
		return nil
	}
	return s.batchInsertQuads(quads)
}

// batchInsertQuads inserts quads using multi-row INSERT statements in a
// single transaction.
func (s *QuadStoreDB) batchInsertQuads(quads []rdf.Quad) error {
	const batchSize = 200 // 5 params per row keeps PostgreSQL well under its bind limit

	// Pre-compute all rows outside transaction to minimize lock time
	rows := make([]row, 0, len(quads))
	for _, q := range quads {
		r, err := quadToRow(q)
		if err != nil {
			return fmt.Errorf("failed to encode quad %s: %w", q, err)
		}
		rows = append(rows, r)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback is a no-op if Commit succeeds

	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		batch := rows[i:end]

		params := make([]any, 0, len(batch)*5)
		for _, r := range batch {
			params = append(params, r.params()...)
		}
		if _, err := tx.Exec(s.dialect.batchInsertSQL(len(batch)), params...); err != nil {
			return fmt.Errorf("failed to execute batch insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Debug("inserted quad batch", slog.Int("quads", len(rows)))
	return nil
}

// WriteTo writes all quads to w as a JSON array of quad objects.
// It implements the io.WriterTo interface.
func (s *QuadStoreDB) WriteTo(w io.Writer) (int64, error) {
	return dumpQuads(w, s.Find)
}

// ReadFrom reads quads from a JSON stream (r) and bulk-inserts them into the store.
// It implements the io.ReaderFrom interface.
// The expected format is the one produced by WriteTo.
func (s *QuadStoreDB) ReadFrom(r io.Reader) (int64, error) {
	return loadQuads(r, s.batchInsertQuads)
}

// Close releases the prepared statements and, if the store opened the
// connection itself, closes it.
func (s *QuadStoreDB) Close() error {
	if s.addStmt != nil {
		s.addStmt.Close()
	}
	if s.removeStmt != nil {
		s.removeStmt.Close()
	}
	if s.containsStmt != nil {
		s.containsStmt.Close()
	}
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// row is the encoded form of a quad.
type row struct {
	hash                              int64
	graph, subject, predicate, object string
}

func (r row) params() []any {
	return []any{r.hash, r.graph, r.subject, r.predicate, r.object}
}

func (r row) quad() (rdf.Quad, error) {
	var q rdf.Quad
	var err error
	if q.S, err = decodeTerm(r.subject); err != nil {
		return q, fmt.Errorf("subject: %w", err)
	}
	if q.P, err = decodeTerm(r.predicate); err != nil {
		return q, fmt.Errorf("predicate: %w", err)
	}
	if q.O, err = decodeTerm(r.object); err != nil {
		return q, fmt.Errorf("object: %w", err)
	}
	if r.graph != defaultGraphKey {
		if q.G, err = decodeTerm(r.graph); err != nil {
			return q, fmt.Errorf("graph: %w", err)
		}
	}
	return q, nil
}

// quadToRow encodes the terms of q and computes its row hash.
func quadToRow(q rdf.Quad) (row, error) {
	var r row
	var err error
	if q.S == nil || q.P == nil || q.O == nil {
		return r, fmt.Errorf("incomplete quad %s: %w", q, rdf.ErrUnsupportedTerm)
	}
	if r.subject, err = encodeTerm(q.S); err != nil {
		return r, err
	}
	if r.predicate, err = encodeTerm(q.P); err != nil {
		return r, err
	}
	if r.object, err = encodeTerm(q.O); err != nil {
		return r, err
	}
	if q.G != nil {
		if r.graph, err = encodeTerm(q.G); err != nil {
			return r, err
		}
	}

	hashResult := xxh3.HashString(r.graph)
	for _, part := range []string{r.subject, r.predicate, r.object} {
		hashResult = szudzikElegantPair(hashResult, xxh3.HashString(part))
	}
	// Cast to int64 for database/sql compatibility - BIGINT will interpret the bit pattern correctly
	r.hash = int64(hashResult)
	return r, nil
}

// szudzikElegantPair implements Szudzik's elegant pairing function.
// See http://szudzik.com/ElegantPairing.pdf
func szudzikElegantPair(fst, snd uint64) uint64 {
	if fst >= snd {
		return fst*fst + fst + snd
	}
	return snd*snd + fst
}
