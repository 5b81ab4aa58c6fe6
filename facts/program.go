package facts

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/functional"
	"github.com/google/mangle/parse"
)

// LoadSource parses Mangle source and adds its facts (clauses without a
// body) to store. Rules are skipped and logged. It returns how many facts
// were new.
func LoadSource(r io.Reader, store factstore.FactStore, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	unit, err := parse.Unit(r)
	if err != nil {
		return 0, fmt.Errorf("failed to parse Mangle source: %w", err)
	}

	var added, skipped int
	for _, clause := range unit.Clauses {
		if len(clause.Premises) > 0 {
			skipped++
			continue
		}
		fact, err := evalFact(clause.Head)
		if err != nil {
			return added, err
		}
		if store.Add(fact) {
			added++
		}
	}
	if skipped > 0 {
		logger.Warn("skipped Mangle rules; only facts are loaded", slog.Int("rules", skipped))
	}
	logger.Debug("loaded Mangle facts", slog.Int("facts", added))
	return added, nil
}

func evalFact(head ast.Atom) (ast.Atom, error) {
	fact, err := functional.EvalAtom(head, nil)
	if err != nil {
		return ast.Atom{}, fmt.Errorf("failed to evaluate fact %v: %w", head, err)
	}
	return fact, nil
}
