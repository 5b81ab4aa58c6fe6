package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver
)

// config holds configuration options for the QuadStoreDB.
type config struct {
	pragmas map[string]string
	logger  *slog.Logger
}

// StoreOption is a function that configures a QuadStoreDB.
type StoreOption func(*config)

// WithPragma sets a specific SQLite PRAGMA statement.
// For example: WithPragma("synchronous", "NORMAL").
// This will override any default value for the given PRAGMA key.
// PostgreSQL stores ignore it.
func WithPragma(key, value string) StoreOption {
	return func(c *config) {
		if c.pragmas == nil {
			c.pragmas = make(map[string]string)
		}
		c.pragmas[key] = value
	}
}

// WithLogger sets the logger used for failures of the boolean API
// (Add, Contains, Remove). The default is slog.Default().
func WithLogger(l *slog.Logger) StoreOption {
	return func(c *config) { c.logger = l }
}

// defaultConfig returns a new config with default PRAGMA settings
// for performance and concurrency.
func defaultConfig() *config {
	return &config{
		pragmas: map[string]string{
			"journal_mode": "WAL",
			"synchronous":  "OFF",
			"cache_size":   "-64000",
			"temp_store":   "MEMORY",
			"mmap_size":    "268435456",
			"busy_timeout": "5000",
			"foreign_keys": "OFF",
			"auto_vacuum":  "INCREMENTAL",
		},
	}
}

func buildConfig(opts []StoreOption) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}

// NewQuadStoreSQLite creates a new SQLite-backed quad store.
// Pass ":memory:" for dbPath to create an in-memory database.
// Optional StoreOption functions can be provided to customize PRAGMA settings.
func NewQuadStoreSQLite(dbPath string, opts ...StoreOption) (*QuadStoreDB, error) {
	// For in-memory databases, use a unique name with shared cache so the
	// pool's connections see the same database
	if dbPath == ":memory:" {
		id := inMemoryDBCounter.Add(1)
		dbPath = fmt.Sprintf("file:quadstore_%d?mode=memory&cache=shared", id)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	cfg := buildConfig(opts)
	if err := applyPragmas(db, cfg.pragmas); err != nil {
		db.Close()
		return nil, err
	}

	store := &QuadStoreDB{
		db:      db,
		ownsDB:  true,
		dialect: sqliteDialect{},
		logger:  cfg.logger,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	cfg.logger.Debug("opened SQLite quad store", slog.String("path", dbPath))
	return store, nil
}

// NewQuadStoreSQLiteFromDB creates a SQLite-backed quad store on an
// existing connection. The caller retains ownership of db and must close
// it separately. PRAGMA options are applied to the connection.
func NewQuadStoreSQLiteFromDB(db *sql.DB, opts ...StoreOption) (*QuadStoreDB, error) {
	cfg := buildConfig(opts)
	if err := applyPragmas(db, cfg.pragmas); err != nil {
		return nil, err
	}

	store := &QuadStoreDB{
		db:      db,
		ownsDB:  false,
		dialect: sqliteDialect{},
		logger:  cfg.logger,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func applyPragmas(db *sql.DB, pragmas map[string]string) error {
	// Sort keys for deterministic execution order
	keys := make([]string, 0, len(pragmas))
	for k := range pragmas {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		pragmaSQL := fmt.Sprintf("PRAGMA %s=%s", key, pragmas[key])
		if _, err := db.Exec(pragmaSQL); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragmaSQL, err)
		}
	}
	return nil
}

// initSchemaAndStatements creates the table, indexes, and prepared statements.
func (s *QuadStoreDB) initSchemaAndStatements() error {
	if _, err := s.db.Exec(s.dialect.createTableSQL()); err != nil {
		return fmt.Errorf("failed to create quads table: %w", err)
	}
	for _, stmt := range s.dialect.createIndexSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	addStmt, err := s.db.Prepare(s.dialect.addSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare add statement: %w", err)
	}
	s.addStmt = addStmt

	removeStmt, err := s.db.Prepare(s.dialect.removeSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare remove statement: %w", err)
	}
	s.removeStmt = removeStmt

	containsStmt, err := s.db.Prepare(s.dialect.containsSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare contains statement: %w", err)
	}
	s.containsStmt = containsStmt
	return nil
}
