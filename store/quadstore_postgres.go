package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// NewQuadStorePostgreSQL creates a new PostgreSQL-backed quad store.
// It accepts a standard PostgreSQL connection string. PRAGMA options are
// ignored.
func NewQuadStorePostgreSQL(connStr string, opts ...StoreOption) (*QuadStoreDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)

	store := &QuadStoreDB{
		db:      db,
		ownsDB:  true,
		dialect: postgresDialect{},
		logger:  buildConfig(opts).logger,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema for PostgreSQL: %w", err)
	}
	return store, nil
}

// NewQuadStorePostgreSQLFromDB creates a PostgreSQL-backed quad store from
// an existing database connection. The caller retains ownership of the db
// connection and must close it separately.
func NewQuadStorePostgreSQLFromDB(db *sql.DB, opts ...StoreOption) (*QuadStoreDB, error) {
	store := &QuadStoreDB{
		db:      db,
		ownsDB:  false,
		dialect: postgresDialect{},
		logger:  buildConfig(opts).logger,
	}
	if err := store.initSchemaAndStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema for PostgreSQL: %w", err)
	}
	return store, nil
}
