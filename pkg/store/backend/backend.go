// Package backend opens the GraphStorage selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/lexgraph/pkg/config"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/memory"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/neo4j"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/pgx"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/sqlite"
)

const defaultSQLitePath = "lexgraph.db"

func Open(ctx context.Context, cfg config.StoreConfig) (store.GraphStorage, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = defaultSQLitePath
		}
		s, err := sqlite.NewStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, errors.New("postgres backend needs a dsn")
		}
		s, err := pgx.NewGraphDBStorage(ctx, cfg.DSN, pgx.WithBatchSize(cfg.BatchSize))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "neo4j":
		s, err := neo4j.NewStore(ctx, neo4j.Params{
			URI:       cfg.Neo4jURI,
			User:      cfg.Neo4jUser,
			Password:  cfg.Neo4jPassword,
			Database:  cfg.Neo4jDatabase,
			BatchSize: cfg.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
