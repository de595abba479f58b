// Package neo4j mirrors the graph into Neo4j: entities become :Entity
// nodes, relationships :RELATES edges keyed by edge id, communities
// :Community nodes linked from their members by :IN_COMMUNITY.
package neo4j

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/OFFIS-RIT/lexgraph/internal/util"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
)

type Params struct {
	URI         string
	User        string
	Password    string
	Database    string
	BatchSize   int
	MaxPoolSize int
	Timeout     time.Duration
}

type Store struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
}

var _ store.GraphStorage = (*Store)(nil)

var schemaStatements = []string{
	`CREATE CONSTRAINT lexgraph_entity_id IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
	`CREATE CONSTRAINT lexgraph_community_id IF NOT EXISTS FOR (c:Community) REQUIRE c.id IS UNIQUE`,
	`CREATE INDEX lexgraph_entity_category IF NOT EXISTS FOR (e:Entity) ON (e.category)`,
}

// NewStore connects, verifies connectivity and creates constraints. Schema
// creation is best effort; restricted users may not be allowed to do it.
func NewStore(ctx context.Context, p Params) (*Store, error) {
	if p.URI == "" {
		return nil, errors.New("neo4j uri is empty")
	}
	if p.User == "" {
		p.User = "neo4j"
	}
	if p.Timeout <= 0 {
		p.Timeout = 10 * time.Second
	}
	if p.MaxPoolSize <= 0 {
		p.MaxPoolSize = 50
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 500
	}

	driver, err := neo4j.NewDriverWithContext(p.URI, neo4j.BasicAuth(p.User, p.Password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = p.MaxPoolSize
		cfg.SocketConnectTimeout = p.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init neo4j driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}

	s := &Store{driver: driver, database: p.Database, batchSize: p.BatchSize}
	s.ensureSchema(ctx)
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			logger.Warn("[Store][Neo4j] Schema init failed (continuing)", "err", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

// SaveWriteSet merges the write set in one write transaction.
func (s *Store) SaveWriteSet(ctx context.Context, ws store.WriteSet) (store.Receipt, error) {
	if err := ws.Validate(); err != nil {
		return store.Receipt{}, fmt.Errorf("failed to validate write set: %w", err)
	}
	tags, err := encodeJSON(ws.Tags)
	if err != nil {
		return store.Receipt{}, err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	nodes := make([]map[string]any, 0, len(ws.Entities))
	for _, e := range ws.Entities {
		rec, err := entityProps(e)
		if err != nil {
			return store.Receipt{}, err
		}
		rec["tags_json"] = tags
		rec["run_id"] = ws.RunID
		rec["synced_at"] = now
		nodes = append(nodes, rec)
	}
	rels := make([]map[string]any, 0, len(ws.Relationships))
	for _, r := range ws.Relationships {
		rec := relationshipProps(r)
		rec["tags_json"] = tags
		rec["run_id"] = ws.RunID
		rec["synced_at"] = now
		rels = append(rels, map[string]any{"source_id": r.SourceID, "target_id": r.TargetID, "props": rec})
	}
	comms := make([]map[string]any, 0, len(ws.Communities))
	for _, c := range ws.Communities {
		rec := communityProps(c)
		rec["tags_json"] = tags
		rec["run_id"] = ws.RunID
		rec["synced_at"] = now
		comms = append(comms, rec)
	}
	members := make([]map[string]any, 0, len(ws.Memberships))
	for _, m := range ws.Memberships {
		members = append(members, map[string]any{
			"community_id": m.CommunityID,
			"entity_id":    m.EntityID,
			"level":        int64(m.Level),
			"run_id":       ws.RunID,
		})
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			query string
			key   string
			rows  []map[string]any
		}{
			{mergeNodesCypher, "nodes", nodes},
			{mergeEdgesCypher, "rels", rels},
			{mergeCommunitiesCypher, "communities", comms},
			{mergeMembershipsCypher, "members", members},
		}
		for _, step := range steps {
			err := util.ChunkRange(len(step.rows), s.batchSize, func(start, end int) error {
				res, err := tx.Run(ctx, step.query, map[string]any{step.key: step.rows[start:end]})
				if err != nil {
					return err
				}
				_, err = res.Consume(ctx)
				return err
			})
			if err != nil {
				return nil, fmt.Errorf("failed to merge %s: %w", step.key, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return store.Receipt{}, err
	}

	receipt := store.NewReceipt("neo4j", ws)
	logger.Info("[Store][Neo4j] Saved write set", "run_id", ws.RunID, "nodes", receipt.Nodes, "edges", receipt.Edges)
	return receipt, nil
}

func (s *Store) readOne(ctx context.Context, query string, params map[string]any, key string) (map[string]any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, store.ErrNotFound
		}
		v, ok := res.Record().Get(key)
		if !ok {
			return nil, fmt.Errorf("record has no %q column", key)
		}
		switch t := v.(type) {
		case neo4j.Node:
			return t.Props, nil
		case neo4j.Relationship:
			return t.Props, nil
		}
		return nil, fmt.Errorf("unexpected value of type %T", v)
	})
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

func (s *Store) GetNode(ctx context.Context, id string) (common.CanonicalEntity, error) {
	props, err := s.readOne(ctx, `MATCH (n:Entity {id: $id}) RETURN n`, map[string]any{"id": id}, "n")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.CanonicalEntity{}, err
		}
		return common.CanonicalEntity{}, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return entityFromProps(props)
}

func (s *Store) GetEdge(ctx context.Context, id string) (common.Relationship, error) {
	props, err := s.readOne(ctx, `MATCH ()-[e:RELATES {id: $id}]->() RETURN e`, map[string]any{"id": id}, "e")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.Relationship{}, err
		}
		return common.Relationship{}, fmt.Errorf("failed to get edge %s: %w", id, err)
	}
	return relationshipFromProps(props), nil
}

func (s *Store) GetCommunity(ctx context.Context, id string) (common.Community, error) {
	props, err := s.readOne(ctx, `MATCH (c:Community {id: $id}) RETURN c`, map[string]any{"id": id}, "c")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return common.Community{}, err
		}
		return common.Community{}, fmt.Errorf("failed to get community %s: %w", id, err)
	}
	return communityFromProps(props), nil
}

func (s *Store) GetMemberships(ctx context.Context, communityID string) ([]common.Membership, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (e:Entity)-[m:IN_COMMUNITY]->(c:Community {id: $id})
RETURN e.id AS entity_id, m.level AS level
ORDER BY entity_id`, map[string]any{"id": communityID})
		if err != nil {
			return nil, err
		}
		var members []common.Membership
		for res.Next(ctx) {
			rec := res.Record()
			entityID, _ := rec.Get("entity_id")
			level, _ := rec.Get("level")
			members = append(members, common.Membership{
				CommunityID: communityID,
				EntityID:    asString(entityID),
				Level:       int(asInt(level)),
			})
		}
		return members, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	return out.([]common.Membership), nil
}

const mergeNodesCypher = `
UNWIND $nodes AS n
MERGE (e:Entity {id: n.id})
SET e += n
`

const mergeEdgesCypher = `
UNWIND $rels AS r
MATCH (a:Entity {id: r.source_id})
MATCH (b:Entity {id: r.target_id})
MERGE (a)-[e:RELATES {id: r.props.id}]->(b)
SET e += r.props
`

const mergeCommunitiesCypher = `
UNWIND $communities AS c
MERGE (n:Community {id: c.id})
SET n += c
`

const mergeMembershipsCypher = `
UNWIND $members AS m
MATCH (e:Entity {id: m.entity_id})
MATCH (c:Community {id: m.community_id})
MERGE (e)-[r:IN_COMMUNITY]->(c)
SET r.level = m.level,
    r.run_id = m.run_id
`

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode property: %w", err)
	}
	return string(b), nil
}
