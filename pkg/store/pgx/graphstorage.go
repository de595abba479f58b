// Package pgx implements store.GraphStorage on PostgreSQL. Records are
// written with batched INSERT ... ON CONFLICT upserts inside a single
// transaction per write set.
package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/OFFIS-RIT/lexgraph/internal/util"
	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
)

const defaultBatchSize = 500

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements the GraphStorage interface on PostgreSQL.
type GraphDBStorage struct {
	conn      pgxIConn
	pool      *pgxpool.Pool
	batchSize int
}

var _ store.GraphStorage = (*GraphDBStorage)(nil)

type GraphDBStorageOption func(*GraphDBStorage)

// WithBatchSize sets how many records are queued per round trip.
func WithBatchSize(n int) GraphDBStorageOption {
	return func(s *GraphDBStorage) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewGraphDBStorageWithConnection creates a GraphDBStorage on an existing
// connection or pool. Close does not close conn.
func NewGraphDBStorageWithConnection(
	ctx context.Context,
	conn pgxIConn,
	opts ...GraphDBStorageOption,
) (*GraphDBStorage, error) {
	if conn == nil {
		return nil, errors.New("database connection is nil")
	}
	s := &GraphDBStorage{
		conn:      conn,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// NewGraphDBStorage runs the schema migrations, connects a pool to dsn and
// owns it until Close.
func NewGraphDBStorage(ctx context.Context, dsn string, opts ...GraphDBStorageOption) (*GraphDBStorage, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s, err := NewGraphDBStorageWithConnection(ctx, pool, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.pool = pool
	return s, nil
}

// Pool returns the owned pool, nil when the storage wraps a caller's
// connection.
func (s *GraphDBStorage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *GraphDBStorage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// SaveWriteSet upserts nodes, edges, communities and memberships in that
// order so foreign keys always resolve. Everything commits or nothing does.
func (s *GraphDBStorage) SaveWriteSet(ctx context.Context, ws store.WriteSet) (store.Receipt, error) {
	if err := ws.Validate(); err != nil {
		return store.Receipt{}, fmt.Errorf("failed to validate write set: %w", err)
	}
	tags, err := json.Marshal(nonNilTags(ws.Tags))
	if err != nil {
		return store.Receipt{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return store.Receipt{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = util.ChunkRange(len(ws.Entities), s.batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, e := range ws.Entities[start:end] {
			attrs, err := json.Marshal(nonNilAttrs(e.Attributes))
			if err != nil {
				return fmt.Errorf("failed to encode attributes of %s: %w", e.ID, err)
			}
			batch.Queue(upsertNodeSQL,
				e.ID, util.SanitizePostgresText(e.Text), string(e.Type), string(e.Type.Category()), e.Confidence,
				attrs, nonNil(e.DocumentIDs), nonNil(e.Provenance), e.MergedCount, tags, ws.RunID,
			)
		}
		logger.Debug("[Store][Postgres] Upserting nodes", "count", end-start)
		return sendBatch(ctx, tx, batch, "nodes")
	})
	if err != nil {
		return store.Receipt{}, err
	}

	err = util.ChunkRange(len(ws.Relationships), s.batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, r := range ws.Relationships[start:end] {
			batch.Queue(upsertEdgeSQL,
				r.ID, r.SourceID, r.TargetID, string(r.Type), r.Confidence, string(r.Method),
				util.SanitizePostgresText(r.Evidence), r.DocumentID, r.CitationID,
				util.SanitizePostgresText(r.SourceText), string(r.SourceType),
				util.SanitizePostgresText(r.TargetText), string(r.TargetType), tags, ws.RunID,
			)
		}
		logger.Debug("[Store][Postgres] Upserting edges", "count", end-start)
		return sendBatch(ctx, tx, batch, "edges")
	})
	if err != nil {
		return store.Receipt{}, err
	}

	err = util.ChunkRange(len(ws.Communities), s.batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, c := range ws.Communities[start:end] {
			batch.Queue(upsertCommunitySQL,
				c.ID, c.Level, c.Resolution, nonNil(c.Members), c.Coherence, c.Classification,
				string(c.DominantType), nonNil(c.CentralEntities), util.SanitizePostgresText(c.Description),
				util.SanitizePostgresText(c.Title), util.SanitizePostgresText(c.Summary), string(c.SummaryStatus),
				tags, ws.RunID,
			)
		}
		return sendBatch(ctx, tx, batch, "communities")
	})
	if err != nil {
		return store.Receipt{}, err
	}

	err = util.ChunkRange(len(ws.Memberships), s.batchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, m := range ws.Memberships[start:end] {
			batch.Queue(upsertMembershipSQL, m.CommunityID, m.EntityID, m.Level, ws.RunID)
		}
		return sendBatch(ctx, tx, batch, "memberships")
	})
	if err != nil {
		return store.Receipt{}, err
	}

	receipt := store.NewReceipt("postgres", ws)
	if _, err := tx.Exec(ctx, upsertRunSQL,
		ws.RunID, ws.DocumentID, tags, receipt.Nodes, receipt.Edges, receipt.Communities, receipt.Memberships,
	); err != nil {
		return store.Receipt{}, fmt.Errorf("failed to record run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.Receipt{}, fmt.Errorf("failed to commit write set: %w", err)
	}

	logger.Info("[Store][Postgres] Saved write set", "run_id", ws.RunID, "nodes", receipt.Nodes,
		"edges", receipt.Edges, "communities", receipt.Communities)
	return receipt, nil
}

func sendBatch(ctx context.Context, tx pgxv5.Tx, batch *pgxv5.Batch, what string) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", what, err)
	}
	return nil
}

func (s *GraphDBStorage) GetNode(ctx context.Context, id string) (common.CanonicalEntity, error) {
	var (
		e     common.CanonicalEntity
		typ   string
		attrs []byte
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, text, type, confidence, attributes, document_ids, provenance, merged_count
		FROM graph_nodes WHERE id = $1`, id,
	).Scan(&e.ID, &e.Text, &typ, &e.Confidence, &attrs, &e.DocumentIDs, &e.Provenance, &e.MergedCount)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return e, store.ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	e.Type = common.EntityType(typ)
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &e.Attributes); err != nil {
			return e, fmt.Errorf("failed to decode attributes of %s: %w", id, err)
		}
	}
	return e, nil
}

func (s *GraphDBStorage) GetEdge(ctx context.Context, id string) (common.Relationship, error) {
	var (
		r                             common.Relationship
		typ, method, srcType, dstType string
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, source_id, target_id, type, confidence, method, evidence, document_id, citation_id,
			source_text, source_type, target_text, target_type
		FROM graph_edges WHERE id = $1`, id,
	).Scan(&r.ID, &r.SourceID, &r.TargetID, &typ, &r.Confidence, &method, &r.Evidence, &r.DocumentID,
		&r.CitationID, &r.SourceText, &srcType, &r.TargetText, &dstType)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return r, store.ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("failed to get edge %s: %w", id, err)
	}
	r.Type = common.RelationType(typ)
	r.Method = common.DiscoveryMethod(method)
	r.SourceType = common.EntityType(srcType)
	r.TargetType = common.EntityType(dstType)
	return r, nil
}

func (s *GraphDBStorage) GetCommunity(ctx context.Context, id string) (common.Community, error) {
	var (
		c                common.Community
		dominant, status string
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, level, resolution, members, coherence, classification, dominant_type, central_entities,
			description, title, summary, summary_status
		FROM graph_communities WHERE id = $1`, id,
	).Scan(&c.ID, &c.Level, &c.Resolution, &c.Members, &c.Coherence, &c.Classification, &dominant,
		&c.CentralEntities, &c.Description, &c.Title, &c.Summary, &status)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return c, store.ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("failed to get community %s: %w", id, err)
	}
	c.DominantType = common.EntityType(dominant)
	c.SummaryStatus = common.SummaryStatus(status)
	return c, nil
}

func (s *GraphDBStorage) GetMemberships(ctx context.Context, communityID string) ([]common.Membership, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT community_id, entity_id, level FROM graph_memberships
		WHERE community_id = $1 ORDER BY entity_id`, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	out, err := pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.Membership, error) {
		var m common.Membership
		err := row.Scan(&m.CommunityID, &m.EntityID, &m.Level)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan memberships: %w", err)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilAttrs(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilTags(t common.Tags) common.Tags {
	if t == nil {
		return common.Tags{}
	}
	return t
}

const upsertNodeSQL = `
INSERT INTO graph_nodes (id, text, type, category, confidence, attributes, document_ids, provenance, merged_count, tags, run_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE
SET text         = EXCLUDED.text,
    type         = EXCLUDED.type,
    category     = EXCLUDED.category,
    confidence   = EXCLUDED.confidence,
    attributes   = EXCLUDED.attributes,
    document_ids = EXCLUDED.document_ids,
    provenance   = EXCLUDED.provenance,
    merged_count = EXCLUDED.merged_count,
    tags         = EXCLUDED.tags,
    run_id       = EXCLUDED.run_id,
    updated_at   = now();
`

const upsertEdgeSQL = `
INSERT INTO graph_edges (id, source_id, target_id, type, confidence, method, evidence, document_id, citation_id,
    source_text, source_type, target_text, target_type, tags, run_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (id) DO UPDATE
SET confidence  = EXCLUDED.confidence,
    method      = EXCLUDED.method,
    evidence    = EXCLUDED.evidence,
    document_id = EXCLUDED.document_id,
    citation_id = EXCLUDED.citation_id,
    source_text = EXCLUDED.source_text,
    source_type = EXCLUDED.source_type,
    target_text = EXCLUDED.target_text,
    target_type = EXCLUDED.target_type,
    tags        = EXCLUDED.tags,
    run_id      = EXCLUDED.run_id,
    updated_at  = now();
`

const upsertCommunitySQL = `
INSERT INTO graph_communities (id, level, resolution, members, coherence, classification, dominant_type,
    central_entities, description, title, summary, summary_status, tags, run_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE
SET coherence        = EXCLUDED.coherence,
    classification   = EXCLUDED.classification,
    dominant_type    = EXCLUDED.dominant_type,
    central_entities = EXCLUDED.central_entities,
    description      = EXCLUDED.description,
    title            = EXCLUDED.title,
    summary          = EXCLUDED.summary,
    summary_status   = EXCLUDED.summary_status,
    tags             = EXCLUDED.tags,
    run_id           = EXCLUDED.run_id,
    updated_at       = now();
`

const upsertMembershipSQL = `
INSERT INTO graph_memberships (community_id, entity_id, level, run_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (community_id, entity_id) DO UPDATE
SET level  = EXCLUDED.level,
    run_id = EXCLUDED.run_id;
`

const upsertRunSQL = `
INSERT INTO graph_runs (run_id, document_id, tags, nodes, edges, communities, memberships)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (run_id) DO UPDATE
SET document_id = EXCLUDED.document_id,
    tags        = EXCLUDED.tags,
    nodes       = EXCLUDED.nodes,
    edges       = EXCLUDED.edges,
    communities = EXCLUDED.communities,
    memberships = EXCLUDED.memberships,
    stored_at   = now();
`
