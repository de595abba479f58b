// Package sqlite persists the graph in a single SQLite file through the
// pure-Go modernc driver. It is the default backend of the command line
// builder.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
	"github.com/OFFIS-RIT/lexgraph/pkg/store/sqlite/migrations"
)

const memoryPath = ":memory:"

type Store struct {
	db   *sql.DB
	path string
}

var _ store.GraphStorage = (*Store)(nil)

// NewStore opens (or creates) the database at path and applies pending
// migrations. ":memory:" keeps everything in a single in-process
// connection.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	dsn := path
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryPath {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("[Store][SQLite] Opened database", "path", path)
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}
	return nil
}

// SaveWriteSet upserts the whole write set inside one transaction.
func (s *Store) SaveWriteSet(ctx context.Context, ws store.WriteSet) (store.Receipt, error) {
	if err := ws.Validate(); err != nil {
		return store.Receipt{}, fmt.Errorf("failed to validate write set: %w", err)
	}
	tags, err := encode(ws.Tags, "{}")
	if err != nil {
		return store.Receipt{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Receipt{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertNodes(ctx, tx, ws, tags); err != nil {
		return store.Receipt{}, err
	}
	if err := upsertEdges(ctx, tx, ws, tags); err != nil {
		return store.Receipt{}, err
	}
	if err := upsertCommunities(ctx, tx, ws, tags); err != nil {
		return store.Receipt{}, err
	}
	if err := upsertMemberships(ctx, tx, ws); err != nil {
		return store.Receipt{}, err
	}

	receipt := store.NewReceipt("sqlite", ws)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO graph_runs (run_id, document_id, tags, nodes, edges, communities, memberships)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			document_id = excluded.document_id,
			tags = excluded.tags,
			nodes = excluded.nodes,
			edges = excluded.edges,
			communities = excluded.communities,
			memberships = excluded.memberships,
			stored_at = CURRENT_TIMESTAMP`,
		ws.RunID, ws.DocumentID, tags, receipt.Nodes, receipt.Edges, receipt.Communities, receipt.Memberships,
	)
	if err != nil {
		return store.Receipt{}, fmt.Errorf("failed to record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return store.Receipt{}, fmt.Errorf("failed to commit write set: %w", err)
	}

	logger.Debug("[Store][SQLite] Saved write set", "run_id", ws.RunID, "nodes", receipt.Nodes, "edges", receipt.Edges)
	return receipt, nil
}

func upsertNodes(ctx context.Context, tx *sql.Tx, ws store.WriteSet, tags string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_nodes (id, text, type, category, confidence, attributes, document_ids, provenance, merged_count, tags, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			type = excluded.type,
			category = excluded.category,
			confidence = excluded.confidence,
			attributes = excluded.attributes,
			document_ids = excluded.document_ids,
			provenance = excluded.provenance,
			merged_count = excluded.merged_count,
			tags = excluded.tags,
			run_id = excluded.run_id,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare node upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range ws.Entities {
		attrs, err := encode(e.Attributes, "{}")
		if err != nil {
			return err
		}
		docs, err := encode(e.DocumentIDs, "[]")
		if err != nil {
			return err
		}
		prov, err := encode(e.Provenance, "[]")
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Text, string(e.Type), string(e.Type.Category()), e.Confidence,
			attrs, docs, prov, e.MergedCount, tags, ws.RunID,
		); err != nil {
			return fmt.Errorf("failed to upsert node %s: %w", e.ID, err)
		}
	}
	return nil
}

func upsertEdges(ctx context.Context, tx *sql.Tx, ws store.WriteSet, tags string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_edges (id, source_id, target_id, type, confidence, method, evidence, document_id, citation_id,
			source_text, source_type, target_text, target_type, tags, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			confidence = excluded.confidence,
			method = excluded.method,
			evidence = excluded.evidence,
			document_id = excluded.document_id,
			citation_id = excluded.citation_id,
			source_text = excluded.source_text,
			source_type = excluded.source_type,
			target_text = excluded.target_text,
			target_type = excluded.target_type,
			tags = excluded.tags,
			run_id = excluded.run_id,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range ws.Relationships {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.SourceID, r.TargetID, string(r.Type), r.Confidence, string(r.Method), r.Evidence,
			r.DocumentID, r.CitationID, r.SourceText, string(r.SourceType), r.TargetText, string(r.TargetType),
			tags, ws.RunID,
		); err != nil {
			return fmt.Errorf("failed to upsert edge %s: %w", r.ID, err)
		}
	}
	return nil
}

func upsertCommunities(ctx context.Context, tx *sql.Tx, ws store.WriteSet, tags string) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_communities (id, level, resolution, members, coherence, classification, dominant_type,
			central_entities, description, title, summary, summary_status, tags, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			coherence = excluded.coherence,
			classification = excluded.classification,
			dominant_type = excluded.dominant_type,
			central_entities = excluded.central_entities,
			description = excluded.description,
			title = excluded.title,
			summary = excluded.summary,
			summary_status = excluded.summary_status,
			tags = excluded.tags,
			run_id = excluded.run_id,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare community upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range ws.Communities {
		members, err := encode(c.Members, "[]")
		if err != nil {
			return err
		}
		central, err := encode(c.CentralEntities, "[]")
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Level, c.Resolution, members, c.Coherence, c.Classification, string(c.DominantType),
			central, c.Description, c.Title, c.Summary, string(c.SummaryStatus), tags, ws.RunID,
		); err != nil {
			return fmt.Errorf("failed to upsert community %s: %w", c.ID, err)
		}
	}
	return nil
}

func upsertMemberships(ctx context.Context, tx *sql.Tx, ws store.WriteSet) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_memberships (community_id, entity_id, level, run_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(community_id, entity_id) DO UPDATE SET
			level = excluded.level,
			run_id = excluded.run_id`)
	if err != nil {
		return fmt.Errorf("failed to prepare membership upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range ws.Memberships {
		if _, err := stmt.ExecContext(ctx, m.CommunityID, m.EntityID, m.Level, ws.RunID); err != nil {
			return fmt.Errorf("failed to upsert membership %s/%s: %w", m.CommunityID, m.EntityID, err)
		}
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id string) (common.CanonicalEntity, error) {
	var (
		e                 common.CanonicalEntity
		typ               string
		attrs, docs, prov string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, text, type, confidence, attributes, document_ids, provenance, merged_count
		FROM graph_nodes WHERE id = ?`, id,
	).Scan(&e.ID, &e.Text, &typ, &e.Confidence, &attrs, &docs, &prov, &e.MergedCount)
	if errors.Is(err, sql.ErrNoRows) {
		return e, store.ErrNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	e.Type = common.EntityType(typ)
	if err := decode(attrs, &e.Attributes); err != nil {
		return e, err
	}
	if err := decode(docs, &e.DocumentIDs); err != nil {
		return e, err
	}
	if err := decode(prov, &e.Provenance); err != nil {
		return e, err
	}
	return e, nil
}

func (s *Store) GetEdge(ctx context.Context, id string) (common.Relationship, error) {
	var (
		r                             common.Relationship
		typ, method, srcType, dstType string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_id, target_id, type, confidence, method, evidence, document_id, citation_id,
			source_text, source_type, target_text, target_type
		FROM graph_edges WHERE id = ?`, id,
	).Scan(&r.ID, &r.SourceID, &r.TargetID, &typ, &r.Confidence, &method, &r.Evidence, &r.DocumentID,
		&r.CitationID, &r.SourceText, &srcType, &r.TargetText, &dstType)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *Store) GetCommunity(ctx context.Context, id string) (common.Community, error) {
	var (
		c                common.Community
		members, central string
		dominant, status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, level, resolution, members, coherence, classification, dominant_type, central_entities,
			description, title, summary, summary_status
		FROM graph_communities WHERE id = ?`, id,
	).Scan(&c.ID, &c.Level, &c.Resolution, &members, &c.Coherence, &c.Classification, &dominant, &central,
		&c.Description, &c.Title, &c.Summary, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return c, store.ErrNotFound
	}
	if err != nil {
		return c, fmt.Errorf("failed to get community %s: %w", id, err)
	}
	c.DominantType = common.EntityType(dominant)
	c.SummaryStatus = common.SummaryStatus(status)
	if err := decode(members, &c.Members); err != nil {
		return c, err
	}
	if err := decode(central, &c.CentralEntities); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Store) GetMemberships(ctx context.Context, communityID string) ([]common.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT community_id, entity_id, level FROM graph_memberships
		WHERE community_id = ? ORDER BY entity_id`, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query memberships: %w", err)
	}
	defer rows.Close()

	var out []common.Membership
	for rows.Next() {
		var m common.Membership
		if err := rows.Scan(&m.CommunityID, &m.EntityID, &m.Level); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func encode(v any, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func decode(s string, v any) error {
	if s == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
