package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
)

// ErrNotFound is returned by the Get methods when no record has the id.
var ErrNotFound = errors.New("record not found")

// GraphStorage defines the interface for persisting the output of a graph
// construction run. Every write is an idempotent upsert keyed by entity id,
// edge id, community id and (community id, entity id) respectively, so
// submitting the same write set twice leaves the store unchanged.
type GraphStorage interface {
	SaveWriteSet(ctx context.Context, ws WriteSet) (Receipt, error)

	GetNode(ctx context.Context, id string) (common.CanonicalEntity, error)
	GetEdge(ctx context.Context, id string) (common.Relationship, error)
	GetCommunity(ctx context.Context, id string) (common.Community, error)
	GetMemberships(ctx context.Context, communityID string) ([]common.Membership, error)

	Close() error
}

// WriteSet is everything a single run persists. Tags are stored alongside
// every record and never interpreted.
type WriteSet struct {
	RunID         string                   `json:"run_id"`
	DocumentID    string                   `json:"document_id,omitempty"`
	Tags          common.Tags              `json:"tags,omitempty"`
	Entities      []common.CanonicalEntity `json:"entities"`
	Relationships []common.Relationship    `json:"relationships"`
	Communities   []common.Community       `json:"communities"`
	Memberships   []common.Membership      `json:"memberships"`
}

// Receipt confirms a persisted write set.
type Receipt struct {
	RunID       string    `json:"run_id"`
	Backend     string    `json:"backend"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Communities int       `json:"communities"`
	Memberships int       `json:"memberships"`
	StoredAt    time.Time `json:"stored_at"`
}

// Validate rejects write sets a store could not upsert: records without a
// key and edges or memberships pointing outside the set.
func (ws WriteSet) Validate() error {
	nodes := make(map[string]struct{}, len(ws.Entities))
	for _, e := range ws.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity %q has no id", e.Text)
		}
		nodes[e.ID] = struct{}{}
	}
	for _, r := range ws.Relationships {
		if r.ID == "" {
			return fmt.Errorf("relationship %s -> %s has no id", r.SourceID, r.TargetID)
		}
		if _, ok := nodes[r.SourceID]; !ok {
			return fmt.Errorf("relationship %s references unknown source %s", r.ID, r.SourceID)
		}
		if _, ok := nodes[r.TargetID]; !ok {
			return fmt.Errorf("relationship %s references unknown target %s", r.ID, r.TargetID)
		}
	}
	communities := make(map[string]struct{}, len(ws.Communities))
	for _, c := range ws.Communities {
		if c.ID == "" {
			return errors.New("community has no id")
		}
		communities[c.ID] = struct{}{}
	}
	for _, m := range ws.Memberships {
		if _, ok := communities[m.CommunityID]; !ok {
			return fmt.Errorf("membership references unknown community %s", m.CommunityID)
		}
		if _, ok := nodes[m.EntityID]; !ok {
			return fmt.Errorf("membership references unknown entity %s", m.EntityID)
		}
	}
	return nil
}

// NewReceipt counts the records of ws.
func NewReceipt(backend string, ws WriteSet) Receipt {
	return Receipt{
		RunID:       ws.RunID,
		Backend:     backend,
		Nodes:       len(ws.Entities),
		Edges:       len(ws.Relationships),
		Communities: len(ws.Communities),
		Memberships: len(ws.Memberships),
		StoredAt:    time.Now().UTC(),
	}
}
